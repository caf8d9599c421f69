// Package fuzzy finds the closest spelling of a mistyped token among a set of
// known names using optimal string alignment distance.
package fuzzy

// Distance returns the optimal string alignment (restricted Damerau-Levenshtein)
// distance between a and b, counted in runes. Adjacent transpositions cost one
// edit, like insertions, deletions and substitutions.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(
				d[i-1][j]+1,
				d[i][j-1]+1,
				d[i-1][j-1]+cost,
			)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(ra)][len(rb)]
}

// bound is the exclusive distance limit for a token: a candidate is accepted
// only when its distance is strictly below it.
func bound(token string, threshold int) int {
	if threshold <= 0 {
		threshold = 1
	}
	return len([]rune(token))/threshold + 1
}

// FindSimilar returns the candidate closest to token whose distance stays under
// the threshold bound. Ties keep the first candidate seen. Empty candidates are
// ignored.
func FindSimilar(token string, candidates []string, threshold int) (string, bool) {
	limit := bound(token, threshold)
	best := ""
	found := false
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if dist := Distance(token, candidate); dist < limit {
			limit = dist
			best = candidate
			found = true
		}
	}
	return best, found
}

// FindAllSimilar returns every candidate tied at the smallest accepted
// distance, deduplicated and in first-seen order.
func FindAllSimilar(token string, candidates []string, threshold int) []string {
	limit := bound(token, threshold)
	var best []string
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		dist := Distance(token, candidate)
		switch {
		case dist < limit:
			limit = dist
			best = best[:0]
			seen = map[string]struct{}{}
		case dist == limit && len(best) > 0:
		default:
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		best = append(best, candidate)
	}
	return best
}
