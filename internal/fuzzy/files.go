package fuzzy

import (
	"os"
	"path/filepath"
	"strings"
)

// fileThreshold is used for every path segment during a filesystem walk.
const fileThreshold = 2

// BestMatchFile corrects a possibly mistyped path. It climbs to the deepest
// directory that exists and then fuzzy-matches each missing segment on the way
// back down. Spaces in matched names are escaped with a backslash. When a
// matched segment turns out to be a regular file the partial path is returned.
func BestMatchFile(input string) (string, bool) {
	sep := string(filepath.Separator)
	raw := strings.Trim(input, `'"`)
	if len(raw) > 1 {
		raw = strings.TrimRight(raw, sep)
	}
	if raw == "" {
		return "", false
	}

	real, shown := strings.ReplaceAll(raw, `\ `, " "), raw
	var missing []string
	entries, err := os.ReadDir(real)
	for err != nil {
		idx := strings.LastIndex(real, sep)
		if idx < 0 {
			missing = append(missing, escapeSpaces(real))
			real, shown = "", ""
			entries, err = os.ReadDir(".")
			if err != nil {
				return "", false
			}
			break
		}
		if real == sep {
			return "", false
		}
		missing = append(missing, escapeSpaces(real[idx+1:]))
		real = real[:idx]
		if real == "" {
			real = sep
		}
		shown = escapeSpaces(real)
		entries, err = os.ReadDir(real)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, escapeSpaces(entry.Name()))
		}
		match, ok := FindSimilar(missing[i], names, fileThreshold)
		if !ok {
			return "", false
		}
		real = joinSegment(real, strings.ReplaceAll(match, `\ `, " "), sep)
		shown = joinSegment(shown, match, sep)
		entries, err = os.ReadDir(real)
		if err != nil {
			return shown, true
		}
	}
	return shown, true
}

func joinSegment(dir, name, sep string) string {
	switch {
	case dir == "":
		return name
	case strings.HasSuffix(dir, sep):
		return dir + name
	default:
		return dir + sep + name
	}
}

func escapeSpaces(name string) string {
	return strings.ReplaceAll(name, " ", `\ `)
}
