// Package candidates accumulates suggested commands in discovery order.
package candidates

import "strings"

// List is an ordered set of suggestions. The first occurrence of a command
// wins and later duplicates are dropped.
type List struct {
	exclude map[string]struct{}
	seen    map[string]struct{}
	items   []string
}

// NewList returns an empty list that rejects the given commands, typically
// the failed command itself in its different spellings.
func NewList(exclude ...string) *List {
	l := &List{
		exclude: map[string]struct{}{},
		seen:    map[string]struct{}{},
	}
	for _, cmd := range exclude {
		cmd = strings.TrimSpace(cmd)
		if cmd != "" {
			l.exclude[cmd] = struct{}{}
		}
	}
	return l
}

// Add appends each suggestion after trimming it. Empty strings, excluded
// commands and duplicates are skipped. It reports how many were kept.
func (l *List) Add(suggestions ...string) int {
	added := 0
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := l.exclude[s]; ok {
			continue
		}
		if _, ok := l.seen[s]; ok {
			continue
		}
		l.seen[s] = struct{}{}
		l.items = append(l.items, s)
		added++
	}
	return added
}

// Merge appends another list's items in order.
func (l *List) Merge(other *List) int {
	if other == nil {
		return 0
	}
	return l.Add(other.items...)
}

func (l *List) Items() []string {
	return append([]string(nil), l.items...)
}

func (l *List) Len() int { return len(l.items) }

func (l *List) Empty() bool { return len(l.items) == 0 }
