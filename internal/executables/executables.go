// Package executables collects every name a user could have meant to run:
// programs on PATH, shell builtins and aliases. The set is built once per
// invocation and only read afterwards.
package executables

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Builtins are shell builtins common to the supported shells. False
// positives are harmless since the set only feeds typo correction.
var Builtins = []string{
	"alias", "bg", "bind", "break", "builtin", "case", "cd", "command", "compgen", "complete",
	"continue", "declare", "dirs", "disown", "echo", "enable", "eval", "exec", "exit",
	"export", "fc", "fg", "getopts", "hash", "help", "history", "if", "jobs", "kill", "let",
	"local", "logout", "popd", "printf", "pushd", "pwd", "read", "readonly", "return", "set",
	"shift", "shopt", "source", "suspend", "test", "times", "trap", "type", "typeset",
	"ulimit", "umask", "unalias", "unset", "until", "wait", "while", "which",
}

type Options struct {
	// Path is a PATH-style list of directories to scan.
	Path    string
	LibDirs []string
	Aliases []string
	// ModulePrefix and FallbackPrefix mark plugin executables. Those are kept
	// out of the name set and returned separately.
	ModulePrefix   string
	FallbackPrefix string
}

// Set is the deduplicated list of known names, in discovery order.
type Set struct {
	names     []string
	index     map[string]struct{}
	Modules   []string
	Fallbacks []string
}

// Load scans PATH and the library directories. Unreadable directories are
// skipped. When library directories are given, plugins are taken only from
// them.
func Load(opts Options) *Set {
	s := &Set{index: map[string]struct{}{}}
	usePathPlugins := len(opts.LibDirs) == 0

	for _, dir := range filepath.SplitList(opts.Path) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := stripExt(entry.Name())
			switch {
			case hasPrefix(name, opts.ModulePrefix):
				if usePathPlugins {
					s.Modules = append(s.Modules, filepath.Join(dir, entry.Name()))
				}
			case hasPrefix(name, opts.FallbackPrefix):
				if usePathPlugins {
					s.Fallbacks = append(s.Fallbacks, filepath.Join(dir, entry.Name()))
				}
			default:
				s.add(name)
			}
		}
	}

	for _, dir := range opts.LibDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			switch {
			case hasPrefix(name, opts.ModulePrefix):
				s.Modules = append(s.Modules, filepath.Join(dir, name))
			case hasPrefix(name, opts.FallbackPrefix):
				s.Fallbacks = append(s.Fallbacks, filepath.Join(dir, name))
			}
		}
	}

	for _, name := range opts.Aliases {
		s.add(name)
	}
	for _, name := range Builtins {
		s.add(name)
	}

	sortByBase(s.Modules)
	sortByBase(s.Fallbacks)
	return s
}

// New builds a set from explicit names.
func New(names ...string) *Set {
	s := &Set{index: map[string]struct{}{}}
	for _, name := range names {
		s.add(name)
	}
	return s
}

func (s *Set) add(name string) {
	if name == "" {
		return
	}
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
}

func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Names returns the names in discovery order. Callers must not modify it.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return s.names
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

func hasPrefix(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix)
}

func stripExt(name string) string {
	if runtime.GOOS != "windows" {
		return name
	}
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".exe", ".bat", ".cmd", ".com", ".ps1":
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func sortByBase(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})
}
