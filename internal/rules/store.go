package rules

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// runtimeExts are tried in order for each rule directory.
var runtimeExts = []string{".toml", ".yaml", ".yml"}

// LoadBuiltin parses the rules compiled into the binary.
func LoadBuiltin() (map[string]*Rule, error) {
	return loadFS(builtinFS, "builtin")
}

func loadFS(fsys fs.FS, dir string) (map[string]*Rule, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("could not list builtin rules: %w", err)
	}
	out := make(map[string]*Rule, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".toml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("could not read builtin rule %s: %w", entry.Name(), err)
		}
		rule, err := ParseTOML(strings.TrimSuffix(entry.Name(), ".toml"), data)
		if err != nil {
			return nil, err
		}
		rule.Source = SourceBuiltin
		if _, dup := out[rule.Command]; dup {
			return nil, &RuleError{Rule: rule.Command, Err: errors.New("defined twice")}
		}
		out[rule.Command] = rule
	}
	return out, nil
}

// Store answers rule lookups from the builtin table and, lazily, from rule
// files found in the runtime directories.
type Store struct {
	builtin map[string]*Rule
	dirs    []string

	mu      sync.Mutex
	runtime map[string]runtimeEntry
}

type runtimeEntry struct {
	rule *Rule
	err  error
}

// NewStore builds a store over the given builtin rules and runtime rule
// directories, searched in order.
func NewStore(builtin map[string]*Rule, dirs []string) *Store {
	return &Store{
		builtin: builtin,
		dirs:    dirs,
		runtime: map[string]runtimeEntry{},
	}
}

// Lookup returns the builtin rule for name followed by the first runtime rule
// file for it. A malformed runtime file is reported on every lookup.
func (s *Store) Lookup(name string) ([]*Rule, error) {
	var found []*Rule
	if r, ok := s.builtin[name]; ok {
		found = append(found, r)
	}
	r, err := s.runtimeRule(name)
	if err != nil {
		return nil, err
	}
	if r != nil {
		found = append(found, r)
	}
	return found, nil
}

// Names lists the builtin rule names.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.builtin))
	for name := range s.builtin {
		names = append(names, name)
	}
	return names
}

func (s *Store) runtimeRule(name string) (*Rule, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.runtime[name]; ok {
		return entry.rule, entry.err
	}
	rule, err := s.readRuntime(name)
	s.runtime[name] = runtimeEntry{rule: rule, err: err}
	return rule, err
}

func (s *Store) readRuntime(name string) (*Rule, error) {
	for _, dir := range s.dirs {
		for _, ext := range runtimeExts {
			file := filepath.Join(dir, name+ext)
			data, err := os.ReadFile(file)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("could not read rule file %s: %w", file, err)
			}

			var rule *Rule
			if ext == ".toml" {
				rule, err = ParseTOML(name, data)
			} else {
				rule, err = ParseYAML(name, data)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			rule.Source = SourceRuntime
			return rule, nil
		}
	}
	return nil, nil
}
