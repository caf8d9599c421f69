package executables

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755))
}

func TestLoadCollectsPathAliasesAndBuiltins(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix PATH layout")
	}
	first := t.TempDir()
	second := t.TempDir()
	writeExecutable(t, first, "git")
	writeExecutable(t, first, "_respects-module-zoxide")
	writeExecutable(t, second, "git")
	writeExecutable(t, second, "cargo")
	writeExecutable(t, second, "_respects-fallback-ai")
	writeExecutable(t, second, "_respects-module-apt")
	require.NoError(t, os.Mkdir(filepath.Join(second, "subdir"), 0o755))

	set := Load(Options{
		Path:           strings.Join([]string{first, "/does/not/exist", second}, string(os.PathListSeparator)),
		Aliases:        []string{"g", "git"},
		ModulePrefix:   "_respects-module-",
		FallbackPrefix: "_respects-fallback-",
	})

	assert.Equal(t, []string{"git", "cargo", "g"}, set.Names()[:3])
	assert.True(t, set.Contains("cd"))
	assert.False(t, set.Contains("subdir"))
	assert.False(t, set.Contains("_respects-module-apt"))
	assert.Equal(t, []string{
		filepath.Join(second, "_respects-module-apt"),
		filepath.Join(first, "_respects-module-zoxide"),
	}, set.Modules)
	assert.Equal(t, []string{filepath.Join(second, "_respects-fallback-ai")}, set.Fallbacks)
	assert.Equal(t, len(set.Names()), set.Len())
}

func TestLoadPrefersLibDirsForPlugins(t *testing.T) {
	pathDir := t.TempDir()
	libDir := t.TempDir()
	writeExecutable(t, pathDir, "_respects-module-path")
	writeExecutable(t, libDir, "_respects-module-lib")

	set := Load(Options{
		Path:         pathDir,
		LibDirs:      []string{libDir},
		ModulePrefix: "_respects-module-",
	})
	assert.Equal(t, []string{filepath.Join(libDir, "_respects-module-lib")}, set.Modules)
	assert.False(t, set.Contains("_respects-module-path"))
}

func TestNilSetIsEmpty(t *testing.T) {
	var set *Set
	assert.False(t, set.Contains("ls"))
	assert.Nil(t, set.Names())
	assert.Zero(t, set.Len())

	set = New("ls", "ls", "", "cat")
	assert.Equal(t, []string{"ls", "cat"}, set.Names())
}
