package fuzzy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"sl", "ls", 1},
		{"gti", "git", 1},
		{"kitten", "sitting", 3},
		{"ca", "abc", 3},
		{"stauts", "status", 1},
		{"héllo", "hello", 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Distance(tc.a, tc.b), "Distance(%q, %q)", tc.a, tc.b)
	}
}

func TestFindSimilarAcceptsBoundary(t *testing.T) {
	t.Parallel()

	got, ok := FindSimilar("sl", []string{"ls"}, 2)
	require.True(t, ok)
	assert.Equal(t, "ls", got)
}

func TestFindSimilarRejectsDistantTokens(t *testing.T) {
	t.Parallel()

	_, ok := FindSimilar("xyz", []string{"ls", "cd", "cat"}, 3)
	assert.False(t, ok)
}

func TestFindSimilarPrefersFirstOnTie(t *testing.T) {
	t.Parallel()

	got, ok := FindSimilar("gti", []string{"", "git", "gdi", "gtk"}, 2)
	require.True(t, ok)
	assert.Equal(t, "git", got)

	got, ok = FindSimilar("cst", []string{"cat", "cut"}, 2)
	require.True(t, ok)
	assert.Equal(t, "cat", got)
}

func TestFindSimilarExactMatchWins(t *testing.T) {
	t.Parallel()

	got, ok := FindSimilar("push", []string{"pull", "push"}, 2)
	require.True(t, ok)
	assert.Equal(t, "push", got)
}

func TestFindAllSimilar(t *testing.T) {
	t.Parallel()

	got := FindAllSimilar("cst", []string{"cat", "vim", "cut", "cat", "cast"}, 2)
	assert.Equal(t, []string{"cat", "cut", "cast"}, got)

	got = FindAllSimilar("pyhton", []string{"python3", "python", "perl"}, 3)
	assert.Equal(t, []string{"python"}, got)

	assert.Empty(t, FindAllSimilar("zzz", []string{"git", "ls"}, 3))
}

func TestBestMatchFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "projects", "respects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "my docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "projects", "notes.txt"), []byte("x"), 0o644))

	got, ok := BestMatchFile(filepath.Join(root, "projcets", "respecst"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "projects", "respects"), got)

	got, ok = BestMatchFile(`"` + filepath.Join(root, "projects", "ntoes.txt") + `"`)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "projects", "notes.txt"), got)

	got, ok = BestMatchFile(filepath.Join(root, "my dosc"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, `my\ docs`), got)

	_, ok = BestMatchFile(filepath.Join(root, "completely-unrelated"))
	assert.False(t, ok)
}

func TestBestMatchFileExistingDirectoryIsUnchanged(t *testing.T) {
	root := t.TempDir()
	got, ok := BestMatchFile(root)
	require.True(t, ok)
	assert.Equal(t, root, got)
}
