package cmdline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitKeepsQuotesAndEscapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{`git commit -m "fix bug"`, []string{"git", "commit", "-m", `"fix bug"`}},
		{`echo 'a b' c\ d`, []string{"echo", "'a b'", `c\ d`}},
		{"make\nmake install", []string{"make", "\n", "make", "install"}},
		{`grep "say \"hi\"" file`, []string{"grep", `"say \"hi\""`, "file"}},
		{"   ", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Split(tc.in), "Split(%q)", tc.in)
	}
}

func TestParseStripsPrivilege(t *testing.T) {
	t.Parallel()

	cmd, err := Parser{}.Parse("sudo apt install ripgrep")
	require.NoError(t, err)
	assert.Equal(t, "sudo", cmd.Privilege)
	assert.Equal(t, "apt install ripgrep", cmd.Text)
	assert.Equal(t, []string{"apt", "install", "ripgrep"}, cmd.Tokens)
}

func TestParseHonoursConfiguredPrivilege(t *testing.T) {
	t.Parallel()

	p := Parser{Privileges: []string{"run0"}}
	cmd, err := p.Parse("sudo ls")
	require.NoError(t, err)
	assert.Empty(t, cmd.Privilege)
	assert.Equal(t, "sudo ls", cmd.Text)

	cmd, err = p.Parse("run0 ls /root")
	require.NoError(t, err)
	assert.Equal(t, "run0", cmd.Privilege)
	assert.Equal(t, "ls /root", cmd.Text)
}

func TestParseExtractsEnvPrefix(t *testing.T) {
	t.Parallel()

	cmd, err := Parser{}.Parse("LANG=C FOO=1 make --jobs=4")
	require.NoError(t, err)
	assert.Equal(t, "LANG=C FOO=1", cmd.Env)
	assert.Equal(t, "make --jobs=4", cmd.Text)
	assert.Equal(t, []string{"make", "--jobs=4"}, cmd.Tokens)

	cmd, err = Parser{}.Parse("=x cmd")
	require.NoError(t, err)
	assert.Empty(t, cmd.Env)
}

func TestParseExpandsAliases(t *testing.T) {
	t.Parallel()

	p := Parser{Aliases: Aliases{"g": "git", "please": "sudo"}}
	cmd, err := p.Parse("g stauts")
	require.NoError(t, err)
	assert.Equal(t, "git stauts", cmd.Text)

	cmd, err = p.Parse("please pacman -Syu")
	require.NoError(t, err)
	assert.Equal(t, "sudo", cmd.Privilege)
	assert.Equal(t, "pacman -Syu", cmd.Text)
}

func TestParseRejectsEmptyCommands(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "sudo", "FOO=1"} {
		_, err := Parser{}.Parse(raw)
		assert.ErrorIs(t, err, ErrEmpty, "Parse(%q)", raw)
	}
}

func TestUpdateKeepsEnvAndRetokenizes(t *testing.T) {
	t.Parallel()

	p := Parser{}
	cmd, err := p.Parse("DEBUG=1 gti push")
	require.NoError(t, err)
	require.NoError(t, p.Update(&cmd, "sudo git push"))
	assert.Equal(t, "DEBUG=1", cmd.Env)
	assert.Equal(t, "sudo", cmd.Privilege)
	assert.Equal(t, []string{"git", "push"}, cmd.Tokens)
}

func TestParseAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell string
		dump  string
		want  Aliases
	}{
		{"bash", "alias g='git'\nalias ll='ls -l'", Aliases{"g": "git", "ll": "ls -l"}},
		{"zsh", "g=git\nll='ls -l'", Aliases{"g": "git", "ll": "ls -l"}},
		{"fish", "alias g git\nalias ll 'ls -l'", Aliases{"g": "git", "ll": "ls -l"}},
		{"nu", "g=git", Aliases{"g": "git"}},
		{"bash", "", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseAliases(tc.shell, tc.dump), "%s: %q", tc.shell, tc.dump)
	}
}

func TestAliasesExpandMultiline(t *testing.T) {
	t.Parallel()

	a := Aliases{"k": "kubectl"}
	got, ok := a.Expand("k get pods\necho done\nk")
	require.True(t, ok)
	assert.Equal(t, "kubectl get pods\necho done\nkubectl", got)

	_, ok = a.Expand("ls -la")
	assert.False(t, ok)
	assert.Equal(t, []string{"k"}, a.Names())
}
