package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respects-sh/respects/internal/candidates"
)

func builtinDispatcher(t *testing.T, dirs ...string) *Dispatcher {
	t.Helper()
	builtin, err := LoadBuiltin()
	require.NoError(t, err)
	return &Dispatcher{Store: NewStore(builtin, dirs), Shell: &fakeShell{}}
}

func dispatch(t *testing.T, d *Dispatcher, name string, in Input) []string {
	t.Helper()
	out := candidates.NewList(in.Command)
	require.NoError(t, d.Dispatch(context.Background(), name, in, out))
	return out.Items()
}

func TestLoadBuiltinParsesEveryRule(t *testing.T) {
	builtin, err := LoadBuiltin()
	require.NoError(t, err)
	for _, name := range []string{General, Privilege, "git", "cargo", "cd", "pip", "docker"} {
		rule, ok := builtin[name]
		require.True(t, ok, name)
		assert.Equal(t, SourceBuiltin, rule.Source)
		assert.NotEmpty(t, rule.blocks)
	}
}

func TestDispatchGeneralTypo(t *testing.T) {
	d := builtinDispatcher(t)
	in := input("gti status", "bash: gti: command not found", "git", "ls", "cat")
	assert.Equal(t, []string{"git status"}, dispatch(t, d, General, in))
}

func TestDispatchNonMatchingErrorYieldsNothing(t *testing.T) {
	d := builtinDispatcher(t)
	in := input("git push", "everything up-to-date", "git")
	for _, name := range []string{General, Privilege, "git", "unknown-tool"} {
		assert.Empty(t, dispatch(t, d, name, in), name)
	}
}

func TestDispatchPrivilege(t *testing.T) {
	d := builtinDispatcher(t)
	in := input("cat /etc/shadow", "cat: /etc/shadow: permission denied", "cat", "sudo", "doas")
	assert.Equal(t, []string{"sudo cat /etc/shadow"}, dispatch(t, d, Privilege, in))

	in = input("cat /etc/shadow", "cat: /etc/shadow: permission denied", "cat", "doas")
	assert.Equal(t, []string{"doas cat /etc/shadow"}, dispatch(t, d, Privilege, in))
}

func TestDispatchGitSubcommandTypo(t *testing.T) {
	d := builtinDispatcher(t)
	in := input("git comit -m wip", "git: 'comit' is not a git command. see 'git --help'.", "git")
	assert.Equal(t, []string{"git commit -m wip"}, dispatch(t, d, "git", in))
}

func TestDispatchSelectRule(t *testing.T) {
	d := builtinDispatcher(t)
	in := input("pip install requests", "error: externally-managed-environment", "pip")
	assert.Equal(t, []string{
		"pip install --user requests",
		"pip install --break-system-packages requests",
	}, dispatch(t, d, "pip", in))
}

func TestDispatchUsesFirstMatchingBlockOnly(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "tool.toml", `
[[match_err]]
pattern = ["boom"]
suggest = ["tool --first"]

[[match_err]]
pattern = ["boom"]
suggest = ["tool --second"]
`)
	d := &Dispatcher{Store: NewStore(nil, []string{dir})}
	in := input("tool", "boom")
	assert.Equal(t, []string{"tool --first"}, dispatch(t, d, "tool", in))
}

func TestDispatchRuntimeYAMLRuleWithProbe(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "kubectl.yaml", `
match_err:
  - pattern: ["unknown command"]
    suggest:
      - |
        #[executable(kubecolor)]
        kubecolor {{command[1:]}}
      - "{{command[0]}} {{typo[1](get, describe, apply)}}"
`)
	shell := &fakeShell{known: map[string]bool{"kubecolor": true}}
	builtin, err := LoadBuiltin()
	require.NoError(t, err)
	d := &Dispatcher{Store: NewStore(builtin, []string{dir}), Shell: shell}

	in := input("kubectl gte", `error: unknown command "gte" for "kubectl"`, "kubectl")
	assert.Equal(t, []string{"kubecolor gte", "kubectl get"}, dispatch(t, d, "kubectl", in))
}

func TestDispatchReportsRuleErrors(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "broken.toml", `
[[match_err]]
pattern = ["fail"]
suggest = ["{{command[5]}}"]
`)
	d := &Dispatcher{Store: NewStore(nil, []string{dir})}
	err := d.Dispatch(context.Background(), "broken", input("broken x", "fail"), candidates.NewList())

	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "broken", ruleErr.Rule)
}

func TestStoreReportsMalformedRuntimeFile(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "bad.toml", `
[[match_err]]
pattern = ["x"]
suggest = ["#[nonsense(1)]\nbad"]
`)
	store := NewStore(nil, []string{dir})
	_, err := store.Lookup("bad")
	require.Error(t, err)
	_, again := store.Lookup("bad")
	assert.Equal(t, err, again)

	found, err := store.Lookup("../bad")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStoreSearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeRule(t, second, "tool.toml", `
[[match_err]]
pattern = ["x"]
suggest = ["second"]
`)
	writeRule(t, first, "tool.yml", `
match_err:
  - pattern: ["x"]
    suggest: ["first"]
`)
	found, err := NewStore(nil, []string{first, second}).Lookup("tool")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, SourceRuntime, found[0].Source)
	assert.Equal(t, "first", found[0].MatchErr[0].Suggest[0])
}

func writeRule(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}
