package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/respects-sh/respects/internal/cmdline"
	"github.com/respects-sh/respects/internal/executables"
	"github.com/respects-sh/respects/internal/fuzzy"
)

// Input carries the facts about one failed command.
type Input struct {
	Shell string
	// Command is the failed command without privilege or environment prefix.
	Command string
	Tokens  []string
	// Error is the lowercased, whitespace-collapsed error output.
	Error       string
	Executables *executables.Set
}

// Shell runs helper commands for shell() placeholders and executable()
// probes.
type Shell interface {
	Output(ctx context.Context, expr string) (string, error)
	Has(ctx context.Context, name string) bool
}

const (
	typoThreshold = 2
	selectionTag  = "{{selection}}"
)

// Substituted values are parked behind private-use markers until the end so
// their text is never read as placeholders by a later pass.
const (
	markOpen  = "\uE000"
	markClose = "\uE001"
)

var markerPattern = regexp.MustCompile(markOpen + `([0-9]+)` + markClose)

type expansion struct {
	ctx   context.Context
	in    Input
	shell Shell

	command string
	tokens  []string
	values  []string

	selections []string
	selected   bool
}

// Render expands every placeholder of a suggestion body. It returns one
// command, or one per entry when the body uses select().
func Render(ctx context.Context, body string, in Input, shell Shell) ([]string, error) {
	x := &expansion{ctx: ctx, in: in, shell: shell, command: in.Command}
	return x.run(body)
}

func (x *expansion) run(body string) ([]string, error) {
	s := strings.ReplaceAll(body, "{{command}}", x.park(x.in.Command))

	passes := []struct {
		prefix string
		eval   func(string) (string, error)
	}{
		{"{{opt::", x.opt},
		{"{{cmd::", x.cmdCapture},
		{"{{err::", x.errCapture},
		{"{{command[", x.commandRange},
		{"{{shell(", x.shellOutput},
		{"{{typo[", x.typo},
		{"{{select(", x.selectList},
	}

	var err error
	for i, pass := range passes {
		if s, err = x.replaceAll(s, pass.prefix, pass.eval); err != nil {
			return nil, err
		}
		if i == 0 {
			x.tokens = cmdline.Split(x.command)
		}
	}

	s = x.unpark(s)
	if !x.selected {
		return []string{s}, nil
	}
	out := make([]string, 0, len(x.selections))
	for _, sel := range x.selections {
		out = append(out, strings.ReplaceAll(s, selectionTag, sel))
	}
	return out, nil
}

// replaceAll substitutes every placeholder that starts with prefix, left to
// right. eval receives the text between the prefix and the closing braces.
func (x *expansion) replaceAll(s, prefix string, eval func(string) (string, error)) (string, error) {
	for {
		start, end, err := findPlaceholder(s, prefix)
		if err != nil {
			return "", err
		}
		if start < 0 {
			return s, nil
		}
		value, err := eval(s[start+len(prefix) : end-2])
		if err != nil {
			return "", err
		}
		if value == "" && prefix == "{{opt::" && start > 0 && s[start-1] == ' ' {
			s = s[:start-1] + s[end:]
			continue
		}
		if value == selectionTag {
			s = s[:start] + value + s[end:]
			continue
		}
		s = s[:start] + x.park(value) + s[end:]
	}
}

// findPlaceholder locates the first placeholder starting with prefix and
// returns its byte span. Nested placeholders are skipped over by counting
// brace pairs.
func findPlaceholder(s, prefix string) (int, int, error) {
	start := strings.Index(s, prefix)
	if start < 0 {
		return -1, -1, nil
	}
	depth := 0
	for i := start; i < len(s)-1; {
		switch s[i : i+2] {
		case "{{":
			depth++
			i += 2
		case "}}":
			depth--
			i += 2
			if depth == 0 {
				return start, i, nil
			}
		default:
			i++
		}
	}
	return -1, -1, fmt.Errorf("unterminated placeholder %q", truncate(s[start:], 40))
}

func (x *expansion) park(value string) string {
	x.values = append(x.values, value)
	return markOpen + strconv.Itoa(len(x.values)-1) + markClose
}

func (x *expansion) unpark(s string) string {
	return markerPattern.ReplaceAllStringFunc(s, func(m string) string {
		idx, err := strconv.Atoi(m[len(markOpen) : len(m)-len(markClose)])
		if err != nil || idx >= len(x.values) {
			return m
		}
		return x.values[idx]
	})
}

// opt extracts option text with a regex and deletes it from the working
// command so later placeholders see the command without it.
func (x *expansion) opt(arg string) (string, error) {
	found, err := captures(arg, x.command)
	if err != nil {
		return "", err
	}
	for _, f := range found {
		if f != "" {
			x.command = strings.ReplaceAll(x.command, f, "")
		}
	}
	return strings.Join(found, " "), nil
}

func (x *expansion) cmdCapture(arg string) (string, error) {
	found, err := captures(arg, x.command)
	if err != nil {
		return "", err
	}
	return strings.Join(found, " "), nil
}

func (x *expansion) errCapture(arg string) (string, error) {
	found, err := captures(arg, x.in.Error)
	if err != nil {
		return "", err
	}
	return strings.Join(found, " "), nil
}

// captures collects every capture group of every match, skipping the whole
// match itself and groups that did not participate.
func captures(expr, text string) ([]string, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", expr, err)
	}
	var out []string
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		for g := 1; g < len(m)/2; g++ {
			if m[2*g] < 0 {
				continue
			}
			out = append(out, text[m[2*g]:m[2*g+1]])
		}
	}
	return out, nil
}

func (x *expansion) commandRange(arg string) (string, error) {
	spec, ok := strings.CutSuffix(arg, "]")
	if !ok {
		return "", fmt.Errorf("malformed command range %q", arg)
	}
	lo, hi, err := tokenRange(spec, len(x.tokens))
	if err != nil {
		return "", err
	}
	return strings.Join(x.tokens[lo:hi], " "), nil
}

// tokenRange resolves `i` or `a:b` against n tokens. Negative positions count
// from the end. The end of a slice is inclusive and an omitted bound means
// the start or the rest of the command. A single index must exist; a slice
// past the end is clamped to empty.
func tokenRange(spec string, n int) (int, int, error) {
	spec = strings.TrimSpace(spec)
	from, to, isSlice := strings.Cut(spec, ":")
	if !isSlice {
		idx, err := strconv.Atoi(spec)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid token index %q", spec)
		}
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return 0, 0, fmt.Errorf("token index %s out of range for %d tokens", spec, n)
		}
		return idx, idx + 1, nil
	}

	lo := 0
	if from = strings.TrimSpace(from); from != "" {
		v, err := strconv.Atoi(from)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q", from)
		}
		if v < 0 {
			v += n
		}
		lo = v
	}
	hi := n
	if to = strings.TrimSpace(to); to != "" {
		v, err := strconv.Atoi(to)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range end %q", to)
		}
		if v < 0 {
			v += n
		}
		hi = v + 1
	}
	lo = max(0, min(lo, n))
	hi = max(lo, min(hi, n))
	return lo, hi, nil
}

func (x *expansion) shellOutput(arg string) (string, error) {
	expr, ok := strings.CutSuffix(arg, ")")
	if !ok {
		return "", fmt.Errorf("malformed shell placeholder %q", arg)
	}
	if x.shell == nil {
		return "", nil
	}
	out, err := x.shell.Output(x.ctx, x.unpark(expr))
	if err != nil {
		return "", nil
	}
	return strings.Join(splitLines(out), "\n"), nil
}

func (x *expansion) typo(arg string) (string, error) {
	spec, rest, ok := strings.Cut(arg, "]")
	if !ok || !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", fmt.Errorf("malformed typo placeholder %q", arg)
	}
	lo, hi, err := tokenRange(spec, len(x.tokens))
	if err != nil {
		return "", err
	}
	list := strings.TrimSpace(x.unpark(rest[1 : len(rest)-1]))

	fixed := make([]string, 0, hi-lo)
	for _, token := range x.tokens[lo:hi] {
		fixed = append(fixed, x.correct(token, list))
	}
	return strings.Join(fixed, " "), nil
}

func (x *expansion) correct(token, list string) string {
	var (
		match string
		ok    bool
	)
	switch list {
	case "path":
		if strings.ContainsRune(token, filepath.Separator) || strings.ContainsRune(token, '/') {
			match, ok = fuzzy.BestMatchFile(token)
		} else {
			match, ok = fuzzy.FindSimilar(token, x.in.Executables.Names(), typoThreshold)
		}
	case "file":
		match, ok = fuzzy.BestMatchFile(token)
	default:
		match, ok = fuzzy.FindSimilar(token, splitList(list), typoThreshold)
	}
	if !ok {
		return token
	}
	return match
}

func (x *expansion) selectList(arg string) (string, error) {
	list, ok := strings.CutSuffix(arg, ")")
	if !ok {
		return "", fmt.Errorf("malformed select placeholder %q", arg)
	}
	if x.selected {
		return "", fmt.Errorf("only one select() is allowed per suggestion")
	}
	x.selected = true
	x.selections = splitList(x.unpark(list))
	return selectionTag, nil
}

// splitList splits a candidate list on commas and newlines, dropping blanks.
func splitList(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
