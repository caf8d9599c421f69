package ui

import "strings"

const (
	BackendAuto      = "auto"
	BackendBubbleTea = "bubbletea"
	BackendHuh       = "huh"
	BackendTView     = "tview"
	BackendPlain     = "plain"
)

var interactiveBackends = []string{BackendBubbleTea, BackendHuh, BackendTView}

// backendOrder lists the backends to try for the configured one. The
// configured backend goes first, the other interactive ones follow, and the
// line-based prompt is always the last resort. Without a terminal only the
// line-based prompt can work.
func backendOrder(configured string, terminal bool) []string {
	preferred := strings.ToLower(strings.TrimSpace(configured))
	if !terminal || preferred == BackendPlain {
		return []string{BackendPlain}
	}

	order := make([]string, 0, len(interactiveBackends)+1)
	for _, name := range interactiveBackends {
		if name == preferred {
			order = append(order, name)
		}
	}
	for _, name := range interactiveBackends {
		if name != preferred {
			order = append(order, name)
		}
	}
	return append(order, BackendPlain)
}
