package ui

import (
	"reflect"
	"testing"
)

func TestBackendOrder(t *testing.T) {
	cases := []struct {
		configured string
		terminal   bool
		want       []string
	}{
		{"auto", true, []string{BackendBubbleTea, BackendHuh, BackendTView, BackendPlain}},
		{"", true, []string{BackendBubbleTea, BackendHuh, BackendTView, BackendPlain}},
		{"bubbletea", true, []string{BackendBubbleTea, BackendHuh, BackendTView, BackendPlain}},
		{"huh", true, []string{BackendHuh, BackendBubbleTea, BackendTView, BackendPlain}},
		{" TView ", true, []string{BackendTView, BackendBubbleTea, BackendHuh, BackendPlain}},
		{"plain", true, []string{BackendPlain}},
		{"huh", false, []string{BackendPlain}},
		{"unknown", true, []string{BackendBubbleTea, BackendHuh, BackendTView, BackendPlain}},
	}
	for _, tc := range cases {
		got := backendOrder(tc.configured, tc.terminal)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("backendOrder(%q, %v) = %v, want %v", tc.configured, tc.terminal, got, tc.want)
		}
	}
}
