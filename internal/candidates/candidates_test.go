package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDeduplicatesAndSkipsOriginal(t *testing.T) {
	list := NewList("gti status")
	kept := list.Add("git status", "git status", "git satus")
	assert.Equal(t, 2, kept)
	assert.Equal(t, []string{"git status", "git satus"}, list.Items())
}

func TestAddTrimsAndDropsEmpty(t *testing.T) {
	list := NewList("ls", "sudo ls")
	list.Add("  ls -a ", "", "   ", "ls", "sudo ls", "ls -a")
	assert.Equal(t, []string{"ls -a"}, list.Items())
	assert.Equal(t, 1, list.Len())
}

func TestMergeKeepsFirstOccurrenceOrder(t *testing.T) {
	modules := NewList("x")
	modules.Add("b", "a")
	list := NewList("x")
	list.Add("a")
	assert.Equal(t, 1, list.Merge(modules))
	assert.Equal(t, []string{"a", "b"}, list.Items())
	assert.Zero(t, list.Merge(nil))
}

func TestEmpty(t *testing.T) {
	list := NewList()
	assert.True(t, list.Empty())
	list.Add("echo hi")
	assert.False(t, list.Empty())

	items := list.Items()
	items[0] = "mutated"
	assert.Equal(t, []string{"echo hi"}, list.Items())
}
