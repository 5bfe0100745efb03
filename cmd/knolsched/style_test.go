package main

import (
	"strings"
	"testing"

	"github.com/conorfennell/knolsched/internal/sched"
)

func TestRenderNewByDeck(t *testing.T) {
	nodes := []*sched.DueNode{
		{DeckID: 1, Name: "Default", Children: []*sched.DueNode{
			{DeckID: 2, Name: "Default::A"},
			{DeckID: 3, Name: "Default::B"},
		}},
	}
	out := renderNewByDeck(nodes, map[int64]int{1: 0, 2: 2, 3: 1})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, but got %q", out)
	}
	if !strings.HasPrefix(lines[0], "Default::A") || !strings.HasSuffix(lines[0], "2") {
		t.Errorf("Expected the first line for Default::A with 2, but got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Default::B") || !strings.HasSuffix(lines[1], "1") {
		t.Errorf("Expected the second line for Default::B with 1, but got %q", lines[1])
	}
}
