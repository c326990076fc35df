package chat

import (
	"strings"
	"testing"

	"github.com/recallion/recallion/internal/core"
)

func TestAssembler_EmptyResultsSentinel(t *testing.T) {
	got := NewAssembler(2000).BuildContext(nil)
	if got != NoMemoriesSentinel {
		t.Errorf("got %q, want the no-memories sentinel", got)
	}
}

func TestAssembler_NumberingAndSummaryPreference(t *testing.T) {
	results := []core.RetrievedMemory{
		{Memory: core.Memory{Summary: "short summary", Content: "long raw content", Importance: 8}},
		{Memory: core.Memory{Content: "only raw content", Importance: 3}},
	}

	got := NewAssembler(2000).BuildContext(results)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus one per memory:\n%s", len(lines), got)
	}
	if lines[0] != "Relevant memories from the user's knowledge base:" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "[Memory 1] short summary (importance: 8/10)" {
		t.Errorf("line 1 = %q, want the summary when present", lines[1])
	}
	if lines[2] != "[Memory 2] only raw content (importance: 3/10)" {
		t.Errorf("line 2 = %q, want the content when no summary exists", lines[2])
	}
}

func TestAssembler_BudgetDropsTrailingMemories(t *testing.T) {
	results := []core.RetrievedMemory{
		{Memory: core.Memory{Summary: "alpha", Importance: 5}},
		{Memory: core.Memory{Summary: "bravo", Importance: 5}},
		{Memory: core.Memory{Summary: "delta", Importance: 5}},
	}

	// Bare struct keeps the character heuristic, so the count is deterministic.
	a := &Assembler{tokenBudget: 25}
	got := a.BuildContext(results)
	if !strings.Contains(got, "alpha") {
		t.Error("first memory must survive the budget")
	}
	if strings.Contains(got, "bravo") || strings.Contains(got, "delta") {
		t.Errorf("trailing memories should be dropped:\n%s", got)
	}
}

func TestAssembler_FirstMemoryAlwaysIncluded(t *testing.T) {
	results := []core.RetrievedMemory{
		{Memory: core.Memory{Summary: strings.Repeat("x", 400), Importance: 5}},
	}

	a := &Assembler{tokenBudget: 1}
	got := a.BuildContext(results)
	if !strings.Contains(got, "[Memory 1]") {
		t.Error("an oversized first memory is still included whole")
	}
}
