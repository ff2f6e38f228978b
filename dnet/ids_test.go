package dnet

import (
	"strings"
	"testing"
)

func TestIDGenerator_UniqueWhileOutstanding(t *testing.T) {
	g := NewIDGenerator(nil)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if g.Outstanding() != 1000 {
		t.Errorf("Outstanding() = %d, want 1000", g.Outstanding())
	}
}

func TestIDGenerator_RetriesOnCollision(t *testing.T) {
	candidates := []string{"a", "a", "a", "b"}
	i := 0
	g := NewIDGenerator(func() string {
		c := candidates[i]
		i++
		return c
	})

	if got := g.Generate(); got != "a" {
		t.Fatalf("first id = %q, want a", got)
	}
	if got := g.Generate(); got != "b" {
		t.Fatalf("second id = %q, want b", got)
	}
	if i != 4 {
		t.Errorf("source called %d times, want 4", i)
	}
}

func TestIDGenerator_ReleaseAllowsReuse(t *testing.T) {
	g := NewIDGenerator(func() string { return "same" })
	id := g.Generate()
	g.Release(id)
	if got := g.Generate(); got != id {
		t.Errorf("Generate() after Release = %q, want %q", got, id)
	}
}

func TestIDGenerator_Reset(t *testing.T) {
	g := NewIDGenerator(func() string { return "same" })
	g.Generate()
	g.Reset()
	if g.Outstanding() != 0 {
		t.Fatalf("Outstanding() = %d after Reset", g.Outstanding())
	}
	if got := g.Generate(); got != "same" {
		t.Errorf("Generate() after Reset = %q", got)
	}
}

func TestSequentialIDs(t *testing.T) {
	a := SequentialIDs()
	b := SequentialIDs()

	first, second := a(), a()
	if first == second {
		t.Fatalf("sequential ids repeat: %q", first)
	}
	if !strings.HasSuffix(first, "-1") || !strings.HasSuffix(second, "-2") {
		t.Errorf("unexpected ids %q, %q", first, second)
	}
	// counters are per source
	if got := b(); !strings.HasSuffix(got, "-1") {
		t.Errorf("second source started at %q", got)
	}
}
