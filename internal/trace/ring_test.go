package trace

import (
	"fmt"
	"testing"
)

func TestRingDrainOrder(t *testing.T) {
	r := NewRing(10)
	r.Append("a")
	r.Append("b")
	r.Append("c")
	got := r.Drain()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("drained = %v", got)
	}
	if r.Len() != 0 {
		t.Fatalf("ring not empty after drain: %d", r.Len())
	}
	if again := r.Drain(); again != nil {
		t.Fatalf("empty drain = %v", again)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing(100)
	for i := 0; i < 150; i++ {
		r.Append(fmt.Sprintf("line %d", i))
	}
	got := r.Drain()
	if len(got) != 100 {
		t.Fatalf("drained %d lines", len(got))
	}
	if got[0] != "line 50" || got[99] != "line 149" {
		t.Fatalf("kept window = [%s .. %s]", got[0], got[99])
	}
}

func TestRingWrapAfterDrain(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 6; i++ {
		r.Append(fmt.Sprintf("%d", i))
	}
	r.Drain()
	r.Append("x")
	r.Append("y")
	got := r.Drain()
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("drained = %v", got)
	}
}
