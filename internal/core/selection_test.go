package core

import (
	"errors"
	"sync"
	"testing"
)

func TestSelectionToggleOrderAndClear(t *testing.T) {
	s := NewSelection("a", "b", "a")
	if s.Len() != 2 {
		t.Fatalf("duplicates should be ignored, got %v", s.IDs())
	}
	if s.Toggle("c") != true || s.Toggle("a") != false {
		t.Fatalf("toggle return values wrong")
	}
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Fatalf("unexpected order %v", ids)
	}
	if !s.Contains("c") || s.Contains("a") {
		t.Fatalf("contains wrong")
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty selection")
	}
}

func TestSelectionConcurrentToggle(t *testing.T) {
	s := NewSelection()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle("x")
		}()
	}
	wg.Wait()
	if s.Len() != 0 {
		t.Fatalf("even number of toggles should leave x unselected")
	}
}

func TestBulkResultCounts(t *testing.T) {
	r := BulkResult{Outcomes: []BulkOutcome{{ID: "a"}, {ID: "b", Err: errors.New("x")}, {ID: "c"}}}
	if r.Succeeded() != 2 || len(r.Failed()) != 1 || r.Failed()[0].ID != "b" {
		t.Fatalf("unexpected counts: %d %+v", r.Succeeded(), r.Failed())
	}
}
