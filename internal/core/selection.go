package core

import "sync"

// Selection is the ephemeral, ordered set of grant ids chosen for a bulk
// operation. It is never persisted.
type Selection struct {
	mu  sync.Mutex
	ids []string
}

// NewSelection returns a selection holding ids, ignoring duplicates.
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		if !s.Contains(id) {
			s.Toggle(id)
		}
	}
	return s
}

// Toggle adds id if absent, otherwise removes it. Returns true when id is
// selected afterwards.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.ids {
		if cur == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.ids {
		if cur == id {
			return true
		}
	}
	return false
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

// BulkOutcome is the result of one transition inside a bulk operation.
type BulkOutcome struct {
	ID         string
	Grant      Grant
	Changed    bool
	Celebrated bool
	Err        error
}

// BulkResult collects per-record outcomes in selection order.
type BulkResult struct {
	Target   Stage
	Outcomes []BulkOutcome
	Result   Result
}

// Succeeded returns the number of records that reached the target.
func (r BulkResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that carry an error.
func (r BulkResult) Failed() []BulkOutcome {
	var out []BulkOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}
