package condition

import (
	"sort"
	"sync"

	"github.com/xforge-build/xforge/internal/field"
)

// FieldSet is the grow-only registry of "every field that has ever
// appeared in a MATCH leaf" — spec.md's all_fields_tested. The query
// evaluator reads it as an optimization hint: a field no condition tests
// can't influence any future decision, so its contributions to
// target_values/global_values can be skipped. Safe for concurrent use, but
// real usage populates it during a parse phase and only reads it during
// evaluation (spec.md §5).
type FieldSet struct {
	mu sync.RWMutex
	m  map[*field.Field]bool
}

// NewFieldSet returns an empty set.
func NewFieldSet() *FieldSet {
	return &FieldSet{m: make(map[*field.Field]bool)}
}

// Add records f as tested.
func (s *FieldSet) Add(f *field.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[f] = true
}

// AddAll records every field in fs as tested.
func (s *FieldSet) AddAll(fs []*field.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fs {
		s.m[f] = true
	}
}

// Has reports whether f has ever been tested.
func (s *FieldSet) Has(f *field.Field) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[f]
}

// Slice returns the tested fields, sorted by name for deterministic output.
func (s *FieldSet) Slice() []*field.Field {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*field.Field, 0, len(s.m))
	for f := range s.m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
