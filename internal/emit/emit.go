// Package emit provides the thin accumulator outside the query evaluator
// core: it replays an Evaluate result into a final field -> value map,
// ready for an IDE-specific project-file emitter (which stays out of
// scope; emit stops at the map).
package emit

import (
	"sort"

	"github.com/xforge-build/xforge/internal/block"
	"github.com/xforge-build/xforge/internal/field"
)

// Accumulator replays a decided block list into a field.Values map.
type Accumulator struct {
	values field.Values
}

// NewAccumulator creates an accumulator seeded with initial values (nil is fine).
func NewAccumulator(initial field.Values) *Accumulator {
	return &Accumulator{values: initial.Clone()}
}

// Apply folds blocks (as returned by query.Evaluate — every block carries
// an unconditional condition, so no further condition test is needed) into
// the accumulator in order, merging ADD data and removing REMOVE data per
// each field's kind.
func (a *Accumulator) Apply(blocks []*block.Block) {
	for _, b := range blocks {
		for f, v := range b.Data {
			if b.Op == block.Add {
				a.values[f] = field.Merge(f, a.values[f], v)
			} else {
				reduced, _ := field.Remove(f, a.values[f], field.ValueStrings(v))
				a.values[f] = reduced
			}
		}
	}
}

// Values returns the accumulated field -> value map.
func (a *Accumulator) Values() field.Values {
	return a.values
}

// FieldValue returns the current accumulated value for a single field.
func (a *Accumulator) FieldValue(f *field.Field) any {
	return a.values[f]
}

// Snapshot is a stable, sorted rendering of the accumulated values, keyed
// by field name, for CLI output and test assertions.
type Snapshot struct {
	Field *field.Field
	Value any
}

// Sorted returns the accumulated values as a slice sorted by field name,
// so CLI output and test assertions have a deterministic order.
func (a *Accumulator) Sorted() []Snapshot {
	out := make([]Snapshot, 0, len(a.values))
	for f, v := range a.values {
		out = append(out, Snapshot{Field: f, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Field.Name() < out[j].Field.Name()
	})
	return out
}
