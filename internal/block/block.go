// Package block implements the Block record: an (operation, condition,
// data) triple that the query evaluator tests and, in the compensation
// case, synthesizes fresh instances of.
package block

import (
	"github.com/xforge-build/xforge/internal/condition"
	"github.com/xforge-build/xforge/internal/field"
)

// Op is a block's declared operation.
type Op int

const (
	// Add merges Data into the accumulated values.
	Add Op = iota
	// Remove subtracts Data's patterns from the accumulated values.
	Remove
)

func (o Op) String() string {
	if o == Remove {
		return "remove"
	}
	return "add"
}

// Block is immutable once constructed; Receive returns mutation through
// Data only (the evaluator uses it to grow a synthetic compensation block
// one field at a time, never to mutate a block already in source_blocks).
type Block struct {
	Op        Op
	Condition *condition.Condition
	Data      map[*field.Field]any
}

// New constructs a Block. A nil data map is normalized to an empty one so
// Receive never has to special-case it.
func New(op Op, cond *condition.Condition, data map[*field.Field]any) *Block {
	if data == nil {
		data = make(map[*field.Field]any)
	}
	if cond == nil {
		cond = condition.Unconditional()
	}
	return &Block{Op: op, Condition: cond, Data: data}
}

// Receive appends a single value into b.Data[f], merging with whatever the
// field already holds there using f's own merge semantics. This is how the
// evaluator grows a synthetic compensation block's contents field by field,
// value by value, per spec.md §4.4 step 3b.
func (b *Block) Receive(f *field.Field, value any) {
	b.Data[f] = field.Merge(f, b.Data[f], value)
}
