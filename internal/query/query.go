// Package query implements the fixed-point block evaluation algorithm: the
// heart of the configuration engine. Evaluate walks an ordered list of
// conditional ADD/REMOVE blocks against a target scope and its full
// potential inheritance, deciding which blocks apply and synthesizing
// compensating ADD blocks wherever a REMOVE would otherwise leak a removal
// across sibling scopes.
package query

import (
	"fmt"

	"github.com/xforge-build/xforge/internal/block"
	"github.com/xforge-build/xforge/internal/condition"
	"github.com/xforge-build/xforge/internal/field"
)

// Op is a per-scope block decision.
type Op int

const (
	// Unknown means "not yet decided; may become terminal on a later pass."
	Unknown Op = iota
	Add
	Remove
	// OutOfScope is terminal: this block never applies at this scope.
	OutOfScope
)

func (o Op) String() string {
	switch o {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case OutOfScope:
		return "out-of-scope"
	default:
		return "unknown"
	}
}

// BlockResult is the transient per-block decision record the main loop
// carries. Source points at the block.Block this result decides — either
// one from Query.SourceBlocks, or a synthetic compensation block built
// during evaluation.
type BlockResult struct {
	TargetOp  Op
	GlobalOp  Op
	Source    *block.Block
	Synthetic bool
}

// Query bundles the inputs Evaluate needs: the ordered block list, the two
// scope chains (target — the restricted inheritance the caller asked for —
// and global — the full potential lineage), and any pre-seeded values.
//
// GlobalRoot is the optional from_scopes(global_root) override: when set,
// it is prepended to GlobalScopes, widening the global chain to include
// scopes above the query's own initial selection.
type Query struct {
	SourceBlocks  []*block.Block
	TargetScopes  field.Chain
	GlobalScopes  field.Chain
	InitialValues field.Values
	GlobalRoot    field.Chain
}

// ErrInvariant is panicked when the evaluator reaches a block-operation
// value the decision table in testBlock does not cover — a programming
// bug, not a user-facing error, per the error-handling design.
type ErrInvariant struct {
	Detail string
}

func (e ErrInvariant) Error() string {
	return fmt.Sprintf("query: invariant violation: %s", e.Detail)
}

// Evaluate runs the fixed-point algorithm and returns the ordered,
// additive-output block list: only ADD/REMOVE decisions at the target
// scope survive, each as a fresh Block carrying an unconditional condition
// and the deciding source data. Synthetic compensation blocks take the
// position of the REMOVE they offset, so source order is preserved.
//
// The second return value carries one BlockResult per surviving block, in
// the same order, so a caller building a decision trace (internal/xlog's
// EvalTraceLogger) can log the real TargetOp/GlobalOp testBlock reached
// and whether the block is a synthesized compensation rather than one from
// Query.SourceBlocks.
func Evaluate(q *Query, tested *condition.FieldSet) ([]*block.Block, []*BlockResult) {
	results := make([]*BlockResult, len(q.SourceBlocks))
	for idx, b := range q.SourceBlocks {
		results[idx] = &BlockResult{TargetOp: Unknown, GlobalOp: Unknown, Source: b}
	}

	globalScopes := q.GlobalScopes
	if len(q.GlobalRoot) > 0 {
		combined := make(field.Chain, 0, len(q.GlobalRoot)+len(q.GlobalScopes))
		combined = append(combined, q.GlobalRoot...)
		combined = append(combined, q.GlobalScopes...)
		globalScopes = combined
	}

	targetValues := q.InitialValues.Clone()
	globalValues := q.InitialValues.Clone()

	i := 0
	for i < len(results) {
		r := results[i]
		if r.GlobalOp != Unknown {
			i++
			continue
		}

		globalOp, targetOp := testBlock(r.Source, globalScopes, globalValues, q.TargetScopes, targetValues)

		switch {
		case targetOp == Add && globalOp == Remove:
			r.TargetOp = OutOfScope
			synthetic := compensationBlock(r.Source, results[:i], targetValues)
			results = insertResult(results, i, &BlockResult{TargetOp: Add, GlobalOp: OutOfScope, Source: synthetic, Synthetic: true})
			mergeInto(targetValues, synthetic.Data, block.Add, tested)
		case targetOp == Add || targetOp == Remove:
			r.TargetOp = targetOp
			mergeInto(targetValues, r.Source.Data, opToBlockOp(targetOp), tested)
		}

		if globalOp == Add || globalOp == Remove {
			r.GlobalOp = globalOp
			mergeInto(globalValues, r.Source.Data, opToBlockOp(globalOp), tested)
			i = 0
		} else {
			i++
		}
	}

	out := make([]*block.Block, 0, len(results))
	decisions := make([]*BlockResult, 0, len(results))
	for _, r := range results {
		switch r.TargetOp {
		case Add:
			out = append(out, block.New(block.Add, condition.Unconditional(), cloneData(r.Source.Data)))
			decisions = append(decisions, r)
		case Remove:
			out = append(out, block.New(block.Remove, condition.Unconditional(), cloneData(r.Source.Data)))
			decisions = append(decisions, r)
		}
	}
	return out, decisions
}

// testBlock is the decision table from spec.md §4.5. The REMOVE branch
// calls Condition.HasConflictingValues twice with a deliberately different
// argument shape each time: first against a single synthetic scope built
// from global_values itself ("could any potential parent or sibling still
// match?"), then against the real global scope chain ("is the target's
// direct lineage compatible?"). Both calls matter; collapsing them to one
// shape breaks sibling-vs-lineage disambiguation.
func testBlock(b *block.Block, globalScopes field.Chain, globalValues field.Values, targetScopes field.Chain, targetValues field.Values) (globalOp, targetOp Op) {
	switch b.Op {
	case block.Add:
		if _, ok := b.Condition.MatchesScopeAndValues(globalValues, globalScopes, true); !ok {
			return Unknown, Unknown
		}
		if _, ok := b.Condition.MatchesScopeAndValues(targetValues, targetScopes, true); !ok {
			return Add, Unknown
		}
		return Add, Add
	case block.Remove:
		selfScope := field.Chain{field.Scope(globalValues)}
		if b.Condition.HasConflictingValues(selfScope, globalValues) {
			return Unknown, Unknown
		}
		if !b.Condition.HasConflictingValues(globalScopes, globalValues) {
			return Remove, Remove
		}
		return Remove, Add
	default:
		panic(ErrInvariant{Detail: fmt.Sprintf("unrecognized block operation %v", b.Op)})
	}
}

// compensationBlock builds the synthetic ADD block for the "REMOVE applies
// to a sibling, not us" case (spec.md §4.4 step 3b): for each field the
// out-of-scope REMOVE touched, reconstruct that field's current global
// value from the already-decided results, figure out which concrete
// values the REMOVE would have taken out, and re-add whichever of those
// aren't already present in target_values.
func compensationBlock(removed *block.Block, decided []*BlockResult, targetValues field.Values) *block.Block {
	n := block.New(block.Add, condition.Unconditional(), nil)
	for f, patterns := range removed.Data {
		current := fetchField(f, decided)
		_, removedValues := field.Remove(f, current, field.ValueStrings(patterns))
		for _, v := range removedValues {
			if !field.Contains(f, targetValues[f], v) {
				n.Receive(f, v)
			}
		}
	}
	return n
}

// fetchField reconstructs one field's value by replaying every
// already-decided result's global_op against an empty accumulator — the
// single-field fetch helper from spec.md §4.6. It deliberately ignores
// global_values (which is filtered to all_fields_tested) because it needs
// f's contribution even when nothing else tests f.
func fetchField(f *field.Field, decided []*BlockResult) any {
	var acc any
	for _, r := range decided {
		if r.GlobalOp != Add && r.GlobalOp != Remove {
			continue
		}
		raw, ok := r.Source.Data[f]
		if !ok {
			continue
		}
		if r.GlobalOp == Add {
			acc = field.Merge(f, acc, raw)
		} else {
			acc, _ = field.Remove(f, acc, field.ValueStrings(raw))
		}
	}
	return acc
}

func mergeInto(values field.Values, data map[*field.Field]any, op block.Op, tested *condition.FieldSet) {
	for f, v := range data {
		if !tested.Has(f) {
			continue
		}
		if op == block.Add {
			values[f] = field.Merge(f, values[f], v)
		} else {
			reduced, _ := field.Remove(f, values[f], field.ValueStrings(v))
			values[f] = reduced
		}
	}
}

func opToBlockOp(o Op) block.Op {
	if o == Remove {
		return block.Remove
	}
	return block.Add
}

func cloneData(data map[*field.Field]any) map[*field.Field]any {
	out := make(map[*field.Field]any, len(data))
	for f, v := range data {
		out[f] = v
	}
	return out
}

func insertResult(s []*BlockResult, idx int, v *BlockResult) []*BlockResult {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}
