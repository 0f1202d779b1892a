// Package condition implements the parsed Boolean condition tree that
// Block.Condition carries: a small tagged-variant AST of MATCH leaves and
// AND/OR/NOT internal nodes, evaluated against a values map and a scope (or
// scope chain) with the nil-wildcard policy the query evaluator depends on.
package condition

import (
	"github.com/xforge-build/xforge/internal/field"
)

type kind int

const (
	kindMatch kind = iota
	kindAnd
	kindOr
	kindNot
)

// Condition is a node in the tree. Leaves (kindMatch) carry field/pattern;
// internal nodes carry children. An AND with zero children is the
// unconditional condition — it matches everything, per spec.
type Condition struct {
	kind     kind
	field    *field.Field
	pattern  string
	children []*Condition
}

// matchLeaf builds a MATCH(field, pattern) leaf.
func matchLeaf(f *field.Field, pattern string) *Condition {
	return &Condition{kind: kindMatch, field: f, pattern: pattern}
}

// And combines children conjunctively. Zero children is the unconditional
// condition (vacuous truth).
func And(children ...*Condition) *Condition {
	return &Condition{kind: kindAnd, children: children}
}

// Or combines children disjunctively.
func Or(children ...*Condition) *Condition {
	return &Condition{kind: kindOr, children: children}
}

// Not negates a single child.
func Not(child *Condition) *Condition {
	return &Condition{kind: kindNot, children: []*Condition{child}}
}

// Unconditional returns the empty condition that matches everything.
func Unconditional() *Condition {
	return And()
}

// FieldsTested returns the set of fields appearing in any MATCH leaf under
// this condition, deduplicated, in first-seen order.
func (c *Condition) FieldsTested() []*field.Field {
	if c == nil {
		return nil
	}
	seen := make(map[*field.Field]bool)
	var out []*field.Field
	var walk func(n *Condition)
	walk = func(n *Condition) {
		if n == nil {
			return
		}
		if n.kind == kindMatch {
			if !seen[n.field] {
				seen[n.field] = true
				out = append(out, n.field)
			}
			return
		}
		for _, ch := range n.children {
			walk(ch)
		}
	}
	walk(c)
	return out
}

func (c *Condition) testsField(f *field.Field) bool {
	for _, tf := range c.FieldsTested() {
		if tf == f {
			return true
		}
	}
	return false
}

// MatchesValues evaluates the condition against a single values map and an
// optional scope layer. When a MATCH leaf's field is missing from the
// relevant map, the result is matchOnNil — the nil-wildcard policy spec.md
// calls NIL_MATCHES_ANY when true.
func (c *Condition) MatchesValues(values field.Values, scope field.Scope, matchOnNil bool) bool {
	if c == nil {
		return true
	}
	switch c.kind {
	case kindMatch:
		var tv any
		var ok bool
		if c.field.IsScope() && scope != nil {
			tv, ok = scope[c.field]
		} else {
			tv, ok = values[c.field]
		}
		if !ok {
			return matchOnNil
		}
		return field.Matches(c.field, tv, c.pattern, true)
	case kindAnd:
		for _, ch := range c.children {
			if !ch.MatchesValues(values, scope, matchOnNil) {
				return false
			}
		}
		return true
	case kindOr:
		for _, ch := range c.children {
			if ch.MatchesValues(values, scope, matchOnNil) {
				return true
			}
		}
		return false
	case kindNot:
		return !c.children[0].MatchesValues(values, scope, matchOnNil)
	default:
		return matchOnNil
	}
}

// MatchesScopeAndValues walks scopes in order and returns the index of the
// first one the condition is compatible with. A scope layer is skipped
// entirely unless every field it constrains is among this condition's
// tested fields — an untested scope field can't be ruled in or out, so
// treating it as a match would be a false positive.
func (c *Condition) MatchesScopeAndValues(values field.Values, scopes field.Chain, matchOnNil bool) (int, bool) {
	for idx, scope := range scopes {
		covered := true
		for _, f := range scope.Keys() {
			if !c.testsField(f) {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}
		if c.MatchesValues(values, scope, matchOnNil) {
			return idx, true
		}
	}
	return -1, false
}

// HasConflictingValues reports whether every scope in scopes is
// incompatible with the condition (matchOnNil is fixed to true — absence of
// data is a wildcard, so only an explicit contradiction counts as a
// conflict). Vacuously true for an empty scope list: no scope exists to be
// compatible.
func (c *Condition) HasConflictingValues(scopes field.Chain, values field.Values) bool {
	for _, scope := range scopes {
		if c.MatchesValues(values, scope, true) {
			return false
		}
	}
	return true
}
