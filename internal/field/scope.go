package field

// Values is a field → value map, keyed by interned Field handles (never
// raw strings, per spec.md §6). It backs both the "values" accumulator
// maps (target_values/global_values) and a single scope layer.
type Values map[*Field]any

// Clone returns a shallow copy, so evaluators can mutate one map per step
// without aliasing the caller's.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for f, val := range v {
		out[f] = val
	}
	return out
}

// Scope is one layer of the scope chain — e.g. {workspaces: "W1"} or
// {projects: "P2"}. Scope fields (IsScope() == true) are resolved against
// the scope chain rather than the values map; see Condition evaluation in
// spec.md §4.2.
type Scope map[*Field]any

// Chain is an ordered list of scopes from root to target, per spec.md's
// "Scope chain" glossary entry.
type Chain []Scope

// Keys returns the fields set in this scope layer, used by
// MatchesScopeAndValues to check that a condition tests every field a
// scope layer constrains (spec.md §4.2).
func (s Scope) Keys() []*Field {
	out := make([]*Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	return out
}
