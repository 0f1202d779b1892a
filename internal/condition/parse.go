package condition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xforge-build/xforge/internal/field"
)

// BadConditionError is returned for an unparseable pattern string or a
// positional clause with no default field to retarget to.
type BadConditionError struct {
	Detail string
}

func (e *BadConditionError) Error() string {
	return fmt.Sprintf("bad condition: %s", e.Detail)
}

// Clauses is the parser's input shape: field_name → pattern_string pairs
// (ANDed together), plus optional positional pattern strings that carry no
// field key of their own (e.g. a "when" clause given as a bare string) and
// must either embed "otherfield:pattern" or fall back to DefaultField.
type Clauses struct {
	Named        map[string]string
	Positional   []string
	DefaultField string
}

// New parses clauses into a Condition tree against reg, registering every
// field referenced in a MATCH leaf into tested. An unregistered field name
// propagates reg's *field.UnknownFieldError unchanged; a positional clause
// with no field prefix and no DefaultField, or any other grammar violation,
// fails with *BadConditionError.
func New(reg *field.Registry, tested *FieldSet, clauses Clauses) (*Condition, error) {
	var parts []*Condition

	names := make([]string, 0, len(clauses.Named))
	for name := range clauses.Named {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c, err := parseClause(reg, tested, clauses.Named[name], name)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}

	for _, pat := range clauses.Positional {
		c, err := parseClause(reg, tested, pat, clauses.DefaultField)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}

	switch len(parts) {
	case 0:
		return Unconditional(), nil
	case 1:
		return parts[0], nil
	default:
		return And(parts...), nil
	}
}

// parseClause parses one "<a> or <b> or …" pattern string, where each
// or_term is "not <atom>" or "<atom>", and each atom is
// "[field_name:]literal". defaultField supplies the field for atoms with no
// explicit "field_name:" prefix.
func parseClause(reg *field.Registry, tested *FieldSet, pattern, defaultField string) (*Condition, error) {
	terms := strings.Split(pattern, " or ")
	leaves := make([]*Condition, 0, len(terms))

	for _, raw := range terms {
		term := strings.TrimSpace(raw)
		negate := false
		if rest, ok := cutPrefix(term, "not "); ok {
			negate = true
			term = strings.TrimSpace(rest)
		}

		fieldName, literal := splitAtom(term, defaultField)
		if fieldName == "" {
			return nil, &BadConditionError{Detail: fmt.Sprintf("positional clause %q has no default field to retarget to", term)}
		}

		f, err := reg.Get(fieldName)
		if err != nil {
			return nil, err
		}
		tested.Add(f)

		leaf := matchLeaf(f, literal)
		if negate {
			leaf = Not(leaf)
		}
		leaves = append(leaves, leaf)
	}

	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return Or(leaves...), nil
}

// splitAtom splits "field_name:literal" on the first colon. An atom with no
// colon uses defaultField as its field.
func splitAtom(atom, defaultField string) (fieldName, literal string) {
	if idx := strings.Index(atom, ":"); idx >= 0 {
		return atom[:idx], atom[idx+1:]
	}
	return defaultField, atom
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
