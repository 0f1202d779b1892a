// Package script is the script-ingestion layer spec.md calls an "external
// collaborator": it loads a YAML document describing a set of fields, a
// target/global scope chain, and an ordered list of ADD/REMOVE blocks, and
// compiles it into the []block.Block list plus the field.Chain values
// internal/query.Evaluate consumes.
package script

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/xforge-build/xforge/internal/block"
	"github.com/xforge-build/xforge/internal/condition"
	"github.com/xforge-build/xforge/internal/field"
	"github.com/xforge-build/xforge/internal/pathutil"
)

// fieldKindNames maps the YAML kind string to a field.Kind.
var fieldKindNames = map[string]field.Kind{
	"list":     field.List,
	"set":      field.Set,
	"scalar":   field.Scalar,
	"pathset":  field.PathSet,
	"path-set": field.PathSet,
}

// rawDocument mirrors the YAML shape of a script file.
type rawDocument struct {
	Fields       []rawField           `yaml:"fields"`
	TargetScopes []map[string]string  `yaml:"target_scopes"`
	GlobalScopes []map[string]string  `yaml:"global_scopes"`
	GlobalRoot   []map[string]string  `yaml:"global_root"`
	Initial      map[string][]string  `yaml:"initial_values"`
	Blocks       []rawBlock           `yaml:"blocks"`
}

type rawField struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	IsScope bool   `yaml:"is_scope"`
}

type rawBlock struct {
	Op   string              `yaml:"op"`
	When string              `yaml:"when"`
	Data map[string][]string `yaml:"data"`
}

// Document is the compiled result of loading a script: the blocks and
// scope chains ready to hand to query.Query, plus the registry the blocks
// were compiled against (callers need it to look up field handles for
// their own target/initial-value construction).
type Document struct {
	Registry      *field.Registry
	Tested        *condition.FieldSet
	Blocks        []*block.Block
	TargetScopes  field.Chain
	GlobalScopes  field.Chain
	GlobalRoot    field.Chain
	InitialValues field.Values
}

// Load parses a YAML script document against a fresh field registry.
// root is the project root that PathSet field values are resolved against
// (via pathutil.ResolvePathSetEntry); script-declared paths outside root
// are rejected.
func Load(data []byte, root string) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	reg := field.NewRegistry()
	tested := condition.NewFieldSet()

	for _, rf := range raw.Fields {
		kind, ok := fieldKindNames[rf.Kind]
		if !ok {
			return nil, fmt.Errorf("script: field %q has unknown kind %q", rf.Name, rf.Kind)
		}
		if _, err := reg.Register(rf.Name, kind, rf.IsScope); err != nil {
			return nil, fmt.Errorf("script: %w", err)
		}
	}

	targetScopes, err := compileScopes(reg, raw.TargetScopes)
	if err != nil {
		return nil, fmt.Errorf("script: target_scopes: %w", err)
	}
	globalScopes, err := compileScopes(reg, raw.GlobalScopes)
	if err != nil {
		return nil, fmt.Errorf("script: global_scopes: %w", err)
	}
	globalRoot, err := compileScopes(reg, raw.GlobalRoot)
	if err != nil {
		return nil, fmt.Errorf("script: global_root: %w", err)
	}

	initial, err := compileValues(reg, root, raw.Initial)
	if err != nil {
		return nil, fmt.Errorf("script: initial_values: %w", err)
	}

	blocks := make([]*block.Block, 0, len(raw.Blocks))
	for i, rb := range raw.Blocks {
		b, err := compileBlock(reg, tested, root, rb)
		if err != nil {
			return nil, fmt.Errorf("script: block %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}

	return &Document{
		Registry:      reg,
		Tested:        tested,
		Blocks:        blocks,
		TargetScopes:  targetScopes,
		GlobalScopes:  globalScopes,
		GlobalRoot:    globalRoot,
		InitialValues: initial,
	}, nil
}

func compileScopes(reg *field.Registry, layers []map[string]string) (field.Chain, error) {
	chain := make(field.Chain, 0, len(layers))
	for _, layer := range layers {
		scope := field.Scope{}
		for name, value := range layer {
			f, err := reg.Get(name)
			if err != nil {
				return nil, err
			}
			scope[f] = value
		}
		chain = append(chain, scope)
	}
	return chain, nil
}

func compileValues(reg *field.Registry, root string, raw map[string][]string) (field.Values, error) {
	values := field.Values{}
	for name, vs := range raw {
		f, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		resolved, err := resolveValues(f, root, vs)
		if err != nil {
			return nil, err
		}
		for _, v := range resolved {
			values[f] = field.Merge(f, values[f], v)
		}
	}
	return values, nil
}

func compileBlock(reg *field.Registry, tested *condition.FieldSet, root string, rb rawBlock) (*block.Block, error) {
	op, err := parseOp(rb.Op)
	if err != nil {
		return nil, err
	}

	var cond *condition.Condition
	if rb.When == "" {
		cond = condition.Unconditional()
	} else {
		cond, err = condition.New(reg, tested, condition.Clauses{Positional: []string{rb.When}})
		if err != nil {
			return nil, err
		}
	}

	data := make(map[*field.Field]any, len(rb.Data))
	for name, vs := range rb.Data {
		f, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		resolved, err := resolveValues(f, root, vs)
		if err != nil {
			return nil, err
		}
		for _, v := range resolved {
			data[f] = field.Merge(f, data[f], v)
		}
	}

	return block.New(op, cond, data), nil
}

func resolveValues(f *field.Field, root string, vs []string) ([]string, error) {
	if f.Kind() != field.PathSet {
		return vs, nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		rel, err := pathutil.ResolvePathSetEntry(root, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name(), err)
		}
		out = append(out, rel)
	}
	return out, nil
}

func parseOp(s string) (block.Op, error) {
	switch s {
	case "add":
		return block.Add, nil
	case "remove":
		return block.Remove, nil
	default:
		return 0, fmt.Errorf("unknown block op %q (want \"add\" or \"remove\")", s)
	}
}
