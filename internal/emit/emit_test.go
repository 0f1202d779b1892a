package emit

import (
	"testing"

	"github.com/xforge-build/xforge/internal/block"
	"github.com/xforge-build/xforge/internal/condition"
	"github.com/xforge-build/xforge/internal/field"
)

func TestAccumulator_ApplyAddAndRemove(t *testing.T) {
	reg := field.NewRegistry()
	defines, _ := reg.Register("defines", field.List, false)

	acc := NewAccumulator(nil)

	add := block.New(block.Add, condition.Unconditional(), map[*field.Field]any{
		defines: []string{"DEBUG", "FOO"},
	})
	acc.Apply([]*block.Block{add})

	got := acc.FieldValue(defines)
	want := []string{"DEBUG", "FOO"}
	if !equalStrings(got.([]string), want) {
		t.Errorf("after add: got %v, want %v", got, want)
	}

	remove := block.New(block.Remove, condition.Unconditional(), map[*field.Field]any{
		defines: "FOO",
	})
	acc.Apply([]*block.Block{remove})

	got = acc.FieldValue(defines)
	want = []string{"DEBUG"}
	if !equalStrings(got.([]string), want) {
		t.Errorf("after remove: got %v, want %v", got, want)
	}
}

func TestAccumulator_Sorted(t *testing.T) {
	reg := field.NewRegistry()
	zField, _ := reg.Register("zfield", field.Scalar, false)
	aField, _ := reg.Register("afield", field.Scalar, false)

	acc := NewAccumulator(nil)
	acc.Apply([]*block.Block{
		block.New(block.Add, condition.Unconditional(), map[*field.Field]any{
			zField: "z",
			aField: "a",
		}),
	})

	snaps := acc.Sorted()
	if len(snaps) != 2 {
		t.Fatalf("len(snaps) = %d, want 2", len(snaps))
	}
	if snaps[0].Field.Name() != "afield" || snaps[1].Field.Name() != "zfield" {
		t.Errorf("Sorted() order = [%s, %s], want [afield, zfield]", snaps[0].Field.Name(), snaps[1].Field.Name())
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
