package script

import (
	"testing"

	"github.com/xforge-build/xforge/internal/block"
)

const sampleScript = `
fields:
  - name: workspaces
    kind: scalar
    is_scope: true
  - name: projects
    kind: scalar
    is_scope: true
  - name: configurations
    kind: scalar
    is_scope: true
  - name: defines
    kind: list
  - name: includedirs
    kind: pathset

target_scopes:
  - {workspaces: W1}
  - {workspaces: W1, projects: P1}
  - {workspaces: W1, projects: P1, configurations: Debug}

global_scopes:
  - {workspaces: W1}
  - {workspaces: W1, projects: P1}
  - {workspaces: W1, projects: P1, configurations: Debug}
  - {workspaces: W1, projects: P1, configurations: Release}

blocks:
  - op: add
    data:
      defines: ["GLOBAL"]
  - op: add
    when: "configurations:Debug"
    data:
      defines: ["DEBUG"]
      includedirs: ["include/debug"]
  - op: remove
    when: "configurations:Release"
    data:
      defines: ["GLOBAL"]
`

func TestLoad_CompilesFieldsAndBlocks(t *testing.T) {
	doc, err := Load([]byte(sampleScript), "/project")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(doc.Blocks) != 3 {
		t.Fatalf("len(Blocks) = %d, want 3", len(doc.Blocks))
	}
	if doc.Blocks[0].Op != block.Add {
		t.Errorf("Blocks[0].Op = %v, want Add", doc.Blocks[0].Op)
	}
	if doc.Blocks[2].Op != block.Remove {
		t.Errorf("Blocks[2].Op = %v, want Remove", doc.Blocks[2].Op)
	}

	if len(doc.TargetScopes) != 3 {
		t.Errorf("len(TargetScopes) = %d, want 3", len(doc.TargetScopes))
	}
	if len(doc.GlobalScopes) != 4 {
		t.Errorf("len(GlobalScopes) = %d, want 4", len(doc.GlobalScopes))
	}
}

func TestLoad_ResolvesPathSetRelativeToRoot(t *testing.T) {
	doc, err := Load([]byte(sampleScript), "/project")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	includedirs, err := doc.Registry.Get("includedirs")
	if err != nil {
		t.Fatalf("Get(includedirs) error = %v", err)
	}

	got := doc.Blocks[1].Data[includedirs]
	want := []string{"include/debug"}
	gotSlice, ok := got.([]string)
	if !ok || len(gotSlice) != 1 || gotSlice[0] != want[0] {
		t.Errorf("includedirs data = %v, want %v", got, want)
	}
}

func TestLoad_RejectsPathOutsideRoot(t *testing.T) {
	bad := `
fields:
  - name: includedirs
    kind: pathset
blocks:
  - op: add
    data:
      includedirs: ["../outside"]
`
	if _, err := Load([]byte(bad), "/project"); err == nil {
		t.Error("Load() should reject a path-set entry that escapes root")
	}
}

func TestLoad_UnknownFieldInBlockData(t *testing.T) {
	bad := `
fields:
  - name: defines
    kind: list
blocks:
  - op: add
    data:
      undeclared: ["X"]
`
	if _, err := Load([]byte(bad), "/project"); err == nil {
		t.Error("Load() should fail on a reference to an unregistered field")
	}
}

func TestLoad_UnknownBlockOp(t *testing.T) {
	bad := `
fields:
  - name: defines
    kind: list
blocks:
  - op: frobnicate
    data:
      defines: ["X"]
`
	if _, err := Load([]byte(bad), "/project"); err == nil {
		t.Error("Load() should fail on an unrecognized block op")
	}
}
