package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cache.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	if a != b {
		t.Errorf("ContentHash should be deterministic: %q != %q", a, b)
	}

	c := ContentHash([]byte("world"))
	if a == c {
		t.Error("ContentHash should differ for different inputs")
	}
}

func TestCompiledScriptCache_RoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	hash := ContentHash([]byte("workspace: W1"))

	_, found, err := s.GetCompiledScript(ctx, hash)
	if err != nil {
		t.Fatalf("GetCompiledScript() error = %v", err)
	}
	if found {
		t.Fatal("expected cache miss before any write")
	}

	if err := s.PutCompiledScript(ctx, hash, `{"blocks":[]}`); err != nil {
		t.Fatalf("PutCompiledScript() error = %v", err)
	}

	got, found, err := s.GetCompiledScript(ctx, hash)
	if err != nil {
		t.Fatalf("GetCompiledScript() error = %v", err)
	}
	if !found {
		t.Fatal("expected cache hit after write")
	}
	if got != `{"blocks":[]}` {
		t.Errorf("GetCompiledScript() = %q, want %q", got, `{"blocks":[]}`)
	}
}

func TestQueryResultCache_InvalidateByScriptHash(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	scriptHash := ContentHash([]byte("workspace: W1"))
	queryKey := ContentHash([]byte(scriptHash + "|P1|config:Debug"))

	if err := s.PutQueryResult(ctx, queryKey, scriptHash, `{"defines":["DEBUG"]}`); err != nil {
		t.Fatalf("PutQueryResult() error = %v", err)
	}

	got, found, err := s.GetQueryResult(ctx, queryKey)
	if err != nil || !found {
		t.Fatalf("GetQueryResult() = %q, %v, %v", got, found, err)
	}

	if err := s.Invalidate(ctx, scriptHash); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	_, found, err = s.GetQueryResult(ctx, queryKey)
	if err != nil {
		t.Fatalf("GetQueryResult() after invalidate error = %v", err)
	}
	if found {
		t.Error("expected cache miss after invalidating the originating script")
	}
}
