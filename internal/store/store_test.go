package store

import (
	"context"
	"bytes"
	"path/filepath"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "ds1", "documents", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	data, err := s.Get(ctx, "ds1", "documents")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("got %q", data)
	}

	if _, err := s.Get(ctx, "ds1", "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "other", "documents"); err != ErrNotFound {
		t.Errorf("namespaces should be isolated, got %v", err)
	}
}

func TestMemoryStoreOverwriteAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, "ns", "k", []byte("one"))
	_ = s.Put(ctx, "ns", "k", []byte("two"))
	data, _ := s.Get(ctx, "ns", "k")
	if string(data) != "two" {
		t.Errorf("put should overwrite, got %q", data)
	}

	if err := s.Delete(ctx, "ns", "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "ns", "k"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Put(ctx, "ns", "b", []byte("2"))
	_ = s.Put(ctx, "ns", "a", []byte("1"))

	keys, err := s.List(ctx, "ns")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected sorted keys [a b], got %v", keys)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chizu.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, "ds1", "vectors", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	data, err := s.Get(ctx, "ds1", "vectors")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("got %v", data)
	}

	// Upsert replaces.
	if err := s.Put(ctx, "ds1", "vectors", []byte{9}); err != nil {
		t.Fatal(err)
	}
	data, _ = s.Get(ctx, "ds1", "vectors")
	if !bytes.Equal(data, []byte{9}) {
		t.Errorf("upsert should replace, got %v", data)
	}

	if _, err := s.Get(ctx, "ds1", "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	keys, err := s.List(ctx, "ds1")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "vectors" {
		t.Errorf("got %v", keys)
	}

	if err := s.Delete(ctx, "ds1", "vectors"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "ds1", "vectors"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chizu.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "ns", "k", []byte("persist")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	data, err := s2.Get(ctx, "ns", "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "persist" {
		t.Errorf("got %q", data)
	}
}
