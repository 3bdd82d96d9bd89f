package filestore

import (
	"bytes"
	"testing"
)

func TestStoreAndRead(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	content := []byte("license scan")
	rel, err := store.Store(content, "licenses")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := store.Read(rel)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch")
	}
}

func TestStoreEmptyContentRejected(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Store(nil, "proofs"); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestReadRejectsPathEscape(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Read("../../etc/passwd"); err == nil {
		t.Fatalf("expected error for path escape")
	}
}
