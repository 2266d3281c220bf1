package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"kitchen-board/domain"
)

func TestQueueFileRoundTrip(t *testing.T) {
	qf, err := NewQueueFile(t.TempDir(), "store-1")
	if err != nil {
		t.Fatalf("new queue file: %v", err)
	}
	ctx := context.Background()

	muts := []domain.QueuedMutation{
		{ID: "m1", Type: domain.MutationUpdateStatus, OrderID: "42", Timestamp: 1700000000000},
		{ID: "m2", Type: domain.MutationCancel, OrderID: "43", Timestamp: 1700000001000, RetryCount: 2},
	}
	if err := qf.Save(ctx, muts); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := qf.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, muts) {
		t.Fatalf("round trip mismatch: %#v", loaded)
	}
}

func TestQueueFileLoadMissingFile(t *testing.T) {
	qf, err := NewQueueFile(t.TempDir(), "store-1")
	if err != nil {
		t.Fatalf("new queue file: %v", err)
	}
	muts, err := qf.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if muts != nil {
		t.Fatalf("expected empty queue, got %#v", muts)
	}
}

func TestQueueFileLoadCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	qf, err := NewQueueFile(dir, "store-1")
	if err != nil {
		t.Fatalf("new queue file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mutations-store-1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}
	muts, err := qf.Load(context.Background())
	if err != nil {
		t.Fatalf("expected corrupt snapshot to be discarded, got %v", err)
	}
	if muts != nil {
		t.Fatalf("expected empty queue, got %#v", muts)
	}
}

func TestQueueFileSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	qf, err := NewQueueFile(dir, "store-1")
	if err != nil {
		t.Fatalf("new queue file: %v", err)
	}
	if err := qf.Save(context.Background(), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "mutations-store-1.json" {
		t.Fatalf("unexpected dir contents: %v", entries)
	}
}

func TestQueueFileRequiresDir(t *testing.T) {
	if _, err := NewQueueFile("", "store-1"); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
