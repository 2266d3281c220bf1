package board

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"kitchen-board/domain"
)

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger
}

func TestQueuePrunesOnLoad(t *testing.T) {
	now := time.Now()
	store := &memQueueStore{items: []domain.QueuedMutation{
		{ID: "stale", OrderID: "1", Type: domain.MutationUpdateStatus, Timestamp: now.Add(-25 * time.Hour).UnixMilli()},
		{ID: "exhausted", OrderID: "2", Type: domain.MutationUpdateStatus, Timestamp: now.Add(-time.Hour).UnixMilli(), RetryCount: MaxRetryCount},
		{ID: "keep", OrderID: "3", Type: domain.MutationUpdateStatus, Timestamp: now.Add(-time.Hour).UnixMilli(), RetryCount: MaxRetryCount - 1},
	}}

	q, err := NewMutationQueue(context.Background(), store, testLogger())
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	snap := q.Snapshot()
	if len(snap) != 1 || snap[0].ID != "keep" {
		t.Fatalf("unexpected survivors: %#v", snap)
	}
	if len(store.items) != 1 {
		t.Fatalf("pruned queue must be persisted, store has %d items", len(store.items))
	}
}

func TestQueueEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q, err := NewMutationQueue(ctx, &memQueueStore{}, testLogger())
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	m, err := q.Enqueue(ctx, domain.MutationUpdateStatus, "42", []byte(`{"status":"preparing"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if m.ID == "" || m.RetryCount != 0 || m.Timestamp == 0 {
		t.Fatalf("unexpected mutation: %#v", m)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 queued, got %d", q.Len())
	}

	forOrder := q.MutationsForOrder("42")
	if len(forOrder) != 1 || forOrder[0].ID != m.ID {
		t.Fatalf("unexpected mutations for order: %#v", forOrder)
	}
	if got := q.MutationsForOrder("other"); len(got) != 0 {
		t.Fatalf("expected no mutations for other order: %#v", got)
	}

	if err := q.Dequeue(ctx, m.ID); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestQueueIncrementRetry(t *testing.T) {
	ctx := context.Background()
	q, err := NewMutationQueue(ctx, &memQueueStore{}, testLogger())
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	m, err := q.Enqueue(ctx, domain.MutationCancel, "7", nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for want := 1; want <= 3; want++ {
		count, err := q.IncrementRetry(ctx, m.ID)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if count != want {
			t.Fatalf("retry count = %d, want %d", count, want)
		}
	}
	if count, _ := q.IncrementRetry(ctx, "missing"); count != -1 {
		t.Fatalf("expected -1 for missing mutation, got %d", count)
	}
}

func TestQueueEnqueueRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := &memQueueStore{}
	q, err := NewMutationQueue(ctx, store, testLogger())
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	store.mu.Lock()
	store.err = context.DeadlineExceeded
	store.mu.Unlock()

	if _, err := q.Enqueue(ctx, domain.MutationUpdateStatus, "42", nil); err == nil {
		t.Fatal("expected enqueue to fail when the store does")
	}
	if q.Len() != 0 {
		t.Fatalf("failed enqueue must not leave entries, got %d", q.Len())
	}
}
