package board

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kitchen-board/domain"
)

const (
	// MaxRetryCount is the replay cap after which a queued mutation is
	// dropped and surfaced as unsyncable.
	MaxRetryCount = 3

	// MaxMutationAge bounds how long a queued mutation stays relevant.
	// Anything older is pruned silently at load time.
	MaxMutationAge = 24 * time.Hour
)

// QueueStore persists the mutation queue across process restarts. Load
// returns the stored mutations; Save replaces them wholesale.
type QueueStore interface {
	Load(ctx context.Context) ([]domain.QueuedMutation, error)
	Save(ctx context.Context, muts []domain.QueuedMutation) error
}

// MutationQueue holds status mutations that failed to persist while the
// orders backend was unreachable. It owns its entries exclusively; all
// access goes through its methods.
type MutationQueue struct {
	mu    sync.Mutex
	store QueueStore
	items []domain.QueuedMutation
	clock func() time.Time
	log   *log.Logger
}

// NewMutationQueue loads the persisted queue and prunes entries that are
// stale or out of retries.
func NewMutationQueue(ctx context.Context, store QueueStore, logger *log.Logger) (*MutationQueue, error) {
	q := &MutationQueue{store: store, clock: time.Now, log: logger}
	items, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]domain.QueuedMutation, 0, len(items))
	cutoff := q.clock().Add(-MaxMutationAge).UnixMilli()
	for _, m := range items {
		if m.RetryCount >= MaxRetryCount || m.Timestamp < cutoff {
			continue
		}
		kept = append(kept, m)
	}
	q.items = kept
	if dropped := len(items) - len(kept); dropped > 0 {
		logger.WithField("dropped", dropped).Info("pruned stale queued mutations")
	}
	if err := store.Save(ctx, kept); err != nil {
		return nil, err
	}
	return q, nil
}

// Enqueue appends a mutation with a fresh ID, zero retries and the current
// timestamp, and persists the queue.
func (q *MutationQueue) Enqueue(ctx context.Context, mutType, orderID string, payload []byte) (domain.QueuedMutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := domain.QueuedMutation{
		ID:        uuid.NewString(),
		Type:      mutType,
		OrderID:   orderID,
		Payload:   payload,
		Timestamp: q.clock().UnixMilli(),
	}
	q.items = append(q.items, m)
	if err := q.store.Save(ctx, q.snapshotLocked()); err != nil {
		q.items = q.items[:len(q.items)-1]
		return domain.QueuedMutation{}, err
	}
	return m, nil
}

// Dequeue removes the mutation with the given ID, if present.
func (q *MutationQueue) Dequeue(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.items {
		if m.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return q.store.Save(ctx, q.snapshotLocked())
		}
	}
	return nil
}

// IncrementRetry bumps the retry counter of a queued mutation. It returns
// the updated count, or -1 when the mutation is gone.
func (q *MutationQueue) IncrementRetry(ctx context.Context, id string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].RetryCount++
			if err := q.store.Save(ctx, q.snapshotLocked()); err != nil {
				q.items[i].RetryCount--
				return q.items[i].RetryCount, err
			}
			return q.items[i].RetryCount, nil
		}
	}
	return -1, nil
}

// MutationsForOrder returns the queued mutations targeting one order, used
// to avoid double-queuing conflicting changes.
func (q *MutationQueue) MutationsForOrder(orderID string) []domain.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.QueuedMutation, 0, 1)
	for _, m := range q.items {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out
}

// Len reports the number of queued mutations, shown on the offline-sync
// indicator.
func (q *MutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queue contents in enqueue order.
func (q *MutationQueue) Snapshot() []domain.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *MutationQueue) snapshotLocked() []domain.QueuedMutation {
	return append([]domain.QueuedMutation(nil), q.items...)
}
