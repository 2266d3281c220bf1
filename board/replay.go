package board

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kitchen-board/domain"
)

// ReplayStats summarizes replay activity for the offline-sync indicator.
type ReplayStats struct {
	Pending  int       `json:"pending"`
	Replayed uint64    `json:"replayed"`
	Dropped  uint64    `json:"dropped"`
	LastRun  time.Time `json:"lastRun,omitzero"`
}

// Replayer drains the mutation queue against the orders backend once
// connectivity returns. Each attempt either dequeues the mutation or bumps
// its retry count; past the cap it is dropped and surfaced.
type Replayer struct {
	queue  *MutationQueue
	orders OrdersClient
	conn   *Connectivity
	toasts Toaster
	logger *log.Logger

	retryInitial time.Duration
	retryMax     time.Duration

	wake chan struct{}

	mu       sync.Mutex
	replayed uint64
	dropped  uint64
	lastRun  time.Time
}

// NewReplayer wires a replayer to the queue and backend. It registers
// itself on the connectivity tracker so a regained connection wakes it.
func NewReplayer(queue *MutationQueue, orders OrdersClient, conn *Connectivity, toasts Toaster, logger *log.Logger) *Replayer {
	r := &Replayer{
		queue:        queue,
		orders:       orders,
		conn:         conn,
		toasts:       toasts,
		logger:       logger,
		retryInitial: 250 * time.Millisecond,
		retryMax:     30 * time.Second,
		wake:         make(chan struct{}, 1),
	}
	conn.OnOnline(r.Wake)
	return r
}

// Wake requests a replay pass. Coalesces when one is already pending.
func (r *Replayer) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled, replaying the queue each time
// it is woken. Failed passes are retried with jittered backoff while
// mutations remain and the backend stays reachable.
func (r *Replayer) Run(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}

		for {
			remaining := r.ReplayAll(ctx)
			if remaining == 0 || !r.conn.Online() || ctx.Err() != nil {
				attempt = 0
				break
			}
			attempt++
			timer := time.NewTimer(retryBackoff(attempt, r.retryInitial, r.retryMax))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// ReplayAll attempts every queued mutation once and returns how many are
// still pending afterwards.
func (r *Replayer) ReplayAll(ctx context.Context) int {
	for _, m := range r.queue.Snapshot() {
		if ctx.Err() != nil {
			break
		}
		err := r.dispatch(ctx, m)
		if err == nil {
			if dqErr := r.queue.Dequeue(ctx, m.ID); dqErr != nil {
				r.logger.WithError(dqErr).WithField("mutation", m.ID).Error("failed to dequeue replayed mutation")
			}
			r.conn.MarkSuccess()
			r.mu.Lock()
			r.replayed++
			r.mu.Unlock()
			continue
		}

		if isConnectivityError(err) {
			// Still offline; leave the queue untouched and stop the pass.
			r.conn.MarkFailure(err)
			break
		}

		count, incErr := r.queue.IncrementRetry(ctx, m.ID)
		if incErr != nil {
			r.logger.WithError(incErr).WithField("mutation", m.ID).Error("failed to record replay attempt")
			continue
		}
		if count >= MaxRetryCount {
			// Dead-lettering is limited to a surfaced notice; the full
			// payload goes to the log for manual follow-up.
			r.logger.WithError(err).WithFields(log.Fields{
				"mutation": m.ID,
				"order":    m.OrderID,
				"type":     m.Type,
				"payload":  string(m.Payload),
			}).Error("mutation exceeded retry cap, dropping")
			if dqErr := r.queue.Dequeue(ctx, m.ID); dqErr != nil {
				r.logger.WithError(dqErr).WithField("mutation", m.ID).Error("failed to drop exhausted mutation")
			}
			r.mu.Lock()
			r.dropped++
			r.mu.Unlock()
			if r.toasts != nil {
				r.toasts.Toast(ToastError, fmt.Sprintf("could not sync order #%s", m.OrderID))
			}
			continue
		}
		r.logger.WithError(err).WithFields(log.Fields{"mutation": m.ID, "attempt": count}).Warn("replay attempt failed")
	}

	r.mu.Lock()
	r.lastRun = time.Now().UTC()
	r.mu.Unlock()
	return r.queue.Len()
}

func (r *Replayer) dispatch(ctx context.Context, m domain.QueuedMutation) error {
	switch m.Type {
	case domain.MutationUpdateStatus:
		var p domain.UpdateStatusPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return err
		}
		_, err := r.orders.UpdateOrderStatus(ctx, m.OrderID, p.Status)
		return err
	case domain.MutationCancel:
		var p domain.CancelPayload
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				return err
			}
		}
		_, err := r.orders.CancelOrder(ctx, m.OrderID, p.Reason)
		return err
	default:
		return fmt.Errorf("unknown mutation type %q", m.Type)
	}
}

// Stats reports replay counters plus the live queue depth.
func (r *Replayer) Stats() ReplayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ReplayStats{
		Pending:  r.queue.Len(),
		Replayed: r.replayed,
		Dropped:  r.dropped,
		LastRun:  r.lastRun,
	}
}

func retryBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		if initial <= 0 {
			return time.Second
		}
		return initial
	}
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	backoff := float64(initial) * math.Pow(2, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 0.2 * backoff
	return time.Duration(backoff + (rand.Float64()-0.5)*2*jitter)
}
