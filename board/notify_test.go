package board

import (
	"context"
	"testing"
	"time"

	"kitchen-board/domain"
)

func waitForPlay(t *testing.T, sink *recordSink) {
	t.Helper()
	select {
	case <-sink.ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chime")
	}
}

func snapshotOrders(ids ...string) []domain.Order {
	out := make([]domain.Order, len(ids))
	for i, id := range ids {
		out[i] = domain.Order{ID: id, Status: domain.StatusConfirmed}
	}
	return out
}

func newTestTrigger(t *testing.T, sink NotificationSink, store MuteStore) *Trigger {
	t.Helper()
	tr, err := NewTrigger(context.Background(), sink, store, DefaultBeepSequence, testLogger())
	if err != nil {
		t.Fatalf("new trigger: %v", err)
	}
	return tr
}

func TestTriggerSuppressesFirstSnapshot(t *testing.T) {
	sink := newRecordSink()
	tr := newTestTrigger(t, sink, nil)
	tr.Activate()

	tr.Observe(snapshotOrders("a", "b", "c"))
	tr.Observe(snapshotOrders("a", "b", "c"))

	if sink.count() != 0 {
		t.Fatalf("no chime expected on initial load, got %d", sink.count())
	}
}

func TestTriggerFiresOnNewArrival(t *testing.T) {
	sink := newRecordSink()
	tr := newTestTrigger(t, sink, nil)
	tr.Activate()

	tr.Observe(snapshotOrders("a"))
	tr.Observe(snapshotOrders("a", "b"))
	waitForPlay(t, sink)

	if sink.count() != 1 {
		t.Fatalf("expected exactly one chime, got %d", sink.count())
	}
}

func TestTriggerRespectsMute(t *testing.T) {
	sink := newRecordSink()
	tr := newTestTrigger(t, sink, nil)
	tr.Activate()
	if err := tr.SetMuted(context.Background(), true); err != nil {
		t.Fatalf("mute: %v", err)
	}

	tr.Observe(snapshotOrders("a"))
	tr.Observe(snapshotOrders("a", "b"))

	if sink.count() != 0 {
		t.Fatalf("muted trigger must stay silent, got %d plays", sink.count())
	}
}

func TestTriggerWaitsForActivation(t *testing.T) {
	sink := newRecordSink()
	tr := newTestTrigger(t, sink, nil)

	tr.Observe(snapshotOrders("a"))
	tr.Observe(snapshotOrders("a", "b"))
	if sink.count() != 0 {
		t.Fatal("chime before any console attached")
	}

	tr.Activate()
	tr.Observe(snapshotOrders("a", "b", "c"))
	waitForPlay(t, sink)
}

func TestTriggerMutePersistence(t *testing.T) {
	ctx := context.Background()
	store := &memMuteStore{muted: true}
	tr := newTestTrigger(t, newRecordSink(), store)

	if !tr.Muted() {
		t.Fatal("persisted mute preference must be loaded")
	}
	if err := tr.SetMuted(ctx, false); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if store.muted {
		t.Fatal("unmute must be persisted")
	}

	store.err = context.DeadlineExceeded
	if err := tr.SetMuted(ctx, true); err == nil {
		t.Fatal("expected persistence failure to surface")
	}
	if tr.Muted() {
		t.Fatal("failed persistence must roll the flag back")
	}
}

func TestTriggerIgnoredDepartures(t *testing.T) {
	sink := newRecordSink()
	tr := newTestTrigger(t, sink, nil)
	tr.Activate()

	tr.Observe(snapshotOrders("a", "b"))
	tr.Observe(snapshotOrders("a"))

	if sink.count() != 0 {
		t.Fatalf("orders leaving the board must not chime, got %d", sink.count())
	}
}
