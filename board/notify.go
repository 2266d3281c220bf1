package board

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kitchen-board/domain"
)

// BeepSequence describes the alert chime played for new arrivals.
type BeepSequence struct {
	Count       int           `json:"count"`
	FrequencyHz int           `json:"frequencyHz"`
	Duration    time.Duration `json:"duration"`
	Gap         time.Duration `json:"gap"`
}

// DefaultBeepSequence matches the stock console chime.
var DefaultBeepSequence = BeepSequence{Count: 3, FrequencyHz: 880, Duration: 180 * time.Millisecond, Gap: 120 * time.Millisecond}

// NotificationSink plays the chime. The production sink pushes a chime
// event onto the board stream for consoles; tests record calls.
type NotificationSink interface {
	Play(ctx context.Context, seq BeepSequence)
}

// MuteStore persists the process-wide mute preference across restarts.
type MuteStore interface {
	LoadMuted(ctx context.Context) (bool, error)
	SaveMuted(ctx context.Context, muted bool) error
}

// Trigger fires an audio alert whenever a refresh snapshot contains order
// IDs the previous one did not. The first snapshot after start never
// fires, and nothing plays until a console has attached (the autoplay
// guard) or while muted.
type Trigger struct {
	sink   NotificationSink
	store  MuteStore
	seq    BeepSequence
	logger *log.Logger

	mu        sync.Mutex
	prev      map[string]struct{}
	seenFirst bool
	muted     bool
	activated bool
}

// NewTrigger loads the persisted mute preference and returns a trigger in
// the pre-first-snapshot state.
func NewTrigger(ctx context.Context, sink NotificationSink, store MuteStore, seq BeepSequence, logger *log.Logger) (*Trigger, error) {
	muted := false
	if store != nil {
		var err error
		muted, err = store.LoadMuted(ctx)
		if err != nil {
			return nil, err
		}
	}
	if seq.Count <= 0 {
		seq = DefaultBeepSequence
	}
	return &Trigger{sink: sink, store: store, seq: seq, logger: logger, muted: muted}, nil
}

// Observe diffs the snapshot's ID set against the previous cycle and plays
// the chime for genuinely new arrivals. Playback is fire-and-forget and
// never delays the caller.
func (t *Trigger) Observe(orders []domain.Order) {
	current := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		current[o.ID] = struct{}{}
	}

	t.mu.Lock()
	fresh := 0
	if t.seenFirst {
		for id := range current {
			if _, ok := t.prev[id]; !ok {
				fresh++
			}
		}
	}
	shouldPlay := fresh > 0 && t.seenFirst && !t.muted && t.activated
	t.prev = current
	t.seenFirst = true
	seq := t.seq
	t.mu.Unlock()

	if !shouldPlay || t.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		t.sink.Play(ctx, seq)
	}()
}

// Activate marks that a console is attached and allowed to play audio.
func (t *Trigger) Activate() {
	t.mu.Lock()
	t.activated = true
	t.mu.Unlock()
}

// Muted reports the current mute preference.
func (t *Trigger) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

// SetMuted updates and persists the mute preference.
func (t *Trigger) SetMuted(ctx context.Context, muted bool) error {
	t.mu.Lock()
	prev := t.muted
	t.muted = muted
	t.mu.Unlock()

	if t.store == nil {
		return nil
	}
	if err := t.store.SaveMuted(ctx, muted); err != nil {
		t.mu.Lock()
		t.muted = prev
		t.mu.Unlock()
		return err
	}
	return nil
}
