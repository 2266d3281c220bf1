package stream

import (
	"context"
	"encoding/json"
	"time"

	"kitchen-board/board"
)

// ToastSink surfaces board notices as toast events on the store channel.
type ToastSink struct {
	broker  *Broker
	storeID string
}

func NewToastSink(broker *Broker, storeID string) *ToastSink {
	return &ToastSink{broker: broker, storeID: storeID}
}

func (s *ToastSink) Toast(level, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.broker.Publish(ctx, Event{
		Kind:    KindToast,
		StoreID: s.storeID,
		Level:   level,
		Message: message,
	})
}

// ChimeSink publishes the new-arrival chime for consoles to play. The
// console owns actual audio output; the service only signals.
type ChimeSink struct {
	broker  *Broker
	storeID string
}

func NewChimeSink(broker *Broker, storeID string) *ChimeSink {
	return &ChimeSink{broker: broker, storeID: storeID}
}

func (s *ChimeSink) Play(ctx context.Context, seq board.BeepSequence) {
	data, err := json.Marshal(seq)
	if err != nil {
		return
	}
	s.broker.Publish(ctx, Event{
		Kind:    KindChime,
		StoreID: s.storeID,
		Data:    data,
	})
}
