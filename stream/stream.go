// Package stream fans board updates out to connected consoles through a
// Redis pub/sub channel, so every instance serving a store broadcasts the
// same feed.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Event kinds carried on the board channel.
const (
	KindBoard = "board"
	KindToast = "toast"
	KindChime = "chime"
)

// Event is one message on a store's board channel.
type Event struct {
	Kind    string          `json:"kind"`
	StoreID string          `json:"storeId"`
	Level   string          `json:"level,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Time    int64           `json:"time"`
}

// Broker publishes board events and fans them out to local subscribers.
type Broker struct {
	redis   *redis.Client
	channel string
	logger  *log.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroker(client *redis.Client, channel string, logger *log.Logger) *Broker {
	return &Broker{
		redis:   client,
		channel: channel,
		logger:  logger,
		subs:    make(map[chan Event]struct{}),
	}
}

// Publish sends an event to the store channel. Best-effort: a publish
// failure is logged, never propagated, because the board state itself is
// served on request and the stream is only a freshness optimization.
func (b *Broker) Publish(ctx context.Context, ev Event) {
	ev.Time = time.Now().UnixMilli()
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.WithError(err).Error("marshal stream event")
		return
	}
	if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.WithError(err).Errorf("unable to publish %s event", ev.Kind)
	}
}

// Subscribe registers a local consumer. The returned cancel func must be
// called when the consumer goes away.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports how many consoles are currently attached.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Run consumes the Redis channel and dispatches to local subscribers
// until the context ends, reconnecting if the pub/sub stream closes.
func (b *Broker) Run(ctx context.Context) {
	for {
		sub := b.redis.Subscribe(ctx, b.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.WithError(err).Error("unable to parse stream event")
					continue
				}
				b.dispatch(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("board stream channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (b *Broker) dispatch(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow console; it will catch up from the next board event.
		}
	}
}
