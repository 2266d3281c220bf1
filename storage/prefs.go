package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// MutePrefs persists the console mute preference in Redis, keyed per
// store, so it survives restarts and is shared by every console instance.
type MutePrefs struct {
	client  *redis.Client
	storeID string
}

func NewMutePrefs(client *redis.Client, storeID string) *MutePrefs {
	return &MutePrefs{client: client, storeID: storeID}
}

func (p *MutePrefs) key() string {
	return "board:muted:" + p.storeID
}

// LoadMuted returns the persisted preference; a missing key means unmuted.
func (p *MutePrefs) LoadMuted(ctx context.Context) (bool, error) {
	val, err := p.client.Get(ctx, p.key()).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (p *MutePrefs) SaveMuted(ctx context.Context, muted bool) error {
	val := "0"
	if muted {
		val = "1"
	}
	return p.client.Set(ctx, p.key(), val, 0).Err()
}
