package storage

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMutePrefsDefaultsToUnmuted(t *testing.T) {
	_, client := setupCacheRedis(t)

	prefs := NewMutePrefs(client, "store-1")
	muted, err := prefs.LoadMuted(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if muted {
		t.Fatal("expected missing key to mean unmuted")
	}
}

func TestMutePrefsRoundTrip(t *testing.T) {
	_, client := setupCacheRedis(t)
	ctx := context.Background()

	prefs := NewMutePrefs(client, "store-1")
	if err := prefs.SaveMuted(ctx, true); err != nil {
		t.Fatalf("save: %v", err)
	}
	muted, err := prefs.LoadMuted(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !muted {
		t.Fatal("expected muted true after save")
	}

	if err := prefs.SaveMuted(ctx, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	muted, err = prefs.LoadMuted(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if muted {
		t.Fatal("expected muted false after save")
	}
}

func TestMutePrefsIsolatedPerStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	if err := NewMutePrefs(client, "store-1").SaveMuted(ctx, true); err != nil {
		t.Fatalf("save: %v", err)
	}
	muted, err := NewMutePrefs(client, "store-2").LoadMuted(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if muted {
		t.Fatal("expected other store to stay unmuted")
	}
}
