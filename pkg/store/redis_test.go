package store

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	kv := NewRedisStore(client, RedisStoreConfig{})

	_, err := kv.Get(context.Background(), HabitsKey("acct-1"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, expected ErrNotFound", err)
	}
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	kv := NewRedisStore(client, RedisStoreConfig{})
	key := TrialStartKey("acct-1")

	if err := kv.Set(ctx, key, "2026-08-30T10:00:00Z"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "2026-08-30T10:00:00Z" {
		t.Errorf("Get() = %q, expected stored value", value)
	}

	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := kv.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, expected ErrNotFound", err)
	}
}

func TestKeys_AreAccountScoped(t *testing.T) {
	if HabitsKey("a") == HabitsKey("b") {
		t.Error("habit keys for different accounts must differ")
	}
	if TrialStartKey("a") == DemoPremiumKey("a") {
		t.Error("record types for one account must use distinct keys")
	}
}
