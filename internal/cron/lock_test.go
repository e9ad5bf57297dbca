package cron

import (
	"context"
	"testing"
	"time"
)

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeLockStore) LockKey(name string) string { return "lock:" + name }

func TestRedisLockMutualExclusion(t *testing.T) {
	store := newFakeLockStore()
	first, err := NewRedisLock(store, "settle-sweep", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, err := NewRedisLock(store, "settle-sweep", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	held, err := first.Acquire(context.Background())
	if err != nil || !held {
		t.Fatalf("first acquire = %v, %v", held, err)
	}
	held, err = second.Acquire(context.Background())
	if err != nil || held {
		t.Fatalf("second acquire should lose, got %v, %v", held, err)
	}

	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	held, err = second.Acquire(context.Background())
	if err != nil || !held {
		t.Fatalf("acquire after release = %v, %v", held, err)
	}
}

func TestRedisLockReleaseKeepsForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "stalled-orders", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// TTL expiry followed by another worker grabbing the key.
	store.values["lock:stalled-orders"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["lock:stalled-orders"] != "someone-else" {
		t.Fatal("release must not delete a lock owned by another worker")
	}
}
