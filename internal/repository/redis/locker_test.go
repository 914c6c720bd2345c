package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestEntityLocker_LockAndRelease(t *testing.T) {
	client, server := newTestRedis(t)
	locker := NewEntityLocker(client, LockerConfig{KeyPrefix: "lock", TTL: time.Minute})

	unlock, err := locker.Lock(context.Background(), "order:o-1")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if !server.Exists("lock:order:o-1") {
		t.Fatal("expected lock key to exist")
	}
	remaining := server.TTL("lock:order:o-1")
	if remaining <= 0 || remaining > time.Minute {
		t.Fatalf("expected ttl within (0, 1m], got %v", remaining)
	}

	unlock()
	unlock()

	if server.Exists("lock:order:o-1") {
		t.Fatal("expected lock key to be removed after unlock")
	}
}

func TestEntityLocker_ContendedLockHonoursContext(t *testing.T) {
	client, _ := newTestRedis(t)
	locker := NewEntityLocker(client, LockerConfig{Retry: 5 * time.Millisecond})

	unlock, err := locker.Lock(context.Background(), "shipment:s-1")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := locker.Lock(ctx, "shipment:s-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEntityLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	client, _ := newTestRedis(t)
	locker := NewEntityLocker(client, LockerConfig{Retry: 5 * time.Millisecond})

	unlock, err := locker.Lock(context.Background(), "appraisal:a-1")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		second, err := locker.Lock(ctx, "appraisal:a-1")
		if err == nil {
			second()
		}
		acquired <- err
	}()

	time.Sleep(20 * time.Millisecond)
	unlock()

	if err := <-acquired; err != nil {
		t.Fatalf("waiter failed to acquire lock: %v", err)
	}
}

func TestEntityLocker_StaleUnlockKeepsNewHolder(t *testing.T) {
	client, server := newTestRedis(t)
	locker := NewEntityLocker(client, LockerConfig{KeyPrefix: "lock", TTL: time.Second})

	unlock, err := locker.Lock(context.Background(), "order:o-2")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	server.FastForward(2 * time.Second)

	second, err := locker.Lock(context.Background(), "order:o-2")
	if err != nil {
		t.Fatalf("second Lock returned error: %v", err)
	}
	defer second()

	unlock()

	if !server.Exists("lock:order:o-2") {
		t.Fatal("expired holder must not release the new holder's lock")
	}
}
