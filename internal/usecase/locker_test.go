package usecase

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "order:1")
			if err != nil {
				t.Errorf("Lock returned error: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if len(locker.locks) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(locker.locks))
	}
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock on another key must not block: %v", err)
	}
	unlockB()
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	locker := NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); err == nil {
		t.Fatalf("expected waiting lock to fail when context ends")
	}

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("expected lock to be free after release: %v", err)
	}
	again()
}
