package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("Exclusive", func(t *testing.T) {
		k := newKeyedMutex()
		var mu sync.Mutex
		inside := 0
		var wg sync.WaitGroup
		for range 20 {
			wg.Go(func() {
				unlock, err := k.lock(context.Background(), "x")
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				inside++
				if inside != 1 {
					t.Errorf("%d holders at once", inside)
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				unlock()
			})
		}
		wg.Wait()
		if n := k.held(); n != 0 {
			t.Errorf("held() = %d, want 0", n)
		}
	})

	t.Run("IndependentKeys", func(t *testing.T) {
		k := newKeyedMutex()
		unlockA, err := k.lock(t.Context(), "a")
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()
		unlockB, err := k.lock(ctx, "b")
		if err != nil {
			t.Fatalf("lock(b) while a is held: %v", err)
		}
		if n := k.held(); n != 2 {
			t.Errorf("held() = %d, want 2", n)
		}
		unlockB()
		unlockA()
		if n := k.held(); n != 0 {
			t.Errorf("held() = %d, want 0", n)
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		k := newKeyedMutex()
		unlock, err := k.lock(t.Context(), "x")
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			_, err := k.lock(ctx, "x")
			done <- err
		}()
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Fatalf("lock = %v, want context.Canceled", err)
		}
		unlock()
		if n := k.held(); n != 0 {
			t.Errorf("held() = %d, want 0", n)
		}
	})

	t.Run("AlreadyCanceled", func(t *testing.T) {
		k := newKeyedMutex()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := k.lock(ctx, "x"); !errors.Is(err, context.Canceled) {
			t.Fatalf("lock = %v, want context.Canceled", err)
		}
		if n := k.held(); n != 0 {
			t.Errorf("held() = %d, want 0", n)
		}
	})
}
