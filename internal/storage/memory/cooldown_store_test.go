package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCooldownStore_Window(t *testing.T) {
	store := NewCooldownStore()
	ctx := context.Background()

	steps := []struct {
		now  int64
		want bool
	}{
		{now: 1000, want: true},
		{now: 1500, want: false}, // inside window
		{now: 500, want: false},  // earlier than recorded
		{now: 2000, want: true},  // window elapsed
		{now: 2999, want: false},
	}
	for _, s := range steps {
		got, err := store.TryAcquire(ctx, "BTCUSDT", s.now, 1000)
		if err != nil {
			t.Fatalf("TryAcquire failed: %v", err)
		}
		if got != s.want {
			t.Errorf("TryAcquire(now=%d) = %v, want %v", s.now, got, s.want)
		}
	}

	last, ok, _ := store.Last(ctx, "BTCUSDT")
	if !ok || last != 2000 {
		t.Errorf("Last = %d, %v; want 2000, true", last, ok)
	}

	// Symbols are independent.
	if got, _ := store.TryAcquire(ctx, "ETHUSDT", 1500, 1000); !got {
		t.Error("other symbol blocked")
	}
}

func TestCooldownStore_ConcurrentAcquire(t *testing.T) {
	store := NewCooldownStore()
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.TryAcquire(ctx, "BTCUSDT", 1000, 60_000); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("concurrent acquires won = %d, want 1", wins)
	}
}
