package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crosspost/internal/adapters/database"

	"go.uber.org/zap"
)

func TestTriggerWorkerPollReleasesOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := database.NewTriggerStoreDatabase(newTestDB(t), "node", time.Minute)
	now := time.Now().UTC()
	for _, id := range []string{"ok", "broken", "later"} {
		at := now.Add(-time.Second)
		if id == "later" {
			at = now.Add(time.Hour)
		}
		if err := store.Create(ctx, id, at); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var mu sync.Mutex
	seen := map[string]int{}
	handler := func(_ context.Context, postID string) error {
		mu.Lock()
		seen[postID]++
		mu.Unlock()
		if postID == "broken" {
			return errors.New("database unavailable")
		}
		return nil
	}

	w := NewTriggerWorker(store, handler, 10, 2, time.Second, zap.NewNop())
	w.Now = func() time.Time { return now }

	if n := w.Poll(ctx); n != 2 {
		t.Fatalf("poll handled %d triggers, want 2", n)
	}
	if seen["ok"] != 1 || seen["broken"] != 1 || seen["later"] != 0 {
		t.Fatalf("seen = %v", seen)
	}
	if ok, _ := store.Exists(ctx, "ok"); ok {
		t.Fatalf("handled trigger was not released")
	}
	if ok, _ := store.Exists(ctx, "broken"); !ok {
		t.Fatalf("failed trigger was dropped")
	}

	// تا پایان lease دوباره تحویل داده نمی‌شود
	if n := w.Poll(ctx); n != 0 {
		t.Fatalf("failed trigger redelivered before lease expiry")
	}
	w.Now = func() time.Time { return now.Add(2 * time.Minute) }
	if n := w.Poll(ctx); n != 1 || seen["broken"] != 2 {
		t.Fatalf("failed trigger not redelivered after lease expiry: n=%d seen=%v", n, seen)
	}
}

func TestTriggerWorkerRunStops(t *testing.T) {
	store := database.NewTriggerStoreDatabase(newTestDB(t), "node", time.Minute)
	fired := make(chan string, 1)
	w := NewTriggerWorker(store, func(_ context.Context, postID string) error {
		fired <- postID
		return nil
	}, 10, 1, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	if err := store.Create(context.Background(), "p1", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case id := <-fired:
		if id != "p1" {
			t.Fatalf("fired %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("trigger never fired")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}
