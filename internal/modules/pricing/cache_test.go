package pricing

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"masar/internal/types"
)

// countingSource serves a mutable snapshot and counts loads. onLoad, when
// set, runs after the snapshot is read and before it is returned.
type countingSource struct {
	mu     sync.Mutex
	snap   Snapshot
	loads  int
	onLoad func()
}

func (s *countingSource) Snapshot(context.Context) (Snapshot, error) {
	s.mu.Lock()
	snap := s.snap
	s.loads++
	hook := s.onLoad
	s.onLoad = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return snap, nil
}

func (s *countingSource) setFee(p types.Percent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Settings.PlatformFee = p
}

func (s *countingSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// setupTestRedis connects to MASAR_TEST_REDIS_ADDR or skips.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("MASAR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MASAR_TEST_REDIS_ADDR not set; skipping Redis-backed tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	if err := rdb.Del(ctx, snapshotKey, generationKey).Err(); err != nil {
		t.Fatalf("reset keys: %v", err)
	}
	t.Cleanup(func() {
		rdb.Del(context.Background(), snapshotKey, generationKey)
		rdb.Close()
	})
	return rdb
}

func TestCachedSourceWithoutRedis(t *testing.T) {
	src := &countingSource{snap: Snapshot{Settings: Settings{PlatformFee: 1000}, Rules: testRules()}}
	c := NewCachedSource(src, nil, nil)
	for i := 0; i < 2; i++ {
		if _, err := c.Snapshot(context.Background()); err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
	}
	if src.count() != 2 {
		t.Fatalf("loads = %d, want 2", src.count())
	}
	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
}

func TestCachedSourceServesSingleValue(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	src := &countingSource{snap: Snapshot{Settings: Settings{PlatformFee: 1000}, Rules: testRules()}}
	c := NewCachedSource(src, rdb, nil)

	first, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	second, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if src.count() != 1 {
		t.Fatalf("loads = %d, want 1 (second read from cache)", src.count())
	}
	if second.Settings.PlatformFee != first.Settings.PlatformFee || len(second.Rules) != len(first.Rules) {
		t.Fatalf("cached snapshot = %+v, want %+v", second, first)
	}
	if second.Rules[1].Price.Amount != 5000 {
		t.Fatalf("cached rule price = %s", second.Rules[1].Price)
	}

	src.setFee(2000)
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.Settings.PlatformFee != 2000 || src.count() != 2 {
		t.Fatalf("after invalidate fee = %s loads = %d", got.Settings.PlatformFee, src.count())
	}
}

func TestCachedSourceDoesNotCacheLoadRacingInvalidate(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	src := &countingSource{snap: Snapshot{Settings: Settings{PlatformFee: 1000}, Rules: testRules()}}
	c := NewCachedSource(src, rdb, nil)

	// An admin write lands after the reader loaded the old settings.
	src.onLoad = func() {
		src.setFee(2000)
		if err := c.Invalidate(ctx); err != nil {
			t.Errorf("Invalidate: %v", err)
		}
	}
	stale, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if stale.Settings.PlatformFee != 1000 {
		t.Fatalf("racing reader fee = %s", stale.Settings.PlatformFee)
	}

	got, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.Settings.PlatformFee != 2000 {
		t.Fatalf("next reader fee = %s, want 20.00", got.Settings.PlatformFee)
	}
	if src.count() != 2 {
		t.Fatalf("loads = %d, want 2", src.count())
	}
}
