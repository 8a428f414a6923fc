package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestStore_SetGetDel(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, err := s.Get(ctx, "k"); err != nil || got != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}

	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !s.IsNil(err) {
		t.Errorf("expected redis.Nil after delete, got %v", err)
	}
}

func TestStore_IncrSetsTTL(t *testing.T) {
	s, mr := testStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Incr(ctx, "counter", time.Hour)
		if err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
		if got != want {
			t.Errorf("Incr = %d; want %d", got, want)
		}
	}

	if ttl := mr.TTL("counter"); ttl != time.Hour {
		t.Errorf("counter TTL = %v; want 1h", ttl)
	}
}

func TestStore_DelPattern(t *testing.T) {
	s, mr := testStore(t)
	ctx := context.Background()

	for _, k := range []string{"llm_pool:a:b", "llm_key_counter:a:b", "llm_key_session:s1:a:b", "unrelated"} {
		if err := s.Set(ctx, k, "x", 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := s.DelPattern(ctx, "llm_key_*"); err != nil {
		t.Fatalf("DelPattern failed: %v", err)
	}

	if mr.Exists("llm_key_counter:a:b") || mr.Exists("llm_key_session:s1:a:b") {
		t.Error("matching keys survived DelPattern")
	}
	if !mr.Exists("llm_pool:a:b") || !mr.Exists("unrelated") {
		t.Error("non-matching keys were deleted")
	}
}

func TestStore_DelPattern_NoMatches(t *testing.T) {
	s, _ := testStore(t)
	if err := s.DelPattern(context.Background(), "nothing:*"); err != nil {
		t.Errorf("empty match should be a no-op, got %v", err)
	}
}
