package state

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

func TestNewRedisStoreValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisStore(RedisConfig{}); err == nil {
		t.Fatal("expected error for empty addr")
	}
	if _, err := NewRedisStore(RedisConfig{Addr: "localhost:6379", TTL: -time.Second}); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestRedisStoreKey(t *testing.T) {
	t.Parallel()

	store := NewRedisStoreWithClient(nil, "", 0)
	key, err := store.key("user-1")
	if err != nil || key != "hotel:session:user-1" {
		t.Fatalf("key() = %q, %v", key, err)
	}
	if _, err := store.key(" "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("key() error = %v", err)
	}
}

// Runs against a live server when REDIS_TEST_ADDR is set.
func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	store, err := NewRedisStore(RedisConfig{Addr: addr, KeyPrefix: "test:hotel:session:", TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	_ = store.Delete(ctx, "roundtrip")

	sess := NewSession("roundtrip", time.Now())
	sess.Log = append(sess.Log, schema.UserMessage("hi"))
	sess.Version = 1
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	stale := sess.Clone()
	if err := store.Save(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Save(stale) error = %v, want ErrVersionConflict", err)
	}

	got, err := store.Load(ctx, "roundtrip")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Version != 1 || len(got.Log) != 1 {
		t.Fatalf("unexpected session: %#v", got)
	}

	if err := store.Delete(ctx, "roundtrip"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "roundtrip"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after delete error = %v", err)
	}
}
