package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"burn.note/internal/models"
)

// Needs a local redis; skipped when none is reachable.
func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	s, err := NewRedisStore(&redis.Options{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
	})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreMessageLifecycle(t *testing.T) {
	s := newRedisTestStore(t)
	ctx := context.Background()

	msg := newTestMessage("redis-m1")
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("save: %v", err)
	}
	defer s.client.Del(ctx, messageKey("redis-m1"), responsesKey("redis-m1"))

	got, err := s.GetMessage(ctx, "redis-m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AdminToken != "token-redis-m1" {
		t.Fatalf("unexpected message: %+v", got)
	}

	got.Content = "edited"
	if err := s.UpdateMessage(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp := &models.Response{ID: "r1", MessageID: "redis-m1", Content: "hi", CreatedAt: time.Now()}
	if err := s.SaveResponse(ctx, resp); err != nil {
		t.Fatalf("save response: %v", err)
	}
	responses, err := s.ListResponses(ctx, "redis-m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(responses) != 1 || responses[0].Content != "hi" {
		t.Fatalf("unexpected responses: %+v", responses)
	}

	if err := s.DeleteMessage(ctx, "redis-m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMessage(ctx, "redis-m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: want ErrNotFound, got %v", err)
	}
	responses, err = s.ListResponses(ctx, "redis-m1")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(responses) != 0 {
		t.Fatalf("responses survived destroy: %d remain", len(responses))
	}
	if err := s.DeleteMessage(ctx, "redis-m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestRedisStoreOrphanResponseRejected(t *testing.T) {
	s := newRedisTestStore(t)

	orphan := &models.Response{ID: "r1", MessageID: "redis-missing", Content: "x", CreatedAt: time.Now()}
	err := s.SaveResponse(context.Background(), orphan)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
