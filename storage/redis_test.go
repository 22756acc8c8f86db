package storage

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"taskpad/domain"
)

func newTestRedisStore(t *testing.T) (*RedisBlobStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisBlobStore(client), mr
}

func TestRedisBlobStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, "k", "v1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx, "k")
	if err != nil || !ok || got != "v1" {
		t.Fatalf("load: got=%q ok=%v err=%v", got, ok, err)
	}

	// Save is a full overwrite.
	if err := store.Save(ctx, "k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = store.Load(ctx, "k")
	if got != "v2" {
		t.Fatalf("expected overwritten value, got %q", got)
	}
}

func TestRedisBlobStoreLoadPropagatesServerErrors(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	if _, _, err := store.Load(context.Background(), "k"); err == nil {
		t.Fatal("expected an error once the server is gone")
	}
}

func TestNewRedisBlobStoreFromConnString(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	// URL form.
	store, err := NewRedisBlobStoreFromConnString("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("url form: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Save(context.Background(), "k", "v"); err != nil {
		t.Fatalf("save via url-form client: %v", err)
	}

	// Comma-separated managed-cache form with a password.
	mr.RequireAuth("sekret")
	authed, err := NewRedisBlobStoreFromConnString(mr.Addr() + ",password=sekret,ssl=false")
	if err != nil {
		t.Fatalf("comma form: %v", err)
	}
	t.Cleanup(func() { _ = authed.Close() })
	if err := authed.Save(context.Background(), "k2", "v2"); err != nil {
		t.Fatalf("save via comma-form client: %v", err)
	}

	if _, err := NewRedisBlobStoreFromConnString(""); err == nil {
		t.Fatal("expected error for empty connection string")
	}
}

// TestStoreOverRedisSurvivesRestart drives the full stack: TaskStore ->
// Adapter -> RedisBlobStore, then rebuilds the store from the same medium
// the way a new session would.
func TestStoreOverRedisSurvivesRestart(t *testing.T) {
	blobStore, _ := newTestRedisStore(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	adapter := NewAdapter(blobStore, "", logger)
	s := domain.NewTaskStore(ctx, adapter, logger)

	milk, err := s.Create(ctx, "Buy milk", "2024-06-01")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "Walk dog", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	done := true
	if _, err := s.Update(ctx, milk.ID, domain.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// New session over the same medium.
	reloaded := domain.NewTaskStore(ctx, NewAdapter(blobStore, "", logger), logger)
	got := reloaded.All()
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks after reload, got %d", len(got))
	}
	if got[0].ID != milk.ID || !got[0].Completed || got[0].Due != "2024-06-01" {
		t.Fatalf("reloaded state diverged: %#v", got[0])
	}
	if got[1].Title != "Walk dog" || got[1].Order != 1 {
		t.Fatalf("reloaded state diverged: %#v", got[1])
	}
}
