package store

import (
	"context"
	"testing"
	"time"

	"streamgate-go/internal/domain/issuer/model"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: time.Minute,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	rec := model.Record{
		JTI:     "jti-redis",
		Subject: "viewer-1",
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := store.Get(ctx, rec.JTI)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.JTI != rec.JTI || got.Subject != rec.Subject {
		t.Fatalf("unexpected record: %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 || list[0] != rec.JTI {
		t.Fatalf("unexpected list: %v", list)
	}

	if err := store.Revoke(ctx, rec.JTI); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	revoked, err := store.Get(ctx, rec.JTI)
	if err != nil {
		t.Fatalf("Get after revoke: %v", err)
	}
	if !revoked.Revoked {
		t.Fatal("expected revoked flag to persist")
	}

	if err := store.Remove(ctx, rec.JTI); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := store.Get(ctx, rec.JTI); err == nil {
		t.Fatal("expected missing after removal")
	}
}

func TestRedisStoreKeyExpiry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL:   time.Minute,
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	exp := time.Now().Add(time.Second)
	rec := model.Record{JTI: "jti-ttl", Subject: "viewer-2", ExpiresAt: &exp}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := store.Get(ctx, rec.JTI); err == nil {
		t.Fatal("expected expired record to be gone")
	}
}

func TestRedisStoreRejectsExpiredSave(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL:   time.Minute,
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	exp := time.Now().Add(-time.Minute)
	rec := model.Record{JTI: "jti-dead", ExpiresAt: &exp}
	if err := store.Save(ctx, rec); err == nil {
		t.Fatal("expected save of already expired record to fail")
	}
}
