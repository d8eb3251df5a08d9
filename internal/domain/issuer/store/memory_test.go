package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"streamgate-go/internal/domain/issuer/model"
)

func TestMemoryStoreBasicLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{
		TTL:    time.Second,
		Memory: &MemoryConfig{GCInterval: 10 * time.Millisecond},
	})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	rec := model.Record{
		JTI:      "jti-basic",
		Subject:  "viewer-1",
		Metadata: map[string]any{"channel": "sports"},
	}

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	stored, err := store.Get(ctx, rec.JTI)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.JTI != rec.JTI || stored.Subject != rec.Subject {
		t.Fatalf("unexpected record: %+v", stored)
	}
	if stored.ExpiresAt == nil {
		t.Fatal("expected TTL-derived expiry to be set")
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != rec.JTI {
		t.Fatalf("expected list to include record: %v", ids)
	}

	if err := store.Revoke(ctx, rec.JTI); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	revoked, err := store.Get(ctx, rec.JTI)
	if err != nil {
		t.Fatalf("Get after revoke: %v", err)
	}
	if !revoked.Revoked {
		t.Fatal("expected record to be marked revoked")
	}

	if err := store.Remove(ctx, rec.JTI); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := store.Get(ctx, rec.JTI); err == nil {
		t.Fatal("expected get error after removal")
	}
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{
		TTL:    50 * time.Millisecond,
		Memory: &MemoryConfig{GCInterval: 5 * time.Millisecond},
	})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	rec := model.Record{JTI: "jti-expire", Subject: "viewer-2"}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := store.Get(ctx, rec.JTI); err == nil {
		t.Fatal("expected get to fail after expiration")
	} else if !strings.Contains(err.Error(), "expired") && !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired returned error: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats["active"].(int) != 0 {
		t.Fatalf("expected active count to be zero, got %v", stats["active"])
	}
}

func TestMemoryStoreRevokeMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{TTL: time.Second})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	if err := store.Revoke(ctx, "nope"); err == nil {
		t.Fatal("expected error revoking unknown jti")
	}
}
