package issuer

import (
	"context"
	"testing"
	"time"

	"streamgate-go/internal/domain/eventbus"
	"streamgate-go/internal/domain/issuer/store"
	platformerrors "streamgate-go/internal/platform/errors"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	st := store.NewMemory(store.Config{TTL: time.Hour})
	svc, err := NewService(Options{
		Secret: "test-secret",
		TTL:    ttl,
		Store:  st,
		Logger: nopLogger{},
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Close()
	})
	return svc
}

func TestServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(Options{Store: store.NewMemory(store.Config{}), Logger: nopLogger{}}); err == nil {
		t.Error("expected error without secret")
	}
	if _, err := NewService(Options{Secret: "s", Logger: nopLogger{}}); err == nil {
		t.Error("expected error without store")
	}
	if _, err := NewService(Options{Secret: "s", Store: store.NewMemory(store.Config{})}); err == nil {
		t.Error("expected error without logger")
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, time.Hour)

	before := time.Now().Unix()
	cred, err := svc.Issue(ctx, "viewer-1", map[string]any{"channel": "sports"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if cred.Token == "" {
		t.Fatal("expected signed token")
	}
	wantExp := before + int64(time.Hour/time.Second)
	if cred.ExpiresAt < wantExp || cred.ExpiresAt > wantExp+2 {
		t.Fatalf("unexpected expiry %d, want about %d", cred.ExpiresAt, wantExp)
	}

	rec, err := svc.Verify(ctx, cred.Token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if rec.Subject != "viewer-1" {
		t.Fatalf("unexpected subject: %s", rec.Subject)
	}
	if rec.Metadata["channel"] != "sports" {
		t.Fatalf("metadata not persisted: %+v", rec.Metadata)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, time.Hour)

	cred, err := svc.Issue(ctx, "viewer-1", nil)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	tampered := cred.Token + "x"
	if _, err := svc.Verify(ctx, tampered); err == nil {
		t.Fatal("expected verification failure for tampered token")
	} else if !platformerrors.IsKind(err, platformerrors.KindToken) {
		t.Fatalf("expected token-kind error, got %v", err)
	}
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, time.Hour)

	cred, err := svc.Issue(ctx, "viewer-1", nil)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	rec, err := svc.Verify(ctx, cred.Token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	if err := svc.Revoke(ctx, rec.JTI); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if _, err := svc.Verify(ctx, cred.Token); err == nil {
		t.Fatal("expected verification failure after revocation")
	}
}

func TestFetcherIssuesCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, time.Hour)

	fetcher := svc.Fetcher("viewer-9")
	cred, err := fetcher.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if cred.Token == "" || cred.ExpiresAt == 0 {
		t.Fatalf("incomplete credential: %+v", cred)
	}

	rec, err := svc.Verify(ctx, cred.Token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if rec.Subject != "viewer-9" {
		t.Fatalf("unexpected subject: %s", rec.Subject)
	}
}

func TestIssuePublishesEvent(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.New()

	var events []eventbus.TokenEvent
	if err := bus.Subscribe(eventbus.TopicTokenIssued, func(e eventbus.TokenEvent) {
		events = append(events, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	st := store.NewMemory(store.Config{TTL: time.Hour})
	svc, err := NewService(Options{
		Secret: "test-secret",
		Store:  st,
		Logger: nopLogger{},
		Bus:    bus,
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Close()
	})

	if _, err := svc.Issue(ctx, "viewer-1", nil); err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if len(events) != 1 || events[0].Subject != "viewer-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
