package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streamgate-go/internal/domain/eventbus"
	"streamgate-go/internal/domain/issuer/model"
	"streamgate-go/internal/domain/issuer/store"
	"streamgate-go/internal/domain/token"
	platformerrors "streamgate-go/internal/platform/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type (
	// Record re-exports the shared issuance entity for callers.
	Record = model.Record
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

// DefaultTTL is the credential lifetime when none is configured.
const DefaultTTL = time.Hour

// Options encapsulates the dependencies required to construct a Service.
type Options struct {
	Secret   string
	TTL      time.Duration
	Audience string
	Store    store.Store
	Logger   Logger
	Bus      eventbus.Bus
}

// Service signs playback credentials and tracks their issuance records so
// tokens can be verified and revoked. It is the in-process backend behind
// the default fetcher.
type Service struct {
	secret   []byte
	ttl      time.Duration
	audience string
	store    store.Store
	logger   Logger
	bus      eventbus.Bus
}

// NewService wires a Service using the supplied options.
func NewService(opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("issuer requires a signing secret")
	}
	if opts.Store == nil {
		return nil, errors.New("issuer requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("issuer requires a logger")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret:   []byte(opts.Secret),
		ttl:      ttl,
		audience: opts.Audience,
		store:    opts.Store,
		logger:   opts.Logger,
		bus:      opts.Bus,
	}, nil
}

// Issue signs a credential for the subject and persists its issuance record.
func (s *Service) Issue(ctx context.Context, subject string, metadata map[string]any) (token.Credential, error) {
	if err := ctx.Err(); err != nil {
		return token.Credential{}, err
	}

	now := time.Now()
	exp := now.Add(s.ttl)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub": subject,
		"jti": jti,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return token.Credential{}, platformerrors.Wrap(
			platformerrors.KindToken, "issue", "sign token", err)
	}

	rec := model.Record{
		JTI:       jti,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: &exp,
		Metadata:  metadata,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return token.Credential{}, platformerrors.Wrap(
			platformerrors.KindStorage, "issue", "persist issuance record", err)
	}

	s.logger.Debug("[ISSUER] issued token %s for %s, expires %d", jti, subject, exp.Unix())
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicTokenIssued, eventbus.TokenEvent{
			JTI:       jti,
			Subject:   subject,
			ExpiresAt: exp.Unix(),
			At:        now,
		})
	}

	return token.Credential{
		Token:     signed,
		ExpiresAt: exp.Unix(),
	}, nil
}

// Verify checks signature, expiry and revocation, returning the issuance
// record for a valid token.
func (s *Service) Verify(ctx context.Context, raw string) (model.Record, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return model.Record{}, platformerrors.Wrap(
			platformerrors.KindToken, "verify", "parse token", err)
	}
	if !parsed.Valid {
		return model.Record{}, platformerrors.New(
			platformerrors.KindToken, "verify", "invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.Record{}, platformerrors.New(
			platformerrors.KindToken, "verify", "invalid claims")
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return model.Record{}, platformerrors.New(
			platformerrors.KindToken, "verify", "missing jti claim")
	}

	rec, err := s.store.Get(ctx, jti)
	if err != nil {
		return model.Record{}, platformerrors.Wrap(
			platformerrors.KindToken, "verify", "issuance record lookup failed", err)
	}
	if rec.Revoked {
		return model.Record{}, platformerrors.New(
			platformerrors.KindToken, "verify", "token revoked")
	}
	return rec, nil
}

// Revoke invalidates an issued token by jti.
func (s *Service) Revoke(ctx context.Context, jti string) error {
	if err := s.store.Revoke(ctx, jti); err != nil {
		return platformerrors.Wrap(
			platformerrors.KindStorage, "revoke", "mark token revoked", err)
	}
	s.logger.Info("[ISSUER] revoked token %s", jti)
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicTokenRevoked, eventbus.TokenEvent{
			JTI: jti,
			At:  time.Now(),
		})
	}
	return nil
}

// Fetcher adapts the service to the lifecycle manager's fetch-callback
// capability. This is the default in-process implementation; HTTPFetcher is
// the bring-your-own-backend one, and the manager treats both identically.
func (s *Service) Fetcher(subject string) token.Fetcher {
	return token.FetcherFunc(func(ctx context.Context) (token.Credential, error) {
		return s.Issue(ctx, subject, nil)
	})
}

// List returns active token identifiers.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Stats returns debug information from the store backend.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	return s.store.Stats(ctx)
}

// Close releases underlying resources.
func (s *Service) Close() error {
	return s.store.Close(context.Background())
}
