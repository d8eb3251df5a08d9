package token

import (
	"context"
	"sync"
	"time"

	"streamgate-go/internal/domain/eventbus"
	platformerrors "streamgate-go/internal/platform/errors"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshThreshold is the staleness margin before expiry at which a
// proactive refresh is triggered.
const DefaultRefreshThreshold = 15 * time.Second

// Logger is the minimal logging contract required by the token domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Options encapsulates the dependencies required to construct a Manager.
type Options struct {
	// Fetcher obtains replacement credentials. Nil means unauthenticated
	// playback: the manager becomes a pass-through returning the zero
	// credential.
	Fetcher Fetcher
	// RefreshThreshold is the freshness margin; DefaultRefreshThreshold
	// applies when zero.
	RefreshThreshold time.Duration
	// Subject tags published lifecycle events, optional.
	Subject string
	// Bus receives a token.renewed event after each successful refresh,
	// optional.
	Bus eventbus.Bus
	// Logger is optional.
	Logger Logger
	// Now overrides the clock, for tests.
	Now func() int64
}

// Manager holds the current playback credential and refreshes it through
// the configured fetcher exactly when required. Each player or gateway owns
// its own Manager instance; there is no shared module-level state.
//
// The manager never schedules its own refreshes. Staleness is detected
// lazily on the next Credential call, so any periodic refresh cadence is a
// caller concern.
type Manager struct {
	fetcher   Fetcher
	threshold int64
	subject   string
	bus       eventbus.Bus
	logger    Logger
	now       func() int64

	mu    sync.RWMutex
	cred  Credential
	group singleflight.Group
}

// NewManager wires a Manager using the supplied options.
func NewManager(opts Options) *Manager {
	threshold := opts.RefreshThreshold
	if threshold == 0 {
		threshold = DefaultRefreshThreshold
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Manager{
		fetcher:   opts.Fetcher,
		threshold: int64(threshold / time.Second),
		subject:   opts.Subject,
		bus:       opts.Bus,
		logger:    opts.Logger,
		now:       now,
	}
}

// Credential returns a credential that is not imminently expiring, fetching
// a replacement when the cached one is missing or inside the refresh
// threshold. Overlapping calls share a single in-flight fetch. A failed
// fetch surfaces a fetch-kind error and leaves the previously cached
// credential untouched.
func (m *Manager) Credential(ctx context.Context) (Credential, error) {
	if m.fetcher == nil {
		return Credential{}, nil
	}

	m.mu.RLock()
	cred := m.cred
	m.mu.RUnlock()

	if !cred.IsZero() && m.Fresh(cred, m.now()) {
		return cred, nil
	}

	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		// Another caller may have completed the refresh while this one
		// waited for the flight slot.
		m.mu.RLock()
		current := m.cred
		m.mu.RUnlock()
		if !current.IsZero() && m.Fresh(current, m.now()) {
			return current, nil
		}

		fresh, err := m.fetcher.Fetch(ctx)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("[TOKEN] refresh failed, keeping prior credential: %v", err)
			}
			return nil, platformerrors.Wrap(
				platformerrors.KindFetch, "refresh", "fetch callback failed", err)
		}
		if fresh.Token == "" || fresh.ExpiresAt <= 0 {
			return nil, platformerrors.New(
				platformerrors.KindFetch, "refresh", "fetch returned incomplete credential")
		}

		m.mu.Lock()
		m.cred = fresh
		m.mu.Unlock()

		if m.logger != nil {
			m.logger.Debug("[TOKEN] credential refreshed, expires_at=%d", fresh.ExpiresAt)
		}
		if m.bus != nil {
			m.bus.Publish(eventbus.TopicTokenRenewed, eventbus.TokenEvent{
				Subject:   m.subject,
				ExpiresAt: fresh.ExpiresAt,
				At:        time.Now(),
			})
		}
		return fresh, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Fresh reports whether the credential still has at least the refresh
// threshold of lifetime left at the given instant. Pure predicate.
func (m *Manager) Fresh(cred Credential, at int64) bool {
	return cred.RemainingAt(at) >= m.threshold
}

// Peek returns the stored credential without triggering a refresh.
func (m *Manager) Peek() Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred
}
