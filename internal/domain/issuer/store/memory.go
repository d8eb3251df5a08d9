package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"streamgate-go/internal/domain/issuer/model"
)

type memoryStore struct {
	items       map[string]model.Record
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory issuance store.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]model.Record),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Save(_ context.Context, rec model.Record) error {
	if rec.JTI == "" {
		return fmt.Errorf("jti required")
	}
	now := time.Now()
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = now
	}
	if rec.ExpiresAt == nil && s.ttl > 0 {
		exp := now.Add(s.ttl)
		rec.ExpiresAt = &exp
	}

	s.mutex.Lock()
	s.items[rec.JTI] = rec
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, jti string) (model.Record, error) {
	s.mutex.RLock()
	rec, ok := s.items[jti]
	s.mutex.RUnlock()
	if !ok {
		return model.Record{}, fmt.Errorf("token not found: %s", jti)
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return model.Record{}, fmt.Errorf("token expired: %s", jti)
	}
	return rec, nil
}

func (s *memoryStore) Revoke(_ context.Context, jti string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.items[jti]
	if !ok {
		return fmt.Errorf("token not found: %s", jti)
	}
	rec.Revoked = true
	s.items[jti] = rec
	return nil
}

func (s *memoryStore) Remove(_ context.Context, jti string) error {
	s.mutex.Lock()
	delete(s.items, jti)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id, rec := range s.items {
		if rec.ExpiresAt == nil || now.Before(*rec.ExpiresAt) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for id, rec := range s.items {
		if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := len(s.items)
	active := 0
	revoked := 0
	for _, rec := range s.items {
		if rec.Revoked {
			revoked++
			continue
		}
		if rec.ExpiresAt == nil || now.Before(*rec.ExpiresAt) {
			active++
		}
	}
	return map[string]any{
		"type":        "memory",
		"total":       total,
		"active":      active,
		"revoked":     revoked,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
