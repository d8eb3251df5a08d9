package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"streamgate-go/internal/domain/issuer/model"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed issuance store. Expiry is delegated to
// redis key TTLs.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "issuer:token:"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisStore{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(jti string) string {
	return s.prefix + jti
}

func (s *redisStore) Save(ctx context.Context, rec model.Record) error {
	if rec.JTI == "" {
		return fmt.Errorf("jti required")
	}
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	expiry := s.ttl
	if rec.ExpiresAt != nil {
		expiry = time.Until(*rec.ExpiresAt)
	}
	if expiry <= 0 {
		return fmt.Errorf("record already expired: %s", rec.JTI)
	}
	return s.client.Set(ctx, s.key(rec.JTI), data, expiry).Err()
}

func (s *redisStore) Get(ctx context.Context, jti string) (model.Record, error) {
	raw, err := s.client.Get(ctx, s.key(jti)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return model.Record{}, fmt.Errorf("token not found: %s", jti)
		}
		return model.Record{}, err
	}
	var rec model.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.Record{}, err
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		_ = s.Remove(ctx, jti)
		return model.Record{}, fmt.Errorf("token expired: %s", jti)
	}
	return rec, nil
}

func (s *redisStore) Revoke(ctx context.Context, jti string) error {
	rec, err := s.Get(ctx, jti)
	if err != nil {
		return err
	}
	rec.Revoked = true
	return s.Save(ctx, rec)
}

func (s *redisStore) Remove(ctx context.Context, jti string) error {
	return s.client.Del(ctx, s.key(jti)).Err()
}

func (s *redisStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	ids := make([]string, 0)
	pattern := s.prefix + "*"
	for {
		res, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range res {
			ids = append(ids, strings.TrimPrefix(key, s.prefix))
		}
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return ids, nil
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis handles expiration via TTL.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	size, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  "redis",
		"total": size,
		"ttl":   int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
