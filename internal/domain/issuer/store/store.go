package store

import (
	"context"
	"time"

	"streamgate-go/internal/domain/issuer/model"
)

// Store defines the behaviour required by the issuer service.
type Store interface {
	Save(ctx context.Context, rec model.Record) error
	Get(ctx context.Context, jti string) (model.Record, error)
	Revoke(ctx context.Context, jti string) error
	Remove(ctx context.Context, jti string) error
	List(ctx context.Context) ([]string, error)
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	SQLite *SQLiteConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// SQLiteConfig provides the database dependency.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
