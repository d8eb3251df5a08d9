package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"streamgate-go/internal/domain/issuer/model"
	"streamgate-go/internal/platform/storage"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed issuance store.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (s *sqliteStore) Save(ctx context.Context, rec model.Record) error {
	if rec.JTI == "" {
		return fmt.Errorf("jti required")
	}
	now := time.Now()
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = now
	}
	if rec.ExpiresAt == nil && s.ttl > 0 {
		exp := rec.IssuedAt.Add(s.ttl)
		rec.ExpiresAt = &exp
	}
	meta, _ := json.Marshal(rec.Metadata)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("jti = ?", rec.JTI).Delete(&storage.IssuedToken{}).Error; err != nil {
			return err
		}
		record := &storage.IssuedToken{
			JTI:       rec.JTI,
			Subject:   rec.Subject,
			IssuedAt:  rec.IssuedAt,
			ExpiresAt: rec.ExpiresAt,
			Revoked:   rec.Revoked,
			Metadata:  datatypes.JSON(meta),
		}
		return tx.Create(record).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, jti string) (model.Record, error) {
	rec, err := s.fetch(ctx, jti)
	if err != nil {
		return model.Record{}, err
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return model.Record{}, fmt.Errorf("token expired: %s", jti)
	}
	return rec, nil
}

func (s *sqliteStore) Revoke(ctx context.Context, jti string) error {
	res := s.db.WithContext(ctx).
		Model(&storage.IssuedToken{}).
		Where("jti = ?", jti).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("token not found: %s", jti)
	}
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, jti string) error {
	return s.db.WithContext(ctx).Where("jti = ?", jti).Delete(&storage.IssuedToken{}).Error
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	var tokens []storage.IssuedToken
	if err := s.db.WithContext(ctx).Select("jti", "expires_at").Find(&tokens).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	ids := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.ExpiresAt == nil || now.Before(*tok.ExpiresAt) {
			ids = append(ids, tok.JTI)
		}
	}
	return ids, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&storage.IssuedToken{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.IssuedToken{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var revoked int64
	if err := s.db.WithContext(ctx).
		Model(&storage.IssuedToken{}).
		Where("revoked = ?", true).
		Count(&revoked).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    "sqlite",
		"total":   total,
		"revoked": revoked,
		"ttl":     int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func (s *sqliteStore) fetch(ctx context.Context, jti string) (model.Record, error) {
	var tok storage.IssuedToken
	err := s.db.WithContext(ctx).Where("jti = ?", jti).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Record{}, fmt.Errorf("token not found: %s", jti)
	}
	if err != nil {
		return model.Record{}, err
	}
	rec := model.Record{
		JTI:       tok.JTI,
		Subject:   tok.Subject,
		IssuedAt:  tok.IssuedAt,
		ExpiresAt: tok.ExpiresAt,
		Revoked:   tok.Revoked,
	}
	if len(tok.Metadata) > 0 {
		_ = json.Unmarshal(tok.Metadata, &rec.Metadata)
	}
	return rec, nil
}
