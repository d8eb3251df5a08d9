package storage

import (
	"time"

	"gorm.io/datatypes"
)

// IssuedToken is the persisted record of a credential handed out by the
// issuer. The raw token is not stored; the jti is enough to verify and
// revoke.
type IssuedToken struct {
	ID        uint       `gorm:"primaryKey"`
	JTI       string     `gorm:"column:jti;uniqueIndex;size:64"`
	Subject   string     `gorm:"index;size:128"`
	IssuedAt  time.Time  `gorm:"index"`
	ExpiresAt *time.Time `gorm:"index"`
	Revoked   bool
	Metadata  datatypes.JSON
}

func (IssuedToken) TableName() string {
	return "issued_tokens"
}
