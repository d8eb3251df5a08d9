package model

import "time"

// Record captures the issuance metadata persisted for one credential. The
// raw token never touches the store; the jti identifies it for verification
// and revocation.
type Record struct {
	JTI       string         `json:"jti"`
	Subject   string         `json:"subject"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Revoked   bool           `json:"revoked"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Logger provides the minimal logging contract required by the issuer domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
