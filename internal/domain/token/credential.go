package token

// Credential is the token + expiry pair used to authorize playlist and
// segment requests. It is created by a successful fetch, replaced wholesale
// on refresh and never mutated field by field.
type Credential struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// IsZero reports whether no credential has been obtained yet.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// RemainingAt returns the seconds of lifetime left at the given instant.
// Negative values mean the credential already expired.
func (c Credential) RemainingAt(at int64) int64 {
	return c.ExpiresAt - at
}
