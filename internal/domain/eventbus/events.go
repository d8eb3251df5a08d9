package eventbus

import "time"

// Topics published on the credential lifecycle.
const (
	TopicTokenIssued  = "token.issued"
	TopicTokenRenewed = "token.renewed"
	TopicTokenRevoked = "token.revoked"
)

// TokenEvent is the payload for every token lifecycle topic.
type TokenEvent struct {
	JTI       string    `json:"jti,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt int64     `json:"expires_at,omitempty"`
	At        time.Time `json:"at"`
}
