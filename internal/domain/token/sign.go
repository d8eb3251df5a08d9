package token

import (
	"net/url"
	"strconv"
)

// SignURL appends the credential as token and expires_at query parameters,
// preserving any parameters already present. A zero credential leaves the
// URL unchanged, which is the unauthenticated playback path.
func SignURL(rawURL string, cred Credential) (string, error) {
	if cred.IsZero() {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", cred.Token)
	q.Set("expires_at", strconv.FormatInt(cred.ExpiresAt, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SignQuery renders the credential as a bare query string, for playlist
// rewriters that append arguments to every URI themselves.
func SignQuery(cred Credential) string {
	if cred.IsZero() {
		return ""
	}
	q := url.Values{}
	q.Set("token", cred.Token)
	q.Set("expires_at", strconv.FormatInt(cred.ExpiresAt, 10))
	return q.Encode()
}
