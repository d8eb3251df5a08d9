package token

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	platformerrors "streamgate-go/internal/platform/errors"

	"github.com/bytedance/sonic"
)

// Fetcher obtains a replacement credential from a backend. It encapsulates
// all backend specifics (endpoint, headers, signing, timeouts); the manager
// treats it as an opaque capability and only requires the return shape.
type Fetcher interface {
	Fetch(ctx context.Context) (Credential, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (Credential, error)

func (f FetcherFunc) Fetch(ctx context.Context) (Credential, error) {
	return f(ctx)
}

const defaultFetchTimeout = 10 * time.Second

// HTTPFetcherOptions configures an HTTPFetcher.
type HTTPFetcherOptions struct {
	// Endpoint is the token-issuing URL, required.
	Endpoint string
	// Subject is sent in the request body to identify the viewer.
	Subject string
	// Headers are attached to every request (API keys and the like).
	Headers map[string]string
	// Timeout bounds each request when no custom Client is supplied.
	Timeout time.Duration
	// Client overrides the HTTP client entirely.
	Client *http.Client
}

// HTTPFetcher fetches credentials from a remote token endpoint. It owns its
// own timeout policy; the lifecycle manager imposes no deadline of its own.
type HTTPFetcher struct {
	endpoint string
	subject  string
	headers  map[string]string
	client   *http.Client
}

// NewHTTPFetcher builds a fetcher for the given endpoint.
func NewHTTPFetcher(opts HTTPFetcherOptions) (*HTTPFetcher, error) {
	if opts.Endpoint == "" {
		return nil, platformerrors.New(
			platformerrors.KindConfig,
			"fetcher",
			"token endpoint required",
		)
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPFetcher{
		endpoint: opts.Endpoint,
		subject:  opts.Subject,
		headers:  opts.Headers,
		client:   client,
	}, nil
}

type fetchRequest struct {
	Subject string `json:"subject,omitempty"`
}

// Fetch requests a fresh credential and validates the payload shape.
func (f *HTTPFetcher) Fetch(ctx context.Context) (Credential, error) {
	body, err := sonic.Marshal(fetchRequest{Subject: f.subject})
	if err != nil {
		return Credential{}, platformerrors.Wrap(
			platformerrors.KindFetch, "fetch", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return Credential{}, platformerrors.Wrap(
			platformerrors.KindFetch, "fetch", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Credential{}, platformerrors.Wrap(
			platformerrors.KindFetch, "fetch", "token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, platformerrors.New(
			platformerrors.KindFetch,
			"fetch",
			fmt.Sprintf("token endpoint returned %d", resp.StatusCode),
		)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, platformerrors.Wrap(
			platformerrors.KindFetch, "fetch", "read response", err)
	}

	var cred Credential
	if err := sonic.Unmarshal(raw, &cred); err != nil {
		return Credential{}, platformerrors.Wrap(
			platformerrors.KindFetch, "fetch", "malformed payload", err)
	}
	if cred.Token == "" || cred.ExpiresAt <= 0 {
		return Credential{}, platformerrors.New(
			platformerrors.KindFetch, "fetch", "payload missing token or expiry")
	}
	return cred, nil
}
