package playlist

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"streamgate-go/internal/domain/token"
	platformerrors "streamgate-go/internal/platform/errors"

	"github.com/mogiioin/hls-m3u8/m3u8"
)

// maxPlaylistBytes caps upstream playlist responses.
const maxPlaylistBytes = 10 << 20

// DefaultTimeout bounds a single upstream playlist request.
const DefaultTimeout = 10 * time.Second

// Options encapsulates the dependencies required to construct a Gateway.
type Options struct {
	// Manager supplies the credential injected into rewritten playlists.
	Manager *token.Manager
	// AllowedHosts restricts upstream targets. Empty means any host.
	AllowedHosts []string
	// Timeout bounds the upstream request; DefaultTimeout applies when zero.
	Timeout time.Duration
	// Client overrides the HTTP client, for tests.
	Client *http.Client
	// Logger is optional.
	Logger token.Logger
}

// Gateway proxies HLS playlists from upstream origins, signing every URI
// with the current playback credential before handing the playlist back.
type Gateway struct {
	manager *token.Manager
	allowed map[string]struct{}
	client  *http.Client
	logger  token.Logger
}

// NewGateway wires a Gateway using the supplied options.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Manager == nil {
		return nil, platformerrors.New(
			platformerrors.KindConfig, "gateway", "gateway requires a token manager")
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	var allowed map[string]struct{}
	if len(opts.AllowedHosts) > 0 {
		allowed = make(map[string]struct{}, len(opts.AllowedHosts))
		for _, h := range opts.AllowedHosts {
			allowed[h] = struct{}{}
		}
	}
	return &Gateway{
		manager: opts.Manager,
		allowed: allowed,
		client:  client,
		logger:  opts.Logger,
	}, nil
}

// Fetch retrieves the playlist at src, rewrites its URIs with the current
// credential and returns the encoded result.
func (g *Gateway) Fetch(ctx context.Context, src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, platformerrors.Wrap(
			platformerrors.KindTransport, "fetch", "parse source url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, platformerrors.New(
			platformerrors.KindTransport, "fetch", "source must be http or https")
	}
	if g.allowed != nil {
		if _, ok := g.allowed[u.Hostname()]; !ok {
			return nil, platformerrors.New(
				platformerrors.KindTransport, "fetch", "upstream host not allowed: "+u.Hostname())
		}
	}

	cred, err := g.manager.Credential(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, platformerrors.Wrap(
			platformerrors.KindTransport, "fetch", "build upstream request", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, platformerrors.Wrap(
			platformerrors.KindTransport, "fetch", "upstream request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, platformerrors.New(
			platformerrors.KindTransport, "fetch", "upstream returned "+resp.Status)
	}

	pl, _, err := m3u8.DecodeFrom(io.LimitReader(resp.Body, maxPlaylistBytes), false)
	if err != nil {
		return nil, platformerrors.Wrap(
			platformerrors.KindTransport, "fetch", "decode upstream playlist", err)
	}

	out, err := Rewrite(pl, cred)
	if err != nil {
		return nil, err
	}
	if g.logger != nil {
		g.logger.Debug("[GATEWAY] rewrote playlist from %s (%d bytes)", u.Host, len(out))
	}
	return out, nil
}
