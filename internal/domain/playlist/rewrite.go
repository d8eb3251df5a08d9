package playlist

import (
	"strings"

	"streamgate-go/internal/domain/token"
	platformerrors "streamgate-go/internal/platform/errors"

	"github.com/mogiioin/hls-m3u8/m3u8"
)

// Rewrite injects the credential into every URI of a decoded playlist and
// re-encodes it. A zero credential re-encodes the playlist untouched.
func Rewrite(pl m3u8.Playlist, cred token.Credential) ([]byte, error) {
	switch p := pl.(type) {
	case *m3u8.MasterPlaylist:
		if !cred.IsZero() {
			// The encoder joins Args with "&" when a variant URI already
			// carries a query, so Args is safe here.
			p.Args = token.SignQuery(cred)
		}
		p.ResetCache()
		return p.Encode().Bytes(), nil
	case *m3u8.MediaPlaylist:
		if !cred.IsZero() {
			if err := signMedia(p, cred); err != nil {
				return nil, err
			}
		}
		p.ResetCache()
		return p.Encode().Bytes(), nil
	default:
		return nil, platformerrors.New(
			platformerrors.KindTransport, "rewrite", "unsupported playlist type")
	}
}

// signMedia attaches the credential to every segment of a media playlist.
// The Args fast path covers the common case of bare segment URIs; the
// encoder appends "?"+Args unconditionally, so segments that already carry
// a query are signed individually instead.
func signMedia(p *m3u8.MediaPlaylist, cred token.Credential) error {
	hasQuery := false
	for _, seg := range p.Segments {
		if seg == nil {
			continue
		}
		if strings.Contains(seg.URI, "?") {
			hasQuery = true
			break
		}
	}
	if !hasQuery {
		p.Args = token.SignQuery(cred)
		return nil
	}
	for _, seg := range p.Segments {
		if seg == nil {
			continue
		}
		signed, err := token.SignURL(seg.URI, cred)
		if err != nil {
			return platformerrors.Wrap(
				platformerrors.KindTransport, "rewrite", "sign segment uri", err)
		}
		seg.URI = signed
	}
	return nil
}
