package httptransport

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"streamgate-go/internal/domain/issuer"
	"streamgate-go/internal/domain/playlist"
	platformerrors "streamgate-go/internal/platform/errors"
	"streamgate-go/internal/platform/logging"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// Service exposes token issuance and playlist proxying over HTTP.
type Service struct {
	issuer  *issuer.Service
	gateway *playlist.Gateway
	logger  *logging.Logger
	started time.Time
}

// NewService wires the HTTP handlers to the domain services.
func NewService(iss *issuer.Service, gw *playlist.Gateway, logger *logging.Logger) *Service {
	return &Service{
		issuer:  iss,
		gateway: gw,
		logger:  logger,
		started: time.Now(),
	}
}

// Register attaches all routes to the router. Issuance and revocation sit
// behind the secured group; verification, playlist and system info are open.
func (s *Service) Register(r *Router) {
	r.Secured.POST("/token", s.handleIssue)
	r.Secured.DELETE("/token/:jti", s.handleRevoke)
	r.Secured.GET("/tokens", s.handleList)

	r.API.GET("/token/verify", s.handleVerify)
	r.API.GET("/playlist", s.handlePlaylist)
	r.API.GET("/system", s.handleSystem)

	if s.logger != nil {
		s.logger.InfoTag("HTTP", "api routes registered")
	}
}

type issueRequest struct {
	Subject  string         `json:"subject" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Service) handleIssue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", gin.H{"error": err.Error()})
		return
	}

	cred, err := s.issuer.Issue(c.Request.Context(), req.Subject, req.Metadata)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "token issuance failed", gin.H{"error": err.Error()})
		return
	}
	RespondSuccess(c, http.StatusOK, cred, "token issued")
}

func (s *Service) handleVerify(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if raw == "" {
		RespondError(c, http.StatusBadRequest, "missing token", nil)
		return
	}

	rec, err := s.issuer.Verify(c.Request.Context(), raw)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "token rejected", gin.H{"error": err.Error()})
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{
		"jti":        rec.JTI,
		"subject":    rec.Subject,
		"issued_at":  rec.IssuedAt.Unix(),
		"expires_at": unixOrZero(rec.ExpiresAt),
		"metadata":   rec.Metadata,
	}, "token valid")
}

func (s *Service) handleRevoke(c *gin.Context) {
	jti := c.Param("jti")
	if err := s.issuer.Revoke(c.Request.Context(), jti); err != nil {
		RespondError(c, http.StatusNotFound, "revocation failed", gin.H{"error": err.Error()})
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"jti": jti}, "token revoked")
}

func (s *Service) handleList(c *gin.Context) {
	jtis, err := s.issuer.List(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "listing failed", gin.H{"error": err.Error()})
		return
	}
	stats, err := s.issuer.Stats(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats failed", gin.H{"error": err.Error()})
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"tokens": jtis, "stats": stats}, "")
}

func (s *Service) handlePlaylist(c *gin.Context) {
	src := c.Query("src")
	if src == "" {
		RespondError(c, http.StatusBadRequest, "missing src parameter", nil)
		return
	}

	out, err := s.gateway.Fetch(c.Request.Context(), src)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case platformerrors.IsKind(err, platformerrors.KindTransport):
			status = http.StatusBadGateway
		case platformerrors.IsKind(err, platformerrors.KindFetch):
			status = http.StatusBadGateway
		}
		RespondError(c, status, "playlist fetch failed", gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, playlistContentType, out)
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}
