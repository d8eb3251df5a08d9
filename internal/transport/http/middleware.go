package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"streamgate-go/internal/platform/logging"
)

// APIKeyMiddleware guards management endpoints with a shared key, accepted
// either as "Authorization: Bearer <key>" or in the X-API-Key header. An
// empty configured key disables the check, which is the development default.
func APIKeyMiddleware(apiKey string, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if presented != apiKey {
			if logger != nil {
				logger.Warn("[HTTP] rejected request to %s: bad api key", c.Request.URL.Path)
			}
			RespondError(c, http.StatusUnauthorized, "invalid api key", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
