package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/pkg/logging"
	"github.com/chirpnet/chirp/pkg/telemetry"
)

// viewerHeader carries the acting account's handle. It stands in for the
// session layer, which terminates upstream of this service.
const viewerHeader = "X-Chirp-Viewer"

const viewerContextKey = "viewer"

// ViewerResolver resolves the viewer header against the users table and
// stores the account on the request context. Requests without the header
// proceed anonymously; banned accounts are refused outright.
func ViewerResolver(users *db.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle := strings.TrimSpace(c.GetHeader(viewerHeader))
		if handle == "" {
			c.Next()
			return
		}

		user, err := users.GetByHandle(c.Request.Context(), strings.ToLower(handle))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if user == nil || user.State == models.UserStateBanned {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unknown viewer"})
			return
		}

		c.Set(viewerContextKey, user)
		c.Next()
	}
}

// RequireViewer rejects anonymous requests on viewer-only routes
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Viewer(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "viewer required"})
			return
		}
		c.Next()
	}
}

// Viewer returns the resolved viewer, or nil for anonymous requests
func Viewer(c *gin.Context) *models.User {
	v, ok := c.Get(viewerContextKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// RequestLogger logs one line per request with latency and status
func RequestLogger() gin.HandlerFunc {
	logger := logging.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Tracing wraps each request in a span named after the matched route
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		ctx, span := telemetry.StartServerSpan(c.Request.Context(), c.Request.Method, name)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
