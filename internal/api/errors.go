package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/pkg/logging"
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error string `json:"error"`
}

// statusForError maps a domain error kind to its HTTP status. ErrForbidden
// maps to 404 like ErrNotFound so a hidden resource is indistinguishable
// from a missing one.
func statusForError(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrForbidden):
		return http.StatusNotFound
	case errors.Is(err, db.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped error response. Unknown errors are logged
// and reported as a bare 500; 404s share one body regardless of cause.
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	switch status {
	case http.StatusNotFound:
		c.JSON(status, errorResponse{Error: "not found"})
	case http.StatusConflict:
		c.JSON(status, errorResponse{Error: err.Error()})
	default:
		logging.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, errorResponse{Error: "internal server error"})
	}
}
