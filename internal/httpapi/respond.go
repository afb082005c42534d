// Package httpapi maps the application error taxonomy onto HTTP responses.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkwellhq/inkwell/internal/apperr"
)

// Error renders err as a JSON response with the status its kind implies.
// Raw provider and database messages never reach the client; they are logged
// and replaced with a stable message.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": string(kind)})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": string(kind)})
	case apperr.KindAuthorization:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "kind": string(kind)})
	case apperr.KindRateLimit:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "kind": string(kind)})
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed", "kind": string(kind)})
	}
}
