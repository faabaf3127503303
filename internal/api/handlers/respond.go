// Package handlers implements the Varhold HTTP endpoints.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/varhold/varhold/internal/apperr"
)

// respondError maps a classified error to its HTTP status and writes the
// standard error body. Unclassified errors become a 500 with a generic
// message so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(apperr.KindOf(err))
	c.JSON(status, gin.H{"error": apperr.MessageOf(err), "status": status})
}
