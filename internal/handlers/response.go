package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookrental/internal/domain"
)

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": status < http.StatusBadRequest, "message": message})
}

// respondError maps the error category to a status code. Store failures are
// reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		respondMessage(c, status, "internal server error")
		return
	}
	respondMessage(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidStock):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// idParam parses the :id path parameter, writing a 400 on failure.
func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
