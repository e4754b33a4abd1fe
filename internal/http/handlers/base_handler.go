// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"phlebo/internal/modules/assignment"
	"phlebo/internal/modules/capacity"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/dispatch"
	"phlebo/internal/modules/matching"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module sentinel errors onto HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, collector.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, collector.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, assignment.ErrNotEligible), errors.Is(err, matching.ErrLocationRequired):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, capacity.ErrCapacityExceeded),
		errors.Is(err, assignment.ErrAlreadyAssigned),
		errors.Is(err, assignment.ErrNotAssigned),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, dispatch.ErrLocationUnknown):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func pathID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing id")
		return "", false
	}
	return types.ID(id), true
}
