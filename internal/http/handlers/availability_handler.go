// README: Availability handler; shows where vehicles of one category are free for a period.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carhire/internal/modules/quote"
	"carhire/internal/types"
)

type AvailabilityHandler struct {
	resolver quote.AvailabilityResolver
	timeout  time.Duration
}

func NewAvailabilityHandler(resolver quote.AvailabilityResolver, timeout time.Duration) *AvailabilityHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AvailabilityHandler{resolver: resolver, timeout: timeout}
}

func (h *AvailabilityHandler) Get(c *gin.Context) {
	categoryID := c.Query("category_id")
	if !isValidID(categoryID) {
		writeError(c, http.StatusBadRequest, "invalid category_id")
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "end must be RFC 3339")
		return
	}
	if end.Before(start) {
		writeError(c, http.StatusBadRequest, "end is before start")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	av, err := h.resolver.Resolve(ctx, types.ID(categoryID), start, end)
	if err != nil {
		writeAvailabilityError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, av)
}
