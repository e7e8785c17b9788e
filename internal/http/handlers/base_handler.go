// README: Base handler utilities (JSON helpers, binding validators, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"carhire/internal/modules/fleet"
	"carhire/internal/modules/pricing"
	"carhire/internal/modules/quote"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts short slugs such as category and branch ids.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func isValidQuoteID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		writeError(c, http.StatusBadRequest, "invalid field "+verrs[0].Field()+": failed "+verrs[0].Tag())
		return
	}
	writeError(c, http.StatusBadRequest, "invalid json")
}

func writeQuoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quote.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, quote.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrInvalidState), errors.Is(err, quote.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, quote.ErrPersistence):
		writeError(c, http.StatusServiceUnavailable, quote.ErrPersistence.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "quote timed out")
	case errors.Is(err, quote.ErrPricingComputation):
		writeError(c, http.StatusInternalServerError, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrInvalidPricing):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pricing.ErrCategoryMissing), errors.Is(err, pricing.ErrConfigNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeAvailabilityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "availability timed out")
	case errors.Is(err, fleet.ErrAvailabilityLookup):
		writeError(c, http.StatusBadGateway, fleet.ErrAvailabilityLookup.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("rental_variant", func(fl validator.FieldLevel) bool {
			return quote.Variant(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("quote_status", func(fl validator.FieldLevel) bool {
			return quote.Status(fl.Field().String()).Valid()
		})
	})
}
