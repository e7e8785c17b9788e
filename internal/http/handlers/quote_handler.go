// README: Quote handlers for calculate, save, get, list and status changes.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carhire/internal/http/middleware"
	"carhire/internal/modules/quote"
	"carhire/internal/types"
)

type QuoteService interface {
	Calculate(ctx context.Context, in quote.Inputs) ([]quote.CategoryResult, error)
	Save(ctx context.Context, cmd quote.SaveCommand) (*quote.Quote, error)
	Get(ctx context.Context, id types.ID) (*quote.Quote, error)
	List(ctx context.Context, f quote.ListFilter) ([]quote.Quote, error)
	Transition(ctx context.Context, cmd quote.TransitionCommand) (*quote.Quote, error)
}

type QuoteHandler struct {
	quote   QuoteService
	timeout time.Duration
}

func NewQuoteHandler(svc QuoteService, timeout time.Duration) *QuoteHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuoteHandler{quote: svc, timeout: timeout}
}

type feeReq struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

type inputsReq struct {
	Start                      time.Time        `json:"start" binding:"required"`
	End                        time.Time        `json:"end" binding:"required,gtefield=Start"`
	HalfDay                    bool             `json:"half_day"`
	HasChauffeur               bool             `json:"has_chauffeur"`
	Variant                    string           `json:"variant" binding:"omitempty,rental_variant"`
	ChauffeurRate              *decimal.Decimal `json:"chauffeur_rate"`
	PickupLocation             string           `json:"pickup_location" binding:"required"`
	DropoffLocation            string           `json:"dropoff_location" binding:"required"`
	DifferentLocationSurcharge decimal.Decimal  `json:"different_location_surcharge"`
	OutsideHoursSurcharge      decimal.Decimal  `json:"outside_hours_surcharge"`
	ExtraFees                  []feeReq         `json:"extra_fees" binding:"omitempty,dive"`
	CategoryIDs                []string         `json:"category_ids"`
}

func (r inputsReq) toInputs() quote.Inputs {
	in := quote.Inputs{
		Start:                      r.Start,
		End:                        r.End,
		HalfDay:                    r.HalfDay,
		HasChauffeur:               r.HasChauffeur,
		Variant:                    quote.Variant(r.Variant),
		ChauffeurRate:              r.ChauffeurRate,
		PickupLocation:             r.PickupLocation,
		DropoffLocation:            r.DropoffLocation,
		DifferentLocationSurcharge: r.DifferentLocationSurcharge,
		OutsideHoursSurcharge:      r.OutsideHoursSurcharge,
	}
	for _, f := range r.ExtraFees {
		in.ExtraFees = append(in.ExtraFees, quote.Fee{Description: f.Description, Amount: f.Amount})
	}
	for _, id := range r.CategoryIDs {
		in.CategoryIDs = append(in.CategoryIDs, types.ID(id))
	}
	return in
}

func (h *QuoteHandler) Calculate(c *gin.Context) {
	var req inputsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results, err := h.quote.Calculate(ctx, req.toInputs())
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"results": results})
}

type saveQuoteReq struct {
	Inputs             inputsReq              `json:"inputs"`
	Results            []quote.CategoryResult `json:"results" binding:"required,min=1"`
	SelectedCategoryID *string                `json:"selected_category_id"`
	CustomerName       string                 `json:"customer_name" binding:"required"`
	CustomerEmail      string                 `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone      string                 `json:"customer_phone"`
}

func (h *QuoteHandler) Save(c *gin.Context) {
	var req saveQuoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cmd := quote.SaveCommand{
		Inputs:        req.Inputs.toInputs(),
		Results:       req.Results,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CreatedBy:     middleware.CallerUID(c),
	}
	if req.SelectedCategoryID != nil {
		id := types.ID(*req.SelectedCategoryID)
		cmd.SelectedCategoryID = &id
	}
	q, err := h.quote.Save(c.Request.Context(), cmd)
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"quote": q})
}

func (h *QuoteHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidQuoteID(id) {
		writeError(c, http.StatusBadRequest, "invalid quote id")
		return
	}
	q, err := h.quote.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"quote": q})
}

func (h *QuoteHandler) List(c *gin.Context) {
	f := quote.ListFilter{Status: quote.Status(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		writeError(c, http.StatusBadRequest, "invalid status")
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	quotes, err := h.quote.List(c.Request.Context(), f)
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	if quotes == nil {
		quotes = []quote.Quote{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"quotes": quotes})
}

type statusReq struct {
	Status string `json:"status" binding:"required,quote_status"`
}

func (h *QuoteHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	if !isValidQuoteID(id) {
		writeError(c, http.StatusBadRequest, "invalid quote id")
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	q, err := h.quote.Transition(c.Request.Context(), quote.TransitionCommand{
		QuoteID: types.ID(id),
		To:      quote.Status(req.Status),
	})
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"quote": q})
}
