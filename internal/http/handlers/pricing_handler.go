// README: Pricing admin handlers; VAT and tier discounts are percentages on the wire and fractions inside.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carhire/internal/modules/pricing"
	"carhire/internal/types"
)

var hundred = decimal.NewFromInt(100)

type PricingAdmin interface {
	Snapshot(ctx context.Context) (pricing.Snapshot, error)
	UpdateConfig(ctx context.Context, cfg pricing.Config) error
	UpdateCategory(ctx context.Context, cp pricing.CategoryPricing) error
}

type PricingHandler struct {
	pricing PricingAdmin
}

func NewPricingHandler(svc PricingAdmin) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

type tierView struct {
	Days            int             `json:"days" binding:"gte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type configView struct {
	ChauffeurFeePerDay decimal.Decimal `json:"chauffeur_fee_per_day"`
	VATPercent         decimal.Decimal `json:"vat_percent"`
	UpdatedAt          *time.Time      `json:"updated_at,omitempty"`
}

type categoryView struct {
	CategoryID       types.ID        `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	OffPeakRate      decimal.Decimal `json:"off_peak_rate"`
	PeakRate         decimal.Decimal `json:"peak_rate"`
	SelfDriveDeposit decimal.Decimal `json:"self_drive_deposit"`
	Tiers            []tierView      `json:"tiers"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
}

func toConfigView(cfg pricing.Config) configView {
	v := configView{
		ChauffeurFeePerDay: cfg.ChauffeurFeePerDay,
		VATPercent:         cfg.VATPercentage.Mul(hundred),
	}
	if !cfg.UpdatedAt.IsZero() {
		v.UpdatedAt = &cfg.UpdatedAt
	}
	return v
}

func toCategoryView(cp pricing.CategoryPricing) categoryView {
	v := categoryView{
		CategoryID:       cp.CategoryID,
		CategoryName:     cp.CategoryName,
		OffPeakRate:      cp.OffPeakRate,
		PeakRate:         cp.PeakRate,
		SelfDriveDeposit: cp.SelfDriveDeposit,
		Tiers:            make([]tierView, 0, pricing.TierCount),
	}
	for _, t := range cp.Tiers {
		v.Tiers = append(v.Tiers, tierView{Days: t.Days, DiscountPercent: t.Discount.Mul(hundred)})
	}
	if !cp.UpdatedAt.IsZero() {
		v.UpdatedAt = &cp.UpdatedAt
	}
	return v
}

func (h *PricingHandler) Get(c *gin.Context) {
	snap, err := h.pricing.Snapshot(c.Request.Context())
	if err != nil {
		writePricingError(c, err)
		return
	}
	cats := make([]categoryView, 0, len(snap.Categories))
	for _, cp := range snap.Categories {
		cats = append(cats, toCategoryView(cp))
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"config":     toConfigView(snap.Config),
		"categories": cats,
	})
}

type updateConfigReq struct {
	ChauffeurFeePerDay decimal.Decimal `json:"chauffeur_fee_per_day"`
	VATPercent         decimal.Decimal `json:"vat_percent"`
}

func (h *PricingHandler) UpdateConfig(c *gin.Context) {
	var req updateConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cfg := pricing.Config{
		ChauffeurFeePerDay: req.ChauffeurFeePerDay,
		VATPercentage:      req.VATPercent.Div(hundred),
	}
	if err := h.pricing.UpdateConfig(c.Request.Context(), cfg); err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"config": toConfigView(cfg)})
}

type updateCategoryReq struct {
	OffPeakRate      decimal.Decimal `json:"off_peak_rate"`
	PeakRate         decimal.Decimal `json:"peak_rate"`
	SelfDriveDeposit decimal.Decimal `json:"self_drive_deposit"`
	Tiers            []tierView      `json:"tiers" binding:"max=9,dive"`
}

func (h *PricingHandler) UpdateCategory(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid category id")
		return
	}
	var req updateCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cp := pricing.CategoryPricing{
		CategoryID:       types.ID(id),
		OffPeakRate:      req.OffPeakRate,
		PeakRate:         req.PeakRate,
		SelfDriveDeposit: req.SelfDriveDeposit,
	}
	for i, t := range req.Tiers {
		cp.Tiers[i] = pricing.Tier{Days: t.Days, Discount: t.DiscountPercent.Div(hundred)}
	}
	if err := h.pricing.UpdateCategory(c.Request.Context(), cp); err != nil {
		writePricingError(c, err)
		return
	}
	// Answer with the stored row so the category name and timestamp are filled.
	if snap, err := h.pricing.Snapshot(c.Request.Context()); err == nil {
		if stored, ok := snap.Category(cp.CategoryID); ok {
			cp = stored
		}
	}
	writeJSON(c, http.StatusOK, map[string]any{"category": toCategoryView(cp)})
}
