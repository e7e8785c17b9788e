// README: Quote inputs, per-category results and the saved quote aggregate.
package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"carhire/internal/modules/fleet"
	"carhire/internal/modules/pricing"
	"carhire/internal/types"
)

type Variant string

const (
	VariantSelfDrive Variant = "self_drive"
	VariantChauffeur Variant = "chauffeur"
	VariantTransfer  Variant = "transfer"
)

func (v Variant) Valid() bool {
	switch v {
	case VariantSelfDrive, VariantChauffeur, VariantTransfer:
		return true
	}
	return false
}

// Fee is a named line item added on top of the rental.
type Fee struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Inputs struct {
	Start                      time.Time        `json:"start"`
	End                        time.Time        `json:"end"`
	HalfDay                    bool             `json:"half_day"`
	HasChauffeur               bool             `json:"has_chauffeur"`
	Variant                    Variant          `json:"variant,omitempty"`
	ChauffeurRate              *decimal.Decimal `json:"chauffeur_rate,omitempty"`
	PickupLocation             string           `json:"pickup_location"`
	DropoffLocation            string           `json:"dropoff_location"`
	DifferentLocationSurcharge decimal.Decimal  `json:"different_location_surcharge"`
	OutsideHoursSurcharge      decimal.Decimal  `json:"outside_hours_surcharge"`
	ExtraFees                  []Fee            `json:"extra_fees,omitempty"`
	CategoryIDs                []types.ID       `json:"category_ids,omitempty"`
}

// Chauffeured reports whether a driver comes with the vehicle. Chauffeur and
// transfer variants always do.
func (in Inputs) Chauffeured() bool {
	return in.HasChauffeur || in.Variant == VariantChauffeur || in.Variant == VariantTransfer
}

// Validate rejects inputs before any pricing work is done.
func (in Inputs) Validate() error {
	if in.Start.IsZero() || in.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidInput)
	}
	if in.End.Before(in.Start) {
		return fmt.Errorf("%w: end is before start", ErrInvalidInput)
	}
	if strings.TrimSpace(in.PickupLocation) == "" || strings.TrimSpace(in.DropoffLocation) == "" {
		return fmt.Errorf("%w: pickup and dropoff locations are required", ErrInvalidInput)
	}
	if in.Variant != "" && !in.Variant.Valid() {
		return fmt.Errorf("%w: unknown rental variant %q", ErrInvalidInput, in.Variant)
	}
	if in.Variant == VariantSelfDrive && in.HasChauffeur {
		return fmt.Errorf("%w: self drive rental cannot carry a chauffeur", ErrInvalidInput)
	}
	if in.ChauffeurRate != nil && in.ChauffeurRate.IsNegative() {
		return fmt.Errorf("%w: negative chauffeur rate", ErrInvalidInput)
	}
	if in.DifferentLocationSurcharge.IsNegative() || in.OutsideHoursSurcharge.IsNegative() {
		return fmt.Errorf("%w: negative surcharge", ErrInvalidInput)
	}
	for i, f := range in.ExtraFees {
		if strings.TrimSpace(f.Description) == "" {
			return fmt.Errorf("%w: extra fee %d has no description", ErrInvalidInput, i+1)
		}
		if f.Amount.IsNegative() {
			return fmt.Errorf("%w: extra fee %q is negative", ErrInvalidInput, f.Description)
		}
	}
	return nil
}

type DayBreakdown struct {
	Peak    int  `json:"peak"`
	OffPeak int  `json:"off_peak"`
	Total   int  `json:"total"`
	HalfDay bool `json:"half_day"`
}

type TierBreakdown struct {
	OffPeak []pricing.TierLine `json:"off_peak"`
	Peak    []pricing.TierLine `json:"peak"`
}

type CategoryResult struct {
	CategoryID                 types.ID                   `json:"category_id"`
	CategoryName               string                     `json:"category_name"`
	Currency                   string                     `json:"currency"`
	RentalFee                  decimal.Decimal            `json:"rental_fee"`
	ChauffeurFee               decimal.Decimal            `json:"chauffeur_fee"`
	OutsideHoursSurcharge      decimal.Decimal            `json:"outside_hours_surcharge"`
	DifferentLocationSurcharge decimal.Decimal            `json:"different_location_surcharge"`
	ExtraFees                  []Fee                      `json:"extra_fees"`
	Subtotal                   decimal.Decimal            `json:"subtotal"`
	VAT                        decimal.Decimal            `json:"vat"`
	GrandTotal                 decimal.Decimal            `json:"grand_total"`
	SecurityDeposit            decimal.Decimal            `json:"security_deposit"`
	AdvancePayment             decimal.Decimal            `json:"advance_payment"`
	Available                  bool                       `json:"available"`
	BranchAvailability         []fleet.BranchAvailability `json:"branch_availability"`
	AvailabilityError          string                     `json:"availability_error,omitempty"`
	Days                       DayBreakdown               `json:"days"`
	Tiers                      TierBreakdown              `json:"tier_breakdown"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
)

// AllowedTransitions is the quote lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusRejected},
	StatusSent:     {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusConverted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusConverted:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type Quote struct {
	ID                 types.ID         `json:"id"`
	Reference          string           `json:"reference"`
	CustomerName       string           `json:"customer_name"`
	CustomerEmail      string           `json:"customer_email,omitempty"`
	CustomerPhone      string           `json:"customer_phone,omitempty"`
	Inputs             Inputs           `json:"inputs"`
	Results            []CategoryResult `json:"results"`
	SelectedCategoryID *types.ID        `json:"selected_category_id,omitempty"`
	Status             Status           `json:"status"`
	StatusVersion      int              `json:"status_version"`
	CreatedBy          string           `json:"created_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Selected returns the chosen category result, if one was picked.
func (q *Quote) Selected() (CategoryResult, bool) {
	if q.SelectedCategoryID == nil {
		return CategoryResult{}, false
	}
	for _, r := range q.Results {
		if r.CategoryID == *q.SelectedCategoryID {
			return r, true
		}
	}
	return CategoryResult{}, false
}
