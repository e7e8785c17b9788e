// README: Per-category rate tables and the global pricing configuration.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"carhire/internal/types"
)

var (
	ErrInvalidPricing  = errors.New("invalid pricing configuration")
	ErrConfigNotFound  = errors.New("pricing config not found")
	ErrCategoryMissing = errors.New("vehicle category not found")
)

type CategoryPricing struct {
	CategoryID       types.ID        `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	OffPeakRate      decimal.Decimal `json:"off_peak_rate"`
	PeakRate         decimal.Decimal `json:"peak_rate"`
	SelfDriveDeposit decimal.Decimal `json:"self_drive_deposit"`
	Tiers            [TierCount]Tier `json:"tiers"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (c CategoryPricing) Validate() error {
	if c.CategoryID == "" {
		return fmt.Errorf("%w: missing category id", ErrInvalidPricing)
	}
	if c.OffPeakRate.IsNegative() || c.PeakRate.IsNegative() {
		return fmt.Errorf("%w: category %s has a negative daily rate", ErrInvalidPricing, c.CategoryID)
	}
	if c.SelfDriveDeposit.IsNegative() {
		return fmt.Errorf("%w: category %s has a negative deposit", ErrInvalidPricing, c.CategoryID)
	}
	if err := ValidateTiers(c.Tiers); err != nil {
		return fmt.Errorf("category %s: %w", c.CategoryID, err)
	}
	return nil
}

// Config is the singleton row admins edit. VATPercentage is a fraction
// (0.16 means 16%).
type Config struct {
	ChauffeurFeePerDay decimal.Decimal `json:"chauffeur_fee_per_day"`
	VATPercentage      decimal.Decimal `json:"vat_percentage"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (c Config) Validate() error {
	if c.ChauffeurFeePerDay.IsNegative() {
		return fmt.Errorf("%w: negative chauffeur fee", ErrInvalidPricing)
	}
	if c.VATPercentage.IsNegative() || c.VATPercentage.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: vat percentage %s outside 0..1", ErrInvalidPricing, c.VATPercentage)
	}
	return nil
}

// Snapshot is everything the quote composer needs, read once per calculation.
type Snapshot struct {
	Config     Config            `json:"config"`
	Categories []CategoryPricing `json:"categories"`
}

// Category returns the pricing for id, if present.
func (s Snapshot) Category(id types.ID) (CategoryPricing, bool) {
	for _, c := range s.Categories {
		if c.CategoryID == id {
			return c, true
		}
	}
	return CategoryPricing{}, false
}
