// README: Quote composer; prices every category for one rental window. Pure, no I/O.
package quote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"carhire/internal/modules/fleet"
	"carhire/internal/modules/pricing"
	"carhire/internal/modules/season"
	"carhire/internal/types"
)

const (
	openingTime  = 9 * time.Hour
	closingTime  = 18 * time.Hour
	roundingStep = 10
)

var (
	advanceShare = decimal.RequireFromString("0.25")
	halfDay      = decimal.RequireFromString("0.5")
)

// Compose prices each category in snap for in. Availability is left empty
// for the caller to fill. A failure on any category fails the whole set.
func Compose(snap pricing.Snapshot, in Inputs, currency string) ([]CategoryResult, error) {
	if err := snap.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPricingComputation, err)
	}
	if currency == "" {
		currency = types.DefaultCurrency
	}

	split := season.SplitDays(in.Start, in.End)
	outside := OutsideOperatingHours(in.Start) || OutsideOperatingHours(in.End)

	results := make([]CategoryResult, 0, len(snap.Categories))
	for _, cp := range snap.Categories {
		r, err := composeCategory(cp, snap.Config, in, split, outside)
		if err != nil {
			return nil, fmt.Errorf("%w: category %s: %w", ErrPricingComputation, cp.CategoryID, err)
		}
		r.Currency = currency
		results = append(results, r)
	}
	return results, nil
}

func composeCategory(cp pricing.CategoryPricing, cfg pricing.Config, in Inputs, split season.Split, outside bool) (CategoryResult, error) {
	if err := cp.Validate(); err != nil {
		return CategoryResult{}, err
	}

	offPeak, err := pricing.PriceTiers(split.OffPeak, cp.OffPeakRate, cp.Tiers, in.HalfDay && split.OffPeak > 0)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("off-peak: %w", err)
	}
	peak, err := pricing.PriceTiers(split.Peak, cp.PeakRate, cp.Tiers, in.HalfDay && split.OffPeak == 0)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("peak: %w", err)
	}
	rental := offPeak.Total.Add(peak.Total)

	chauffeured := in.Chauffeured()
	chauffeurFee := decimal.Zero
	if chauffeured {
		rate := cfg.ChauffeurFeePerDay
		if in.ChauffeurRate != nil {
			rate = *in.ChauffeurRate
		}
		days := decimal.NewFromInt(int64(split.Total()))
		if in.HalfDay {
			days = days.Add(halfDay)
		}
		chauffeurFee = days.Mul(rate)
	}

	outsideHours := decimal.Zero
	if outside {
		outsideHours = in.OutsideHoursSurcharge
	}

	subtotal := rental.Add(chauffeurFee).Add(outsideHours).Add(in.DifferentLocationSurcharge)
	fees := make([]Fee, 0, len(in.ExtraFees))
	for _, f := range in.ExtraFees {
		subtotal = subtotal.Add(f.Amount)
		fees = append(fees, f)
	}

	vat := subtotal.Mul(cfg.VATPercentage)
	grandTotal := types.CeilTo(subtotal.Add(vat), roundingStep)

	deposit := cp.SelfDriveDeposit
	if chauffeured {
		deposit = decimal.Zero
	}

	return CategoryResult{
		CategoryID:                 cp.CategoryID,
		CategoryName:               cp.CategoryName,
		RentalFee:                  rental,
		ChauffeurFee:               chauffeurFee,
		OutsideHoursSurcharge:      outsideHours,
		DifferentLocationSurcharge: in.DifferentLocationSurcharge,
		ExtraFees:                  fees,
		Subtotal:                   subtotal,
		VAT:                        vat,
		GrandTotal:                 grandTotal,
		SecurityDeposit:            deposit,
		AdvancePayment:             AdvancePayment(grandTotal),
		BranchAvailability:         []fleet.BranchAvailability{},
		Days: DayBreakdown{
			Peak:    split.Peak,
			OffPeak: split.OffPeak,
			Total:   split.Total(),
			HalfDay: in.HalfDay,
		},
		Tiers: TierBreakdown{OffPeak: offPeak.Lines, Peak: peak.Lines},
	}, nil
}

// AdvancePayment is 25% of the grand total rounded up to the nearest 10.
func AdvancePayment(grandTotal decimal.Decimal) decimal.Decimal {
	return types.CeilTo(grandTotal.Mul(advanceShare), roundingStep)
}

// OutsideOperatingHours reports whether t's clock time falls outside
// 09:00-18:00. Both ends of the window count as inside.
func OutsideOperatingHours(t time.Time) bool {
	clock := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return clock < openingTime || clock > closingTime
}

func (r *CategoryResult) attachAvailability(av fleet.Availability) {
	r.Available = av.Available
	r.BranchAvailability = av.Branches
	if r.BranchAvailability == nil {
		r.BranchAvailability = []fleet.BranchAvailability{}
	}
}

// markUnavailable keeps lookup details out of the result; they are logged.
func (r *CategoryResult) markUnavailable() {
	r.Available = false
	r.BranchAvailability = []fleet.BranchAvailability{}
	r.AvailabilityError = fleet.ErrAvailabilityLookup.Error()
}

// checkTotals verifies the rounding rules on a result that came back from a
// client: the grand total is subtotal plus VAT rounded up to 10 and the
// advance payment follows from it.
func checkTotals(r CategoryResult) error {
	for name, v := range map[string]decimal.Decimal{
		"subtotal":         r.Subtotal,
		"vat":              r.VAT,
		"grand_total":      r.GrandTotal,
		"advance_payment":  r.AdvancePayment,
		"security_deposit": r.SecurityDeposit,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s is negative", name)
		}
	}
	if want := types.CeilTo(r.Subtotal.Add(r.VAT), roundingStep); !r.GrandTotal.Equal(want) {
		return fmt.Errorf("grand_total %s does not match subtotal plus vat rounded (%s)", r.GrandTotal, want)
	}
	if want := AdvancePayment(r.GrandTotal); !r.AdvancePayment.Equal(want) {
		return fmt.Errorf("advance_payment %s, want %s", r.AdvancePayment, want)
	}
	return nil
}
