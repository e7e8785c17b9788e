// README: Progressive tier-band pricing for a run of rental days.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TierCount is the fixed number of discount bands per category.
const TierCount = 9

var (
	one     = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

// Tier is a cumulative day threshold with a discount off the base rate.
// A zero threshold marks the tier as unused.
type Tier struct {
	Days     int             `json:"days"`
	Discount decimal.Decimal `json:"discount"`
}

// TierLine is one band of a priced segment. Tier is 1-based; 0 means the base
// rate was used because the category has no tiers configured.
type TierLine struct {
	Tier     int             `json:"tier"`
	Days     decimal.Decimal `json:"days"`
	Rate     decimal.Decimal `json:"rate"`
	Discount decimal.Decimal `json:"discount"`
	Amount   decimal.Decimal `json:"amount"`
}

type TierResult struct {
	Total decimal.Decimal `json:"total"`
	Lines []TierLine      `json:"lines"`
}

// ValidateTiers checks that populated thresholds strictly increase and that
// every discount is a fraction in [0, 1].
func ValidateTiers(tiers [TierCount]Tier) error {
	prev := 0
	for i, t := range tiers {
		if t.Days < 0 {
			return fmt.Errorf("%w: tier %d has a negative threshold", ErrInvalidPricing, i+1)
		}
		if t.Discount.IsNegative() || t.Discount.GreaterThan(one) {
			return fmt.Errorf("%w: tier %d discount %s outside 0..1", ErrInvalidPricing, i+1, t.Discount)
		}
		if t.Days == 0 {
			continue
		}
		if t.Days <= prev {
			return fmt.Errorf("%w: tier %d threshold %d not above %d", ErrInvalidPricing, i+1, t.Days, prev)
		}
		prev = t.Days
	}
	return nil
}

// PriceTiers bills days against the tier bands in order. Band i holds
// tiers[i].Days minus the previous populated threshold; the last populated
// tier has no upper bound, so days beyond its threshold stay at its rate.
// When withHalfDay is set, half a day is added to the first band billed.
func PriceTiers(days int, rate decimal.Decimal, tiers [TierCount]Tier, withHalfDay bool) (TierResult, error) {
	res := TierResult{Total: decimal.Zero}
	if days < 0 {
		return res, fmt.Errorf("%w: negative day count %d", ErrInvalidPricing, days)
	}
	if rate.IsNegative() {
		return res, fmt.Errorf("%w: negative rate %s", ErrInvalidPricing, rate)
	}
	if err := ValidateTiers(tiers); err != nil {
		return res, err
	}

	last := -1
	for i, t := range tiers {
		if t.Days > 0 {
			last = i
		}
	}

	if last < 0 {
		billed := decimal.NewFromInt(int64(days))
		if withHalfDay {
			billed = billed.Add(halfDay)
		}
		if billed.IsPositive() {
			res.add(newLine(0, billed, rate, decimal.Zero))
		}
		return res, nil
	}

	remaining := days
	prev := 0
	for i, t := range tiers {
		if t.Days == 0 {
			continue
		}
		first := len(res.Lines) == 0
		if remaining == 0 && !(first && withHalfDay) {
			break
		}
		take := min(t.Days-prev, remaining)
		if i == last {
			take = remaining
		}
		prev = t.Days
		remaining -= take

		billed := decimal.NewFromInt(int64(take))
		if first && withHalfDay {
			billed = billed.Add(halfDay)
		}
		res.add(newLine(i+1, billed, rate, t.Discount))
	}
	return res, nil
}

func newLine(tier int, days, rate, discount decimal.Decimal) TierLine {
	return TierLine{
		Tier:     tier,
		Days:     days,
		Rate:     rate,
		Discount: discount,
		Amount:   days.Mul(rate).Mul(one.Sub(discount)),
	}
}

func (r *TierResult) add(l TierLine) {
	r.Lines = append(r.Lines, l)
	r.Total = r.Total.Add(l.Amount)
}
