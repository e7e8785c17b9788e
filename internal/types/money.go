// README: Common value objects used across modules.
package types

import "github.com/shopspring/decimal"

type ID string

// DefaultCurrency is used when a quote does not name one.
const DefaultCurrency = "KES"

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// CeilTo rounds v up to the nearest multiple of step. Values already on a
// multiple are returned unchanged.
func CeilTo(v decimal.Decimal, step int64) decimal.Decimal {
	s := decimal.NewFromInt(step)
	q, r := v.QuoRem(s, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q.Mul(s)
}
