package quote

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"carhire/internal/modules/pricing"
	"carhire/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(m time.Month, day, hour, min int) time.Time {
	return time.Date(2026, m, day, hour, min, 0, 0, time.UTC)
}

func testConfig() pricing.Config {
	return pricing.Config{ChauffeurFeePerDay: d("2500"), VATPercentage: d("0.16")}
}

func flatCategory(id types.ID, rate string) pricing.CategoryPricing {
	return pricing.CategoryPricing{
		CategoryID:       id,
		CategoryName:     string(id),
		OffPeakRate:      d(rate),
		PeakRate:         d(rate),
		SelfDriveDeposit: d("20000"),
	}
}

func baseInputs(start, end time.Time) Inputs {
	return Inputs{
		Start:           start,
		End:             end,
		PickupLocation:  "JKIA",
		DropoffLocation: "JKIA",
		Variant:         VariantSelfDrive,
	}
}

func composeOne(t *testing.T, cp pricing.CategoryPricing, in Inputs) CategoryResult {
	t.Helper()
	res, err := Compose(pricing.Snapshot{Config: testConfig(), Categories: []pricing.CategoryPricing{cp}}, in, "")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	return res[0]
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

func TestCompose_VATAndRounding(t *testing.T) {
	// One peak day at 10000 with no extras: subtotal 10000, VAT 1600.
	r := composeOne(t, flatCategory("sedan", "10000"), baseInputs(at(time.January, 10, 10, 0), at(time.January, 10, 16, 0)))
	assertAmount(t, "subtotal", r.Subtotal, "10000")
	assertAmount(t, "vat", r.VAT, "1600")
	assertAmount(t, "grand total", r.GrandTotal, "11600")
	assertAmount(t, "advance payment", r.AdvancePayment, "2900")
	assertAmount(t, "security deposit", r.SecurityDeposit, "20000")
	if r.Currency != types.DefaultCurrency {
		t.Errorf("currency = %q", r.Currency)
	}
}

func TestCompose_OffPeakTierExample(t *testing.T) {
	cp := pricing.CategoryPricing{
		CategoryID:  "suv",
		OffPeakRate: d("3000"),
		PeakRate:    d("4000"),
		Tiers:       [pricing.TierCount]pricing.Tier{{Days: 7, Discount: d("0.10")}},
	}
	r := composeOne(t, cp, baseInputs(at(time.May, 4, 10, 0), at(time.May, 8, 10, 0)))
	if r.Days.OffPeak != 5 || r.Days.Peak != 0 || r.Days.Total != 5 {
		t.Fatalf("days = %+v, want 5 off-peak", r.Days)
	}
	assertAmount(t, "rental fee", r.RentalFee, "13500")
	if len(r.Tiers.OffPeak) != 1 || len(r.Tiers.Peak) != 0 {
		t.Errorf("tier breakdown = %+v", r.Tiers)
	}
}

func TestCompose_MixedSeasonsSumBothSegments(t *testing.T) {
	cp := pricing.CategoryPricing{
		CategoryID:  "suv",
		OffPeakRate: d("3000"),
		PeakRate:    d("4000"),
		Tiers:       [pricing.TierCount]pricing.Tier{{Days: 2, Discount: d("0")}, {Days: 10, Discount: d("0.5")}},
	}
	// April 3, 4, 5 peak; April 6, 7, 8 off-peak. Thresholds apply to each
	// segment independently.
	r := composeOne(t, cp, baseInputs(at(time.April, 3, 10, 0), at(time.April, 8, 10, 0)))
	// off-peak: 2*3000 + 1*1500 = 7500; peak: 2*4000 + 1*2000 = 10000.
	assertAmount(t, "rental fee", r.RentalFee, "17500")
}

func TestCompose_HalfDayPlacement(t *testing.T) {
	cp := pricing.CategoryPricing{CategoryID: "suv", OffPeakRate: d("1000"), PeakRate: d("2000")}

	t.Run("attaches to off-peak when present", func(t *testing.T) {
		in := baseInputs(at(time.April, 4, 10, 0), at(time.April, 7, 10, 0))
		in.HalfDay = true
		r := composeOne(t, cp, in)
		// peak: 2 days * 2000; off-peak: 2.5 days * 1000.
		assertAmount(t, "rental fee", r.RentalFee, "6500")
		if !r.Tiers.OffPeak[0].Days.Equal(d("2.5")) {
			t.Errorf("off-peak days = %s, want 2.5", r.Tiers.OffPeak[0].Days)
		}
	})

	t.Run("attaches to peak when no off-peak days", func(t *testing.T) {
		in := baseInputs(at(time.January, 4, 10, 0), at(time.January, 5, 10, 0))
		in.HalfDay = true
		r := composeOne(t, cp, in)
		assertAmount(t, "rental fee", r.RentalFee, "5000")
		if !r.Tiers.Peak[0].Days.Equal(d("2.5")) {
			t.Errorf("peak days = %s, want 2.5", r.Tiers.Peak[0].Days)
		}
	})
}

func TestCompose_ChauffeurFeeAndDeposit(t *testing.T) {
	cp := flatCategory("van", "5000")
	window := func() Inputs { return baseInputs(at(time.January, 10, 10, 0), at(time.January, 12, 10, 0)) }

	tests := []struct {
		name        string
		mutate      func(in *Inputs)
		wantFee     string
		wantDeposit string
	}{
		{"self drive", func(in *Inputs) {}, "0", "20000"},
		{"chauffeur variant", func(in *Inputs) { in.Variant = VariantChauffeur }, "7500", "0"},
		{"transfer variant", func(in *Inputs) { in.Variant = VariantTransfer }, "7500", "0"},
		{"chauffeur flag without variant", func(in *Inputs) { in.Variant = ""; in.HasChauffeur = true }, "7500", "0"},
		{"chauffeur with half day", func(in *Inputs) { in.Variant = VariantChauffeur; in.HalfDay = true }, "8750", "0"},
		{"chauffeur rate override", func(in *Inputs) {
			in.Variant = VariantChauffeur
			rate := d("3000")
			in.ChauffeurRate = &rate
		}, "9000", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := window()
			tt.mutate(&in)
			r := composeOne(t, cp, in)
			assertAmount(t, "chauffeur fee", r.ChauffeurFee, tt.wantFee)
			assertAmount(t, "security deposit", r.SecurityDeposit, tt.wantDeposit)
		})
	}
}

func TestCompose_OutsideHoursSurcharge(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{"inside window", at(time.January, 10, 9, 0), at(time.January, 12, 18, 0), "0"},
		{"starts before opening", at(time.January, 10, 8, 59), at(time.January, 12, 12, 0), "1500"},
		{"ends after closing", at(time.January, 10, 12, 0), time.Date(2026, time.January, 12, 18, 0, 1, 0, time.UTC), "1500"},
		{"late night pickup", at(time.January, 10, 23, 30), at(time.January, 12, 12, 0), "1500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs(tt.start, tt.end)
			in.OutsideHoursSurcharge = d("1500")
			r := composeOne(t, flatCategory("sedan", "1000"), in)
			assertAmount(t, "outside hours", r.OutsideHoursSurcharge, tt.want)
		})
	}
}

func TestCompose_SubtotalIncludesEveryFee(t *testing.T) {
	in := baseInputs(at(time.January, 10, 7, 0), at(time.January, 11, 12, 0))
	in.Variant = VariantChauffeur
	in.OutsideHoursSurcharge = d("1000")
	in.DifferentLocationSurcharge = d("2000")
	in.ExtraFees = []Fee{
		{Description: "Child seat", Amount: d("500")},
		{Description: "Fuel top-up", Amount: d("3000")},
		{Description: "Car wash", Amount: d("250")},
	}
	r := composeOne(t, flatCategory("sedan", "4000"), in)
	// rental 8000 + chauffeur 5000 + 1000 + 2000 + 3750
	assertAmount(t, "subtotal", r.Subtotal, "19750")
	assertAmount(t, "vat", r.VAT, "3160")
	assertAmount(t, "grand total", r.GrandTotal, "22910")
	assertAmount(t, "advance payment", r.AdvancePayment, "5730")
	if len(r.ExtraFees) != 3 || r.ExtraFees[1].Description != "Fuel top-up" {
		t.Errorf("extra fees = %+v", r.ExtraFees)
	}
}

func TestCompose_OneResultPerCategoryInOrder(t *testing.T) {
	snap := pricing.Snapshot{
		Config:     testConfig(),
		Categories: []pricing.CategoryPricing{flatCategory("a", "1000"), flatCategory("b", "2000"), flatCategory("c", "3000")},
	}
	res, err := Compose(snap, baseInputs(at(time.January, 10, 10, 0), at(time.January, 10, 12, 0)), "USD")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if len(res) != 3 || res[0].CategoryID != "a" || res[2].CategoryID != "c" {
		t.Fatalf("results = %+v", res)
	}
	if res[1].Currency != "USD" || res[1].BranchAvailability == nil {
		t.Errorf("result = %+v", res[1])
	}
}

func TestCompose_MalformedCategoryAbortsAll(t *testing.T) {
	bad := flatCategory("broken", "1000")
	bad.Tiers = [pricing.TierCount]pricing.Tier{{Days: 7}, {Days: 3}}
	snap := pricing.Snapshot{
		Config:     testConfig(),
		Categories: []pricing.CategoryPricing{flatCategory("ok", "1000"), bad},
	}
	res, err := Compose(snap, baseInputs(at(time.January, 10, 10, 0), at(time.January, 11, 10, 0)), "")
	if !errors.Is(err, ErrPricingComputation) || !errors.Is(err, pricing.ErrInvalidPricing) {
		t.Fatalf("error = %v, want ErrPricingComputation wrapping ErrInvalidPricing", err)
	}
	if res != nil {
		t.Errorf("partial results returned: %+v", res)
	}
}

func TestCompose_InvalidConfig(t *testing.T) {
	snap := pricing.Snapshot{
		Config:     pricing.Config{VATPercentage: d("16")},
		Categories: []pricing.CategoryPricing{flatCategory("ok", "1000")},
	}
	_, err := Compose(snap, baseInputs(at(time.January, 10, 10, 0), at(time.January, 11, 10, 0)), "")
	if !errors.Is(err, ErrPricingComputation) {
		t.Errorf("error = %v, want ErrPricingComputation", err)
	}
}

func TestCompose_RoundingProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ten := decimal.NewFromInt(10)
	vats := []string{"0", "0.08", "0.14", "0.16", "0.175"}
	for i := 0; i < 500; i++ {
		cp := flatCategory("x", decimal.NewFromInt(int64(rng.Intn(9000)+1)).Add(d("0.37")).String())
		cp.Tiers = [pricing.TierCount]pricing.Tier{
			{Days: 3, Discount: d("0.05")},
			{Days: 9, Discount: d("0.125")},
		}
		snap := pricing.Snapshot{
			Config:     pricing.Config{ChauffeurFeePerDay: d("2333.33"), VATPercentage: d(vats[i%len(vats)])},
			Categories: []pricing.CategoryPricing{cp},
		}
		start := at(time.January, 1, 10, 0).AddDate(0, 0, rng.Intn(365))
		in := baseInputs(start, start.AddDate(0, 0, rng.Intn(40)))
		in.HalfDay = rng.Intn(2) == 0
		if rng.Intn(2) == 0 {
			in.Variant = VariantChauffeur
		}
		in.ExtraFees = []Fee{{Description: "misc", Amount: decimal.NewFromInt(int64(rng.Intn(1000))).Div(decimal.NewFromInt(7))}}

		res, err := Compose(snap, in, "")
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		r := res[0]
		raw := r.Subtotal.Add(r.VAT)
		if !r.GrandTotal.Mod(ten).IsZero() || r.GrandTotal.LessThan(raw) || r.GrandTotal.Sub(raw).GreaterThanOrEqual(ten) {
			t.Fatalf("iteration %d: grand total %s for raw %s", i, r.GrandTotal, raw)
		}
		quarter := r.GrandTotal.Mul(d("0.25"))
		if !r.AdvancePayment.Mod(ten).IsZero() || r.AdvancePayment.LessThan(quarter) || r.AdvancePayment.Sub(quarter).GreaterThanOrEqual(ten) {
			t.Fatalf("iteration %d: advance %s for grand total %s", i, r.AdvancePayment, r.GrandTotal)
		}
		if in.Chauffeured() != r.SecurityDeposit.IsZero() {
			t.Fatalf("iteration %d: deposit %s with chauffeured=%v", i, r.SecurityDeposit, in.Chauffeured())
		}
	}
}

func TestOutsideOperatingHours(t *testing.T) {
	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2026, 1, 1, 8, 59, 59, 0, time.UTC), true},
		{time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), false},
		{time.Date(2026, 1, 1, 13, 30, 0, 0, time.UTC), false},
		{time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC), false},
		{time.Date(2026, 1, 1, 18, 0, 0, 1, time.UTC), true},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		if got := OutsideOperatingHours(tt.at); got != tt.want {
			t.Errorf("OutsideOperatingHours(%s) = %v, want %v", tt.at.Format(time.RFC3339Nano), got, tt.want)
		}
	}
}
