package services

import "math"

// Pricing is pure arithmetic over minor currency units: no I/O, fully
// deterministic, unit-testable with literal inputs.

// ServiceFeeRate is the platform cut applied to the subtotal.
const ServiceFeeRate = 0.05

// taxRates maps ISO 4217 currency codes to the VAT rate of the
// jurisdiction the platform operates that currency in. Tax must stay a
// per-currency lookup, not a global constant.
var taxRates = map[string]float64{
	"NGN": 0.075,
	"KES": 0.16,
	"GHS": 0.15,
	"ZAR": 0.15,
	"UGX": 0.18,
	"TZS": 0.18,
	"XOF": 0.18,
}

// defaultTaxRate applies to currencies missing from the table. Currency
// validity is enforced at restaurant onboarding, outside this engine.
const defaultTaxRate = 0.075

func TaxRateFor(currency string) float64 {
	if rate, ok := taxRates[currency]; ok {
		return rate
	}
	return defaultTaxRate
}

type PricingOptions struct {
	Currency    string
	DeliveryFee int64
	Tip         int64
	Discount    int64
}

type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	ServiceFee  int64 `json:"service_fee"`
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"delivery_fee"`
	Tip         int64 `json:"tip"`
	Discount    int64 `json:"discount"`
	Total       int64 `json:"total"`
}

// ComputeTotals derives all monetary fields of an order from its item
// totals. Each fee is rounded to a whole minor unit before summing, and
// the total is clamped at zero so an oversized discount never produces a
// negative amount.
func ComputeTotals(itemTotals []int64, opts PricingOptions) Totals {
	var subtotal int64
	for _, t := range itemTotals {
		subtotal += t
	}

	serviceFee := roundMinor(float64(subtotal) * ServiceFeeRate)
	tax := roundMinor(float64(subtotal+serviceFee) * TaxRateFor(opts.Currency))

	total := subtotal + serviceFee + tax + opts.DeliveryFee + opts.Tip - opts.Discount
	if total < 0 {
		total = 0
	}

	return Totals{
		Subtotal:    subtotal,
		ServiceFee:  serviceFee,
		Tax:         tax,
		DeliveryFee: opts.DeliveryFee,
		Tip:         opts.Tip,
		Discount:    opts.Discount,
		Total:       total,
	}
}

func roundMinor(v float64) int64 {
	return int64(math.Round(v))
}
