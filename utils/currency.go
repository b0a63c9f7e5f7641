package utils

// FormatAmount renders an amount in minor currency units as a
// human-readable string with thousands separators, e.g. 2000000 minor
// units of NGN -> "NGN 2,000,000". Used in error messages shown to
// customers, so it stays deliberately simple.
func FormatAmount(amount int64, currency string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := []byte{}
	if amount == 0 {
		digits = append(digits, '0')
	}
	for amount > 0 {
		digits = append(digits, byte('0'+amount%10))
		amount /= 10
	}

	// digits are reversed; emit with a separator every three places.
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := len(digits) - 1; i >= 0; i-- {
		out = append(out, digits[i])
		if i > 0 && i%3 == 0 {
			out = append(out, ',')
		}
	}

	s := string(out)
	if negative {
		s = "-" + s
	}
	if currency == "" {
		return s
	}
	return currency + " " + s
}
