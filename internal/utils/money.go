package utils

import "fmt"

// Money fields are stored as integer minor units (cents) to keep
// two-decimal precision exact. FormatCents renders "123.45".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
