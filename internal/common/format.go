package common

import (
	"fmt"
	"strings"
)

// FormatAmount formats an exposure amount with comma separators and two
// decimal places, e.g. 52052.43 -> "52,052.43".
func FormatAmount(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}

	s := fmt.Sprintf("%d", whole)
	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		parts = append([]string{s}, parts...)
		s = strings.Join(parts, ",")
	}

	if negative {
		return fmt.Sprintf("-%s.%02d", s, cents)
	}
	return fmt.Sprintf("%s.%02d", s, cents)
}

// FormatMillions formats an exposure amount (in millions) for display,
// e.g. 278157.81 -> "278,157.81 Million".
func FormatMillions(v float64) string {
	return FormatAmount(v) + " Million"
}

// FormatPct formats a percentage with two decimal places.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
