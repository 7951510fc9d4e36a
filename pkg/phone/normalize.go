package phone

import (
	"strings"
)

// DefaultCountryCode is the calling code prefixed to bare national numbers.
const DefaultCountryCode = "91"

// nationalLength is the length of a national subscriber number.
const nationalLength = 10

// Digits returns only the ASCII digits contained in raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Normalize converts raw into "+<digits>" using countryCode for national
// numbers. It returns "" when raw contains no digits.
func Normalize(raw, countryCode string) string {
	cc := Digits(countryCode)
	if cc == "" {
		cc = DefaultCountryCode
	}

	digits := Digits(raw)
	switch {
	case digits == "":
		return ""
	case len(digits) == nationalLength:
		return "+" + cc + digits
	case len(digits) == len(cc)+nationalLength && strings.HasPrefix(digits, cc):
		return "+" + digits
	case len(digits) == nationalLength+1 && digits[0] == '0':
		return "+" + cc + digits[1:]
	default:
		// International input ("+44 ...") and anything unrecognised pass
		// through as-is.
		return "+" + digits
	}
}

// IsValid reports whether canonical looks like a Normalize result.
func IsValid(canonical string) bool {
	if len(canonical) < 2 || canonical[0] != '+' {
		return false
	}
	return Digits(canonical[1:]) == canonical[1:]
}

// NationalDigits returns the national number of canonical when it belongs
// to countryCode, and all of its digits otherwise. Numbers from other
// countries keep their calling code so two canonicals never share a result.
func NationalDigits(canonical, countryCode string) string {
	cc := Digits(countryCode)
	if cc == "" {
		cc = DefaultCountryCode
	}
	digits := Digits(canonical)
	if len(digits) == len(cc)+nationalLength && strings.HasPrefix(digits, cc) {
		return digits[len(cc):]
	}
	return digits
}

// Last returns the last n digits of a number, used for display labels.
func Last(canonical string, n int) string {
	digits := Digits(canonical)
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}
