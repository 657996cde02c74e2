package util

import "strings"

// phoneSuffixDigits is the width used when matching phones across records
// that may disagree on country-code formatting.
const phoneSuffixDigits = 10

// NormalizePhone canonicalizes a raw phone string to "+<countrycode><digits>".
// Inputs that cannot be read as a phone number yield "", never an error;
// callers must treat "" as invalid input.
//
// Numbers without an explicit "+" get local-market defaults: an 11-digit
// national number with a single leading zero is assumed to be a Bangladesh
// number and rewritten with country code 880.
//
// This is deliberately stricter than accepting any 10-15 digit sequence:
// "+"-prefixed numbers under 8 digits and leading-zero sequences outside the
// Bangladesh pattern are rejected, since no country code starts with zero.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	hadPlus := strings.HasPrefix(s, "+")
	digits := digitsOnly(s)

	switch {
	case digits == "":
		return ""
	case hadPlus:
		if len(digits) < 8 || len(digits) > 15 {
			return ""
		}
		return "+" + digits
	case len(digits) == 11 && digits[0] == '0' && digits[1] != '0':
		return "+880" + digits[1:]
	case strings.HasPrefix(digits, "880") && len(digits) >= 12 && len(digits) <= 15:
		return "+" + digits
	case len(digits) >= 10 && len(digits) <= 15 && digits[0] != '0':
		// Best-effort international form. Country codes never start with zero.
		return "+" + digits
	default:
		return ""
	}
}

// PhoneSuffix returns the trailing digits of a phone number used for
// formatting-tolerant matching. Returns "" when the number is shorter than
// the suffix width.
func PhoneSuffix(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) < phoneSuffixDigits {
		return ""
	}
	return digits[len(digits)-phoneSuffixDigits:]
}

// NormalizeEmail lowers and trims an email address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
