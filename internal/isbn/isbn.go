// Package isbn validates raw book identifiers and converts them to the
// canonical 13-digit form used everywhere else in the service.
package isbn

import (
	"errors"
	"strings"
)

// ErrInvalid is returned for identifiers with the wrong length or a bad check digit.
var ErrInvalid = errors.New("invalid isbn")

// Normalize strips separators from raw and returns the checksum-valid ISBN-13.
// A valid ISBN-10 is converted to its 978-prefixed ISBN-13 equivalent.
func Normalize(raw string) (string, error) {
	cleaned := clean(raw)

	switch len(cleaned) {
	case 13:
		if !allDigits(cleaned) || !ValidISBN13(cleaned) {
			return "", ErrInvalid
		}
		return cleaned, nil
	case 10:
		if !ValidISBN10(cleaned) {
			return "", ErrInvalid
		}
		return ToISBN13(cleaned), nil
	default:
		return "", ErrInvalid
	}
}

// ValidISBN13 reports whether s is 13 digits with a correct check digit.
func ValidISBN13(s string) bool {
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	return checkDigit13(s[:12]) == s[12]
}

// ValidISBN10 reports whether s is nine digits followed by a digit or X and
// satisfies the modulo-11 checksum.
func ValidISBN10(s string) bool {
	if len(s) != 10 || !allDigits(s[:9]) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(s[i]-'0') * (10 - i)
	}

	switch last := s[9]; {
	case last == 'X':
		sum += 10
	case last >= '0' && last <= '9':
		sum += int(last - '0')
	default:
		return false
	}

	return sum%11 == 0
}

// ToISBN13 converts a validated ISBN-10 into ISBN-13. The caller must check
// validity first.
func ToISBN13(isbn10 string) string {
	body := "978" + isbn10[:9]
	return body + string(checkDigit13(body))
}

func checkDigit13(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(first12[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

func clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= '0' && r <= '9') || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
