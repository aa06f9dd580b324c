package entity

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidMobileNumber is returned when a raw value cannot be normalized to a mobile number.
var ErrInvalidMobileNumber = errors.New("invalid mobile number")

var mobileNumberPattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// MobileNumber is a normalized 10-digit Indian mobile number.
// Values of this type only come out of NormalizeMobileNumber.
type MobileNumber string

func (m MobileNumber) String() string {
	return string(m)
}

// Masked hides all but the last four digits, for logs.
func (m MobileNumber) Masked() string {
	s := string(m)
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// NormalizeMobileNumber strips formatting and an optional +91 or 0 prefix and
// checks that what remains is a valid mobile number.
func NormalizeMobileNumber(raw string) (MobileNumber, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}

	if !mobileNumberPattern.MatchString(digits) {
		return "", ErrInvalidMobileNumber
	}

	return MobileNumber(digits), nil
}

// IsValidMobileNumber reports whether raw normalizes to a mobile number.
func IsValidMobileNumber(raw string) bool {
	_, err := NormalizeMobileNumber(raw)
	return err == nil
}
