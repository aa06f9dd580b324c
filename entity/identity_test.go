package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMobileNumber_Valid(t *testing.T) {
	testCases := []struct {
		raw      string
		expected MobileNumber
	}{
		{"9123456789", "9123456789"},
		{"+91 91234 56789", "9123456789"},
		{"919123456789", "9123456789"},
		{"09123456789", "9123456789"},
		{"(912) 345-6789", "9123456789"},
		{"6000000000", "6000000000"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := NormalizeMobileNumber(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNormalizeMobileNumber_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"5123456789",    // must start with 6-9
		"912345678",     // too short
		"91234567890",   // 11 digits without leading 0
		"+1234567890",   // not an Indian number
		"abcdefghij",    // no digits
		"1919123456789", // too long
	}

	for _, raw := range invalid {
		_, err := NormalizeMobileNumber(raw)
		assert.ErrorIs(t, err, ErrInvalidMobileNumber, "%q should be rejected", raw)
		assert.False(t, IsValidMobileNumber(raw))
	}
}

func TestMobileNumber_Masked(t *testing.T) {
	assert.Equal(t, "******6789", MobileNumber("9123456789").Masked())
	assert.Equal(t, "123", MobileNumber("123").Masked())
}
