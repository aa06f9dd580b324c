package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
)

// PasswordFormatResult reports a format check with per-rule details
type PasswordFormatResult struct {
	Valid   bool
	Message string
	Details entity.PasswordCheck
}

// ValidatePasswordFormat checks password against the configured policy.
// Lowercase is reported in Details but only enforced when the policy asks for it.
func ValidatePasswordFormat(password string, policy config.Password) PasswordFormatResult {
	if password == "" {
		return PasswordFormatResult{Message: "Password is required"}
	}

	details := entity.PasswordCheck{
		Length: utf8.RuneCountInString(password) >= policy.MinLength,
	}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			details.Uppercase = true
		case unicode.IsLower(r):
			details.Lowercase = true
		case unicode.IsDigit(r):
			details.Number = true
		}
	}

	var missing []string
	if !details.Length {
		missing = append(missing, fmt.Sprintf("at least %d characters", policy.MinLength))
	}
	if !details.Uppercase {
		missing = append(missing, "1 uppercase letter")
	}
	if policy.RequireLowercase && !details.Lowercase {
		missing = append(missing, "1 lowercase letter")
	}
	if !details.Number {
		missing = append(missing, "1 number")
	}

	if len(missing) > 0 {
		return PasswordFormatResult{
			Message: "Please choose a valid password that includes: " + strings.Join(missing, ", ") + ".",
			Details: details,
		}
	}

	return PasswordFormatResult{
		Valid:   true,
		Message: "Password format is valid",
		Details: details,
	}
}
