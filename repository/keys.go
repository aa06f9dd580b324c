package repository

// Key prefixes in the key-value store. Monitoring and debug tooling depends on these names.
const (
	PrefixOTP              = "otp:"
	PrefixOTPCount         = "otpcount:"
	PrefixResend           = "resend:"
	PrefixCooldown         = "cooldown:"
	PrefixLastSent         = "lastSent:"
	PrefixVerified         = "verified:"
	PrefixIncorrectMobile  = "incorrect_otp:mobile:"
	PrefixIncorrectIP      = "incorrect_otp:ip:"
	PrefixIPRequests       = "ip_requests:"
	PrefixIPBlocked        = "ip_blocked:"
	PrefixPasswordReset    = "password_reset:"
	PrefixBlacklistedToken = "blacklist_token:"
)

// Key joins a prefix and an identity.
func Key(prefix, id string) string {
	return prefix + id
}
