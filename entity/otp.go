package entity

// Purpose identifies the flow an OTP was issued for
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password_reset"
)

// Reason classifies a business-rule rejection
type Reason string

const (
	ReasonNone                     Reason = ""
	ReasonAlreadyRegistered        Reason = "already_registered"
	ReasonNotRegistered            Reason = "not_registered"
	ReasonRequestLimit             Reason = "request_limit"
	ReasonIncorrectAttemptsBlocked Reason = "incorrect_attempts_blocked"
	ReasonRecentPasswordReset      Reason = "recent_password_reset"
	ReasonIPBlocked                Reason = "ip_blocked"
	ReasonIPRequestLimit           Reason = "ip_request_limit"
	ReasonResendTooSoon            Reason = "resend_too_soon"
	ReasonOTPExpired               Reason = "otp_expired"
	ReasonOTPInvalid               Reason = "otp_invalid"
	ReasonVerificationRequired     Reason = "verification_required"
	ReasonPasswordMismatch         Reason = "password_mismatch"
	ReasonWeakPassword             Reason = "weak_password"
	ReasonPasswordReused           Reason = "password_reused"
	ReasonIncorrectPassword        Reason = "incorrect_password"
)

// OTPStatus aggregates every limit that decides whether an OTP may be issued
type OTPStatus struct {
	IsEligibleForOTP             bool `json:"isEligibleForOTP"`
	HasRecentPasswordReset       bool `json:"hasRecentPasswordReset"`
	IsWithinOTPRequestLimit      bool `json:"isWithinOTPRequestLimit"`
	IsBlockedByIncorrectAttempts bool `json:"isBlockedByIncorrectAttempts"`
	RemainingOTPRequests         int  `json:"remainingOTPRequests"`
	RemainingIncorrectAttempts   int  `json:"remainingIncorrectAttempts"`
	BlockTimeRemaining           int  `json:"blockTimeRemaining"` // seconds
	CooldownRemaining            int  `json:"cooldownRemaining"`  // seconds
}

// IPStatus describes the abuse state of a client address
type IPStatus struct {
	IsAllowedToMakeRequests bool `json:"isAllowedToMakeRequests"`
	IsWithinRequestLimit    bool `json:"isWithinRequestLimit"`
	IsBlocked               bool `json:"isBlocked"`
	RemainingRequests       int  `json:"remainingRequests"`
	BlockTimeRemaining      int  `json:"blockTimeRemaining"` // seconds
}

// VerifiedMarker is stored after a successful verification and consumed by a gated action.
// Timestamps are unix milliseconds.
type VerifiedMarker struct {
	Verified  bool  `json:"verified"`
	Timestamp int64 `json:"timestamp"`
	ExpiresAt int64 `json:"expiresAt"`
}

// PasswordResetMarker records a completed reset for the reset cooldown
type PasswordResetMarker struct {
	ResetTime int64 `json:"resetTime"`
	Success   bool  `json:"success"`
}

// SendOTPResult is the outcome of an issuance request.
// Sent is false with a Reason for business rejections.
type SendOTPResult struct {
	Sent               bool
	Reason             Reason
	Message            string
	Purpose            Purpose
	Code               string
	ResendAttemptsLeft int
	OTPsRemaining      int
	RetryAfter         int // seconds
	Status             *OTPStatus
}

// VerifyOTPResult is the outcome of a verification attempt
type VerifyOTPResult struct {
	Verified           bool
	Reason             Reason
	Message            string
	Purpose            Purpose
	RemainingAttempts  int
	BlockTimeRemaining int // seconds
}

// MobileNumberRequest carries just a mobile number
type MobileNumberRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,mobile_number"`
}

// VerifyOTPRequest represents the request to verify an OTP
type VerifyOTPRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,mobile_number"`
	OTP          string `json:"otp" validate:"required,numeric,len=5"`
}

// OTPResponse represents the response to an issuance request
type OTPResponse struct {
	IsValid            bool   `json:"isValid"`
	Message            string `json:"message"`
	OTP                string `json:"otp,omitempty"`
	ResendAttemptsLeft int    `json:"resendAttemptsLeft"`
	OTPsRemaining      int    `json:"otpsRemaining"`
	TimeRemaining      int    `json:"timeRemaining,omitempty"`
}

// VerifyOTPResponse represents the response to a verification attempt
type VerifyOTPResponse struct {
	IsValid            bool    `json:"isValid"`
	Message            string  `json:"message"`
	Purpose            Purpose `json:"purpose,omitempty"`
	RemainingAttempts  int     `json:"remainingAttempts"`
	BlockTimeRemaining int     `json:"blockTimeRemaining,omitempty"`
}

// OTPStatusResponse wraps a status with its user-facing message
type OTPStatusResponse struct {
	OTPStatus
	Message string `json:"message"`
}

// IPStatusResponse wraps an IP status with its user-facing message
type IPStatusResponse struct {
	IPStatus
	Message string `json:"message"`
}
