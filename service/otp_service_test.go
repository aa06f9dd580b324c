package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/repository"
	"github.com/arjunhariram/ent-web/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrongCode(code string) string {
	if code == "99999" {
		return "10000"
	}
	return "99999"
}

func TestOTPService_IssueThenVerifyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sent, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)
	require.True(t, sent.Sent)
	assert.Equal(t, "OTP sent successfully", sent.Message)
	assert.Equal(t, entity.PurposeRegistration, sent.Purpose)
	assert.Regexp(t, fiveDigits, sent.Code)
	assert.Equal(t, sent.Code, env.sender.last(testMobile))
	assert.Equal(t, 2, sent.OTPsRemaining)

	verified, err := env.otp.VerifyOTP(ctx, testMobile, sent.Code, testIP)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Equal(t, "OTP verified successfully", verified.Message)
	assert.Equal(t, entity.PurposeRegistration, verified.Purpose)

	again, err := env.otp.VerifyOTP(ctx, testMobile, sent.Code, testIP)
	require.NoError(t, err)
	assert.False(t, again.Verified)
	assert.Equal(t, entity.ReasonOTPExpired, again.Reason)
	assert.Equal(t, "OTP expired or not found. OTPs are valid for 5 minutes.", again.Message)
}

func TestOTPService_FourthSendHitsCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sent, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
		require.NoError(t, err)
		require.True(t, sent.Sent, "send %d", i+1)
		assert.Equal(t, 2-i, sent.OTPsRemaining)
	}

	refused, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)
	assert.False(t, refused.Sent)
	assert.Equal(t, entity.ReasonRequestLimit, refused.Reason)
	assert.Equal(t, "OTP limit reached. Please try again in 4 hours and 0 minutes.", refused.Message)
	assert.Equal(t, 4*3600, refused.RetryAfter)
	assert.Empty(t, refused.Code)

	env.clock.Advance(90 * time.Minute)
	refused, err = env.otp.SendOTP(ctx, testMobile, "", "")
	require.NoError(t, err)
	assert.False(t, refused.Sent)
	assert.Contains(t, refused.Message, "2 hours and 30 minutes")

	env.clock.Advance(150*time.Minute + time.Second)
	sent, err := env.otp.SendOTP(ctx, testMobile, "", "")
	require.NoError(t, err)
	assert.True(t, sent.Sent)
}

func TestOTPService_BlockedAfterFourWrongCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sent, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)
	require.True(t, sent.Sent)

	for i := 1; i <= 4; i++ {
		result, err := env.otp.VerifyOTP(ctx, testMobile, wrongCode(sent.Code), testIP)
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Equal(t, entity.ReasonOTPInvalid, result.Reason)
		assert.Equal(t, "Invalid OTP", result.Message)
		assert.Equal(t, 4-i, result.RemainingAttempts)
	}

	blocked, err := env.otp.VerifyOTP(ctx, testMobile, sent.Code, testIP)
	require.NoError(t, err)
	assert.False(t, blocked.Verified)
	assert.Equal(t, entity.ReasonIncorrectAttemptsBlocked, blocked.Reason)
	assert.Equal(t, 0, blocked.RemainingAttempts)
	assert.Equal(t, 24*3600, blocked.BlockTimeRemaining)
	assert.Contains(t, blocked.Message, "24 hours and 0 minutes")

	status, err := env.otp.CheckStatus(ctx, testMobile)
	require.NoError(t, err)
	assert.True(t, status.IsBlockedByIncorrectAttempts)
	assert.Equal(t, 0, status.RemainingIncorrectAttempts)
	assert.False(t, status.IsEligibleForOTP)

	refused, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonIncorrectAttemptsBlocked, refused.Reason)
}

func TestOTPService_VerifyWritesMarkerByPurpose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.users.add(testMobile, test.MustHash(t, "Secret123"))

	sent, err := env.otp.SendOTP(ctx, testMobile, testIP, entity.PurposePasswordReset)
	require.NoError(t, err)
	require.True(t, sent.Sent)
	assert.Equal(t, "OTP sent to your mobile number", sent.Message)

	result, err := env.otp.VerifyOTP(ctx, testMobile, sent.Code, testIP)
	require.NoError(t, err)
	require.True(t, result.Verified)
	assert.Equal(t, entity.PurposePasswordReset, result.Purpose)

	marker, err := env.otpRepo.GetVerified(ctx, testMobile)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.True(t, marker.Verified)
	assert.Equal(t, env.clock.Now().Add(time.Hour).UnixMilli(), marker.ExpiresAt)

	ttl, err := env.store.TTL(ctx, "verified:9123456789")
	require.NoError(t, err)
	assert.Equal(t, 3600, ttl)
}

func TestOTPService_SendRespectsRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := entity.MobileNumber("9876543210")
	env.users.add(registered, test.MustHash(t, "Secret123"))

	result, err := env.otp.SendOTP(ctx, registered, testIP, entity.PurposeRegistration)
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, entity.ReasonAlreadyRegistered, result.Reason)
	assert.Equal(t, "This mobile number is already registered. Please login instead.", result.Message)

	result, err = env.otp.SendOTP(ctx, testMobile, testIP, entity.PurposePasswordReset)
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, entity.ReasonNotRegistered, result.Reason)

	result, err = env.otp.SendOTP(ctx, testMobile, testIP, entity.PurposeRegistration)
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, "Mobile number is valid and not registered. Proceed with OTP validation.", result.Message)

	result, err = env.otp.SendOTP(ctx, registered, testIP, "")
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, entity.PurposePasswordReset, result.Purpose)
}

func TestOTPService_ResendGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)

	env.clock.Advance(20 * time.Second)
	result, err := env.otp.ResendOTP(ctx, testMobile, testIP)
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, entity.ReasonResendTooSoon, result.Reason)
	assert.Equal(t, 40, result.RetryAfter)
	assert.Equal(t, "Please wait 40 second(s) before requesting a new OTP", result.Message)

	env.clock.Advance(40 * time.Second)
	result, err = env.otp.ResendOTP(ctx, testMobile, testIP)
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, 1, result.OTPsRemaining)
	assert.Equal(t, 1, result.ResendAttemptsLeft)

	resend, found, err := env.store.Get(ctx, "resend:9123456789")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", resend)
}

func TestOTPService_ResendSharesRequestBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.SendOTP(ctx, testMobile, "", "")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		env.clock.Advance(time.Minute)
		result, err := env.otp.ResendOTP(ctx, testMobile, "")
		require.NoError(t, err)
		require.True(t, result.Sent)
	}

	env.clock.Advance(time.Minute)
	result, err := env.otp.ResendOTP(ctx, testMobile, "")
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, entity.ReasonRequestLimit, result.Reason)
}

func TestOTPService_IPLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		mobile := entity.MobileNumber("91234567" + string(rune('0'+i/10)) + string(rune('0'+i%10)))
		result, err := env.otp.SendOTP(ctx, mobile, testIP, "")
		require.NoError(t, err)
		require.True(t, result.Sent)
	}

	result, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, entity.ReasonIPRequestLimit, result.Reason)

	require.NoError(t, env.guard.markers.BlockIP(ctx, "198.51.100.1", 24*time.Hour))
	result, err = env.otp.SendOTP(ctx, testMobile, "198.51.100.1", "")
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonIPBlocked, result.Reason)
	assert.Equal(t, 24*3600, result.RetryAfter)

	verify, err := env.otp.VerifyOTP(ctx, testMobile, "12345", "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonIPBlocked, verify.Reason)
}

func TestOTPService_CodeHiddenUnlessExposed(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.OTP.ExposeCode = false

	result, err := env.otp.SendOTP(context.Background(), testMobile, testIP, "")
	require.NoError(t, err)
	require.True(t, result.Sent)
	assert.Empty(t, result.Code)
	assert.Regexp(t, fiveDigits, env.sender.last(testMobile))
}

func TestOTPService_StoreFailureIsError(t *testing.T) {
	env := newTestEnv(t)
	env.users.err = assert.AnError

	_, err := env.otp.SendOTP(context.Background(), testMobile, testIP, "")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestOTPService_CleanupExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.SendOTP(ctx, testMobile, testIP, "")
	require.NoError(t, err)
	before := env.store.Len()

	env.clock.Advance(6 * time.Minute)
	require.NoError(t, env.otp.CleanupExpired(ctx))

	// otp: and lastSent: are gone; counters live on
	assert.Equal(t, before-2, env.store.Len())
}

func TestOTPService_ConcurrentWrongCodesHonorAttemptLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// A slower hash widens the window between counting and comparing
	env.issuer.cfg.HashCost = 10

	sent, err := env.otp.SendOTP(ctx, testMobile, "", "")
	require.NoError(t, err)
	require.True(t, sent.Sent)
	bad := wrongCode(sent.Code)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reasons = make(map[entity.Reason]int)
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.otp.VerifyOTP(ctx, testMobile, bad, "")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			reasons[result.Reason]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, reasons[entity.ReasonOTPInvalid])
	assert.Equal(t, 196, reasons[entity.ReasonIncorrectAttemptsBlocked])

	// The real code is refused too once the number is locked
	result, err := env.otp.VerifyOTP(ctx, testMobile, sent.Code, "")
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, entity.ReasonIncorrectAttemptsBlocked, result.Reason)
}

func TestOTPService_ConcurrentSendsHonorRequestBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.otp.SendOTP(ctx, testMobile, "", "")
			if !assert.NoError(t, err) {
				return
			}
			if result.Sent {
				mu.Lock()
				sent++
				mu.Unlock()
			} else {
				assert.Equal(t, entity.ReasonRequestLimit, result.Reason)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, sent)
	assert.Equal(t, 3, env.sender.total(testMobile))
}

func TestOTPService_FailedCooldownWriteStillCapsSends(t *testing.T) {
	env := newTestEnvWithStore(t, func(store repository.KVStore) repository.KVStore {
		return failingSetStore{KVStore: store, prefix: repository.PrefixCooldown}
	})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := env.otp.SendOTP(ctx, testMobile, "", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, env.sender.total(testMobile))

	env.clock.Advance(4*time.Hour + time.Minute)
	refused, err := env.otp.SendOTP(ctx, testMobile, "", "")
	require.NoError(t, err)
	assert.False(t, refused.Sent)
	assert.Equal(t, 3, env.sender.total(testMobile))
}
