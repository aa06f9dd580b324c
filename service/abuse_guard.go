package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunhariram/ent-web/config"
	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/pkg/metrics"
	"github.com/arjunhariram/ent-web/repository"
)

// RequestLimitState is the OTP request budget of one mobile number
type RequestLimitState struct {
	Count             int
	Remaining         int
	CooldownRemaining int // seconds
	WithinLimit       bool
}

// IncorrectAttemptState is the failed-verification state of one mobile number
type IncorrectAttemptState struct {
	Blocked            bool
	Remaining          int
	BlockTimeRemaining int // seconds
}

// SendReservation is one slot of the OTP request budget, taken before a code is issued.
type SendReservation struct {
	Count   int
	Allowed bool
}

// AttemptReservation is one verification attempt, counted before the code is compared.
type AttemptReservation struct {
	Mobile             entity.MobileNumber
	IP                 string
	Count              int // incorrect attempts for the number, this one included
	IPCount            int
	Allowed            bool
	IPBlocked          bool
	BlockTimeRemaining int // seconds
}

// AbuseGuard enforces the request and failed-attempt limits for mobile numbers and IPs.
// Limits are taken with an atomic increment before the guarded work runs, so
// concurrent requests cannot all pass the same check.
type AbuseGuard interface {
	RequestLimit(ctx context.Context, mobile entity.MobileNumber) (*RequestLimitState, error)
	// ReserveSend takes a slot of the request budget. The slot that uses the budget up starts the cooldown.
	ReserveSend(ctx context.Context, mobile entity.MobileNumber) (*SendReservation, error)
	// ReleaseElapsedCooldown clears an exhausted budget whose recorded cooldown has run out.
	ReleaseElapsedCooldown(ctx context.Context, mobile entity.MobileNumber) error

	IncorrectAttempts(ctx context.Context, mobile entity.MobileNumber) (*IncorrectAttemptState, error)
	ReserveAttempt(ctx context.Context, mobile entity.MobileNumber, ip string) (*AttemptReservation, error)
	// FailAttempt keeps a reserved attempt as incorrect and returns the attempts left.
	FailAttempt(ctx context.Context, r *AttemptReservation) int
	// SucceedAttempt clears the number's counter and hands the IP slot back.
	SucceedAttempt(ctx context.Context, r *AttemptReservation) error
	// ReleaseAttempt hands back an attempt that compared nothing and returns the attempts left.
	ReleaseAttempt(ctx context.Context, r *AttemptReservation) int

	CheckIP(ctx context.Context, ip string) (*entity.IPStatus, error)
	// ReserveIPRequest counts a request from ip. allowed is false once the window's budget is spent.
	ReserveIPRequest(ctx context.Context, ip string) (count int, allowed bool, err error)
}

type abuseGuard struct {
	mobileRequests  *Limiter
	mobileIncorrect *Limiter
	ipRequests      *Limiter
	ipIncorrect     *Limiter
	markers         repository.MarkerRepository
	otpCfg          config.OTP
	rateCfg         config.RateLimit
	logger          *logger.Logger
	now             func() time.Time
}

// NewAbuseGuard wires the four counter namespaces over store
func NewAbuseGuard(store repository.KVStore, cfg *config.Config, logger *logger.Logger) AbuseGuard {
	return &abuseGuard{
		mobileRequests: NewLimiter(
			repository.NewCounterRepository(store, repository.PrefixOTPCount, cfg.OTP.RequestWindow, logger),
			cfg.OTP.MaxRequests),
		mobileIncorrect: NewLimiter(
			repository.NewCounterRepository(store, repository.PrefixIncorrectMobile, cfg.RateLimit.LockoutDuration, logger),
			cfg.RateLimit.MaxIncorrectAttempts),
		ipRequests: NewLimiter(
			repository.NewCounterRepository(store, repository.PrefixIPRequests, cfg.RateLimit.IPRequestWindow, logger),
			cfg.RateLimit.IPMaxRequests),
		ipIncorrect: NewLimiter(
			repository.NewCounterRepository(store, repository.PrefixIncorrectIP, cfg.RateLimit.LockoutDuration, logger),
			cfg.RateLimit.MaxIncorrectIPAttempts),
		markers: repository.NewMarkerRepository(store),
		otpCfg:  cfg.OTP,
		rateCfg: cfg.RateLimit,
		logger:  logger,
		now:     time.Now,
	}
}

func (g *abuseGuard) RequestLimit(ctx context.Context, mobile entity.MobileNumber) (*RequestLimitState, error) {
	count, err := g.mobileRequests.Count(ctx, mobile.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read OTP request count: %w", err)
	}

	cooldown, err := g.markers.CooldownRemaining(ctx, mobile, g.now())
	if err != nil {
		return nil, fmt.Errorf("failed to read OTP cooldown: %w", err)
	}

	// A live cooldown refuses issuance even if the counter was cleared.
	within := count < g.mobileRequests.Max() && cooldown == 0
	rem := remaining(g.mobileRequests.Max(), count)
	if cooldown > 0 {
		rem = 0
	}

	return &RequestLimitState{
		Count:             count,
		Remaining:         rem,
		CooldownRemaining: cooldown,
		WithinLimit:       within,
	}, nil
}

func (g *abuseGuard) ReserveSend(ctx context.Context, mobile entity.MobileNumber) (*SendReservation, error) {
	// A live cooldown refuses issuance even if the counter was cleared.
	cooldown, err := g.markers.CooldownRemaining(ctx, mobile, g.now())
	if err != nil {
		return nil, fmt.Errorf("failed to read OTP cooldown: %w", err)
	}
	if cooldown > 0 {
		return &SendReservation{}, nil
	}

	count, err := g.mobileRequests.Increment(ctx, mobile.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count OTP request: %w", err)
	}

	budget := g.mobileRequests.Max()
	if count > budget {
		return &SendReservation{Count: count}, nil
	}

	if count == budget {
		until := g.now().Add(g.otpCfg.CooldownDuration)
		if err := g.markers.SetCooldown(ctx, mobile, until, g.cooldownMarkerTTL()); err != nil {
			// The exhausted counter still refuses issuance for the rest of its window.
			g.logger.Errorw("Failed to start OTP cooldown", "mobile", mobile.Masked(), "error", err)
		} else {
			metrics.CooldownsTrippedTotal.Inc()
			g.logger.Infow("OTP request cooldown started",
				"mobile", mobile.Masked(),
				"count", count,
				"until", until.Format(time.RFC3339))
		}
	}

	// resend:<id> mirrors otpcount for monitoring; otpcount alone decides.
	if count > 1 {
		if err := g.markers.SetResendCount(ctx, mobile, count-1, g.otpCfg.ResendWindow); err != nil {
			g.logger.Warnw("Failed to update resend count", "mobile", mobile.Masked(), "error", err)
		}
	}

	return &SendReservation{Count: count, Allowed: true}, nil
}

// cooldownMarkerTTL keeps the marker past the cooldown's end for as long as
// the counter can live, so an elapsed cooldown is told apart from a missing one.
func (g *abuseGuard) cooldownMarkerTTL() time.Duration {
	if g.otpCfg.RequestWindow > g.otpCfg.CooldownDuration {
		return g.otpCfg.RequestWindow
	}
	return g.otpCfg.CooldownDuration
}

func (g *abuseGuard) ReleaseElapsedCooldown(ctx context.Context, mobile entity.MobileNumber) error {
	count, err := g.mobileRequests.Count(ctx, mobile.String())
	if err != nil {
		return fmt.Errorf("failed to read OTP request count: %w", err)
	}
	if count < g.mobileRequests.Max() {
		return nil
	}

	// Without a recorded cooldown the counter runs out its own window.
	elapsed, err := g.markers.CooldownElapsed(ctx, mobile, g.now())
	if err != nil {
		return fmt.Errorf("failed to read OTP cooldown: %w", err)
	}
	if !elapsed {
		return nil
	}

	if err := g.mobileRequests.Reset(ctx, mobile.String()); err != nil {
		return fmt.Errorf("failed to reset OTP request count: %w", err)
	}
	if err := g.markers.ClearResendCount(ctx, mobile); err != nil {
		g.logger.Warnw("Failed to clear resend count", "mobile", mobile.Masked(), "error", err)
	}
	if err := g.markers.ClearCooldown(ctx, mobile); err != nil {
		g.logger.Warnw("Failed to clear cooldown", "mobile", mobile.Masked(), "error", err)
	}

	g.logger.Infow("OTP request budget released after cooldown", "mobile", mobile.Masked())
	return nil
}

func (g *abuseGuard) IncorrectAttempts(ctx context.Context, mobile entity.MobileNumber) (*IncorrectAttemptState, error) {
	count, err := g.mobileIncorrect.Count(ctx, mobile.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read incorrect attempts: %w", err)
	}

	state := &IncorrectAttemptState{
		Blocked:   count >= g.mobileIncorrect.Max(),
		Remaining: remaining(g.mobileIncorrect.Max(), count),
	}

	if state.Blocked {
		ttl, err := g.mobileIncorrect.TimeUntilReset(ctx, mobile.String())
		if err != nil {
			return nil, fmt.Errorf("failed to read block time: %w", err)
		}
		state.BlockTimeRemaining = ttl
	}

	return state, nil
}

func (g *abuseGuard) ReserveAttempt(ctx context.Context, mobile entity.MobileNumber, ip string) (*AttemptReservation, error) {
	r := &AttemptReservation{Mobile: mobile, IP: ip}

	if ip != "" {
		n, err := g.ipIncorrect.Increment(ctx, ip)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempt for IP: %w", err)
		}
		r.IPCount = n

		if n > g.ipIncorrect.Max() {
			g.releaseIP(ctx, ip)
			remaining, err := g.ensureIPBlock(ctx, ip, n)
			if err != nil {
				return nil, err
			}
			r.IPBlocked = true
			r.BlockTimeRemaining = remaining
			return r, nil
		}
	}

	n, err := g.mobileIncorrect.Increment(ctx, mobile.String())
	if err != nil {
		g.releaseIP(ctx, ip)
		return nil, fmt.Errorf("failed to count incorrect attempt: %w", err)
	}
	r.Count = n

	if n > g.mobileIncorrect.Max() {
		g.releaseIP(ctx, ip)
		ttl, err := g.mobileIncorrect.TimeUntilReset(ctx, mobile.String())
		if err != nil {
			return nil, fmt.Errorf("failed to read block time: %w", err)
		}
		r.BlockTimeRemaining = ttl
		return r, nil
	}

	r.Allowed = true
	return r, nil
}

func (g *abuseGuard) FailAttempt(ctx context.Context, r *AttemptReservation) int {
	if r.Count >= g.mobileIncorrect.Max() {
		g.logger.Warnw("Mobile number blocked after incorrect OTP attempts",
			"mobile", r.Mobile.Masked(),
			"attempts", r.Count)
	}

	if r.IP != "" && r.IPCount >= g.ipIncorrect.Max() {
		if _, err := g.ensureIPBlock(ctx, r.IP, r.IPCount); err != nil {
			g.logger.Errorw("Failed to block IP", "ip", r.IP, "error", err)
		}
	}

	return remaining(g.mobileIncorrect.Max(), r.Count)
}

func (g *abuseGuard) SucceedAttempt(ctx context.Context, r *AttemptReservation) error {
	g.releaseIP(ctx, r.IP)
	if err := g.mobileIncorrect.Reset(ctx, r.Mobile.String()); err != nil {
		return fmt.Errorf("failed to reset incorrect attempts: %w", err)
	}
	return nil
}

func (g *abuseGuard) ReleaseAttempt(ctx context.Context, r *AttemptReservation) int {
	g.releaseIP(ctx, r.IP)

	count, err := g.mobileIncorrect.Decrement(ctx, r.Mobile.String())
	if err != nil {
		g.logger.Warnw("Failed to release incorrect attempt", "mobile", r.Mobile.Masked(), "error", err)
		count = r.Count
	}
	return remaining(g.mobileIncorrect.Max(), count)
}

func (g *abuseGuard) releaseIP(ctx context.Context, ip string) {
	if ip == "" {
		return
	}
	if _, err := g.ipIncorrect.Decrement(ctx, ip); err != nil {
		g.logger.Warnw("Failed to release IP attempt", "ip", ip, "error", err)
	}
}

// ensureIPBlock blocks ip unless a block is already running and returns the seconds left on it.
func (g *abuseGuard) ensureIPBlock(ctx context.Context, ip string, attempts int) (int, error) {
	left, err := g.markers.IPBlockRemaining(ctx, ip)
	if err != nil {
		return 0, fmt.Errorf("failed to read IP block: %w", err)
	}
	if left > 0 {
		return left, nil
	}

	if err := g.markers.BlockIP(ctx, ip, g.rateCfg.IPBlockDuration); err != nil {
		return 0, fmt.Errorf("failed to block IP: %w", err)
	}
	metrics.IPBlocksTotal.Inc()
	g.logger.Warnw("IP blocked after incorrect OTP attempts", "ip", ip, "attempts", attempts)
	return int(g.rateCfg.IPBlockDuration / time.Second), nil
}

func (g *abuseGuard) CheckIP(ctx context.Context, ip string) (*entity.IPStatus, error) {
	count, err := g.ipRequests.Count(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("failed to read IP request count: %w", err)
	}

	blockRemaining, err := g.markers.IPBlockRemaining(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("failed to read IP block: %w", err)
	}

	status := &entity.IPStatus{
		IsWithinRequestLimit: count < g.ipRequests.Max(),
		IsBlocked:            blockRemaining > 0,
		RemainingRequests:    remaining(g.ipRequests.Max(), count),
		BlockTimeRemaining:   blockRemaining,
	}
	status.IsAllowedToMakeRequests = status.IsWithinRequestLimit && !status.IsBlocked

	return status, nil
}

func (g *abuseGuard) ReserveIPRequest(ctx context.Context, ip string) (int, bool, error) {
	count, err := g.ipRequests.Increment(ctx, ip)
	if err != nil {
		return 0, false, fmt.Errorf("failed to count IP request: %w", err)
	}
	return count, count <= g.ipRequests.Max(), nil
}
