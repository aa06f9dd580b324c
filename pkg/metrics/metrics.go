package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ent_web_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// OTP lifecycle
	OTPIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_otp_issued_total",
		Help: "Total number of OTP codes issued.",
	}, []string{"purpose"})
	OTPRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_otp_rejected_total",
		Help: "Total number of OTP requests refused before issuance.",
	}, []string{"reason"})
	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_otp_verifications_total",
		Help: "Total number of OTP verification attempts.",
	}, []string{"result"}) // result: "success", "invalid", "expired", "blocked"
	CooldownsTrippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ent_web_otp_cooldowns_tripped_total",
		Help: "Total number of OTP request cooldowns started.",
	})
	IPBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ent_web_ip_blocks_total",
		Help: "Total number of IP addresses blocked for abuse.",
	})

	// Accounts
	PasswordChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_password_changes_total",
		Help: "Total number of successful password mutations.",
	}, []string{"flow"}) // flow: "set", "reset", "change"
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_login_attempts_total",
		Help: "Total number of password login attempts.",
	}, []string{"status"})

	// Key-value store
	KVStoreState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ent_web_kv_store_state",
		Help: "Connection state of the key-value store (0 connecting, 1 connected, 2 reconnecting, 3 closed).",
	})
	KVFallbackOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ent_web_kv_fallback_operations_total",
		Help: "Total number of key-value operations served by the in-memory fallback.",
	}, []string{"operation"})
	KVFallbackPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ent_web_kv_fallback_purged_total",
		Help: "Total number of expired fallback entries removed by the cleanup routine.",
	})
)
