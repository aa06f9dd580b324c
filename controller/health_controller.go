package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/arjunhariram/ent-web/pkg/logger"
	"github.com/arjunhariram/ent-web/repository"

	"github.com/labstack/echo/v4"
)

const (
	serviceName    = "ent-web-auth"
	serviceVersion = "1.0.0"
	healthTimeout  = 2 * time.Second
)

// DBPinger is satisfied by *sqlx.DB and *sql.DB
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// KVStateReporter exposes the key-value store connection state
type KVStateReporter interface {
	State() repository.ConnState
}

type HealthController struct {
	db     DBPinger
	kv     KVStateReporter
	logger *logger.Logger
}

func NewHealthController(db DBPinger, kv KVStateReporter, logger *logger.Logger) *HealthController {
	return &HealthController{
		db:     db,
		kv:     kv,
		logger: logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Service  string `json:"service" example:"ent-web-auth"`
	Version  string `json:"version" example:"1.0.0"`
	Database string `json:"database" example:"connected"`
	KVStore  string `json:"kvStore" example:"connected"`
}

// HealthCheck godoc
// @Summary Health check endpoint
// @Description Reports database connectivity and the key-value store state. A store running on its in-memory fallback is reported as degraded.
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthController) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Service:  serviceName,
		Version:  serviceVersion,
		Database: "connected",
		KVStore:  h.kv.State().String(),
	}

	if !h.kv.State().Available() {
		response.Status = "degraded"
	}

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Errorw("Health check database ping failed", "error", err)
		response.Status = "unhealthy"
		response.Database = "error"
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	return c.JSON(http.StatusOK, response)
}

// ServiceInfoResponse represents the service info response
type ServiceInfoResponse struct {
	Message string `json:"message" example:"Mobile OTP Authentication Service"`
	Version string `json:"version" example:"1.0.0"`
	Docs    string `json:"docs" example:"/swagger/index.html"`
}

// ServiceInfo godoc
// @Summary Service information
// @Description Returns basic service information and documentation links
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} ServiceInfoResponse
// @Router / [get]
func (h *HealthController) ServiceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, ServiceInfoResponse{
		Message: "Mobile OTP Authentication Service",
		Version: serviceVersion,
		Docs:    "/swagger/index.html",
	})
}
