package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/arjunhariram/ent-web/repository"
	"github.com/arjunhariram/ent-web/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error {
	return p.err
}

type stubKVState repository.ConnState

func (s stubKVState) State() repository.ConnState {
	return repository.ConnState(s)
}

func TestHealthController_HealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		dbErr    error
		kv       repository.ConnState
		code     int
		status   string
		kvStatus string
	}{
		{name: "healthy", kv: repository.StateConnected, code: http.StatusOK, status: "healthy", kvStatus: "connected"},
		{name: "kv on fallback", kv: repository.StateReconnecting, code: http.StatusOK, status: "degraded", kvStatus: "reconnecting"},
		{name: "database down", dbErr: errors.New("connection refused"), kv: repository.StateConnected, code: http.StatusServiceUnavailable, status: "unhealthy", kvStatus: "connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthController(stubPinger{err: tt.dbErr}, stubKVState(tt.kv), test.GetTestLogger())

			ctx, rec := newContext(t, http.MethodGet, "/api/health", nil)
			require.NoError(t, h.HealthCheck(ctx))

			assert.Equal(t, tt.code, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, tt.kvStatus, body["kvStore"])
		})
	}
}

func TestHealthController_ServiceInfo(t *testing.T) {
	h := NewHealthController(stubPinger{}, stubKVState(repository.StateConnected), test.GetTestLogger())

	ctx, rec := newContext(t, http.MethodGet, "/", nil)
	require.NoError(t, h.ServiceInfo(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/swagger/index.html", decode(t, rec)["docs"])
}
