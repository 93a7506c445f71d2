package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]bool
		wantStatus string
	}{
		{name: "no components", components: map[string]bool{}, wantStatus: "healthy"},
		{name: "all healthy", components: map[string]bool{"gateway": true, "api": true}, wantStatus: "healthy"},
		{name: "one unhealthy", components: map[string]bool{"gateway": false, "api": true}, wantStatus: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker()
			for name, healthy := range tt.components {
				h.Update(name, healthy, "down")
			}
			health := h.Health()
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Len(t, health.Components, len(tt.components))
		})
	}
}

func TestHealth_UnhealthyMessage(t *testing.T) {
	h := NewHealthChecker()
	h.Update(ComponentGateway, false, "session closed")

	assert.Equal(t, "unhealthy: session closed", h.Health().Components[ComponentGateway])
}

func TestReadiness(t *testing.T) {
	h := NewHealthChecker(ComponentGateway, ComponentScheduler)

	r := h.Readiness()
	assert.Equal(t, "not_ready", r.Status)
	assert.Equal(t, "not registered", r.Components[ComponentGateway])

	h.Update(ComponentGateway, true, "")
	h.Update(ComponentScheduler, false, "starting")
	r = h.Readiness()
	assert.Equal(t, "not_ready", r.Status)
	assert.Equal(t, "waiting for scheduler", r.Message)

	h.Update(ComponentScheduler, true, "")
	r = h.Readiness()
	assert.Equal(t, "ready", r.Status)
	assert.Empty(t, r.Message)

	// Non-critical components never block readiness
	h.Update("history", false, "disk full")
	assert.Equal(t, "ready", h.Readiness().Status)
}

func TestHandlers(t *testing.T) {
	h := NewHealthChecker(ComponentGateway)
	h.version = "v1.2.3"

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		healthy  bool
		wantCode int
	}{
		{name: "health ok", handler: h.HealthHandler(), healthy: true, wantCode: http.StatusOK},
		{name: "health down", handler: h.HealthHandler(), healthy: false, wantCode: http.StatusServiceUnavailable},
		{name: "ready ok", handler: h.ReadyHandler(), healthy: true, wantCode: http.StatusOK},
		{name: "ready down", handler: h.ReadyHandler(), healthy: false, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.Update(ComponentGateway, tt.healthy, "down")

			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, "v1.2.3", status.Version)
			assert.NotEmpty(t, status.Uptime)
		})
	}
}
