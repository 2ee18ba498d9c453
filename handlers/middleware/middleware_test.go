package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethpandaops/suiscope/types"
	"github.com/ethpandaops/suiscope/utils"
)

func TestMatchOrigin(t *testing.T) {
	assert.True(t, matchOrigin("*", "https://example.org"))
	assert.True(t, matchOrigin("https://*.suiscope.io", "https://mainnet.suiscope.io"))
	assert.False(t, matchOrigin("https://*.suiscope.io", "https://suiscope.io.evil.org"))
	assert.False(t, matchOrigin("https://suiscope.io", "http://suiscope.io"))
}

func TestCorsMiddleware(t *testing.T) {
	utils.Config = &types.Config{}
	utils.Config.Api.Enabled = true
	utils.Config.Api.CorsOrigins = []string{"https://*.suiscope.io"}

	called := false
	handler := CorsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkpoints", nil)
	req.Header.Set("Origin", "https://mainnet.suiscope.io")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, called)
	assert.Equal(t, "https://mainnet.suiscope.io", rec.Header().Get("Access-Control-Allow-Origin"))

	called = false
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/checkpoints", nil)
	req.Header.Set("Origin", "https://other.org")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCallCost(t *testing.T) {
	utils.Config = &types.Config{}
	utils.Config.Tables.DefaultLimit = 20
	utils.Config.Tables.MaxLimit = 100
	SetEndpointCost("/api/v1/epochs", 3)

	var costs []int
	handler := CallCostMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		costs = append(costs, GetCallCost(r))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/epochs", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/checkpoints", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/checkpoints?limit=50", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/epochs?limit=1000", nil))

	assert.Equal(t, []int{3, 1, 3, 15}, costs)
	assert.Equal(t, 1, GetCallCost(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestGetClientIP(t *testing.T) {
	utils.Config = &types.Config{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "192.0.2.1", GetClientIP(req))

	utils.Config.RateLimit.ProxyCount = 1
	assert.Equal(t, "203.0.113.7", GetClientIP(req))
}
