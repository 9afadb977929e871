package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	handlers "printbot/internal/http/handler"
	"printbot/internal/http/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpsApp(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	healthy := true
	checks := []handlers.Check{{Name: "lp", Probe: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("lp missing")
	}}}

	app, err := newOpsApp(logger, registry, checks)
	require.NoError(t, err)

	t.Run("liveness carries request id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		healthy = false
		defer func() { healthy = true }()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})

	t.Run("metrics expose http counters", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `http_requests_total{method="GET",path="/healthz",status="200"} 1`)
	})

	t.Run("registry is not reusable", func(t *testing.T) {
		_, err := newOpsApp(logger, registry, checks)
		assert.Error(t, err)
	})
}
