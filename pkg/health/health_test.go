package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAggregates(t *testing.T) {
	c := NewChecker("evaluate", "abc")
	c.Register("redis", func(context.Context) error { return nil })
	c.Register("postgres", func(context.Context) error { return errors.New("connection refused") })

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusUp, report.Components["redis"].Status)
	assert.Equal(t, "connection refused", report.Components["postgres"].Message)
	assert.Equal(t, []string{"postgres", "redis"}, c.Names())
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker("prepare", "abc")
	rec := httptest.NewRecorder()
	c.Routes()["/health/ready"].ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, "prepare", report.Program)

	c.Register("kafka", func(context.Context) error { return errors.New("no brokers") })
	rec = httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker("submit", "r1").LiveHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive","run_id":"r1"}`, rec.Body.String())
}
