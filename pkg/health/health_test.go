package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(msg string) Check {
	return func(context.Context) error { return errors.New(msg) }
}

func TestRun_AggregatesByCriticality(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *Checker)
		status Status
	}{
		{"all up", func(c *Checker) {
			c.Register("index", ok)
			c.RegisterOptional("redis", ok)
		}, StatusUp},
		{"optional failure degrades", func(c *Checker) {
			c.Register("index", ok)
			c.RegisterOptional("redis", failing("circuit open"))
		}, StatusDegraded},
		{"critical failure wins", func(c *Checker) {
			c.Register("postgres", failing("refused"))
			c.RegisterOptional("redis", failing("circuit open"))
		}, StatusDown},
		{"no checks", func(*Checker) {}, StatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(time.Second)
			tt.setup(c)
			assert.Equal(t, tt.status, c.Run(context.Background()).Status)
		})
	}
}

func TestRun_CheckTimeout(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.ErrorContains(t, errors.New(report.Components["slow"].Message), "deadline")
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(time.Second)
	c.RegisterOptional("redis", failing("circuit open"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "circuit open", report.Components["redis"].Message)
	assert.False(t, report.Components["redis"].Critical)

	c.Register("index", failing("no shards"))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker(0).LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
