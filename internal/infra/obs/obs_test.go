package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratedesk/internal/app/sequence"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLoggerToJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLoggerTo(buf, "prod", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("reference data reloaded", "partners", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "reference data reloaded", entry["msg"])
	assert.Equal(t, float64(3), entry["partners"])
}

func TestNewLoggerToDevIsText(t *testing.T) {
	buf := &bytes.Buffer{}
	NewLoggerTo(buf, "dev", slog.LevelInfo).Info("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveQuery("rates.calculate", nil, time.Millisecond)
	m.ObserveQuery("rates.calculate", sequence.ErrSuperseded, time.Millisecond)
	m.ObserveQuery("rates.calculate", errors.New("boom"), time.Millisecond)
	m.CountWarning("missing_base_rate")
	m.CountWarning("missing_base_rate")
	m.CountReload(nil)
	m.CountReload(errors.New("store down"))
	m.SetReferenceRows("partners", 3)
	m.CountPublished(nil)
	m.CountDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("rates.calculate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("rates.calculate", "superseded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("rates.calculate", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.warnings.WithLabelValues("missing_base_rate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.referenceRows.WithLabelValues("partners")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxPublished.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxPublished.WithLabelValues("dropped")))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics("test")
	mw := Middleware{Metrics: m}
	router := gin.New()
	router.Use(mw.RequestID(), mw.LoggerMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/ping", "200")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	notReady := errors.New("reference data not loaded")
	cases := []struct {
		name   string
		health HealthHandlers
		want   int
		body   string
	}{
		{"ready", HealthHandlers{}, http.StatusOK, `{"status":"ready"}`},
		{"not ready", HealthHandlers{Ready: func() error { return notReady }}, http.StatusServiceUnavailable, `{"status":"not ready","error":"reference data not loaded"}`},
		{"with info", HealthHandlers{Info: func() any { return map[string]int{"partners": 3} }}, http.StatusOK, `{"status":"ready","reference":{"partners":3}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/readyz", tc.health.Readyz)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tc.want, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}
