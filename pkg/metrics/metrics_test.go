package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve("127.0.0.1:0")
	defer srv.Close()

	EvaluationsTotal.WithLabelValues("cli", "ok").Inc()
	ObserveStage("S1_COINTEGRATION", 3*time.Millisecond)

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["pairlab_evaluations_total"])
	assert.True(t, names["pairlab_stage_duration_seconds"])
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(PriceRowsIngested.WithLabelValues("csv"))
	PriceRowsIngested.WithLabelValues("csv").Add(4)
	assert.Equal(t, before+4, testutil.ToFloat64(PriceRowsIngested.WithLabelValues("csv")))
}

func TestHandler(t *testing.T) {
	HTTPRequests.WithLabelValues("/health", "200").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pairlab_http_requests_total"))
}
