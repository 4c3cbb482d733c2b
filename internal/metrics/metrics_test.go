package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	assert.NotPanics(t, func() {
		ObserveRun("complete")
		ObserveCacheLookup("hit")
		ObserveCacheWrite("ok")
		ObserveScrape("site", "ok")
		ObserveGradingFrame("malformed")
		ObserveGradingFallback()
		ObserveHTTPRequest("GET", "/healthz", 200, 5*time.Millisecond)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveRun("cache_hit")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitegrade_runs_total")
}
