package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesPrivateRegistry(t *testing.T) {
	a := New()
	b := New()

	a.ReferenceRowsLoaded.WithLabelValues("events").Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.ReferenceRowsLoaded.WithLabelValues("events")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ReferenceRowsLoaded.WithLabelValues("events")))
}

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage("encode", time.Now().Add(-2*time.Second))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.MeanAveragePrecision.WithLabelValues("cv", "p1", "12").Set(0.65)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `mean_average_precision{k="12",params="p1",partition="cv"} 0.65`))
}

func TestPushToGateway(t *testing.T) {
	var gotPath string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := New()
	m.RankedDisplays.Add(2)
	require.NoError(t, m.Push(t.Context(), gw.URL, "ffm", "submit", ""))
	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/ffm/"))
	assert.Contains(t, gotPath, "stage/submit")
	assert.Contains(t, gotPath, "partition/full")

	assert.NoError(t, m.Push(t.Context(), "", "ffm", "submit", ""))
}
