package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DocsIndexedTotal.Inc()
	m.DocsRejectedTotal.WithLabelValues("duplicate").Add(2)
	m.KeywordsTotal.Set(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsRejectedTotal.WithLabelValues("duplicate")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.KeywordsTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["docs_indexed_total"])
	assert.True(t, names["index_keywords"])
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestServerServesGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.DocsIndexedTotal.Add(3)

	srv := NewServer(0, reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docs_indexed_total 3")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "Keyword Search Metrics")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
