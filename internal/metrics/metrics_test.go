package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ corpus.Observer    = (*Metrics)(nil)
	_ recommend.Recorder = (*Metrics)(nil)
)

func TestMetrics_rebuildLifecycle(t *testing.T) {
	m := New()
	m.RebuildStarted()
	if got := testutil.ToFloat64(m.RebuildsInProgress); got != 1 {
		t.Errorf("in progress = %v", got)
	}
	m.RebuildFinished("success", 20*time.Millisecond, 42)
	m.RebuildStarted()
	m.RebuildFinished("error", time.Millisecond, 0)

	if got := testutil.ToFloat64(m.RebuildsInProgress); got != 0 {
		t.Errorf("in progress after finish = %v", got)
	}
	if got := testutil.ToFloat64(m.RebuildsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success rebuilds = %v", got)
	}
	if got := testutil.ToFloat64(m.CorpusSuppliers); got != 42 {
		t.Errorf("failed rebuild should not reset corpus size, got %v", got)
	}
}

func TestMetrics_recommendations(t *testing.T) {
	m := New()
	m.ObserveRecommendation("tfidf", "success", time.Millisecond)
	m.ObserveRecommendation("tfidf", "success", time.Millisecond)
	m.ObserveRecommendation("tfidf", "not_ready", 0)
	if got := testutil.ToFloat64(m.RecommendationsTotal.WithLabelValues("tfidf", "success")); got != 2 {
		t.Errorf("success = %v", got)
	}
	if got := testutil.CollectAndCount(m.RecommendationsTotal); got != 2 {
		t.Errorf("series = %d, want 2", got)
	}
}

func TestMetrics_separateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ProposalsScored.Add(3)
	if got := testutil.ToFloat64(b.ProposalsScored); got != 0 {
		t.Errorf("registries should be independent, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.UpdateCatalogStats(2, 5, 7, 1024)
	m.RecordHTTPRequest("/health", http.MethodGet, http.StatusOK, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`licita_catalog_records{kind="suppliers"} 5`,
		`licita_storage_bytes 1024`,
		`licita_http_requests_total{code="200",method="GET",route="/health"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
