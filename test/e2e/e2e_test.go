package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/licita/internal/catalog"
	"github.com/hyperjump/licita/internal/config"
	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/keyword"
	"github.com/hyperjump/licita/internal/metrics"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/server"
	"github.com/hyperjump/licita/internal/storage"
)

const (
	e2eSeed     = 42
	e2ePerTopic = 4
)

type e2eEnv struct {
	store   *storage.SQLiteStorage
	builder *corpus.Builder
	engine  *recommend.Engine
	handler http.Handler
}

func newEnv(t *testing.T) *e2eEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "suppliers.bleve")
	cfg.Recommender.DefaultTopN = e2ePerTopic
	if err := config.ApplyDefaults(cfg); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kw.Close() })

	m := metrics.New()
	builder, err := corpus.NewBuilder(corpus.StrategyFrequency,
		corpus.WithSource(corpus.StorageSource(store)),
		corpus.WithObserver(m))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = builder.Close(context.Background()) })
	engine := recommend.NewEngine(builder, recommend.WithOnDemandBuild(false), recommend.WithRecorder(m))
	srv := server.NewServer(engine, store, cfg, nil,
		server.WithKeywordIndex(kw),
		server.WithMetrics(m))

	// import the catalog the way the watcher does
	c := BuildCorpus(e2eSeed, e2ePerTopic)
	notice := filepath.Join(dir, "edital-001.docx")
	if err := WriteNoticeDOCX(notice, "EDITAL DE PREGÃO ELETRÔNICO", "Objeto: "+c.Tenders[0].Description); err != nil {
		t.Fatal(err)
	}
	workbook := filepath.Join(dir, "catalogo.xlsx")
	if err := WriteCatalogXLSX(workbook, c, map[string]string{c.Tenders[0].ID: "edital-001.docx"}); err != nil {
		t.Fatal(err)
	}
	res, err := catalog.NewImporter(store, catalog.WithKeywordIndex(kw)).ImportFile(context.Background(), workbook)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Suppliers != len(c.Suppliers) || res.Tenders != len(c.Tenders) {
		t.Fatalf("import result = %+v", res)
	}
	return &e2eEnv{store: store, builder: builder, engine: engine, handler: srv.Handler()}
}

func (e *e2eEnv) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return w.Code
}

func (e *e2eEnv) train(t *testing.T) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/train", nil)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("train = %d: %s", w.Code, w.Body.String())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.builder.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestE2E_ImportedWorkbook(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	c := BuildCorpus(e2eSeed, e2ePerTopic)

	tender, err := env.store.GetTender(ctx, c.Tenders[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if tender.Object == "" || tender.Description != "" {
		t.Errorf("object should come from the notice document: %+v", tender)
	}
	if tender.EstimatedValue < 10000 {
		t.Errorf("estimated value = %v", tender.EstimatedValue)
	}
	if n, _ := env.store.CountSuppliers(ctx, true); n != int64(len(topics)*e2ePerTopic) {
		t.Errorf("active suppliers = %d", n)
	}
	s, err := env.store.GetSupplier(ctx, c.Suppliers[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.CompanyName != c.Suppliers[0].CompanyName || s.Rating != c.Suppliers[0].Rating {
		t.Errorf("supplier = %+v, want %+v", s, c.Suppliers[0])
	}
}

func TestE2E_RecommendationsOverHTTP(t *testing.T) {
	env := newEnv(t)
	c := BuildCorpus(e2eSeed, e2ePerTopic)

	if code := env.get(t, "/api/v1/recommendations/"+c.Tenders[0].ID, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("before training = %d, want 503", code)
	}
	env.train(t)

	inactive := make(map[string]bool)
	for _, s := range c.Suppliers {
		if !s.IsActive() {
			inactive[s.ID] = true
		}
	}
	for _, tender := range c.Tenders {
		t.Run(tender.ID, func(t *testing.T) {
			var resp models.RecommendationResponse
			if code := env.get(t, "/api/v1/recommendations/"+tender.ID, &resp); code != http.StatusOK {
				t.Fatalf("recommend = %d", code)
			}
			if len(resp.Recommendations) != e2ePerTopic {
				t.Fatalf("got %d recommendations", len(resp.Recommendations))
			}
			relevant := make(map[string]bool)
			for _, id := range c.Relevant[tender.ID] {
				relevant[id] = true
			}
			for i, rec := range resp.Recommendations {
				if inactive[rec.SupplierID] {
					t.Errorf("inactive supplier %s recommended", rec.SupplierID)
				}
				if !relevant[rec.SupplierID] {
					t.Errorf("rank %d: supplier %s (%s) is outside the tender's area", rec.Rank, rec.SupplierID, rec.Area)
				}
				if rec.Rank != i+1 || rec.ScorePercent <= 0 || rec.ScorePercent > 100 {
					t.Errorf("bad entry %+v", rec)
				}
				if i > 0 && rec.ScorePercent > resp.Recommendations[i-1].ScorePercent {
					t.Errorf("scores not descending at rank %d", rec.Rank)
				}
			}
		})
	}
}

func TestE2E_Evaluate(t *testing.T) {
	env := newEnv(t)
	env.train(t)
	ctx := context.Background()
	c := BuildCorpus(e2eSeed, e2ePerTopic)

	suppliers, err := env.store.ListSuppliers(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	report, err := recommend.Evaluate(ctx, env.engine, c.Cases, models.Profiles(suppliers), e2ePerTopic)
	if err != nil {
		t.Fatal(err)
	}
	if report.Cases != len(topics) {
		t.Errorf("cases = %d", report.Cases)
	}
	if report.Precision < 0.95 || report.Recall < 0.95 {
		t.Errorf("report = %+v, want precision and recall >= 0.95", report)
	}
}

func TestE2E_SupplierSearchAndRebuild(t *testing.T) {
	env := newEnv(t)
	env.train(t)
	c := BuildCorpus(e2eSeed, e2ePerTopic)

	var search struct {
		Results []struct {
			ID    string  `json:"id"`
			Area  string  `json:"area"`
			Score float64 `json:"score"`
		} `json:"results"`
	}
	if code := env.get(t, "/api/v1/suppliers/search?q=pavimenta%C3%A7%C3%A3o+asfalto&limit=10", &search); code != http.StatusOK {
		t.Fatalf("search = %d", code)
	}
	hits := search.Results
	if len(hits) != e2ePerTopic {
		t.Fatalf("got %d hits, want %d active suppliers", len(hits), e2ePerTopic)
	}
	for _, h := range hits {
		if h.Area != "Construção" {
			t.Errorf("hit %s in area %q", h.ID, h.Area)
		}
	}

	var status server.StatusResponse
	if code := env.get(t, "/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !status.Recommender.Ready || status.Recommender.Suppliers != len(c.Suppliers) {
		t.Errorf("recommender = %+v", status.Recommender)
	}
	gen := status.Recommender.Generation
	env.train(t)
	if got := env.builder.Status().Generation; got <= gen {
		t.Errorf("generation after rebuild = %d, want > %d", got, gen)
	}
}
