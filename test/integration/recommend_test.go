// Package integration provides tests over on-disk storage, indices and the catalog watcher.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/licita/internal/catalog"
	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/embedding"
	"github.com/hyperjump/licita/internal/keyword"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/storage"
	"github.com/hyperjump/licita/internal/vector"
	"github.com/hyperjump/licita/internal/watcher"
)

const catalogYAML = `
suppliers:
  - id: "1"
    company_name: TechSolutions
    description: Fornecimento de computadores, notebooks e servidores de rede
    area: Tecnologia
    rating: 4.5
  - id: "2"
    company_name: Verde Jardins
    description: Serviços de jardinagem e paisagismo
    area: Jardinagem
    rating: 4
  - id: "3"
    company_name: Limpa Bem
    description: Limpeza predial e higienização de ambientes
    area: Limpeza
    rating: 3.5
  - id: "4"
    company_name: Info Norte
    description: Manutenção de computadores e notebooks
    area: Tecnologia
    rating: 3
    active: false
tenders:
  - id: t1
    title: Aquisição de notebooks
    description: Compra de notebooks e computadores para escolas
`

func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalogo.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func openStores(t *testing.T, dir string) (*storage.SQLiteStorage, *keyword.BleveIndex) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db", "licita.db"))
	if err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "indices", "suppliers.bleve"))
	if err != nil {
		store.Close()
		t.Fatal(err)
	}
	return store, kw
}

func TestIntegration_PersistAndReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, kw := openStores(t, dir)
	if _, err := catalog.NewImporter(store, catalog.WithKeywordIndex(kw)).ImportFile(ctx, writeCatalog(t, dir)); err != nil {
		t.Fatal(err)
	}
	if err := kw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, kw = openStores(t, dir)
	defer store.Close()
	defer kw.Close()

	if n, err := kw.DocCount(); err != nil || n != 4 {
		t.Errorf("keyword docs = %d, %v", n, err)
	}
	builder, err := corpus.NewBuilder(corpus.StrategyFrequency, corpus.WithSource(corpus.StorageSource(store)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builder.Trigger("test"); err != nil {
		t.Fatal(err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := builder.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}

	tender, err := store.GetTender(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	suppliers, err := store.ListSuppliers(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	res, err := recommend.NewEngine(builder, recommend.WithOnDemandBuild(false)).
		Recommend(ctx, tender.Query(), models.Profiles(suppliers), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Recommendations) != 2 || res.Recommendations[0].SupplierID != "1" {
		t.Errorf("recommendations = %+v", res.Recommendations)
	}
	for _, r := range res.Recommendations {
		if r.SupplierID == "4" {
			t.Error("inactive supplier recommended")
		}
	}
}

func TestIntegration_EmbeddingCacheSurvivesRestart(t *testing.T) {
	const dims = 32
	ctx := context.Background()
	cachePath := filepath.Join(t.TempDir(), "indices", "embeddings.bin")
	profiles := []models.SupplierProfile{
		{ID: "1", Text: "Fornecimento de computadores e notebooks"},
		{ID: "2", Text: "Serviços de jardinagem e paisagismo"},
		{ID: "3", Text: "Limpeza predial"},
	}

	first := embedding.NewMockEmbedder(dims)
	cache, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	b, err := corpus.NewBuilder(corpus.StrategyEmbedding, corpus.WithEmbedder(first), corpus.WithEmbeddingCache(cache))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(ctx, profiles); err != nil {
		t.Fatal(err)
	}
	if first.Calls() != 3 || cache.Size() != 3 {
		t.Fatalf("calls = %d, cache = %d", first.Calls(), cache.Size())
	}
	if err := cache.Save(cachePath); err != nil {
		t.Fatal(err)
	}

	second := embedding.NewMockEmbedder(dims)
	restored, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Load(cachePath); err != nil {
		t.Fatal(err)
	}
	b2, err := corpus.NewBuilder(corpus.StrategyEmbedding, corpus.WithEmbedder(second), corpus.WithEmbeddingCache(restored))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b2.Build(ctx, profiles); err != nil {
		t.Fatal(err)
	}
	if second.Calls() != 0 {
		t.Errorf("restored cache should serve every supplier, embedder called %d times", second.Calls())
	}

	res, err := recommend.NewEngine(b2).Recommend(ctx, models.TenderQuery{ID: "t", Text: "notebooks computadores"}, profiles, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != string(corpus.StrategyEmbedding) || res.Recommendations[0].SupplierID != "1" {
		t.Errorf("result = %+v", res)
	}
}

func TestIntegration_WatcherImportsAndRebuilds(t *testing.T) {
	dir := t.TempDir()
	watchDir := filepath.Join(dir, "catalogo")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, kw := openStores(t, dir)
	defer store.Close()
	defer kw.Close()
	importer := catalog.NewImporter(store, catalog.WithKeywordIndex(kw))
	builder, err := corpus.NewBuilder(corpus.StrategyFrequency, corpus.WithSource(corpus.StorageSource(store)))
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close(context.Background())

	w := watcher.New([]string{watchDir}, catalog.Extensions, true,
		func(ctx context.Context, paths []string) {
			if _, err := importer.ImportFiles(ctx, paths); err != nil {
				t.Errorf("import: %v", err)
				return
			}
			_, _ = builder.Trigger("watch")
		},
		watcher.WithDebounce(50*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeCatalog(t, watchDir)
	// ignored by extension
	if err := os.WriteFile(filepath.Join(watchDir, "leia-me.txt"), []byte("notas"), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !builder.IsReady() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if !builder.IsReady() {
		t.Fatal("corpus index was not built after the catalog file appeared")
	}
	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	if err := builder.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}
	if st := builder.Status(); st.Suppliers != 4 {
		t.Errorf("indexed suppliers = %d, want 4", st.Suppliers)
	}
	if n, _ := store.CountTenders(ctx); n != 1 {
		t.Errorf("tenders = %d", n)
	}
}
