package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/embedding"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/textnorm"
	"github.com/hyperjump/licita/internal/vector"
)

var vocabulary = strings.Fields(`computadores notebooks servidores rede limpeza higienização jardinagem
paisagismo merenda refeições pavimentação asfalto drenagem medicamentos insumos hospitalares ônibus
transporte vigilância câmeras papel canetas cartuchos cadeiras mesas gasolina diesel telefonia
internet uniformes palco sonorização topografia climatização software veículos gráfica reagentes`)

func suppliers(n int) []models.SupplierProfile {
	faker := gofakeit.New(1)
	out := make([]models.SupplierProfile, n)
	for i := range out {
		words := make([]string, 12)
		for j := range words {
			words[j] = faker.RandomString(vocabulary)
		}
		out[i] = models.SupplierProfile{
			ID:   fmt.Sprintf("%d", i+1),
			Text: faker.Company() + " " + strings.Join(words, " "),
		}
	}
	return out
}

const tenderText = "Aquisição de notebooks, computadores e servidores de rede para as escolas municipais"

func BenchmarkNormalize(b *testing.B) {
	n := textnorm.New()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = n.Normalize(tenderText)
	}
}

func BenchmarkBuildTFIDF(b *testing.B) {
	profiles := suppliers(1000)
	ctx := context.Background()
	builder, _ := corpus.NewBuilder(corpus.StrategyFrequency)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(ctx, profiles); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkRecommend(b *testing.B, strategy corpus.Strategy) {
	profiles := suppliers(1000)
	ctx := context.Background()
	var opts []corpus.Option
	if strategy == corpus.StrategyEmbedding {
		cache, _ := vector.NewMemoryIndex(64)
		opts = append(opts, corpus.WithEmbedder(embedding.NewMockEmbedder(64)), corpus.WithEmbeddingCache(cache))
	}
	builder, err := corpus.NewBuilder(strategy, opts...)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := builder.Build(ctx, profiles); err != nil {
		b.Fatal(err)
	}
	engine := recommend.NewEngine(builder)
	query := models.TenderQuery{ID: "t1", Text: tenderText}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Recommend(ctx, query, profiles, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRecommendTFIDF(b *testing.B)     { benchmarkRecommend(b, corpus.StrategyFrequency) }
func BenchmarkRecommendEmbedding(b *testing.B) { benchmarkRecommend(b, corpus.StrategyEmbedding) }

func BenchmarkCosineSparse(b *testing.B) {
	x, y := vector.Sparse{}, vector.Sparse{}
	for i := 0; i < 200; i++ {
		x[i*2] = float64(i%7) + 1
		y[i*3] = float64(i%5) + 1
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.CosineSparse(x, y)
	}
}
