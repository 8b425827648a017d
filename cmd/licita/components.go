package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/licita/internal/catalog"
	"github.com/hyperjump/licita/internal/config"
	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/embedding"
	"github.com/hyperjump/licita/internal/keyword"
	"github.com/hyperjump/licita/internal/metrics"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/scoring"
	"github.com/hyperjump/licita/internal/storage"
	"github.com/hyperjump/licita/internal/textnorm"
	"github.com/hyperjump/licita/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Storage      storage.Storage
	KeywordIndex keyword.SupplierIndex
	Embedder     embedding.Embedder
	EmbedCache   *vector.MemoryIndex
	Metrics      *metrics.Metrics
	Builder      *corpus.Builder
	Engine       *recommend.Engine
	Scorer       *scoring.Service
	Importer     *catalog.Importer
	logger       *zap.Logger
}

// Close stops any rebuild in flight, persists the embedding cache and releases storage.
func (c *Components) Close() {
	if c.Builder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = c.Builder.Close(ctx)
		cancel()
	}
	if c.EmbedCache != nil {
		path := c.Config.Storage.VectorCachePath
		if err := c.EmbedCache.Save(path); err != nil {
			c.logger.Warn("embedding cache save failed", zap.String("path", path), zap.Error(err))
		}
		_ = c.EmbedCache.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// keywordIndexPath maps the in-memory marker shared with sqlite to bleve's empty path.
func keywordIndexPath(p string) string {
	if p == ":memory:" {
		return ""
	}
	return p
}

func newNormalizer(rc config.RecommenderConfig) *textnorm.Normalizer {
	var opts []textnorm.Option
	if len(rc.Stopwords) > 0 {
		opts = append(opts, textnorm.WithStopwords(rc.Stopwords))
	}
	if len(rc.ExtraStopwords) > 0 {
		opts = append(opts, textnorm.WithExtraStopwords(rc.ExtraStopwords))
	}
	return textnorm.New(opts...)
}

func scoringWeights(sc config.ScoringConfig) scoring.Weights {
	return scoring.Weights{
		Price:               sc.PriceWeight,
		Delivery:            sc.DeliveryWeight,
		Rating:              sc.RatingWeight,
		DeliveryHorizonDays: sc.DeliveryHorizonDays,
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, logger: logger}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	keywordIndex, err := keyword.NewBleveIndex(keywordIndexPath(cfg.Storage.BleveIndexPath))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	requested, err := corpus.ParseStrategy(cfg.Recommender.Strategy)
	if err != nil {
		c.Close()
		return nil, err
	}
	ec := cfg.Embedding
	strategy, emb := corpus.SelectStrategy(requested, func() (embedding.Embedder, error) {
		e, err := embedding.NewONNXEmbedder(embedding.Options{
			ModelPath:       ec.ModelPath,
			TokenizerPath:   ec.TokenizerPath,
			Dimensions:      ec.Dimensions,
			MaxTokens:       ec.MaxTokens,
			CacheSize:       ec.CacheSize,
			OutputName:      ec.OutputName,
			MeanPooling:     ec.MeanPooling,
			UseTokenTypeIDs: ec.UseTokenTypeIDs,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}, logger)
	c.Embedder = emb

	c.Metrics = metrics.New()
	builderOpts := []corpus.Option{
		corpus.WithLogger(logger),
		corpus.WithNormalizer(newNormalizer(cfg.Recommender)),
		corpus.WithSource(corpus.StorageSource(store)),
		corpus.WithObserver(c.Metrics),
		corpus.WithWorkers(cfg.Recommender.Workers),
		corpus.WithVectorizerOptions(corpus.VectorizerOptions{
			NgramMax: cfg.Recommender.NgramMax,
			MinDF:    cfg.Recommender.MinDF,
			MaxDF:    cfg.Recommender.MaxDF,
		}),
	}
	if emb != nil {
		cache, err := vector.NewMemoryIndex(emb.Dimensions())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
		}
		if err := cache.Load(cfg.Storage.VectorCachePath); err != nil {
			logger.Warn("embedding cache load skipped", zap.String("path", cfg.Storage.VectorCachePath), zap.Error(err))
		}
		c.EmbedCache = cache
		builderOpts = append(builderOpts, corpus.WithEmbedder(emb), corpus.WithEmbeddingCache(cache))
	}
	builder, err := corpus.NewBuilder(strategy, builderOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize corpus builder: %w", err)
	}
	c.Builder = builder

	c.Engine = recommend.NewEngine(builder,
		recommend.WithOnDemandBuild(cfg.Recommender.OnDemandBuildOrDefault()),
		recommend.WithWorkers(cfg.Recommender.Workers),
		recommend.WithRecorder(c.Metrics),
		recommend.WithLogger(logger),
	)
	c.Scorer = scoring.NewService(store, scoringWeights(cfg.Scoring), logger)
	c.Importer = catalog.NewImporter(store,
		catalog.WithLogger(logger),
		catalog.WithKeywordIndex(keywordIndex),
	)
	logger.Info("components initialized",
		zap.String("strategy", string(strategy)),
		zap.String("database", cfg.Storage.DatabasePath))
	return c, nil
}
