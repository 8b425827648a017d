package config

import (
	"fmt"
	"strings"
)

const dataRoot = "/usr/local/var/licita/data"

// ApplyDefaults sets default values for any zero values in cfg and rejects settings that
// cannot be defaulted.
func ApplyDefaults(cfg *Config) error {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TrainRatePerMinute == 0 {
		cfg.Server.TrainRatePerMinute = 6
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = dataRoot + "/db/licita.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = dataRoot + "/indices/suppliers.bleve"
	}
	if cfg.Storage.VectorCachePath == "" {
		cfg.Storage.VectorCachePath = dataRoot + "/indices/embeddings.bin"
	}

	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = dataRoot + "/models/embedding.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "sentence_embedding"
	}

	r := &cfg.Recommender
	r.Strategy = strings.ToLower(strings.TrimSpace(r.Strategy))
	switch r.Strategy {
	case "":
		r.Strategy = "tfidf"
	case "tfidf", "embedding":
	default:
		return fmt.Errorf("invalid recommender.strategy %q (want tfidf or embedding)", r.Strategy)
	}
	if r.DefaultTopN == 0 {
		r.DefaultTopN = 5
	}
	if r.MaxTopN == 0 {
		r.MaxTopN = 20
	}
	if r.DefaultTopN > r.MaxTopN {
		r.DefaultTopN = r.MaxTopN
	}
	if r.MinDF == 0 {
		r.MinDF = 1
	}
	if r.MaxDF == 0 {
		r.MaxDF = 1.0
	}
	if r.MaxDF < 0 || r.MaxDF > 1 {
		return fmt.Errorf("invalid recommender.max_df %v (want 0 < max_df <= 1)", r.MaxDF)
	}
	if r.NgramMax == 0 {
		r.NgramMax = 2
	}

	s := &cfg.Scoring
	if s.PriceWeight == 0 && s.DeliveryWeight == 0 && s.RatingWeight == 0 {
		s.PriceWeight, s.DeliveryWeight, s.RatingWeight = 0.5, 0.3, 0.2
	}
	if s.DeliveryHorizonDays == 0 {
		s.DeliveryHorizonDays = 30
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".yaml", ".yml", ".xlsx"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	return nil
}
