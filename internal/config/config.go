// Package config provides configuration loading and structs for the licita server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Watch       WatchConfig       `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// TrainRatePerMinute limits rebuild requests on the train endpoint.
	TrainRatePerMinute int `yaml:"train_rate_per_minute"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorCachePath string `yaml:"vector_cache_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath       string `yaml:"model_path"`
	TokenizerPath   string `yaml:"tokenizer_path"`
	Dimensions      int    `yaml:"dimensions"`
	MaxTokens       int    `yaml:"max_tokens"`
	CacheSize       int    `yaml:"cache_size"`
	OutputName      string `yaml:"output_name"`
	MeanPooling     bool   `yaml:"mean_pooling"`
	UseTokenTypeIDs bool   `yaml:"use_token_type_ids"`
}

// RecommenderConfig holds corpus index and ranking settings.
type RecommenderConfig struct {
	// Strategy is "tfidf" or "embedding". Embedding falls back to tfidf when the model
	// cannot be loaded.
	Strategy        string   `yaml:"strategy"`
	DefaultTopN     int      `yaml:"default_top_n"`
	MaxTopN         int      `yaml:"max_top_n"`
	OnDemandBuild   *bool    `yaml:"on_demand_build"`
	RebuildOnChange *bool    `yaml:"rebuild_on_change"`
	Stopwords       []string `yaml:"stopwords"`
	ExtraStopwords  []string `yaml:"extra_stopwords"`
	MinDF           int      `yaml:"min_df"`
	MaxDF           float64  `yaml:"max_df"`
	NgramMax        int      `yaml:"ngram_max"`
	Workers         int      `yaml:"workers"`
}

// OnDemandBuildOrDefault reports whether a missing index is built synchronously on the
// first request; defaults to true.
func (r *RecommenderConfig) OnDemandBuildOrDefault() bool {
	return r.OnDemandBuild == nil || *r.OnDemandBuild
}

// RebuildOnChangeOrDefault reports whether supplier changes trigger a rebuild; defaults to true.
func (r *RecommenderConfig) RebuildOnChangeOrDefault() bool {
	return r.RebuildOnChange == nil || *r.RebuildOnChange
}

// ScoringConfig holds proposal scoring weights.
type ScoringConfig struct {
	PriceWeight         float64 `yaml:"price_weight"`
	DeliveryWeight      float64 `yaml:"delivery_weight"`
	RatingWeight        float64 `yaml:"rating_weight"`
	DeliveryHorizonDays int     `yaml:"delivery_horizon_days"`
}

// WatchConfig holds catalog directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	for _, p := range []*string{
		&cfg.Storage.DatabasePath,
		&cfg.Storage.BleveIndexPath,
		&cfg.Storage.VectorCachePath,
		&cfg.Embedding.ModelPath,
		&cfg.Embedding.TokenizerPath,
	} {
		*p = expandPath(*p, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths and ":memory:" are
// returned unchanged.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
