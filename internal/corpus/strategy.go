// Package corpus builds and owns the supplier corpus index used to score tenders: either a
// fitted TF-IDF vectorizer or a set of dense embeddings, published as immutable snapshots.
package corpus

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/licita/internal/embedding"
)

// Strategy selects how texts are turned into vectors.
type Strategy string

const (
	// StrategyEmbedding uses dense sentence embeddings.
	StrategyEmbedding Strategy = "embedding"
	// StrategyFrequency uses sparse TF-IDF vectors fitted on the supplier corpus.
	StrategyFrequency Strategy = "tfidf"
)

// ErrStrategyUnavailable is returned when the requested strategy's dependency cannot be initialised.
var ErrStrategyUnavailable = errors.New("strategy unavailable")

// ParseStrategy parses a configured strategy name. Empty means tfidf.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tfidf", "tf-idf", "frequency":
		return StrategyFrequency, nil
	case "embedding", "embeddings", "semantic":
		return StrategyEmbedding, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (expected tfidf or embedding)", s)
	}
}

// SelectStrategy decides the strategy once at startup. When embedding is requested but the
// embedder cannot be created, the degradation is logged and tfidf is returned with a nil embedder.
func SelectStrategy(requested Strategy, initEmbedder func() (embedding.Embedder, error), logger *zap.Logger) (Strategy, embedding.Embedder) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requested != StrategyEmbedding {
		return StrategyFrequency, nil
	}
	if initEmbedder == nil {
		logger.Warn("falling back to tfidf",
			zap.Error(fmt.Errorf("%w: no embedder configured", ErrStrategyUnavailable)))
		return StrategyFrequency, nil
	}
	emb, err := initEmbedder()
	if err != nil || emb == nil {
		if err == nil {
			err = errors.New("embedder is nil")
		}
		logger.Warn("falling back to tfidf",
			zap.String("requested", string(requested)),
			zap.Error(fmt.Errorf("%w: %v", ErrStrategyUnavailable, err)))
		return StrategyFrequency, nil
	}
	logger.Info("using embedding strategy", zap.Int("dimensions", emb.Dimensions()))
	return StrategyEmbedding, emb
}
