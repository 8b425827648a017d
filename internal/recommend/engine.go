// Package recommend ranks suppliers for a tender by text similarity against the corpus index.
package recommend

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/pkg/utils"
)

var (
	// ErrNotReady means no corpus index exists and on-demand build is disabled. Retryable.
	ErrNotReady = errors.New("recommendation model not ready: train the model first")
	// ErrInvalidInput marks malformed requests rejected before scoring.
	ErrInvalidInput = errors.New("invalid input")
)

// Recorder receives per-request outcomes, e.g. for metrics.
type Recorder interface {
	ObserveRecommendation(strategy, status string, elapsed time.Duration)
}

// Engine ranks suppliers against a tender. It only reads the corpus index; rebuilding is the
// Builder's job.
type Engine struct {
	builder  *corpus.Builder
	onDemand bool
	workers  int
	recorder Recorder
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithOnDemandBuild builds the index from the request's suppliers when none is ready.
func WithOnDemandBuild(enabled bool) Option {
	return func(e *Engine) { e.onDemand = enabled }
}

// WithWorkers bounds scoring parallelism. <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithRecorder sets a request outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger. nil means no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over builder.
func NewEngine(builder *corpus.Builder, opts ...Option) *Engine {
	e := &Engine{builder: builder, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Builder returns the corpus builder backing the engine.
func (e *Engine) Builder() *corpus.Builder { return e.builder }

type scored struct {
	id    string
	score float64
}

// Recommend scores active suppliers against the tender and returns the top N, ordered by
// score descending then supplier ID ascending, with dense 1-based ranks.
func (e *Engine) Recommend(ctx context.Context, tender models.TenderQuery, suppliers []models.SupplierProfile, topN int) (*models.RecommendationResult, error) {
	start := time.Now()
	result, err := e.recommend(ctx, tender, suppliers, topN)
	if e.recorder != nil {
		status := "success"
		switch {
		case errors.Is(err, ErrNotReady):
			status = "not_ready"
		case err != nil:
			status = "error"
		}
		e.recorder.ObserveRecommendation(string(e.builder.Strategy()), status, time.Since(start))
	}
	return result, err
}

func (e *Engine) recommend(ctx context.Context, tender models.TenderQuery, suppliers []models.SupplierProfile, topN int) (*models.RecommendationResult, error) {
	result := &models.RecommendationResult{
		TenderID:        tender.ID,
		Strategy:        string(e.builder.Strategy()),
		Recommendations: []models.Recommendation{},
	}
	if topN <= 0 {
		return result, nil
	}
	active := activeProfiles(suppliers)
	if len(active) == 0 {
		return result, nil
	}

	snap := e.builder.Snapshot()
	if snap == nil {
		if !e.onDemand {
			return nil, ErrNotReady
		}
		// fit on the same corpus a rebuild from storage sees, inactive suppliers included
		e.logger.Info("building corpus index on demand", zap.Int("suppliers", len(suppliers)))
		var err error
		if snap, err = e.builder.Build(ctx, suppliers); err != nil {
			return nil, err
		}
	}
	if snap.IsEmpty() {
		return result, nil
	}

	normalizer := e.builder.Normalizer()
	entries := make([]scored, len(active))
	query := normalizer.Normalize(tender.Text)
	if query == "" {
		for i, s := range active {
			entries[i] = scored{id: s.ID}
		}
	} else {
		qv, err := snap.Vectorize(ctx, query)
		if err != nil {
			return nil, err
		}
		err = utils.ParallelFor(ctx, len(active), e.workers, func(i int) error {
			s := active[i]
			text := normalizer.Normalize(s.Text)
			sv, ok := snap.Lookup(s.ID, text)
			if !ok {
				var err error
				if sv, err = snap.Vectorize(ctx, text); err != nil {
					return err
				}
			}
			entries[i] = scored{id: s.ID, score: ScorePercent(corpus.Similarity(qv, sv))}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return LessID(entries[i].id, entries[j].id)
	})
	if topN < len(entries) {
		entries = entries[:topN]
	}
	result.Recommendations = make([]models.Recommendation, len(entries))
	for i, en := range entries {
		result.Recommendations[i] = models.Recommendation{
			SupplierID:   en.id,
			ScorePercent: en.score,
			Rank:         i + 1,
		}
	}
	return result, nil
}

// activeProfiles drops inactive suppliers and duplicate IDs (last occurrence wins).
func activeProfiles(suppliers []models.SupplierProfile) []models.SupplierProfile {
	seen := make(map[string]int, len(suppliers))
	out := make([]models.SupplierProfile, 0, len(suppliers))
	for _, s := range suppliers {
		if !s.IsActive() {
			continue
		}
		if i, ok := seen[s.ID]; ok {
			out[i] = s
			continue
		}
		seen[s.ID] = len(out)
		out = append(out, s)
	}
	return out
}

// ScorePercent maps a cosine similarity to the 0-100 presentation scale, one decimal place.
func ScorePercent(cos float64) float64 {
	if math.IsNaN(cos) {
		return 0
	}
	return utils.RoundTo(utils.Clamp(cos, 0, 1)*100, 1)
}

// LessID orders supplier IDs: integer IDs first in numeric order, then all other IDs
// lexicographically.
func LessID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}
