package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/licita/internal/embedding"
	"github.com/hyperjump/licita/internal/vector"
)

// Vector is a text representation under one strategy: Dense for embeddings, Sparse for tfidf.
type Vector struct {
	Dense  []float32
	Sparse vector.Sparse
}

// IsZero reports whether the vector carries no signal.
func (v Vector) IsZero() bool {
	if v.Dense != nil {
		return vector.L2Norm(v.Dense) == 0
	}
	return len(v.Sparse) == 0 || v.Sparse.Norm() == 0
}

// Similarity returns the cosine similarity of a and b in [0,1]. Vectors of different
// representations, or with zero magnitude, score 0.
func Similarity(a, b Vector) float64 {
	switch {
	case a.Dense != nil && b.Dense != nil:
		return vector.CosineDense(a.Dense, b.Dense)
	case a.Sparse != nil && b.Sparse != nil:
		return vector.CosineSparse(a.Sparse, b.Sparse)
	default:
		return 0
	}
}

// Snapshot is an immutable, fully built corpus index. Entries are keyed by supplier ID.
type Snapshot struct {
	strategy   Strategy
	generation uint64
	builtAt    time.Time
	texts      map[string]string
	vectors    map[string]Vector
	vectorizer *Vectorizer
	embedder   embedding.Embedder
	embedCache *vector.MemoryIndex
}

// Strategy returns the strategy every vector in the snapshot was produced with.
func (s *Snapshot) Strategy() Strategy { return s.strategy }

// Generation is a monotonically increasing build number.
func (s *Snapshot) Generation() uint64 { return s.generation }

// BuiltAt returns when the snapshot was published.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Len returns the number of suppliers in the snapshot.
func (s *Snapshot) Len() int { return len(s.texts) }

// IsEmpty reports whether the snapshot was built from an empty corpus.
func (s *Snapshot) IsEmpty() bool { return len(s.texts) == 0 }

// Vectorizer returns the fitted TF-IDF model, or nil for the embedding strategy.
func (s *Snapshot) Vectorizer() *Vectorizer { return s.vectorizer }

// Lookup returns the stored vector for id if the supplier's normalized text is unchanged
// since the snapshot was built.
func (s *Snapshot) Lookup(id, normalized string) (Vector, bool) {
	text, ok := s.texts[id]
	if !ok || text != normalized {
		return Vector{}, false
	}
	v, ok := s.vectors[id]
	return v, ok
}

// Vectorize represents already-normalized text under the snapshot's strategy. Empty text
// yields a zero vector of the right representation.
func (s *Snapshot) Vectorize(ctx context.Context, normalized string) (Vector, error) {
	switch s.strategy {
	case StrategyEmbedding:
		if normalized == "" {
			return Vector{Dense: []float32{}}, nil
		}
		return embedText(ctx, s.embedder, s.embedCache, normalized)
	default:
		if s.vectorizer == nil {
			return Vector{Sparse: vector.Sparse{}}, nil
		}
		return Vector{Sparse: s.vectorizer.Transform(strings.Fields(normalized))}, nil
	}
}

// ContentKey returns the cache key for a normalized text.
func ContentKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

func embedText(ctx context.Context, emb embedding.Embedder, cache *vector.MemoryIndex, normalized string) (Vector, error) {
	if emb == nil {
		return Vector{}, fmt.Errorf("%w: no embedder", ErrStrategyUnavailable)
	}
	key := ContentKey(normalized)
	if cache != nil {
		if v, ok := cache.Get(key); ok {
			return Vector{Dense: v}, nil
		}
	}
	v, err := emb.Embed(ctx, normalized)
	if err != nil {
		return Vector{}, fmt.Errorf("embed text: %w", err)
	}
	if cache != nil && len(v) == cache.Dimensions() {
		if err := cache.Add([]string{key}, [][]float32{v}); err != nil {
			return Vector{}, err
		}
	}
	return Vector{Dense: v}, nil
}
