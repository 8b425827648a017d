// Package keyword provides full-text search over the supplier catalog.
package keyword

import (
	"context"

	"github.com/hyperjump/licita/internal/models"
)

// SearchOptions optional parameters for supplier search. Nil means use defaults.
type SearchOptions struct {
	// NameBoost multiplies the score of matches in the company and trade name fields.
	// Values > 1 make name matches rank higher (e.g. 3.0).
	NameBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 1.
	Fuzziness int
	// ActiveOnly restricts results to active suppliers.
	ActiveOnly bool
}

// SupplierIndex defines supplier search operations.
type SupplierIndex interface {
	Index(ctx context.Context, s *models.Supplier) error
	IndexBatch(ctx context.Context, suppliers []*models.Supplier) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single supplier search hit.
type KeywordResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
