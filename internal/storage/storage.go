// Package storage defines the persistence interface for tenders, suppliers and proposals.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/licita/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines tender, supplier and proposal persistence operations.
type Storage interface {
	// Tender operations
	CreateTender(ctx context.Context, t *models.Tender) error
	UpsertTender(ctx context.Context, t *models.Tender) error
	GetTender(ctx context.Context, id string) (*models.Tender, error)
	ListTenders(ctx context.Context, offset, limit int) ([]*models.Tender, error)
	DeleteTender(ctx context.Context, id string) error

	// Supplier operations
	CreateSupplier(ctx context.Context, s *models.Supplier) error
	UpsertSupplier(ctx context.Context, s *models.Supplier) error
	GetSupplier(ctx context.Context, id string) (*models.Supplier, error)
	GetSuppliersByIDs(ctx context.Context, ids []string) (map[string]*models.Supplier, error)
	ListSuppliers(ctx context.Context, activeOnly bool) ([]*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	// Proposal operations
	CreateProposal(ctx context.Context, p *models.Proposal) error
	UpsertProposal(ctx context.Context, p *models.Proposal) error
	ListProposalsByTender(ctx context.Context, tenderID string) ([]*models.Proposal, error)
	UpdateProposalScore(ctx context.Context, id string, score float64) error

	// Stats
	CountTenders(ctx context.Context) (int64, error)
	CountSuppliers(ctx context.Context, activeOnly bool) (int64, error)
	CountProposals(ctx context.Context) (int64, error)

	Close() error
}
