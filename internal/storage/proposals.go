package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/hyperjump/licita/internal/models"
)

// UpsertProposal inserts or replaces a proposal's bid fields. A stored ai_score is kept.
func (s *SQLiteStorage) UpsertProposal(ctx context.Context, p *models.Proposal) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, tender_id, supplier_id, value, delivery_days, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			tender_id = excluded.tender_id, supplier_id = excluded.supplier_id, value = excluded.value,
			delivery_days = excluded.delivery_days, description = excluded.description,
			status = excluded.status, updated_at = excluded.updated_at`,
		p.ID, p.TenderID, p.SupplierID, p.Value, p.DeliveryDays, p.Description, p.Status,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// CreateProposal inserts a proposal. The tender and supplier must exist.
func (s *SQLiteStorage) CreateProposal(ctx context.Context, p *models.Proposal) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	var score sql.NullFloat64
	if p.AIScore != nil {
		score = sql.NullFloat64{Float64: *p.AIScore, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, tender_id, supplier_id, value, delivery_days, description, status, ai_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenderID, p.SupplierID, p.Value, p.DeliveryDays, p.Description, p.Status, score,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// ListProposalsByTender returns the proposals of a tender ordered by ID.
func (s *SQLiteStorage) ListProposalsByTender(ctx context.Context, tenderID string) ([]*models.Proposal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tender_id, supplier_id, value, delivery_days, description, status, ai_score, created_at, updated_at
		 FROM proposals WHERE tender_id = ? ORDER BY id`, tenderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		var (
			p            models.Proposal
			days         sql.NullInt64
			desc, status sql.NullString
			score        sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.TenderID, &p.SupplierID, &p.Value, &days, &desc, &status, &score,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.DeliveryDays = int(days.Int64)
		p.Description = desc.String
		p.Status = status.String
		if score.Valid {
			v := score.Float64
			p.AIScore = &v
		}
		proposals = append(proposals, &p)
	}
	return proposals, rows.Err()
}

// UpdateProposalScore stores the computed score of a proposal.
func (s *SQLiteStorage) UpdateProposalScore(ctx context.Context, id string, score float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE proposals SET ai_score = ?, updated_at = ? WHERE id = ?`, score, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("proposal", id)
	}
	return nil
}
