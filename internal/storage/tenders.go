package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyperjump/licita/internal/models"
)

const tenderColumns = `id, number, title, description, object, keywords, status, type, estimated_value, agency, created_at, updated_at`

// CreateTender inserts a tender.
func (s *SQLiteStorage) CreateTender(ctx context.Context, t *models.Tender) error {
	keywords, err := marshalKeywords(t.Keywords)
	if err != nil {
		return err
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tenders (`+tenderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Number, t.Title, t.Description, t.Object, keywords, string(t.Status), t.Type,
		t.EstimatedValue, t.Agency, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// UpsertTender inserts a tender or replaces the fields of an existing one, keeping created_at.
func (s *SQLiteStorage) UpsertTender(ctx context.Context, t *models.Tender) error {
	keywords, err := marshalKeywords(t.Keywords)
	if err != nil {
		return err
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tenders (`+tenderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			number = excluded.number, title = excluded.title, description = excluded.description,
			object = excluded.object, keywords = excluded.keywords, status = excluded.status,
			type = excluded.type, estimated_value = excluded.estimated_value, agency = excluded.agency,
			updated_at = excluded.updated_at`,
		t.ID, t.Number, t.Title, t.Description, t.Object, keywords, string(t.Status), t.Type,
		t.EstimatedValue, t.Agency, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTender(row rowScanner) (*models.Tender, error) {
	var (
		t                                            models.Tender
		number, desc, object, kw, status, typ, agency sql.NullString
		estimated                                    sql.NullFloat64
	)
	if err := row.Scan(&t.ID, &number, &t.Title, &desc, &object, &kw, &status, &typ, &estimated,
		&agency, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	keywords, err := unmarshalKeywords(kw)
	if err != nil {
		return nil, err
	}
	t.Number = number.String
	t.Description = desc.String
	t.Object = object.String
	t.Keywords = keywords
	t.Status = models.TenderStatus(status.String)
	t.Type = typ.String
	t.EstimatedValue = estimated.Float64
	t.Agency = agency.String
	return &t, nil
}

// GetTender returns a tender by ID.
func (s *SQLiteStorage) GetTender(ctx context.Context, id string) (*models.Tender, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tenderColumns+` FROM tenders WHERE id = ?`, id)
	t, err := scanTender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("tender", id)
	}
	return t, err
}

// ListTenders returns tenders, newest first, with offset and limit.
func (s *SQLiteStorage) ListTenders(ctx context.Context, offset, limit int) ([]*models.Tender, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenderColumns+` FROM tenders ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []*models.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

// DeleteTender removes a tender and its proposals.
func (s *SQLiteStorage) DeleteTender(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("tender", id)
	}
	return nil
}
