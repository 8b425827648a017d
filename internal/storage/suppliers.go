package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hyperjump/licita/internal/models"
)

const supplierColumns = `id, company_name, trade_name, cnpj, area, description, specialties, keywords, rating, active, created_at, updated_at`

func activeFlag(s *models.Supplier) int {
	if s.IsActive() {
		return 1
	}
	return 0
}

// CreateSupplier inserts a supplier.
func (s *SQLiteStorage) CreateSupplier(ctx context.Context, sup *models.Supplier) error {
	keywords, err := marshalKeywords(sup.Keywords)
	if err != nil {
		return err
	}
	now := time.Now()
	sup.CreatedAt = now
	sup.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suppliers (`+supplierColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sup.ID, sup.CompanyName, sup.TradeName, sup.CNPJ, sup.Area, sup.Description, sup.Specialties,
		keywords, sup.Rating, activeFlag(sup), sup.CreatedAt, sup.UpdatedAt,
	)
	return err
}

// UpsertSupplier inserts a supplier or replaces the fields of an existing one, keeping created_at.
func (s *SQLiteStorage) UpsertSupplier(ctx context.Context, sup *models.Supplier) error {
	keywords, err := marshalKeywords(sup.Keywords)
	if err != nil {
		return err
	}
	now := time.Now()
	if sup.CreatedAt.IsZero() {
		sup.CreatedAt = now
	}
	sup.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suppliers (`+supplierColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			company_name = excluded.company_name, trade_name = excluded.trade_name, cnpj = excluded.cnpj,
			area = excluded.area, description = excluded.description, specialties = excluded.specialties,
			keywords = excluded.keywords, rating = excluded.rating, active = excluded.active,
			updated_at = excluded.updated_at`,
		sup.ID, sup.CompanyName, sup.TradeName, sup.CNPJ, sup.Area, sup.Description, sup.Specialties,
		keywords, sup.Rating, activeFlag(sup), sup.CreatedAt, sup.UpdatedAt,
	)
	return err
}

func scanSupplier(row rowScanner) (*models.Supplier, error) {
	var (
		sup                                       models.Supplier
		trade, cnpj, area, desc, specialties, kw sql.NullString
		rating                                    sql.NullFloat64
		active                                    int
	)
	if err := row.Scan(&sup.ID, &sup.CompanyName, &trade, &cnpj, &area, &desc, &specialties, &kw,
		&rating, &active, &sup.CreatedAt, &sup.UpdatedAt); err != nil {
		return nil, err
	}
	keywords, err := unmarshalKeywords(kw)
	if err != nil {
		return nil, err
	}
	sup.TradeName = trade.String
	sup.CNPJ = cnpj.String
	sup.Area = area.String
	sup.Description = desc.String
	sup.Specialties = specialties.String
	sup.Keywords = keywords
	sup.Rating = rating.Float64
	sup.Active = models.Bool(active != 0)
	return &sup, nil
}

// GetSupplier returns a supplier by ID.
func (s *SQLiteStorage) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	sup, err := scanSupplier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("supplier", id)
	}
	return sup, err
}

// GetSuppliersByIDs returns the suppliers that exist among ids, keyed by ID.
func (s *SQLiteStorage) GetSuppliersByIDs(ctx context.Context, ids []string) (map[string]*models.Supplier, error) {
	out := make(map[string]*models.Supplier, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out[sup.ID] = sup
	}
	return out, rows.Err()
}

// ListSuppliers returns suppliers ordered by ID, optionally only active ones.
func (s *SQLiteStorage) ListSuppliers(ctx context.Context, activeOnly bool) ([]*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

// DeleteSupplier removes a supplier and its proposals.
func (s *SQLiteStorage) DeleteSupplier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("supplier", id)
	}
	return nil
}
