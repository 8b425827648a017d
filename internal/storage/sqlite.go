package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens an in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenders (
		id TEXT PRIMARY KEY,
		number TEXT,
		title TEXT NOT NULL,
		description TEXT,
		object TEXT,
		keywords TEXT,
		status TEXT,
		type TEXT,
		estimated_value REAL,
		agency TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tenders_status ON tenders(status);

	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		trade_name TEXT,
		cnpj TEXT,
		area TEXT,
		description TEXT,
		specialties TEXT,
		keywords TEXT,
		rating REAL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_suppliers_active ON suppliers(active);

	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		tender_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		value REAL NOT NULL,
		delivery_days INTEGER,
		description TEXT,
		status TEXT,
		ai_score REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (tender_id) REFERENCES tenders(id) ON DELETE CASCADE,
		FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_proposals_tender_id ON proposals(tender_id);
	`
	_, err := db.Exec(schema)
	return err
}

func marshalKeywords(keywords []string) (string, error) {
	if len(keywords) == 0 {
		return "", nil
	}
	b, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("failed to marshal keywords: %w", err)
	}
	return string(b), nil
}

func unmarshalKeywords(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	return out, nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func (s *SQLiteStorage) count(ctx context.Context, query string, args ...any) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// CountTenders returns the total number of tenders.
func (s *SQLiteStorage) CountTenders(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM tenders`)
}

// CountSuppliers returns the number of suppliers, optionally only active ones.
func (s *SQLiteStorage) CountSuppliers(ctx context.Context, activeOnly bool) (int64, error) {
	if activeOnly {
		return s.count(ctx, `SELECT COUNT(*) FROM suppliers WHERE active = 1`)
	}
	return s.count(ctx, `SELECT COUNT(*) FROM suppliers`)
}

// CountProposals returns the total number of proposals.
func (s *SQLiteStorage) CountProposals(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM proposals`)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
