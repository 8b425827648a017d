package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/licita/internal/extract"
	"github.com/hyperjump/licita/internal/keyword"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/storage"
	"go.uber.org/zap"
)

// defaultObjectChars caps the object text taken from a tender document.
const defaultObjectChars = 20000

// Result counts the records written by an import.
type Result struct {
	Files     int `json:"files"`
	Suppliers int `json:"suppliers"`
	Tenders   int `json:"tenders"`
	Proposals int `json:"proposals"`
	Skipped   int `json:"skipped"`
}

func (r *Result) add(o *Result) {
	r.Files += o.Files
	r.Suppliers += o.Suppliers
	r.Tenders += o.Tenders
	r.Proposals += o.Proposals
	r.Skipped += o.Skipped
}

// Importer writes catalog records into storage and the supplier search index.
type Importer struct {
	store     storage.Storage
	index     keyword.SupplierIndex
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// WithKeywordIndex keeps idx in sync with imported suppliers.
func WithKeywordIndex(idx keyword.SupplierIndex) Option {
	return func(im *Importer) { im.index = idx }
}

// WithExtractor sets the extractor used for tender documents.
func WithExtractor(e *extract.Extractor) Option {
	return func(im *Importer) {
		if e != nil {
			im.extractor = e
		}
	}
}

// NewImporter creates an importer writing to store.
func NewImporter(store storage.Storage, opts ...Option) *Importer {
	im := &Importer{
		store:     store,
		extractor: &extract.Extractor{MaxChars: defaultObjectChars},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFiles imports each path in order. A failing file does not stop the others; the
// returned error joins every failure.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (*Result, error) {
	total := &Result{}
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := im.ImportFile(ctx, path)
		if res != nil {
			total.add(res)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return total, errors.Join(errs...)
}

// ImportFile parses the catalog at path and applies it. Tender documents are resolved
// relative to the catalog file's directory.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	cat, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(path)
	res, err := im.Apply(ctx, cat, filepath.Dir(abs))
	if res != nil {
		res.Files = 1
		im.logger.Info("catalog imported",
			zap.String("path", path),
			zap.Int("suppliers", res.Suppliers),
			zap.Int("tenders", res.Tenders),
			zap.Int("proposals", res.Proposals),
			zap.Int("skipped", res.Skipped))
	}
	return res, err
}

// Apply upserts the catalog records: suppliers first, then tenders, then proposals so
// references resolve. Invalid records are skipped and reported in the returned error.
func (im *Importer) Apply(ctx context.Context, cat *Catalog, baseDir string) (*Result, error) {
	res := &Result{}
	var errs []error

	imported := make([]*models.Supplier, 0, len(cat.Suppliers))
	for _, s := range cat.Suppliers {
		if err := s.Validate(); err != nil {
			res.Skipped++
			errs = append(errs, fmt.Errorf("supplier %s: %w", s.ID, err))
			continue
		}
		if err := im.store.UpsertSupplier(ctx, s); err != nil {
			return res, fmt.Errorf("store supplier %s: %w", s.ID, err)
		}
		imported = append(imported, s)
		res.Suppliers++
	}
	if im.index != nil && len(imported) > 0 {
		if err := im.index.IndexBatch(ctx, imported); err != nil {
			return res, fmt.Errorf("index suppliers: %w", err)
		}
	}

	for _, t := range cat.Tenders {
		if err := t.Validate(); err != nil {
			res.Skipped++
			errs = append(errs, fmt.Errorf("tender %s: %w", t.ID, err))
			continue
		}
		if strings.TrimSpace(t.Object) == "" && t.Document != "" {
			im.fillObject(t, baseDir)
		}
		if err := im.store.UpsertTender(ctx, t); err != nil {
			return res, fmt.Errorf("store tender %s: %w", t.ID, err)
		}
		res.Tenders++
	}

	for _, p := range cat.Proposals {
		if err := p.Validate(); err != nil {
			res.Skipped++
			errs = append(errs, fmt.Errorf("proposal %s: %w", p.ID, err))
			continue
		}
		if err := im.store.UpsertProposal(ctx, p); err != nil {
			res.Skipped++
			errs = append(errs, fmt.Errorf("proposal %s: %w", p.ID, err))
			continue
		}
		res.Proposals++
	}
	return res, errors.Join(errs...)
}

// fillObject sets the tender object from its notice document. Extraction failures are
// logged and leave the object empty.
func (im *Importer) fillObject(t *models.Tender, baseDir string) {
	doc := t.Document
	if !filepath.IsAbs(doc) {
		doc = filepath.Join(baseDir, doc)
	}
	text, err := im.extractor.Extract(doc)
	if err != nil {
		im.logger.Warn("failed to extract tender document",
			zap.String("tender_id", t.ID),
			zap.String("document", doc),
			zap.Error(err))
		return
	}
	t.Object = text
}
