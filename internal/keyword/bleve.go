package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/licita/internal/models"
)

// BleveIndex implements SupplierIndex using Bleve with the Portuguese analyzer.
type BleveIndex struct {
	index bleve.Index
}

// supplierDoc is the indexed form of a supplier.
type supplierDoc struct {
	CompanyName string `json:"company_name"`
	TradeName   string `json:"trade_name"`
	Area        string `json:"area"`
	Description string `json:"description"`
	Specialties string `json:"specialties"`
	Keywords    string `json:"keywords"`
	Active      bool   `json:"active"`
}

var (
	nameFields = []string{"company_name", "trade_name"}
	textFields = []string{"area", "description", "specialties", "keywords"}
)

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Portuguese analyzer: lower-case, stopwords, light stemming ("computadores" ~ "computador").
	textFieldMapping.Analyzer = pt.AnalyzerName
	for _, f := range append(append([]string{}, nameFields...), textFields...) {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	docMapping.AddFieldMappingsAt("active", bleve.NewBooleanFieldMapping())
	im.AddDocumentMapping("supplier", docMapping)
	im.DefaultType = "supplier"
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = pt.AnalyzerName
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory
// index. If you change the mapping, remove the index directory to force a re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := newMapping()
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func toDoc(s *models.Supplier) supplierDoc {
	return supplierDoc{
		CompanyName: s.CompanyName,
		TradeName:   s.TradeName,
		Area:        s.Area,
		Description: s.Description,
		Specialties: s.Specialties,
		Keywords:    strings.Join(s.Keywords, " "),
		Active:      s.IsActive(),
	}
}

// Index adds or replaces a supplier.
func (b *BleveIndex) Index(ctx context.Context, s *models.Supplier) error {
	return b.index.Index(s.ID, toDoc(s))
}

// IndexBatch adds or replaces suppliers in one batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, suppliers []*models.Supplier) error {
	batch := b.index.NewBatch()
	for _, s := range suppliers {
		if err := batch.Index(s.ID, toDoc(s)); err != nil {
			return fmt.Errorf("batch index supplier %s: %w", s.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search matches query against supplier names and profile text and returns up to limit hits.
// Name matches are weighted by opts.NameBoost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []*KeywordResult{}, nil
	}
	nameBoost := 1.0
	fuzzy := false
	fuzziness := 1
	activeOnly := false
	if opts != nil {
		if opts.NameBoost > 0 {
			nameBoost = opts.NameBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		activeOnly = opts.ActiveOnly
	}

	fieldQueries := make([]blevequery.Query, 0, len(nameFields)+len(textFields))
	for _, f := range nameFields {
		fieldQueries = append(fieldQueries, b.fieldQuery(query, f, nameBoost, fuzzy, fuzziness))
	}
	for _, f := range textFields {
		fieldQueries = append(fieldQueries, b.fieldQuery(query, f, 1.0, fuzzy, fuzziness))
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(fieldQueries...)
	if activeOnly {
		active := bleve.NewBoolFieldQuery(true)
		active.SetField("active")
		q = bleve.NewConjunctionQuery(q, active)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// fieldQuery builds a match query on field, or with fuzzy enabled a fuzzy match query whose
// terms are analyzed the same way as the indexed text.
func (b *BleveIndex) fieldQuery(query, field string, boost float64, fuzzy bool, fuzziness int) blevequery.Query {
	mq := bleve.NewMatchQuery(query)
	mq.SetField(field)
	if fuzzy {
		mq.SetFuzziness(fuzziness)
	}
	if boost != 1.0 {
		mq.SetBoost(boost)
	}
	return mq
}

// Delete removes a supplier from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed suppliers.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
