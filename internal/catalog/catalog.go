// Package catalog imports supplier, tender and proposal records from YAML and XLSX files.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/licita/internal/fileid"
	"github.com/hyperjump/licita/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrUnsupported is returned for files that are not YAML or XLSX catalogs.
var ErrUnsupported = errors.New("unsupported catalog format")

// Extensions lists the catalog file extensions ParseFile accepts.
var Extensions = []string{".yaml", ".yml", ".xlsx"}

const (
	kindSupplier = "supplier"
	kindTender   = "tender"
	kindProposal = "proposal"
)

// Catalog is the content of one catalog file.
type Catalog struct {
	Suppliers []*models.Supplier `yaml:"suppliers"`
	Tenders   []*models.Tender   `yaml:"tenders"`
	Proposals []*models.Proposal `yaml:"proposals"`
}

// Len returns the total number of records.
func (c *Catalog) Len() int {
	return len(c.Suppliers) + len(c.Tenders) + len(c.Proposals)
}

// ParseFile reads a catalog from path. Records without an id get one derived from the
// file path and the record position, so re-importing the same file is idempotent.
func ParseFile(path string) (*Catalog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	var cat *Catalog
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		cat, err = ParseYAML(data)
		if err != nil {
			return nil, err
		}
	case ".xlsx":
		cat, err = ParseXLSX(abs)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(abs))
	}
	cat.assignIDs(abs)
	return cat, nil
}

// ParseYAML decodes a catalog document with top-level suppliers, tenders and proposals lists.
func ParseYAML(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	cat.compact()
	return &cat, nil
}

// compact drops null list entries such as a bare "-" in YAML.
func (c *Catalog) compact() {
	suppliers := c.Suppliers[:0]
	for _, s := range c.Suppliers {
		if s != nil {
			suppliers = append(suppliers, s)
		}
	}
	c.Suppliers = suppliers
	tenders := c.Tenders[:0]
	for _, t := range c.Tenders {
		if t != nil {
			tenders = append(tenders, t)
		}
	}
	c.Tenders = tenders
	proposals := c.Proposals[:0]
	for _, p := range c.Proposals {
		if p != nil {
			proposals = append(proposals, p)
		}
	}
	c.Proposals = proposals
}

func (c *Catalog) assignIDs(path string) {
	for i, s := range c.Suppliers {
		if strings.TrimSpace(s.ID) == "" {
			s.ID = fileid.RecordID(path, kindSupplier, i)
		}
	}
	for i, t := range c.Tenders {
		if strings.TrimSpace(t.ID) == "" {
			t.ID = fileid.RecordID(path, kindTender, i)
		}
	}
	for i, p := range c.Proposals {
		if strings.TrimSpace(p.ID) == "" {
			p.ID = fileid.RecordID(path, kindProposal, i)
		}
	}
}
