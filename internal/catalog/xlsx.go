package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperjump/licita/internal/models"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sheet names are matched after header normalization, so "Licitações" matches "licitacoes".
var (
	supplierSheets = []string{"suppliers", "fornecedores"}
	tenderSheets   = []string{"tenders", "licitacoes"}
	proposalSheets = []string{"proposals", "propostas"}
)

// Column aliases, keyed by canonical field name.
var (
	supplierColumns = map[string][]string{
		"id":           {"id"},
		"company_name": {"company_name", "razao_social", "empresa", "nome"},
		"trade_name":   {"trade_name", "nome_fantasia"},
		"cnpj":         {"cnpj"},
		"area":         {"area", "area_atuacao", "area_de_atuacao"},
		"description":  {"description", "descricao"},
		"specialties":  {"specialties", "especialidades"},
		"keywords":     {"keywords", "palavras_chave"},
		"rating":       {"rating", "avaliacao", "nota"},
		"active":       {"active", "ativo"},
	}
	tenderColumns = map[string][]string{
		"id":              {"id"},
		"number":          {"number", "numero"},
		"title":           {"title", "titulo"},
		"description":     {"description", "descricao"},
		"object":          {"object", "objeto"},
		"keywords":        {"keywords", "palavras_chave"},
		"status":          {"status", "situacao"},
		"type":            {"type", "tipo", "modalidade"},
		"estimated_value": {"estimated_value", "valor_estimado"},
		"agency":          {"agency", "orgao"},
		"document":        {"document", "edital", "documento"},
	}
	proposalColumns = map[string][]string{
		"id":            {"id"},
		"tender_id":     {"tender_id", "licitacao_id", "licitacao"},
		"supplier_id":   {"supplier_id", "fornecedor_id", "fornecedor"},
		"value":         {"value", "valor"},
		"delivery_days": {"delivery_days", "prazo_entrega", "prazo"},
		"description":   {"description", "descricao"},
		"status":        {"status", "situacao"},
	}
)

// ParseXLSX reads suppliers, tenders and proposals sheets from a workbook. Each sheet
// starts with a header row; unknown columns are ignored and empty rows skipped.
func ParseXLSX(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	cat := &Catalog{}
	found := false
	for _, sheet := range f.GetSheetList() {
		key := normalizeHeader(sheet)
		var parse func(*sheetRows) error
		switch {
		case contains(supplierSheets, key):
			parse = func(sr *sheetRows) error {
				out, err := parseSuppliers(sr)
				cat.Suppliers = append(cat.Suppliers, out...)
				return err
			}
		case contains(tenderSheets, key):
			parse = func(sr *sheetRows) error {
				out, err := parseTenders(sr)
				cat.Tenders = append(cat.Tenders, out...)
				return err
			}
		case contains(proposalSheets, key):
			parse = func(sr *sheetRows) error {
				out, err := parseProposals(sr)
				cat.Proposals = append(cat.Proposals, out...)
				return err
			}
		default:
			continue
		}
		found = true
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if err := parse(newSheetRows(sheet, rows)); err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, fmt.Errorf("workbook has no suppliers, tenders or proposals sheet")
	}
	return cat, nil
}

// sheetRows maps header names to column positions for one sheet.
type sheetRows struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func newSheetRows(name string, rows [][]string) *sheetRows {
	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		if key := normalizeHeader(h); key != "" {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	return &sheetRows{name: name, columns: cols, rows: rows}
}

// resolve returns the column index of the first alias present in the header, or -1.
func (sr *sheetRows) resolve(aliases []string) int {
	for _, a := range aliases {
		if i, ok := sr.columns[a]; ok {
			return i
		}
	}
	return -1
}

// records calls fn for every non-empty data row with a getter for canonical fields.
func (sr *sheetRows) records(fields map[string][]string, fn func(get func(string) string) error) error {
	idx := make(map[string]int, len(fields))
	for field, aliases := range fields {
		idx[field] = sr.resolve(aliases)
	}
	for r := 1; r < len(sr.rows); r++ {
		row := sr.rows[r]
		if isEmptyRow(row) {
			continue
		}
		get := func(field string) string {
			i, ok := idx[field]
			if !ok || i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if err := fn(get); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sr.name, r+1, err)
		}
	}
	return nil
}

func parseSuppliers(sr *sheetRows) ([]*models.Supplier, error) {
	if sr.resolve(supplierColumns["company_name"]) < 0 {
		return nil, fmt.Errorf("sheet %q: missing company name column", sr.name)
	}
	var out []*models.Supplier
	err := sr.records(supplierColumns, func(get func(string) string) error {
		s := &models.Supplier{
			ID:          get("id"),
			CompanyName: get("company_name"),
			TradeName:   get("trade_name"),
			CNPJ:        get("cnpj"),
			Area:        get("area"),
			Description: get("description"),
			Specialties: get("specialties"),
			Keywords:    splitList(get("keywords")),
		}
		var err error
		if s.Rating, err = parseNumber(get("rating")); err != nil {
			return fmt.Errorf("rating: %w", err)
		}
		if raw := get("active"); raw != "" {
			active, err := parseBool(raw)
			if err != nil {
				return fmt.Errorf("active: %w", err)
			}
			s.Active = models.Bool(active)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func parseTenders(sr *sheetRows) ([]*models.Tender, error) {
	if sr.resolve(tenderColumns["title"]) < 0 {
		return nil, fmt.Errorf("sheet %q: missing title column", sr.name)
	}
	var out []*models.Tender
	err := sr.records(tenderColumns, func(get func(string) string) error {
		t := &models.Tender{
			ID:          get("id"),
			Number:      get("number"),
			Title:       get("title"),
			Description: get("description"),
			Object:      get("object"),
			Keywords:    splitList(get("keywords")),
			Status:      models.TenderStatus(get("status")),
			Type:        get("type"),
			Agency:      get("agency"),
			Document:    get("document"),
		}
		var err error
		if t.EstimatedValue, err = parseNumber(get("estimated_value")); err != nil {
			return fmt.Errorf("estimated value: %w", err)
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

func parseProposals(sr *sheetRows) ([]*models.Proposal, error) {
	var out []*models.Proposal
	err := sr.records(proposalColumns, func(get func(string) string) error {
		p := &models.Proposal{
			ID:          get("id"),
			TenderID:    get("tender_id"),
			SupplierID:  get("supplier_id"),
			Description: get("description"),
			Status:      get("status"),
		}
		var err error
		if p.Value, err = parseNumber(get("value")); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		days, err := parseNumber(get("delivery_days"))
		if err != nil {
			return fmt.Errorf("delivery days: %w", err)
		}
		p.DeliveryDays = int(days)
		out = append(out, p)
		return nil
	})
	return out, err
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// normalizeHeader lowercases, strips accents and joins words with underscores:
// "Área de Atuação" becomes "area_de_atuacao".
func normalizeHeader(h string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), h)
	if err != nil {
		folded = h
	}
	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "_")
}

// parseNumber accepts plain and Brazilian formatted numbers ("R$ 1.234,56"). Empty is 0.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "R$"))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

func parseBool(raw string) (bool, error) {
	switch normalizeHeader(raw) {
	case "1", "true", "sim", "s", "yes", "y", "ativo":
		return true, nil
	case "0", "false", "nao", "n", "no", "inativo":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

// splitList splits keyword cells on commas and semicolons.
func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
