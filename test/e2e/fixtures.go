package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Portuguese headers, as agencies export them; the importer maps them to catalog fields.
var (
	supplierHeader = []interface{}{"ID", "Razão Social", "CNPJ", "Área de Atuação", "Descrição", "Especialidades", "Palavras-chave", "Avaliação", "Ativo"}
	tenderHeader   = []interface{}{"ID", "Número", "Título", "Descrição", "Valor Estimado", "Órgão", "Edital"}
)

// WriteCatalogXLSX writes the corpus as a workbook with "Fornecedores" and "Licitações" sheets.
// Ratings and values use Brazilian decimal commas. documents maps tender IDs to notice paths.
func WriteCatalogXLSX(path string, c *Corpus, documents map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Fornecedores"); err != nil {
		return err
	}
	if err := f.SetSheetRow("Fornecedores", "A1", &supplierHeader); err != nil {
		return err
	}
	for i, s := range c.Suppliers {
		active := "Sim"
		if !s.IsActive() {
			active = "Não"
		}
		row := []interface{}{
			s.ID, s.CompanyName, s.CNPJ, s.Area, s.Description, s.Specialties,
			strings.Join(s.Keywords, "; "),
			strings.Replace(strconv.FormatFloat(s.Rating, 'f', 1, 64), ".", ",", 1),
			active,
		}
		if err := f.SetSheetRow("Fornecedores", fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet("Licitações"); err != nil {
		return err
	}
	if err := f.SetSheetRow("Licitações", "A1", &tenderHeader); err != nil {
		return err
	}
	for i, t := range c.Tenders {
		description := t.Description
		doc, hasDoc := documents[t.ID]
		if hasDoc {
			description = ""
		}
		row := []interface{}{
			t.ID, t.Number, t.Title, description,
			"R$ " + strings.Replace(strconv.FormatFloat(t.EstimatedValue, 'f', 2, 64), ".", ",", 1),
			t.Agency, doc,
		}
		if err := f.SetSheetRow("Licitações", fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// WriteNoticeDOCX writes a minimal .docx tender notice with one paragraph per entry.
func WriteNoticeDOCX(path string, paragraphs ...string) error {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, err := w.Create("[Content_Types].xml")
	if err != nil {
		return err
	}
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`))
	doc, err := w.Create("word/document.xml")
	if err != nil {
		return err
	}
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	_, _ = doc.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
