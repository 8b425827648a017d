package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// overrideRe matches Override elements of [Content_Types].xml in either attribute order.
var overrideRe = regexp.MustCompile(`<Override\s[^>]*>`)
var attrRe = regexp.MustCompile(`(PartName|ContentType)="([^"]+)"`)

// mainDocumentPath finds the main document part declared in [Content_Types].xml.
func mainDocumentPath(zr *zip.Reader) string {
	raw, err := readZipFile(zr, "[Content_Types].xml")
	if err != nil {
		return docxDocumentXMLPath
	}
	for _, override := range overrideRe.FindAllString(string(raw), -1) {
		var part, ctype string
		for _, m := range attrRe.FindAllStringSubmatch(override, -1) {
			if m[1] == "PartName" {
				part = m[2]
			} else {
				ctype = m[2]
			}
		}
		if ctype == docxMainContentType && part != "" {
			return strings.TrimPrefix(part, "/")
		}
	}
	return docxDocumentXMLPath
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

// extractDOCX extracts text from .docx bytes. Text runs (<w:t>) are concatenated and each
// paragraph (<w:p>) ends with a newline; tabs and breaks become spaces.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := mainDocumentPath(zr)
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(docXML))
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract DOCX: parse %s: %w", docPath, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				b.WriteByte(' ')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
