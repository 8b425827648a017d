// Package extract pulls plain text out of tender notice documents (edital) so it can feed
// the recommender.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the document types Extract understands.
var SupportedExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".doc", ".txt", ".md"}

// Extractor extracts plain text from document files.
type Extractor struct {
	// MaxChars truncates extracted text; 0 means no limit.
	MaxChars int
}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content with whitespace collapsed.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".odt", ".rtf", ".doc":
		text, err = extractWithCat(content, ext)
	default:
		text, err = extractPlain(content)
	}
	if err != nil {
		return "", err
	}
	text = collapseWhitespace(text)
	if e.MaxChars > 0 {
		if r := []rune(text); len(r) > e.MaxChars {
			text = string(r[:e.MaxChars])
		}
	}
	return text, nil
}

// Supported reports whether path has an extension Extract handles natively.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
