// Package pdf extracts plain text from invoice documents.
package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor reads page-concatenated plain text from a document on disk.
// Any failure (missing file, corrupt PDF, non-text content) is returned as
// an error the ingestion layer degrades to "no text"; extraction never
// aborts a batch.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		// Plain-text invoices pass through untouched.
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}
