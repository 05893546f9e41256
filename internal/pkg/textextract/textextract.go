// Package textextract turns source files (plain text, markdown, PDF)
// into cleaned plain text for the ingestion pipeline.
package textextract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
	horizSpaces = regexp.MustCompile(`[ \t]+`)
)

// CleanText normalizes whitespace: runs of blank lines collapse to one
// newline, runs of horizontal whitespace collapse to one space, and the
// ends are trimmed.
func CleanText(text string) string {
	text = blankLines.ReplaceAllString(text, "\n")
	text = horizSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// FromFile extracts plain text from the file at path. Text and markdown
// are read verbatim. For PDFs a sibling .txt file with the same base
// name is reused when present; otherwise the text is extracted and the
// sibling cache is written, since extraction is expensive and the result
// is a pure function of the file. Unsupported extensions yield an empty
// string, not an error; the caller treats an empty extraction as a
// recoverable no-op.
func FromFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s failed: %w", path, err)
		}
		return string(b), nil
	case ".pdf":
		return pdfToText(path)
	default:
		return "", nil
	}
}

// CachePath returns the sibling .txt path used to memoize PDF extraction.
func CachePath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".txt"
}

func pdfToText(path string) (string, error) {
	cache := CachePath(path)
	if b, err := os.ReadFile(cache); err == nil {
		return string(b), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s failed: %w", path, err)
	}
	text, err := extractPDF(b)
	if err != nil {
		return "", fmt.Errorf("extract pdf %s failed: %w", path, err)
	}
	if text != "" {
		// Best effort; extraction still succeeded if the cache write fails.
		_ = os.WriteFile(cache, []byte(text), 0o644)
	}
	return text, nil
}

// extractPDF returns the plain text of a PDF, or empty string with nil
// error when the PDF has no extractable text.
func extractPDF(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
