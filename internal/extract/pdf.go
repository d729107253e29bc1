package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// readContent pulls raw text and a page count from the file based on its
// extension. Plain text formats pass through as a single page.
func readContent(path string) (string, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", 0, fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), 1, nil
	default:
		return "", 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func readPDF(path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", path, err)
	}

	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, nil)
	if err != nil {
		return "", 0, fmt.Errorf("page count %s: %w", path, err)
	}

	var pages []string
	for page := 1; page <= pageCount; page++ {
		r, err := api.ExtractPageContent(rs, page, nil)
		if err != nil {
			return "", 0, fmt.Errorf("extract page %d of %s: %w", page, path, err)
		}

		content, err := io.ReadAll(r)
		if err != nil {
			return "", 0, fmt.Errorf("read page %d of %s: %w", page, path, err)
		}

		if text := scanPageText(content); text != "" {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", page, text))
		}
	}

	return strings.Join(pages, "\n\n"), pageCount, nil
}

// Text-showing operators in a decoded content stream: literal strings bound
// to Tj/quote operators, and TJ arrays mixing literals with kerning offsets.
var (
	pdfShowText  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|')`)
	pdfShowArray = regexp.MustCompile(`\[((?:[^\]\\]|\\.)*)\]\s*TJ`)
	pdfLiteral   = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// scanPageText recovers the text shown by a page's content stream. This
// handles simply-encoded documents (the common case for generated PDFs);
// scanned or CID-encoded documents come back empty and are surfaced to the
// run as empty-document warnings.
func scanPageText(content []byte) string {
	var b strings.Builder

	for _, match := range pdfShowText.FindAllSubmatch(content, -1) {
		b.WriteString(decodePDFString(string(match[1])))
		b.WriteByte(' ')
	}
	for _, match := range pdfShowArray.FindAllSubmatch(content, -1) {
		for _, lit := range pdfLiteral.FindAllSubmatch(match[1], -1) {
			b.WriteString(decodePDFString(string(lit[1])))
		}
		b.WriteByte(' ')
	}

	return strings.TrimSpace(b.String())
}

var pdfEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
)

func decodePDFString(s string) string {
	return pdfEscapes.Replace(s)
}
