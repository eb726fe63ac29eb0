// Package textextract pulls plain text out of uploaded lab reports and
// prescriptions so it can be handed to the analysis model.
package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("document is empty")

type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PDFExtractor concatenates the plain text of every page, one page per line
// group, in page order.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (PDFExtractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if pageText != "" {
			b.WriteString(pageText)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func ext(name string) string {
	if u := strings.IndexAny(name, "?#"); u >= 0 {
		name = name[:u]
	}
	return strings.ToLower(path.Ext(name))
}

// IsPDF reports whether a file name or reference URL names a PDF.
func IsPDF(name string) bool {
	return ext(name) == ".pdf"
}

// IsImage reports whether a file name or reference URL names a PNG or JPEG.
func IsImage(name string) bool {
	switch ext(name) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
