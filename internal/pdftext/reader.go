// Package pdftext reads the embedded text layer of PDF work orders.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnreadable means the bytes could not be parsed as a PDF.
	ErrUnreadable = errors.New("unreadable pdf document")
	// ErrNoTextLayer means the PDF parsed but carries no text (scanned image).
	ErrNoTextLayer = errors.New("pdf has no text layer")
)

// TextReader turns a document into plain text.
type TextReader interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

type Config struct {
	// MaxPages limits how many pages are read; <= 0 reads all of them.
	MaxPages int
}

type Reader struct {
	cfg Config
}

func NewReader(cfg Config) *Reader {
	return &Reader{cfg: cfg}
}

// ExtractText returns the text of the first MaxPages pages. Rows are joined
// with "\n" and pages with "\f", which the extraction normalizer turns into
// line breaks.
func (r *Reader) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrUnreadable
	}

	// the parser panics on some malformed xref tables
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	pages := doc.NumPage()
	if r.cfg.MaxPages > 0 && pages > r.cfg.MaxPages {
		pages = r.cfg.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		if i > 1 && b.Len() > 0 {
			b.WriteString("\f")
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					b.WriteString(" ")
				}
				b.WriteString(word.S)
			}
			b.WriteString("\n")
		}
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrNoTextLayer
	}
	return out, nil
}

// Static returns its text regardless of input; used by the CLI for plain
// .txt inputs and by tests.
type Static string

func (s Static) ExtractText(ctx context.Context, _ []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(s), nil
}
