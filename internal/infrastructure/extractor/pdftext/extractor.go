package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
)

const backendName = "pdftext"

// Extractor pulls the embedded text layer out of a stored PDF. Row order is
// preserved so label/value adjacency survives into the engine.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, ext *domain.Extraction) (ports.SourceText, error) {
	reader, err := e.storage.Open(ctx, ext.StoragePath)
	if err != nil {
		return ports.SourceText{}, fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return ports.SourceText{}, fmt.Errorf("read source file: %w", err)
	}

	text, err := textByRows(raw)
	if err != nil {
		return ports.SourceText{}, domain.WrapError(domain.ErrInvalidInput, "read pdf text layer", err)
	}

	return ports.SourceText{
		Text:       text,
		Backend:    backendName,
		Confidence: 1,
	}, nil
}

// textByRows walks every page top to bottom, one output line per text row.
// The pdf library panics on some malformed files, so parsing is fenced.
func textByRows(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= doc.NumPage(); pageNum++ {
		page := doc.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d text rows: %w", pageNum, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			sb.WriteString(strings.Join(words, " "))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
