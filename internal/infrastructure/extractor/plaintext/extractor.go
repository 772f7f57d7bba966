package plaintext

import (
	"context"
	"fmt"
	"io"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
)

const backendName = "plaintext"

// Extractor reads a stored text upload as-is. Damaged encodings are passed
// through untouched; the engine downgrades them itself.
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

	return ports.SourceText{
		Text:       string(raw),
		Backend:    backendName,
		Confidence: 1,
	}, nil
}
