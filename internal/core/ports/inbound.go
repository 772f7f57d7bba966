package ports

import (
	"context"
	"io"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

// ExtractionSubmitter is the inbound contract for invoice upload orchestration.
type ExtractionSubmitter interface {
	Submit(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Extraction, error)
}

// ExtractionReader is the inbound read model for extraction metadata/state.
type ExtractionReader interface {
	GetByID(ctx context.Context, id string) (*domain.Extraction, error)
}

// ExtractionProcessor is the inbound contract for asynchronous field extraction.
type ExtractionProcessor interface {
	ProcessByID(ctx context.Context, extractionID string) error
}

// RecordService is the inbound contract for synchronous text-to-record extraction.
type RecordService interface {
	ExtractText(ctx context.Context, text, backend string) (*domain.InvoiceRecord, error)
}
