package ports

import (
	"context"
	"io"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

// ExtractionRepository persists and reads extraction state.
type ExtractionRepository interface {
	Create(ctx context.Context, ext *domain.Extraction) error
	GetByID(ctx context.Context, id string) (*domain.Extraction, error)
	UpdateStatus(ctx context.Context, id string, status domain.ExtractionStatus, errMessage string) error
	SaveRecord(ctx context.Context, id, backend string, record domain.InvoiceRecord) error
}

// ObjectStorage stores uploaded invoice files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes submission events.
type MessageQueue interface {
	PublishExtractionSubmitted(ctx context.Context, extractionID string) error
	SubscribeExtractionSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// SourceText is the OCR output a TextSource produces for a stored file.
type SourceText struct {
	Text       string
	Backend    string
	Confidence float64
}

// TextSource turns a stored invoice file into raw text ready for extraction.
type TextSource interface {
	Extract(ctx context.Context, ext *domain.Extraction) (SourceText, error)
}
