package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/extract"
)

type ExtractRecordUseCase struct {
	engine *extract.Engine
}

func NewExtractRecordUseCase(engine *extract.Engine) *ExtractRecordUseCase {
	return &ExtractRecordUseCase{engine: engine}
}

// ExtractText runs the engine over caller-supplied text. The backend name is
// informational and only shows up in logs.
func (uc *ExtractRecordUseCase) ExtractText(ctx context.Context, text, backend string) (*domain.InvoiceRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract record", errors.New("empty text"))
	}

	record := uc.engine.Extract(text)
	slog.Info("record_extracted",
		"backend", backendLabel(backend),
		"chars", len(text),
		"warnings", len(record.Warnings),
	)
	return &record, nil
}

func backendLabel(backend string) string {
	if backend == "" {
		return "inline"
	}
	return backend
}
