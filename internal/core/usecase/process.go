package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/extract"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
)

type ProcessExtractionUseCase struct {
	repo   ports.ExtractionRepository
	source ports.TextSource
	engine *extract.Engine
}

func NewProcessExtractionUseCase(
	repo ports.ExtractionRepository,
	source ports.TextSource,
	engine *extract.Engine,
) *ProcessExtractionUseCase {
	return &ProcessExtractionUseCase{
		repo:   repo,
		source: source,
		engine: engine,
	}
}

func (uc *ProcessExtractionUseCase) ProcessByID(ctx context.Context, extractionID string) error {
	if err := uc.markStatus(ctx, extractionID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	record, backend, err := uc.processPipeline(ctx, extractionID)
	if err != nil {
		if failErr := uc.markFailed(ctx, extractionID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistRecord(ctx, extractionID, backend, record); err != nil {
		if failErr := uc.markFailed(ctx, extractionID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, extractionID, domain.StatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}

	return nil
}

func (uc *ProcessExtractionUseCase) processPipeline(ctx context.Context, extractionID string) (domain.InvoiceRecord, string, error) {
	ext, err := uc.loadExtraction(ctx, extractionID)
	if err != nil {
		return domain.InvoiceRecord{}, "", err
	}

	src, err := uc.sourceText(ctx, ext)
	if err != nil {
		return domain.InvoiceRecord{}, "", err
	}

	return uc.engine.Extract(src.Text), src.Backend, nil
}

func (uc *ProcessExtractionUseCase) loadExtraction(ctx context.Context, extractionID string) (*domain.Extraction, error) {
	ext, err := uc.repo.GetByID(ctx, extractionID)
	if err != nil {
		return nil, fmt.Errorf("fetch extraction by id: %w", err)
	}
	return ext, nil
}

func (uc *ProcessExtractionUseCase) sourceText(ctx context.Context, ext *domain.Extraction) (ports.SourceText, error) {
	src, err := uc.source.Extract(ctx, ext)
	if err != nil {
		return ports.SourceText{}, fmt.Errorf("extract source text: %w", err)
	}
	if src.Text == "" {
		return ports.SourceText{}, domain.WrapError(domain.ErrInvalidInput, "extract source text", errors.New("empty source text"))
	}
	return src, nil
}

func (uc *ProcessExtractionUseCase) persistRecord(ctx context.Context, extractionID, backend string, record domain.InvoiceRecord) error {
	if err := uc.repo.SaveRecord(ctx, extractionID, backend, record); err != nil {
		return fmt.Errorf("save invoice record: %w", err)
	}
	return nil
}

func (uc *ProcessExtractionUseCase) markStatus(ctx context.Context, extractionID string, status domain.ExtractionStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, extractionID, status, errMessage)
}

func (uc *ProcessExtractionUseCase) markFailed(ctx context.Context, extractionID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, extractionID, domain.StatusFailed, processErr.Error())
}
