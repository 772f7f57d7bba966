package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
)

type SubmitExtractionUseCase struct {
	repo    ports.ExtractionRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitExtractionUseCase(
	repo ports.ExtractionRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitExtractionUseCase {
	return &SubmitExtractionUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *SubmitExtractionUseCase) Submit(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Extraction, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	ext := &domain.Extraction{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusReceived,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, ext); err != nil {
		return nil, fmt.Errorf("create extraction metadata: %w", err)
	}

	if err := uc.queue.PublishExtractionSubmitted(ctx, ext.ID); err != nil {
		return nil, fmt.Errorf("publish submission event: %w", err)
	}

	return ext, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "invoice.bin"
	}
	return base
}
