package bootstrap

import (
	"context"
	"fmt"

	"github.com/mkarpenko/invoice-extract/internal/config"
	"github.com/mkarpenko/invoice-extract/internal/core/extract"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
	"github.com/mkarpenko/invoice-extract/internal/core/usecase"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/extractor"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/extractor/pdftext"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/extractor/plaintext"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/extractor/remoteocr"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/queue/nats"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/repository/postgres"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/resilience"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Reader    ports.ExtractionReader
	SubmitUC  ports.ExtractionSubmitter
	ProcessUC ports.ExtractionProcessor
	RecordUC  ports.RecordService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewExtractionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	anchors, err := config.LoadAnchors(cfg.ExtractAnchorsPath)
	if err != nil {
		return nil, fmt.Errorf("load anchor overlay: %w", err)
	}
	engine := extract.New(extract.Options{
		ToleranceMinorUnits: int64(cfg.ExtractToleranceMinorUnits),
		ExtraAnchors:        anchors,
	})

	sources := extractor.NewDispatcher()
	sources.Register("text/plain", plaintext.NewExtractor(storage))
	sources.Register("application/pdf", pdftext.NewExtractor(storage))
	ocr := remoteocr.New(storage, cfg.OCRBaseURL, cfg.OCRMinConfidence, executor)
	sources.Register("image/png", ocr)
	sources.Register("image/jpeg", ocr)

	submitUC := usecase.NewSubmitExtractionUseCase(repo, storage, queue)
	processUC := usecase.NewProcessExtractionUseCase(repo, sources, engine)
	recordUC := usecase.NewExtractRecordUseCase(engine)

	return &App{
		Config: cfg,
		Queue:  queue,
		Reader: repo,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		RecordUC:  recordUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
