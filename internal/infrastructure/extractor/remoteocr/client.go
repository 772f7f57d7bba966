package remoteocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
	"github.com/mkarpenko/invoice-extract/internal/infrastructure/resilience"
)

const defaultMinConfidence = 0.3

// Client sends stored image uploads to an OCR sidecar and returns its text.
// Results below the confidence floor are rejected rather than fed to the
// engine as noise.
type Client struct {
	baseURL       string
	minConfidence float64
	storage       ports.ObjectStorage
	executor      *resilience.Executor
	httpClient    *http.Client
}

func New(storage ports.ObjectStorage, baseURL string, minConfidence float64, executor *resilience.Executor) *Client {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		minConfidence: minConfidence,
		storage:       storage,
		executor:      executor,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Extract(ctx context.Context, ext *domain.Extraction) (ports.SourceText, error) {
	reader, err := c.storage.Open(ctx, ext.StoragePath)
	if err != nil {
		return ports.SourceText{}, fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return ports.SourceText{}, fmt.Errorf("read source file: %w", err)
	}

	var resp ocrResponse
	call := func(callCtx context.Context) error {
		var callErr error
		resp, callErr = c.recognize(callCtx, raw)
		return callErr
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "remoteocr.recognize", call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return ports.SourceText{}, wrapTemporaryIfNeeded("remote ocr", err)
	}

	if resp.Confidence < c.minConfidence {
		return ports.SourceText{}, domain.WrapError(
			domain.ErrInvalidInput,
			"remote ocr",
			fmt.Errorf("confidence %.2f below floor %.2f", resp.Confidence, c.minConfidence),
		)
	}

	backend := resp.Backend
	if backend == "" {
		backend = "remoteocr"
	}
	return ports.SourceText{
		Text:       resp.Text,
		Backend:    backend,
		Confidence: resp.Confidence,
	}, nil
}
