package extractor

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
)

// Dispatcher routes a stored invoice to the text source registered for its
// MIME type.
type Dispatcher struct {
	sources map[string]ports.TextSource
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{sources: make(map[string]ports.TextSource)}
}

func (d *Dispatcher) Register(mimeType string, source ports.TextSource) {
	d.sources[normalizeMime(mimeType)] = source
}

func (d *Dispatcher) Supports(mimeType string) bool {
	_, ok := d.sources[normalizeMime(mimeType)]
	return ok
}

func (d *Dispatcher) Extract(ctx context.Context, ext *domain.Extraction) (ports.SourceText, error) {
	source, ok := d.sources[normalizeMime(ext.MimeType)]
	if !ok {
		return ports.SourceText{}, domain.WrapError(
			domain.ErrUnsupportedMedia,
			"dispatch text source",
			fmt.Errorf("mime type %q", ext.MimeType),
		)
	}
	return source.Extract(ctx, ext)
}

// normalizeMime strips parameters such as charset so registration keys match
// whatever the upload header carried.
func normalizeMime(mimeType string) string {
	parsed, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return parsed
}
