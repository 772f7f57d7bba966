package extractor

import (
	"context"
	"testing"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
)

type sourceStub struct {
	src   ports.SourceText
	calls int
}

func (s *sourceStub) Extract(context.Context, *domain.Extraction) (ports.SourceText, error) {
	s.calls++
	return s.src, nil
}

func TestDispatcherRoutesByMimeType(t *testing.T) {
	plain := &sourceStub{src: ports.SourceText{Text: "plain", Backend: "plaintext"}}
	pdf := &sourceStub{src: ports.SourceText{Text: "pdf", Backend: "pdftext"}}

	d := NewDispatcher()
	d.Register("text/plain", plain)
	d.Register("application/pdf", pdf)

	src, err := d.Extract(context.Background(), &domain.Extraction{MimeType: "application/pdf"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if src.Backend != "pdftext" {
		t.Fatalf("expected pdftext backend, got %s", src.Backend)
	}
	if pdf.calls != 1 || plain.calls != 0 {
		t.Fatalf("expected only pdf source call, got pdf=%d plain=%d", pdf.calls, plain.calls)
	}
}

func TestDispatcherNormalizesMimeParameters(t *testing.T) {
	plain := &sourceStub{src: ports.SourceText{Text: "plain", Backend: "plaintext"}}

	d := NewDispatcher()
	d.Register("text/plain", plain)

	if !d.Supports("Text/Plain; charset=UTF-8") {
		t.Fatalf("expected parameterized mime type to be supported")
	}
	if _, err := d.Extract(context.Background(), &domain.Extraction{MimeType: "text/plain; charset=utf-8"}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if plain.calls != 1 {
		t.Fatalf("expected plain source call, got %d", plain.calls)
	}
}

func TestDispatcherRejectsUnknownMimeType(t *testing.T) {
	d := NewDispatcher()
	d.Register("text/plain", &sourceStub{})

	_, err := d.Extract(context.Background(), &domain.Extraction{MimeType: "application/zip"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
	if d.Supports("application/zip") {
		t.Fatalf("expected Supports to report false")
	}
}
