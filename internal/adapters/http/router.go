package httpadapter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/mkarpenko/invoice-extract/internal/config"
	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/ports"
	"github.com/mkarpenko/invoice-extract/internal/observability/metrics"
)

const apiServiceName = "invoice-extract-api"

// allowedUploadTypes is the HTTP-side gate for submissions. The worker-side
// dispatcher checks again at processing time, so rows created by other means
// cannot smuggle in an unroutable type.
var allowedUploadTypes = map[string]struct{}{
	"text/plain":      {},
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
}

type Router struct {
	cfg       config.Config
	submitter ports.ExtractionSubmitter
	records   ports.RecordService
	reader    ports.ExtractionReader
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	submitter ports.ExtractionSubmitter,
	records ports.RecordService,
	reader ports.ExtractionReader,
) *Router {
	return &Router{
		cfg:       cfg,
		submitter: submitter,
		records:   records,
		reader:    reader,
		metrics:   metrics.NewHTTPServerMetrics(apiServiceName),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/extractions", rt.submitExtraction)
	mux.HandleFunc("/v1/extractions/", rt.extractionSubroutes)
	mux.HandleFunc("/v1/extract", rt.extractInline)

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(apiServiceName, handler)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitExtraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	mediaType := normalizeMediaType(fileHeader.Header.Get("Content-Type"))
	if _, ok := allowedUploadTypes[mediaType]; !ok {
		writeMappedError(w, domain.WrapError(
			domain.ErrUnsupportedMedia, "submit extraction",
			fmt.Errorf("content type %q", fileHeader.Header.Get("Content-Type")),
		))
		return
	}

	ext, err := rt.submitter.Submit(r.Context(), fileHeader.Filename, mediaType, file)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ext)
}

func (rt *Router) extractionSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/extractions/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		rt.getExtractionByID(w, r, parts[0])
	case len(parts) == 2 && parts[0] != "" && parts[1] == "record":
		rt.getExtractionRecord(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (rt *Router) getExtractionByID(w http.ResponseWriter, r *http.Request, id string) {
	ext, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

func (rt *Router) getExtractionRecord(w http.ResponseWriter, r *http.Request, id string) {
	ext, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if ext.Record == nil {
		writeMappedError(w, domain.WrapError(
			domain.ErrExtractionNotFound, "fetch invoice record",
			fmt.Errorf("extraction %s has status %s", ext.ID, ext.Status),
		))
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, ext.Record)
	case "csv":
		writeCSVRecord(w, *ext.Record)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

func (rt *Router) extractInline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Text    string `json:"text"`
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	start := time.Now()
	record, err := rt.records.ExtractText(r.Context(), req.Text, req.Backend)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	rt.metrics.RecordExtraction(apiServiceName, "inline", record.ResolvedFieldKinds(), record.WarningKinds(), time.Since(start))

	writeJSON(w, http.StatusOK, record)
}

func writeCSVRecord(w http.ResponseWriter, record domain.InvoiceRecord) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(domain.Header())
	_ = cw.Write(record.Row())
	cw.Flush()
}

func normalizeMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMappedError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
