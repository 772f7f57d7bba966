package domain

import "time"

type ExtractionStatus string

const (
	StatusReceived   ExtractionStatus = "received"
	StatusProcessing ExtractionStatus = "processing"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
)

// Extraction is the lifecycle envelope for one submitted document. The
// extracted fields live in Record once processing completes.
type Extraction struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	MimeType    string           `json:"mime_type"`
	StoragePath string           `json:"storage_path"`
	Backend     string           `json:"backend,omitempty"`
	Status      ExtractionStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	Record      *InvoiceRecord   `json:"record,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
