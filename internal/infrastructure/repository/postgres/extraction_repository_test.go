package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ExtractionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ExtractionRepository{db: db}, mock, func() { _ = db.Close() }
}

func extractionColumns() []string {
	return []string{
		"id", "filename", "mime_type", "storage_path", "backend",
		"status", "error_message", "record", "created_at", "updated_at",
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtractionNotFound) {
		t.Fatalf("expected ErrExtractionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDParsesStoredRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	record := domain.InvoiceRecord{
		InvoiceNumber: domain.StringField{Value: "INV-1", Resolved: true},
		TotalAmount: domain.MoneyField{
			Value:    domain.Money{AmountMinorUnits: 12000, Currency: domain.CurrencyUSD},
			Resolved: true,
		},
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("ext-1").
		WillReturnRows(sqlmock.NewRows(extractionColumns()).AddRow(
			"ext-1", "scan.pdf", "application/pdf", "ext-1_scan.pdf", "pdftext",
			string(domain.StatusCompleted), "", recordJSON, now, now,
		))

	ext, err := repo.GetByID(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if ext.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %s", ext.Status)
	}
	if ext.Record == nil {
		t.Fatalf("expected parsed record")
	}
	if ext.Record.InvoiceNumber.Value != "INV-1" {
		t.Fatalf("expected invoice number INV-1, got %q", ext.Record.InvoiceNumber.Value)
	}
	if ext.Record.TotalAmount.Value.AmountMinorUnits != 12000 {
		t.Fatalf("expected total 12000, got %d", ext.Record.TotalAmount.Value.AmountMinorUnits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDLeavesRecordNilWhenAbsent(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("ext-2").
		WillReturnRows(sqlmock.NewRows(extractionColumns()).AddRow(
			"ext-2", "scan.png", "image/png", "ext-2_scan.png", "",
			string(domain.StatusReceived), "", nil, now, now,
		))

	ext, err := repo.GetByID(context.Background(), "ext-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if ext.Record != nil {
		t.Fatalf("expected nil record before processing, got %+v", ext.Record)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE extractions").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtractionNotFound) {
		t.Fatalf("expected ErrExtractionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRecordReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE extractions").
		WithArgs("missing", "pdftext", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveRecord(context.Background(), "missing", "pdftext", domain.InvoiceRecord{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtractionNotFound) {
		t.Fatalf("expected ErrExtractionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRecordWritesBackendAndJSON(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE extractions").
		WithArgs("ext-1", "remoteocr", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := domain.InvoiceRecord{
		InvoiceNumber: domain.StringField{Value: "INV-9", Resolved: true},
	}
	if err := repo.SaveRecord(context.Background(), "ext-1", "remoteocr", record); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
