package extract

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

func extractLines(t *testing.T, opts Options, lines ...string) domain.InvoiceRecord {
	t.Helper()
	return New(opts).Extract(strings.Join(lines, "\n"))
}

func TestExtractLabeledInvoice(t *testing.T) {
	rec := extractLines(t, Options{},
		"Invoice No: INV-2024-001",
		"Invoice Date: 15/03/2024",
		"Subtotal: $100.00",
		"Tax: $20.00",
		"Total: $120.00",
	)

	if !rec.InvoiceNumber.Resolved || rec.InvoiceNumber.Value != "INV-2024-001" {
		t.Fatalf("invoice number: %+v", rec.InvoiceNumber)
	}
	if rec.InvoiceNumber.Provenance.PatternID != "invoice_number.label" || rec.InvoiceNumber.Provenance.AnchorLine != 0 {
		t.Fatalf("invoice number provenance: %+v", rec.InvoiceNumber.Provenance)
	}
	if !rec.InvoiceDate.Resolved || rec.InvoiceDate.Value.ISO != "2024-03-15" || rec.InvoiceDate.Value.Ambiguous {
		t.Fatalf("invoice date: %+v", rec.InvoiceDate)
	}
	if !rec.Currency.Resolved || rec.Currency.Value != domain.CurrencyUSD {
		t.Fatalf("currency: %+v", rec.Currency)
	}
	for _, amount := range []struct {
		name  string
		field domain.MoneyField
		units int64
	}{
		{"subtotal", rec.Subtotal, 10000},
		{"tax", rec.TaxAmount, 2000},
		{"total", rec.TotalAmount, 12000},
	} {
		if !amount.field.Resolved {
			t.Fatalf("%s unresolved", amount.name)
		}
		if amount.field.Value.AmountMinorUnits != amount.units {
			t.Fatalf("%s = %d, want %d", amount.name, amount.field.Value.AmountMinorUnits, amount.units)
		}
		if amount.field.Value.Currency != domain.CurrencyUSD {
			t.Fatalf("%s currency = %s", amount.name, amount.field.Value.Currency)
		}
	}
	if rec.TotalAmount.Provenance.AnchorLine != 4 {
		t.Fatalf("total provenance: %+v", rec.TotalAmount.Provenance)
	}
	if len(rec.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", rec.Warnings)
	}
}

func TestExtractFlagsConsistencyMismatch(t *testing.T) {
	rec := extractLines(t, Options{},
		"Subtotal: $100.00",
		"Tax: $20.00",
		"Total: $119.99",
	)
	if len(rec.Warnings) != 1 || rec.Warnings[0].Kind != domain.WarnConsistencyMismatch {
		t.Fatalf("warnings: %+v", rec.Warnings)
	}
	if rec.TotalAmount.Value.AmountMinorUnits != 11999 {
		t.Fatalf("total was altered: %d", rec.TotalAmount.Value.AmountMinorUnits)
	}
	if rec.Subtotal.Value.AmountMinorUnits != 10000 || rec.TaxAmount.Value.AmountMinorUnits != 2000 {
		t.Fatal("subtotal or tax was altered")
	}
}

func TestExtractToleranceAbsorbsSmallMismatch(t *testing.T) {
	rec := extractLines(t, Options{ToleranceMinorUnits: 5},
		"Subtotal: $100.00",
		"Tax: $20.00",
		"Total: $119.99",
	)
	if len(rec.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", rec.Warnings)
	}
}

func TestExtractLoneAmbiguousDateDefaultsDayFirst(t *testing.T) {
	rec := extractLines(t, Options{}, "03/04/2024")
	if !rec.InvoiceDate.Resolved {
		t.Fatal("invoice date unresolved")
	}
	if rec.InvoiceDate.Value.ISO != "2024-04-03" || !rec.InvoiceDate.Value.Ambiguous {
		t.Fatalf("invoice date: %+v", rec.InvoiceDate.Value)
	}
	if rec.DueDate.Resolved {
		t.Fatalf("due date should stay unresolved: %+v", rec.DueDate)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	rec := New(Options{}).Extract("")
	if rec.RawText != "" {
		t.Fatalf("raw text = %q", rec.RawText)
	}
	assertAllUnresolved(t, rec)
	if len(rec.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", rec.Warnings)
	}
}

func TestExtractCurrencyConflictUsesTotalLine(t *testing.T) {
	rec := extractLines(t, Options{},
		"Subtotal: £100.00",
		"Tax: 20.00",
		"Total: 120.00 USD",
	)
	var conflict bool
	for _, w := range rec.Warnings {
		if w.Kind == domain.WarnCurrencyConflict {
			conflict = true
		}
	}
	if !conflict {
		t.Fatalf("expected currency conflict, warnings: %+v", rec.Warnings)
	}
	if rec.Currency.Value != domain.CurrencyUSD {
		t.Fatalf("record currency = %s, want USD from the total line", rec.Currency.Value)
	}
	if rec.Subtotal.Value.Currency != domain.CurrencyGBP {
		t.Fatalf("subtotal currency was rewritten: %s", rec.Subtotal.Value.Currency)
	}
	if rec.TaxAmount.Value.Currency != domain.CurrencyUSD {
		t.Fatalf("tax should inherit the record currency, got %s", rec.TaxAmount.Value.Currency)
	}
}

func TestExtractAmbiguousDateFollowsUnambiguousSibling(t *testing.T) {
	rec := extractLines(t, Options{},
		"Invoice Date: 03/04/2024",
		"Due Date: 25/04/2024",
	)
	if rec.InvoiceDate.Value.ISO != "2024-04-03" || rec.InvoiceDate.Value.Ambiguous {
		t.Fatalf("day-first evidence ignored: %+v", rec.InvoiceDate.Value)
	}

	rec = extractLines(t, Options{},
		"Invoice Date: 03/04/2024",
		"Due Date: 04/25/2024",
	)
	if rec.InvoiceDate.Value.ISO != "2024-03-04" || rec.InvoiceDate.Value.Ambiguous {
		t.Fatalf("month-first evidence ignored: %+v", rec.InvoiceDate.Value)
	}
}

func TestExtractIdempotent(t *testing.T) {
	input := strings.Join([]string{
		"Acme Supplies Ltd",
		"1 High Street",
		"Invoice No: INV-55",
		"Invoice Date: 15/03/2024",
		"Bill To: Wayne Enterprises",
		"Subtotal: $90.00",
		"Tax: $10.00",
		"Total: $100.00",
	}, "\n")
	engine := New(Options{})

	first, err := json.Marshal(engine.Extract(input))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(engine.Extract(input))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("extraction not idempotent:\n%s\n%s", first, second)
	}
}

func TestExtractTotality(t *testing.T) {
	inputs := []string{
		"",
		"   \n \t \n",
		"\x00\x01\x02binary\x00garbage",
		strings.Repeat("\xfe\xff", 40),
		"just one line of prose with no invoice in it",
		strings.Repeat("£$€ 99 ", 500),
	}
	engine := New(Options{})
	for _, input := range inputs {
		rec := engine.Extract(input)
		if rec.Row() == nil || len(rec.Row()) != len(domain.Header()) {
			t.Fatalf("row shape broken for %q", input)
		}
		if _, err := json.Marshal(rec); err != nil {
			t.Fatalf("marshal failed for %q: %v", input, err)
		}
	}
}

func TestExtractMalformedInputDegrades(t *testing.T) {
	rec := New(Options{}).Extract("Total: $5.00\x00\x00")
	assertAllUnresolved(t, rec)
	if len(rec.Warnings) != 1 || rec.Warnings[0].Kind != domain.WarnMalformedInput {
		t.Fatalf("warnings: %+v", rec.Warnings)
	}
	if !strings.Contains(rec.RawText, "Total") {
		t.Fatalf("decodable text lost: %q", rec.RawText)
	}
}

func TestExtractVendorAndBillToBlocks(t *testing.T) {
	rec := extractLines(t, Options{},
		"Acme Supplies Ltd",
		"1 High Street",
		"London EC1A 4JT",
		"Invoice No: INV-77",
		"Bill To: Wayne Enterprises",
		"1007 Mountain Drive",
		"Gotham",
		"",
		"Total: £50.00",
	)
	if rec.VendorName.Value != "Acme Supplies Ltd" {
		t.Fatalf("vendor name: %+v", rec.VendorName)
	}
	if rec.VendorAddress.Value != "1 High Street, London EC1A 4JT" {
		t.Fatalf("vendor address: %+v", rec.VendorAddress)
	}
	if rec.BillTo.Value != "Wayne Enterprises, 1007 Mountain Drive, Gotham" {
		t.Fatalf("bill to: %+v", rec.BillTo)
	}
	if rec.InvoiceNumber.Value != "INV-77" {
		t.Fatalf("invoice number: %+v", rec.InvoiceNumber)
	}
	if rec.TotalAmount.Value.AmountMinorUnits != 5000 || rec.TotalAmount.Value.Currency != domain.CurrencyGBP {
		t.Fatalf("total: %+v", rec.TotalAmount.Value)
	}
}

func TestExtractVendorSkipsTitleLines(t *testing.T) {
	rec := extractLines(t, Options{},
		"INVOICE",
		"Acme Supplies Ltd",
		"1 High Street",
		"Invoice No: INV-9001",
	)
	if rec.VendorName.Value != "Acme Supplies Ltd" {
		t.Fatalf("vendor name: %+v", rec.VendorName)
	}
	if rec.InvoiceNumber.Value != "INV-9001" {
		t.Fatalf("invoice number: %+v", rec.InvoiceNumber)
	}
}

func TestExtractBillToStopsAtNextLabel(t *testing.T) {
	rec := extractLines(t, Options{},
		"Bill To: Wayne Enterprises",
		"Gotham",
		"Subtotal: $10.00",
		"Tax: $2.00",
	)
	if rec.BillTo.Value != "Wayne Enterprises, Gotham" {
		t.Fatalf("bill to: %+v", rec.BillTo)
	}
}

func TestExtractAmountPrefersRightmostToken(t *testing.T) {
	rec := extractLines(t, Options{},
		"TAX 20%: 13.00",
		"VAT is not charged twice",
	)
	if rec.TaxAmount.Value.AmountMinorUnits != 1300 {
		t.Fatalf("tax = %d, want 1300", rec.TaxAmount.Value.AmountMinorUnits)
	}
}

func TestExtractAmountOnFollowingLine(t *testing.T) {
	rec := extractLines(t, Options{},
		"Total Due:",
		"$99.00",
	)
	if rec.TotalAmount.Value.AmountMinorUnits != 9900 {
		t.Fatalf("total: %+v", rec.TotalAmount)
	}
	if rec.TotalAmount.Provenance.AnchorLine != 0 {
		t.Fatalf("provenance should point at the label line: %+v", rec.TotalAmount.Provenance)
	}
}

func TestExtractLookaheadStopsAtOtherLabels(t *testing.T) {
	rec := extractLines(t, Options{},
		"Tax Invoice",
		"Invoice No: INV-100",
	)
	if rec.TaxAmount.Resolved {
		t.Fatalf("tax grabbed a value across a labeled line: %+v", rec.TaxAmount)
	}
	if rec.InvoiceNumber.Value != "INV-100" {
		t.Fatalf("invoice number: %+v", rec.InvoiceNumber)
	}
}

func TestExtractSubtotalAnchorDoesNotFeedTotal(t *testing.T) {
	rec := extractLines(t, Options{},
		"Subtotal: $80.00",
	)
	if rec.TotalAmount.Resolved {
		t.Fatalf("total resolved from a subtotal line: %+v", rec.TotalAmount)
	}
	if rec.Subtotal.Value.AmountMinorUnits != 8000 {
		t.Fatalf("subtotal: %+v", rec.Subtotal)
	}
}

func TestExtractBottomMostTotalWins(t *testing.T) {
	rec := extractLines(t, Options{},
		"Total: $10.00",
		"some item rows",
		"Total: $12.00",
	)
	if rec.TotalAmount.Value.AmountMinorUnits != 1200 {
		t.Fatalf("total = %d, want the later line", rec.TotalAmount.Value.AmountMinorUnits)
	}
}

func TestExtractRepairsOCRDigitNoise(t *testing.T) {
	rec := extractLines(t, Options{},
		"Invoice Date: l5/O3/2024",
		"Total: $12O.OO",
	)
	if rec.InvoiceDate.Value.ISO != "2024-03-15" {
		t.Fatalf("invoice date: %+v", rec.InvoiceDate.Value)
	}
	if rec.TotalAmount.Value.AmountMinorUnits != 12000 {
		t.Fatalf("total: %+v", rec.TotalAmount.Value)
	}
}

func TestExtractKeepsVendorSpellingIntact(t *testing.T) {
	rec := extractLines(t, Options{},
		"Olsen l0gistics Ltd",
		"Invoice No: INV-3",
	)
	if rec.VendorName.Value != "Olsen l0gistics Ltd" {
		t.Fatalf("vendor name was rewritten: %q", rec.VendorName.Value)
	}
}

func TestExtractExtraAnchors(t *testing.T) {
	rec := extractLines(t, Options{
		ExtraAnchors: map[domain.FieldKind][]string{
			domain.FieldInvoiceNumber: {"rechnung nr"},
		},
	},
		"Rechnung Nr: 2024-88",
	)
	if rec.InvoiceNumber.Value != "2024-88" {
		t.Fatalf("invoice number: %+v", rec.InvoiceNumber)
	}
	if rec.InvoiceNumber.Provenance.PatternID != "invoice_number.label" {
		t.Fatalf("provenance: %+v", rec.InvoiceNumber.Provenance)
	}
}

func TestExtractBareNumberFallback(t *testing.T) {
	rec := extractLines(t, Options{},
		"some header",
		"ref INV-4452 attached",
	)
	if rec.InvoiceNumber.Value != "INV-4452" {
		t.Fatalf("invoice number: %+v", rec.InvoiceNumber)
	}
	if rec.InvoiceNumber.Provenance.PatternID != "invoice_number.bare" {
		t.Fatalf("provenance: %+v", rec.InvoiceNumber.Provenance)
	}
}

func TestExtractCoversEveryFieldKind(t *testing.T) {
	rec := extractLines(t, Options{},
		"Globex GmbH",
		"12 Canal Walk",
		"Invoice No: GX-2024-5",
		"Invoice Date: 15 March 2024",
		"Due Date: 14/04/2024",
		"Currency: EUR",
		"Bill To: Initech",
		"Subtotal: €200.00",
		"Tax: €40.00",
		"Total: €240.00",
	)
	if rec.DueDate.Value.ISO != "2024-04-14" {
		t.Fatalf("due date: %+v", rec.DueDate.Value)
	}
	if rec.Currency.Value != domain.CurrencyEUR || rec.Currency.Provenance.PatternID != "currency.label" {
		t.Fatalf("currency: %+v", rec.Currency)
	}
	if rec.BillTo.Value != "Initech" {
		t.Fatalf("bill to: %+v", rec.BillTo)
	}
	if rec.VendorName.Value != "Globex GmbH" || rec.VendorAddress.Value != "12 Canal Walk" {
		t.Fatalf("vendor: %+v / %+v", rec.VendorName, rec.VendorAddress)
	}
	if len(rec.Warnings) != 0 {
		t.Fatalf("warnings: %+v", rec.Warnings)
	}
	row := rec.Row()
	for i, cell := range row[:6] {
		if cell == "" {
			t.Fatalf("cell %d empty in %v", i, row)
		}
	}
}

func assertAllUnresolved(t *testing.T, rec domain.InvoiceRecord) {
	t.Helper()
	if rec.InvoiceNumber.Resolved || rec.InvoiceDate.Resolved || rec.DueDate.Resolved ||
		rec.VendorName.Resolved || rec.VendorAddress.Resolved || rec.BillTo.Resolved ||
		rec.Currency.Resolved || rec.Subtotal.Resolved || rec.TaxAmount.Resolved ||
		rec.TotalAmount.Resolved {
		t.Fatalf("expected all fields unresolved: %+v", rec)
	}
}
