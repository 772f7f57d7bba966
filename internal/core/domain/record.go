package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldKind names one extractable invoice field. The constant values double
// as wire names for JSON keys, CSV headers, and pattern catalog keys.
type FieldKind string

const (
	FieldInvoiceNumber FieldKind = "invoice_number"
	FieldInvoiceDate   FieldKind = "invoice_date"
	FieldDueDate       FieldKind = "due_date"
	FieldVendorName    FieldKind = "vendor_name"
	FieldVendorAddress FieldKind = "vendor_address"
	FieldBillTo        FieldKind = "bill_to"
	FieldCurrency      FieldKind = "currency"
	FieldSubtotal      FieldKind = "subtotal"
	FieldTaxAmount     FieldKind = "tax_amount"
	FieldTotalAmount   FieldKind = "total_amount"
	FieldRawText       FieldKind = "raw_text"
)

// FieldKinds lists every kind in canonical column order.
func FieldKinds() []FieldKind {
	return []FieldKind{
		FieldInvoiceNumber,
		FieldInvoiceDate,
		FieldDueDate,
		FieldVendorName,
		FieldVendorAddress,
		FieldBillTo,
		FieldCurrency,
		FieldSubtotal,
		FieldTaxAmount,
		FieldTotalAmount,
		FieldRawText,
	}
}

func (k FieldKind) String() string { return string(k) }

type Currency string

const (
	CurrencyGBP     Currency = "GBP"
	CurrencyUSD     Currency = "USD"
	CurrencyEUR     Currency = "EUR"
	CurrencyUnknown Currency = ""
)

// ParseCurrency accepts the three supported ISO codes.
func ParseCurrency(s string) (Currency, bool) {
	switch Currency(s) {
	case CurrencyGBP, CurrencyUSD, CurrencyEUR:
		return Currency(s), true
	}
	return CurrencyUnknown, false
}

// Money is a monetary amount in minor units (pence, cents). Negative amounts
// are valid and represent credit notes.
type Money struct {
	AmountMinorUnits int64    `json:"amount_minor_units"`
	Currency         Currency `json:"currency"`
}

// DecimalString renders the amount as a canonical two-decimal string,
// e.g. 12000 -> "120.00", -1500 -> "-15.00".
func (m Money) DecimalString() string {
	units := m.AmountMinorUnits
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

// ParseMinorUnits parses the canonical two-decimal form produced by
// DecimalString back into minor units.
func ParseMinorUnits(s string) (int64, error) {
	body, neg := strings.CutPrefix(s, "-")
	dot := strings.IndexByte(body, '.')
	if dot <= 0 || len(body)-dot-1 != 2 {
		return 0, fmt.Errorf("parse amount %q: want a two-decimal form", s)
	}
	units, err := strconv.ParseInt(body[:dot], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(body[dot+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if cents < 0 {
		return 0, fmt.Errorf("parse amount %q: want a two-decimal form", s)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}

// InvoiceDate is a calendar date in ISO form. Ambiguous marks dates whose
// day and month could not be told apart from the source text alone.
type InvoiceDate struct {
	ISO       string `json:"iso_date"`
	Ambiguous bool   `json:"ambiguous"`
}

// Provenance records where a resolved field value came from.
type Provenance struct {
	AnchorLine int    `json:"anchor_line"`
	PatternID  string `json:"pattern_id"`
}

// StringField is a textual field that is either resolved with provenance or
// explicitly unresolved. Unresolved fields serialize to JSON null and to an
// empty CSV cell.
type StringField struct {
	Value      string
	Resolved   bool
	Provenance Provenance
}

func (f StringField) MarshalJSON() ([]byte, error) {
	if !f.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Value      string `json:"value"`
		AnchorLine int    `json:"anchor_line"`
		PatternID  string `json:"pattern_id"`
	}{f.Value, f.Provenance.AnchorLine, f.Provenance.PatternID})
}

func (f *StringField) UnmarshalJSON(data []byte) error {
	*f = StringField{}
	if string(data) == "null" {
		return nil
	}
	var wire struct {
		Value      string `json:"value"`
		AnchorLine int    `json:"anchor_line"`
		PatternID  string `json:"pattern_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.Value = wire.Value
	f.Resolved = true
	f.Provenance = Provenance{AnchorLine: wire.AnchorLine, PatternID: wire.PatternID}
	return nil
}

type DateField struct {
	Value      InvoiceDate
	Resolved   bool
	Provenance Provenance
}

func (f DateField) MarshalJSON() ([]byte, error) {
	if !f.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		ISO        string `json:"iso_date"`
		Ambiguous  bool   `json:"ambiguous"`
		AnchorLine int    `json:"anchor_line"`
		PatternID  string `json:"pattern_id"`
	}{f.Value.ISO, f.Value.Ambiguous, f.Provenance.AnchorLine, f.Provenance.PatternID})
}

func (f *DateField) UnmarshalJSON(data []byte) error {
	*f = DateField{}
	if string(data) == "null" {
		return nil
	}
	var wire struct {
		ISO        string `json:"iso_date"`
		Ambiguous  bool   `json:"ambiguous"`
		AnchorLine int    `json:"anchor_line"`
		PatternID  string `json:"pattern_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.Value = InvoiceDate{ISO: wire.ISO, Ambiguous: wire.Ambiguous}
	f.Resolved = true
	f.Provenance = Provenance{AnchorLine: wire.AnchorLine, PatternID: wire.PatternID}
	return nil
}

type MoneyField struct {
	Value      Money
	Resolved   bool
	Provenance Provenance
}

func (f MoneyField) MarshalJSON() ([]byte, error) {
	if !f.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		AmountMinorUnits int64    `json:"amount_minor_units"`
		Currency         Currency `json:"currency"`
		AnchorLine       int      `json:"anchor_line"`
		PatternID        string   `json:"pattern_id"`
	}{f.Value.AmountMinorUnits, f.Value.Currency, f.Provenance.AnchorLine, f.Provenance.PatternID})
}

func (f *MoneyField) UnmarshalJSON(data []byte) error {
	*f = MoneyField{}
	if string(data) == "null" {
		return nil
	}
	var wire struct {
		AmountMinorUnits int64    `json:"amount_minor_units"`
		Currency         Currency `json:"currency"`
		AnchorLine       int      `json:"anchor_line"`
		PatternID        string   `json:"pattern_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.Value = Money{AmountMinorUnits: wire.AmountMinorUnits, Currency: wire.Currency}
	f.Resolved = true
	f.Provenance = Provenance{AnchorLine: wire.AnchorLine, PatternID: wire.PatternID}
	return nil
}

type CurrencyField struct {
	Value      Currency
	Resolved   bool
	Provenance Provenance
}

func (f CurrencyField) MarshalJSON() ([]byte, error) {
	if !f.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Value      Currency `json:"value"`
		AnchorLine int      `json:"anchor_line"`
		PatternID  string   `json:"pattern_id"`
	}{f.Value, f.Provenance.AnchorLine, f.Provenance.PatternID})
}

func (f *CurrencyField) UnmarshalJSON(data []byte) error {
	*f = CurrencyField{}
	if string(data) == "null" {
		return nil
	}
	var wire struct {
		Value      Currency `json:"value"`
		AnchorLine int      `json:"anchor_line"`
		PatternID  string   `json:"pattern_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.Value = wire.Value
	f.Resolved = true
	f.Provenance = Provenance{AnchorLine: wire.AnchorLine, PatternID: wire.PatternID}
	return nil
}

type WarningKind string

const (
	WarnConsistencyMismatch WarningKind = "consistency_mismatch"
	WarnCurrencyConflict    WarningKind = "currency_conflict"
	WarnMalformedInput      WarningKind = "malformed_input"
)

// Warning flags a suspicious but non-fatal condition noticed during
// extraction. Warnings never suppress field values.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail"`
}

// InvoiceRecord is the complete result of extracting one document. Every
// field kind is present, either resolved with provenance or explicitly
// unresolved. Records are built once and never mutated afterwards.
type InvoiceRecord struct {
	InvoiceNumber StringField   `json:"invoice_number"`
	InvoiceDate   DateField     `json:"invoice_date"`
	DueDate       DateField     `json:"due_date"`
	VendorName    StringField   `json:"vendor_name"`
	VendorAddress StringField   `json:"vendor_address"`
	BillTo        StringField   `json:"bill_to"`
	Currency      CurrencyField `json:"currency"`
	Subtotal      MoneyField    `json:"subtotal"`
	TaxAmount     MoneyField    `json:"tax_amount"`
	TotalAmount   MoneyField    `json:"total_amount"`
	RawText       string        `json:"raw_text"`
	Warnings      []Warning     `json:"warnings,omitempty"`
}

// ResolvedFieldKinds lists the kinds that carry a value, in column order.
// raw_text is always present and is not counted.
func (r InvoiceRecord) ResolvedFieldKinds() []string {
	resolved := make([]string, 0, 10)
	add := func(kind FieldKind, ok bool) {
		if ok {
			resolved = append(resolved, string(kind))
		}
	}
	add(FieldInvoiceNumber, r.InvoiceNumber.Resolved)
	add(FieldInvoiceDate, r.InvoiceDate.Resolved)
	add(FieldDueDate, r.DueDate.Resolved)
	add(FieldVendorName, r.VendorName.Resolved)
	add(FieldVendorAddress, r.VendorAddress.Resolved)
	add(FieldBillTo, r.BillTo.Resolved)
	add(FieldCurrency, r.Currency.Resolved)
	add(FieldSubtotal, r.Subtotal.Resolved)
	add(FieldTaxAmount, r.TaxAmount.Resolved)
	add(FieldTotalAmount, r.TotalAmount.Resolved)
	return resolved
}

// WarningKinds lists the kinds of the attached warnings, in order.
func (r InvoiceRecord) WarningKinds() []string {
	kinds := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		kinds = append(kinds, string(w.Kind))
	}
	return kinds
}
