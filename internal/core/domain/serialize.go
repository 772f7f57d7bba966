package domain

import "fmt"

// Header returns CSV column names aligned with FieldKinds order.
func Header() []string {
	kinds := FieldKinds()
	cols := make([]string, len(kinds))
	for i, k := range kinds {
		cols[i] = string(k)
	}
	return cols
}

// Row renders the record as a single CSV-style row aligned with Header.
// Unresolved fields become empty cells. Provenance and warnings do not
// survive the row form.
func (r InvoiceRecord) Row() []string {
	cell := func(resolved bool, value string) string {
		if !resolved {
			return ""
		}
		return value
	}
	return []string{
		cell(r.InvoiceNumber.Resolved, r.InvoiceNumber.Value),
		cell(r.InvoiceDate.Resolved, r.InvoiceDate.Value.ISO),
		cell(r.DueDate.Resolved, r.DueDate.Value.ISO),
		cell(r.VendorName.Resolved, r.VendorName.Value),
		cell(r.VendorAddress.Resolved, r.VendorAddress.Value),
		cell(r.BillTo.Resolved, r.BillTo.Value),
		cell(r.Currency.Resolved, string(r.Currency.Value)),
		cell(r.Subtotal.Resolved, r.Subtotal.Value.DecimalString()),
		cell(r.TaxAmount.Resolved, r.TaxAmount.Value.DecimalString()),
		cell(r.TotalAmount.Resolved, r.TotalAmount.Value.DecimalString()),
		r.RawText,
	}
}

// RecordFromRow rebuilds a record from a Header-aligned row. Empty cells map
// back to unresolved fields. Monetary amounts keep their exact minor units;
// their currency is taken from the currency column.
func RecordFromRow(row []string) (InvoiceRecord, error) {
	if got, want := len(row), len(FieldKinds()); got != want {
		return InvoiceRecord{}, fmt.Errorf("record row has %d cells, want %d", got, want)
	}

	var rec InvoiceRecord
	if row[0] != "" {
		rec.InvoiceNumber = StringField{Value: row[0], Resolved: true}
	}
	if row[1] != "" {
		rec.InvoiceDate = DateField{Value: InvoiceDate{ISO: row[1]}, Resolved: true}
	}
	if row[2] != "" {
		rec.DueDate = DateField{Value: InvoiceDate{ISO: row[2]}, Resolved: true}
	}
	if row[3] != "" {
		rec.VendorName = StringField{Value: row[3], Resolved: true}
	}
	if row[4] != "" {
		rec.VendorAddress = StringField{Value: row[4], Resolved: true}
	}
	if row[5] != "" {
		rec.BillTo = StringField{Value: row[5], Resolved: true}
	}

	currency := CurrencyUnknown
	if row[6] != "" {
		parsed, ok := ParseCurrency(row[6])
		if !ok {
			return InvoiceRecord{}, fmt.Errorf("record row has unknown currency %q", row[6])
		}
		currency = parsed
		rec.Currency = CurrencyField{Value: parsed, Resolved: true}
	}

	money := func(cell string) (MoneyField, error) {
		if cell == "" {
			return MoneyField{}, nil
		}
		units, err := ParseMinorUnits(cell)
		if err != nil {
			return MoneyField{}, err
		}
		return MoneyField{Value: Money{AmountMinorUnits: units, Currency: currency}, Resolved: true}, nil
	}

	var err error
	if rec.Subtotal, err = money(row[7]); err != nil {
		return InvoiceRecord{}, err
	}
	if rec.TaxAmount, err = money(row[8]); err != nil {
		return InvoiceRecord{}, err
	}
	if rec.TotalAmount, err = money(row[9]); err != nil {
		return InvoiceRecord{}, err
	}
	rec.RawText = row[10]
	return rec, nil
}
