package extract

import (
	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

const (
	defaultVendorWindow   = 6
	defaultVendorMaxLines = 3
	defaultBillToMaxLines = 5
	defaultValueLookahead = 2
)

// Options tune the extraction heuristics. The zero value gives the
// defaults; invalid settings are clamped rather than rejected.
type Options struct {
	// ToleranceMinorUnits is the slack allowed before a subtotal+tax vs
	// total mismatch is flagged. Zero flags any difference.
	ToleranceMinorUnits int64
	// VendorWindow bounds how many header lines the vendor block may be
	// drawn from; VendorMaxLines caps the block itself.
	VendorWindow   int
	VendorMaxLines int
	// BillToMaxLines caps the lines collected after a bill-to label.
	BillToMaxLines int
	// ValueLookahead is how many lines below a label are searched for its
	// value. Amount values always stop at one.
	ValueLookahead int
	// ExtraAnchors adds label phrases to a field's catalog entry.
	ExtraAnchors map[domain.FieldKind][]string
}

func (o Options) normalized() Options {
	if o.ToleranceMinorUnits < 0 {
		o.ToleranceMinorUnits = 0
	}
	if o.VendorWindow <= 0 {
		o.VendorWindow = defaultVendorWindow
	}
	if o.VendorMaxLines <= 0 {
		o.VendorMaxLines = defaultVendorMaxLines
	}
	if o.BillToMaxLines <= 0 {
		o.BillToMaxLines = defaultBillToMaxLines
	}
	if o.ValueLookahead <= 0 {
		o.ValueLookahead = defaultValueLookahead
	}
	return o
}

// Engine turns one block of OCR text into a typed invoice record. It holds
// no mutable state: every Extract call is a pure function of its input, so
// one engine serves any number of goroutines.
type Engine struct {
	opts Options
	cat  catalog
}

func New(opts Options) *Engine {
	opts = opts.normalized()
	return &Engine{opts: opts, cat: newCatalog(opts.ExtraAnchors)}
}

// Extract runs the full pipeline: normalize, locate, disambiguate, check,
// build. It never fails; damaged input degrades to an unresolved record.
func (e *Engine) Extract(text string) domain.InvoiceRecord {
	cleaned, malformed := sanitizeInput(text)
	doc := Normalize(cleaned)
	if malformed {
		return domain.InvoiceRecord{
			RawText: doc.Join(),
			Warnings: []domain.Warning{{
				Kind:   domain.WarnMalformedInput,
				Detail: "input is not decodable text",
			}},
		}
	}

	hits := e.cat.findAnchorHits(doc)
	boundary := boundaryLines(hits)

	cands := anchoredCandidates(doc, hits, boundary, e.opts)
	cands = append(cands, vendorCandidates(doc, hits, e.opts)...)
	cands = append(cands, bareNumberCandidates(doc)...)
	cands = append(cands, currencyCandidates(doc)...)
	cands = append(cands, unanchoredDateCandidates(doc, claimedDateSpans(cands))...)

	groups := make(map[domain.FieldKind][]candidate, len(cands))
	for _, c := range cands {
		groups[c.field] = append(groups[c.field], c)
	}
	return buildRecord(doc, groups, e.opts.ToleranceMinorUnits)
}

// claimedDateSpans maps value lines to the spans already consumed by
// anchored date candidates, so the unanchored scan does not count the same
// token twice.
func claimedDateSpans(cands []candidate) map[int][][2]int {
	claimed := make(map[int][][2]int)
	for _, c := range cands {
		if c.field == domain.FieldInvoiceDate || c.field == domain.FieldDueDate {
			claimed[c.valueLine] = append(claimed[c.valueLine], c.span)
		}
	}
	return claimed
}

// buildRecord is the final assembly stage: pick one candidate per field,
// settle date order, reconcile currencies, and attach warnings. Every field
// kind appears in the result, resolved or not.
func buildRecord(doc RawDocument, groups map[domain.FieldKind][]candidate, tolerance int64) domain.InvoiceRecord {
	rec := domain.InvoiceRecord{RawText: doc.Join()}

	if c, ok := pickBest(domain.FieldInvoiceNumber, groups[domain.FieldInvoiceNumber]); ok {
		rec.InvoiceNumber = domain.StringField{Value: c.text, Resolved: true, Provenance: c.provenance()}
	}
	if c, ok := pickBest(domain.FieldVendorName, groups[domain.FieldVendorName]); ok {
		rec.VendorName = domain.StringField{Value: c.text, Resolved: true, Provenance: c.provenance()}
	}
	if c, ok := pickBest(domain.FieldVendorAddress, groups[domain.FieldVendorAddress]); ok {
		rec.VendorAddress = domain.StringField{Value: c.text, Resolved: true, Provenance: c.provenance()}
	}
	if c, ok := pickBest(domain.FieldBillTo, groups[domain.FieldBillTo]); ok {
		rec.BillTo = domain.StringField{Value: c.text, Resolved: true, Provenance: c.provenance()}
	}

	votes := dateOrderVotes(groups)
	preferDayFirst := votes >= 0
	hasEvidence := votes != 0
	if c, ok := pickBest(domain.FieldInvoiceDate, groups[domain.FieldInvoiceDate]); ok {
		rec.InvoiceDate = domain.DateField{
			Value:      c.date.resolve(preferDayFirst, hasEvidence),
			Resolved:   true,
			Provenance: c.provenance(),
		}
	}
	if c, ok := pickBest(domain.FieldDueDate, groups[domain.FieldDueDate]); ok {
		rec.DueDate = domain.DateField{
			Value:      c.date.resolve(preferDayFirst, hasEvidence),
			Resolved:   true,
			Provenance: c.provenance(),
		}
	}

	var subtotal, tax, total *candidate
	if c, ok := pickBest(domain.FieldSubtotal, groups[domain.FieldSubtotal]); ok {
		subtotal = &c
	}
	if c, ok := pickBest(domain.FieldTaxAmount, groups[domain.FieldTaxAmount]); ok {
		tax = &c
	}
	if c, ok := pickBest(domain.FieldTotalAmount, groups[domain.FieldTotalAmount]); ok {
		total = &c
	}

	warnings := checkAmounts(subtotal, tax, total, tolerance)

	currencyChoice, hasCurrency := pickBest(domain.FieldCurrency, groups[domain.FieldCurrency])
	conflicted := false
	for _, w := range warnings {
		if w.Kind == domain.WarnCurrencyConflict {
			conflicted = true
		}
	}
	switch {
	case conflicted && total != nil && total.currency != domain.CurrencyUnknown:
		// On conflict the total's line decides the record currency.
		rec.Currency = domain.CurrencyField{
			Value:      total.currency,
			Resolved:   true,
			Provenance: domain.Provenance{AnchorLine: total.valueLine, PatternID: "currency.amount_line"},
		}
	case hasCurrency:
		rec.Currency = domain.CurrencyField{
			Value:      currencyChoice.currency,
			Resolved:   true,
			Provenance: currencyChoice.provenance(),
		}
	}

	recordCurrency := rec.Currency.Value
	moneyField := func(c *candidate) domain.MoneyField {
		if c == nil {
			return domain.MoneyField{}
		}
		cur := c.currency
		if cur == domain.CurrencyUnknown {
			cur = recordCurrency
		}
		return domain.MoneyField{
			Value:      domain.Money{AmountMinorUnits: c.amount, Currency: cur},
			Resolved:   true,
			Provenance: c.provenance(),
		}
	}
	rec.Subtotal = moneyField(subtotal)
	rec.TaxAmount = moneyField(tax)
	rec.TotalAmount = moneyField(total)

	rec.Warnings = warnings
	return rec
}
