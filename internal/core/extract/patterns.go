package extract

import (
	"regexp"
	"strings"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

type valueClass int

const (
	valueIdentifier valueClass = iota
	valueDate
	valueAmount
	valueCurrency
	valueBlock
)

const (
	priorityLabeled     = 100
	priorityLabeledWeak = 90
	priorityBlock       = 80
	priorityBareFormat  = 40
	priorityBareHash    = 35
	prioritySymbol      = 30
	priorityUnanchored  = 30
	priorityCode        = 25
)

// labelPattern is one declarative catalog entry: the anchor phrases that
// mark a field, the class of value expected near them, and the priority an
// anchored match confers. The catalog is plain data so locators stay
// generic and the entries stay testable on their own.
type labelPattern struct {
	id       string
	field    domain.FieldKind
	anchors  []string
	value    valueClass
	priority int
	// sameLineOnly restricts the value search to the anchor's own line.
	sameLineOnly bool
	// labelBoundary marks anchors that delimit the vendor header block and
	// terminate bill-to blocks. Weak title/hash anchors do not.
	labelBoundary bool
}

var (
	identifierRE        = regexp.MustCompile(`[A-Z0-9][A-Z0-9-]*`)
	bareInvoiceNumberRE = regexp.MustCompile(`\b[A-Z]{2,4}-\d{3,8}\b`)
)

func defaultPatterns() []labelPattern {
	return []labelPattern{
		{
			id: "invoice_number.label", field: domain.FieldInvoiceNumber,
			value: valueIdentifier, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"invoice number", "invoice no", "invoice #", "inv no", "inv #"},
		},
		{
			id: "invoice_number.title", field: domain.FieldInvoiceNumber,
			value: valueIdentifier, priority: priorityLabeledWeak, sameLineOnly: true,
			anchors: []string{"invoice"},
		},
		{
			id: "invoice_number.hash", field: domain.FieldInvoiceNumber,
			value: valueIdentifier, priority: priorityBareHash, sameLineOnly: true,
			anchors: []string{"#"},
		},
		{
			id: "invoice_date.label", field: domain.FieldInvoiceDate,
			value: valueDate, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"invoice date", "date of issue", "issue date", "dated", "date"},
		},
		{
			id: "due_date.label", field: domain.FieldDueDate,
			value: valueDate, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"due date", "payment due", "due by", "payable by"},
		},
		{
			id: "bill_to.block", field: domain.FieldBillTo,
			value: valueBlock, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"bill to", "billed to", "bill-to", "sold to", "customer"},
		},
		{
			id: "currency.label", field: domain.FieldCurrency,
			value: valueCurrency, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"currency"},
		},
		{
			id: "subtotal.label", field: domain.FieldSubtotal,
			value: valueAmount, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"subtotal", "sub-total", "sub total", "net amount", "net total"},
		},
		{
			id: "tax_amount.label", field: domain.FieldTaxAmount,
			value: valueAmount, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"sales tax", "tax", "vat", "gst"},
		},
		{
			id: "total_amount.label", field: domain.FieldTotalAmount,
			value: valueAmount, priority: priorityLabeled, labelBoundary: true,
			anchors: []string{"grand total", "total due", "amount due", "balance due", "total"},
		},
	}
}

type catalog struct {
	patterns []labelPattern
}

// newCatalog builds the pattern catalog, merging extra anchor phrases into
// the labeled entry of each named field. Kinds without a labeled entry are
// ignored here; configuration loading validates them upfront.
func newCatalog(extra map[domain.FieldKind][]string) catalog {
	patterns := defaultPatterns()
	for field, anchors := range extra {
		for i := range patterns {
			if patterns[i].field != field || !patterns[i].labelBoundary {
				continue
			}
			for _, anchor := range anchors {
				anchor = strings.ToLower(strings.TrimSpace(anchor))
				if anchor != "" && !containsAnchor(patterns[i].anchors, anchor) {
					patterns[i].anchors = append(patterns[i].anchors, anchor)
				}
			}
			break
		}
	}
	return catalog{patterns: patterns}
}

func containsAnchor(anchors []string, anchor string) bool {
	for _, a := range anchors {
		if a == anchor {
			return true
		}
	}
	return false
}

// AnchoredFieldKinds lists the kinds that accept extra label anchors.
func AnchoredFieldKinds() []domain.FieldKind {
	var kinds []domain.FieldKind
	for _, p := range defaultPatterns() {
		if p.labelBoundary {
			kinds = append(kinds, p.field)
		}
	}
	return kinds
}
