package extract

import (
	"sort"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

// amountFields read bottom-up during tie-breaks: the last total-like line
// of an invoice is the one that counts. Everything else is header-weighted
// and reads top-down.
var amountFields = map[domain.FieldKind]bool{
	domain.FieldSubtotal:    true,
	domain.FieldTaxAmount:   true,
	domain.FieldTotalAmount: true,
}

// pickBest resolves one field from its candidates: highest priority first,
// then document position, then first-seen order. Validators already ran at
// candidate construction, so everything here is in play.
func pickBest(field domain.FieldKind, cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	ordered := make([]candidate, len(cands))
	copy(ordered, cands)
	bottomWins := amountFields[field]
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority > ordered[j].priority
		}
		if ordered[i].anchorLine != ordered[j].anchorLine {
			if bottomWins {
				return ordered[i].anchorLine > ordered[j].anchorLine
			}
			return ordered[i].anchorLine < ordered[j].anchorLine
		}
		return false
	})
	return ordered[0], true
}

// dateOrderVotes sums the day-first evidence carried by every date
// candidate in the document. Positive means day-before-month.
func dateOrderVotes(groups map[domain.FieldKind][]candidate) int {
	votes := 0
	for _, field := range []domain.FieldKind{domain.FieldInvoiceDate, domain.FieldDueDate} {
		for _, c := range groups[field] {
			votes += c.date.orderVote
		}
	}
	return votes
}
