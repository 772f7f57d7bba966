package extract

import (
	"fmt"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

// checkAmounts cross-validates the chosen amount candidates. Values are
// never altered or discarded here, only flagged: extraction stays
// best-effort and the caller sees exactly what was read.
func checkAmounts(subtotal, tax, total *candidate, tolerance int64) []domain.Warning {
	var warnings []domain.Warning

	if subtotal != nil && tax != nil && total != nil {
		diff := subtotal.amount + tax.amount - total.amount
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			warnings = append(warnings, domain.Warning{
				Kind: domain.WarnConsistencyMismatch,
				Detail: fmt.Sprintf("subtotal %s + tax %s does not equal total %s",
					decimal(subtotal.amount), decimal(tax.amount), decimal(total.amount)),
			})
		}
	}

	if w, conflicted := currencyConflict(subtotal, tax, total); conflicted {
		warnings = append(warnings, w)
	}
	return warnings
}

// currencyConflict reports when the resolved amounts carry more than one
// known currency between them.
func currencyConflict(subtotal, tax, total *candidate) (domain.Warning, bool) {
	type labeled struct {
		name string
		cand *candidate
	}
	var seen []labeled
	for _, l := range []labeled{
		{"subtotal", subtotal},
		{"tax", tax},
		{"total", total},
	} {
		if l.cand == nil || l.cand.currency == domain.CurrencyUnknown {
			continue
		}
		seen = append(seen, l)
	}

	if len(seen) < 2 {
		return domain.Warning{}, false
	}
	for _, l := range seen[1:] {
		if l.cand.currency != seen[0].cand.currency {
			return domain.Warning{
				Kind: domain.WarnCurrencyConflict,
				Detail: fmt.Sprintf("%s is %s but %s is %s",
					seen[0].name, seen[0].cand.currency, l.name, l.cand.currency),
			}, true
		}
	}
	return domain.Warning{}, false
}

func decimal(minorUnits int64) string {
	return domain.Money{AmountMinorUnits: minorUnits}.DecimalString()
}
