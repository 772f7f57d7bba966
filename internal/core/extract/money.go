package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

var (
	amountTokenRE  = regexp.MustCompile(`[£$€]?\s?-?[\dOolI][\dOolI.,]*`)
	currencyCodeRE = regexp.MustCompile(`(?i)\b(GBP|USD|EUR)\b`)
)

func symbolCurrency(r rune) domain.Currency {
	switch r {
	case '£':
		return domain.CurrencyGBP
	case '$':
		return domain.CurrencyUSD
	case '€':
		return domain.CurrencyEUR
	}
	return domain.CurrencyUnknown
}

// findSymbol returns the byte index and currency of the first currency
// symbol in text, or -1 when there is none.
func findSymbol(text string) (int, domain.Currency) {
	for i, r := range text {
		if cur := symbolCurrency(r); cur != domain.CurrencyUnknown {
			return i, cur
		}
	}
	return -1, domain.CurrencyUnknown
}

// lineCurrency reports the currency evidence of one line: the first symbol
// wins, then the first ISO code.
func lineCurrency(text string) domain.Currency {
	if _, cur := findSymbol(text); cur != domain.CurrencyUnknown {
		return cur
	}
	if loc := currencyCodeRE.FindStringIndex(text); loc != nil {
		cur, _ := domain.ParseCurrency(strings.ToUpper(text[loc[0]:loc[1]]))
		return cur
	}
	return domain.CurrencyUnknown
}

// parseAmountToken turns one matched token into minor units. The token may
// carry an adjacent currency symbol, a sign, and OCR letter-for-digit noise.
// Tokens without a single real digit are rejected so stray l's and O's from
// surrounding words never become amounts.
func parseAmountToken(token string) (int64, domain.Currency, bool) {
	symbol := domain.CurrencyUnknown
	body := strings.TrimSpace(token)
	if r, size := utf8.DecodeRuneInString(body); symbolCurrency(r) != domain.CurrencyUnknown {
		symbol = symbolCurrency(r)
		body = strings.TrimSpace(body[size:])
	}
	negative := strings.HasPrefix(body, "-")
	body = strings.TrimPrefix(body, "-")
	body = strings.TrimRight(body, ".,")
	if !strings.ContainsAny(body, "0123456789") {
		return 0, symbol, false
	}
	units, ok := amountMinorUnits(repairDigitConfusions(body))
	if !ok {
		return 0, symbol, false
	}
	if negative {
		units = -units
	}
	return units, symbol, true
}

// amountMinorUnits converts a digits-and-separators body into minor units.
// The last separator followed by one or two digits is the decimal point;
// every other separator is a thousands mark and is dropped.
func amountMinorUnits(body string) (int64, bool) {
	lastSep := -1
	for i := 0; i < len(body); i++ {
		if body[i] == '.' || body[i] == ',' {
			lastSep = i
		}
	}
	whole, frac := body, ""
	if lastSep >= 0 {
		if tail := body[lastSep+1:]; len(tail) == 1 || len(tail) == 2 {
			whole, frac = body[:lastSep], tail
		}
	}
	digits := strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, whole)
	if digits == "" || len(digits) > 13 {
		return 0, false
	}
	units, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	switch len(frac) {
	case 0:
		return units * 100, true
	case 1:
		c, err := strconv.Atoi(frac)
		if err != nil {
			return 0, false
		}
		return units*100 + int64(c)*10, true
	default:
		c, err := strconv.Atoi(frac)
		if err != nil {
			return 0, false
		}
		return units*100 + int64(c), true
	}
}
