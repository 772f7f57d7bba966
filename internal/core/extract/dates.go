package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

var (
	numericDateRE = regexp.MustCompile(`\b[\dOolI]{1,4}[./-][\dOolI]{1,2}[./-][\dOolI]{2,4}\b`)
	dayMonthRE    = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?[ -]([A-Za-z]{3,9})\.?,?[ -](\d{2,4})\b`)
	monthDayRE    = regexp.MustCompile(`\b([A-Za-z]{3,9})\.? (\d{1,2})(?:st|nd|rd|th)?,? (\d{2,4})\b`)
)

var monthsByName = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

type civilDate struct {
	year, month, day int
}

func (d civilDate) iso() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// parsedDate holds every calendar-valid reading of one date token. A token
// like 03/04/2024 keeps both readings until the document-wide order vote
// settles which one applies.
type parsedDate struct {
	exact      civilDate
	hasExact   bool
	dayFirst   civilDate
	monthFirst civilDate
	ambiguous  bool
	// orderVote is +1 when the token proves day-before-month order, -1 for
	// month-before-day, 0 when it carries no order evidence.
	orderVote int
}

func (p parsedDate) valid() bool { return p.hasExact || p.ambiguous }

// resolve picks a reading. preferDayFirst applies only to ambiguous tokens;
// hasEvidence clears the ambiguity flag when other dates in the document
// settled the order.
func (p parsedDate) resolve(preferDayFirst, hasEvidence bool) domain.InvoiceDate {
	if p.hasExact {
		return domain.InvoiceDate{ISO: p.exact.iso()}
	}
	d := p.dayFirst
	if !preferDayFirst {
		d = p.monthFirst
	}
	return domain.InvoiceDate{ISO: d.iso(), Ambiguous: !hasEvidence}
}

type dateMatch struct {
	parsed     parsedDate
	start, end int
	raw        string
}

// findDates returns every calendar-valid date token in text, left to right.
func findDates(text string) []dateMatch {
	var out []dateMatch
	for _, loc := range numericDateRE.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if p := parseNumericDate(raw); p.valid() {
			out = append(out, dateMatch{parsed: p, start: loc[0], end: loc[1], raw: raw})
		}
	}
	for _, loc := range dayMonthRE.FindAllStringSubmatchIndex(text, -1) {
		p := textualDate(text[loc[2]:loc[3]], text[loc[4]:loc[5]], text[loc[6]:loc[7]], false)
		if p.valid() {
			out = append(out, dateMatch{parsed: p, start: loc[0], end: loc[1], raw: text[loc[0]:loc[1]]})
		}
	}
	for _, loc := range monthDayRE.FindAllStringSubmatchIndex(text, -1) {
		p := textualDate(text[loc[4]:loc[5]], text[loc[2]:loc[3]], text[loc[6]:loc[7]], true)
		if p.valid() {
			out = append(out, dateMatch{parsed: p, start: loc[0], end: loc[1], raw: text[loc[0]:loc[1]]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// parseNumericDate reads a separator-delimited numeric token. A four-digit
// or out-of-range first component means year-first order; otherwise both
// day-first and month-first readings are tried against the calendar.
func parseNumericDate(token string) parsedDate {
	parts := strings.FieldsFunc(token, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) != 3 {
		return parsedDate{}
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(repairDigitConfusions(part))
		if err != nil {
			return parsedDate{}
		}
		nums[i] = n
	}
	a, b, c := nums[0], nums[1], nums[2]

	if len(parts[0]) == 4 || a > 31 {
		d := civilDate{year: normalizeYear(a, len(parts[0])), month: b, day: c}
		if !validDate(d) {
			return parsedDate{}
		}
		return parsedDate{exact: d, hasExact: true}
	}

	year := normalizeYear(c, len(parts[2]))
	df := civilDate{year: year, month: b, day: a}
	mf := civilDate{year: year, month: a, day: b}
	switch {
	case validDate(df) && validDate(mf):
		if a == b {
			return parsedDate{exact: df, hasExact: true}
		}
		return parsedDate{dayFirst: df, monthFirst: mf, ambiguous: true}
	case validDate(df):
		return parsedDate{exact: df, hasExact: true, orderVote: 1}
	case validDate(mf):
		return parsedDate{exact: mf, hasExact: true, orderVote: -1}
	default:
		return parsedDate{}
	}
}

func textualDate(dayStr, monthName, yearStr string, monthBeforeDay bool) parsedDate {
	month, ok := monthsByName[strings.ToLower(monthName)]
	if !ok {
		return parsedDate{}
	}
	day, err := strconv.Atoi(repairDigitConfusions(dayStr))
	if err != nil {
		return parsedDate{}
	}
	year, err := strconv.Atoi(repairDigitConfusions(yearStr))
	if err != nil {
		return parsedDate{}
	}
	d := civilDate{year: normalizeYear(year, len(yearStr)), month: month, day: day}
	if !validDate(d) {
		return parsedDate{}
	}
	vote := 1
	if monthBeforeDay {
		vote = -1
	}
	return parsedDate{exact: d, hasExact: true, orderVote: vote}
}

// normalizeYear expands two-digit years with a 1970 pivot.
func normalizeYear(year, digits int) int {
	if digits > 2 {
		return year
	}
	if year <= 69 {
		return 2000 + year
	}
	return 1900 + year
}

func validDate(d civilDate) bool {
	if d.year < 1900 || d.year > 2100 {
		return false
	}
	if d.month < 1 || d.month > 12 {
		return false
	}
	return d.day >= 1 && d.day <= daysInMonth(d.year, d.month)
}

func daysInMonth(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if leapYear(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

func leapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
