package extract

import "testing"

func TestParseNumericDateUnambiguousDayFirst(t *testing.T) {
	p := parseNumericDate("15/03/2024")
	if !p.hasExact || p.ambiguous {
		t.Fatalf("expected exact reading, got %+v", p)
	}
	if got := p.exact.iso(); got != "2024-03-15" {
		t.Fatalf("got %s", got)
	}
	if p.orderVote != 1 {
		t.Fatalf("expected day-first vote, got %d", p.orderVote)
	}
}

func TestParseNumericDateUnambiguousMonthFirst(t *testing.T) {
	p := parseNumericDate("03/15/2024")
	if !p.hasExact {
		t.Fatalf("expected exact reading, got %+v", p)
	}
	if got := p.exact.iso(); got != "2024-03-15" {
		t.Fatalf("got %s", got)
	}
	if p.orderVote != -1 {
		t.Fatalf("expected month-first vote, got %d", p.orderVote)
	}
}

func TestParseNumericDateKeepsBothReadings(t *testing.T) {
	p := parseNumericDate("03/04/2024")
	if !p.ambiguous || p.hasExact {
		t.Fatalf("expected ambiguous readings, got %+v", p)
	}
	if p.dayFirst.iso() != "2024-04-03" || p.monthFirst.iso() != "2024-03-04" {
		t.Fatalf("unexpected readings: %+v", p)
	}
	if p.orderVote != 0 {
		t.Fatalf("ambiguous token must not vote, got %d", p.orderVote)
	}
}

func TestParseNumericDateEqualComponents(t *testing.T) {
	p := parseNumericDate("03/03/2024")
	if !p.hasExact || p.ambiguous {
		t.Fatalf("identical readings should collapse to exact, got %+v", p)
	}
	if p.exact.iso() != "2024-03-03" {
		t.Fatalf("got %s", p.exact.iso())
	}
}

func TestParseNumericDateYearFirst(t *testing.T) {
	p := parseNumericDate("2024-03-15")
	if !p.hasExact || p.orderVote != 0 {
		t.Fatalf("expected neutral exact reading, got %+v", p)
	}
	if p.exact.iso() != "2024-03-15" {
		t.Fatalf("got %s", p.exact.iso())
	}
}

func TestParseNumericDateTwoDigitYears(t *testing.T) {
	if got := parseNumericDate("15/03/24").exact.iso(); got != "2024-03-15" {
		t.Fatalf("got %s", got)
	}
	if got := parseNumericDate("15/03/99").exact.iso(); got != "1999-03-15" {
		t.Fatalf("got %s", got)
	}
}

func TestParseNumericDateRepairsConfusions(t *testing.T) {
	p := parseNumericDate("l5/O3/2024")
	if !p.hasExact || p.exact.iso() != "2024-03-15" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseNumericDateRejectsImpossibleCalendarDates(t *testing.T) {
	for _, token := range []string{"30/02/2024", "29/02/2023", "32/13/2024", "00/00/2024", "15/03/2424"} {
		if p := parseNumericDate(token); p.valid() {
			t.Fatalf("expected %q to be rejected, got %+v", token, p)
		}
	}
	if p := parseNumericDate("29/02/2024"); !p.valid() {
		t.Fatal("leap day 29/02/2024 rejected")
	}
}

func TestFindDatesTextualForms(t *testing.T) {
	cases := []struct {
		text string
		iso  string
		vote int
	}{
		{"Issued 15 March 2024", "2024-03-15", 1},
		{"Issued March 15, 2024", "2024-03-15", -1},
		{"Issued 15-Mar-2024", "2024-03-15", 1},
		{"Issued 1st January 2024", "2024-01-01", 1},
	}
	for _, tc := range cases {
		matches := findDates(tc.text)
		if len(matches) != 1 {
			t.Fatalf("findDates(%q) returned %d matches", tc.text, len(matches))
		}
		p := matches[0].parsed
		if !p.hasExact || p.exact.iso() != tc.iso {
			t.Fatalf("findDates(%q) = %+v, want %s", tc.text, p, tc.iso)
		}
		if p.orderVote != tc.vote {
			t.Fatalf("findDates(%q) vote = %d, want %d", tc.text, p.orderVote, tc.vote)
		}
	}
}

func TestFindDatesIgnoresUnknownMonths(t *testing.T) {
	if matches := findDates("see page 15 Foobar 2024"); len(matches) != 0 {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestFindDatesOrdersLeftToRight(t *testing.T) {
	matches := findDates("from 01/02/2024 until 15 March 2024")
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].start > matches[1].start {
		t.Fatal("matches out of order")
	}
	if matches[0].raw != "01/02/2024" {
		t.Fatalf("first match = %q", matches[0].raw)
	}
}

func TestResolvePrefersDayFirstWithoutEvidence(t *testing.T) {
	p := parseNumericDate("03/04/2024")
	got := p.resolve(true, false)
	if got.ISO != "2024-04-03" || !got.Ambiguous {
		t.Fatalf("got %+v", got)
	}
	got = p.resolve(false, true)
	if got.ISO != "2024-03-04" || got.Ambiguous {
		t.Fatalf("got %+v", got)
	}
}
