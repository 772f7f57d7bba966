package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

// candidate is one tentative field match. Only the typed slot matching the
// field's class is meaningful. Candidates live for a single extraction call
// and never leave the package.
type candidate struct {
	field      domain.FieldKind
	raw        string
	patternID  string
	priority   int
	anchorLine int
	valueLine  int
	span       [2]int

	text     string
	date     parsedDate
	amount   int64
	currency domain.Currency
}

func (c candidate) provenance() domain.Provenance {
	return domain.Provenance{AnchorLine: c.anchorLine, PatternID: c.patternID}
}

type anchorHit struct {
	pattern    *labelPattern
	line       int
	start, end int
}

// findAnchorHits scans every line for label anchors. Overlapping hits keep
// the longest anchor, so "subtotal" never doubles as a "total" label and
// "due date" shadows the bare "date" anchor.
func (c catalog) findAnchorHits(doc RawDocument) []anchorHit {
	var hits []anchorHit
	for _, ln := range doc.Lines {
		lower := asciiLower(ln.Text)
		var lineHits []anchorHit
		for pi := range c.patterns {
			p := &c.patterns[pi]
			for _, anchor := range p.anchors {
				from := 0
				for {
					rel := strings.Index(lower[from:], anchor)
					if rel < 0 {
						break
					}
					start := from + rel
					end := start + len(anchor)
					from = start + 1
					if !anchorBoundaryOK(lower, start, end) {
						continue
					}
					lineHits = append(lineHits, anchorHit{pattern: p, line: ln.Index, start: start, end: end})
				}
			}
		}
		hits = append(hits, resolveOverlaps(lineHits)...)
	}
	return hits
}

// anchorBoundaryOK requires the anchor to sit on word boundaries: no letter
// or digit before it, no letter running into it after.
func anchorBoundaryOK(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// resolveOverlaps keeps the longest anchor at each position of one line.
func resolveOverlaps(hits []anchorHit) []anchorHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		li, lj := hits[i].end-hits[i].start, hits[j].end-hits[j].start
		if li != lj {
			return li > lj
		}
		return hits[i].pattern.priority > hits[j].pattern.priority
	})
	kept := hits[:0]
	for _, h := range hits {
		overlaps := false
		for _, k := range kept {
			if h.start < k.end && k.start < h.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, h)
		}
	}
	return kept
}

// boundaryLines marks lines holding at least one boundary label. Value
// lookahead stops there so one field's search never swallows another
// field's labeled line.
func boundaryLines(hits []anchorHit) map[int]bool {
	lines := make(map[int]bool)
	for _, h := range hits {
		if h.pattern.labelBoundary {
			lines[h.line] = true
		}
	}
	return lines
}

// anchoredCandidates runs the anchored-label locator for every hit,
// dispatching on the pattern's value class.
func anchoredCandidates(doc RawDocument, hits []anchorHit, boundary map[int]bool, opts Options) []candidate {
	var out []candidate
	for _, h := range hits {
		switch h.pattern.value {
		case valueIdentifier:
			out = append(out, identifierValue(doc, h, boundary, opts)...)
		case valueDate:
			out = append(out, dateValue(doc, h, boundary, opts)...)
		case valueAmount:
			out = append(out, amountValue(doc, h, boundary)...)
		case valueCurrency:
			out = append(out, currencyValue(doc, h, boundary, opts)...)
		case valueBlock:
			out = append(out, blockValue(doc, h, hits, opts)...)
		}
	}
	return out
}

// searchText yields the region to scan for a value at the given lookahead
// offset: the remainder of the anchor line at offset zero, whole lines
// after that. ok is false once the search should stop.
func searchText(doc RawDocument, h anchorHit, boundary map[int]bool, off int) (text string, base, line int, ok bool) {
	line = h.line + off
	if line >= len(doc.Lines) {
		return "", 0, 0, false
	}
	if off > 0 && boundary[line] {
		return "", 0, 0, false
	}
	text = doc.Lines[line].Text
	if off == 0 {
		base = h.end
		text = text[h.end:]
	}
	return text, base, line, true
}

func identifierValue(doc RawDocument, h anchorHit, boundary map[int]bool, opts Options) []candidate {
	lookahead := opts.ValueLookahead
	if h.pattern.sameLineOnly {
		lookahead = 0
	}
	for off := 0; off <= lookahead; off++ {
		text, base, line, ok := searchText(doc, h, boundary, off)
		if !ok {
			break
		}
		upper := asciiUpper(text)
		for _, loc := range identifierRE.FindAllStringIndex(upper, -1) {
			token := upper[loc[0]:loc[1]]
			if !validIdentifier(token) {
				continue
			}
			return []candidate{{
				field:      h.pattern.field,
				raw:        text[loc[0]:loc[1]],
				text:       token,
				patternID:  h.pattern.id,
				priority:   h.pattern.priority,
				anchorLine: h.line,
				valueLine:  line,
				span:       [2]int{base + loc[0], base + loc[1]},
			}}
		}
	}
	return nil
}

// validIdentifier rejects tokens that cannot plausibly be an invoice
// number: no digit and no dash, or a bare one/two digit number.
func validIdentifier(token string) bool {
	hasDigit := strings.ContainsAny(token, "0123456789")
	hasDash := strings.Contains(token, "-")
	if !hasDigit && !hasDash {
		return false
	}
	if !hasDash && len(token) <= 2 {
		return false
	}
	return true
}

func dateValue(doc RawDocument, h anchorHit, boundary map[int]bool, opts Options) []candidate {
	for off := 0; off <= opts.ValueLookahead; off++ {
		text, base, line, ok := searchText(doc, h, boundary, off)
		if !ok {
			break
		}
		matches := findDates(text)
		if len(matches) == 0 {
			continue
		}
		m := matches[0]
		return []candidate{{
			field:      h.pattern.field,
			raw:        m.raw,
			date:       m.parsed,
			patternID:  h.pattern.id,
			priority:   h.pattern.priority,
			anchorLine: h.line,
			valueLine:  line,
			span:       [2]int{base + m.start, base + m.end},
		}}
	}
	return nil
}

// amountValue searches the anchor line remainder and the next line only,
// preferring the rightmost parseable token since invoice amounts sit at the
// line end. The token's adjacent symbol, or failing that any symbol or code
// on the value line, becomes the amount's currency evidence.
func amountValue(doc RawDocument, h anchorHit, boundary map[int]bool) []candidate {
	for off := 0; off <= 1; off++ {
		text, base, line, ok := searchText(doc, h, boundary, off)
		if !ok {
			break
		}
		var best candidate
		found := false
		for _, loc := range amountTokenRE.FindAllStringIndex(text, -1) {
			token := text[loc[0]:loc[1]]
			units, symbol, ok := parseAmountToken(token)
			if !ok {
				continue
			}
			best = candidate{
				field:      h.pattern.field,
				raw:        token,
				amount:     units,
				currency:   symbol,
				patternID:  h.pattern.id,
				priority:   h.pattern.priority,
				anchorLine: h.line,
				valueLine:  line,
				span:       [2]int{base + loc[0], base + loc[1]},
			}
			found = true
		}
		if found {
			if best.currency == domain.CurrencyUnknown {
				best.currency = lineCurrency(doc.Lines[line].Text)
			}
			return []candidate{best}
		}
	}
	return nil
}

func currencyValue(doc RawDocument, h anchorHit, boundary map[int]bool, opts Options) []candidate {
	for off := 0; off <= opts.ValueLookahead; off++ {
		text, base, line, ok := searchText(doc, h, boundary, off)
		if !ok {
			break
		}
		symIdx, symCur := findSymbol(text)
		codeLoc := currencyCodeRE.FindStringIndex(text)
		cand := candidate{
			field:      h.pattern.field,
			patternID:  h.pattern.id,
			priority:   h.pattern.priority,
			anchorLine: h.line,
			valueLine:  line,
		}
		switch {
		case symIdx >= 0 && (codeLoc == nil || symIdx < codeLoc[0]):
			_, size := utf8.DecodeRuneInString(text[symIdx:])
			cand.raw = text[symIdx : symIdx+size]
			cand.currency = symCur
			cand.span = [2]int{base + symIdx, base + symIdx + size}
			return []candidate{cand}
		case codeLoc != nil:
			cur, _ := domain.ParseCurrency(strings.ToUpper(text[codeLoc[0]:codeLoc[1]]))
			cand.raw = text[codeLoc[0]:codeLoc[1]]
			cand.currency = cur
			cand.span = [2]int{base + codeLoc[0], base + codeLoc[1]}
			return []candidate{cand}
		}
	}
	return nil
}

// blockValue assembles the bill-to block: the anchor line remainder plus
// following lines until a blank gap in the source, another labeled line, or
// the block cap.
func blockValue(doc RawDocument, h anchorHit, hits []anchorHit, opts Options) []candidate {
	boundary := make(map[int]bool)
	for _, other := range hits {
		if other.pattern.labelBoundary && !(other.line == h.line && other.start == h.start) {
			boundary[other.line] = true
		}
	}

	var parts []string
	if rest := strings.TrimSpace(strings.TrimLeft(doc.Lines[h.line].Text[h.end:], " :-")); rest != "" {
		parts = append(parts, rest)
	}
	prevSource := doc.Lines[h.line].SourceLine
	for li, taken := h.line+1, 0; li < len(doc.Lines) && taken < opts.BillToMaxLines; li++ {
		ln := doc.Lines[li]
		if ln.SourceLine > prevSource+1 || boundary[li] {
			break
		}
		parts = append(parts, ln.Text)
		prevSource = ln.SourceLine
		taken++
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return []candidate{{
		field:      h.pattern.field,
		raw:        joined,
		text:       joined,
		patternID:  h.pattern.id,
		priority:   h.pattern.priority,
		anchorLine: h.line,
		valueLine:  h.line,
		span:       [2]int{h.start, h.end},
	}}
}

// vendorCandidates infers the vendor block: contiguous header lines before
// the first labeled anchor, capped to the top of the document. The first
// line is the name, the rest join into the address. Title lines naming the
// document type are skipped.
func vendorCandidates(doc RawDocument, hits []anchorHit, opts Options) []candidate {
	firstBoundary := len(doc.Lines)
	for _, h := range hits {
		if h.pattern.labelBoundary && h.line < firstBoundary {
			firstBoundary = h.line
		}
	}
	limit := min(firstBoundary, opts.VendorWindow, len(doc.Lines))

	var block []Line
	for _, ln := range doc.Lines[:limit] {
		if strings.Contains(asciiLower(ln.Text), "invoice") {
			continue
		}
		block = append(block, ln)
		if len(block) == opts.VendorMaxLines {
			break
		}
	}
	if len(block) == 0 {
		return nil
	}

	out := []candidate{{
		field:      domain.FieldVendorName,
		raw:        block[0].Text,
		text:       block[0].Text,
		patternID:  "vendor.block",
		priority:   priorityBlock,
		anchorLine: block[0].Index,
		valueLine:  block[0].Index,
		span:       [2]int{0, len(block[0].Text)},
	}}
	if len(block) > 1 {
		lines := make([]string, len(block)-1)
		for i, ln := range block[1:] {
			lines[i] = ln.Text
		}
		address := strings.Join(lines, ", ")
		out = append(out, candidate{
			field:      domain.FieldVendorAddress,
			raw:        address,
			text:       address,
			patternID:  "vendor.block",
			priority:   priorityBlock,
			anchorLine: block[1].Index,
			valueLine:  block[1].Index,
			span:       [2]int{0, len(block[1].Text)},
		})
	}
	return out
}

// bareNumberCandidates finds free-standing invoice-number-shaped tokens
// anywhere in the document as a low-priority fallback.
func bareNumberCandidates(doc RawDocument) []candidate {
	var out []candidate
	for _, ln := range doc.Lines {
		upper := asciiUpper(ln.Text)
		for _, loc := range bareInvoiceNumberRE.FindAllStringIndex(upper, -1) {
			out = append(out, candidate{
				field:      domain.FieldInvoiceNumber,
				raw:        ln.Text[loc[0]:loc[1]],
				text:       upper[loc[0]:loc[1]],
				patternID:  "invoice_number.bare",
				priority:   priorityBareFormat,
				anchorLine: ln.Index,
				valueLine:  ln.Index,
				span:       [2]int{loc[0], loc[1]},
			})
		}
	}
	return out
}

// currencyCandidates records every symbol and ISO code mention as its own
// candidate. Symbols outrank codes; the disambiguator settles the rest.
func currencyCandidates(doc RawDocument) []candidate {
	var out []candidate
	for _, ln := range doc.Lines {
		for i, r := range ln.Text {
			cur := symbolCurrency(r)
			if cur == domain.CurrencyUnknown {
				continue
			}
			out = append(out, candidate{
				field:      domain.FieldCurrency,
				raw:        string(r),
				currency:   cur,
				patternID:  "currency.symbol",
				priority:   prioritySymbol,
				anchorLine: ln.Index,
				valueLine:  ln.Index,
				span:       [2]int{i, i + utf8.RuneLen(r)},
			})
		}
		for _, loc := range currencyCodeRE.FindAllStringIndex(ln.Text, -1) {
			cur, ok := domain.ParseCurrency(strings.ToUpper(ln.Text[loc[0]:loc[1]]))
			if !ok {
				continue
			}
			out = append(out, candidate{
				field:      domain.FieldCurrency,
				raw:        ln.Text[loc[0]:loc[1]],
				currency:   cur,
				patternID:  "currency.code",
				priority:   priorityCode,
				anchorLine: ln.Index,
				valueLine:  ln.Index,
				span:       [2]int{loc[0], loc[1]},
			})
		}
	}
	return out
}

// unanchoredDateCandidates picks up dates with no label: the first becomes
// an invoice date candidate, later ones due date candidates, all at low
// priority. Spans already claimed by anchored date candidates are skipped.
func unanchoredDateCandidates(doc RawDocument, claimed map[int][][2]int) []candidate {
	var out []candidate
	seen := 0
	for _, ln := range doc.Lines {
		for _, m := range findDates(ln.Text) {
			if spanClaimed(claimed[ln.Index], m.start, m.end) {
				continue
			}
			field := domain.FieldInvoiceDate
			if seen > 0 {
				field = domain.FieldDueDate
			}
			seen++
			out = append(out, candidate{
				field:      field,
				raw:        m.raw,
				date:       m.parsed,
				patternID:  "date.unanchored",
				priority:   priorityUnanchored,
				anchorLine: ln.Index,
				valueLine:  ln.Index,
				span:       [2]int{m.start, m.end},
			})
		}
	}
	return out
}

func spanClaimed(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start < c[1] && c[0] < end {
			return true
		}
	}
	return false
}
