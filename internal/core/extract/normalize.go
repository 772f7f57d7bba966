package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Line is one normalized line of input. Index is dense over kept lines;
// SourceLine and SourceOffset point back into the original text so dropped
// blank lines stay detectable and values stay traceable.
type Line struct {
	Index        int
	Text         string
	SourceLine   int
	SourceOffset int
}

// RawDocument is the normalized view of one document. Immutable once built.
type RawDocument struct {
	Lines []Line
}

// Join rebuilds the normalized text, one kept line per row.
func (d RawDocument) Join() string {
	parts := make([]string, len(d.Lines))
	for i, ln := range d.Lines {
		parts[i] = ln.Text
	}
	return strings.Join(parts, "\n")
}

// maxInvalidUTF8Ratio is the share of undecodable bytes above which the
// input is treated as binary garbage rather than noisy OCR text.
const maxInvalidUTF8Ratio = 0.10

// sanitizeInput strips what cannot be decoded and reports whether the input
// was too damaged to extract fields from. NUL bytes mean the caller handed
// us binary content, not OCR output.
func sanitizeInput(text string) (string, bool) {
	malformed := strings.ContainsRune(text, 0)

	invalid := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		i += size
	}
	if len(text) > 0 && float64(invalid)/float64(len(text)) > maxInvalidUTF8Ratio {
		malformed = true
	}

	cleaned := strings.ToValidUTF8(text, "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")
	return cleaned, malformed
}

// Normalize splits text into lines, trims them, collapses whitespace runs,
// and drops empty lines while keeping their source positions.
func Normalize(text string) RawDocument {
	var doc RawDocument
	offset := 0
	for srcLine, raw := range strings.Split(text, "\n") {
		start := offset
		offset += len(raw) + 1
		cleaned := collapseSpaces(strings.TrimSuffix(raw, "\r"))
		if cleaned == "" {
			continue
		}
		doc.Lines = append(doc.Lines, Line{
			Index:        len(doc.Lines),
			Text:         cleaned,
			SourceLine:   srcLine,
			SourceOffset: start,
		})
	}
	return doc
}

// collapseSpaces trims the line and folds every whitespace run into a single
// space. OCR replacement characters are dropped outright.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if r == '�' {
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// repairDigitConfusions fixes letter-for-digit OCR swaps inside a token that
// already looks numeric. Free text is never touched, so vendor names keep
// their O's and l's.
func repairDigitConfusions(token string) string {
	if !mostlyNumeric(token) {
		return token
	}
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		switch r {
		case 'O', 'o':
			b.WriteRune('0')
		case 'l', 'I':
			b.WriteRune('1')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mostlyNumeric(token string) bool {
	digits, letters := 0, 0
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9', r == 'O', r == 'o', r == 'l', r == 'I':
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	return digits > 0 && digits > letters
}

// asciiLower and asciiUpper fold ASCII letters only. Byte offsets stay
// identical to the input, which keeps match spans valid on the original
// line; anchors and value patterns are ASCII anyway.
func asciiLower(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}

func asciiUpper(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'a' && c <= 'z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c - ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}
