package taskmd

import (
	"regexp"
	"strings"
)

// Token is the raw decomposition of one checkbox line.
type Token struct {
	Indent    string
	Checked   bool
	Title     string
	Bold      bool
	Metadata  string
	Completed string
}

var (
	checkboxRe      = regexp.MustCompile(`^(\s*)- \[([ xX])\](?:\s+(.*))?$`)
	completedTailRe = regexp.MustCompile(`\s*✅\s*(\d{4}-\d{2}-\d{2})\s*$`)
	boldTitleRe     = regexp.MustCompile(`^\*\*(.+?)\*\*(.*)$`)
	fieldMarkerRe   = regexp.MustCompile(`(?:^|[\s\[])([A-Za-z_][A-Za-z0-9_]*)::`)
)

// metadataGlyphs start the trailing metadata of a plain (non-bold) title.
var metadataGlyphs = []string{"🗓", "📅", "🔺", "⏫", "🔼", "🔽", "⏬", "✅"}

// Tokenize splits a checkbox line. ok is false for any other line.
func Tokenize(line string) (Token, bool) {
	m := checkboxRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return Token{}, false
	}
	tok := Token{
		Indent:  m[1],
		Checked: m[2] != " ",
	}
	body := strings.TrimSpace(m[3])
	if cm := completedTailRe.FindStringSubmatchIndex(body); cm != nil {
		tok.Completed = body[cm[2]:cm[3]]
		body = strings.TrimSpace(body[:cm[0]])
	}
	if bm := boldTitleRe.FindStringSubmatch(body); bm != nil {
		tok.Bold = true
		tok.Title = strings.TrimSpace(bm[1])
		tok.Metadata = strings.TrimSpace(bm[2])
		return tok, true
	}
	cut := metadataStart(body)
	tok.Title = strings.TrimSpace(body[:cut])
	tok.Metadata = strings.TrimSpace(body[cut:])
	return tok, true
}

// metadataStart is the byte offset of the first metadata marker in s, or len(s).
func metadataStart(s string) int {
	cut := len(s)
	for _, g := range metadataGlyphs {
		if i := strings.Index(s, g); i >= 0 && i < cut {
			cut = i
		}
	}
	if loc := fieldMarkerRe.FindStringIndex(s); loc != nil && loc[0] < cut {
		cut = loc[0]
	}
	return cut
}

// IndentWidth counts leading whitespace with tabs as four columns.
func IndentWidth(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
