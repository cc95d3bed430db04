package reconcile

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	checkboxMarkerRe = regexp.MustCompile(`^\s*[-*+]\s*\[[ xX]\]\s*`)
	listMarkerRe     = regexp.MustCompile(`^\s*[-*+]\s+`)
	timestampRe      = regexp.MustCompile(`^\d{1,2}:\d{2}\s+`)
	emojiStripRe     = regexp.MustCompile(`[📅🗓🔺⏫🔼🔽⏬✅☑\x{FE0F}]`)
	trailingParenRe  = regexp.MustCompile(`(?i)\s*\([^)]*(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|\d{4})[^)]*\)\s*$`)
	dateStripRe      = regexp.MustCompile(`(?i)\d{4}-\d{2}-\d{2}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\.?\s+\d{1,2}`)
	tagStripRe       = regexp.MustCompile(`#\w+`)
	emptyParenRe     = regexp.MustCompile(`\(\s*\)`)
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
	boldMarkerRe     = regexp.MustCompile(`\*\*`)
)

// Normalize returns the canonical lowercase form used for comparison.
func Normalize(text string) string {
	t := checkboxMarkerRe.ReplaceAllString(text, "")
	t = listMarkerRe.ReplaceAllString(t, "")
	t = strings.TrimSpace(t)
	t = timestampRe.ReplaceAllString(t, "")
	t = boldMarkerRe.ReplaceAllString(t, "")
	t = emojiStripRe.ReplaceAllString(t, "")
	t = trailingParenRe.ReplaceAllString(t, "")
	t = dateStripRe.ReplaceAllString(t, "")
	t = tagStripRe.ReplaceAllString(t, "")
	t = emptyParenRe.ReplaceAllString(t, "")
	t = multiSpaceRe.ReplaceAllString(t, " ")
	return strings.ToLower(strings.TrimSpace(t))
}

// Similarity is the longest-matching-block ratio of the normalized texts, in [0, 1].
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return ratio(na, nb)
}

func ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
