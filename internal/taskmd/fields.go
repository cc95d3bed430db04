package taskmd

import (
	"regexp"
	"strings"
)

var (
	dueGlyphRe = regexp.MustCompile(`(?:🗓\x{FE0F}?|📅)\s*(\d{4}-\d{2}-\d{2})`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][\w/-]*)`)
	legacyRe   = regexp.MustCompile(`(?i)^\s+(?:[-*]\s+)?(due|owner|blocks|completed):\s*(.+?)\s*$`)
)

// tokenFields hold a single whitespace-free value; the rest are free text.
var tokenFields = map[string]bool{
	"id": true, "task_id": true, "created": true, "stale": true, "meeting": true,
	"status": true, "paused": true, "pause_until": true, "due": true,
	"delegated": true, "followup": true, "completed": true, "goal": true,
}

// ParseFields extracts key:: value annotations from metadata. Keys are lowercased.
func ParseFields(meta string) map[string]string {
	locs := fieldMarkerRe.FindAllStringSubmatchIndex(meta, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make(map[string]string, len(locs))
	for i, loc := range locs {
		key := strings.ToLower(meta[loc[2]:loc[3]])
		end := len(meta)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := fieldValue(key, meta[loc[1]:end])
		if value == "" {
			continue
		}
		if _, seen := out[key]; !seen {
			out[key] = value
		}
	}
	return out
}

func fieldValue(key, raw string) string {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, "[[") {
		if i := strings.Index(v, "]]"); i >= 0 {
			return v[:i+2]
		}
	}
	if tokenFields[key] {
		if i := strings.IndexAny(v, " \t"); i >= 0 {
			v = v[:i]
		}
		return strings.TrimRight(v, "],;")
	}
	if cut := glyphIndex(v); cut >= 0 {
		v = v[:cut]
	}
	if loc := tagRe.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	return strings.TrimRight(strings.TrimSpace(v), "]")
}

func glyphIndex(s string) int {
	cut := -1
	for _, g := range metadataGlyphs {
		if i := strings.Index(s, g); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	return cut
}

// DueFromMetadata returns the emoji-coded due date, falling back to due::.
func DueFromMetadata(meta string, fields map[string]string) string {
	if m := dueGlyphRe.FindStringSubmatch(meta); m != nil {
		return m[1]
	}
	if d, ok := ParseDate(fields["due"]); ok {
		return FormatDate(d)
	}
	return ""
}

// GlyphPriority returns the priority signalled by an emoji glyph.
func GlyphPriority(meta string) Priority {
	switch {
	case strings.Contains(meta, "🔺"):
		return PriorityUrgent
	case strings.Contains(meta, "⏫"):
		return PriorityHigh
	case strings.Contains(meta, "🔼"):
		return PriorityMedium
	case strings.Contains(meta, "🔽"), strings.Contains(meta, "⏬"):
		return PriorityLow
	}
	return PriorityNone
}

// Tags returns #tags in s without the hash, in order of appearance.
func Tags(s string) []string {
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// StripTags removes #tag tokens and collapses the remaining spaces.
func StripTags(s string) string {
	return strings.Join(strings.Fields(tagRe.ReplaceAllString(s, " ")), " ")
}

// DepartmentTag is the first capitalised tag that is not a priority.
func DepartmentTag(tags []string) string {
	for _, t := range tags {
		if _, ok := ParsePriority(t); ok {
			continue
		}
		if t[0] >= 'A' && t[0] <= 'Z' {
			return t
		}
	}
	return ""
}

// PriorityTag is the first #urgent/#high/#medium/#low tag.
func PriorityTag(tags []string) Priority {
	for _, t := range tags {
		if p, ok := ParsePriority(t); ok && strings.ToLower(t) == t {
			return p
		}
	}
	return PriorityNone
}

// legacyContinuation parses an indented "Due: x" style line.
func legacyContinuation(line string) (key, value string, ok bool) {
	m := legacyRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), m[2], true
}
