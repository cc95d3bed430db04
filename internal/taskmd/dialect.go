package taskmd

import (
	"regexp"
	"strings"
)

// Dialect is the header convention a board document is written in.
type Dialect int

const (
	// Obsidian boards group tasks under emoji headers (## 🔴 Q1, ## 🟡 Q2, ...).
	// The older TASKS.md layout shares the same emoji table and parses as Obsidian.
	Obsidian Dialect = iota
	// Objectives boards use ## Objectives, ## Today and ## 🅿️ Parking Lot with nested sub-bullets.
	Objectives
)

func (d Dialect) String() string {
	if d == Objectives {
		return "objectives"
	}
	return "obsidian"
}

// ParseDialect maps a user-supplied format hint to a Dialect.
func ParseDialect(s string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "obsidian", "legacy":
		return Obsidian, true
	case "objectives":
		return Objectives, true
	default:
		return Obsidian, false
	}
}

var objectivesHeaderRe = regexp.MustCompile(`(?mi)^##\s+objectives\b`)

// dialectPredicates are evaluated in order; the first match decides the dialect.
var dialectPredicates = []struct {
	dialect Dialect
	match   func(string) bool
}{
	{Objectives, objectivesHeaderRe.MatchString},
}

// DetectDialect resolves the dialect of content. An ## Objectives header always
// wins over the caller's hint.
func DetectDialect(content string, hint Dialect) Dialect {
	for _, p := range dialectPredicates {
		if p.match(content) {
			return p.dialect
		}
	}
	return hint
}

// Section is a logical task bucket.
type Section string

const (
	SectionNone       Section = ""
	SectionQ1         Section = "q1"
	SectionQ2         Section = "q2"
	SectionQ3         Section = "q3"
	SectionTeam       Section = "team"
	SectionBacklog    Section = "backlog"
	SectionObjectives Section = "objectives"
	SectionToday      Section = "today"
	SectionParkingLot Section = "parking_lot"
	SectionDone       Section = "done"
)

// Sections lists every bucket in display order.
var Sections = []Section{
	SectionQ1, SectionQ2, SectionQ3, SectionTeam, SectionBacklog,
	SectionObjectives, SectionToday, SectionParkingLot, SectionDone,
}

// ParseSection accepts a bucket name such as "q1" or "parking-lot".
func ParseSection(s string) (Section, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return SectionNone, false
}

// Label is the human heading used when listing a bucket.
func (s Section) Label() string {
	switch s {
	case SectionQ1:
		return "🔴 Q1: Urgent & Important"
	case SectionQ2:
		return "🟡 Q2: Important, Not Urgent"
	case SectionQ3:
		return "🟠 Q3: Waiting / Blocked"
	case SectionTeam:
		return "👥 Team"
	case SectionBacklog:
		return "⚪ Backlog"
	case SectionObjectives:
		return "Objectives"
	case SectionToday:
		return "Today"
	case SectionParkingLot:
		return "🅿️ Parking Lot"
	case SectionDone:
		return "✅ Done"
	default:
		return "Uncategorized"
	}
}

// Priority is the urgency tag of a task.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority accepts urgent|high|medium|low (case-insensitive).
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityUrgent:
		return PriorityUrgent, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	}
	return PriorityNone, false
}

// FallbackSection is the legacy bucket a prioritized objectives task also appears in.
func (p Priority) FallbackSection() Section {
	switch p {
	case PriorityUrgent, PriorityHigh:
		return SectionQ1
	case PriorityMedium:
		return SectionQ2
	case PriorityLow:
		return SectionBacklog
	default:
		return SectionNone
	}
}

// Glyph is the Tasks-plugin emoji for p.
func (p Priority) Glyph() string {
	switch p {
	case PriorityUrgent:
		return "🔺"
	case PriorityHigh:
		return "⏫"
	case PriorityMedium:
		return "🔼"
	case PriorityLow:
		return "🔽"
	}
	return ""
}

const variationSelector = "\uFE0F"

// emojiSections is shared by obsidian and legacy boards. 👥 is only honoured on work boards.
var emojiSections = map[string]Section{
	"🔴": SectionQ1,
	"🟡": SectionQ2,
	"🟠": SectionQ3,
	"👥": SectionTeam,
	"⚪": SectionBacklog,
	"✅": SectionDone,
	"🅿": SectionParkingLot,
}

var (
	h2Re       = regexp.MustCompile(`^##\s+(\S+)(.*)$`)
	deptHeadRe = regexp.MustCompile(`^###\s+(\S+)\s+(.+?)\s*$`)
)

// headerSection classifies an ## line. ok is false when the header is not a
// section marker for the dialect, in which case the active section is kept
// (obsidian) or cleared (objectives) by the caller.
func headerSection(line string, d Dialect, personal bool) (Section, bool) {
	m := h2Re.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
	if m == nil {
		return SectionNone, false
	}
	first := strings.TrimSuffix(m[1], variationSelector)
	if d == Objectives {
		rest := strings.ToLower(strings.TrimSpace(m[1] + m[2]))
		switch {
		case strings.HasPrefix(rest, "objectives"):
			return SectionObjectives, true
		case strings.HasPrefix(rest, "today"):
			return SectionToday, true
		case strings.Contains(rest, "parking lot"):
			return SectionParkingLot, true
		case strings.HasPrefix(rest, "done") || strings.HasPrefix(rest, "✅"):
			return SectionDone, true
		}
	}
	sec, ok := emojiSections[first]
	if !ok {
		return SectionNone, false
	}
	if sec == SectionTeam && personal {
		return SectionNone, false
	}
	return sec, true
}

// ClassifyHeader reports the section an "## " line opens, if any.
func ClassifyHeader(line string, d Dialect, personal bool) (Section, bool) {
	if !strings.HasPrefix(line, "## ") {
		return SectionNone, false
	}
	return headerSection(line, d, personal)
}

// departmentHeader reports the department named by an objectives "### <emoji> <Dept>" line.
func departmentHeader(line string) (string, bool) {
	m := deptHeadRe.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
	if m == nil || !isEmojiToken(m[1]) {
		return "", false
	}
	return strings.TrimSpace(m[2]), true
}

func isEmojiToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 0x2000 {
			return false
		}
	}
	return true
}
