package taskmd

import (
	"strings"
)

// FormatLine renders t as a checkbox line that parses back to the same fields.
func FormatLine(t *Task) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", t.Indent))
	if t.Done {
		b.WriteString("- [x] ")
	} else {
		b.WriteString("- [ ] ")
	}
	if t.Bold {
		b.WriteString("**" + t.Title + "**")
	} else {
		b.WriteString(t.Title)
	}

	tags := append([]string(nil), t.Tags...)
	if t.Department != "" && !containsFold(tags, t.Department) {
		tags = append(tags, t.Department)
	}
	priorityTagged := false
	for _, tag := range tags {
		if p, ok := ParsePriority(tag); ok && p == t.Priority {
			priorityTagged = true
		}
	}
	for _, tag := range tags {
		b.WriteString(" #" + tag)
	}
	if t.Due != "" {
		b.WriteString(" 🗓️" + t.Due)
	}
	if t.Priority != PriorityNone && !priorityTagged {
		b.WriteString(" " + t.Priority.Glyph())
	}
	for _, f := range []struct{ key, value string }{
		{"area", t.Area},
		{"owner", t.Owner},
		{"goal", t.Goal},
		{"blocks", t.Blocks},
		{"type", t.Type},
		{"recur", t.Recur},
		{"estimate", t.Estimate},
		{"depends", t.Depends},
		{"sprint", t.Sprint},
		{"id", t.ID},
		{"created", t.Created},
		{"stale", t.Stale},
		{"meeting", t.Meeting},
		{"status", t.Status},
		{"paused", t.Paused},
		{"pause_until", t.PauseUntil},
	} {
		if f.value != "" {
			b.WriteString(" " + f.key + ":: " + f.value)
		}
	}
	if t.CompletedDate != "" {
		b.WriteString(" ✅ " + t.CompletedDate)
	}
	return b.String()
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
