package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

const telegramMaxChars = 3800

func trimTelegramOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= telegramMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	limit := telegramMaxChars - len([]rune(suffix))
	if limit < 1 {
		return string(runes[:telegramMaxChars])
	}
	return string(runes[:limit]) + suffix
}

func telegramPriorityEmoji(p taskmd.Priority) string {
	switch p {
	case taskmd.PriorityUrgent, taskmd.PriorityHigh:
		return "🔴"
	case taskmd.PriorityLow:
		return "🟡"
	default:
		return ""
	}
}

func cleanTaskTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func formatDueShort(due string, today time.Time) string {
	due = strings.TrimSpace(due)
	if due == "" {
		return ""
	}
	if t, ok := taskmd.ParseDate(due); ok {
		if t.Year() == today.Year() {
			return t.Format("Jan 02")
		}
		return t.Format("Jan 02 2006")
	}
	return due
}

func telegramTaskLine(it Item, context string, includeDue bool, today time.Time) string {
	var b strings.Builder
	b.WriteString("• ")
	if pri := telegramPriorityEmoji(it.Priority); pri != "" {
		b.WriteString(pri)
		b.WriteString(" ")
	}
	b.WriteString(cleanTaskTitle(it.Title))
	context = strings.TrimSpace(context)
	if context != "" {
		b.WriteString(" — ")
		b.WriteString(context)
	}
	if includeDue {
		if due := formatDueShort(it.Due, today); due != "" {
			b.WriteString(" (due ")
			b.WriteString(due)
			b.WriteString(")")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// writeTelegramSection writes title with a count and one line per item. It
// returns false and writes nothing for an empty list.
func writeTelegramSection(b *strings.Builder, title string, items []Item, includeDue bool, today time.Time) bool {
	if len(items) == 0 {
		return false
	}
	fmt.Fprintf(b, "%s (%d)\n", title, len(items))
	for _, it := range items {
		b.WriteString(telegramTaskLine(it, it.Department, includeDue, today))
	}
	b.WriteString("\n")
	return true
}

// writeTelegramList writes at most limit plain lines; limit <= 0 means all.
func writeTelegramList(b *strings.Builder, title string, lines []string, limit int) bool {
	if len(lines) == 0 {
		return false
	}
	fmt.Fprintf(b, "%s (%d)\n", title, len(lines))
	for i, l := range lines {
		if limit > 0 && i == limit {
			fmt.Fprintf(b, "• … +%d more\n", len(lines)-limit)
			break
		}
		b.WriteString("• ")
		b.WriteString(cleanTaskTitle(l))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return true
}
