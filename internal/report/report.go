// Package report builds the standup, end-of-day and weekly summaries from a
// board and its daily notes, as versioned JSON payloads or Markdown.
package report

import (
	"strings"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

const SchemaVersion = "v1"

// Item is the compact task view carried in summaries.
type Item struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Section    taskmd.Section  `json:"section,omitempty"`
	Due        string          `json:"due,omitempty"`
	Area       string          `json:"area,omitempty"`
	Department string          `json:"department,omitempty"`
	Priority   taskmd.Priority `json:"priority,omitempty"`
	Blocks     string          `json:"blocks,omitempty"`
	Owner      string          `json:"owner,omitempty"`
}

func itemOf(c *taskmd.Collection, t *taskmd.Task) Item {
	return Item{
		ID:         t.Identifier(),
		Title:      t.Title,
		Section:    t.Section,
		Due:        t.Due,
		Area:       t.Area,
		Department: c.Department(t),
		Priority:   t.Priority,
		Blocks:     t.Blocks,
		Owner:      t.Owner,
	}
}

func itemsOf(c *taskmd.Collection, tasks []*taskmd.Task) []Item {
	out := make([]Item, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, itemOf(c, t))
	}
	return out
}

// actionable drops paused tasks and objectives-format grouping labels.
func actionable(c *taskmd.Collection, tasks []*taskmd.Task, day string) []*taskmd.Task {
	var out []*taskmd.Task
	seen := map[*taskmd.Task]bool{}
	for _, t := range tasks {
		if t.Done || seen[t] || t.IsPaused(day) {
			continue
		}
		if c.Dialect == taskmd.Objectives && t.IsLabel() {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// areaOf groups by area::, then department, then "Uncategorized".
func areaOf(area, department string) string {
	if a := strings.TrimSpace(area); a != "" {
		return a
	}
	if d := strings.TrimSpace(department); d != "" {
		return d
	}
	return "Uncategorized"
}

func dedupeFold(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
