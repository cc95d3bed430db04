package taskmd

import (
	"math"
	"time"
)

// ObjectiveProgress summarises one objective and its children.
type ObjectiveProgress struct {
	Title         string   `json:"title"`
	Department    string   `json:"department,omitempty"`
	Priority      Priority `json:"priority,omitempty"`
	Done          bool     `json:"done"`
	ChildrenTotal int      `json:"children_total"`
	ChildrenDone  int      `json:"children_done"`
	CompletionPct int      `json:"completion_pct"`
	AtRisk        bool     `json:"at_risk"`
}

// SummarizeObjectives reports progress for every objective in c.
func SummarizeObjectives(c *Collection) []ObjectiveProgress {
	var out []ObjectiveProgress
	for _, o := range c.Objectives() {
		p := ObjectiveProgress{
			Title:      o.Title,
			Department: o.Department,
			Priority:   o.Priority,
			Done:       o.Done,
		}
		for _, child := range c.Children(o) {
			p.ChildrenTotal++
			if child.Done {
				p.ChildrenDone++
			}
		}
		switch {
		case o.Done:
			p.CompletionPct = 100
		case p.ChildrenTotal > 0:
			p.CompletionPct = int(math.Round(float64(p.ChildrenDone) * 100 / float64(p.ChildrenTotal)))
		}
		p.AtRisk = !o.Done && p.ChildrenDone == 0
		out = append(out, p)
	}
	return out
}

// Missed-task buckets by how long ago the due date passed.
const (
	MissedYesterday = "yesterday"
	MissedLast7     = "last7"
	MissedLast30    = "last30"
	MissedOlder     = "older"
)

// MissedBuckets groups open tasks whose due date is before today.
func MissedBuckets(c *Collection, today time.Time) map[string][]*Task {
	out := map[string][]*Task{
		MissedYesterday: {},
		MissedLast7:     {},
		MissedLast30:    {},
		MissedOlder:     {},
	}
	for _, t := range c.Open() {
		due, ok := ParseDate(t.Due)
		if !ok {
			continue
		}
		days := DaysBetween(due, today)
		switch {
		case days <= 0:
			continue
		case days == 1:
			out[MissedYesterday] = append(out[MissedYesterday], t)
		case days <= 7:
			out[MissedLast7] = append(out[MissedLast7], t)
		case days <= 30:
			out[MissedLast30] = append(out[MissedLast30], t)
		default:
			out[MissedOlder] = append(out[MissedOlder], t)
		}
	}
	return out
}

// Overdue returns open tasks due before today.
func Overdue(c *Collection, today time.Time) []*Task {
	day := FormatDate(today)
	var out []*Task
	for _, t := range c.Open() {
		if t.Due != "" && t.Due < day {
			out = append(out, t)
		}
	}
	return out
}

// DueWithin returns open tasks due on or before end.
func DueWithin(c *Collection, end time.Time) []*Task {
	day := FormatDate(end)
	var out []*Task
	for _, t := range c.Open() {
		if t.Due != "" && t.Due <= day {
			out = append(out, t)
		}
	}
	return out
}
