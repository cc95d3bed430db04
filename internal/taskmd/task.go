package taskmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Task is one checkbox line plus its continuation lines.
type Task struct {
	Title           string   `json:"title"`
	Done            bool     `json:"done"`
	Section         Section  `json:"section"`
	Due             string   `json:"due,omitempty"`
	CompletedDate   string   `json:"completed_date,omitempty"`
	Area            string   `json:"area,omitempty"`
	Owner           string   `json:"owner,omitempty"`
	Goal            string   `json:"goal,omitempty"`
	Blocks          string   `json:"blocks,omitempty"`
	Type            string   `json:"type,omitempty"`
	Recur           string   `json:"recur,omitempty"`
	Estimate        string   `json:"estimate,omitempty"`
	Depends         string   `json:"depends,omitempty"`
	Sprint          string   `json:"sprint,omitempty"`
	ID              string   `json:"id,omitempty"`
	Created         string   `json:"created,omitempty"`
	Stale           string   `json:"stale,omitempty"`
	Meeting         string   `json:"meeting,omitempty"`
	Status          string   `json:"status,omitempty"`
	Paused          string   `json:"paused,omitempty"`
	PauseUntil      string   `json:"pause_until,omitempty"`
	Department      string   `json:"department,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
	ParentObjective string   `json:"parent_objective,omitempty"`
	IsObjective     bool     `json:"is_objective"`
	Tags            []string `json:"tags,omitempty"`
	Bold            bool     `json:"-"`
	Indent          int      `json:"indent"`
	Line            int      `json:"line"`
	RawLine         string   `json:"raw_line"`

	priorityGlyph bool
}

// HasPriorityGlyph reports whether the priority came from an emoji glyph.
func (t *Task) HasPriorityGlyph() bool { return t.priorityGlyph }

// IsLabel reports whether an objectives-format line is a bare grouping label:
// no due date, no priority glyph and a single word title once tags are gone.
// Callers that act on tasks only apply it to objective lines, so one-word
// tasks elsewhere stay actionable.
func (t *Task) IsLabel() bool {
	if t.Due != "" || t.priorityGlyph {
		return false
	}
	title := StripTags(t.Title)
	if title == "" {
		return true
	}
	return strings.IndexFunc(title, unicode.IsSpace) < 0
}

// IsPaused reports whether the task is paused on day (YYYY-MM-DD).
func (t *Task) IsPaused(day string) bool {
	if t.Paused == "" && t.PauseUntil == "" {
		return false
	}
	if t.PauseUntil == "" {
		return true
	}
	return day < t.PauseUntil
}

// Identifier is the canonical id used for stable tie-breaking: the explicit
// id:: value when present, otherwise the zero-padded line number.
func (t *Task) Identifier() string {
	if t.ID != "" {
		return t.ID
	}
	return lineIdentifier(t.Line)
}

func lineIdentifier(line int) string {
	return fmt.Sprintf("line-%06d", line+1)
}

// Collection is the parse result of one board document.
type Collection struct {
	Dialect  Dialect
	Sections map[Section][]*Task
	All      []*Task
	DueToday []*Task
}

func newCollection(d Dialect) *Collection {
	return &Collection{Dialect: d, Sections: make(map[Section][]*Task, len(Sections))}
}

// In returns the tasks of one bucket.
func (c *Collection) In(s Section) []*Task {
	return c.Sections[s]
}

// Open returns every unchecked task in document order.
func (c *Collection) Open() []*Task {
	var out []*Task
	for _, t := range c.All {
		if !t.Done {
			out = append(out, t)
		}
	}
	return out
}

// Done returns every checked task.
func (c *Collection) Done() []*Task {
	return c.Sections[SectionDone]
}

// Objectives returns the top-level objectives.
func (c *Collection) Objectives() []*Task {
	var out []*Task
	for _, t := range c.All {
		if t.IsObjective {
			out = append(out, t)
		}
	}
	return out
}

// Children returns the tasks nested under objective.
func (c *Collection) Children(objective *Task) []*Task {
	var out []*Task
	for _, t := range c.All {
		if t.ParentObjective == objective.Title && t.Line > objective.Line {
			out = append(out, t)
		}
	}
	return out
}

// Department resolves a task's department through its parent objective.
func (c *Collection) Department(t *Task) string {
	if t.Department != "" {
		return t.Department
	}
	if t.ParentObjective == "" {
		return ""
	}
	for _, o := range c.All {
		if o.IsObjective && o.Title == t.ParentObjective && o.Line < t.Line {
			return o.Department
		}
	}
	return ""
}

func (c *Collection) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(Sections)+3)
	for _, s := range Sections {
		tasks := c.Sections[s]
		if tasks == nil {
			tasks = []*Task{}
		}
		out[string(s)] = tasks
	}
	all := c.All
	if all == nil {
		all = []*Task{}
	}
	dueToday := c.DueToday
	if dueToday == nil {
		dueToday = []*Task{}
	}
	out["all"] = all
	out["due_today"] = dueToday
	out["format"] = c.Dialect.String()
	return json.Marshal(out)
}
