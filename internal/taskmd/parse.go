package taskmd

import (
	"strings"
	"time"
)

// Options controls one parse.
type Options struct {
	// Hint is used unless the content itself decides the dialect.
	Hint Dialect
	// Personal boards have no 👥 team section.
	Personal bool
	// Today is the reference date for due_today. Zero means the current UTC date.
	Today time.Time
}

// Parse builds a Collection from board content. It never fails: lines that are
// not recognised are skipped.
func Parse(content string, opts Options) *Collection {
	dialect := DetectDialect(content, opts.Hint)
	today := opts.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}
	todayStr := FormatDate(today)

	c := newCollection(dialect)
	section := SectionNone
	department := ""
	objective := ""
	var last *Task

	for i, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			if sec, ok := headerSection(line, dialect, opts.Personal); ok {
				section = sec
			} else if dialect == Objectives {
				section = SectionNone
			}
			department = ""
			objective = ""
			last = nil
			continue
		case strings.HasPrefix(line, "### "):
			department = ""
			if dialect == Objectives {
				if dept, ok := departmentHeader(line); ok {
					department = dept
				}
			}
			last = nil
			continue
		}

		tok, ok := Tokenize(line)
		if !ok {
			if last != nil && strings.TrimSpace(line) != "" && IndentWidth(line) > last.Indent {
				applyContinuation(last, line, today)
				continue
			}
			last = nil
			continue
		}

		t := buildTask(tok, dialect)
		t.Line = i
		t.RawLine = line
		t.Section = section
		if dialect == Objectives {
			if t.Department == "" && department != "" {
				t.Department = department
			}
			if section == SectionObjectives {
				if t.Indent == 0 {
					t.IsObjective = true
					objective = t.Title
				} else if objective != "" {
					t.ParentObjective = objective
				}
			}
		}
		c.add(t)
		last = t
	}
	for _, t := range c.All {
		if !t.Done && t.Due == todayStr {
			c.DueToday = append(c.DueToday, t)
		}
	}
	return c
}

func (c *Collection) add(t *Task) {
	c.All = append(c.All, t)
	if t.Done {
		c.Sections[SectionDone] = append(c.Sections[SectionDone], t)
		return
	}
	if t.Section != SectionNone {
		c.Sections[t.Section] = append(c.Sections[t.Section], t)
	}
	if c.Dialect == Objectives && !t.IsLabel() {
		if fb := t.Priority.FallbackSection(); fb != SectionNone && fb != t.Section {
			c.Sections[fb] = append(c.Sections[fb], t)
		}
	}
}

// ParseLine builds a Task from a single line outside any document context.
func ParseLine(line string, d Dialect) (*Task, bool) {
	tok, ok := Tokenize(line)
	if !ok {
		return nil, false
	}
	t := buildTask(tok, d)
	t.RawLine = line
	return t, true
}

func buildTask(tok Token, d Dialect) *Task {
	t := &Task{
		Done:          tok.Checked,
		Bold:          tok.Bold,
		CompletedDate: tok.Completed,
		Indent:        IndentWidth(tok.Indent),
	}
	title := tok.Title
	t.Tags = append(Tags(title), Tags(tok.Metadata)...)
	if !tok.Bold {
		title = StripTags(title)
	}
	t.Title = title

	fields := ParseFields(tok.Metadata)
	t.Due = DueFromMetadata(tok.Metadata, fields)
	t.Area = fields["area"]
	t.Owner = fields["owner"]
	t.Goal = fields["goal"]
	t.Blocks = fields["blocks"]
	t.Type = fields["type"]
	t.Recur = fields["recur"]
	t.Estimate = fields["estimate"]
	t.Depends = fields["depends"]
	t.Sprint = fields["sprint"]
	t.ID = fields["id"]
	if t.ID == "" {
		t.ID = fields["task_id"]
	}
	t.Created = fields["created"]
	t.Stale = fields["stale"]
	t.Meeting = fields["meeting"]
	t.Status = fields["status"]
	t.Paused = fields["paused"]
	t.PauseUntil = fields["pause_until"]
	if t.CompletedDate == "" {
		if d, ok := ParseDate(fields["completed"]); ok {
			t.CompletedDate = FormatDate(d)
		}
	}

	if p := GlyphPriority(tok.Metadata); p != PriorityNone {
		t.Priority = p
		t.priorityGlyph = true
	}
	if d == Objectives {
		t.Department = DepartmentTag(t.Tags)
		if t.Priority == PriorityNone {
			t.Priority = PriorityTag(t.Tags)
		}
	}
	return t
}

// applyContinuation fills fields from a legacy "Due:/Owner:/Blocks:" line
// without overriding inline values.
func applyContinuation(t *Task, line string, today time.Time) {
	key, value, ok := legacyContinuation(line)
	if !ok {
		return
	}
	switch key {
	case "due":
		if t.Due == "" {
			if d, ok := ParseLooseDate(value, today); ok {
				t.Due = FormatDate(d)
			}
		}
	case "owner":
		if t.Owner == "" {
			t.Owner = value
		}
	case "blocks":
		if t.Blocks == "" {
			t.Blocks = value
		}
	case "completed":
		if t.CompletedDate == "" {
			if d, ok := ParseDate(value); ok {
				t.CompletedDate = FormatDate(d)
			}
		}
	}
}
