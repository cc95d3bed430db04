package store

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

func newULID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(randReader{}, 0))
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", now.UnixNano())
	}
	return strings.ToUpper(id.String())
}

// SelectTask returns the only candidate identified by query: an exact id::
// value, otherwise a case-insensitive title substring. When several titles
// contain query, a single exact title match still wins.
func SelectTask(candidates []*taskmd.Task, query string) (*taskmd.Task, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalid)
	}
	for _, t := range candidates {
		if t.ID != "" && strings.EqualFold(t.ID, q) {
			return t, nil
		}
	}
	ql := strings.ToLower(q)
	var hits, exact []*taskmd.Task
	for _, t := range candidates {
		if !strings.Contains(strings.ToLower(t.Title), ql) {
			continue
		}
		hits = append(hits, t)
		if strings.EqualFold(strings.TrimSpace(t.Title), q) {
			exact = append(exact, t)
		}
	}
	switch {
	case len(hits) == 0:
		return nil, fmt.Errorf("%w: no open task matches %q", ErrNotFound, query)
	case len(hits) == 1:
		return hits[0], nil
	case len(exact) == 1:
		return exact[0], nil
	}
	return nil, &MatchConflictError{Reason: fmt.Sprintf("%d tasks match %q", len(hits), query), Matches: hits}
}

func openCandidates(c *taskmd.Collection) []*taskmd.Task {
	var out []*taskmd.Task
	for _, t := range c.Open() {
		if t.IsObjective && t.IsLabel() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ListFilter narrows ListTasks.
type ListFilter struct {
	Section        taskmd.Section
	Due            string // today|this-week|overdue
	Owner          string
	CompletedSince string // 24h|7d|30d|YYYY-MM-DD
}

// SectionTasks is one bucket of a listing.
type SectionTasks struct {
	Section taskmd.Section `json:"section"`
	Label   string         `json:"label"`
	Tasks   []*taskmd.Task `json:"tasks"`
}

// ListTasks groups the board's tasks by section in display order. Done tasks
// are only listed for --section done or --completed-since.
func (w *Workspace) ListTasks(b *Board, f ListFilter) ([]SectionTasks, error) {
	today := w.Today()
	var cutoff string
	if f.CompletedSince != "" {
		c, err := completedCutoff(f.CompletedSince, today)
		if err != nil {
			return nil, err
		}
		cutoff = c
	}
	switch f.Due {
	case "", "today", "this-week", "overdue":
	default:
		return nil, fmt.Errorf("%w: --due must be today, this-week or overdue", ErrInvalid)
	}

	sections := taskmd.Sections
	if f.Section != taskmd.SectionNone {
		sections = []taskmd.Section{f.Section}
	} else if cutoff != "" {
		sections = []taskmd.Section{taskmd.SectionDone}
	}

	var out []SectionTasks
	for _, sec := range sections {
		if sec == taskmd.SectionDone && f.Section != taskmd.SectionDone && cutoff == "" {
			continue
		}
		var tasks []*taskmd.Task
		for _, t := range b.Tasks.In(sec) {
			if t.IsObjective && !t.Done && t.IsLabel() {
				continue
			}
			if !matchDue(t, f.Due, today) {
				continue
			}
			if f.Owner != "" && !strings.EqualFold(t.Owner, f.Owner) {
				continue
			}
			if cutoff != "" && (t.CompletedDate == "" || t.CompletedDate < cutoff) {
				continue
			}
			tasks = append(tasks, t)
		}
		if len(tasks) > 0 {
			out = append(out, SectionTasks{Section: sec, Label: sec.Label(), Tasks: tasks})
		}
	}
	return out, nil
}

func completedCutoff(s string, today time.Time) (string, error) {
	switch s {
	case "24h":
		return taskmd.FormatDate(today.AddDate(0, 0, -1)), nil
	case "7d":
		return taskmd.FormatDate(today.AddDate(0, 0, -7)), nil
	case "30d":
		return taskmd.FormatDate(today.AddDate(0, 0, -30)), nil
	}
	d, ok := taskmd.ParseDate(s)
	if !ok {
		return "", fmt.Errorf("%w: invalid date format %q", ErrInvalid, s)
	}
	return taskmd.FormatDate(d), nil
}

func matchDue(t *taskmd.Task, mode string, today time.Time) bool {
	if mode == "" {
		return true
	}
	due, ok := taskmd.ParseDate(t.Due)
	if !ok {
		return false
	}
	switch mode {
	case "today":
		return !due.After(today)
	case "this-week":
		return !due.After(taskmd.WeekStart(today).AddDate(0, 0, 6))
	case "overdue":
		return due.Before(today)
	}
	return true
}

// AddTaskInput describes a new board task.
type AddTaskInput struct {
	Personal   bool
	Title      string
	Priority   string
	Due        string
	Owner      string
	Area       string
	Blocks     string
	Department string
	WithID     bool
}

// AddResult reports where the task landed.
type AddResult struct {
	Task    *taskmd.Task   `json:"task"`
	Section taskmd.Section `json:"section"`
	File    string         `json:"file"`
	Line    string         `json:"line"`
}

// AddTask inserts a task at the end of its section. Obsidian boards place it
// by priority (high under 🔴 Q1, medium under 🟡 Q2, low under ⚪ Backlog);
// objectives boards append it to ## Objectives with #Dept #priority tags.
// A missing section header is created at the end of the file.
func (w *Workspace) AddTask(in AddTaskInput) (*AddResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	prio := taskmd.PriorityMedium
	if in.Priority != "" {
		p, ok := taskmd.ParsePriority(in.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, in.Priority)
		}
		prio = p
	}
	if in.Due != "" {
		if _, ok := taskmd.ParseDate(in.Due); !ok {
			return nil, fmt.Errorf("%w: due must be YYYY-MM-DD, got %q", ErrInvalid, in.Due)
		}
	}

	b, err := w.LoadBoard(in.Personal)
	if err != nil {
		return nil, err
	}

	t := &taskmd.Task{
		Title:  title,
		Due:    in.Due,
		Area:   strings.TrimSpace(in.Area),
		Owner:  strings.TrimSpace(in.Owner),
		Blocks: strings.TrimSpace(in.Blocks),
	}
	if in.WithID {
		t.ID = newULID(w.now())
	}

	var sec taskmd.Section
	if b.Tasks.Dialect == taskmd.Objectives {
		sec = taskmd.SectionObjectives
		if dept := strings.TrimPrefix(strings.TrimSpace(in.Department), "#"); dept != "" {
			t.Tags = append(t.Tags, dept)
		}
		t.Tags = append(t.Tags, string(prio))
		t.Priority = prio
	} else {
		t.Bold = true
		sec = prio.FallbackSection()
		if t.Owner == "" {
			t.Owner = w.cfg.DefaultOwner
		}
		if in.Department != "" {
			t.Tags = append(t.Tags, strings.TrimPrefix(in.Department, "#"))
		}
	}
	line := taskmd.FormatLine(t)

	lines := taskmd.Lines(b.Content)
	idx := w.sectionHeader(lines, b, sec)
	if idx >= 0 {
		lines = taskmd.AppendToSection(lines, idx, []string{line})
	} else {
		lines = taskmd.AppendSection(lines, "## "+sec.Label(), []string{line})
	}
	if err := w.saveBoard(b, taskmd.Join(lines), "add"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "add", "file": b.Path, "task": title, "section": sec}).Info("task added")

	added, _ := taskmd.ParseLine(line, b.Tasks.Dialect)
	added.Section = sec
	return &AddResult{Task: added, Section: sec, File: b.Path, Line: line}, nil
}

func (w *Workspace) sectionHeader(lines []string, b *Board, sec taskmd.Section) int {
	return taskmd.FindHeader(lines, func(l string) bool {
		got, ok := taskmd.ClassifyHeader(l, b.Tasks.Dialect, b.Personal)
		return ok && got == sec
	})
}

// CompleteResult reports a completion.
type CompleteResult struct {
	Task          *taskmd.Task `json:"task"`
	CompletedDate string       `json:"completed_date"`
	Recurring     bool         `json:"recurring"`
	NextDue       string       `json:"next_due,omitempty"`
	LogFile       string       `json:"log_file"`
}

// CompleteTask completes the single open task matching query. The completion
// is logged to the daily note first; if that fails the board is left alone.
// A recurring task stays on the board with its due date advanced, any other
// task is removed together with its children.
func (w *Workspace) CompleteTask(personal bool, query string) (*CompleteResult, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	t, err := SelectTask(openCandidates(b.Tasks), query)
	if err != nil {
		w.log.WithFields(logrus.Fields{"op": "done", "query": query}).WithError(err).Debug("no unique match")
		return nil, err
	}
	today := w.Today()
	res := &CompleteResult{Task: t, CompletedDate: taskmd.FormatDate(today)}

	var updated string
	if t.Recur != "" {
		next, err := taskmd.NextDue(t, today)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		res.Recurring = true
		res.NextDue = next
		updated, _ = taskmd.ReplaceLine(b.Content, t, taskmd.SetDue(t.RawLine, next))
	} else {
		var ok bool
		updated, ok = taskmd.RemoveTask(b.Content, t)
		if !ok {
			return nil, fmt.Errorf("%w: task line moved while completing %q", ErrConflict, t.Title)
		}
	}

	ctx := map[string]any{"section": string(t.Section)}
	for k, v := range map[string]string{"area": t.Area, "due": t.Due, "recur": t.Recur, "task_id": t.ID} {
		if v != "" {
			ctx[k] = v
		}
	}
	logFile, err := w.LogDone(DoneEntry{Summary: t.Title, Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("log completion (board unchanged): %w", err)
	}
	res.LogFile = logFile

	if err := w.saveBoard(b, updated, "done"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "done", "file": b.Path, "task": t.Title, "recurring": res.Recurring}).Info("task completed")
	return res, nil
}

// Blockers returns open tasks that block someone, optionally only person.
func Blockers(b *Board, person string) []*taskmd.Task {
	var out []*taskmd.Task
	for _, t := range b.Tasks.Open() {
		if t.Blocks == "" {
			continue
		}
		if person != "" && !strings.Contains(strings.ToLower(t.Blocks), strings.ToLower(person)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// RewriteTasks replaces the line of every task for which edit returns a new
// line, in a single write. It returns the number of lines changed.
func (w *Workspace) RewriteTasks(personal bool, op string, edit func(t *taskmd.Task) (string, bool)) (int, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return 0, err
	}
	lines := taskmd.Lines(b.Content)
	changed := 0
	for _, t := range b.Tasks.All {
		next, ok := edit(t)
		if !ok || t.Line >= len(lines) || lines[t.Line] == next {
			continue
		}
		lines[t.Line] = next
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := w.saveBoard(b, taskmd.Join(lines), op); err != nil {
		return 0, err
	}
	w.log.WithFields(logrus.Fields{"op": op, "file": b.Path, "changed": changed}).Info("tasks rewritten")
	return changed, nil
}
