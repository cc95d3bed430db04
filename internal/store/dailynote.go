package store

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/reconcile"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

//go:embed templates/daily.md
var dailyNoteTemplate string

var dailyNoteTmpl = template.Must(template.New("daily").Parse(dailyNoteTemplate))

// DailyNoteData fills the daily note template.
type DailyNoteData struct {
	Date    string
	Events  []string
	Top     []string
	Carried []string
}

func renderDailyNote(d DailyNoteData) (string, error) {
	var b strings.Builder
	if err := dailyNoteTmpl.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DailyNoteOptions configure CreateDailyNote.
type DailyNoteOptions struct {
	Date     time.Time
	DryRun   bool
	Personal bool
	// Events are preformatted calendar lines, see calendar.Event.Line.
	Events []string
}

type DailyNoteResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Exists  bool   `json:"exists"`
	Content string `json:"content,omitempty"`
}

// PreviousWorkday is the day before d, or Friday when d is a Monday.
func PreviousWorkday(d time.Time) time.Time {
	if d.Weekday() == time.Monday {
		return d.AddDate(0, 0, -3)
	}
	return d.AddDate(0, 0, -1)
}

// CreateDailyNote writes YYYY-MM-DD.md from the embedded template. Open
// priority work from the board comes first, then items still open in the
// previous workday's note; the first three become the Top 3. An existing note
// is never overwritten.
func (w *Workspace) CreateDailyNote(opts DailyNoteOptions) (*DailyNoteResult, error) {
	day := opts.Date
	if day.IsZero() {
		day = w.Today()
	}
	day = taskmd.Day(day)
	path := w.NotePath(day)
	res := &DailyNoteResult{Path: path}
	if _, exists, err := readOptional(path); err != nil {
		return nil, err
	} else if exists && !opts.DryRun {
		res.Exists = true
		return res, nil
	}

	var boardTasks []string
	if b, err := w.LoadBoard(opts.Personal); err == nil {
		boardTasks = priorityTitles(b.Tasks, taskmd.FormatDate(day))
	} else {
		w.log.WithError(err).Warn("board unavailable for daily note")
	}
	var carried []string
	prevPath := w.NotePath(PreviousWorkday(day))
	if prev, ok, err := readOptional(prevPath); err == nil && ok {
		carried = OpenNoteTasks(prev)
	} else {
		w.log.WithField("file", prevPath).Debug("previous note not found")
	}

	merged := mergeNoteTasks(boardTasks, carried)
	data := DailyNoteData{Date: taskmd.FormatDate(day), Events: opts.Events}
	if len(merged) > 3 {
		data.Top, data.Carried = merged[:3], merged[3:]
	} else {
		data.Top = merged
	}
	content, err := renderDailyNote(data)
	if err != nil {
		return nil, err
	}
	res.Content = content
	if opts.DryRun {
		return res, nil
	}
	if err := atomicWriteFile(path, []byte(content), 0o644); err != nil {
		return nil, err
	}
	res.Created = true
	w.log.WithFields(logrus.Fields{"op": "daily-note", "file": path}).Info("daily note created")
	return res, nil
}

func priorityTitles(c *taskmd.Collection, today string) []string {
	var out []string
	seen := map[*taskmd.Task]bool{}
	add := func(t *taskmd.Task) {
		if t.Done || seen[t] || (c.Dialect == taskmd.Objectives && t.IsLabel()) {
			return
		}
		seen[t] = true
		out = append(out, t.Title)
	}
	for _, t := range c.In(taskmd.SectionQ1) {
		add(t)
	}
	for _, t := range c.Open() {
		if t.Due != "" && t.Due <= today {
			add(t)
		}
	}
	return out
}

var noteOpenTaskRe = regexp.MustCompile(`^(\s*)- \[ \]\s*(.+)$`)
var noteDoneTaskRe = regexp.MustCompile(`^(\s*)- \[[xX]\]`)

// OpenNoteTasks returns the open checkbox texts of a daily note, skipping
// fenced code and anything nested under a checked parent.
func OpenNoteTasks(content string) []string {
	var out []string
	inCode := false
	doneParent := -1
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		indent := taskmd.IndentWidth(line)
		if doneParent >= 0 && strings.TrimSpace(line) != "" && indent <= doneParent {
			doneParent = -1
		}
		if noteDoneTaskRe.MatchString(line) {
			if doneParent < 0 {
				doneParent = indent
			}
			continue
		}
		if m := noteOpenTaskRe.FindStringSubmatch(line); m != nil && doneParent < 0 {
			if text := strings.TrimSpace(m[2]); text != "" && !strings.HasPrefix(text, "_") {
				out = append(out, text)
			}
		}
	}
	return out
}

// mergeNoteTasks keeps board tasks first, then previous-note items not
// already present by normalized text.
func mergeNoteTasks(board, previous []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range [][]string{board, previous} {
		for _, t := range list {
			key := reconcile.Normalize(t)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

const (
	progressHeader   = "## 📊 Daily Progress"
	tasksQueryHeader = "## 📋 Tasks Query"
)

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// VaultPrefix is the vault-relative path of dailyDir: everything after an
// "Obsidian" path component, else its last two components.
func VaultPrefix(dailyDir string) string {
	parts := strings.FieldsFunc(dailyDir, func(r rune) bool { return r == '/' || r == '\\' })
	for i, p := range parts {
		if p == "Obsidian" {
			return strings.Join(parts[i+1:], "/")
		}
	}
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return dailyDir
}

// ProgressSection embeds the Done section of each weekday note of the week
// starting monday.
func ProgressSection(monday time.Time, prefix string) string {
	lines := []string{progressHeader, ""}
	for i, name := range weekdayNames {
		day := taskmd.FormatDate(monday.AddDate(0, 0, i))
		lines = append(lines, "### "+name, fmt.Sprintf("![[%s/%s#✅ Done]]", prefix, day), "")
	}
	return strings.Join(lines, "\n")
}

// upsertSection replaces the "## heading" block of content with section, or
// inserts it before the "## before" header, or appends it.
func upsertSection(content, section, heading, before string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	sectionLines := strings.Split(strings.TrimRight(section, "\n"), "\n")
	out := make([]string, 0, len(lines)+len(sectionLines)+2)
	inSection := false
	replaced := false
	for _, line := range lines {
		if strings.TrimSpace(line) == heading {
			if !replaced {
				out = append(out, sectionLines...)
				out = append(out, "")
				replaced = true
			}
			inSection = true
			continue
		}
		if inSection {
			if strings.HasPrefix(line, "## ") {
				inSection = false
				out = append(out, line)
			}
			continue
		}
		if !replaced && before != "" && strings.TrimSpace(line) == before {
			out = append(out, sectionLines...)
			out = append(out, "")
			replaced = true
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, "")
		out = append(out, sectionLines...)
	}
	return strings.Join(out, "\n") + "\n"
}

type EmbedsResult struct {
	Week    string `json:"week"`
	File    string `json:"file"`
	Section string `json:"section"`
	Changed bool   `json:"changed"`
}

// UpdateWeeklyEmbeds refreshes the board's ## 📊 Daily Progress section for
// the week containing ref.
func (w *Workspace) UpdateWeeklyEmbeds(ref time.Time, dryRun bool) (*EmbedsResult, error) {
	monday := taskmd.WeekStart(ref)
	section := ProgressSection(monday, VaultPrefix(w.cfg.DailyNotesDir))
	res := &EmbedsResult{Week: taskmd.ISOWeekLabel(monday), Section: section}
	if dryRun {
		return res, nil
	}
	b, err := w.LoadBoard(false)
	if err != nil {
		return nil, err
	}
	res.File = b.Path
	updated := upsertSection(b.Content, section, progressHeader, tasksQueryHeader)
	if updated == b.Content {
		return res, nil
	}
	if err := w.saveBoard(b, updated, "weekly-embeds"); err != nil {
		return nil, err
	}
	res.Changed = true
	return res, nil
}
