package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var (
	doneHeaderRe   = regexp.MustCompile(`(?i)^##\s+(?:✅\s*)?done\s*$`)
	noteFileRe     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.md$`)
	timestampedRe  = regexp.MustCompile(`^-\s+(\d{2}:\d{2})\s+✅\s+(.+)$`)
	bulletPrefixRe = regexp.MustCompile(`^\s*(?:[-*+•]\s*)+`)
	checkPrefixRe  = regexp.MustCompile(`^(?:\[[xX]\]\s*)+`)
	checkPrefix2Re = regexp.MustCompile(`^(?:✅\s*)+`)
	clockPrefixRe  = regexp.MustCompile(`^\d{1,2}:\d{2}\s+`)
	checkedAnyRe   = regexp.MustCompile(`\[[xX]\]`)
	actionVerbRe   = regexp.MustCompile(`(?i)^(?:Completed|Closed|Shipped|Fixed|Resolved|Launched|Sent|Created|Built|Deployed)\b`)
	lessonRe       = regexp.MustCompile(`(?i)\b(?:lesson|insight)::\s*(.+)`)
)

// Placeholder lines seeded into a fresh Done section.
const (
	donePlaceholder   = "- (update as day progresses)"
	nonePlaceholder   = "- (none today)"
	doneSectionHeader = "## ✅ Done"
)

// DoneEntry is one completion written to the done log.
type DoneEntry struct {
	Summary string
	// Context is written as a JSON object on the indented line below the entry.
	Context map[string]any
}

// NotePath is the daily note for day.
func (w *Workspace) NotePath(day time.Time) string {
	return filepath.Join(w.cfg.DailyNotesDir, taskmd.FormatDate(day)+".md")
}

func (w *Workspace) logPath(day time.Time) string {
	return filepath.Join(w.cfg.LogDir(), taskmd.FormatDate(day)+".md")
}

// LogDone appends "- HH:MM ✅ summary" under today's ## ✅ Done section,
// creating the note from the daily template when missing. It returns the file
// written.
func (w *Workspace) LogDone(e DoneEntry) (string, error) {
	summary := sanitizeLine(e.Summary)
	if summary == "" {
		return "", fmt.Errorf("%w: summary is required", ErrInvalid)
	}
	if w.cfg.LogDir() == "" {
		return "", fmt.Errorf("%w: no done log directory configured", ErrInvalid)
	}
	now := w.now()
	day := taskmd.Day(now)
	path := w.logPath(day)

	content, ok, err := readOptional(path)
	if err != nil {
		return "", err
	}
	if !ok {
		content, err = renderDailyNote(DailyNoteData{Date: taskmd.FormatDate(day)})
		if err != nil {
			return "", err
		}
	}

	entry := []string{fmt.Sprintf("- %s ✅ %s", now.Format("15:04"), summary)}
	if ctx := formatContext(e.Context); ctx != "" {
		entry = append(entry, "  "+ctx)
	}
	updated := appendDoneEntry(content, entry)
	if err := atomicWriteFile(path, []byte(updated), 0o644); err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{"op": "log-done", "file": path}).Error("write failed")
		return "", err
	}
	w.log.WithFields(logrus.Fields{"op": "log-done", "file": path, "task": summary}).Info("completion logged")
	return path, nil
}

func appendDoneEntry(content string, entry []string) string {
	lines := taskmd.Lines(content)
	idx := taskmd.FindHeader(lines, func(l string) bool { return doneHeaderRe.MatchString(strings.TrimSpace(l)) })
	if idx < 0 {
		for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
			lines = lines[:len(lines)-1]
		}
		return taskmd.Join(append(lines, entry...)) + "\n"
	}
	end := taskmd.SectionEnd(lines, idx)
	var body []string
	for _, l := range lines[idx+1 : end] {
		s := strings.ToLower(strings.TrimSpace(l))
		if s == donePlaceholder || s == nonePlaceholder {
			continue
		}
		body = append(body, l)
	}
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	if len(body) == 0 {
		body = []string{""}
	}
	out := append([]string{}, lines[:idx+1]...)
	out = append(append(out, body...), entry...)
	if end < len(lines) {
		out = append(append(out, ""), lines[end:]...)
		return taskmd.Join(out)
	}
	return taskmd.Join(out) + "\n"
}

func sanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func formatContext(ctx map[string]any) string {
	cleaned := map[string]any{}
	for k, v := range ctx {
		if v != nil {
			cleaned[k] = v
		}
	}
	if len(cleaned) == 0 {
		return ""
	}
	// encoding/json sorts map keys.
	b, err := json.Marshal(cleaned)
	if err != nil {
		return ""
	}
	return sanitizeLine(string(b))
}

// CompletedTask is a completion recovered from the done log.
type CompletedTask struct {
	Title         string `json:"title"`
	CompletedDate string `json:"completed_date"`
	Timestamp     string `json:"timestamp,omitempty"`
	Section       string `json:"section,omitempty"`
	Area          string `json:"area,omitempty"`
	Due           string `json:"due,omitempty"`
	Recur         string `json:"recur,omitempty"`
}

type noteFile struct {
	date string
	path string
}

func listNotes(dir string, start, end time.Time) []noteFile {
	if start.After(end) {
		start, end = end, start
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	lo, hi := taskmd.FormatDate(start), taskmd.FormatDate(end)
	var out []noteFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := noteFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if _, ok := taskmd.ParseDate(m[1]); !ok || m[1] < lo || m[1] > hi {
			continue
		}
		out = append(out, noteFile{date: m[1], path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

func isCompletedActionLine(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || !bulletPrefixRe.MatchString(s) {
		return false
	}
	if strings.Contains(s, "✅") || checkedAnyRe.MatchString(s) {
		return true
	}
	return actionVerbRe.MatchString(cleanActionLine(s))
}

func cleanActionLine(line string) string {
	s := strings.TrimSpace(line)
	s = bulletPrefixRe.ReplaceAllString(s, "")
	s = checkPrefixRe.ReplaceAllString(s, "")
	s = clockPrefixRe.ReplaceAllString(s, "")
	s = checkPrefix2Re.ReplaceAllString(s, "")
	s = bulletPrefixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// CompletedActions returns completed action lines from daily notes dated
// start..end, deduplicated case-insensitively in first-seen order.
func (w *Workspace) CompletedActions(start, end time.Time) []string {
	var out []string
	seen := map[string]bool{}
	for _, n := range listNotes(w.cfg.LogDir(), start, end) {
		b, err := os.ReadFile(n.path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(b), "\n") {
			if !isCompletedActionLine(line) {
				continue
			}
			action := cleanActionLine(line)
			key := strings.ToLower(action)
			if action == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, action)
		}
	}
	return out
}

// CompletedTasks recovers completions from daily notes dated start..end,
// reading the JSON context line written by LogDone. Entries are deduplicated
// by title and date so a recurring task counts once per day.
func (w *Workspace) CompletedTasks(start, end time.Time) []CompletedTask {
	var out []CompletedTask
	seen := map[string]bool{}
	add := func(ct CompletedTask) {
		key := strings.ToLower(ct.Title) + "|" + ct.CompletedDate
		if ct.Title == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ct)
	}
	for _, n := range listNotes(w.cfg.LogDir(), start, end) {
		b, err := os.ReadFile(n.path)
		if err != nil {
			continue
		}
		lines := strings.Split(string(b), "\n")
		for i := 0; i < len(lines); i++ {
			m := timestampedRe.FindStringSubmatch(strings.TrimRight(lines[i], " \t\r"))
			if m == nil {
				if isCompletedActionLine(lines[i]) {
					add(CompletedTask{Title: cleanActionLine(lines[i]), CompletedDate: n.date})
				}
				continue
			}
			ct := CompletedTask{Title: strings.TrimSpace(m[2]), CompletedDate: n.date, Timestamp: m[1]}
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "  ") {
				var ctx map[string]any
				if json.Unmarshal([]byte(strings.TrimSpace(lines[i+1])), &ctx) == nil {
					ct.Section = stringValue(ctx["section"])
					ct.Area = stringValue(ctx["area"])
					ct.Due = stringValue(ctx["due"])
					ct.Recur = stringValue(ctx["recur"])
					i++
				}
			}
			add(ct)
		}
	}
	return out
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Lessons collects lesson:: and insight:: values from daily notes dated
// start..end.
func (w *Workspace) Lessons(start, end time.Time) []string {
	var out []string
	for _, n := range listNotes(w.cfg.DailyNotesDir, start, end) {
		b, err := os.ReadFile(n.path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(b), "\n") {
			if m := lessonRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				out = append(out, strings.TrimSpace(m[1]))
			}
		}
	}
	return out
}
