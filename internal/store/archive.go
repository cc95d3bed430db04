package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var (
	weeklyArchiveRe  = regexp.MustCompile(`^(\d{4})-W(\d{2})\.md$`)
	archivedDoneRe   = regexp.MustCompile(`^- \[[xX]\] (.+)$`)
	archivedDateRe   = regexp.MustCompile(`✅\s*(\d{4}-\d{2}-\d{2})`)
	monthArgRe       = regexp.MustCompile(`^\d{4}-\d{2}$`)
	defaultDept      = "General"
	droppedDept      = "Uncategorized"
	departmentLabels = map[string]string{"HR": "HR/People"}
)

func displayDepartment(d string) string {
	if label, ok := departmentLabels[d]; ok {
		return label
	}
	return d
}

func (w *Workspace) weekArchivePath(day time.Time) string {
	return filepath.Join(w.cfg.ArchiveDirFor(), taskmd.ISOWeekLabel(day)+".md")
}

func weekArchiveHeader(day time.Time) string {
	monday := taskmd.WeekStart(day)
	_, week := day.ISOWeek()
	return fmt.Sprintf("# Done Archive — Week of %s (W%02d)", monday.Format("Jan 02, 2006"), week)
}

// appendByDepartment adds entries under "## Dept" headers of the file at path,
// creating the file with header and any missing department sections.
func appendByDepartment(path, header string, order []string, entries map[string][]string) error {
	content, ok, err := readOptional(path)
	if err != nil {
		return err
	}
	if !ok {
		content = header + "\n"
	}
	lines := taskmd.Lines(strings.TrimRight(content, "\n"))
	for _, dept := range order {
		block := entries[dept]
		if len(block) == 0 {
			continue
		}
		title := "## " + dept
		idx := taskmd.FindHeader(lines, func(l string) bool { return strings.TrimSpace(l) == title })
		if idx >= 0 {
			lines = taskmd.AppendToSection(lines, idx, block)
			continue
		}
		lines = taskmd.AppendSection(lines, title, block)
		lines = lines[:len(lines)-1]
	}
	return atomicWriteFile(path, []byte(taskmd.Join(lines)+"\n"), 0o644)
}

// appendDropped records a dropped task in this week's archive.
func (w *Workspace) appendDropped(dept, title string) (string, error) {
	if dept == "" {
		dept = droppedDept
	}
	day := w.Today()
	path := w.weekArchivePath(day)
	entry := fmt.Sprintf("- [x] ~~%s~~ (dropped) ✅ %s", title, taskmd.FormatDate(day))
	if err := appendByDepartment(path, weekArchiveHeader(day), []string{dept}, map[string][]string{dept: {entry}}); err != nil {
		return "", err
	}
	return path, nil
}

// ArchiveResult reports an archive run.
type ArchiveResult struct {
	Kind         string         `json:"kind"`
	File         string         `json:"file"`
	Archived     int            `json:"archived"`
	ByDepartment map[string]int `json:"by_department,omitempty"`
	DryRun       bool           `json:"dry_run,omitempty"`
}

// Archive moves completed tasks off the board: objectives boards into the
// weekly department archive, obsidian boards into the quarterly archive. The
// archive file is written before the board.
func (w *Workspace) Archive(personal, dryRun bool) (*ArchiveResult, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	if b.Tasks.Dialect == taskmd.Objectives {
		return w.archiveWeek(b, dryRun)
	}
	return w.archiveQuarter(b, dryRun)
}

func (w *Workspace) archiveWeek(b *Board, dryRun bool) (*ArchiveResult, error) {
	today := w.Today()
	res := &ArchiveResult{Kind: "weekly", File: w.weekArchivePath(today), ByDepartment: map[string]int{}, DryRun: dryRun}
	done := b.Tasks.Done()
	if len(done) == 0 {
		return res, nil
	}
	var order []string
	entries := map[string][]string{}
	for _, t := range done {
		dept := b.Tasks.Department(t)
		if dept == "" {
			dept = defaultDept
		}
		dept = displayDepartment(dept)
		if _, seen := entries[dept]; !seen {
			order = append(order, dept)
		}
		date := t.CompletedDate
		if date == "" {
			date = taskmd.FormatDate(today)
		}
		entries[dept] = append(entries[dept], fmt.Sprintf("- [x] %s ✅ %s", taskmd.StripTags(t.Title), date))
		res.ByDepartment[dept]++
		res.Archived++
	}
	if dryRun {
		return res, nil
	}
	if err := appendByDepartment(res.File, weekArchiveHeader(today), order, entries); err != nil {
		return nil, err
	}
	if err := w.removeTasks(b, done, "archive"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "archive", "file": res.File, "count": res.Archived}).Info("weekly archive written")
	return res, nil
}

func (w *Workspace) archiveQuarter(b *Board, dryRun bool) (*ArchiveResult, error) {
	today := w.Today()
	path := filepath.Join(w.cfg.ArchiveDirFor(), "ARCHIVE-"+taskmd.Quarter(today)+".md")
	res := &ArchiveResult{Kind: "quarterly", File: path, DryRun: dryRun}
	done := b.Tasks.Done()
	res.Archived = len(done)
	if len(done) == 0 || dryRun {
		return res, nil
	}
	content, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		content = "# Task Archive - " + taskmd.Quarter(today) + "\n"
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(content, "\n"))
	sb.WriteString("\n\n## Archived " + taskmd.FormatDate(today) + "\n\n")
	for _, t := range done {
		sb.WriteString("- ✅ **" + t.Title + "**\n")
	}
	if err := atomicWriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return nil, err
	}
	if err := w.removeTasks(b, done, "archive"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "archive", "file": path, "count": res.Archived}).Info("quarterly archive written")
	return res, nil
}

// removeTasks deletes each task block from the board in one write. Tasks
// already removed as children of an earlier task are skipped.
func (w *Workspace) removeTasks(b *Board, tasks []*taskmd.Task, op string) error {
	content := b.Content
	for i := len(tasks) - 1; i >= 0; i-- {
		content, _ = taskmd.RemoveTask(content, tasks[i])
	}
	return w.saveBoard(b, content, op)
}

// ConsolidateResult reports a monthly consolidation.
type ConsolidateResult struct {
	Month   string   `json:"month"`
	File    string   `json:"file"`
	Weeks   []string `json:"weeks"`
	Items   int      `json:"items"`
	Deleted bool     `json:"deleted_weekly"`
}

func isoWeekStart(year, week int) time.Time {
	return taskmd.WeekStart(time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)).AddDate(0, 0, 7*(week-1))
}

type weeklyFile struct {
	label string
	path  string
	start time.Time
}

func (w *Workspace) weeklyArchives() ([]weeklyFile, error) {
	entries, err := os.ReadDir(w.cfg.ArchiveDirFor())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []weeklyFile
	for _, e := range entries {
		m := weeklyArchiveRe.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		out = append(out, weeklyFile{
			label: strings.TrimSuffix(e.Name(), ".md"),
			path:  filepath.Join(w.cfg.ArchiveDirFor(), e.Name()),
			start: isoWeekStart(year, week),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out, nil
}

// archiveSections reads "## Dept" blocks of completed lines from an archive file.
func archiveSections(content string) (order []string, items map[string][]string) {
	items = map[string][]string{}
	dept := droppedDept
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "## ") {
			dept = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		if !archivedDoneRe.MatchString(strings.TrimRight(line, " \t\r")) {
			continue
		}
		if _, seen := items[dept]; !seen {
			order = append(order, dept)
		}
		items[dept] = append(items[dept], strings.TrimRight(line, " \t\r"))
	}
	return order, items
}

// Consolidate merges the weekly archives whose week starts or ends in month
// (YYYY-MM) into YYYY-MM-monthly.md, deduplicating lines per department.
func (w *Workspace) Consolidate(month string, deleteWeekly bool) (*ConsolidateResult, error) {
	if !monthArgRe.MatchString(month) {
		return nil, fmt.Errorf("%w: --month must be YYYY-MM, got %q", ErrInvalid, month)
	}
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("%w: --month must be YYYY-MM, got %q", ErrInvalid, month)
	}
	weeks, err := w.weeklyArchives()
	if err != nil {
		return nil, err
	}
	res := &ConsolidateResult{Month: month, File: filepath.Join(w.cfg.ArchiveDirFor(), month+"-monthly.md"), Weeks: []string{}}
	var order []string
	merged := map[string][]string{}
	seen := map[string]bool{}
	var used []weeklyFile
	for _, wf := range weeks {
		end := wf.start.AddDate(0, 0, 6)
		if wf.start.Format("2006-01") != month && end.Format("2006-01") != month {
			continue
		}
		b, err := os.ReadFile(wf.path)
		if err != nil {
			return nil, err
		}
		used = append(used, wf)
		res.Weeks = append(res.Weeks, wf.label)
		o, items := archiveSections(string(b))
		for _, dept := range o {
			if _, ok := merged[dept]; !ok {
				order = append(order, dept)
				merged[dept] = nil
			}
			for _, line := range items[dept] {
				key := dept + "|" + strings.ToLower(line)
				if seen[key] {
					continue
				}
				seen[key] = true
				merged[dept] = append(merged[dept], line)
				res.Items++
			}
		}
	}
	if len(used) == 0 {
		return nil, fmt.Errorf("%w: no weekly archives for %s", ErrNotFound, month)
	}

	var sb strings.Builder
	sb.WriteString("# Done Archive — " + first.Format("January 2006") + "\n")
	for _, dept := range order {
		sb.WriteString("\n## " + dept + "\n")
		for _, line := range merged[dept] {
			sb.WriteString(line + "\n")
		}
	}
	if err := atomicWriteFile(res.File, []byte(sb.String()), 0o644); err != nil {
		return nil, err
	}
	if deleteWeekly {
		for _, wf := range used {
			if err := os.Remove(wf.path); err != nil {
				return nil, err
			}
		}
		res.Deleted = true
	}
	w.log.WithFields(logrus.Fields{"op": "consolidate", "file": res.File, "weeks": len(used)}).Info("monthly archive written")
	return res, nil
}

// ArchiveStats counts archived completions per department.
type ArchiveStats struct {
	Period       string         `json:"period"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	Total        int            `json:"total"`
	ByDepartment map[string]int `json:"by_department"`
}

// PeriodRange returns the week, month or quarter containing ref.
func PeriodRange(period string, ref time.Time) (time.Time, time.Time, error) {
	ref = taskmd.Day(ref)
	switch period {
	case "week":
		start := taskmd.WeekStart(ref)
		return start, start.AddDate(0, 0, 6), nil
	case "month":
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1), nil
	case "quarter":
		q := (int(ref.Month()) - 1) / 3
		start := time.Date(ref.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, -1), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: --period must be week, month or quarter", ErrInvalid)
}

// Stats counts completed lines of the weekly archives overlapping period.
// Lines carrying a ✅ date outside the period are skipped; monthly rollups are
// ignored so nothing is counted twice.
func (w *Workspace) Stats(period string) (*ArchiveStats, error) {
	start, end, err := PeriodRange(period, w.Today())
	if err != nil {
		return nil, err
	}
	lo, hi := taskmd.FormatDate(start), taskmd.FormatDate(end)
	res := &ArchiveStats{Period: period, Start: lo, End: hi, ByDepartment: map[string]int{}}
	weeks, err := w.weeklyArchives()
	if err != nil {
		return nil, err
	}
	for _, wf := range weeks {
		if wf.start.After(end) || wf.start.AddDate(0, 0, 6).Before(start) {
			continue
		}
		b, err := os.ReadFile(wf.path)
		if err != nil {
			return nil, err
		}
		order, items := archiveSections(string(b))
		for _, dept := range order {
			for _, line := range items[dept] {
				if m := archivedDateRe.FindStringSubmatch(line); m != nil && (m[1] < lo || m[1] > hi) {
					continue
				}
				res.ByDepartment[dept]++
				res.Total++
			}
		}
	}
	return res, nil
}

// SearchHit is one matching archive line.
type SearchHit struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Search finds query case-insensitively in every archive file.
func (w *Workspace) Search(query string) ([]SearchHit, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("%w: search text is required", ErrInvalid)
	}
	dir := w.cfg.ArchiveDirFor()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var hits []SearchHit
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for i, line := range strings.Split(string(b), "\n") {
			if strings.Contains(strings.ToLower(line), q) {
				hits = append(hits, SearchHit{File: name, Line: i + 1, Text: strings.TrimSpace(line)})
			}
		}
	}
	return hits, nil
}
