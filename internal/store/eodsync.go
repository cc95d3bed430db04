package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/reconcile"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

// SchemaVersion tags every machine-readable payload.
const SchemaVersion = "v1"

// MatchMetadata explains the decision for one done line. Unmatched lines
// carry null ids.
type MatchMetadata struct {
	Decision      reconcile.Decision  `json:"decision"`
	MatchType     reconcile.MatchType `json:"match_type"`
	Score         float64             `json:"score"`
	MatchedTaskID *string             `json:"matched_task_id"`
	MatchedTitle  *string             `json:"matched_title"`
}

type SyncItem struct {
	Line          string        `json:"line"`
	MatchMetadata MatchMetadata `json:"match_metadata"`
	Applied       bool          `json:"applied,omitempty"`
}

type SyncTotals struct {
	ParsedDoneLines int `json:"parsed_done_lines"`
	AutoLinked      int `json:"auto_linked"`
	NeedsReview     int `json:"needs_review"`
	NoMatch         int `json:"no_match"`
	Applied         int `json:"applied"`
}

// SyncReport is the payload of ingest-daily-log and eod-sync.
type SyncReport struct {
	SchemaVersion string               `json:"schema_version"`
	Command       string               `json:"command"`
	RunID         string               `json:"run_id"`
	Date          string               `json:"date"`
	Source        string               `json:"source,omitempty"`
	Board         string               `json:"board"`
	Thresholds    reconcile.Thresholds `json:"thresholds"`
	DryRun        bool                 `json:"dry_run"`
	Totals        SyncTotals           `json:"totals"`
	Items         []SyncItem           `json:"items"`
}

// IngestInput configures IngestDailyLog.
type IngestInput struct {
	Personal   bool
	Text       string
	Source     string
	Thresholds *reconcile.Thresholds
	Apply      bool
}

// IngestDailyLog matches the done bullets of free text against the open
// board tasks. The board changes only with Apply.
func (w *Workspace) IngestDailyLog(in IngestInput) (*SyncReport, error) {
	return w.syncDone("ingest-daily-log", in.Personal, reconcile.DoneLines(in.Text), in.Source, w.Today(), in.Thresholds, !in.Apply)
}

// EODInput configures EODSync.
type EODInput struct {
	Personal   bool
	Date       time.Time
	DryRun     bool
	Thresholds *reconcile.Thresholds
}

// EODSync reconciles the Done section of a daily note and checks off the
// auto-linked board tasks unless DryRun.
func (w *Workspace) EODSync(in EODInput) (*SyncReport, error) {
	day := in.Date
	if day.IsZero() {
		day = w.Today()
	}
	day = taskmd.Day(day)
	path := w.logPath(day)
	note, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: daily note %s", ErrMissingFile, path)
	}
	return w.syncDone("eod-sync", in.Personal, reconcile.DoneSectionItems(note), path, day, in.Thresholds, in.DryRun)
}

func syncCandidates(b *Board) ([]reconcile.Candidate, map[int]*taskmd.Task) {
	byLine := map[int]*taskmd.Task{}
	var out []reconcile.Candidate
	for _, t := range openCandidates(b.Tasks) {
		byLine[t.Line] = t
		body := strings.TrimSpace(t.RawLine)
		out = append(out, reconcile.Candidate{ID: t.Identifier(), Title: t.Title, Body: body, Line: t.Line})
	}
	return out, byLine
}

func (w *Workspace) syncDone(command string, personal bool, done []string, source string, day time.Time, th *reconcile.Thresholds, dryRun bool) (*SyncReport, error) {
	thresholds := w.cfg.Thresholds
	if th != nil {
		thresholds = *th
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	candidates, byLine := syncCandidates(b)
	results := reconcile.Reconcile(done, candidates, thresholds)

	rep := &SyncReport{
		SchemaVersion: SchemaVersion,
		Command:       command,
		RunID:         newULID(w.now()),
		Date:          taskmd.FormatDate(day),
		Source:        source,
		Board:         b.Path,
		Thresholds:    thresholds,
		DryRun:        dryRun,
		Items:         make([]SyncItem, 0, len(results)),
	}
	rep.Totals.ParsedDoneLines = len(results)
	rep.Totals.AutoLinked, rep.Totals.NeedsReview, rep.Totals.NoMatch = reconcile.Counts(results)

	content := b.Content
	for _, r := range results {
		item := SyncItem{Line: r.Line, MatchMetadata: MatchMetadata{
			Decision:  r.Decision,
			MatchType: r.MatchType,
			Score:     reconcile.RoundScore(r.Score),
		}}
		if r.Match != nil {
			id, title := r.Match.ID, r.Match.Title
			item.MatchMetadata.MatchedTaskID = &id
			item.MatchMetadata.MatchedTitle = &title
		}
		if r.Decision == reconcile.AutoLink && r.Match != nil && !dryRun {
			t := byLine[r.Match.Line]
			if updated, ok := applyDone(content, t, day); ok {
				content = updated
				item.Applied = true
				rep.Totals.Applied++
			}
		}
		rep.Items = append(rep.Items, item)
	}

	if rep.Totals.Applied > 0 {
		if err := w.saveBoard(b, content, command); err != nil {
			return nil, err
		}
		w.log.WithFields(logrus.Fields{"op": command, "file": b.Path, "applied": rep.Totals.Applied, "run_id": rep.RunID}).Info("done lines synced")
	}
	return rep, nil
}

// applyDone checks t off in place, or advances its due date when it recurs.
func applyDone(content string, t *taskmd.Task, day time.Time) (string, bool) {
	if t == nil {
		return content, false
	}
	line := taskmd.MarkDone(t.RawLine, taskmd.FormatDate(day))
	if t.Recur != "" {
		next, err := taskmd.NextDue(t, day)
		if err != nil {
			return content, false
		}
		line = taskmd.SetDue(t.RawLine, next)
	}
	return taskmd.ReplaceLine(content, t, line)
}
