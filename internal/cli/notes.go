package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/calendar"
	"github.com/amirbrooks/task-tracker/internal/config"
	"github.com/amirbrooks/task-tracker/internal/reconcile"
	"github.com/amirbrooks/task-tracker/internal/report"
	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var newCalendarSource = func(ctx context.Context, cfg config.Calendar, log *logrus.Entry) (calendar.Source, error) {
	return calendar.NewGoogleSource(ctx, cfg, log)
}

// events pulls the day's calendar. Calendar trouble never fails the caller:
// the report is still useful without it.
func (e *env) events(ctx context.Context, day time.Time) []calendar.Event {
	src, err := newCalendarSource(ctx, e.ws.Config().Calendar, e.log)
	if err != nil {
		if !errors.Is(err, calendar.ErrNoCalendars) {
			e.log.WithError(err).Warn("calendar unavailable")
		}
		return nil
	}
	evs, err := src.Events(ctx, day)
	if err != nil {
		e.log.WithError(err).Warn("calendar pull failed")
		return nil
	}
	return evs
}

func cmdLogDone(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--context": true})
	fs := newFlagSet("log-done")
	rawCtx := fs.String("context", "", "JSON object written below the entry")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() == 0 {
		return usage(`log-done "<summary>" [--context JSON]`)
	}
	entry := store.DoneEntry{Summary: strings.Join(fs.Args(), " ")}
	if strings.TrimSpace(*rawCtx) != "" {
		if err := json.Unmarshal([]byte(*rawCtx), &entry.Context); err != nil {
			return e.fail("log-done", fmt.Errorf("%w: --context must be a JSON object: %v", store.ErrInvalid, err))
		}
	}
	path, err := e.ws.LogDone(entry)
	if err != nil {
		return e.fail("log-done", err)
	}
	if e.gf.JSON {
		return e.emitJSON("log-done", map[string]any{"file": path, "summary": entry.Summary})
	}
	e.notice("✅ Logged to %s", path)
	return ExitOK
}

func cmdDoneScan(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--days": true})
	fs := newFlagSet("done-scan")
	days := fs.Int("days", 7, "Days to scan, including today")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if *days < 1 {
		return usage("done-scan [--days N] (N >= 1)")
	}
	end := e.ws.Today()
	start := end.AddDate(0, 0, -(*days - 1))
	actions := e.ws.CompletedActions(start, end)
	if actions == nil {
		actions = []string{}
	}
	if e.gf.JSON {
		return e.emitJSON("done-scan", map[string]any{
			"start":   taskmd.FormatDate(start),
			"end":     taskmd.FormatDate(end),
			"count":   len(actions),
			"actions": actions,
		})
	}
	if len(actions) == 0 {
		e.notice("No completed actions in the last %d days.", *days)
		return ExitOK
	}
	for _, a := range actions {
		fmt.Fprintln(stdout, "• "+a)
	}
	return ExitOK
}

func cmdDailyNote(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := newFlagSet("daily-note")
	date := fs.String("date", "", "Note date (default: today)")
	dryRun := fs.Bool("dry-run", false, "Print the note without writing")
	noCal := fs.Bool("no-calendar", false, "Skip the calendar pull")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	day, err := e.parseDateFlag(*date)
	if err != nil {
		return e.fail("daily-note", err)
	}
	opts := store.DailyNoteOptions{Date: day, DryRun: *dryRun, Personal: e.gf.Personal}
	if !*noCal {
		opts.Events = calendar.Lines(e.events(context.Background(), day))
	}
	res, err := e.ws.CreateDailyNote(opts)
	if err != nil {
		return e.fail("daily-note", err)
	}
	if e.gf.JSON {
		return e.emitJSON("daily-note", res)
	}
	switch {
	case res.Exists:
		e.notice("Daily note already exists: %s", res.Path)
	case *dryRun:
		fmt.Fprint(stdout, res.Content)
	default:
		e.notice("📝 Created %s", res.Path)
	}
	return ExitOK
}

func cmdWeeklyEmbeds(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := newFlagSet("weekly-embeds")
	date := fs.String("date", "", "Any day of the target week (default: today)")
	dryRun := fs.Bool("dry-run", false, "Report without writing")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	day, err := e.parseDateFlag(*date)
	if err != nil {
		return e.fail("weekly-embeds", err)
	}
	res, err := e.ws.UpdateWeeklyEmbeds(day, *dryRun)
	if err != nil {
		return e.fail("weekly-embeds", err)
	}
	if e.gf.JSON {
		return e.emitJSON("weekly-embeds", res)
	}
	if !res.Changed {
		e.notice("%s already up to date.", res.File)
		return ExitOK
	}
	e.notice("📊 Updated %s (%s)", res.File, res.Week)
	return ExitOK
}

// thresholdFlags overlays --auto-threshold / --review-threshold on the
// configured bands. It returns nil when neither flag was given.
func thresholdFlags(cfg reconcile.Thresholds, auto, review float64) *reconcile.Thresholds {
	if auto < 0 && review < 0 {
		return nil
	}
	th := cfg
	if auto >= 0 {
		th.Auto = auto
	}
	if review >= 0 {
		th.Review = review
	}
	return &th
}

func cmdIngestDailyLog(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--file":             true,
		"--auto-threshold":   true,
		"--review-threshold": true,
	})
	fs := newFlagSet("ingest-daily-log")
	file := fs.String("file", "", "Daily log file (default: stdin)")
	auto := fs.Float64("auto-threshold", -1, "Score at or above which a line auto-links")
	review := fs.Float64("review-threshold", -1, "Score at or above which a line needs review")
	apply := fs.Bool("apply", false, "Check off auto-linked tasks on the board")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	var (
		data   []byte
		err    error
		source = "stdin"
	)
	if p := strings.TrimSpace(*file); p != "" {
		source = p
		data, err = os.ReadFile(p)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return e.fail("ingest-daily-log", err)
	}

	rep, err := e.ws.IngestDailyLog(store.IngestInput{
		Personal:   e.gf.Personal,
		Text:       string(data),
		Source:     source,
		Thresholds: thresholdFlags(e.ws.Config().Thresholds, *auto, *review),
		Apply:      *apply,
	})
	if err != nil {
		return e.fail("ingest-daily-log", err)
	}
	return e.syncOutput("ingest-daily-log", rep)
}

func cmdEODSync(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--date":             true,
		"--auto-threshold":   true,
		"--review-threshold": true,
	})
	fs := newFlagSet("eod-sync")
	date := fs.String("date", "", "Daily note date (default: today)")
	dryRun := fs.Bool("dry-run", false, "Report without writing")
	auto := fs.Float64("auto-threshold", -1, "Score at or above which a line auto-links")
	review := fs.Float64("review-threshold", -1, "Score at or above which a line needs review")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	day, err := e.parseDateFlag(*date)
	if err != nil {
		return e.fail("eod-sync", err)
	}
	rep, err := e.ws.EODSync(store.EODInput{
		Personal:   e.gf.Personal,
		Date:       day,
		DryRun:     *dryRun,
		Thresholds: thresholdFlags(e.ws.Config().Thresholds, *auto, *review),
	})
	if err != nil {
		return e.fail("eod-sync", err)
	}
	return e.syncOutput("eod-sync", rep)
}

func (e *env) syncOutput(cmd string, rep *store.SyncReport) int {
	if e.gf.JSON {
		return e.emitJSON(cmd, rep)
	}
	w := newTable(e.gf.Plain)
	w.row("DECISION", "SCORE", "TASK", "LINE")
	for _, it := range rep.Items {
		task := "-"
		if it.MatchMetadata.MatchedTitle != nil {
			task = *it.MatchMetadata.MatchedTitle
		}
		decision := string(it.MatchMetadata.Decision)
		if it.Applied {
			decision += " ✓"
		}
		w.row(decision, fmt.Sprintf("%.2f", it.MatchMetadata.Score), task, it.Line)
	}
	if code := w.flush(); code != ExitOK {
		return code
	}
	t := rep.Totals
	summary := fmt.Sprintf("%d lines: %d auto-linked, %d need review, %d unmatched, %d applied",
		t.ParsedDoneLines, t.AutoLinked, t.NeedsReview, t.NoMatch, t.Applied)
	if !e.gf.Plain {
		summary = report.Muted(summary)
	}
	e.notice("%s", summary)
	return ExitOK
}
