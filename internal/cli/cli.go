package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/config"
	"github.com/amirbrooks/task-tracker/internal/logging"
	"github.com/amirbrooks/task-tracker/internal/reconcile"
	"github.com/amirbrooks/task-tracker/internal/report"
	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

// Exit codes
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
)

// Process streams and clock; tests swap them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
	clock  func() time.Time
)

type GlobalFlags struct {
	ConfigPath string
	EnvFile    string
	Personal   bool
	JSON       bool
	Plain      bool
	Pretty     bool
	Format     string // markdown|telegram
	Quiet      bool
	Verbose    bool
	Strict     bool
	ExportDir  string
}

type env struct {
	ws  *store.Workspace
	gf  GlobalFlags
	log *logrus.Entry
}

func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") && a != "-" {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") {
				if i+1 < len(args) {
					flags = append(flags, args[i+1])
					i++
				}
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func Run(args []string) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return ExitUsage
	}

	if len(rest) == 0 {
		printHelp(stderr)
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]
	switch cmd {
	case "help", "--help", "-h":
		printHelp(stdout)
		return ExitOK
	}

	cfg, err := config.Load(config.LoadOptions{ConfigPath: gf.ConfigPath, EnvFile: gf.EnvFile})
	if err != nil {
		fmt.Fprintln(stderr, "tasktracker:", err)
		return ExitError
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		Verbose: gf.Verbose,
		Quiet:   gf.Quiet,
		Stderr:  stderr,
	})
	if err != nil {
		fmt.Fprintln(stderr, "tasktracker:", err)
		return ExitError
	}
	entry := logger.WithField("command", cmd)
	e := &env{
		ws:  store.Open(cfg, store.Options{Log: entry, Now: clock}),
		gf:  gf,
		log: entry,
	}

	switch cmd {
	case "config", "cfg":
		return cmdConfig(e, cmdArgs)
	case "add":
		return cmdAdd(e, cmdArgs)
	case "ls", "list":
		return cmdList(e, cmdArgs)
	case "done":
		return cmdDone(e, cmdArgs)
	case "blockers":
		return cmdBlockers(e, cmdArgs)
	case "objectives":
		return cmdObjectives(e, cmdArgs)
	case "archive":
		return cmdArchive(e, cmdArgs)
	case "state":
		return cmdState(e, cmdArgs)
	case "review-backlog":
		return cmdReviewBacklog(e, cmdArgs)
	case "promote-from-backlog":
		return cmdPromoteFromBacklog(e, cmdArgs)
	case "parking-lot":
		return cmdParkingLot(e, cmdArgs)
	case "delegated":
		return cmdDelegated(e, cmdArgs)
	case "log-done":
		return cmdLogDone(e, cmdArgs)
	case "done-scan":
		return cmdDoneScan(e, cmdArgs)
	case "daily-note":
		return cmdDailyNote(e, cmdArgs)
	case "weekly-embeds":
		return cmdWeeklyEmbeds(e, cmdArgs)
	case "ingest-daily-log":
		return cmdIngestDailyLog(e, cmdArgs)
	case "eod-sync":
		return cmdEODSync(e, cmdArgs)
	case "standup":
		return cmdStandup(e, cmdArgs, false)
	case "standup-summary":
		return cmdStandup(e, cmdArgs, true)
	case "eod-review":
		return cmdEODReview(e, cmdArgs)
	case "weekly-review":
		return cmdWeeklyReview(e, cmdArgs, false)
	case "weekly-review-summary":
		return cmdWeeklyReview(e, cmdArgs, true)
	case "calendar":
		return cmdCalendar(e, cmdArgs)
	case "calendar-sync":
		return cmdCalendarPrimitive(e, cmdArgs)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", cmd)
		printHelp(stderr)
		return ExitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `tasktracker — Markdown task boards, daily notes and reviews

Usage:
  tasktracker [global flags] <command> [args]

Global flags:
  --config <path>    Config file (default: ~/.config/task-tracker/config.yaml or TASK_TRACKER_CONFIG)
  --env-file <path>  .env file (default: ./.env when present)
  --personal         Use the personal board
  --json             JSON output
  --plain            TSV output
  --pretty           Render Markdown reports for the terminal
  --format <f>       Report format: markdown|telegram
  --export-dir <d>   Also write JSON payloads to <d>
  --strict           Exit 3 on not found and 4 on ambiguous matches
  --quiet
  --verbose

Board:
  list [--section S] [--due today|this-week|overdue] [--owner X] [--completed-since 24h|7d|30d|DATE]
  add "<title>" [--priority high|medium|low] [--due DATE] [--owner X] [--area X] [--blocks X] [--dept X] [--with-id]
  done "<query>"
  blockers [--person X]
  objectives
  state pause|resume|backlog|drop|delegate "<query>" [--until DATE] [--to NAME] [--followup DATE]
  review-backlog [--stale-days N]
  promote-from-backlog [--cap N]

Lists:
  parking-lot list|stale|add|promote|drop [args]
  delegated list|overdue|add|complete|extend|take-back [args]

Archive:
  archive [week] [--dry-run]
  archive consolidate --month YYYY-MM [--delete-weekly]
  archive stats [--period week|month|quarter]
  archive search "<text>"

Notes and sync:
  log-done "<summary>" [--context JSON]
  done-scan [--days N]
  daily-note [--date DATE] [--dry-run] [--no-calendar]
  weekly-embeds [--date DATE] [--dry-run]
  ingest-daily-log [--file F] [--auto-threshold X] [--review-threshold Y] [--apply]
  eod-sync [--date DATE] [--dry-run]

Reports:
  standup [--date DATE] [--no-calendar]
  standup-summary [--date DATE] [--no-calendar]
  eod-review [--date DATE]
  weekly-review [--week YYYY-Www | --start DATE --end DATE]
  weekly-review-summary [--week YYYY-Www | --start DATE --end DATE]

Calendar:
  calendar sync
  calendar resolve [--window today|week] [--apply]
  calendar pull [--date DATE]
  calendar auth [--code CODE]
  calendar-sync

Config:
  config show
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	// Allow flags anywhere by scanning and stripping known globals.
	gf := GlobalFlags{Format: "markdown"}

	out := make([]string, 0, len(args))
	skip := 0

	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		var err error
		switch a {
		case "--config":
			gf.ConfigPath, err = value(i, a)
			skip = 1
		case "--env-file":
			gf.EnvFile, err = value(i, a)
			skip = 1
		case "--export-dir":
			gf.ExportDir, err = value(i, a)
			skip = 1
		case "--format":
			gf.Format, err = value(i, a)
			skip = 1
		case "--personal":
			gf.Personal = true
		case "--json":
			gf.JSON = true
		case "--plain":
			gf.Plain = true
		case "--pretty":
			gf.Pretty = true
		case "--strict":
			gf.Strict = true
		case "--quiet":
			gf.Quiet = true
		case "--verbose":
			gf.Verbose = true
		default:
			out = append(out, a)
		}
		if err != nil {
			return gf, nil, err
		}
	}

	gf.Format = strings.ToLower(strings.TrimSpace(gf.Format))
	if gf.Format != "markdown" && gf.Format != "telegram" {
		return gf, nil, fmt.Errorf("--format must be markdown or telegram, got %q", gf.Format)
	}
	if gf.JSON && gf.Plain {
		return gf, nil, errors.New("--json and --plain are mutually exclusive")
	}
	if gf.Quiet && gf.Verbose {
		return gf, nil, errors.New("--quiet and --verbose are mutually exclusive")
	}
	return gf, out, nil
}

// fail reports err for cmd and maps it to an exit code. Not-found and
// ambiguous matches are soft results unless --strict is set.
func (e *env) fail(cmd string, err error) int {
	var conflict *store.MatchConflictError
	switch {
	case errors.As(err, &conflict):
		e.log.WithError(err).Debug("ambiguous match")
		fmt.Fprintf(stderr, "%s: %s\n", cmd, conflict.Reason)
		for _, t := range conflict.Matches {
			fmt.Fprintf(stderr, "  - %s [%s]\n", t.Title, t.Section)
		}
		if e.gf.Strict {
			return ExitConflict
		}
		return ExitOK
	case errors.Is(err, store.ErrConflict):
		e.log.WithError(err).Debug("conflict")
		fmt.Fprintln(stderr, cmd+":", err)
		if e.gf.Strict {
			return ExitConflict
		}
		return ExitOK
	case errors.Is(err, store.ErrNotFound):
		e.log.WithError(err).Debug("not found")
		fmt.Fprintln(stderr, cmd+":", err)
		if e.gf.Strict {
			return ExitNotFound
		}
		return ExitOK
	case errors.Is(err, store.ErrInvalid), errors.Is(err, reconcile.ErrInvalidThresholds):
		fmt.Fprintln(stderr, cmd+":", err)
		return ExitUsage
	default:
		e.log.WithError(err).Error(cmd + " failed")
		fmt.Fprintln(stderr, cmd+":", err)
		return ExitError
	}
}

func usage(msg string) int {
	fmt.Fprintln(stderr, "Usage: tasktracker "+msg)
	return ExitUsage
}

// emitJSON writes payload to stdout and, with --export-dir, to a timestamped
// file named after base.
func (e *env) emitJSON(base string, payload any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return e.fail(base, err)
	}
	if e.gf.ExportDir == "" {
		return ExitOK
	}
	path, err := writeJSONExport(e.gf.ExportDir, base, payload, e.ws.Now())
	if err != nil {
		return e.fail(base, err)
	}
	e.log.WithFields(logrus.Fields{"op": "export", "file": path}).Info("wrote export")
	return ExitOK
}

func writeJSONExport(dir, base string, payload any, now time.Time) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := now.UTC().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", base, ts))
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s-%d.json", base, ts, i))
	}
	if err := atomic.WriteFile(path, strings.NewReader(string(data)+"\n")); err != nil {
		return "", err
	}
	return path, nil
}

// printReport writes a Markdown report, rendered by glamour under --pretty.
func (e *env) printReport(md string) {
	if e.gf.Pretty {
		fmt.Fprintln(stdout, report.RenderMarkdown(md))
		return
	}
	fmt.Fprint(stdout, md)
	if !strings.HasSuffix(md, "\n") {
		fmt.Fprintln(stdout)
	}
}

func (e *env) notice(format string, args ...any) {
	if e.gf.Quiet {
		return
	}
	fmt.Fprintf(stdout, format+"\n", args...)
}

// parseDateFlag resolves a --date value, defaulting to the workspace's today.
func (e *env) parseDateFlag(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return e.ws.Today(), nil
	}
	today := e.ws.Today()
	if d, ok := relativeDate(s, today); ok {
		return d, nil
	}
	d, ok := taskmd.ParseLooseDate(s, today)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: bad date %q", store.ErrInvalid, s)
	}
	return d, nil
}

// relativeDate understands today, tomorrow, yesterday and weekday names. A
// weekday means its next occurrence, today included.
func relativeDate(s string, today time.Time) (time.Time, bool) {
	switch strings.ToLower(s) {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return today.AddDate(0, 0, (int(wd)-int(today.Weekday())+7)%7), true
		}
	}
	return time.Time{}, false
}

func cmdConfig(e *env, args []string) int {
	if len(args) == 0 || args[0] != "show" {
		return usage("config show")
	}
	cfg := e.ws.Config()
	if e.gf.JSON {
		return e.emitJSON("config", cfg)
	}
	rows := [][2]string{
		{"config", orNone(cfg.Path)},
		{"work_file", cfg.WorkFile},
		{"personal_file", cfg.PersonalFile},
		{"daily_notes_dir", cfg.DailyNotesDir},
		{"done_log_dir", cfg.LogDir()},
		{"archive_dir", cfg.ArchiveDirFor()},
		{"delegation_file", cfg.DelegationFile},
		{"format", cfg.Format},
		{"parking_lot_cap", fmt.Sprint(cfg.ParkingLotCap)},
		{"parking_lot_stale_days", fmt.Sprint(cfg.ParkingLotStaleDays)},
		{"default_owner", cfg.DefaultOwner},
		{"thresholds", fmt.Sprintf("auto=%.2f review=%.2f", cfg.Thresholds.Auto, cfg.Thresholds.Review)},
		{"log", fmt.Sprintf("level=%s format=%s file=%s", cfg.Log.Level, cfg.Log.Format, orNone(cfg.Log.File))},
		{"calendars", fmt.Sprint(len(cfg.Calendar.Calendars))},
	}
	w := newTable(e.gf.Plain)
	for _, r := range rows {
		w.row(r[0], r[1])
	}
	return w.flush()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
