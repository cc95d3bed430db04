package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirbrooks/task-tracker/internal/report"
)

// reporter is what every summary can render.
type reporter interface {
	Markdown() string
	Telegram() string
}

// emitReport picks JSON, Telegram or Markdown output. Summary commands always
// print JSON.
func (e *env) emitReport(cmd string, r reporter, summary bool) int {
	if summary || e.gf.JSON {
		return e.emitJSON(cmd, r)
	}
	if e.gf.Format == "telegram" {
		fmt.Fprintln(stdout, r.Telegram())
		return ExitOK
	}
	e.printReport(r.Markdown())
	return ExitOK
}

func cmdStandup(e *env, args []string, summary bool) int {
	name := "standup"
	if summary {
		name = "standup-summary"
	}
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := newFlagSet(name)
	date := fs.String("date", "", "Standup day (default: today)")
	noCal := fs.Bool("no-calendar", false, "Skip the calendar pull")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	day, err := e.parseDateFlag(*date)
	if err != nil {
		return e.fail(name, err)
	}
	opts := report.StandupOptions{Date: day, Personal: e.gf.Personal}
	if !*noCal {
		opts.Events = e.events(context.Background(), day)
	}
	s, err := report.BuildStandup(e.ws, opts)
	if err != nil {
		return e.fail(name, err)
	}
	return e.emitReport(name, s, summary)
}

func cmdEODReview(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--date": true})
	fs := newFlagSet("eod-review")
	date := fs.String("date", "", "Day to review (default: today)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	day, err := e.parseDateFlag(*date)
	if err != nil {
		return e.fail("eod-review", err)
	}
	r, err := report.BuildEOD(e.ws, report.EODOptions{Date: day, Personal: e.gf.Personal})
	if err != nil {
		return e.fail("eod-review", err)
	}
	return e.emitReport("eod-review", r, false)
}

func cmdWeeklyReview(e *env, args []string, summary bool) int {
	name := "weekly-review"
	if summary {
		name = "weekly-review-summary"
	}
	args = reorderFlags(args, map[string]bool{"--week": true, "--start": true, "--end": true})
	fs := newFlagSet(name)
	week := fs.String("week", "", "ISO week (YYYY-Www)")
	start := fs.String("start", "", "First day of the range")
	end := fs.String("end", "", "Last day of the range")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	opts := report.WeeklyOptions{Personal: e.gf.Personal}
	switch {
	case strings.TrimSpace(*week) != "":
		if *start != "" || *end != "" {
			return usage(name + " [--week YYYY-Www | --start DATE --end DATE]")
		}
		s, en, err := report.ParseWeek(strings.TrimSpace(*week))
		if err != nil {
			return e.fail(name, err)
		}
		opts.Start, opts.End = s, en
	case *start != "" || *end != "":
		s, err := e.optionalDate(*start)
		if err != nil {
			return e.fail(name, err)
		}
		en, err := e.optionalDate(*end)
		if err != nil {
			return e.fail(name, err)
		}
		opts.Start, opts.End = s, en
	}

	r, err := report.BuildWeekly(e.ws, opts)
	if err != nil {
		return e.fail(name, err)
	}
	return e.emitReport(name, r, summary)
}

// optionalDate is parseDateFlag without the today default.
func (e *env) optionalDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	d, err := e.parseDateFlag(s)
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}
