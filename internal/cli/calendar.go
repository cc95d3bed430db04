package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirbrooks/task-tracker/internal/calendar"
	"github.com/amirbrooks/task-tracker/internal/report"
)

func cmdCalendar(e *env, args []string) int {
	if len(args) == 0 {
		return usage("calendar sync|resolve|pull|auth")
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "sync":
		b, err := e.ws.LoadBoard(e.gf.Personal)
		if err != nil {
			return e.fail("calendar sync", err)
		}
		payload := calendar.Sync(b)
		if e.gf.JSON {
			return e.emitJSON("calendar-sync", payload)
		}
		return meetingTable(e, payload.Meetings)

	case "resolve":
		args = reorderFlags(args, map[string]bool{"--window": true})
		fs := newFlagSet("calendar resolve")
		window := fs.String("window", "today", "today|week")
		apply := fs.Bool("apply", false, "Write resolved statuses to the board")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		payload, err := calendar.Resolve(e.ws, e.gf.Personal, *window, *apply)
		if err != nil {
			return e.fail("calendar resolve", err)
		}
		if e.gf.JSON {
			return e.emitJSON("calendar-resolve", payload)
		}
		if code := meetingTable(e, payload.Resolved); code != ExitOK {
			return code
		}
		if *apply {
			e.notice("Updated %d meetings (%s..%s)", payload.Applied, payload.Start, payload.End)
		}
		return ExitOK

	case "pull":
		args = reorderFlags(args, map[string]bool{"--date": true})
		fs := newFlagSet("calendar pull")
		date := fs.String("date", "", "Day to pull (default: today)")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		day, err := e.parseDateFlag(*date)
		if err != nil {
			return e.fail("calendar pull", err)
		}
		ctx := context.Background()
		src, err := newCalendarSource(ctx, e.ws.Config().Calendar, e.log)
		if errors.Is(err, calendar.ErrNoCalendars) {
			e.notice("No calendars configured; nothing to pull.")
			return ExitOK
		}
		if err != nil {
			return e.fail("calendar pull", err)
		}
		events, err := src.Events(ctx, day)
		if err != nil {
			return e.fail("calendar pull", err)
		}
		if events == nil {
			events = []calendar.Event{}
		}
		if e.gf.JSON {
			return e.emitJSON("calendar-pull", map[string]any{"date": day.Format("2006-01-02"), "events": events})
		}
		if len(events) == 0 {
			e.notice("No timed events.")
			return ExitOK
		}
		for _, line := range calendar.Lines(events) {
			fmt.Fprintln(stdout, line)
		}
		return ExitOK

	case "auth":
		args = reorderFlags(args, map[string]bool{"--code": true})
		fs := newFlagSet("calendar auth")
		code := fs.String("code", "", "Authorization code from the consent page")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		cfg := e.ws.Config().Calendar
		oc, err := calendar.OAuthConfig(cfg)
		if err != nil {
			return e.fail("calendar auth", err)
		}
		if strings.TrimSpace(*code) == "" {
			fmt.Fprintln(stdout, "Open this URL, approve access, then run `tasktracker calendar auth --code <code>`:")
			fmt.Fprintln(stdout, calendar.AuthURL(oc))
			return ExitOK
		}
		path, err := calendar.Exchange(context.Background(), cfg, oc, strings.TrimSpace(*code))
		if err != nil {
			return e.fail("calendar auth", err)
		}
		e.notice("%s Token saved to %s", report.Success("✅"), path)
		return ExitOK
	}
	return usage("calendar sync|resolve|pull|auth")
}

func cmdCalendarPrimitive(e *env, args []string) int {
	if len(args) > 0 {
		return usage("calendar-sync")
	}
	b, err := e.ws.LoadBoard(e.gf.Personal)
	if err != nil {
		return e.fail("calendar-sync", err)
	}
	return e.emitJSON("calendar-sync", calendar.Primitive(b))
}

func meetingTable(e *env, meetings []calendar.Meeting) int {
	if len(meetings) == 0 {
		e.notice("No meetings on the board.")
		return ExitOK
	}
	w := newTable(e.gf.Plain)
	w.row("ID", "STATUS", "SECTION", "TITLE")
	for _, m := range meetings {
		w.row(m.MeetingID, m.Status, string(m.Section), m.Title)
	}
	return w.flush()
}
