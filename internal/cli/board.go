package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/amirbrooks/task-tracker/internal/report"
	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func cmdList(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--section":         true,
		"--due":             true,
		"--owner":           true,
		"--completed-since": true,
	})
	fs := newFlagSet("list")
	section := fs.String("section", "", "Section (q1|q2|q3|team|backlog|objectives|today|parking_lot|done)")
	due := fs.String("due", "", "Due filter (today|this-week|overdue)")
	owner := fs.String("owner", "", "Owner")
	since := fs.String("completed-since", "", "Completed since (24h|7d|30d|YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	filter := store.ListFilter{Due: strings.TrimSpace(*due), Owner: strings.TrimSpace(*owner), CompletedSince: strings.TrimSpace(*since)}
	if strings.TrimSpace(*section) != "" {
		sec, ok := taskmd.ParseSection(*section)
		if !ok {
			return usage("list [--section q1|q2|q3|team|backlog|objectives|today|parking_lot|done]")
		}
		filter.Section = sec
	}

	b, err := e.ws.LoadBoard(e.gf.Personal)
	if err != nil {
		return e.fail("list", err)
	}
	groups, err := e.ws.ListTasks(b, filter)
	if err != nil {
		return e.fail("list", err)
	}

	if e.gf.JSON {
		if groups == nil {
			groups = []store.SectionTasks{}
		}
		return e.emitJSON("list", map[string]any{
			"board":    b.Path,
			"format":   b.Tasks.Dialect.String(),
			"sections": groups,
		})
	}
	if e.gf.Plain {
		w := newTable(true)
		w.row("SECTION", "ID", "DUE", "OWNER", "TITLE")
		for _, g := range groups {
			for _, t := range g.Tasks {
				w.row(string(g.Section), t.Identifier(), dash(t.Due), dash(t.Owner), t.Title)
			}
		}
		return w.flush()
	}
	if len(groups) == 0 {
		e.notice("No tasks found.")
		return ExitOK
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintln(stdout, report.Heading(g.Label))
		for _, t := range g.Tasks {
			fmt.Fprintln(stdout, "  "+taskLine(t))
		}
	}
	return ExitOK
}

func taskLine(t *taskmd.Task) string {
	var b strings.Builder
	if t.Done {
		b.WriteString("✅ ")
	} else {
		b.WriteString("• ")
	}
	b.WriteString(t.Title)
	if t.Due != "" {
		b.WriteString(report.Muted(" (due " + t.Due + ")"))
	}
	if t.Owner != "" {
		b.WriteString(" @" + t.Owner)
	}
	if t.Blocks != "" {
		b.WriteString(" → " + t.Blocks)
	}
	if t.CompletedDate != "" {
		b.WriteString(report.Muted(" ✅ " + t.CompletedDate))
	}
	return b.String()
}

func cmdAdd(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--priority": true,
		"--due":      true,
		"--owner":    true,
		"--area":     true,
		"--blocks":   true,
		"--dept":     true,
		"--with-id":  false,
	})
	fs := newFlagSet("add")
	priority := fs.String("priority", "", "Priority (high|medium|low)")
	due := fs.String("due", "", "Due date (YYYY-MM-DD, today, tomorrow, weekday)")
	owner := fs.String("owner", "", "Owner")
	area := fs.String("area", "", "Area")
	blocks := fs.String("blocks", "", "Who this task blocks")
	dept := fs.String("dept", "", "Department tag (objectives format)")
	withID := fs.Bool("with-id", false, "Stamp a ULID id:: on the task")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return usage(`add "<title>" [--priority high|medium|low] [--due DATE] ...`)
	}
	dueDate := strings.TrimSpace(*due)
	if dueDate != "" {
		d, err := e.parseDateFlag(dueDate)
		if err != nil {
			return e.fail("add", err)
		}
		dueDate = taskmd.FormatDate(d)
	}
	res, err := e.ws.AddTask(store.AddTaskInput{
		Personal:   e.gf.Personal,
		Title:      strings.TrimSpace(strings.Join(rest, " ")),
		Priority:   strings.TrimSpace(*priority),
		Due:        dueDate,
		Owner:      strings.TrimSpace(*owner),
		Area:       strings.TrimSpace(*area),
		Blocks:     strings.TrimSpace(*blocks),
		Department: strings.TrimSpace(*dept),
		WithID:     *withID,
	})
	if err != nil {
		return e.fail("add", err)
	}
	if e.gf.JSON {
		return e.emitJSON("add", res)
	}
	e.notice("Added to %s: %s", res.Section.Label(), res.Line)
	return ExitOK
}

func cmdDone(e *env, args []string) int {
	if len(args) == 0 {
		return usage(`done "<query>"`)
	}
	res, err := e.ws.CompleteTask(e.gf.Personal, strings.Join(args, " "))
	if err != nil {
		return e.fail("done", err)
	}
	if e.gf.JSON {
		return e.emitJSON("done", res)
	}
	if res.Recurring {
		e.notice("%s Completed %s (next due %s)", report.Success("✅"), res.Task.Title, res.NextDue)
		return ExitOK
	}
	e.notice("%s Completed %s", report.Success("✅"), res.Task.Title)
	return ExitOK
}

func cmdBlockers(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--person": true})
	fs := newFlagSet("blockers")
	person := fs.String("person", "", "Only tasks blocking this person")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	b, err := e.ws.LoadBoard(e.gf.Personal)
	if err != nil {
		return e.fail("blockers", err)
	}
	tasks := store.Blockers(b, strings.TrimSpace(*person))
	if e.gf.JSON {
		if tasks == nil {
			tasks = []*taskmd.Task{}
		}
		return e.emitJSON("blockers", map[string]any{"blockers": tasks})
	}
	w := newTable(e.gf.Plain)
	w.row("BLOCKS", "SECTION", "DUE", "TITLE")
	for _, t := range tasks {
		w.row(t.Blocks, string(t.Section), dash(t.Due), t.Title)
	}
	if len(tasks) == 0 && !e.gf.Plain {
		w.flush()
		e.notice("Nobody is blocked.")
		return ExitOK
	}
	return w.flush()
}

func cmdObjectives(e *env, args []string) int {
	b, err := e.ws.LoadBoard(e.gf.Personal)
	if err != nil {
		return e.fail("objectives", err)
	}
	progress := taskmd.SummarizeObjectives(b.Tasks)
	if progress == nil {
		progress = []taskmd.ObjectiveProgress{}
	}
	if e.gf.JSON {
		return e.emitJSON("objectives", map[string]any{
			"schema_version": report.SchemaVersion,
			"command":        "objectives",
			"objectives":     progress,
		})
	}
	if e.gf.Plain {
		w := newTable(true)
		w.row("TITLE", "DEPARTMENT", "DONE", "TOTAL", "PCT", "AT_RISK")
		for _, o := range progress {
			w.row(o.Title, dash(o.Department), strconv.Itoa(o.ChildrenDone), strconv.Itoa(o.ChildrenTotal),
				strconv.Itoa(o.CompletionPct), strconv.FormatBool(o.AtRisk))
		}
		return w.flush()
	}
	e.printReport(report.FormatObjectives(progress))
	return ExitOK
}

func cmdState(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--until":    true,
		"--to":       true,
		"--followup": true,
	})
	fs := newFlagSet("state")
	until := fs.String("until", "", "Pause until DATE")
	to := fs.String("to", "", "Delegate to NAME")
	followup := fs.String("followup", "", "Delegation follow-up DATE")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 2 {
		return usage(`state pause|resume|backlog|drop|delegate "<query>"`)
	}
	action, query := rest[0], strings.Join(rest[1:], " ")

	var res *store.StateResult
	var err error
	switch action {
	case "pause":
		res, err = e.ws.Pause(e.gf.Personal, query, strings.TrimSpace(*until))
	case "resume":
		res, err = e.ws.Resume(e.gf.Personal, query)
	case "backlog":
		res, err = e.ws.Backlog(e.gf.Personal, query)
	case "drop":
		res, err = e.ws.Drop(e.gf.Personal, query)
	case "delegate":
		if strings.TrimSpace(*to) == "" {
			return usage(`state delegate "<query>" --to NAME [--followup DATE]`)
		}
		res, err = e.ws.DelegateTask(e.gf.Personal, query, strings.TrimSpace(*to), strings.TrimSpace(*followup))
	default:
		return usage(`state pause|resume|backlog|drop|delegate "<query>"`)
	}
	if err != nil {
		return e.fail("state "+action, err)
	}
	if e.gf.JSON {
		return e.emitJSON("state", res)
	}
	switch action {
	case "pause":
		e.notice("⏸️ Paused: %s", res.Task.Title)
	case "resume":
		e.notice("▶️ Resumed: %s", res.Task.Title)
	case "backlog":
		e.notice("🅿️ Moved to Parking Lot: %s", res.Task.Title)
	case "drop":
		e.notice("🗑️ Dropped: %s (archived to %s)", res.Task.Title, res.Archive)
	case "delegate":
		e.notice("👥 Delegated: %s → %s", res.Task.Title, res.Delegation.Assignee)
	}
	return ExitOK
}

func cmdReviewBacklog(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--stale-days": true})
	fs := newFlagSet("review-backlog")
	staleDays := fs.Int("stale-days", 0, "Age in days that counts as stale (default: config)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	items, err := e.ws.ReviewBacklog(e.gf.Personal, *staleDays)
	if err != nil {
		return e.fail("review-backlog", err)
	}
	if e.gf.JSON {
		return e.emitJSON("review-backlog", map[string]any{"stale": items, "count": len(items)})
	}
	if len(items) == 0 {
		e.notice("No stale backlog items.")
		return ExitOK
	}
	return parkingTable(e, items)
}

func cmdPromoteFromBacklog(e *env, args []string) int {
	args = reorderFlags(args, map[string]bool{"--cap": true})
	fs := newFlagSet("promote-from-backlog")
	limit := fs.Int("cap", 3, "Maximum items to promote")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	items, err := e.ws.PromoteFromBacklog(e.gf.Personal, *limit)
	if err != nil {
		return e.fail("promote-from-backlog", err)
	}
	if e.gf.JSON {
		return e.emitJSON("promote-from-backlog", map[string]any{"promoted": items, "count": len(items)})
	}
	if len(items) == 0 {
		e.notice("Nothing stale to promote.")
		return ExitOK
	}
	fmt.Fprintln(stdout, report.Heading("Promoted from Parking Lot"))
	for _, it := range items {
		fmt.Fprintf(stdout, "  • %s\n", it.Title)
	}
	return ExitOK
}

func parkingTable(e *env, items []store.ParkingItem) int {
	w := newTable(e.gf.Plain)
	w.row("#", "AGE", "DEPT", "TITLE")
	for _, it := range items {
		age := "-"
		if it.AgeDays != nil {
			age = strconv.Itoa(*it.AgeDays) + "d"
		}
		w.row(strconv.Itoa(it.Number), age, dash(it.Department), it.Title)
	}
	return w.flush()
}
