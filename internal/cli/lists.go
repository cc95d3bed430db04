package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/amirbrooks/task-tracker/internal/report"
	"github.com/amirbrooks/task-tracker/internal/store"
)

func itemNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func cmdParkingLot(e *env, args []string) int {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list", "ls":
		pl, err := e.ws.ParkingLot(e.gf.Personal)
		if err != nil {
			return e.fail("parking-lot", err)
		}
		if e.gf.JSON {
			return e.emitJSON("parking-lot", pl)
		}
		if e.gf.Plain {
			return parkingTable(e, pl.Items)
		}
		fmt.Fprintln(stdout, report.Heading("🅿️ Parking Lot"))
		fmt.Fprintln(stdout, store.FormatParkingLot(pl))
		return ExitOK

	case "stale":
		pl, err := e.ws.ParkingLot(e.gf.Personal)
		if err != nil {
			return e.fail("parking-lot stale", err)
		}
		stale := pl.Stale()
		if e.gf.JSON {
			return e.emitJSON("parking-lot-stale", map[string]any{"stale_days": pl.StaleDays, "items": stale})
		}
		if len(stale) == 0 {
			e.notice("No stale items (threshold %d days).", pl.StaleDays)
			return ExitOK
		}
		return parkingTable(e, stale)

	case "add":
		args = reorderFlags(args, map[string]bool{"--dept": true, "--priority": true})
		fs := newFlagSet("parking-lot add")
		dept := fs.String("dept", "", "Department tag")
		priority := fs.String("priority", "", "Priority (urgent|high|medium|low)")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() == 0 {
			return usage(`parking-lot add "<title>" [--dept X] [--priority P]`)
		}
		res, err := e.ws.AddToParkingLot(store.ParkingAddInput{
			Personal:   e.gf.Personal,
			Title:      strings.Join(fs.Args(), " "),
			Department: strings.TrimSpace(*dept),
			Priority:   strings.TrimSpace(*priority),
		})
		if err != nil {
			return e.fail("parking-lot add", err)
		}
		if e.gf.JSON {
			return e.emitJSON("parking-lot-add", res)
		}
		e.notice("🅿️ Added: %s [%d/%d items]", res.Line, res.Count, res.Cap)
		return ExitOK

	case "promote", "drop":
		if len(args) != 1 {
			return usage("parking-lot " + sub + " <number>")
		}
		n, ok := itemNumber(args[0])
		if !ok {
			return usage("parking-lot " + sub + " <number>")
		}
		if sub == "promote" {
			it, err := e.ws.PromoteFromParkingLot(e.gf.Personal, n)
			if err != nil {
				return e.fail("parking-lot promote", err)
			}
			if e.gf.JSON {
				return e.emitJSON("parking-lot-promote", it)
			}
			e.notice("⬆️ Promoted: %s", it.Title)
			return ExitOK
		}
		it, archive, err := e.ws.DropFromParkingLot(e.gf.Personal, n)
		if err != nil {
			return e.fail("parking-lot drop", err)
		}
		if e.gf.JSON {
			return e.emitJSON("parking-lot-drop", map[string]any{"item": it, "archive": archive})
		}
		e.notice("🗑️ Dropped: %s (archived to %s)", it.Title, archive)
		return ExitOK
	}
	return usage("parking-lot list|stale|add|promote|drop")
}

func cmdDelegated(e *env, args []string) int {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list", "ls", "overdue":
		items, err := e.ws.Delegations(sub == "overdue")
		if err != nil {
			return e.fail("delegated", err)
		}
		if e.gf.JSON {
			return e.emitJSON("delegated", map[string]any{"items": items, "count": len(items)})
		}
		if len(items) == 0 {
			if sub == "overdue" {
				e.notice("No overdue delegations.")
			} else {
				e.notice("No delegated tasks.")
			}
			return ExitOK
		}
		w := newTable(e.gf.Plain)
		w.row("#", "ASSIGNEE", "FOLLOWUP", "STATUS", "TITLE")
		for _, it := range items {
			status := it.Status
			if it.Overdue {
				status += " ⚠️"
			}
			w.row(strconv.Itoa(it.Number), dash(it.Assignee), dash(it.Followup), status, it.Title)
		}
		return w.flush()

	case "add":
		args = reorderFlags(args, map[string]bool{"--to": true, "--followup": true, "--dept": true})
		fs := newFlagSet("delegated add")
		to := fs.String("to", "", "Assignee")
		followup := fs.String("followup", "", "Follow-up date (default: +7 days)")
		dept := fs.String("dept", "", "Department tag")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() == 0 || strings.TrimSpace(*to) == "" {
			return usage(`delegated add "<title>" --to NAME [--followup DATE] [--dept X]`)
		}
		it, err := e.ws.Delegate(store.DelegateInput{
			Title:      strings.Join(fs.Args(), " "),
			Assignee:   strings.TrimSpace(*to),
			Followup:   strings.TrimSpace(*followup),
			Department: strings.TrimSpace(*dept),
		})
		if err != nil {
			return e.fail("delegated add", err)
		}
		if e.gf.JSON {
			return e.emitJSON("delegated-add", it)
		}
		e.notice("👥 Delegated: %s → %s (follow up %s)", it.Title, it.Assignee, it.Followup)
		return ExitOK

	case "complete", "take-back":
		if len(args) != 1 {
			return usage("delegated " + sub + " <number>")
		}
		n, ok := itemNumber(args[0])
		if !ok {
			return usage("delegated " + sub + " <number>")
		}
		if sub == "complete" {
			it, err := e.ws.CompleteDelegation(n)
			if err != nil {
				return e.fail("delegated complete", err)
			}
			if e.gf.JSON {
				return e.emitJSON("delegated-complete", it)
			}
			e.notice("✅ Completed delegation: %s", it.Title)
			return ExitOK
		}
		it, added, err := e.ws.TakeBack(e.gf.Personal, n)
		if err != nil {
			return e.fail("delegated take-back", err)
		}
		if e.gf.JSON {
			return e.emitJSON("delegated-take-back", map[string]any{"item": it, "added": added})
		}
		e.notice("↩️ Took back: %s (%s)", it.Title, added.Section.Label())
		return ExitOK

	case "extend":
		args = reorderFlags(args, map[string]bool{"--followup": true})
		fs := newFlagSet("delegated extend")
		followup := fs.String("followup", "", "New follow-up date")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		n, ok := 0, false
		if fs.NArg() == 1 {
			n, ok = itemNumber(fs.Arg(0))
		}
		if !ok || strings.TrimSpace(*followup) == "" {
			return usage("delegated extend <number> --followup DATE")
		}
		it, err := e.ws.ExtendDelegation(n, strings.TrimSpace(*followup))
		if err != nil {
			return e.fail("delegated extend", err)
		}
		if e.gf.JSON {
			return e.emitJSON("delegated-extend", it)
		}
		e.notice("📅 Follow-up for %s moved to %s", it.Title, it.Followup)
		return ExitOK
	}
	return usage("delegated list|overdue|add|complete|extend|take-back")
}

func cmdArchive(e *env, args []string) int {
	sub := "week"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "week", "run":
		fs := newFlagSet("archive")
		dryRun := fs.Bool("dry-run", false, "Report without writing")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		res, err := e.ws.Archive(e.gf.Personal, *dryRun)
		if err != nil {
			return e.fail("archive", err)
		}
		if e.gf.JSON {
			return e.emitJSON("archive", res)
		}
		if res.Archived == 0 {
			e.notice("Nothing to archive.")
			return ExitOK
		}
		verb := "Archived"
		if res.DryRun {
			verb = "Would archive"
		}
		e.notice("📦 %s %d tasks to %s", verb, res.Archived, res.File)
		for _, dept := range sortedCounts(res.ByDepartment) {
			e.notice("  %s: %d", dept, res.ByDepartment[dept])
		}
		return ExitOK

	case "consolidate":
		args = reorderFlags(args, map[string]bool{"--month": true, "--delete-weekly": false})
		fs := newFlagSet("archive consolidate")
		month := fs.String("month", "", "Month (YYYY-MM, default: previous month)")
		deleteWeekly := fs.Bool("delete-weekly", false, "Remove merged weekly files")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		m := strings.TrimSpace(*month)
		if m == "" {
			m = e.ws.Today().AddDate(0, -1, 0).Format("2006-01")
		}
		res, err := e.ws.Consolidate(m, *deleteWeekly)
		if err != nil {
			return e.fail("archive consolidate", err)
		}
		if e.gf.JSON {
			return e.emitJSON("archive-consolidate", res)
		}
		e.notice("📦 Consolidated %d weeks (%d items) into %s", len(res.Weeks), res.Items, res.File)
		return ExitOK

	case "stats":
		args = reorderFlags(args, map[string]bool{"--period": true})
		fs := newFlagSet("archive stats")
		period := fs.String("period", "week", "Period (week|month|quarter)")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		res, err := e.ws.Stats(strings.TrimSpace(*period))
		if err != nil {
			return e.fail("archive stats", err)
		}
		if e.gf.JSON {
			return e.emitJSON("archive-stats", res)
		}
		w := newTable(e.gf.Plain)
		w.row("DEPARTMENT", "DONE")
		for _, dept := range sortedCounts(res.ByDepartment) {
			w.row(dept, strconv.Itoa(res.ByDepartment[dept]))
		}
		w.row("TOTAL", strconv.Itoa(res.Total))
		return w.flush()

	case "search":
		if len(args) == 0 {
			return usage(`archive search "<text>"`)
		}
		hits, err := e.ws.Search(strings.Join(args, " "))
		if err != nil {
			return e.fail("archive search", err)
		}
		if hits == nil {
			hits = []store.SearchHit{}
		}
		if e.gf.JSON {
			return e.emitJSON("archive-search", map[string]any{"hits": hits})
		}
		w := newTable(e.gf.Plain)
		for _, h := range hits {
			w.row(fmt.Sprintf("%s:%d", h.File, h.Line), h.Text)
		}
		return w.flush()
	}
	return usage("archive [week|consolidate|stats|search]")
}

// sortedCounts orders keys by count descending, then name.
func sortedCounts(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
