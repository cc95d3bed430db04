package report

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var isoWeekRe = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ParseWeek resolves an ISO week label such as 2026-W07 to its Monday and
// Sunday.
func ParseWeek(week string) (time.Time, time.Time, error) {
	m := isoWeekRe.FindStringSubmatch(strings.TrimSpace(week))
	if m == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: week must look like 2026-W07, got %q", store.ErrInvalid, week)
	}
	year, _ := strconv.Atoi(m[1])
	n, _ := strconv.Atoi(m[2])
	start := taskmd.WeekStart(time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)).AddDate(0, 0, (n-1)*7)
	if y, w := start.ISOWeek(); n < 1 || y != year || w != n {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: no ISO week %s", store.ErrInvalid, week)
	}
	return start, start.AddDate(0, 0, 6), nil
}

type WeeklyOptions struct {
	// Start and End bound the review; zero values mean the current
	// Monday..Sunday.
	Start    time.Time
	End      time.Time
	Personal bool
}

type DoneSummary struct {
	Total  int                 `json:"total"`
	ByArea map[string][]string `json:"by_area"`
}

type DoSummary struct {
	Total      int               `json:"total"`
	ByCategory map[string][]Item `json:"by_category"`
}

type DemoSummary struct {
	Completed []string `json:"completed"`
	Upcoming  []string `json:"upcoming"`
}

type WeeklyReview struct {
	SchemaVersion string                     `json:"schema_version"`
	Command       string                     `json:"command"`
	Week          string                     `json:"week"`
	Start         string                     `json:"start"`
	End           string                     `json:"end"`
	Done          DoneSummary                `json:"DONE"`
	Do            DoSummary                  `json:"DO"`
	Objectives    []taskmd.ObjectiveProgress `json:"objectives"`
	CarriedOver   []Item                     `json:"carried_over"`
	Upcoming      []Item                     `json:"upcoming"`
	UntrackedWins []string                   `json:"untracked_wins"`
	Demos         DemoSummary                `json:"demos"`
	Lessons       []string                   `json:"lessons"`

	reference time.Time
}

// BuildWeekly summarises start..end. Overdue and upcoming work is measured
// from today clamped into the window, so reviewing a past week reads the
// board as of that week's last day.
func BuildWeekly(ws *store.Workspace, opts WeeklyOptions) (*WeeklyReview, error) {
	today := ws.Today()
	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = taskmd.WeekStart(today)
	}
	if end.IsZero() {
		end = start.AddDate(0, 0, 6)
	}
	start, end = taskmd.Day(start), taskmd.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", store.ErrInvalid, taskmd.FormatDate(end), taskmd.FormatDate(start))
	}
	ref := today
	if ref.After(end) {
		ref = end
	}
	if ref.Before(start) {
		ref = start
	}
	refStr := taskmd.FormatDate(ref)
	lo, hi := taskmd.FormatDate(start), taskmd.FormatDate(end)

	b, err := ws.LoadBoard(opts.Personal)
	if err != nil {
		return nil, err
	}
	c := b.Tasks

	r := &WeeklyReview{
		SchemaVersion: SchemaVersion,
		Command:       "weekly-review-summary",
		Week:          taskmd.ISOWeekLabel(start),
		Start:         lo,
		End:           hi,
		Done:          DoneSummary{ByArea: map[string][]string{}},
		Do:            DoSummary{ByCategory: map[string][]Item{}},
		Objectives:    taskmd.SummarizeObjectives(c),
		UntrackedWins: []string{},
		Demos:         DemoSummary{Completed: []string{}, Upcoming: []string{}},
		Lessons:       ws.Lessons(start, end),
		reference:     ref,
	}
	if r.Objectives == nil {
		r.Objectives = []taskmd.ObjectiveProgress{}
	}
	if r.Lessons == nil {
		r.Lessons = []string{}
	}

	seen := map[string]bool{}
	tracked := map[string]bool{}
	addDone := func(title, area string) {
		key := strings.ToLower(strings.TrimSpace(title))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		r.Done.ByArea[area] = append(r.Done.ByArea[area], strings.TrimSpace(title))
		r.Done.Total++
	}
	for _, t := range c.Done() {
		if t.CompletedDate != "" && (t.CompletedDate < lo || t.CompletedDate > hi) {
			continue
		}
		tracked[strings.ToLower(strings.TrimSpace(t.Title))] = true
		addDone(t.Title, areaOf(t.Area, c.Department(t)))
		if strings.EqualFold(t.Type, "demo") {
			r.Demos.Completed = append(r.Demos.Completed, t.Title)
		}
	}
	for _, ct := range ws.CompletedTasks(start, end) {
		if ct.Section == "" {
			continue
		}
		tracked[strings.ToLower(ct.Title)] = true
		addDone(ct.Title, areaOf(ct.Area, ""))
	}
	for _, action := range ws.CompletedActions(start, end) {
		if !tracked[strings.ToLower(action)] {
			r.UntrackedWins = append(r.UntrackedWins, action)
		}
	}

	for _, t := range actionable(c, c.Open(), refStr) {
		cat := string(t.Section)
		if cat == "" {
			cat = "uncategorized"
		}
		r.Do.ByCategory[cat] = append(r.Do.ByCategory[cat], itemOf(c, t))
		r.Do.Total++
		if strings.EqualFold(t.Type, "demo") {
			r.Demos.Upcoming = append(r.Demos.Upcoming, t.Title)
		}
	}

	missed := taskmd.MissedBuckets(c, ref)
	var carried []*taskmd.Task
	for _, key := range []string{taskmd.MissedYesterday, taskmd.MissedLast7, taskmd.MissedLast30, taskmd.MissedOlder} {
		carried = append(carried, missed[key]...)
	}
	r.CarriedOver = itemsOf(c, actionable(c, carried, refStr))

	var upcoming []*taskmd.Task
	for _, t := range c.Open() {
		if t.Due >= refStr && t.Due <= hi {
			upcoming = append(upcoming, t)
		}
	}
	upcoming = actionable(c, upcoming, refStr)
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Due < upcoming[j].Due })
	r.Upcoming = itemsOf(c, upcoming)
	return r, nil
}

func (r *WeeklyReview) Markdown() string {
	var b strings.Builder
	start, _ := taskmd.ParseDate(r.Start)
	end, _ := taskmd.ParseDate(r.End)
	fmt.Fprintf(&b, "📊 **Weekly Review — %s (%s to %s)**\n\n", r.Week, start.Format("January 02"), end.Format("January 02"))

	fmt.Fprintf(&b, "✅ **Completed** (%d)\n", r.Done.Total)
	if r.Done.Total == 0 {
		b.WriteString("  _No completed tasks this week_\n")
	}
	for _, area := range sortedKeys(r.Done.ByArea) {
		titles := r.Done.ByArea[area]
		fmt.Fprintf(&b, "  **%s (%d):**\n", area, len(titles))
		for _, t := range titles {
			fmt.Fprintf(&b, "    • %s\n", t)
		}
	}
	b.WriteString("\n")

	writeAreaGrouped(&b, "⏳ **Carried Over (Misses)**", r.CarriedOver, "No overdue tasks", func(it Item) string {
		return fmt.Sprintf("%s (%s; due %s)", it.Title, overdueLabel(it.Due, r.reference), it.Due)
	})

	fmt.Fprintf(&b, "🎯 **Open Work** (%d)\n", r.Do.Total)
	for _, sec := range taskmd.Sections {
		items := r.Do.ByCategory[string(sec)]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  **%s (%d):**\n", sec.Label(), len(items))
		for _, it := range items {
			fmt.Fprintf(&b, "    • %s%s\n", it.Title, dueSuffix(it.Due))
		}
	}
	if items := r.Do.ByCategory["uncategorized"]; len(items) > 0 {
		fmt.Fprintf(&b, "  **Uncategorized (%d):**\n", len(items))
		for _, it := range items {
			fmt.Fprintf(&b, "    • %s%s\n", it.Title, dueSuffix(it.Due))
		}
	}
	b.WriteString("\n")

	if len(r.Objectives) > 0 {
		b.WriteString(FormatObjectives(r.Objectives))
		b.WriteString("\n")
	}

	writeAreaGrouped(&b, "📅 **Upcoming Deadlines**", r.Upcoming, "No upcoming deadlines in this week", func(it Item) string {
		return fmt.Sprintf("%s (due %s)", it.Title, it.Due)
	})

	if len(r.UntrackedWins) > 0 {
		b.WriteString("📌 **Untracked Wins (from daily notes):**\n")
		for _, w := range r.UntrackedWins {
			fmt.Fprintf(&b, "  • %s\n", w)
		}
		b.WriteString("\n")
	}

	if len(r.Demos.Completed) > 0 || len(r.Demos.Upcoming) > 0 {
		b.WriteString("🎬 **Demo Summary**\n")
		fmt.Fprintf(&b, "  • Completed (%d): %s\n", len(r.Demos.Completed), joinOrNone(r.Demos.Completed))
		fmt.Fprintf(&b, "  • Upcoming (%d): %s\n\n", len(r.Demos.Upcoming), joinOrNone(r.Demos.Upcoming))
	}

	b.WriteString("📝 **Lessons & Insights**\n")
	if len(r.Lessons) == 0 {
		b.WriteString("  No lessons captured this week. Consider: What worked? What didn't? What would you do differently?\n")
	}
	for _, l := range r.Lessons {
		fmt.Fprintf(&b, "  • %s\n", l)
	}
	return b.String()
}

func (r *WeeklyReview) Telegram() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Weekly Review — %s\n\n", r.Week)
	var done []string
	for _, area := range sortedKeys(r.Done.ByArea) {
		for _, t := range r.Done.ByArea[area] {
			done = append(done, area+": "+t)
		}
	}
	writeTelegramList(&b, "✅ Done", done, 10)
	writeTelegramSection(&b, "⏳ Carried over", r.CarriedOver, true, r.reference)
	writeTelegramSection(&b, "📅 Upcoming", r.Upcoming, true, r.reference)
	writeTelegramList(&b, "📌 Untracked wins", r.UntrackedWins, 5)
	writeTelegramList(&b, "📝 Lessons", r.Lessons, 5)
	return trimTelegramOutput(b.String())
}

func writeAreaGrouped(b *strings.Builder, title string, items []Item, empty string, format func(Item) string) {
	fmt.Fprintf(b, "%s (%d)\n", title, len(items))
	if len(items) == 0 {
		fmt.Fprintf(b, "  _%s_\n\n", empty)
		return
	}
	grouped := map[string][]Item{}
	for _, it := range items {
		area := areaOf(it.Area, it.Department)
		grouped[area] = append(grouped[area], it)
	}
	for _, area := range sortedKeys(grouped) {
		fmt.Fprintf(b, "  **%s (%d):**\n", area, len(grouped[area]))
		for _, it := range grouped[area] {
			fmt.Fprintf(b, "    • %s\n", format(it))
		}
	}
	b.WriteString("\n")
}

func overdueLabel(due string, ref time.Time) string {
	d, ok := taskmd.ParseDate(due)
	if !ok {
		return "due date unavailable"
	}
	n := taskmd.DaysBetween(d, ref)
	if n == 1 {
		return "1 day overdue"
	}
	return fmt.Sprintf("%d days overdue", n)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
