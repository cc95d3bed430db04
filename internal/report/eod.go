package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

const (
	sourceDailyNote = "daily note"
	sourceBoard     = "board (no daily note found)"
)

type EODOptions struct {
	Date     time.Time
	Personal bool
}

type EODReview struct {
	SchemaVersion string   `json:"schema_version"`
	Command       string   `json:"command"`
	Date          string   `json:"date"`
	Weekday       string   `json:"weekday"`
	Source        string   `json:"source"`
	Done          []string `json:"done"`
	NotDone       []string `json:"not_done"`
	RemainingQ1   []Item   `json:"remaining_q1"`
	TomorrowDue   []Item   `json:"tomorrow_due"`
	TomorrowsTop3 []string `json:"tomorrows_top3"`
}

// BuildEOD reviews one day. Completions and leftovers come from the day's
// note; without a note the board's done list stands in and nothing is
// reported as missed.
func BuildEOD(ws *store.Workspace, opts EODOptions) (*EODReview, error) {
	day := opts.Date
	if day.IsZero() {
		day = ws.Today()
	}
	day = taskmd.Day(day)
	dayStr := taskmd.FormatDate(day)

	b, err := ws.LoadBoard(opts.Personal)
	if err != nil {
		return nil, err
	}
	c := b.Tasks

	r := &EODReview{
		SchemaVersion: SchemaVersion,
		Command:       "eod-review",
		Date:          dayStr,
		Weekday:       day.Weekday().String(),
		Done:          []string{},
		NotDone:       []string{},
	}

	note, err := os.ReadFile(ws.NotePath(day))
	switch {
	case err == nil:
		r.Source = sourceDailyNote
		r.Done = append(r.Done, ws.CompletedActions(day, day)...)
		r.NotDone = append(r.NotDone, store.OpenNoteTasks(string(note))...)
	case os.IsNotExist(err):
		r.Source = sourceBoard
		for i, t := range c.Done() {
			if i == 8 {
				break
			}
			r.Done = append(r.Done, t.Title)
		}
	default:
		return nil, err
	}

	q1 := actionable(c, c.In(taskmd.SectionQ1), dayStr)
	q2 := actionable(c, c.In(taskmd.SectionQ2), dayStr)
	r.RemainingQ1 = itemsOf(c, q1)

	tomorrow := taskmd.FormatDate(day.AddDate(0, 0, 1))
	var due []*taskmd.Task
	for _, t := range c.Open() {
		if t.Due == tomorrow {
			due = append(due, t)
		}
	}
	r.TomorrowDue = itemsOf(c, actionable(c, due, dayStr))

	var titles []string
	for _, t := range append(append([]*taskmd.Task{}, q1...), q2...) {
		titles = append(titles, t.Title)
	}
	r.TomorrowsTop3 = dedupeFold(titles)
	if len(r.TomorrowsTop3) > 3 {
		r.TomorrowsTop3 = r.TomorrowsTop3[:3]
	}
	if r.TomorrowsTop3 == nil {
		r.TomorrowsTop3 = []string{}
	}
	return r, nil
}

func (r *EODReview) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# EOD Review — %s, %s\n\n", r.Weekday, r.Date)
	fmt.Fprintf(&b, "_Source: %s_\n\n", r.Source)

	b.WriteString("## Done\n")
	writeBullets(&b, r.Done, "_Nothing recorded_")

	b.WriteString("\n## Didn't Get Done\n")
	writeBullets(&b, r.NotDone, "_Everything done (or nothing tracked)_")

	if len(r.TomorrowDue) > 0 {
		b.WriteString("\n## Due Tomorrow\n")
		for _, it := range r.TomorrowDue {
			fmt.Fprintf(&b, "- %s\n", it.Title)
		}
	}

	b.WriteString("\n## Tomorrow's Top 3\n")
	if len(r.TomorrowsTop3) == 0 {
		b.WriteString("_No open Q1/Q2 items_\n")
	}
	for i, t := range r.TomorrowsTop3 {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return b.String()
}

func (r *EODReview) Telegram() string {
	var b strings.Builder
	fmt.Fprintf(&b, "EOD Review — %s, %s\n\n", r.Weekday, r.Date)

	b.WriteString("Done:\n")
	writeBullets(&b, limit(r.Done, 8), "- Nothing recorded")

	b.WriteString("\nMissed:\n")
	writeBullets(&b, limit(r.NotDone, 6), "- All clear")

	b.WriteString("\nTomorrow's Top 3:\n")
	if len(r.TomorrowsTop3) == 0 {
		b.WriteString("- TBD\n")
	}
	for i, t := range r.TomorrowsTop3 {
		fmt.Fprintf(&b, "%d. %s\n", i+1, cleanTaskTitle(t))
	}
	return trimTelegramOutput(b.String())
}

func writeBullets(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		b.WriteString(empty)
		b.WriteString("\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
