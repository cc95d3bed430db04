package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amirbrooks/task-tracker/internal/calendar"
	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

type StandupOptions struct {
	// Date is the standup day; zero means the workspace's today.
	Date     time.Time
	Personal bool
	Events   []calendar.Event
}

type Standup struct {
	SchemaVersion        string            `json:"schema_version"`
	Command              string            `json:"command"`
	Date                 string            `json:"date"`
	DateDisplay          string            `json:"date_display"`
	Board                string            `json:"board"`
	Calendar             []calendar.Event  `json:"calendar"`
	Priority             *Item             `json:"priority"`
	Dones                []string          `json:"dones"`
	Dos                  []Item            `json:"dos"`
	DueToday             []Item            `json:"due_today"`
	Blocking             []Item            `json:"blocking"`
	Overdue              []Item            `json:"overdue"`
	CarryoverSuggestions map[string][]Item `json:"carryover_suggestions"`
	Upcoming             []Item            `json:"upcoming"`

	day time.Time
}

var missedOrder = []struct {
	key   string
	label string
}{
	{taskmd.MissedYesterday, "Yesterday"},
	{taskmd.MissedLast7, "Last 7 Days"},
	{taskmd.MissedLast30, "Last 30 Days"},
	{taskmd.MissedOlder, "Older than 30 Days"},
}

// BuildStandup assembles the standup for one day. Dones cover the previous
// workday through the standup day.
func BuildStandup(ws *store.Workspace, opts StandupOptions) (*Standup, error) {
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

	s := &Standup{
		SchemaVersion:        SchemaVersion,
		Command:              "standup-summary",
		Date:                 dayStr,
		DateDisplay:          day.Format("Monday, January 02"),
		Board:                b.Path,
		Calendar:             opts.Events,
		CarryoverSuggestions: map[string][]Item{},
		day:                  day,
	}
	if s.Calendar == nil {
		s.Calendar = []calendar.Event{}
	}

	prev := store.PreviousWorkday(day)
	var boardDone []string
	for _, t := range c.Done() {
		if t.CompletedDate == "" || (t.CompletedDate >= taskmd.FormatDate(prev) && t.CompletedDate <= dayStr) {
			boardDone = append(boardDone, t.Title)
		}
	}
	s.Dones = dedupeFold(ws.CompletedActions(prev, day), boardDone)
	if s.Dones == nil {
		s.Dones = []string{}
	}

	var dueToday []*taskmd.Task
	for _, t := range c.Open() {
		if t.Due == dayStr {
			dueToday = append(dueToday, t)
		}
	}
	q1 := actionable(c, c.In(taskmd.SectionQ1), dayStr)
	s.Dos = itemsOf(c, actionable(c, append(append([]*taskmd.Task{}, q1...), dueToday...), dayStr))
	s.DueToday = itemsOf(c, actionable(c, dueToday, dayStr))
	s.Overdue = itemsOf(c, actionable(c, taskmd.Overdue(c, day), dayStr))

	var blocking []*taskmd.Task
	for _, t := range c.Open() {
		if strings.TrimSpace(t.Blocks) != "" {
			blocking = append(blocking, t)
		}
	}
	blocking = actionable(c, blocking, dayStr)
	s.Blocking = itemsOf(c, blocking)

	switch {
	case len(blocking) > 0:
		it := itemOf(c, blocking[0])
		s.Priority = &it
	case len(q1) > 0:
		it := itemOf(c, q1[0])
		s.Priority = &it
	}

	for key, tasks := range taskmd.MissedBuckets(c, day) {
		s.CarryoverSuggestions[key] = itemsOf(c, actionable(c, tasks, dayStr))
	}

	end := taskmd.FormatDate(day.AddDate(0, 0, 7))
	var upcoming []*taskmd.Task
	for _, t := range c.Open() {
		if t.Due > dayStr && t.Due <= end {
			upcoming = append(upcoming, t)
		}
	}
	upcoming = actionable(c, upcoming, dayStr)
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Due < upcoming[j].Due })
	s.Upcoming = itemsOf(c, upcoming)
	return s, nil
}

// Markdown renders the standup for chat or a terminal.
func (s *Standup) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Daily Standup — %s**\n\n", s.DateDisplay)

	if lines := calendar.Lines(s.Calendar); len(lines) > 0 {
		b.WriteString("📅 **Today's Calendar:**\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "  • %s\n", l)
		}
		b.WriteString("\n")
	}
	if s.Priority != nil {
		fmt.Fprintf(&b, "🎯 **#1 Priority:** %s\n", s.Priority.Title)
		if s.Priority.Blocks != "" {
			fmt.Fprintf(&b, "   ↳ Blocking: %s\n", s.Priority.Blocks)
		}
		b.WriteString("\n")
	}
	if len(s.Dones) > 0 {
		fmt.Fprintf(&b, "✅ **Dones:** (%d items)\n", len(s.Dones))
		for _, d := range s.Dones {
			fmt.Fprintf(&b, "  • %s\n", d)
		}
		b.WriteString("\n")
	}
	if len(s.Dos) > 0 {
		b.WriteString("🔨 **Dos:**\n")
		for _, it := range s.Dos {
			fmt.Fprintf(&b, "  • %s%s\n", it.Title, dueSuffix(it.Due))
		}
		b.WriteString("\n")
	}
	if len(s.Blocking) > 0 {
		b.WriteString("🚧 **Blocking Others:**\n")
		for _, it := range s.Blocking {
			fmt.Fprintf(&b, "  • %s → %s\n", it.Title, it.Blocks)
		}
		b.WriteString("\n")
	}
	b.WriteString(s.missedBlock())
	if len(s.Upcoming) > 0 {
		b.WriteString("📅 **Upcoming:**\n")
		for _, it := range s.Upcoming {
			fmt.Fprintf(&b, "  • %s%s\n", it.Title, dueSuffix(it.Due))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (s *Standup) missedBlock() string {
	missed := false
	for _, m := range missedOrder {
		if len(s.CarryoverSuggestions[m.key]) > 0 {
			missed = true
		}
	}
	if !missed {
		return ""
	}
	var b strings.Builder
	b.WriteString("🔴 **Missed Tasks:**\n")
	for _, m := range missedOrder {
		items := s.CarryoverSuggestions[m.key]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n  **%s:**\n", m.label)
		for _, it := range items {
			if m.key == taskmd.MissedYesterday {
				fmt.Fprintf(&b, "    • %s — say \"done %s\" to mark complete\n", it.Title, it.Title)
				continue
			}
			fmt.Fprintf(&b, "    • %s\n", it.Title)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Telegram renders a condensed standup that fits one chat message.
func (s *Standup) Telegram() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Standup — %s\n\n", s.day.Format("Mon Jan 02"))
	if s.Priority != nil {
		fmt.Fprintf(&b, "🎯 %s\n\n", cleanTaskTitle(s.Priority.Title))
	}
	writeTelegramList(&b, "📅 Calendar", calendar.Lines(s.Calendar), 0)
	writeTelegramList(&b, "✅ Done", s.Dones, 8)
	writeTelegramSection(&b, "🔨 Do", s.Dos, true, s.day)
	writeTelegramSection(&b, "⚠️ Overdue", s.Overdue, true, s.day)
	writeTelegramSection(&b, "📅 Upcoming", s.Upcoming, true, s.day)
	return trimTelegramOutput(b.String())
}

func dueSuffix(due string) string {
	if due == "" {
		return ""
	}
	return " (due " + due + ")"
}
