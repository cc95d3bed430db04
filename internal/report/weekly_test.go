package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

func TestParseWeek(t *testing.T) {
	start, end, err := ParseWeek("2026-W07")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if taskmd.FormatDate(start) != "2026-02-09" || taskmd.FormatDate(end) != "2026-02-15" {
		t.Fatalf("unexpected range %s..%s", taskmd.FormatDate(start), taskmd.FormatDate(end))
	}
	for _, bad := range []string{"2026-07", "2026-W00", "2026-W54"} {
		if _, _, err := ParseWeek(bad); !errors.Is(err, store.ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %q, got %v", bad, err)
		}
	}
}

func TestBuildWeekly(t *testing.T) {
	ws := newWorkspace(t, map[string]string{"2026-02-11": yesterdayNote})
	r, err := BuildWeekly(ws, WeeklyOptions{})
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if r.Command != "weekly-review-summary" || r.Week != "2026-W07" || r.Start != "2026-02-09" || r.End != "2026-02-15" {
		t.Fatalf("unexpected envelope %+v", r)
	}
	if r.Done.Total != 2 {
		t.Fatalf("expected 2 done, got %d (%v)", r.Done.Total, r.Done.ByArea)
	}
	if !equalStrings(r.Done.ByArea["Eng"], []string{"Old win"}) || !equalStrings(r.Done.ByArea["Finance"], []string{"Closed the books"}) {
		t.Fatalf("unexpected by_area %v", r.Done.ByArea)
	}
	if r.Do.Total != 6 || len(r.Do.ByCategory["q1"]) != 4 || len(r.Do.ByCategory["q2"]) != 2 {
		t.Fatalf("unexpected DO %+v", r.Do)
	}
	if !equalStrings(r.UntrackedWins, []string{"Reviewed PRs"}) {
		t.Fatalf("unexpected untracked wins %v", r.UntrackedWins)
	}
	if got := titlesOf(r.CarriedOver); !equalStrings(got, []string{"Late report", "Ancient invoice"}) {
		t.Fatalf("unexpected carried over %v", got)
	}
	if got := titlesOf(r.Upcoming); !equalStrings(got, []string{"Ship release", "Demo day", "Plan offsite"}) {
		t.Fatalf("unexpected upcoming %v", got)
	}
	if !equalStrings(r.Demos.Upcoming, []string{"Demo day"}) || len(r.Demos.Completed) != 0 {
		t.Fatalf("unexpected demos %+v", r.Demos)
	}
	if !equalStrings(r.Lessons, []string{"Batch reviews in the morning"}) {
		t.Fatalf("unexpected lessons %v", r.Lessons)
	}
	if r.Objectives == nil || len(r.Objectives) != 0 {
		t.Fatalf("expected empty objectives list, got %v", r.Objectives)
	}

	md := r.Markdown()
	for _, want := range []string{
		"📊 **Weekly Review — 2026-W07 (February 09 to February 15)**\n",
		"✅ **Completed** (2)\n",
		"  **Finance (1):**\n    • Closed the books\n",
		"    • Late report (1 day overdue; due 2026-02-11)\n",
		"  **Uncategorized (1):**\n    • Ancient invoice (42 days overdue; due 2026-01-01)\n",
		"📌 **Untracked Wins (from daily notes):**\n  • Reviewed PRs\n",
		"  • Upcoming (1): Demo day\n",
		"📝 **Lessons & Insights**\n  • Batch reviews in the morning\n",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestBuildWeeklyRejectsInvertedRange(t *testing.T) {
	ws := newWorkspace(t, nil)
	_, err := BuildWeekly(ws, WeeklyOptions{
		Start: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestFormatObjectives(t *testing.T) {
	out := FormatObjectives([]taskmd.ObjectiveProgress{
		{Title: "Grow revenue", Department: "Sales", ChildrenTotal: 2, ChildrenDone: 1, CompletionPct: 50},
		{Title: "Hire", ChildrenTotal: 1, AtRisk: true},
	})
	if !strings.Contains(out, "  - [ ] Grow revenue #Sales — 1/2 (50%)\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "  - [ ] Hire — 0/1 (0%) ⚠️ at risk\n") {
		t.Fatalf("expected at-risk flag, got:\n%s", out)
	}
	if !strings.Contains(FormatObjectives(nil), "_No objectives found_") {
		t.Fatalf("expected empty notice")
	}
}
