package taskmd

import (
	"strings"
	"testing"
	"time"
)

// rawTask is a task known only by its text.
func rawTask(raw string) *Task {
	return &Task{RawLine: raw, Line: -1}
}

func TestRemoveTaskRemovesParentAndSubtasks(t *testing.T) {
	content := "## Objectives\n- [ ] Parent objective\n  - [ ] Child one\n\n  - [ ] Child two\n- [ ] Sibling objective\n"
	got, ok := RemoveTask(content, rawTask("- [ ] Parent objective"))
	if !ok {
		t.Fatalf("expected removal")
	}
	want := "## Objectives\n- [ ] Sibling objective\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRemoveTaskPreservesSiblings(t *testing.T) {
	content := "- [ ] Parent A\n  - [ ] Child A1\n- [ ] Parent B\n  - [ ] Child B1\n"
	got, _ := RemoveTask(content, rawTask("- [ ] Parent A"))
	if want := "- [ ] Parent B\n  - [ ] Child B1\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	flat := "- [ ] Task one\n- [ ] Task two\n"
	got, _ = RemoveTask(flat, rawTask("- [ ] Task one"))
	if want := "- [ ] Task two\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRemoveTaskKeepsBlankBeforeShallowerLine(t *testing.T) {
	content := "## 🔴 Q1\n- [ ] **A**\n  - note\n\n## 🟡 Q2\n"
	got, _ := RemoveTask(content, rawTask("- [ ] **A**"))
	if want := "## 🔴 Q1\n\n## 🟡 Q2\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRemoveTaskMissingLineIsNoop(t *testing.T) {
	content := "- [ ] Task one\n"
	got, ok := RemoveTask(content, rawTask("- [ ] Task two"))
	if ok || got != content {
		t.Fatalf("expected no-op, got ok=%v %q", ok, got)
	}
}

func TestEditsTargetParsedLineAmongDuplicates(t *testing.T) {
	content := "## 🔴 Q1\n- [ ] **Call Alex**\n\n## 🟡 Q2\n- [ ] **Call Alex**\n  - agenda\n"
	c := Parse(content, Options{Today: refDay})
	q2 := c.In(SectionQ2)
	if len(q2) != 1 {
		t.Fatalf("expected one Q2 task, got %d", len(q2))
	}
	got, ok := RemoveTask(content, q2[0])
	if !ok {
		t.Fatalf("expected removal")
	}
	if want := "## 🔴 Q1\n- [ ] **Call Alex**\n\n## 🟡 Q2\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	got, _ = ReplaceLine(content, q2[0], "- [x] **Call Alex**")
	if want := "## 🔴 Q1\n- [ ] **Call Alex**\n\n## 🟡 Q2\n- [x] **Call Alex**\n  - agenda\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	block, _ := TaskBlock(content, q2[0])
	if len(block) != 2 || block[1] != "  - agenda" {
		t.Fatalf("expected Q2 block with child, got %q", block)
	}
}

func TestEditsFallBackToTextWhenLineMoved(t *testing.T) {
	task := &Task{RawLine: "- [ ] Task two", Line: 0}
	got, ok := RemoveTask("- [ ] Task one\n- [ ] Task two\n", task)
	if !ok || got != "- [ ] Task one\n" {
		t.Fatalf("expected text fallback, got ok=%v %q", ok, got)
	}
}

func TestMarkDoneRestampsCompletionDate(t *testing.T) {
	got := MarkDone("- [ ] **Ship** ✅ 2026-01-05", "2026-02-12")
	if want := "- [x] **Ship** ✅ 2026-02-12"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestInsertHelpers(t *testing.T) {
	lines := Lines("## Objectives\n\n- [ ] A\n\n## 🅿️ Parking Lot\n- [ ] P\n")
	idx := FindHeader(lines, func(l string) bool { return strings.HasPrefix(l, "## Objectives") })
	out := Join(InsertAfterHeader(lines, idx, []string{"- [ ] New"}))
	if want := "## Objectives\n\n- [ ] New\n- [ ] A\n\n## 🅿️ Parking Lot\n- [ ] P\n"; out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
	out = Join(AppendToSection(lines, idx, []string{"- [ ] Last"}))
	if want := "## Objectives\n\n- [ ] A\n- [ ] Last\n\n## 🅿️ Parking Lot\n- [ ] P\n"; out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
	out = Join(AppendSection(Lines("# Board\n"), "## ⚪ Backlog", []string{"- [ ] X"}))
	if want := "# Board\n\n## ⚪ Backlog\n- [ ] X\n"; out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestLineFieldEdits(t *testing.T) {
	line := "- [ ] **Ship** 🗓️2026-02-20 task_id::T-9"
	line = SetField(line, "paused", "2026-02-12")
	line = SetField(line, "pause_until", "2026-03-01")
	if !strings.Contains(line, "paused::2026-02-12") || !strings.Contains(line, "pause_until::2026-03-01") {
		t.Fatalf("expected pause fields, got %q", line)
	}
	line = SetField(line, "pause_until", "2026-04-01")
	if strings.Count(line, "pause_until::") != 1 || !strings.Contains(line, "pause_until::2026-04-01") {
		t.Fatalf("expected single replaced field, got %q", line)
	}
	line = RemoveField(RemoveField(line, "paused"), "pause_until")
	if strings.Contains(line, "pause") {
		t.Fatalf("expected pause fields removed, got %q", line)
	}
	if !strings.Contains(RemoveField(line, "id"), "task_id::T-9") {
		t.Fatalf("expected id removal to leave task_id intact")
	}
	if got := SetDue(line, "2026-02-27"); !strings.Contains(got, "2026-02-27") || strings.Contains(got, "2026-02-20") {
		t.Fatalf("expected due rewrite, got %q", got)
	}
	if got := SetDue("- [ ] Water 📅 2026-02-01", "2026-02-02"); got != "- [ ] Water 📅 2026-02-02" {
		t.Fatalf("expected tasks-plugin due rewrite, got %q", got)
	}
	if got := MarkDone("  - [ ] Step", "2026-02-12"); got != "  - [x] Step ✅ 2026-02-12" {
		t.Fatalf("unexpected done line %q", got)
	}
}

func TestRecurrenceNext(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC) // Saturday
	cases := []struct {
		recur string
		want  string
	}{
		{"daily", "2026-02-01"},
		{"weekly", "2026-02-07"},
		{"biweekly", "2026-02-14"},
		{"monthly", "2026-02-28"},
		{"every monday", "2026-02-02"},
		{"every Saturday", "2026-02-07"},
	}
	for _, tc := range cases {
		rule, err := ParseRecurrence(tc.recur)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.recur, err)
		}
		if got := FormatDate(rule.Next(base)); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.recur, tc.want, got)
		}
	}
	if _, err := ParseRecurrence("fortnightly-ish"); err == nil {
		t.Fatalf("expected error for unknown recurrence")
	}
}

func TestNextDueFallsBackToCompletionDate(t *testing.T) {
	completed := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)
	withDue := &Task{Recur: "weekly", Due: "2026-02-10"}
	if got, _ := NextDue(withDue, completed); got != "2026-02-17" {
		t.Fatalf("expected due-based next, got %s", got)
	}
	noDue := &Task{Recur: "daily"}
	if got, _ := NextDue(noDue, completed); got != "2026-02-13" {
		t.Fatalf("expected completion-based next, got %s", got)
	}
}

func TestObjectiveProgressAndMissedBuckets(t *testing.T) {
	c := Parse(objectivesContent, Options{Today: refDay})
	progress := SummarizeObjectives(c)
	if len(progress) != 2 {
		t.Fatalf("expected 2 objectives, got %d", len(progress))
	}
	if progress[0].ChildrenDone != 2 || progress[0].ChildrenTotal != 3 || progress[0].CompletionPct != 67 || progress[0].AtRisk {
		t.Fatalf("unexpected launch progress: %#v", progress[0])
	}
	if !progress[1].AtRisk || progress[1].CompletionPct != 0 {
		t.Fatalf("expected fizzi objective at risk: %#v", progress[1])
	}

	board := "## 🔴 Q1\n- [ ] **A** 🗓️2026-02-11\n- [ ] **B** 🗓️2026-02-08\n- [ ] **C** 🗓️2026-01-20\n- [ ] **D** 🗓️2025-11-01\n- [ ] **E** 🗓️2026-02-12\n"
	buckets := MissedBuckets(Parse(board, Options{Today: refDay}), refDay)
	for bucket, want := range map[string]string{MissedYesterday: "A", MissedLast7: "B", MissedLast30: "C", MissedOlder: "D"} {
		if len(buckets[bucket]) != 1 || buckets[bucket][0].Title != want {
			t.Fatalf("bucket %s: expected %s, got %v", bucket, want, buckets[bucket])
		}
	}
}

func TestTokenizeIsPure(t *testing.T) {
	line := "- [X] Call Devin (Life Time) 📅 2026-02-19 ⏫ ✅ 2026-02-18"
	a, ok := Tokenize(line)
	b, _ := Tokenize(line)
	if !ok || a != b {
		t.Fatalf("expected identical tokens, got %#v vs %#v", a, b)
	}
	if !a.Checked || a.Title != "Call Devin (Life Time)" || a.Completed != "2026-02-18" {
		t.Fatalf("unexpected token: %#v", a)
	}
	if _, ok := Tokenize("- plain bullet"); ok {
		t.Fatalf("expected non-checkbox line to be rejected")
	}
}
