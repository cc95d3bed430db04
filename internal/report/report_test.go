package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amirbrooks/task-tracker/internal/config"
	"github.com/amirbrooks/task-tracker/internal/store"
)

const reportBoard = `# Weekly TODOs

## 🔴 Q1
- [ ] **Ship release** 🗓️2026-02-12 area:: Eng
- [ ] **Call Alex** blocks:: Dana
- [ ] **Paused thing** paused:: 2026-02-10
- [ ] **Late report** 🗓️2026-02-11 area:: Finance
- [ ] **Ancient invoice** 🗓️2026-01-01

## 🟡 Q2
- [ ] **Plan offsite** 🗓️2026-02-15 area:: Ops
- [ ] **Demo day** 🗓️2026-02-14 type:: demo

## ✅ Done
- [x] **Old win** area:: Eng ✅ 2026-02-11
- [x] **Ancient win** ✅ 2026-01-05
`

const yesterdayNote = `# 2026-02-11

lesson:: Batch reviews in the morning

## ✅ Done

- 17:00 ✅ Closed the books
  {"area":"Finance","section":"q1"}
- [x] Reviewed PRs
`

const todayNote = `# 2026-02-12

## Today
- [ ] Finish deck
- [x] Send invoice

## ✅ Done

- 09:00 ✅ Ship release
`

var refNow = time.Date(2026, 2, 12, 9, 30, 0, 0, time.UTC)

func newWorkspace(t *testing.T, notes map[string]string) *store.Workspace {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkFile = filepath.Join(dir, "Weekly TODOs.md")
	cfg.DailyNotesDir = filepath.Join(dir, "Daily")
	if err := os.WriteFile(cfg.WorkFile, []byte(reportBoard), 0o644); err != nil {
		t.Fatalf("write board: %v", err)
	}
	if err := os.MkdirAll(cfg.DailyNotesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for day, body := range notes {
		if err := os.WriteFile(filepath.Join(cfg.DailyNotesDir, day+".md"), []byte(body), 0o644); err != nil {
			t.Fatalf("write note: %v", err)
		}
	}
	return store.Open(cfg, store.Options{Now: func() time.Time { return refNow }})
}

func titlesOf(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDedupeFoldKeepsFirstSpelling(t *testing.T) {
	got := dedupeFold([]string{"Ship it", " ", "ship IT"}, []string{"Other", "other"})
	if !equalStrings(got, []string{"Ship it", "Other"}) {
		t.Fatalf("unexpected %v", got)
	}
}

func TestAreaOfFallbacks(t *testing.T) {
	if areaOf("Eng", "Ops") != "Eng" || areaOf("", "Ops") != "Ops" || areaOf(" ", "") != "Uncategorized" {
		t.Fatalf("unexpected area fallbacks")
	}
}

func TestTrimTelegramOutput(t *testing.T) {
	short := "hello\n\n"
	if got := trimTelegramOutput(short); got != "hello" {
		t.Fatalf("expected trailing newlines trimmed, got %q", got)
	}
	long := strings.Repeat("x", telegramMaxChars+10)
	got := trimTelegramOutput(long)
	if len([]rune(got)) != telegramMaxChars || !strings.HasSuffix(got, "… (truncated)") {
		t.Fatalf("expected truncation to %d runes, got %d", telegramMaxChars, len([]rune(got)))
	}
}

func TestFormatDueShort(t *testing.T) {
	if got := formatDueShort("2026-02-14", refNow); got != "Feb 14" {
		t.Fatalf("expected Feb 14, got %q", got)
	}
	if got := formatDueShort("2027-01-03", refNow); got != "Jan 03 2027" {
		t.Fatalf("expected year for other years, got %q", got)
	}
	if got := formatDueShort("someday", refNow); got != "someday" {
		t.Fatalf("expected raw value kept, got %q", got)
	}
}
