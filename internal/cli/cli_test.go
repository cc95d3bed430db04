package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amirbrooks/task-tracker/internal/reconcile"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

const cliBoard = `# Weekly TODOs

## 🔴 Q1
- [ ] **Ship release** 🗓️2026-02-20
- [ ] **Call Alex** blocks:: Dana
- [ ] **Team sync** meeting::123 status::scheduled #Ops
- [ ] **Buffer block** meeting::125 status::blocked #Ops

## 🟡 Q2
- [ ] **Plan offsite** owner:: sam
`

var refNow = time.Date(2026, 2, 12, 9, 30, 0, 0, time.UTC)

type fixture struct {
	dir    string
	config string
	board  string
	notes  string
}

func newFixture(t *testing.T, board string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		board:  filepath.Join(dir, "Weekly TODOs.md"),
		notes:  filepath.Join(dir, "Daily"),
	}
	cfg := strings.Join([]string{
		"work_file: " + f.board,
		"personal_file: " + filepath.Join(dir, "Personal TODOs.md"),
		"daily_notes_dir: " + f.notes,
		"delegation_file: " + filepath.Join(dir, "Delegated.md"),
		"archive_dir: " + filepath.Join(dir, "Archive"),
		"log:",
		"  level: error",
		"",
	}, "\n")
	if err := os.WriteFile(f.config, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(f.board, []byte(board), 0o644); err != nil {
		t.Fatalf("write board: %v", err)
	}
	return f
}

// run executes the CLI against f with captured streams and a fixed clock.
func (f fixture) run(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr, oldIn, oldClock := stdout, stderr, stdin, clock
	stdout, stderr, stdin = &out, &errOut, strings.NewReader(input)
	clock = func() time.Time { return refNow }
	defer func() { stdout, stderr, stdin, clock = oldOut, oldErr, oldIn, oldClock }()

	code := Run(append([]string{"--config", f.config}, args...))
	return code, out.String(), errOut.String()
}

func (f fixture) readBoard(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(f.board)
	if err != nil {
		t.Fatalf("read board: %v", err)
	}
	return string(b)
}

func TestListJSON(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, out, errOut := f.run(t, "", "--json", "list", "--section", "q1")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	var payload struct {
		Board    string `json:"board"`
		Sections []struct {
			Section string `json:"section"`
			Tasks   []struct {
				Title string `json:"title"`
			} `json:"tasks"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.Board != f.board {
		t.Fatalf("expected board %s, got %s", f.board, payload.Board)
	}
	if len(payload.Sections) != 1 || payload.Sections[0].Section != "q1" {
		t.Fatalf("expected only q1, got %+v", payload.Sections)
	}
	if got := len(payload.Sections[0].Tasks); got != 4 {
		t.Fatalf("expected 4 q1 tasks, got %d", got)
	}
	if payload.Sections[0].Tasks[0].Title != "Ship release" {
		t.Fatalf("expected Ship release first, got %q", payload.Sections[0].Tasks[0].Title)
	}
}

func TestListRejectsUnknownSection(t *testing.T) {
	f := newFixture(t, cliBoard)
	if code, _, _ := f.run(t, "", "list", "--section", "someday"); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
}

func TestNotFoundIsSoftUnlessStrict(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, _, errOut := f.run(t, "", "done", "zebra")
	if code != ExitOK {
		t.Fatalf("expected soft exit 0, got %d", code)
	}
	if !strings.Contains(errOut, "no open task matches") {
		t.Fatalf("expected not-found message, got %q", errOut)
	}
	if code, _, _ := f.run(t, "", "--strict", "done", "zebra"); code != ExitNotFound {
		t.Fatalf("expected exit %d under --strict, got %d", ExitNotFound, code)
	}
}

func TestUsageErrors(t *testing.T) {
	f := newFixture(t, cliBoard)
	cases := [][]string{
		{"frobnicate"},
		{"--json", "--plain", "list"},
		{"--format", "html", "standup"},
		{"done"},
		{"parking-lot", "promote", "zero"},
	}
	for _, args := range cases {
		if code, _, _ := f.run(t, "", args...); code != ExitUsage {
			t.Fatalf("expected exit %d for %v, got %d", ExitUsage, args, code)
		}
	}
}

func TestAddResolvesRelativeDue(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, _, errOut := f.run(t, "", "add", "Write docs", "--priority", "high", "--due", "tomorrow")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	board := f.readBoard(t)
	if !strings.Contains(board, "**Write docs**") || !strings.Contains(board, "2026-02-13") {
		t.Fatalf("expected task with resolved due date, got:\n%s", board)
	}
	q1 := board[strings.Index(board, "## 🔴 Q1"):strings.Index(board, "## 🟡 Q2")]
	if !strings.Contains(q1, "Write docs") {
		t.Fatalf("expected high priority task under Q1, got:\n%s", board)
	}
}

func TestDoneRemovesTask(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, out, errOut := f.run(t, "", "done", "ship")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	if !strings.Contains(out, "Ship release") {
		t.Fatalf("expected confirmation, got %q", out)
	}
	if strings.Contains(f.readBoard(t), "Ship release") {
		t.Fatalf("expected task removed from board")
	}
}

func TestStandupSummaryIsJSON(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, out, errOut := f.run(t, "", "standup-summary", "--no-calendar")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload["command"] != "standup-summary" || payload["date"] != "2026-02-12" {
		t.Fatalf("unexpected envelope %v", payload)
	}
	if _, ok := payload["carryover_suggestions"].(map[string]any); !ok {
		t.Fatalf("expected carryover_suggestions object, got %v", payload["carryover_suggestions"])
	}
}

func TestCalendarSyncPrimitive(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, out, errOut := f.run(t, "", "calendar-sync")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	var payload struct {
		SchemaVersion string              `json:"schema_version"`
		LifecycleMap  map[string][]string `json:"lifecycle_map"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.SchemaVersion != "v1" {
		t.Fatalf("expected v1, got %q", payload.SchemaVersion)
	}
	if got := payload.LifecycleMap["blocked"]; len(got) != 1 || got[0] != "125" {
		t.Fatalf("expected blocked [125], got %v", got)
	}
	if got := payload.LifecycleMap["canceled"]; got == nil || len(got) != 0 {
		t.Fatalf("expected empty canceled list, got %v", got)
	}
}

func TestIngestFromStdinReportsOnly(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, out, errOut := f.run(t, "- Ship release\n", "--json", "ingest-daily-log")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	var payload struct {
		Source string `json:"source"`
		Totals struct {
			AutoLinked int `json:"auto_linked"`
			Applied    int `json:"applied"`
		} `json:"totals"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.Source != "stdin" || payload.Totals.AutoLinked != 1 || payload.Totals.Applied != 0 {
		t.Fatalf("unexpected report %+v", payload)
	}
	if !strings.Contains(f.readBoard(t), "- [ ] **Ship release**") {
		t.Fatalf("expected board untouched without --apply")
	}
}

func TestIngestRejectsInvertedThresholds(t *testing.T) {
	f := newFixture(t, cliBoard)
	code, _, _ := f.run(t, "- Ship release\n", "ingest-daily-log", "--auto-threshold", "0.5", "--review-threshold", "0.9")
	if code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
}

func TestExportDirWritesTimestampedFile(t *testing.T) {
	f := newFixture(t, cliBoard)
	exportDir := filepath.Join(f.dir, "exports")
	if code, _, errOut := f.run(t, "", "--json", "--export-dir", exportDir, "objectives"); code != ExitOK {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut)
	}
	path := filepath.Join(exportDir, "objectives-20260212-093000.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected export %s: %v", path, err)
	}
}

func TestRelativeDate(t *testing.T) {
	today := taskmd.Day(refNow) // Thursday
	cases := map[string]string{
		"today":     "2026-02-12",
		"Tomorrow":  "2026-02-13",
		"yesterday": "2026-02-11",
		"thu":       "2026-02-12",
		"friday":    "2026-02-13",
		"monday":    "2026-02-16",
	}
	for in, want := range cases {
		got, ok := relativeDate(in, today)
		if !ok || taskmd.FormatDate(got) != want {
			t.Fatalf("%s: expected %s, got %s (ok=%v)", in, want, taskmd.FormatDate(got), ok)
		}
	}
	if _, ok := relativeDate("someday", today); ok {
		t.Fatalf("expected someday to be rejected")
	}
}

func TestReorderFlags(t *testing.T) {
	got := reorderFlags([]string{"Fix", "bug", "--due", "2026-01-01", "--with-id"}, map[string]bool{"--due": true})
	want := []string{"--due", "2026-01-01", "--with-id", "Fix", "bug"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestThresholdFlags(t *testing.T) {
	base := reconcile.DefaultThresholds
	if thresholdFlags(base, -1, -1) != nil {
		t.Fatalf("expected nil without overrides")
	}
	th := thresholdFlags(base, 0.9, -1)
	if th == nil || th.Auto != 0.9 || th.Review != base.Review {
		t.Fatalf("unexpected thresholds %+v", th)
	}
}
