package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amirbrooks/task-tracker/internal/config"
	"github.com/amirbrooks/task-tracker/internal/store"
)

const meetingsBoard = `# Weekly TODOs

## 🔴 Q1
- [ ] **Team sync** meeting::123 status::scheduled #Ops
- [ ] **Private 1:1** meeting::124 status::scheduled #private
- [ ] **Buffer block** meeting::125 status::blocked #Ops
- [ ] **Canceled sync** meeting::126 status::cancelled #Ops
- [x] **Retro** meeting::127 #Ops
- [ ] **Not a meeting**
`

var refNow = time.Date(2026, 2, 12, 9, 30, 0, 0, time.UTC)

func newWorkspace(t *testing.T, board, note string) (*store.Workspace, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkFile = filepath.Join(dir, "Weekly TODOs.md")
	cfg.DailyNotesDir = filepath.Join(dir, "Daily")
	if err := os.WriteFile(cfg.WorkFile, []byte(board), 0o644); err != nil {
		t.Fatalf("write board: %v", err)
	}
	if note != "" {
		if err := os.MkdirAll(cfg.DailyNotesDir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(cfg.DailyNotesDir, "2026-02-12.md"), []byte(note), 0o644); err != nil {
			t.Fatalf("write note: %v", err)
		}
	}
	return store.Open(cfg, store.Options{Now: func() time.Time { return refNow }}), cfg
}

func TestSyncListsMeetings(t *testing.T) {
	ws, _ := newWorkspace(t, meetingsBoard, "")
	b, err := ws.LoadBoard(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	payload := Sync(b)
	if payload.Command != "calendar sync" || !payload.Idempotent {
		t.Fatalf("unexpected envelope %+v", payload)
	}
	if len(payload.Meetings) != 5 {
		t.Fatalf("expected 5 meetings, got %d", len(payload.Meetings))
	}
	got := map[string]Meeting{}
	for _, m := range payload.Meetings {
		got[m.MeetingID] = m
	}
	if got["123"].Status != StatusScheduled || got["123"].Department != "Ops" {
		t.Fatalf("unexpected team sync %+v", got["123"])
	}
	if !got["124"].Private || got["124"].Title != "Private 1:1" {
		t.Fatalf("expected private meeting kept and flagged, got %+v", got["124"])
	}
	if got["125"].Status != StatusBlocked || got["126"].Status != StatusCanceled || got["127"].Status != StatusDone {
		t.Fatalf("unexpected statuses %+v", got)
	}
}

func TestPrimitiveLifecycleMap(t *testing.T) {
	ws, _ := newWorkspace(t, meetingsBoard, "")
	b, _ := ws.LoadBoard(false)
	p := Primitive(b)
	if p.SchemaVersion != "v1" || p.Command != "calendar-sync" || !p.Idempotent {
		t.Fatalf("unexpected envelope %+v", p)
	}
	if len(p.LifecycleMap) != 4 {
		t.Fatalf("expected every status present, got %v", p.LifecycleMap)
	}
	if ids := p.LifecycleMap[StatusScheduled]; len(ids) != 2 || ids[0] != "123" || ids[1] != "124" {
		t.Fatalf("unexpected scheduled ids %v", ids)
	}
}

func TestResolveMarksLoggedMeetingsDone(t *testing.T) {
	ws, cfg := newWorkspace(t, meetingsBoard, "## ✅ Done\n- 09:30 ✅ Team sync\n- 10:00 ✅ Buffer block\n")
	p, err := Resolve(ws, false, "today", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Command != "calendar resolve" || p.Window != "today" || !p.Idempotent {
		t.Fatalf("unexpected envelope %+v", p)
	}
	status := map[string]string{}
	for _, m := range p.Resolved {
		status[m.Title] = m.Status
	}
	if status["Team sync"] != StatusDone {
		t.Fatalf("expected team sync done, got %q", status["Team sync"])
	}
	if status["Buffer block"] != StatusBlocked || status["Canceled sync"] != StatusCanceled {
		t.Fatalf("expected blocked and canceled kept, got %v", status)
	}
	b, _ := os.ReadFile(cfg.WorkFile)
	if string(b) != meetingsBoard {
		t.Fatalf("expected board untouched without apply")
	}

	applied, err := Resolve(ws, false, "today", true)
	if err != nil {
		t.Fatalf("resolve apply: %v", err)
	}
	if applied.Applied != 1 {
		t.Fatalf("expected 1 line rewritten, got %d", applied.Applied)
	}
	b, _ = os.ReadFile(cfg.WorkFile)
	if !strings.Contains(string(b), "- [ ] **Team sync** meeting::123 status::done #Ops") {
		t.Fatalf("expected status rewritten, got:\n%s", b)
	}
	again, _ := Resolve(ws, false, "today", true)
	if again.Applied != 0 {
		t.Fatalf("expected second apply to change nothing, got %d", again.Applied)
	}
}

func TestResolveRejectsUnknownWindow(t *testing.T) {
	ws, _ := newWorkspace(t, meetingsBoard, "")
	if _, err := Resolve(ws, false, "month", false); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
