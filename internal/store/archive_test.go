package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const objectivesBoard = `# Weekly Objectives

## Objectives
- [ ] Launch pricing page #Sales #high
  - [x] Draft copy ✅ 2026-02-10
  - [ ] Review copy
- [x] Hire designer #HR ✅ 2026-02-11
`

func TestArchiveWeekGroupsByDepartment(t *testing.T) {
	ws, cfg := newTestWorkspace(t, objectivesBoard)
	res, err := ws.Archive(false, false)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.Kind != "weekly" || res.Archived != 2 {
		t.Fatalf("expected 2 weekly archived, got %+v", res)
	}
	if res.ByDepartment["Sales"] != 1 || res.ByDepartment["HR/People"] != 1 {
		t.Fatalf("unexpected department counts %+v", res.ByDepartment)
	}
	archive := readFile(t, filepath.Join(cfg.ArchiveDir, "2026-W07.md"))
	for _, want := range []string{
		"# Done Archive — Week of Feb 09, 2026 (W07)\n",
		"## Sales\n- [x] Draft copy ✅ 2026-02-10\n",
		"## HR/People\n- [x] Hire designer ✅ 2026-02-11\n",
	} {
		if !strings.Contains(archive, want) {
			t.Fatalf("expected %q in archive, got:\n%s", want, archive)
		}
	}
	board := readFile(t, cfg.WorkFile)
	if strings.Contains(board, "Draft copy") || strings.Contains(board, "Hire designer") {
		t.Fatalf("expected done tasks removed, got:\n%s", board)
	}
	if !strings.Contains(board, "- [ ] Launch pricing page #Sales #high\n  - [ ] Review copy") {
		t.Fatalf("expected open work kept, got:\n%s", board)
	}
}

func TestArchiveWeekAppendsToExistingFile(t *testing.T) {
	ws, cfg := newTestWorkspace(t, objectivesBoard)
	path := filepath.Join(cfg.ArchiveDir, "2026-W07.md")
	writeFile(t, path, "# Done Archive — Week of Feb 09, 2026 (W07)\n\n## Sales\n- [x] Earlier deal ✅ 2026-02-09\n")
	if _, err := ws.Archive(false, false); err != nil {
		t.Fatalf("archive: %v", err)
	}
	archive := readFile(t, path)
	if !strings.Contains(archive, "## Sales\n- [x] Earlier deal ✅ 2026-02-09\n- [x] Draft copy ✅ 2026-02-10\n") {
		t.Fatalf("expected entry appended under existing department, got:\n%s", archive)
	}
	if strings.Count(archive, "## Sales") != 1 {
		t.Fatalf("expected single Sales section, got:\n%s", archive)
	}
}

func TestArchiveDryRunLeavesFiles(t *testing.T) {
	ws, cfg := newTestWorkspace(t, objectivesBoard)
	res, err := ws.Archive(false, true)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.Archived != 2 {
		t.Fatalf("expected 2 to archive, got %d", res.Archived)
	}
	if got := readFile(t, cfg.WorkFile); got != objectivesBoard {
		t.Fatalf("expected board unchanged")
	}
}

func TestArchiveQuarterForObsidianBoards(t *testing.T) {
	ws, cfg := newTestWorkspace(t, "## 🔴 Q1\n- [ ] **Open**\n- [x] **Shipped it** ✅ 2026-02-10\n")
	res, err := ws.Archive(false, false)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.Kind != "quarterly" || res.File != filepath.Join(cfg.ArchiveDir, "ARCHIVE-2026-Q1.md") {
		t.Fatalf("unexpected result %+v", res)
	}
	want := "# Task Archive - 2026-Q1\n\n## Archived 2026-02-12\n\n- ✅ **Shipped it**\n"
	if got := readFile(t, res.File); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if board := readFile(t, cfg.WorkFile); board != "## 🔴 Q1\n- [ ] **Open**\n" {
		t.Fatalf("unexpected board %q", board)
	}
}

func writeWeeklyArchives(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "2026-W06.md"), "# Done Archive — Week of Feb 02, 2026 (W06)\n\n## Sales\n- [x] Close deal A ✅ 2026-02-03\n")
	writeFile(t, filepath.Join(dir, "2026-W07.md"), "# Done Archive — Week of Feb 09, 2026 (W07)\n\n## Sales\n- [x] Close deal A ✅ 2026-02-03\n- [x] Close deal B ✅ 2026-02-10\n\n## Ops\n- [x] Renew lease ✅ 2026-02-11\n")
	writeFile(t, filepath.Join(dir, "2026-W10.md"), "# Done Archive — Week of Mar 02, 2026 (W10)\n\n## Ops\n- [x] March thing ✅ 2026-03-03\n")
}

func TestConsolidateMonth(t *testing.T) {
	ws, cfg := newTestWorkspace(t, "")
	writeWeeklyArchives(t, cfg.ArchiveDir)
	res, err := ws.Consolidate("2026-02", false)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if len(res.Weeks) != 2 || res.Weeks[0] != "2026-W06" || res.Weeks[1] != "2026-W07" {
		t.Fatalf("unexpected weeks %v", res.Weeks)
	}
	if res.Items != 3 {
		t.Fatalf("expected 3 unique items, got %d", res.Items)
	}
	want := "# Done Archive — February 2026\n\n## Sales\n- [x] Close deal A ✅ 2026-02-03\n- [x] Close deal B ✅ 2026-02-10\n\n## Ops\n- [x] Renew lease ✅ 2026-02-11\n"
	if got := readFile(t, res.File); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if _, err := ws.Consolidate("Feb", false); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := ws.Consolidate("2025-06", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveStatsAndSearch(t *testing.T) {
	ws, cfg := newTestWorkspace(t, "")
	writeWeeklyArchives(t, cfg.ArchiveDir)
	stats, err := ws.Stats("week")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Start != "2026-02-09" || stats.End != "2026-02-15" {
		t.Fatalf("unexpected range %s..%s", stats.Start, stats.End)
	}
	if stats.Total != 2 || stats.ByDepartment["Sales"] != 1 || stats.ByDepartment["Ops"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	quarter, _ := ws.Stats("quarter")
	if quarter.Total != 5 {
		t.Fatalf("expected 5 completions in the quarter, got %d", quarter.Total)
	}
	if _, err := ws.Stats("decade"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	hits, err := ws.Search("RENEW")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].File != "2026-W07.md" || hits[0].Line != 8 {
		t.Fatalf("unexpected hits %+v", hits)
	}
}
