package store

import (
	"errors"
	"strings"
	"testing"
)

func TestParkingLotListing(t *testing.T) {
	ws, _ := newTestWorkspace(t, stateBoard)
	pl, err := ws.ParkingLot(false)
	if err != nil {
		t.Fatalf("parking lot: %v", err)
	}
	if len(pl.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(pl.Items))
	}
	it := pl.Items[0]
	if it.Title != "Old task" || it.Department != "Ops" || it.Priority != "low" || !it.Stale {
		t.Fatalf("unexpected item %+v", it)
	}
	want := "1. Old task #Ops (407 days) — STALE\n[1/25 items, 1 stale]"
	if got := FormatParkingLot(pl); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := len(pl.Stale()); got != 1 {
		t.Fatalf("expected 1 stale item, got %d", got)
	}
}

func TestParkingLotEmptyAndMissing(t *testing.T) {
	ws, _ := newTestWorkspace(t, "## 🅿️ Parking Lot\n\n## Other\n")
	pl, err := ws.ParkingLot(false)
	if err != nil {
		t.Fatalf("parking lot: %v", err)
	}
	if got := FormatParkingLot(pl); got != "Parking Lot is empty. [0/25 items]" {
		t.Fatalf("unexpected empty listing %q", got)
	}
	none, _ := newTestWorkspace(t, "## 🔴 Q1\n")
	if _, err := none.ParkingLot(false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParkingLotAddAndCap(t *testing.T) {
	ws, cfg := newTestWorkspace(t, stateBoard)
	res, err := ws.AddToParkingLot(ParkingAddInput{Title: "Try new CRM", Department: "Sales", Priority: "high"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Count != 2 || res.Cap != 25 {
		t.Fatalf("expected 2/25, got %d/%d", res.Count, res.Cap)
	}
	board := readFile(t, cfg.WorkFile)
	if !strings.Contains(board, "created::2025-01-01\n- [ ] **Try new CRM** #Sales #high created::2026-02-12") {
		t.Fatalf("expected item after last entry, got:\n%s", board)
	}

	ws.cfg.ParkingLotCap = 2
	_, err = ws.AddToParkingLot(ParkingAddInput{Title: "One more"})
	if !errors.Is(err, ErrCapReached) {
		t.Fatalf("expected ErrCapReached, got %v", err)
	}
	if !strings.Contains(err.Error(), "Parking lot full (2/2). Drop an item first.") {
		t.Fatalf("unexpected cap message %q", err.Error())
	}
}

func TestParkingLotPromoteAndDrop(t *testing.T) {
	ws, cfg := newTestWorkspace(t, stateBoard+"- [ ] **Second** #Dev created::2026-02-10\n")
	it, err := ws.PromoteFromParkingLot(false, 2)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if it.Title != "Second" {
		t.Fatalf("expected Second promoted, got %q", it.Title)
	}
	board := readFile(t, cfg.WorkFile)
	if !strings.Contains(board, "## 🔴 Q1\n- [ ] **Second** #Dev\n") {
		t.Fatalf("expected promoted line under Q1, got:\n%s", board)
	}

	dropped, archive, err := ws.DropFromParkingLot(false, 1)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if dropped.Title != "Old task" {
		t.Fatalf("expected Old task dropped, got %q", dropped.Title)
	}
	if !strings.Contains(readFile(t, archive), "## Ops\n- [x] ~~Old task~~ (dropped) ✅ 2026-02-12") {
		t.Fatalf("expected dropped entry under Ops")
	}
	if strings.Contains(readFile(t, cfg.WorkFile), "Old task") {
		t.Fatalf("expected Old task removed")
	}
	if _, _, err := ws.DropFromParkingLot(false, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPromotionFallsBackAboveParkingLot(t *testing.T) {
	lines := []string{"# Board", "", "## 🅿️ Parking Lot", "- [ ] x"}
	if got := promotionIndex(lines); got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}
}

func TestParkingLotAddGoesAfterSubBullets(t *testing.T) {
	ws, cfg := newTestWorkspace(t, stateBoard+"  - old note\n")
	if _, err := ws.AddToParkingLot(ParkingAddInput{Title: "Try new CRM"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	board := readFile(t, cfg.WorkFile)
	if !strings.Contains(board, "created::2025-01-01\n  - old note\n- [ ] **Try new CRM** created::2026-02-12\n") {
		t.Fatalf("expected new item after the last item's sub-bullets, got:\n%s", board)
	}
}

func TestParkingLotDropRemovesSubBullets(t *testing.T) {
	ws, cfg := newTestWorkspace(t, stateBoard+"  - old note\n- [ ] **Second** #Dev created::2026-02-10\n")
	if _, _, err := ws.DropFromParkingLot(false, 1); err != nil {
		t.Fatalf("drop: %v", err)
	}
	board := readFile(t, cfg.WorkFile)
	if strings.Contains(board, "old note") {
		t.Fatalf("expected sub-bullet dropped with its item, got:\n%s", board)
	}
	if !strings.HasSuffix(board, "## 🅿️ Parking Lot\n- [ ] **Second** #Dev created::2026-02-10\n") {
		t.Fatalf("expected Second kept, got:\n%s", board)
	}
}
