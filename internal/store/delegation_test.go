package store

import (
	"errors"
	"strings"
	"testing"
)

const delegationSample = `# Delegated Tasks

## Active
- [ ] **Check merch delivery** → Alex [delegated::2026-02-02] [followup::2026-02-09] #Ops
- [ ] **CRM research** → Lilla [delegated::2026-02-11] [followup::2026-02-15] #Dev

## Awaiting Follow-up

## Completed
- [x] **Reschedule demos** → Lilla [delegated::2026-01-25] [completed::2026-01-26] #Sales
`

func newDelegationWorkspace(t *testing.T, board string) (*Workspace, string, string) {
	t.Helper()
	ws, cfg := newTestWorkspace(t, board)
	writeFile(t, cfg.DelegationFile, delegationSample)
	return ws, cfg.DelegationFile, cfg.WorkFile
}

func TestDelegationsListStatus(t *testing.T) {
	ws, _, _ := newDelegationWorkspace(t, "")
	items, err := ws.Delegations(false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 open items, got %d", len(items))
	}
	first := items[0]
	if first.Number != 1 || first.Title != "Check merch delivery" || first.Assignee != "Alex" || first.Department != "Ops" {
		t.Fatalf("unexpected first item %+v", first)
	}
	if first.Status != DelegationOverdue || !first.Overdue {
		t.Fatalf("expected first item overdue, got %+v", first)
	}
	if items[1].Status != DelegationActive || items[1].Followup != "2026-02-15" {
		t.Fatalf("unexpected second item %+v", items[1])
	}

	overdue, _ := ws.Delegations(true)
	if len(overdue) != 1 || overdue[0].Title != "Check merch delivery" {
		t.Fatalf("expected only the overdue item, got %+v", overdue)
	}
}

func TestDelegateCreatesFileFromTemplate(t *testing.T) {
	ws, cfg := newTestWorkspace(t, "")
	if _, err := ws.Delegate(DelegateInput{Title: "Book venue", Assignee: "Sam", Department: "#Ops"}); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	want := "# Delegated Tasks\n\n## Active\n- [ ] **Book venue** → Sam [delegated::2026-02-12] [followup::2026-02-19] #Ops\n\n## Awaiting Follow-up"
	if got := readFile(t, cfg.DelegationFile); !strings.HasPrefix(got, want) {
		t.Fatalf("expected %q prefix, got:\n%s", want, got)
	}
}

func TestCompleteDelegationMovesToCompleted(t *testing.T) {
	ws, path, _ := newDelegationWorkspace(t, "")
	if _, err := ws.CompleteDelegation(1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	content := readFile(t, path)
	done := "- [x] **Check merch delivery** → Alex [delegated::2026-02-02] [followup::2026-02-09] #Ops [completed::2026-02-12]"
	if strings.Index(content, done) < strings.Index(content, "- [x] **Reschedule demos**") {
		t.Fatalf("expected completed line after existing completions, got:\n%s", content)
	}
	if strings.Count(content, "Check merch delivery") != 1 {
		t.Fatalf("expected item moved, got:\n%s", content)
	}
	if _, err := ws.CompleteDelegation(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtendDelegation(t *testing.T) {
	ws, path, _ := newDelegationWorkspace(t, "")
	it, err := ws.ExtendDelegation(1, "2026-03-01")
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if it.Overdue {
		t.Fatalf("expected item no longer overdue")
	}
	if !strings.Contains(readFile(t, path), "→ Alex [delegated::2026-02-02] [followup::2026-03-01] #Ops") {
		t.Fatalf("expected followup rewritten")
	}
	if _, err := ws.ExtendDelegation(1, "soon"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestTakeBackWritesBoardFirst(t *testing.T) {
	ws, path, board := newDelegationWorkspace(t, "# Weekly Objectives\n\n## Objectives\n")
	if _, _, err := ws.TakeBack(false, 1); err != nil {
		t.Fatalf("take back: %v", err)
	}
	if !strings.Contains(readFile(t, board), "## Objectives\n- [ ] Check merch delivery #Ops #high\n") {
		t.Fatalf("expected task on the board, got:\n%s", readFile(t, board))
	}
	if strings.Contains(readFile(t, path), "Check merch delivery") {
		t.Fatalf("expected delegation removed")
	}
}

func TestTakeBackKeepsDelegationWhenBoardFails(t *testing.T) {
	ws, path, _ := newDelegationWorkspace(t, "")
	if _, _, err := ws.TakeBack(false, 1); !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	if got := readFile(t, path); got != delegationSample {
		t.Fatalf("expected delegation file unchanged, got:\n%s", got)
	}
}

func TestCompleteDelegationMovesSubBullets(t *testing.T) {
	ws, path, _ := newDelegationWorkspace(t, "")
	sample := strings.Replace(delegationSample, "#Ops\n", "#Ops\n  - tracking 1Z999\n", 1)
	sample = strings.Replace(sample, "#Sales\n", "#Sales\n  - moved to March\n", 1)
	writeFile(t, path, sample)
	if _, err := ws.CompleteDelegation(1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	content := readFile(t, path)
	want := "  - moved to March\n- [x] **Check merch delivery** → Alex [delegated::2026-02-02] [followup::2026-02-09] #Ops [completed::2026-02-12]\n  - tracking 1Z999\n"
	if !strings.Contains(content, want) {
		t.Fatalf("expected item and sub-bullet after the last completed block, got:\n%s", content)
	}
	if strings.Count(content, "tracking 1Z999") != 1 {
		t.Fatalf("expected sub-bullet moved, got:\n%s", content)
	}
	if !strings.Contains(content, "## Active\n- [ ] **CRM research**") {
		t.Fatalf("expected Active to hold only CRM research, got:\n%s", content)
	}
}

func TestTakeBackRemovesSubBullets(t *testing.T) {
	ws, path, _ := newDelegationWorkspace(t, "# Weekly Objectives\n\n## Objectives\n")
	writeFile(t, path, strings.Replace(delegationSample, "#Ops\n", "#Ops\n  - tracking 1Z999\n", 1))
	if _, _, err := ws.TakeBack(false, 1); err != nil {
		t.Fatalf("take back: %v", err)
	}
	content := readFile(t, path)
	if strings.Contains(content, "tracking 1Z999") {
		t.Fatalf("expected sub-bullet removed with its item, got:\n%s", content)
	}
	if !strings.Contains(content, "## Active\n- [ ] **CRM research**") {
		t.Fatalf("expected CRM research kept, got:\n%s", content)
	}
}
