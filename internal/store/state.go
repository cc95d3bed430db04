package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

// StateResult reports a lifecycle transition of one board task.
type StateResult struct {
	Action  string       `json:"action"`
	Task    *taskmd.Task `json:"task"`
	Line    string       `json:"line,omitempty"`
	Archive string       `json:"archive,omitempty"`
	// Delegation is set by delegate.
	Delegation *DelegatedItem `json:"delegation,omitempty"`
}

func (w *Workspace) selectOpen(personal bool, query string) (*Board, *taskmd.Task, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, nil, err
	}
	t, err := SelectTask(openCandidates(b.Tasks), query)
	if err != nil {
		w.log.WithFields(logrus.Fields{"op": "state", "query": query}).WithError(err).Debug("no unique match")
		return nil, nil, err
	}
	return b, t, nil
}

// Pause stamps paused::<today> and, when until is set, pause_until::<until>.
func (w *Workspace) Pause(personal bool, query, until string) (*StateResult, error) {
	if until != "" {
		if _, ok := taskmd.ParseDate(until); !ok {
			return nil, fmt.Errorf("%w: --until must be YYYY-MM-DD, got %q", ErrInvalid, until)
		}
	}
	b, t, err := w.selectOpen(personal, query)
	if err != nil {
		return nil, err
	}
	line := taskmd.SetField(t.RawLine, "paused", w.todayStr())
	if until != "" {
		line = taskmd.SetField(line, "pause_until", until)
	}
	updated, _ := taskmd.ReplaceLine(b.Content, t, line)
	if err := w.saveBoard(b, updated, "pause"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "pause", "file": b.Path, "task": t.Title}).Info("task paused")
	return &StateResult{Action: "pause", Task: t, Line: line}, nil
}

// Resume clears the pause fields of a paused task.
func (w *Workspace) Resume(personal bool, query string) (*StateResult, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	var paused []*taskmd.Task
	for _, t := range openCandidates(b.Tasks) {
		if t.Paused != "" || t.PauseUntil != "" {
			paused = append(paused, t)
		}
	}
	t, err := SelectTask(paused, query)
	if err != nil {
		return nil, err
	}
	line := strings.TrimRight(taskmd.RemoveField(taskmd.RemoveField(t.RawLine, "pause_until"), "paused"), " \t")
	updated, _ := taskmd.ReplaceLine(b.Content, t, line)
	if err := w.saveBoard(b, updated, "resume"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "resume", "file": b.Path, "task": t.Title}).Info("task resumed")
	return &StateResult{Action: "resume", Task: t, Line: line}, nil
}

func dedent(block []string) []string {
	if len(block) == 0 {
		return block
	}
	base := taskmd.IndentWidth(block[0])
	out := make([]string, len(block))
	for i, l := range block {
		cut := base
		if w := taskmd.IndentWidth(l); w < cut {
			cut = w
		}
		out[i] = trimIndent(l, cut)
	}
	return out
}

func trimIndent(line string, width int) string {
	n := 0
	for i, r := range line {
		if n >= width || (r != ' ' && r != '\t') {
			return line[i:]
		}
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return ""
}

// Backlog moves a task and its children into the parking lot, stamped with
// created::<today>. The section is created when missing.
func (w *Workspace) Backlog(personal bool, query string) (*StateResult, error) {
	b, t, err := w.selectOpen(personal, query)
	if err != nil {
		return nil, err
	}
	if t.Section == taskmd.SectionParkingLot {
		return nil, fmt.Errorf("%w: %q is already in the Parking Lot", ErrConflict, t.Title)
	}
	lines := taskmd.Lines(b.Content)
	if pl, ok := w.parkingLot(lines); ok && len(pl.Items) >= pl.Cap {
		return nil, fmt.Errorf("%w: Parking lot full (%d/%d). Drop an item first.", ErrCapReached, len(pl.Items), pl.Cap)
	}
	block, ok := taskmd.TaskBlock(b.Content, t)
	if !ok {
		return nil, fmt.Errorf("%w: task line moved while moving %q", ErrConflict, t.Title)
	}
	block = dedent(block)
	if t.Created == "" {
		block[0] = taskmd.SetField(block[0], "created", w.todayStr())
	}
	content, _ := taskmd.RemoveTask(b.Content, t)
	lines = taskmd.Lines(content)
	if start, _ := findParkingLot(lines); start >= 0 {
		lines = taskmd.AppendToSection(lines, start, block)
	} else {
		lines = taskmd.AppendSection(lines, parkingLotHeader, block)
	}
	if err := w.saveBoard(b, taskmd.Join(lines), "backlog"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "backlog", "file": b.Path, "task": t.Title}).Info("task moved to parking lot")
	return &StateResult{Action: "backlog", Task: t, Line: block[0]}, nil
}

// Drop archives a task as dropped, then removes it and its children.
func (w *Workspace) Drop(personal bool, query string) (*StateResult, error) {
	b, t, err := w.selectOpen(personal, query)
	if err != nil {
		return nil, err
	}
	archive, err := w.appendDropped(b.Tasks.Department(t), taskmd.StripTags(t.Title))
	if err != nil {
		return nil, fmt.Errorf("archive dropped task (board unchanged): %w", err)
	}
	updated, _ := taskmd.RemoveTask(b.Content, t)
	if err := w.saveBoard(b, updated, "drop"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "drop", "file": b.Path, "task": t.Title}).Info("task dropped")
	return &StateResult{Action: "drop", Task: t, Archive: archive}, nil
}

// DelegateTask hands a board task to assignee. The delegation file is
// written before the task leaves the board.
func (w *Workspace) DelegateTask(personal bool, query, assignee, followup string) (*StateResult, error) {
	b, t, err := w.selectOpen(personal, query)
	if err != nil {
		return nil, err
	}
	item, err := w.Delegate(DelegateInput{
		Title:      taskmd.StripTags(t.Title),
		Assignee:   assignee,
		Followup:   followup,
		Department: b.Tasks.Department(t),
	})
	if err != nil {
		return nil, fmt.Errorf("write delegation (board unchanged): %w", err)
	}
	updated, _ := taskmd.RemoveTask(b.Content, t)
	if err := w.saveBoard(b, updated, "delegate"); err != nil {
		return nil, err
	}
	return &StateResult{Action: "delegate", Task: t, Delegation: item}, nil
}

// ReviewBacklog returns parking-lot items at least staleDays old, oldest
// first. staleDays <= 0 uses the configured threshold.
func (w *Workspace) ReviewBacklog(personal bool, staleDays int) ([]ParkingItem, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	return w.staleBacklog(taskmd.Lines(b.Content), staleDays), nil
}

func (w *Workspace) staleBacklog(lines []string, staleDays int) []ParkingItem {
	pl, ok := w.parkingLot(lines)
	if !ok {
		return []ParkingItem{}
	}
	if staleDays <= 0 {
		staleDays = pl.StaleDays
	}
	out := []ParkingItem{}
	for _, it := range pl.Items {
		if it.Done || it.AgeDays == nil || *it.AgeDays < staleDays {
			continue
		}
		it.Stale = true
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created < out[j].Created })
	return out
}

// PromoteFromBacklog promotes up to limit of the oldest stale parking-lot
// items in one write.
func (w *Workspace) PromoteFromBacklog(personal bool, limit int) ([]ParkingItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: --cap must be positive", ErrInvalid)
	}
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	lines := taskmd.Lines(b.Content)
	stale := w.staleBacklog(lines, 0)
	if len(stale) > limit {
		stale = stale[:limit]
	}
	if len(stale) == 0 {
		return stale, nil
	}
	drop := map[int]bool{}
	var promoted []string
	for _, it := range stale {
		end := taskmd.BlockEnd(lines, it.index)
		for i := it.index; i < end; i++ {
			drop[i] = true
		}
		promoted = append(promoted, promotedLine(lines[it.index]))
		promoted = append(promoted, lines[it.index+1:end]...)
	}
	kept := make([]string, 0, len(lines))
	for i, l := range lines {
		if !drop[i] {
			kept = append(kept, l)
		}
	}
	at := promotionIndex(kept)
	kept = append(kept[:at:at], append(promoted, kept[at:]...)...)
	if err := w.saveBoard(b, taskmd.Join(kept), "promote-from-backlog"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "promote-from-backlog", "file": b.Path, "count": len(stale)}).Info("stale items promoted")
	return stale, nil
}
