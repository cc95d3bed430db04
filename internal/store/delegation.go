package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

const delegationTemplate = "# Delegated Tasks\n\n## Active\n\n## Awaiting Follow-up\n\n## Completed\n"

var (
	delegationItemRe = regexp.MustCompile(`^- \[( |x|X)\] (.+)$`)
	assigneeRe       = regexp.MustCompile(`→\s*(\S+)`)
	arrowTailRe      = regexp.MustCompile(`\s*→.*`)
	followupRe       = regexp.MustCompile(`\[?followup::\S+\]?`)
)

// Delegation statuses.
const (
	DelegationActive   = "active"
	DelegationOverdue  = "overdue"
	DelegationAwaiting = "awaiting_followup"
)

// DelegatedItem is one line of the delegation file.
type DelegatedItem struct {
	Number     int    `json:"id"`
	Title      string `json:"title"`
	Assignee   string `json:"assignee,omitempty"`
	Delegated  string `json:"delegated,omitempty"`
	Followup   string `json:"followup,omitempty"`
	Completed  string `json:"completed,omitempty"`
	Department string `json:"department,omitempty"`
	Overdue    bool   `json:"overdue"`
	Status     string `json:"status"`
	Raw        string `json:"-"`

	index int
}

func delegationField(body, key string) string {
	m := regexp.MustCompile(`\[?` + key + `::([^\s\]]+)\]?`).FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseDelegatedItem(line string) (DelegatedItem, bool) {
	m := delegationItemRe.FindStringSubmatch(line)
	if m == nil {
		return DelegatedItem{}, false
	}
	body := strings.TrimSpace(m[2])
	it := DelegatedItem{
		Raw:       line,
		Delegated: delegationField(body, "delegated"),
		Followup:  delegationField(body, "followup"),
		Completed: delegationField(body, "completed"),
	}
	if a := assigneeRe.FindStringSubmatch(body); a != nil {
		it.Assignee = a[1]
	}
	if d := parkingDeptRe.FindStringSubmatch(body); d != nil {
		it.Department = d[1]
	}
	title := boldRe.ReplaceAllString(body, "$1")
	it.Title = strings.TrimSpace(arrowTailRe.ReplaceAllString(title, ""))
	return it, true
}

func sectionBounds(lines []string, name string) (int, int) {
	re := regexp.MustCompile(`(?i)^##\s+` + regexp.QuoteMeta(name) + `\b`)
	start := taskmd.FindHeader(lines, re.MatchString)
	if start < 0 {
		return -1, -1
	}
	end := start + 1
	for end < len(lines) && !strings.HasPrefix(lines[end], "## ") {
		end++
	}
	return start, end
}

// lastItemIndex is the insertion point after the last "- [" item of a section
// and its sub-bullets.
func lastItemIndex(lines []string, start, end int) int {
	at := start + 1
	for i := start + 1; i < end; i++ {
		if strings.HasPrefix(lines[i], "- [") {
			at = taskmd.BlockEnd(lines, i)
		}
	}
	return at
}

type delegationDoc struct {
	path  string
	lines []string
	items []DelegatedItem
}

// loadDelegations reads the delegation file, creating it from the template
// when create is set. Items of Active then Awaiting Follow-up are numbered
// from 1.
func (w *Workspace) loadDelegations(create bool) (*delegationDoc, error) {
	path := w.cfg.DelegationFile
	content, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !create {
			return &delegationDoc{path: path, lines: taskmd.Lines(delegationTemplate)}, nil
		}
		if err := atomicWriteFile(path, []byte(delegationTemplate), 0o644); err != nil {
			return nil, err
		}
		content = delegationTemplate
	}
	doc := &delegationDoc{path: path, lines: taskmd.Lines(content)}
	today := w.todayStr()
	for _, sec := range []string{"Active", "Awaiting Follow-up"} {
		start, end := sectionBounds(doc.lines, sec)
		if start < 0 {
			continue
		}
		for i := start + 1; i < end; i++ {
			it, ok := parseDelegatedItem(doc.lines[i])
			if !ok {
				continue
			}
			it.index = i
			it.Number = len(doc.items) + 1
			it.Overdue = it.Followup != "" && it.Followup < today
			switch {
			case sec != "Active":
				it.Status = DelegationAwaiting
			case it.Overdue:
				it.Status = DelegationOverdue
			default:
				it.Status = DelegationActive
			}
			doc.items = append(doc.items, it)
		}
	}
	return doc, nil
}

func (d *delegationDoc) item(n int) (DelegatedItem, error) {
	if n < 1 || n > len(d.items) {
		return DelegatedItem{}, fmt.Errorf("%w: item #%d not found in Active section", ErrNotFound, n)
	}
	return d.items[n-1], nil
}

func (w *Workspace) saveDelegations(d *delegationDoc, op string) error {
	if err := atomicWriteFile(d.path, []byte(taskmd.Join(d.lines)), 0o644); err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{"op": op, "file": d.path}).Error("write failed")
		return err
	}
	return nil
}

// Delegations lists open delegated items, optionally only overdue ones.
func (w *Workspace) Delegations(overdueOnly bool) ([]DelegatedItem, error) {
	d, err := w.loadDelegations(false)
	if err != nil {
		return nil, err
	}
	out := []DelegatedItem{}
	for _, it := range d.items {
		if overdueOnly && !it.Overdue {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// DelegateInput describes a hand-off.
type DelegateInput struct {
	Title      string
	Assignee   string
	Followup   string
	Department string
}

// Delegate appends an item to ## Active.
func (w *Workspace) Delegate(in DelegateInput) (*DelegatedItem, error) {
	title := strings.TrimSpace(in.Title)
	assignee := strings.TrimSpace(in.Assignee)
	if title == "" || assignee == "" {
		return nil, fmt.Errorf("%w: title and assignee are required", ErrInvalid)
	}
	followup := in.Followup
	if followup == "" {
		followup = taskmd.FormatDate(w.Today().AddDate(0, 0, 7))
	} else if _, ok := taskmd.ParseDate(followup); !ok {
		return nil, fmt.Errorf("%w: followup must be YYYY-MM-DD, got %q", ErrInvalid, followup)
	}
	d, err := w.loadDelegations(true)
	if err != nil {
		return nil, err
	}
	start, end := sectionBounds(d.lines, "Active")
	if start < 0 {
		return nil, fmt.Errorf("%w: no ## Active section in %s", ErrInvalid, d.path)
	}
	today := w.todayStr()
	line := fmt.Sprintf("- [ ] **%s** → %s [delegated::%s] [followup::%s]", title, assignee, today, followup)
	dept := strings.TrimPrefix(strings.TrimSpace(in.Department), "#")
	if dept != "" {
		line += " #" + dept
	}
	at := lastItemIndex(d.lines, start, end)
	d.lines = append(d.lines[:at:at], append([]string{line}, d.lines[at:]...)...)
	if err := w.saveDelegations(d, "delegate"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "delegate", "file": d.path, "task": title, "assignee": assignee}).Info("task delegated")
	return &DelegatedItem{Title: title, Assignee: assignee, Delegated: today, Followup: followup, Department: dept, Status: DelegationActive, Raw: line}, nil
}

// CompleteDelegation moves item n and its sub-bullets to ## Completed with a
// completed:: stamp.
func (w *Workspace) CompleteDelegation(n int) (*DelegatedItem, error) {
	d, err := w.loadDelegations(false)
	if err != nil {
		return nil, err
	}
	it, err := d.item(n)
	if err != nil {
		return nil, err
	}
	today := w.todayStr()
	end := taskmd.BlockEnd(d.lines, it.index)
	block := append([]string{}, d.lines[it.index:end]...)
	block[0] = strings.TrimRight(strings.Replace(it.Raw, "- [ ]", "- [x]", 1), " \t") + " [completed::" + today + "]"
	lines := append(append([]string{}, d.lines[:it.index]...), d.lines[end:]...)
	if start, end := sectionBounds(lines, "Completed"); start >= 0 {
		at := lastItemIndex(lines, start, end)
		lines = append(lines[:at:at], append(block, lines[at:]...)...)
	} else {
		lines = taskmd.AppendSection(lines, "## Completed", block)
	}
	d.lines = lines
	if err := w.saveDelegations(d, "delegated-complete"); err != nil {
		return nil, err
	}
	it.Completed = today
	w.log.WithFields(logrus.Fields{"op": "delegated-complete", "file": d.path, "task": it.Title}).Info("delegation completed")
	return &it, nil
}

// ExtendDelegation rewrites the follow-up date of item n.
func (w *Workspace) ExtendDelegation(n int, followup string) (*DelegatedItem, error) {
	if _, ok := taskmd.ParseDate(followup); !ok {
		return nil, fmt.Errorf("%w: followup must be YYYY-MM-DD, got %q", ErrInvalid, followup)
	}
	d, err := w.loadDelegations(false)
	if err != nil {
		return nil, err
	}
	it, err := d.item(n)
	if err != nil {
		return nil, err
	}
	line := followupRe.ReplaceAllString(it.Raw, "[followup::"+followup+"]")
	if line == it.Raw && !followupRe.MatchString(it.Raw) {
		line = strings.TrimRight(it.Raw, " \t") + " [followup::" + followup + "]"
	}
	d.lines[it.index] = line
	if err := w.saveDelegations(d, "delegated-extend"); err != nil {
		return nil, err
	}
	it.Followup = followup
	it.Overdue = followup < w.todayStr()
	it.Raw = line
	return &it, nil
}

// TakeBack returns item n to the board. The board is written first so a
// failed write leaves the delegation in place.
func (w *Workspace) TakeBack(personal bool, n int) (*DelegatedItem, *AddResult, error) {
	d, err := w.loadDelegations(false)
	if err != nil {
		return nil, nil, err
	}
	it, err := d.item(n)
	if err != nil {
		return nil, nil, err
	}
	added, err := w.AddTask(AddTaskInput{
		Personal:   personal,
		Title:      it.Title,
		Priority:   string(taskmd.PriorityHigh),
		Department: it.Department,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("return task to board (delegation kept): %w", err)
	}
	end := taskmd.BlockEnd(d.lines, it.index)
	d.lines = append(d.lines[:it.index:it.index], d.lines[end:]...)
	if err := w.saveDelegations(d, "delegated-take-back"); err != nil {
		return nil, nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "delegated-take-back", "file": d.path, "task": it.Title}).Info("delegation taken back")
	return &it, added, nil
}
