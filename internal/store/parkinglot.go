package store

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var (
	parkingLotHeaderRe = regexp.MustCompile(`(?i)^##\s+(?:🅿\x{FE0F}?\s*)?Parking Lot\b`)
	parkingItemRe      = regexp.MustCompile(`^- \[( |x|X)\] (.+)$`)
	parkingDeptRe      = regexp.MustCompile(`#([A-Z]\w+)`)
	parkingFieldRe     = regexp.MustCompile(`\s*(?:created|stale)::\S+`)
	parkingTagRe       = regexp.MustCompile(`\s*#\w+`)
	boldRe             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	objectivesHeaderRe = regexp.MustCompile(`(?i)^##\s+Objectives\b`)
	urgentHeaderRe     = regexp.MustCompile(`^##\s+🔴`)
)

const parkingLotHeader = "## 🅿️ Parking Lot"

// ParkingItem is one numbered parking-lot entry.
type ParkingItem struct {
	Number     int             `json:"id"`
	Title      string          `json:"title"`
	Done       bool            `json:"done,omitempty"`
	Department string          `json:"department,omitempty"`
	Priority   taskmd.Priority `json:"priority,omitempty"`
	Created    string          `json:"created,omitempty"`
	AgeDays    *int            `json:"age_days,omitempty"`
	Stale      bool            `json:"stale"`
	Raw        string          `json:"-"`

	index int
}

// ParkingLot is the parsed parking-lot section of a board.
type ParkingLot struct {
	Items      []ParkingItem `json:"items"`
	Cap        int           `json:"cap"`
	StaleDays  int           `json:"stale_days"`
	StaleCount int           `json:"stale_count"`

	header int
	end    int
}

func findParkingLot(lines []string) (int, int) {
	start := taskmd.FindHeader(lines, func(l string) bool { return parkingLotHeaderRe.MatchString(l) })
	if start < 0 {
		return -1, -1
	}
	end := start + 1
	for end < len(lines) && !strings.HasPrefix(lines[end], "## ") {
		end++
	}
	return start, end
}

func parseParkingItem(line string, today time.Time, staleDays int) (ParkingItem, bool) {
	m := parkingItemRe.FindStringSubmatch(line)
	if m == nil {
		return ParkingItem{}, false
	}
	body := strings.TrimSpace(m[2])
	it := ParkingItem{Done: m[1] != " ", Raw: line}
	if f := taskmd.ParseFields(body); f != nil {
		it.Created = f["created"]
	}
	if d := parkingDeptRe.FindStringSubmatch(body); d != nil {
		if _, isPriority := taskmd.ParsePriority(d[1]); !isPriority {
			it.Department = d[1]
		}
	}
	it.Priority = taskmd.PriorityTag(taskmd.Tags(strings.ToLower(body)))

	title := boldRe.ReplaceAllString(body, "$1")
	title = parkingFieldRe.ReplaceAllString(title, "")
	title = parkingTagRe.ReplaceAllString(title, "")
	it.Title = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(title), "—"))

	if created, ok := taskmd.ParseDate(it.Created); ok {
		age := taskmd.DaysBetween(created, today)
		it.AgeDays = &age
		it.Stale = age >= staleDays
	}
	return it, true
}

func (w *Workspace) parkingLot(lines []string) (*ParkingLot, bool) {
	start, end := findParkingLot(lines)
	if start < 0 {
		return nil, false
	}
	pl := &ParkingLot{Cap: w.cfg.ParkingLotCap, StaleDays: w.cfg.ParkingLotStaleDays, Items: []ParkingItem{}, header: start, end: end}
	today := w.Today()
	for i := start + 1; i < end; i++ {
		it, ok := parseParkingItem(lines[i], today, pl.StaleDays)
		if !ok {
			continue
		}
		it.Number = len(pl.Items) + 1
		it.index = i
		if it.Stale {
			pl.StaleCount++
		}
		pl.Items = append(pl.Items, it)
	}
	return pl, true
}

// Stale returns the stale items.
func (pl *ParkingLot) Stale() []ParkingItem {
	out := []ParkingItem{}
	for _, it := range pl.Items {
		if it.Stale {
			out = append(out, it)
		}
	}
	return out
}

func (pl *ParkingLot) item(n int) (ParkingItem, error) {
	if n < 1 || n > len(pl.Items) {
		return ParkingItem{}, fmt.Errorf("%w: item #%d not found in Parking Lot", ErrNotFound, n)
	}
	return pl.Items[n-1], nil
}

// ParkingLot loads the board's parking-lot section.
func (w *Workspace) ParkingLot(personal bool) (*ParkingLot, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	pl, ok := w.parkingLot(taskmd.Lines(b.Content))
	if !ok {
		return nil, fmt.Errorf("%w: no Parking Lot section found", ErrNotFound)
	}
	return pl, nil
}

// ParkingAddInput describes a new parking-lot item.
type ParkingAddInput struct {
	Personal   bool
	Title      string
	Department string
	Priority   string
}

// ParkingAddResult reports an added item and the new count.
type ParkingAddResult struct {
	Line  string `json:"line"`
	Count int    `json:"count"`
	Cap   int    `json:"cap"`
}

// AddToParkingLot appends an item after the last existing one, refusing when
// the lot is at its cap.
func (w *Workspace) AddToParkingLot(in ParkingAddInput) (*ParkingAddResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	prio := taskmd.PriorityLow
	if in.Priority != "" {
		p, ok := taskmd.ParsePriority(in.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, in.Priority)
		}
		prio = p
	}
	b, err := w.LoadBoard(in.Personal)
	if err != nil {
		return nil, err
	}
	lines := taskmd.Lines(b.Content)
	pl, ok := w.parkingLot(lines)
	if !ok {
		return nil, fmt.Errorf("%w: no Parking Lot section found in tasks file", ErrNotFound)
	}
	if len(pl.Items) >= pl.Cap {
		return nil, fmt.Errorf("%w: Parking lot full (%d/%d). Drop an item first.", ErrCapReached, len(pl.Items), pl.Cap)
	}

	line := "- [ ] **" + title + "**"
	if dept := strings.TrimPrefix(strings.TrimSpace(in.Department), "#"); dept != "" {
		line += " #" + dept
	}
	if prio != taskmd.PriorityLow {
		line += " #" + string(prio)
	}
	line += " created::" + w.todayStr()

	at := pl.header + 1
	for i := pl.header + 1; i < pl.end; i++ {
		if strings.HasPrefix(lines[i], "- [") {
			at = taskmd.BlockEnd(lines, i)
		}
	}
	lines = append(lines[:at], append([]string{line}, lines[at:]...)...)
	if err := w.saveBoard(b, taskmd.Join(lines), "parking-lot-add"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "parking-lot-add", "file": b.Path, "task": title}).Info("parking lot item added")
	return &ParkingAddResult{Line: line, Count: len(pl.Items) + 1, Cap: pl.Cap}, nil
}

// promotionIndex is where a promoted line goes: under ## Objectives, else
// under the first 🔴 header, else just above the parking lot.
func promotionIndex(lines []string) int {
	for i, l := range lines {
		if objectivesHeaderRe.MatchString(l) || urgentHeaderRe.MatchString(l) {
			at := i + 1
			for at < len(lines) && strings.TrimSpace(lines[at]) == "" {
				at++
			}
			return at
		}
	}
	if start, _ := findParkingLot(lines); start >= 0 {
		return start
	}
	return len(lines)
}

func promotedLine(raw string) string {
	return strings.TrimRight(parkingFieldRe.ReplaceAllString(raw, ""), " \t")
}

// cutBlock removes the item at idx and its children from lines. It returns
// the remaining lines and the removed block, whose first line has lost its
// parking fields.
func cutBlock(lines []string, idx int) ([]string, []string) {
	end := taskmd.BlockEnd(lines, idx)
	block := append([]string{}, lines[idx:end]...)
	block[0] = promotedLine(block[0])
	rest := append(append([]string{}, lines[:idx]...), lines[end:]...)
	return rest, block
}

// PromoteFromParkingLot moves item n, with any sub-bullets, to the top of the
// active work.
func (w *Workspace) PromoteFromParkingLot(personal bool, n int) (*ParkingItem, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	lines := taskmd.Lines(b.Content)
	pl, ok := w.parkingLot(lines)
	if !ok {
		return nil, fmt.Errorf("%w: no Parking Lot section found", ErrNotFound)
	}
	it, err := pl.item(n)
	if err != nil {
		return nil, err
	}
	lines, block := cutBlock(lines, it.index)
	at := promotionIndex(lines)
	lines = append(lines[:at:at], append(block, lines[at:]...)...)
	if err := w.saveBoard(b, taskmd.Join(lines), "parking-lot-promote"); err != nil {
		return nil, err
	}
	w.log.WithFields(logrus.Fields{"op": "parking-lot-promote", "file": b.Path, "task": it.Title}).Info("parking lot item promoted")
	return &it, nil
}

// DropFromParkingLot archives item n as dropped, then removes it and its
// sub-bullets.
func (w *Workspace) DropFromParkingLot(personal bool, n int) (*ParkingItem, string, error) {
	b, err := w.LoadBoard(personal)
	if err != nil {
		return nil, "", err
	}
	lines := taskmd.Lines(b.Content)
	pl, ok := w.parkingLot(lines)
	if !ok {
		return nil, "", fmt.Errorf("%w: no Parking Lot section found", ErrNotFound)
	}
	it, err := pl.item(n)
	if err != nil {
		return nil, "", err
	}
	archive, err := w.appendDropped(it.Department, it.Title)
	if err != nil {
		return nil, "", fmt.Errorf("archive dropped item (board unchanged): %w", err)
	}
	lines, _ = cutBlock(lines, it.index)
	if err := w.saveBoard(b, taskmd.Join(lines), "parking-lot-drop"); err != nil {
		return nil, "", err
	}
	w.log.WithFields(logrus.Fields{"op": "parking-lot-drop", "file": b.Path, "task": it.Title}).Info("parking lot item dropped")
	return &it, archive, nil
}

// FormatParkingLot renders the numbered listing with age and stale markers.
func FormatParkingLot(pl *ParkingLot) string {
	if len(pl.Items) == 0 {
		return fmt.Sprintf("Parking Lot is empty. [0/%d items]", pl.Cap)
	}
	var b strings.Builder
	for _, it := range pl.Items {
		fmt.Fprintf(&b, "%d. %s", it.Number, it.Title)
		if it.Department != "" {
			b.WriteString(" #" + it.Department)
		}
		if it.Priority != taskmd.PriorityNone && it.Priority != taskmd.PriorityLow {
			b.WriteString(" #" + string(it.Priority))
		}
		if it.AgeDays != nil {
			fmt.Fprintf(&b, " (%d days)", *it.AgeDays)
		}
		if it.Stale {
			b.WriteString(" — STALE")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "[%d/%d items, %d stale]", len(pl.Items), pl.Cap, pl.StaleCount)
	return b.String()
}
