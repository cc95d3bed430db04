package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirbrooks/task-tracker/internal/reconcile"
	"github.com/amirbrooks/task-tracker/internal/store"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

const SchemaVersion = "v1"

// Meeting lifecycle states carried in status::.
const (
	StatusScheduled = "scheduled"
	StatusBlocked   = "blocked"
	StatusCanceled  = "canceled"
	StatusDone      = "done"
)

var Statuses = []string{StatusScheduled, StatusBlocked, StatusCanceled, StatusDone}

// Meeting is a board task carrying meeting::<id>.
type Meeting struct {
	Title      string         `json:"title"`
	MeetingID  string         `json:"meeting_id"`
	Status     string         `json:"status"`
	Section    taskmd.Section `json:"section"`
	Department string         `json:"department,omitempty"`
	Private    bool           `json:"private"`
	Checked    bool           `json:"checked"`
}

func normalizeStatus(raw string, checked bool) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case StatusScheduled, StatusBlocked, StatusCanceled, StatusDone:
		return s
	case "cancelled":
		return StatusCanceled
	}
	if checked {
		return StatusDone
	}
	return StatusScheduled
}

// Meetings lists every meeting task of c in document order. A checked task
// without an explicit status counts as done.
func Meetings(c *taskmd.Collection) []Meeting {
	out := []Meeting{}
	for _, t := range c.All {
		if t.Meeting == "" {
			continue
		}
		dept := c.Department(t)
		if dept == "" {
			dept = taskmd.DepartmentTag(t.Tags)
		}
		m := Meeting{
			Title:      t.Title,
			MeetingID:  t.Meeting,
			Status:     normalizeStatus(t.Status, t.Done),
			Section:    t.Section,
			Department: dept,
			Checked:    t.Done,
		}
		for _, tag := range t.Tags {
			if strings.EqualFold(tag, "private") {
				m.Private = true
			}
		}
		out = append(out, m)
	}
	return out
}

type SyncPayload struct {
	Command    string    `json:"command"`
	Board      string    `json:"board"`
	Idempotent bool      `json:"idempotent"`
	Meetings   []Meeting `json:"meetings"`
}

// Sync reads the meeting records of a board. It never writes.
func Sync(b *store.Board) *SyncPayload {
	return &SyncPayload{
		Command:    "calendar sync",
		Board:      b.Path,
		Idempotent: true,
		Meetings:   Meetings(b.Tasks),
	}
}

type PrimitivePayload struct {
	SchemaVersion string              `json:"schema_version"`
	Command       string              `json:"command"`
	Meetings      []Meeting           `json:"meetings"`
	LifecycleMap  map[string][]string `json:"lifecycle_map"`
	Idempotent    bool                `json:"idempotent"`
}

// Primitive is the versioned calendar-sync payload: meetings plus a map from
// every lifecycle status to the ids currently in it.
func Primitive(b *store.Board) *PrimitivePayload {
	meetings := Meetings(b.Tasks)
	lifecycle := make(map[string][]string, len(Statuses))
	for _, s := range Statuses {
		lifecycle[s] = []string{}
	}
	for _, m := range meetings {
		lifecycle[m.Status] = append(lifecycle[m.Status], m.MeetingID)
	}
	return &PrimitivePayload{
		SchemaVersion: SchemaVersion,
		Command:       "calendar-sync",
		Meetings:      meetings,
		LifecycleMap:  lifecycle,
		Idempotent:    true,
	}
}

type ResolvePayload struct {
	Command    string    `json:"command"`
	Window     string    `json:"window"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Idempotent bool      `json:"idempotent"`
	Applied    int       `json:"applied"`
	Resolved   []Meeting `json:"resolved"`
}

// Window resolves "today" or "week" (Monday through today).
func Window(window string, today time.Time) (time.Time, time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(window)) {
	case "", "today":
		return today, today, nil
	case "week":
		return taskmd.WeekStart(today), today, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: window must be today or week, got %q", store.ErrInvalid, window)
}

// Resolve marks scheduled meetings whose title shows up in the window's done
// log as done. Blocked and canceled meetings keep their status. With apply the
// board's status:: fields are rewritten; running it again changes nothing.
func Resolve(ws *store.Workspace, personal bool, window string, apply bool) (*ResolvePayload, error) {
	if window == "" {
		window = "today"
	}
	start, end, err := Window(window, ws.Today())
	if err != nil {
		return nil, err
	}
	b, err := ws.LoadBoard(personal)
	if err != nil {
		return nil, err
	}
	done := map[string]bool{}
	for _, action := range ws.CompletedActions(start, end) {
		done[reconcile.Normalize(action)] = true
	}

	meetings := Meetings(b.Tasks)
	resolved := map[string]bool{}
	for i := range meetings {
		m := &meetings[i]
		if m.Status == StatusScheduled && done[reconcile.Normalize(m.Title)] {
			m.Status = StatusDone
			resolved[m.MeetingID] = true
		}
	}
	payload := &ResolvePayload{
		Command:    "calendar resolve",
		Window:     strings.ToLower(window),
		Start:      taskmd.FormatDate(start),
		End:        taskmd.FormatDate(end),
		Idempotent: true,
		Resolved:   meetings,
	}
	if !apply || len(resolved) == 0 {
		return payload, nil
	}
	n, err := ws.RewriteTasks(personal, "calendar-resolve", func(t *taskmd.Task) (string, bool) {
		if !resolved[t.Meeting] {
			return "", false
		}
		return taskmd.SetField(t.RawLine, "status", StatusDone), true
	})
	if err != nil {
		return nil, err
	}
	payload.Applied = n
	return payload, nil
}
