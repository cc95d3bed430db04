package calendar

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNoCalendars means no calendars are configured, so there is nothing to pull.
var ErrNoCalendars = errors.New("no calendars configured")

// Event is one timed calendar entry.
type Event struct {
	Calendar string    `json:"calendar"`
	Summary  string    `json:"summary"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Line renders e as "9:30 AM — Summary".
func (e Event) Line() string {
	return e.Start.Format("3:04 PM") + " — " + e.Summary
}

// Source lists the timed events of one day.
type Source interface {
	Events(ctx context.Context, day time.Time) ([]Event, error)
}

// Lines formats events in start order.
func Lines(events []Event) []string {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	out := make([]string, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e.Line())
	}
	return out
}
