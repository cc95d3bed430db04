package taskmd

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RecurrenceType string

const (
	RecurDaily    RecurrenceType = "daily"
	RecurWeekly   RecurrenceType = "weekly"
	RecurBiweekly RecurrenceType = "biweekly"
	RecurMonthly  RecurrenceType = "monthly"
	RecurWeekday  RecurrenceType = "every_weekday"
)

var ErrInvalidRecurrence = errors.New("taskmd: invalid recurrence")

// RecurrenceRule is a parsed recur:: value.
type RecurrenceRule struct {
	Type    RecurrenceType
	Weekday time.Weekday
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseRecurrence accepts daily, weekly, biweekly, monthly and "every <weekday>".
func ParseRecurrence(s string) (RecurrenceRule, error) {
	v := strings.ToLower(strings.Join(strings.Fields(s), " "))
	switch v {
	case "daily", "every day":
		return RecurrenceRule{Type: RecurDaily}, nil
	case "weekly", "every week":
		return RecurrenceRule{Type: RecurWeekly}, nil
	case "biweekly", "every 2 weeks", "every other week":
		return RecurrenceRule{Type: RecurBiweekly}, nil
	case "monthly", "every month":
		return RecurrenceRule{Type: RecurMonthly}, nil
	}
	if day, ok := strings.CutPrefix(v, "every "); ok {
		if wd, ok := weekdays[day]; ok {
			return RecurrenceRule{Type: RecurWeekday, Weekday: wd}, nil
		}
	}
	return RecurrenceRule{}, fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
}

// Next returns the occurrence following base.
func (r RecurrenceRule) Next(base time.Time) time.Time {
	base = Day(base)
	switch r.Type {
	case RecurDaily:
		return base.AddDate(0, 0, 1)
	case RecurWeekly:
		return base.AddDate(0, 0, 7)
	case RecurBiweekly:
		return base.AddDate(0, 0, 14)
	case RecurMonthly:
		return addMonthClamped(base)
	case RecurWeekday:
		delta := (int(r.Weekday) - int(base.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return base.AddDate(0, 0, delta)
	}
	return base
}

// addMonthClamped moves to the same day next month, clamped to that month's last day.
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	firstNext := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	last := lastDayOfMonth(firstNext)
	if d > last {
		d = last
	}
	return time.Date(firstNext.Year(), firstNext.Month(), d, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextDue computes the next due date of a recurring task completed on completed.
// The current due date is the base when present.
func NextDue(t *Task, completed time.Time) (string, error) {
	rule, err := ParseRecurrence(t.Recur)
	if err != nil {
		return "", err
	}
	base := completed
	if d, ok := ParseDate(t.Due); ok {
		base = d
	}
	return FormatDate(rule.Next(base)), nil
}
