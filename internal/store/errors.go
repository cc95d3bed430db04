package store

import (
	"errors"
	"strings"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrInvalid     = errors.New("invalid")
	ErrMissingFile = errors.New("missing file")
	ErrCapReached  = errors.New("cap reached")
)

// MatchConflictError provides details when a query matches multiple tasks.
// It still satisfies errors.Is(err, ErrConflict).
type MatchConflictError struct {
	Reason  string
	Matches []*taskmd.Task
}

func (e *MatchConflictError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "conflict"
	}
	return "conflict: " + e.Reason
}

func (e *MatchConflictError) Is(target error) bool {
	return target == ErrConflict
}
