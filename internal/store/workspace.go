package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"

	"github.com/amirbrooks/task-tracker/internal/config"
	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

var timeNow = func() time.Time { return time.Now() }

// Workspace is every file the tracker reads and writes, resolved from Config.
type Workspace struct {
	cfg config.Config
	log *logrus.Entry
	now func() time.Time
}

// Options tune Open. Zero values mean a discarding logger and the wall clock.
type Options struct {
	Log *logrus.Entry
	// Now overrides the clock; the reference date is derived from it.
	Now func() time.Time
}

func Open(cfg config.Config, opts Options) *Workspace {
	ws := &Workspace{cfg: cfg, log: opts.Log, now: opts.Now}
	if ws.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		ws.log = logrus.NewEntry(l)
	}
	if ws.now == nil {
		ws.now = timeNow
	}
	return ws
}

func (w *Workspace) Config() config.Config { return w.cfg }

// Now is the workspace clock.
func (w *Workspace) Now() time.Time { return w.now() }

// Today is the reference date at midnight UTC.
func (w *Workspace) Today() time.Time { return taskmd.Day(w.now()) }

func (w *Workspace) todayStr() string { return taskmd.FormatDate(w.Today()) }

func (w *Workspace) dialectHint() taskmd.Dialect {
	d, _ := taskmd.ParseDialect(w.cfg.Format)
	return d
}

// Board is one parsed task file.
type Board struct {
	Path     string
	Personal bool
	Content  string
	Tasks    *taskmd.Collection
}

// LoadBoard reads and parses the work or personal board.
func (w *Workspace) LoadBoard(personal bool) (*Board, error) {
	path := w.cfg.BoardFile(personal)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: tasks file %s", ErrMissingFile, path)
		}
		return nil, err
	}
	board := &Board{Path: path, Personal: personal}
	w.setContent(board, string(b))
	return board, nil
}

func (w *Workspace) setContent(b *Board, content string) {
	b.Content = content
	b.Tasks = taskmd.Parse(content, taskmd.Options{
		Hint:     w.dialectHint(),
		Personal: b.Personal,
		Today:    w.Today(),
	})
}

// saveBoard writes content and reparses the board in place.
func (w *Workspace) saveBoard(b *Board, content string, op string) error {
	if err := atomicWriteFile(b.Path, []byte(content), 0o644); err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{"op": op, "file": b.Path}).Error("write failed")
		return err
	}
	w.setContent(b, content)
	return nil
}

func readOptional(path string) (string, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

// atomicWriteFile replaces path via a temp file and rename. Readers see the old
// or the new content, never a partial write; concurrent writers race and the
// last rename wins.
func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	if errors.Is(statErr, os.ErrNotExist) {
		return os.Chmod(path, perm)
	}
	return nil
}
