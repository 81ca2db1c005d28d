// Package backup implements the periodic safety-net push of the store and log files to
// their remote mirrors. It runs independently of the mutation path and a failed run never
// prevents the next one.
package backup

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/counter"
	"github.com/teamkill/tkscot/slog"
	"strings"
	"time"
)

const (
	// DefaultInterval is the default time between two backups
	DefaultInterval = 15 * time.Minute
	// DefaultMinStoreBytes is the default minimum size of a store file worth pushing
	DefaultMinStoreBytes = 3
)

// StoreMirrorer is implemented by the counter store
type StoreMirrorer interface {
	Mirror(ctx context.Context, minBytes int64) (err error)
	MirrorTo(ctx context.Context, remoteID string, minBytes int64) (err error)
}

// LogMirrorer is implemented by the audit log
type LogMirrorer interface {
	Mirror(ctx context.Context) (err error)
}

// Status is the result of one step of a backup run
type Status int

// Step results
const (
	Pushed Status = iota
	Skipped
	Failed
)

var statusNames = map[Status]string{Pushed: "pushed", Skipped: "skipped", Failed: "failed"}

// String returns the name of the status
func (s Status) String() string {
	return statusNames[s]
}

// Step is the outcome of pushing one file
type Step struct {
	Name   string
	Status Status
	Err    error
}

// Report holds the outcome of every step of a run
type Report struct {
	Started time.Time
	Steps   []Step
}

// Failed returns true if any step failed
func (r Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == Failed {
			return true
		}
	}

	return false
}

// String summarizes the report on one line
func (r Report) String() string {
	parts := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		if s.Err != nil && s.Status == Failed {
			parts = append(parts, fmt.Sprintf("%s: %s (%v)", s.Name, s.Status, s.Err))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", s.Name, s.Status))
		}
	}

	return strings.Join(parts, ", ")
}

// Task pushes the store and log files to their remote mirrors
type Task struct {
	store         StoreMirrorer
	log           LogMirrorer
	backupBlobID  string
	minStoreBytes int64
	logger        slog.Logger
}

// Option defines an option for a Task
type Option func(*Task)

// OptionBackupBlob adds a push of the store file to an extra backup blob
func OptionBackupBlob(remoteID string) Option {
	return func(t *Task) {
		t.backupBlobID = remoteID
	}
}

// OptionMinStoreBytes sets the minimum size of a store file worth pushing
func OptionMinStoreBytes(minBytes int64) Option {
	return func(t *Task) {
		t.minStoreBytes = minBytes
	}
}

// OptionLogger sets the logger
func OptionLogger(logger slog.Logger) Option {
	return func(t *Task) {
		t.logger = logger
	}
}

// New returns a new backup Task. log may be nil when there's no log to mirror
func New(store StoreMirrorer, log LogMirrorer, opts ...Option) (t *Task) {
	t = &Task{store: store, log: log, minStoreBytes: DefaultMinStoreBytes, logger: slog.Discard()}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Run executes one backup iteration. Every failure is logged and reported, never returned
func (t *Task) Run(ctx context.Context) (r Report) {
	r = Report{Started: time.Now()}

	r.Steps = append(r.Steps, t.step("store", func() error {
		return t.store.Mirror(ctx, t.minStoreBytes)
	}, counter.ErrMirrorSkipped))

	if t.backupBlobID != "" {
		r.Steps = append(r.Steps, t.step("store backup", func() error {
			return t.store.MirrorTo(ctx, t.backupBlobID, t.minStoreBytes)
		}, counter.ErrMirrorSkipped))
	}

	if t.log != nil {
		r.Steps = append(r.Steps, t.step("log", func() error {
			return t.log.Mirror(ctx)
		}, auditlog.ErrMirrorSkipped))
	}

	if r.Failed() {
		t.logger.Printf("Warning: backup completed with failures: %s", r)
	} else {
		t.logger.Debugf("Backup completed: %s", r)
	}

	return r
}

// step runs one push, recovering from panics so that a broken backend can't stop the
// scheduler
func (t *Task) step(name string, push func() error, skipped error) (s Step) {
	s = Step{Name: name}

	defer func() {
		if p := recover(); p != nil {
			s.Status = Failed
			s.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	err := push()
	switch {
	case err == nil:
		s.Status = Pushed
	case errors.Is(err, skipped):
		s.Status = Skipped
		s.Err = err
		t.logger.Debugf("Backup of %s skipped: %v", name, err)
	default:
		s.Status = Failed
		s.Err = err
	}

	return s
}
