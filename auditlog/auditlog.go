// Package auditlog implements the append-only log of mutating and administrative actions.
// The log lives in a local file, either as newline-delimited text or as a JSON array, and
// is mirrored as a whole to a remote blob after every append. The local append order is
// authoritative: mirror pushes may fail or lag without affecting it. A JSON log that no
// longer parses is moved aside to a .corrupt-<time> file and a new log is started.
package auditlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/atomicfile"
	"github.com/teamkill/tkscot/remote"
	"github.com/teamkill/tkscot/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Format is the on-disk format of the log file
type Format string

// Supported formats. A deployment uses a single one
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	// ErrMirrorSkipped is returned by Mirror when there is nothing to push
	ErrMirrorSkipped = errors.New("log mirror skipped")
	// ErrNoLog is returned by Export when there is no local log yet
	ErrNoLog = errors.New("no log entries recorded yet")

	errCorrupt = errors.New("corrupt log")
)

// ParseFormat returns the Format matching name
func ParseFormat(name string) (f Format, err error) {
	switch Format(name) {
	case FormatText, FormatJSON:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown log format [%s], expected [%s] or [%s]", name, FormatText, FormatJSON)
	}
}

// Log is the audit log. It's safe for concurrent use
type Log struct {
	path     string
	format   Format
	mirror   remote.BlobClient
	remoteID string
	logger   slog.Logger
	now      func() time.Time

	// fileLock guards the local file. It's never held during a remote call
	fileLock sync.Mutex
	// pushLock serializes mirror pushes so that the last push always carries the latest content
	pushLock sync.Mutex
}

// Option defines an option for a Log
type Option func(*Log)

// OptionLogger sets the logger used to report mirror failures
func OptionLogger(logger slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// OptionClock sets the clock used to timestamp entries without a time
func OptionClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns a new Log writing to path in the given format and mirroring to the remoteID
// blob. A nil mirror or an empty remoteID means local only
func New(path string, format Format, mirror remote.BlobClient, remoteID string, opts ...Option) (l *Log, err error) {
	if _, err = ParseFormat(string(format)); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log directory for [%s]", path)
	}

	l = &Log{path: path, format: format, mirror: mirror, remoteID: remoteID, logger: slog.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Path returns the path of the local log file
func (l *Log) Path() string {
	return l.path
}

// Record appends the entry to the local file only. Entries with a zero time are stamped
// with the current time
func (l *Log) Record(e Entry) (err error) {
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	e.Time = e.Time.UTC().Truncate(time.Second)

	l.fileLock.Lock()
	defer l.fileLock.Unlock()

	if l.format == FormatJSON {
		return l.appendJSON(e)
	}

	return l.appendText(e)
}

func (l *Log) appendText(e Entry) (err error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, atomicfile.DefaultPerm)
	if err != nil {
		return errors.Wrapf(err, "failed to open log [%s]", l.path)
	}

	if _, err = f.WriteString(formatLine(e) + "\n"); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to append to log [%s]", l.path)
	}

	return f.Close()
}

func (l *Log) appendJSON(e Entry) (err error) {
	entries, err := l.readEntries()
	if errors.Is(err, errCorrupt) {
		entries, err = []Entry{}, l.setAside(err)
	}
	if err != nil {
		return err
	}

	content, err := json.MarshalIndent(append(entries, e), "", "  ")
	if err != nil {
		return err
	}

	return atomicfile.WriteFile(l.path, content)
}

// setAside renames an unparseable log so that new entries start a fresh file. It must be
// called with fileLock held
func (l *Log) setAside(cause error) (err error) {
	aside := fmt.Sprintf("%s.corrupt-%s", l.path, l.now().UTC().Format("20060102T150405Z"))
	if err = os.Rename(l.path, aside); err != nil {
		return errors.Wrapf(err, "failed to move corrupt log [%s] aside", l.path)
	}

	l.logger.Printf("Warning: %v, moved it to [%s] and started a new log", cause, aside)
	return nil
}

// Mirror pushes a copy of the whole local log to the remote blob. ErrMirrorSkipped is
// returned when mirroring is disabled or the local log is absent or empty
func (l *Log) Mirror(ctx context.Context) (err error) {
	if !remote.Enabled(l.mirror, l.remoteID) {
		return errors.Wrap(ErrMirrorSkipped, "remote mirroring disabled")
	}

	l.pushLock.Lock()
	defer l.pushLock.Unlock()

	staged, err := l.stageForPush()
	if err != nil {
		return err
	}
	defer os.Remove(staged)

	if err = l.mirror.Push(ctx, staged, l.remoteID); err != nil {
		return errors.Wrapf(err, "failed to mirror log [%s] to [%s]", l.path, l.remoteID)
	}

	l.logger.Debugf("Mirrored log [%s] to [%s]", l.path, l.remoteID)
	return nil
}

// stageForPush copies the local log to a staging file so that the push never observes a
// partially appended line
func (l *Log) stageForPush() (staged string, err error) {
	l.fileLock.Lock()
	defer l.fileLock.Unlock()

	content, err := os.ReadFile(l.path)
	if os.IsNotExist(err) || (err == nil && len(content) == 0) {
		return "", errors.Wrapf(ErrMirrorSkipped, "local log [%s] is absent or empty", l.path)
	} else if err != nil {
		return "", errors.Wrapf(err, "failed to read log [%s]", l.path)
	}

	staged = filepath.Join(filepath.Dir(l.path), ".push-"+filepath.Base(l.path))
	if err = atomicfile.WriteFile(staged, content); err != nil {
		return "", err
	}

	return staged, nil
}

// Append records the entry locally and then mirrors the log. A mirror failure is logged
// and never reported to the caller
func (l *Log) Append(ctx context.Context, e Entry) (err error) {
	if err = l.Record(e); err != nil {
		return err
	}

	if merr := l.Mirror(ctx); merr != nil && !errors.Is(merr, ErrMirrorSkipped) {
		l.logger.Printf("Warning: %v", merr)
	}

	return nil
}

// Tail returns the last n entries, oldest first
func (l *Log) Tail(n int) (entries []Entry, err error) {
	if n <= 0 {
		return []Entry{}, nil
	}

	l.fileLock.Lock()
	defer l.fileLock.Unlock()

	entries, err = l.readEntries()
	if err != nil {
		return nil, err
	}

	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	return entries, nil
}

// readEntries reads every entry of the local log. It must be called with fileLock held
func (l *Log) readEntries() (entries []Entry, err error) {
	content, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read log [%s]", l.path)
	}

	if l.format == FormatJSON {
		entries = []Entry{}
		if len(bytes.TrimSpace(content)) == 0 {
			return entries, nil
		}

		if err = json.Unmarshal(content, &entries); err != nil {
			return nil, errors.Wrapf(errCorrupt, "failed to parse log [%s]: %v", l.path, err)
		}

		return entries, nil
	}

	entries = []Entry{}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			entries = append(entries, parseLine(line))
		}
	}

	return entries, scanner.Err()
}

// Load seeds the local log from its remote copy so that a fresh host doesn't overwrite the
// remote history on its first append. The remote copy only replaces a smaller local log
func (l *Log) Load(ctx context.Context) {
	if remote.Enabled(l.mirror, l.remoteID) {
		l.refresh(ctx)
	}
}

// Export refreshes the local log from the remote copy when possible and returns the local
// log content verbatim. The remote copy only replaces the local log when it is at least as
// large so that a stale mirror never truncates local history
func (l *Log) Export(ctx context.Context) (content []byte, err error) {
	if remote.Enabled(l.mirror, l.remoteID) {
		l.refresh(ctx)
	}

	l.fileLock.Lock()
	defer l.fileLock.Unlock()

	content, err = os.ReadFile(l.path)
	if os.IsNotExist(err) || (err == nil && len(content) == 0) {
		return nil, ErrNoLog
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read log [%s]", l.path)
	}

	return content, nil
}

func (l *Log) refresh(ctx context.Context) {
	staged := l.path + ".remote"
	defer os.Remove(staged)

	if err := l.mirror.Pull(ctx, l.remoteID, staged); errors.Is(err, remote.ErrNotFound) {
		l.logger.Debugf("No remote log at [%s], keeping local copy", l.remoteID)
		return
	} else if err != nil {
		l.logger.Printf("Warning: failed to refresh log from [%s], keeping local copy: %v", l.remoteID, err)
		return
	}

	l.fileLock.Lock()
	defer l.fileLock.Unlock()

	stagedSize, _, err := atomicfile.Size(staged)
	if err != nil {
		l.logger.Printf("Warning: failed to stat refreshed log [%s]: %v", staged, err)
		return
	}

	localSize, _, err := atomicfile.Size(l.path)
	if err != nil {
		l.logger.Printf("Warning: failed to stat log [%s]: %v", l.path, err)
		return
	}

	if stagedSize < localSize {
		l.logger.Debugf("Remote log [%s] is behind local log (%d < %d bytes), keeping local copy", l.remoteID, stagedSize, localSize)
		return
	}

	if err = os.Rename(staged, l.path); err != nil {
		l.logger.Printf("Warning: failed to replace log [%s] with remote copy: %v", l.path, err)
	}
}
