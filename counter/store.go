// Package counter implements the counter store: the in-memory mapping of user ids to
// counts, its local JSON file and its remote mirror.
//
// The Store is the only owner of the mapping. Every mutation goes through it and is
// serialized by a single lock that also covers the local file write, the remote push and
// the backup mirror. Reads never block: they see the latest immutable Snapshot.
package counter

import (
	"bytes"
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/atomicfile"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/remote"
	"github.com/teamkill/tkscot/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnknownField is returned when a field doesn't exist in the store's schema
	ErrUnknownField = errors.New("unknown field for store schema")
	// ErrEmptyUserID is returned when a mutation targets an empty user id
	ErrEmptyUserID = errors.New("user id must not be empty")
	// ErrNegativeValue is returned when setting a count below zero
	ErrNegativeValue = errors.New("counts can't be negative")
	// ErrMirrorSkipped is returned by Mirror when the local file isn't worth pushing
	ErrMirrorSkipped = errors.New("store mirror skipped")
)

// Status is the outcome of a mutation
type Status int

// Mutation outcomes
const (
	// Applied means the mapping changed
	Applied Status = iota
	// NotModified means the mutation had no effect (i.e. decrementing a zero count)
	NotModified
)

// String returns the name of the status
func (s Status) String() string {
	if s == NotModified {
		return "not modified"
	}

	return "applied"
}

// Result holds the outcome of a mutation. PersistErr is set when the mutation was applied
// in memory but couldn't be written locally or pushed remotely. It's informational: the
// in-memory mapping is never rolled back
type Result struct {
	Record     Record
	Value      int
	Status     Status
	PersistErr error
}

// Standing is one line of a leaderboard
type Standing struct {
	Rank   int
	UserID string
	Value  int
	Record Record
}

// Journal is implemented by the audit log. Record is called while the store lock is held
// so that entries follow the order of mutations. Mirror is called after it's released
type Journal interface {
	Record(e auditlog.Entry) (err error)
	Mirror(ctx context.Context) (err error)
}

// Store owns the counter mapping
type Store struct {
	path     string
	schema   Schema
	mirror   remote.BlobClient
	remoteID string
	journal  Journal
	logger   slog.Logger

	lock    sync.Mutex
	loaded  bool
	current atomic.Pointer[Snapshot]
}

// Option defines an option for a Store
type Option func(*Store)

// OptionLogger sets the logger used for warnings
func OptionLogger(logger slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// OptionJournal sets the journal recording every applied mutation
func OptionJournal(j Journal) Option {
	return func(s *Store) {
		s.journal = j
	}
}

// New returns a new Store for the file at path. A nil mirror or an empty remoteID means
// the store only persists locally. The store starts empty until Load is called
func New(path string, schema Schema, mirror remote.BlobClient, remoteID string, opts ...Option) (s *Store, err error) {
	if _, err = ParseSchema(string(schema)); err != nil {
		return nil, err
	}

	if path == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}

	s = &Store{path: path, schema: schema, mirror: mirror, remoteID: remoteID, logger: slog.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	s.current.Store(emptySnapshot(schema))

	return s, nil
}

// Path returns the path of the local store file
func (s *Store) Path() string {
	return s.path
}

// Schema returns the schema of the store
func (s *Store) Schema() Schema {
	return s.schema
}

// Snapshot returns the current immutable snapshot
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Get returns the record of a user. A missing user has a zero record
func (s *Store) Get(userID string) Record {
	return s.current.Load().Get(userID)
}

// Count returns the count of a user in the simple schema (its kills otherwise)
func (s *Store) Count(userID string) int {
	return s.Get(userID).Kills
}

// Load initializes the mapping. The remote copy is pulled into a staging file and only
// replaces the local file once it parsed. On any remote failure the local file is used
// and if that one is absent, empty or invalid, the store starts empty. Load never fails:
// problems are logged as warnings. Only the first call does any I/O
func (s *Store) Load(ctx context.Context) (snapshot Snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.loaded {
		return *s.current.Load()
	}
	s.loaded = true

	local, localErr := s.loadLocal()

	if remote.Enabled(s.mirror, s.remoteID) {
		if remoteSnapshot, ok := s.loadRemote(ctx, local); ok {
			s.current.Store(remoteSnapshot)
			return *remoteSnapshot
		}
	}

	if localErr != nil {
		s.logger.Printf("Warning: starting with an empty store: %v", localErr)
		local = emptySnapshot(s.schema)
	}

	s.current.Store(local)
	s.logger.Printf("Loaded store [%s] with %d users", s.path, local.Len())

	return *local
}

// loadLocal parses the local store file
func (s *Store) loadLocal() (snapshot *Snapshot, err error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, errors.Errorf("local store [%s] doesn't exist", s.path)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read local store [%s]", s.path)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.Errorf("local store [%s] is empty", s.path)
	}

	parsed, err := Parse(raw, s.schema)
	if err != nil {
		return nil, errors.Wrapf(err, "local store [%s] is unusable", s.path)
	}

	return &parsed, nil
}

// loadRemote pulls and parses the remote copy. A remote copy that parses to an empty
// mapping is ignored when the local one has users
func (s *Store) loadRemote(ctx context.Context, local *Snapshot) (snapshot *Snapshot, ok bool) {
	staged := s.path + ".remote"
	defer os.Remove(staged)

	if err := s.mirror.Pull(ctx, s.remoteID, staged); err != nil {
		s.logger.Printf("Warning: failed to pull store from [%s], falling back to local copy: %v", s.remoteID, err)
		return nil, false
	}

	raw, err := os.ReadFile(staged)
	if err != nil {
		s.logger.Printf("Warning: failed to read pulled store [%s], falling back to local copy: %v", staged, err)
		return nil, false
	}

	parsed, err := Parse(raw, s.schema)
	if err != nil {
		s.logger.Printf("Warning: remote store [%s] is unusable, falling back to local copy: %v", s.remoteID, err)
		return nil, false
	}

	if parsed.IsEmpty() && local != nil && !local.IsEmpty() {
		s.logger.Printf("Warning: remote store [%s] is empty but local store has %d users, keeping local copy", s.remoteID, local.Len())
		return nil, false
	}

	if err = os.Rename(staged, s.path); err != nil {
		s.logger.Printf("Warning: failed to replace local store [%s] with remote copy: %v", s.path, err)
	}

	s.logger.Printf("Loaded store from [%s] with %d users", s.remoteID, parsed.Len())
	return &parsed, true
}

// Increment adds one to a field of subject
func (s *Store) Increment(ctx context.Context, by auditlog.Identity, subject auditlog.Identity, field Field) (r Result, err error) {
	return s.mutate(ctx, by, subject, field, auditlog.ActionIncrement, func(current int) (next int, applied bool) {
		return current + 1, true
	})
}

// Set sets a field of subject to value
func (s *Store) Set(ctx context.Context, by auditlog.Identity, subject auditlog.Identity, field Field, value int) (r Result, err error) {
	if value < 0 {
		return Result{}, ErrNegativeValue
	}

	return s.mutate(ctx, by, subject, field, auditlog.ActionSet, func(current int) (next int, applied bool) {
		return value, true
	})
}

// Decrement removes one from a field of subject. A count already at zero is left
// untouched and reported as NotModified, without any persist or journal entry
func (s *Store) Decrement(ctx context.Context, by auditlog.Identity, subject auditlog.Identity, field Field) (r Result, err error) {
	return s.mutate(ctx, by, subject, field, auditlog.ActionDecrement, func(current int) (next int, applied bool) {
		if current == 0 {
			return 0, false
		}

		return current - 1, true
	})
}

// Reset sets every field of subject to zero. A user absent from the mapping is left out of it
// and reported as NotModified
func (s *Store) Reset(ctx context.Context, by auditlog.Identity, subject auditlog.Identity) (r Result, err error) {
	if subject.ID == "" {
		return Result{}, ErrEmptyUserID
	}

	s.lock.Lock()
	cur := s.current.Load()
	if _, ok := cur.records[subject.ID]; !ok {
		s.lock.Unlock()
		return Result{Status: NotModified}, nil
	}

	next := cur.with(subject.ID, Record{})
	s.current.Store(next)

	r = Result{Record: Record{}, Value: 0, Status: Applied}
	r.PersistErr = s.persistLocked(ctx)
	s.recordLocked(auditlog.Entry{Actor: by, Subject: subject, Action: auditlog.ActionZero, Value: 0,
		Message: fmt.Sprintf("%s reset the counters of %s to 0", by, subject)})
	s.lock.Unlock()

	s.mirrorJournal(ctx)
	return r, nil
}

// mutate applies fn to one field of subject's record
func (s *Store) mutate(ctx context.Context, by auditlog.Identity, subject auditlog.Identity, field Field, action auditlog.Action, fn func(current int) (next int, applied bool)) (r Result, err error) {
	if subject.ID == "" {
		return Result{}, ErrEmptyUserID
	}

	if !s.schema.Valid(field) {
		return Result{}, errors.Wrapf(ErrUnknownField, "[%s] in schema [%s]", field, s.schema)
	}

	s.lock.Lock()
	cur := s.current.Load()
	rec := cur.Get(subject.ID)

	value, applied := fn(rec.Get(field))
	if !applied {
		s.lock.Unlock()
		return Result{Record: rec, Value: rec.Get(field), Status: NotModified}, nil
	}

	rec = rec.with(field, value)
	s.current.Store(cur.with(subject.ID, rec))

	r = Result{Record: rec, Value: value, Status: Applied}
	r.PersistErr = s.persistLocked(ctx)
	s.recordLocked(auditlog.Entry{Actor: by, Subject: subject, Action: action, Value: value,
		Message: describe(by, subject, action, s.fieldLabel(field), value)})
	s.lock.Unlock()

	s.mirrorJournal(ctx)
	return r, nil
}

func describe(by auditlog.Identity, subject auditlog.Identity, action auditlog.Action, label string, value int) string {
	switch action {
	case auditlog.ActionIncrement:
		return fmt.Sprintf("%s incremented the %s of %s to %d", by, label, subject, value)
	case auditlog.ActionDecrement:
		return fmt.Sprintf("%s decremented the %s of %s to %d", by, label, subject, value)
	default:
		return fmt.Sprintf("%s set the %s of %s to %d", by, label, subject, value)
	}
}

// fieldLabel returns the user facing name of a field
func (s *Store) fieldLabel(f Field) string {
	if s.schema == SchemaSimple {
		return "count"
	}

	return string(f)
}

// Replace validates raw as a whole store document and, only if valid, makes it the new
// mapping. The local file is written before the in-memory swap and the remote push is
// best-effort. An invalid document returns a *ParseError and leaves everything untouched
func (s *Store) Replace(ctx context.Context, by auditlog.Identity, raw []byte) (snapshot Snapshot, err error) {
	parsed, err := Parse(raw, s.schema)
	if err != nil {
		return Snapshot{}, err
	}

	content, err := parsed.MarshalJSON()
	if err != nil {
		return Snapshot{}, err
	}

	s.lock.Lock()
	if err = atomicfile.WriteFile(s.path, content); err != nil {
		s.lock.Unlock()
		return Snapshot{}, errors.Wrapf(err, "failed to write restored store [%s]", s.path)
	}

	s.current.Store(&parsed)
	s.loaded = true

	if perr := s.pushLocked(ctx, s.remoteID, &parsed); perr != nil {
		s.logger.Printf("Warning: restored store saved locally but not mirrored: %v", perr)
	}

	s.recordLocked(auditlog.Entry{Actor: by, Action: auditlog.ActionRestore, Value: parsed.Len(),
		Message: fmt.Sprintf("%s restored the store with %d users", by, parsed.Len())})
	s.lock.Unlock()

	s.mirrorJournal(ctx)
	return parsed, nil
}

// Persist writes the current mapping to the local file and pushes it to the remote mirror.
// An empty mapping is never pushed: a store that failed to load must not wipe the remote copy
func (s *Store) Persist(ctx context.Context) (err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.persistLocked(ctx)
}

// persistLocked must be called with the lock held
func (s *Store) persistLocked(ctx context.Context) (err error) {
	snapshot := s.current.Load()

	content, err := snapshot.MarshalJSON()
	if err != nil {
		return err
	}

	if err = atomicfile.WriteFile(s.path, content); err != nil {
		err = errors.Wrapf(err, "failed to write store [%s]", s.path)
		s.logger.Printf("Warning: %v", err)
		return err
	}

	if err = s.pushLocked(ctx, s.remoteID, snapshot); err != nil {
		s.logger.Printf("Warning: %v", err)
		return err
	}

	return nil
}

// pushLocked pushes the local file to remoteID unless mirroring is disabled or the
// snapshot is empty
func (s *Store) pushLocked(ctx context.Context, remoteID string, snapshot *Snapshot) (err error) {
	if !remote.Enabled(s.mirror, remoteID) {
		return nil
	}

	if snapshot.IsEmpty() {
		s.logger.Printf("Warning: store is empty, skipping push to [%s]", remoteID)
		return nil
	}

	if err = s.mirror.Push(ctx, s.path, remoteID); err != nil {
		return errors.Wrapf(err, "failed to push store [%s] to [%s]", s.path, remoteID)
	}

	s.logger.Debugf("Pushed store [%s] to [%s]", s.path, remoteID)
	return nil
}

// Mirror pushes the local store file to the store's remote blob. It's skipped with
// ErrMirrorSkipped when mirroring is disabled, the mapping is empty or the local file is
// absent or smaller than minBytes
func (s *Store) Mirror(ctx context.Context, minBytes int64) (err error) {
	return s.MirrorTo(ctx, s.remoteID, minBytes)
}

// MirrorTo is like Mirror but pushes to another remote blob (i.e. a backup copy)
func (s *Store) MirrorTo(ctx context.Context, remoteID string, minBytes int64) (err error) {
	if !remote.Enabled(s.mirror, remoteID) {
		return errors.Wrap(ErrMirrorSkipped, "remote mirroring disabled")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot := s.current.Load()
	if snapshot.IsEmpty() {
		return errors.Wrap(ErrMirrorSkipped, "store is empty")
	}

	size, exists, err := atomicfile.Size(s.path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat store [%s]", s.path)
	}

	if !exists || size < minBytes {
		return errors.Wrapf(ErrMirrorSkipped, "local store [%s] is absent or smaller than %d bytes", s.path, minBytes)
	}

	return s.pushLocked(ctx, remoteID, snapshot)
}

// Export returns the content of the local store file. When the file doesn't exist yet, the
// current mapping is encoded instead
func (s *Store) Export() (content []byte, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	content, err = os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.current.Load().MarshalJSON()
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read store [%s]", s.path)
	}

	return content, nil
}

// Leaderboard returns the top n users by field, highest first. Ties keep insertion order
// and users with a zero count are left out
func (s *Store) Leaderboard(field Field, n int) (standings []Standing) {
	snapshot := s.current.Load()
	standings = make([]Standing, 0)

	for _, k := range snapshot.order {
		rec := snapshot.records[k]
		if v := rec.Get(field); v > 0 {
			standings = append(standings, Standing{UserID: k, Value: v, Record: rec})
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Value > standings[j].Value
	})

	if n >= 0 && len(standings) > n {
		standings = standings[:n]
	}

	for i := range standings {
		standings[i].Rank = i + 1
	}

	return standings
}

// recordLocked appends an entry to the journal. It must be called with the lock held
func (s *Store) recordLocked(e auditlog.Entry) {
	if s.journal == nil {
		return
	}

	if err := s.journal.Record(e); err != nil {
		s.logger.Printf("Warning: failed to record [%s] in journal: %v", e.Action, err)
	}
}

// mirrorJournal pushes the journal after the lock was released
func (s *Store) mirrorJournal(ctx context.Context) {
	if s.journal == nil {
		return
	}

	if err := s.journal.Mirror(ctx); err != nil && !errors.Is(err, auditlog.ErrMirrorSkipped) {
		s.logger.Printf("Warning: %v", err)
	}
}
