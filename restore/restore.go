// Package restore implements the confirmation protocol guarding the replacement of the
// whole counter store. A candidate document is held, untouched, until its requester
// confirms it, cancels it or lets the confirmation window expire.
//
//	Idle -> AwaitingConfirmation -> Applied | AppliedWithError | Cancelled | TimedOut
//
// Every candidate gets its own Pending instance. Instances never share state.
package restore

import (
	"context"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/counter"
	"github.com/teamkill/tkscot/slog"
	"sync"
	"time"
)

// DefaultWindow is the default confirmation window
const DefaultWindow = 30 * time.Second

var (
	// ErrNotPending is returned when a restore id is unknown or already resolved
	ErrNotPending = errors.New("no pending restore with that id")
	// ErrNotRequester is returned when someone other than the requester answers a restore
	ErrNotRequester = errors.New("only the requester can answer this restore")
)

// State is the state of a restore
type State int

// Restore states
const (
	Idle State = iota
	AwaitingConfirmation
	Applied
	AppliedWithError
	Cancelled
	TimedOut
)

var stateNames = map[State]string{
	Idle:                 "idle",
	AwaitingConfirmation: "awaiting confirmation",
	Applied:              "applied",
	AppliedWithError:     "applied with error",
	Cancelled:            "cancelled",
	TimedOut:             "timed out",
}

// String returns the name of the state
func (s State) String() string {
	return stateNames[s]
}

// Applier is implemented by the counter store
type Applier interface {
	Replace(ctx context.Context, by auditlog.Identity, raw []byte) (snapshot counter.Snapshot, err error)
}

// Pending is one restore instance
type Pending struct {
	ID        string
	Requester auditlog.Identity
	Candidate []byte
	Created   time.Time
	Expires   time.Time

	state State
	timer *time.Timer
}

// State returns the current state of the restore
func (p *Pending) State() State {
	return p.state
}

// Outcome is the result of resolving a restore
type Outcome struct {
	ID       string
	State    State
	Snapshot counter.Snapshot
	Err      error
}

// ExpireHandler is called when a restore times out
type ExpireHandler func(p Pending)

// Manager tracks pending restores
type Manager struct {
	applier  Applier
	window   time.Duration
	logger   slog.Logger
	onExpire ExpireHandler
	now      func() time.Time

	lock    sync.Mutex
	pending map[string]*Pending
}

// Option defines an option for a Manager
type Option func(*Manager)

// OptionWindow sets the confirmation window
func OptionWindow(window time.Duration) Option {
	return func(m *Manager) {
		m.window = window
	}
}

// OptionLogger sets the logger
func OptionLogger(logger slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// OptionOnExpire sets the handler called when a restore times out
func OptionOnExpire(h ExpireHandler) Option {
	return func(m *Manager) {
		m.onExpire = h
	}
}

// NewManager returns a new Manager applying confirmed restores with applier
func NewManager(applier Applier, opts ...Option) (m *Manager) {
	m = &Manager{applier: applier, window: DefaultWindow, logger: slog.Discard(), now: time.Now, pending: make(map[string]*Pending)}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Window returns the confirmation window
func (m *Manager) Window() time.Duration {
	return m.window
}

// Begin holds candidate for confirmation by requester and starts its confirmation window
func (m *Manager) Begin(requester auditlog.Identity, candidate []byte) (p *Pending) {
	held := make([]byte, len(candidate))
	copy(held, candidate)

	now := m.now()
	p = &Pending{ID: uuid.NewString(), Requester: requester, Candidate: held, Created: now, Expires: now.Add(m.window), state: AwaitingConfirmation}

	m.lock.Lock()
	m.pending[p.ID] = p
	p.timer = time.AfterFunc(m.window, func() {
		m.expire(p.ID)
	})
	m.lock.Unlock()

	m.logger.Printf("Restore [%s] requested by [%s], awaiting confirmation for %s", p.ID, requester, m.window)
	return p
}

// resolve removes a pending restore answered by by
func (m *Manager) resolve(id string, by auditlog.Identity) (p *Pending, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	p, ok := m.pending[id]
	if !ok {
		return nil, ErrNotPending
	}

	if p.Requester.ID != by.ID {
		return nil, ErrNotRequester
	}

	p.timer.Stop()
	delete(m.pending, id)

	return p, nil
}

// Confirm applies the candidate of a pending restore. A candidate that fails validation
// ends in AppliedWithError with the store untouched
func (m *Manager) Confirm(ctx context.Context, id string, by auditlog.Identity) (o Outcome, err error) {
	p, err := m.resolve(id, by)
	if err != nil {
		return Outcome{}, err
	}

	snapshot, aerr := m.applier.Replace(ctx, by, p.Candidate)
	if aerr != nil {
		p.state = AppliedWithError
		m.logger.Printf("Restore [%s] confirmed by [%s] but rejected: %v", id, by, aerr)
		return Outcome{ID: id, State: AppliedWithError, Err: aerr}, nil
	}

	p.state = Applied
	m.logger.Printf("Restore [%s] applied by [%s] with %d users", id, by, snapshot.Len())
	return Outcome{ID: id, State: Applied, Snapshot: snapshot}, nil
}

// Cancel drops a pending restore without touching the store
func (m *Manager) Cancel(id string, by auditlog.Identity) (o Outcome, err error) {
	p, err := m.resolve(id, by)
	if err != nil {
		return Outcome{}, err
	}

	p.state = Cancelled
	m.logger.Printf("Restore [%s] cancelled by [%s]", id, by)
	return Outcome{ID: id, State: Cancelled}, nil
}

// expire times out a restore still awaiting confirmation
func (m *Manager) expire(id string) {
	m.lock.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
		p.state = TimedOut
	}
	m.lock.Unlock()

	if !ok {
		return
	}

	m.logger.Printf("Restore [%s] requested by [%s] timed out after %s, store left untouched", id, p.Requester, m.window)
	if m.onExpire != nil {
		m.onExpire(*p)
	}
}

// PendingCount returns the number of restores awaiting confirmation
func (m *Manager) PendingCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return len(m.pending)
}

// Close stops every pending restore timer. Pending restores are dropped as cancelled
func (m *Manager) Close() (err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for id, p := range m.pending {
		p.timer.Stop()
		p.state = Cancelled
		delete(m.pending, id)
	}

	return nil
}
