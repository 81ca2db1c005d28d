package restore_test

import (
	"context"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/counter"
	"github.com/teamkill/tkscot/restore"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var (
	requester = auditlog.Identity{ID: "UADMIN", Name: "admin"}
	other     = auditlog.Identity{ID: "UOTHER", Name: "other"}
)

func newStore(t *testing.T, content string) (s *counter.Store, path string) {
	path = filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := counter.New(path, counter.SchemaSimple, nil, "")
	require.NoError(t, err)
	s.Load(context.Background())

	return s, path
}

func TestBeginHoldsCandidateWithoutTouchingStore(t *testing.T) {
	s, path := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)
	defer m.Close()

	candidate := []byte(`{"100": 1}`)
	p := m.Begin(requester, candidate)
	candidate[7] = '9'

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, restore.AwaitingConfirmation, p.State())
	assert.Equal(t, `{"100": 1}`, string(p.Candidate))
	assert.Equal(t, restore.DefaultWindow, p.Expires.Sub(p.Created))
	assert.Equal(t, 1, m.PendingCount())
	assert.Equal(t, 5, s.Count("100"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"100": 5}`, string(content))
}

func TestConfirmApplies(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)

	p := m.Begin(requester, []byte(`{"100": 1, "200": 3}`))
	o, err := m.Confirm(context.Background(), p.ID, requester)

	require.NoError(t, err)
	assert.Equal(t, restore.Applied, o.State)
	assert.Equal(t, restore.Applied, p.State())
	assert.Equal(t, 2, o.Snapshot.Len())
	assert.Equal(t, 1, s.Count("100"))
	assert.Equal(t, 3, s.Count("200"))
	assert.Equal(t, 0, m.PendingCount())
}

func TestConfirmInvalidCandidateLeavesStoreUntouched(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)

	p := m.Begin(requester, []byte(`{not json`))
	o, err := m.Confirm(context.Background(), p.ID, requester)

	require.NoError(t, err)
	assert.Equal(t, restore.AppliedWithError, o.State)

	var perr *counter.ParseError
	assert.True(t, errors.As(o.Err, &perr))
	assert.Equal(t, 5, s.Count("100"))
}

func TestOnlyRequesterCanAnswer(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)
	defer m.Close()

	p := m.Begin(requester, []byte(`{"100": 1}`))

	_, err := m.Confirm(context.Background(), p.ID, other)
	assert.True(t, errors.Is(err, restore.ErrNotRequester))

	_, err = m.Cancel(p.ID, other)
	assert.True(t, errors.Is(err, restore.ErrNotRequester))

	assert.Equal(t, restore.AwaitingConfirmation, p.State())
	assert.Equal(t, 5, s.Count("100"))
}

func TestCancel(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)

	p := m.Begin(requester, []byte(`{"100": 1}`))
	o, err := m.Cancel(p.ID, requester)

	require.NoError(t, err)
	assert.Equal(t, restore.Cancelled, o.State)
	assert.Equal(t, 5, s.Count("100"))

	_, err = m.Confirm(context.Background(), p.ID, requester)
	assert.True(t, errors.Is(err, restore.ErrNotPending))
}

func TestResolvedRestoreCantBeAnsweredAgain(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)

	p := m.Begin(requester, []byte(`{"100": 1}`))
	_, err := m.Confirm(context.Background(), p.ID, requester)
	require.NoError(t, err)

	_, err = m.Confirm(context.Background(), p.ID, requester)
	assert.True(t, errors.Is(err, restore.ErrNotPending))

	_, err = m.Cancel("unknown-id", requester)
	assert.True(t, errors.Is(err, restore.ErrNotPending))
}

func TestExpiryTimesOutWithoutTouchingStore(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)

	var lock sync.Mutex
	var expired []restore.Pending
	m := restore.NewManager(s, restore.OptionWindow(20*time.Millisecond), restore.OptionOnExpire(func(p restore.Pending) {
		lock.Lock()
		defer lock.Unlock()
		expired = append(expired, p)
	}))

	p := m.Begin(requester, []byte(`{"100": 1}`))

	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(expired) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, p.ID, expired[0].ID)
	assert.Equal(t, restore.TimedOut, expired[0].State())
	assert.Equal(t, 5, s.Count("100"))

	_, err := m.Confirm(context.Background(), p.ID, requester)
	assert.True(t, errors.Is(err, restore.ErrNotPending))
}

func TestConcurrentRestoresAreIndependent(t *testing.T) {
	s, _ := newStore(t, `{"100": 5}`)
	m := restore.NewManager(s)

	first := m.Begin(requester, []byte(`{"100": 1}`))
	second := m.Begin(requester, []byte(`{"100": 2}`))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, m.PendingCount())

	_, err := m.Cancel(first.ID, requester)
	require.NoError(t, err)

	o, err := m.Confirm(context.Background(), second.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, restore.Applied, o.State)
	assert.Equal(t, 2, s.Count("100"))
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "awaiting confirmation", restore.AwaitingConfirmation.String())
	assert.Equal(t, "timed out", restore.TimedOut.String())
}
