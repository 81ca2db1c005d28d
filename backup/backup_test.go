package backup_test

import (
	"context"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/backup"
	"github.com/teamkill/tkscot/counter"
	"github.com/teamkill/tkscot/slog"
	"github.com/teamkill/tkscot/test/capture"
	"log"
	"path/filepath"
	"strings"
	"testing"
)

var admin = auditlog.Identity{ID: "UADMIN", Name: "admin"}

// mockStore mocks the store mirror operations
type mockStore struct {
	mock.Mock
}

func (ms *mockStore) Mirror(ctx context.Context, minBytes int64) (err error) {
	args := ms.Called(minBytes)
	return args.Error(0)
}

func (ms *mockStore) MirrorTo(ctx context.Context, remoteID string, minBytes int64) (err error) {
	args := ms.Called(remoteID, minBytes)
	if len(args) > 1 && args.Get(1) != nil {
		panic(args.Get(1))
	}
	return args.Error(0)
}

func newComponents(t *testing.T, bc *capture.BlobCaptor) (s *counter.Store, l *auditlog.Log) {
	dir := t.TempDir()

	l, err := auditlog.New(filepath.Join(dir, "logs.txt"), auditlog.FormatText, bc, "log-blob")
	require.NoError(t, err)

	s, err = counter.New(filepath.Join(dir, "data.json"), counter.SchemaSimple, bc, "store-blob", counter.OptionJournal(l))
	require.NoError(t, err)
	s.Load(context.Background())

	return s, l
}

func TestRunPushesStoreBackupAndLog(t *testing.T) {
	bc := capture.NewBlobClient()
	s, l := newComponents(t, bc)

	_, err := s.Increment(context.Background(), admin, auditlog.Identity{ID: "100"}, counter.Kills)
	require.NoError(t, err)
	bc.Blobs = map[string][]byte{}

	task := backup.New(s, l, backup.OptionBackupBlob("backup-blob"))
	r := task.Run(context.Background())

	require.Len(t, r.Steps, 3)
	for _, step := range r.Steps {
		assert.Equal(t, backup.Pushed, step.Status, step.Name)
	}
	assert.False(t, r.Failed())

	store, _ := bc.Blob("store-blob")
	assert.Equal(t, `{"100":1}`, store)
	backupCopy, _ := bc.Blob("backup-blob")
	assert.Equal(t, `{"100":1}`, backupCopy)
	_, ok := bc.Blob("log-blob")
	assert.True(t, ok)
	assert.Equal(t, "store: pushed, store backup: pushed, log: pushed", r.String())
}

func TestRunSkipsEmptyStore(t *testing.T) {
	bc := capture.NewBlobClient()
	bc.SetBlob("store-blob", `{"100": 40}`)
	bc.PullErr = fmt.Errorf("offline")
	s, l := newComponents(t, bc)
	bc.PullErr = nil

	r := backup.New(s, l).Run(context.Background())

	require.Len(t, r.Steps, 2)
	assert.Equal(t, backup.Skipped, r.Steps[0].Status)
	assert.Equal(t, backup.Skipped, r.Steps[1].Status)
	assert.False(t, r.Failed())

	content, _ := bc.Blob("store-blob")
	assert.Equal(t, `{"100": 40}`, content)
}

func TestRunReportsFailuresAndKeepsGoing(t *testing.T) {
	bc := capture.NewBlobClient()
	s, l := newComponents(t, bc)
	_, err := s.Increment(context.Background(), admin, auditlog.Identity{ID: "100"}, counter.Kills)
	require.NoError(t, err)

	bc.PushErr = fmt.Errorf("unauthorized")
	var b strings.Builder
	task := backup.New(s, l, backup.OptionLogger(slog.New(log.New(&b, "", 0), false)))

	first := task.Run(context.Background())
	assert.True(t, first.Failed())
	assert.Equal(t, backup.Failed, first.Steps[0].Status)
	assert.Equal(t, backup.Failed, first.Steps[1].Status)
	assert.Contains(t, b.String(), "unauthorized")

	bc.PushErr = nil
	second := task.Run(context.Background())
	assert.False(t, second.Failed())
}

func TestRunUsesMinStoreBytes(t *testing.T) {
	ms := mockStore{}
	ms.On("Mirror", int64(42)).Return(nil)

	r := backup.New(&ms, nil, backup.OptionMinStoreBytes(42)).Run(context.Background())

	require.Len(t, r.Steps, 1)
	assert.Equal(t, backup.Pushed, r.Steps[0].Status)
	ms.AssertExpectations(t)
}

func TestRunDefaultMinStoreBytes(t *testing.T) {
	ms := mockStore{}
	ms.On("Mirror", int64(backup.DefaultMinStoreBytes)).Return(nil)

	backup.New(&ms, nil).Run(context.Background())

	ms.AssertExpectations(t)
}

func TestRunRecoversFromPanickingBackend(t *testing.T) {
	ms := mockStore{}
	ms.On("Mirror", mock.Anything).Return(nil)
	ms.On("MirrorTo", "backup-blob", mock.Anything).Return(nil, "nil pointer in backend")

	r := backup.New(&ms, nil, backup.OptionBackupBlob("backup-blob")).Run(context.Background())

	require.Len(t, r.Steps, 2)
	assert.Equal(t, backup.Pushed, r.Steps[0].Status)
	assert.Equal(t, backup.Failed, r.Steps[1].Status)
	assert.Contains(t, r.Steps[1].Err.Error(), "nil pointer in backend")
}
