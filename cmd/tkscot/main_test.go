package main

import (
	"bytes"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot/config"
	"github.com/teamkill/tkscot/counter"
	"os"
	"path/filepath"
	"testing"
)

func execute(t *testing.T, args ...string) (out string, err error) {
	var b bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&b)
	cmd.SetErr(&b)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))

	err = cmd.Execute()
	return b.String(), err
}

func writeStore(t *testing.T, content string) (path string) {
	path = filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestCheckStoreValid(t *testing.T) {
	path := writeStore(t, `{"U1": 3, "U2": 0}`)

	out, err := execute(t, "check-store", path)
	require.NoError(t, err)
	assert.Equal(t, "["+path+"] is a valid simple store with 2 users\n", out)
}

func TestCheckStoreWithSchema(t *testing.T) {
	path := writeStore(t, `{"kills": {"U1": 3}, "deaths": {"U1": 1}}`)

	out, err := execute(t, "check-store", "--schema", "kills_deaths", path)
	require.NoError(t, err)
	assert.Equal(t, "["+path+"] is a valid kills_deaths store with 1 users\n", out)
}

func TestCheckStoreInvalid(t *testing.T) {
	path := writeStore(t, `{not json`)

	_, err := execute(t, "check-store", path)

	var perr *counter.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestCheckStoreMissingFile(t *testing.T) {
	_, err := execute(t, "check-store", filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "failed to read")
}

func TestRunWithoutTokenFails(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_APP_TOKEN", "")

	_, err := execute(t, "run")
	assert.True(t, errors.Is(err, config.ErrMissingToken))
}

func TestRequiresCommandArguments(t *testing.T) {
	_, err := execute(t, "check-store")
	assert.Error(t, err)
}
