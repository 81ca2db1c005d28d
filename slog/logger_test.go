package slog_test

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot/slog"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"log"
	"strings"
	"testing"
)

func TestLogWhenDebugEnabled(t *testing.T) {
	var b strings.Builder
	l := slog.New(log.New(&b, "", 0), true)
	l.Debugf("Writing a log statement for my little %s\n", "red bird")

	assert.Equal(t, "Writing a log statement for my little red bird\n", b.String())
}

func TestLogWhenDebugDisabled(t *testing.T) {
	var b strings.Builder
	l := slog.New(log.New(&b, "", 0), false)
	l.Debugf("Writing a log statement for my little %s\n", "red bird")

	// Nothing should have been logged
	assert.Equal(t, "", b.String())
}

func TestPrintf(t *testing.T) {
	var b strings.Builder
	l := slog.New(log.New(&b, "", 0), false)
	l.Printf("store has %d entries", 3)

	assert.Equal(t, "store has 3 entries\n", b.String())
}

func TestZapLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := slog.NewZap(zap.New(core).Sugar())

	l.Printf("pushed [%s]", "data.json")
	l.Debugf("pulled [%s]", "logs.txt")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "pushed [data.json]", entries[0].Message)
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
	assert.Equal(t, "pulled [logs.txt]", entries[1].Message)
}

func TestNewZapLogger(t *testing.T) {
	_, err := slog.NewZapLogger("json", "warn", false)
	assert.NoError(t, err)

	_, err = slog.NewZapLogger("console", "", true)
	assert.NoError(t, err)

	_, err = slog.NewZapLogger("json", "chatty", false)
	assert.Error(t, err)
}
