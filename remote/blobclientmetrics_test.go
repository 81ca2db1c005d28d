package remote_test

import (
	"context"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot/remote"
	"github.com/teamkill/tkscot/test/capture"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"os"
	"path/filepath"
	"testing"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) (sums map[string]int64) {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums = make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	return sums
}

func TestBlobClientWithTelemetryCountsCallsAndErrors(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	bc := capture.NewBlobClient()
	decorated, err := remote.NewBlobClientWithTelemetry(bc, "gdrive", meter)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	assert.NoError(t, decorated.Push(context.Background(), path, "store"))
	err = decorated.Pull(context.Background(), "missing", filepath.Join(t.TempDir(), "out.json"))
	assert.True(t, errors.Is(err, remote.ErrNotFound))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["blobClient_Push_Calls"])
	assert.Equal(t, int64(0), sums["blobClient_Push_Errors"])
	assert.Equal(t, int64(1), sums["blobClient_Pull_Calls"])
	assert.Equal(t, int64(1), sums["blobClient_Pull_Errors"])
}

func TestEnabled(t *testing.T) {
	assert.False(t, remote.Enabled(nil, "id"))
	assert.False(t, remote.Enabled(capture.NewBlobClient(), ""))
	assert.True(t, remote.Enabled(capture.NewBlobClient(), "id"))
}
