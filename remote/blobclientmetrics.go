package remote

import (
	"context"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BlobClientWithTelemetry implements BlobClient interface with all methods wrapped
// with open telemetry metrics
type BlobClientWithTelemetry struct {
	base               BlobClient
	attrs              metric.MeasurementOption
	methodCounters     map[string]metric.Int64Counter
	errCounters        map[string]metric.Int64Counter
	methodTimeMeasures map[string]metric.Int64Histogram
}

var blobClientMethods = []string{"Push", "Pull"}

// NewBlobClientWithTelemetry returns an instance of the BlobClient decorated with open telemetry timing and count metrics
func NewBlobClientWithTelemetry(base BlobClient, name string, meter metric.Meter) (bc BlobClientWithTelemetry, err error) {
	bc = BlobClientWithTelemetry{base: base, attrs: metric.WithAttributes(attribute.String("name", name))}

	if bc.methodCounters, err = newBlobClientMethodCounters("Calls", meter); err != nil {
		return bc, err
	}

	if bc.errCounters, err = newBlobClientMethodCounters("Errors", meter); err != nil {
		return bc, err
	}

	if bc.methodTimeMeasures, err = newBlobClientMethodTimeMeasures(meter); err != nil {
		return bc, err
	}

	return bc, nil
}

func newBlobClientMethodTimeMeasures(meter metric.Meter) (timeMeasures map[string]metric.Int64Histogram, err error) {
	timeMeasures = make(map[string]metric.Int64Histogram)

	for _, m := range blobClientMethods {
		n := []rune("BlobClient_" + m + "_ProcessingTimeMillis")
		n[0] = unicode.ToLower(n[0])

		if timeMeasures[m], err = meter.Int64Histogram(string(n), metric.WithUnit("ms")); err != nil {
			return nil, err
		}
	}

	return timeMeasures, nil
}

func newBlobClientMethodCounters(suffix string, meter metric.Meter) (counters map[string]metric.Int64Counter, err error) {
	counters = make(map[string]metric.Int64Counter)

	for _, m := range blobClientMethods {
		n := []rune("BlobClient_" + m + "_" + suffix)
		n[0] = unicode.ToLower(n[0])

		if counters[m], err = meter.Int64Counter(string(n)); err != nil {
			return nil, err
		}
	}

	return counters, nil
}

func (_d BlobClientWithTelemetry) record(ctx context.Context, method string, since time.Time, err error) {
	if err != nil {
		_d.errCounters[method].Add(ctx, 1, _d.attrs)
	}

	_d.methodCounters[method].Add(ctx, 1, _d.attrs)
	_d.methodTimeMeasures[method].Record(ctx, time.Since(since).Milliseconds(), _d.attrs)
}

// Push implements BlobClient
func (_d BlobClientWithTelemetry) Push(ctx context.Context, localPath string, remoteID string) (err error) {
	_since := time.Now()
	defer func() {
		_d.record(ctx, "Push", _since, err)
	}()
	return _d.base.Push(ctx, localPath, remoteID)
}

// Pull implements BlobClient
func (_d BlobClientWithTelemetry) Pull(ctx context.Context, remoteID string, localPath string) (err error) {
	_since := time.Now()
	defer func() {
		_d.record(ctx, "Pull", _since, err)
	}()
	return _d.base.Pull(ctx, remoteID, localPath)
}
