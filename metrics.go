package tkscot

import (
	"context"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"time"
	"unicode"
)

const (
	msgTypeMessage      = "message"
	msgTypeSlashCommand = "slashCommand"
	msgTypeBlockAction  = "blockAction"
)

// instrumenter holds data for core instrumentation
type instrumenter struct {
	attrs                      metric.MeasurementOption
	appName                    string
	msgsSeen                   metric.Int64Counter
	msgsProcessed              metric.Int64Counter
	msgProcessingLatencyMillis metric.Int64Histogram
	actionCount                metric.Int64Counter
	answerCount                metric.Int64Counter
	actionProcessingMillis     metric.Int64Histogram
}

// newInstrumenter creates a new core instrumenter
func newInstrumenter(appName string, meter metric.Meter) (ins *instrumenter, err error) {
	ins = new(instrumenter)
	ins.appName = appName
	ins.attrs = metric.WithAttributes(attribute.String("name", appName))

	if ins.msgsSeen, err = meter.Int64Counter("msgSeen"); err != nil {
		return nil, err
	}

	if ins.msgsProcessed, err = meter.Int64Counter("msgProcessed"); err != nil {
		return nil, err
	}

	if ins.msgProcessingLatencyMillis, err = meter.Int64Histogram("msgProcessingLatencyMillis", metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	if ins.actionCount, err = meter.Int64Counter("pluginActionCount"); err != nil {
		return nil, err
	}

	if ins.answerCount, err = meter.Int64Counter("pluginAnswerCount"); err != nil {
		return nil, err
	}

	if ins.actionProcessingMillis, err = meter.Int64Histogram("pluginActionProcessingTimeMillis", metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return ins, nil
}

func (ins *instrumenter) msgSeen() {
	ins.msgsSeen.Add(context.Background(), 1, ins.attrs)
}

func (ins *instrumenter) msgProcessed(msgType string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("name", ins.appName), attribute.String("msgType", msgType))

	ins.msgsProcessed.Add(context.Background(), 1, attrs)
	ins.msgProcessingLatencyMillis.Record(context.Background(), d.Milliseconds(), attrs)
}

func (ins *instrumenter) actionRan(plugin string, answered bool, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("name", ins.appName), attribute.String("plugin", plugin))

	ins.actionCount.Add(context.Background(), 1, attrs)
	if answered {
		ins.answerCount.Add(context.Background(), 1, attrs)
	}
	ins.actionProcessingMillis.Record(context.Background(), d.Milliseconds(), attrs)
}

// methodInstruments holds call/error counters and timings of an interface's methods, keyed by method name
type methodInstruments struct {
	attrs              metric.MeasurementOption
	methodCounters     map[string]metric.Int64Counter
	errCounters        map[string]metric.Int64Counter
	methodTimeMeasures map[string]metric.Int64Histogram
}

// newMethodInstruments creates instruments named <iface>_<method>_Calls, <iface>_<method>_Errors and
// <iface>_<method>_ProcessingTimeMillis with the first letter lowered
func newMethodInstruments(iface string, methods []string, name string, meter metric.Meter) (mi methodInstruments, err error) {
	mi = methodInstruments{attrs: metric.WithAttributes(attribute.String("name", name)),
		methodCounters:     make(map[string]metric.Int64Counter),
		errCounters:        make(map[string]metric.Int64Counter),
		methodTimeMeasures: make(map[string]metric.Int64Histogram)}

	for _, m := range methods {
		if mi.methodCounters[m], err = meter.Int64Counter(instrumentName(iface, m, "Calls")); err != nil {
			return mi, err
		}

		if mi.errCounters[m], err = meter.Int64Counter(instrumentName(iface, m, "Errors")); err != nil {
			return mi, err
		}

		if mi.methodTimeMeasures[m], err = meter.Int64Histogram(instrumentName(iface, m, "ProcessingTimeMillis"), metric.WithUnit("ms")); err != nil {
			return mi, err
		}
	}

	return mi, nil
}

func instrumentName(iface string, method string, suffix string) string {
	n := []rune(iface + "_" + method + "_" + suffix)
	n[0] = unicode.ToLower(n[0])

	return string(n)
}

func (mi methodInstruments) record(method string, since time.Time, err error) {
	if err != nil {
		mi.errCounters[method].Add(context.Background(), 1, mi.attrs)
	}

	mi.methodCounters[method].Add(context.Background(), 1, mi.attrs)
	mi.methodTimeMeasures[method].Record(context.Background(), time.Since(since).Milliseconds(), mi.attrs)
}

type timed func()

func measure(operation timed) (d time.Duration) {
	before := time.Now()

	operation()

	return time.Since(before)
}
