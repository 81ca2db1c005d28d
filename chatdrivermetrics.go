package tkscot

import (
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/metric"
)

// ChatPosterWithTelemetry implements ChatPoster interface with all methods wrapped
// with open telemetry metrics
type ChatPosterWithTelemetry struct {
	base ChatPoster
	methodInstruments
}

// NewChatPosterWithTelemetry returns an instance of the ChatPoster decorated with open telemetry timing and count metrics
func NewChatPosterWithTelemetry(base ChatPoster, name string, meter metric.Meter) (cp ChatPosterWithTelemetry, err error) {
	cp = ChatPosterWithTelemetry{base: base}
	cp.methodInstruments, err = newMethodInstruments("ChatPoster", []string{"PostMessage", "PostEphemeral"}, name, meter)

	return cp, err
}

// PostMessage implements ChatPoster
func (_d ChatPosterWithTelemetry) PostMessage(channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, err error) {
	_since := time.Now()
	defer func() {
		_d.record("PostMessage", _since, err)
	}()
	return _d.base.PostMessage(channelID, options...)
}

// PostEphemeral implements ChatPoster
func (_d ChatPosterWithTelemetry) PostEphemeral(channelID, userID string, options ...slack.MsgOption) (rTimestamp string, err error) {
	_since := time.Now()
	defer func() {
		_d.record("PostEphemeral", _since, err)
	}()
	return _d.base.PostEphemeral(channelID, userID, options...)
}
