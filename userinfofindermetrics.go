package tkscot

import (
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/metric"
)

// UserInfoFinderWithTelemetry implements UserInfoFinder interface with all methods wrapped
// with open telemetry metrics
type UserInfoFinderWithTelemetry struct {
	base UserInfoFinder
	methodInstruments
}

// NewUserInfoFinderWithTelemetry returns an instance of the UserInfoFinder decorated with open telemetry timing and count metrics
func NewUserInfoFinderWithTelemetry(base UserInfoFinder, name string, meter metric.Meter) (uf UserInfoFinderWithTelemetry, err error) {
	uf = UserInfoFinderWithTelemetry{base: base}
	uf.methodInstruments, err = newMethodInstruments("UserInfoFinder", []string{"GetUserInfo"}, name, meter)

	return uf, err
}

// GetUserInfo implements UserInfoFinder
func (_d UserInfoFinderWithTelemetry) GetUserInfo(userID string) (user *slack.User, err error) {
	_since := time.Now()
	defer func() {
		_d.record("GetUserInfo", _since, err)
	}()
	return _d.base.GetUserInfo(userID)
}
