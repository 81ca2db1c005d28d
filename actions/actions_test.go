package actions_test

import (
	"github.com/stretchr/testify/assert"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/actions"
	"github.com/teamkill/tkscot/schedule"
	"testing"
	"time"
)

func TestNewCommandWithDefaults(t *testing.T) {
	action := actions.NewCommand().Build()
	assert.False(t, action.Hidden)
	assert.True(t, action.Match(&tkscot.IncomingMessage{}))
	assert.Nil(t, action.Answer(&tkscot.IncomingMessage{}))
}

func TestNewHearActionWithDefaults(t *testing.T) {
	action := actions.NewHearAction().Build()
	assert.False(t, action.Hidden)
	assert.True(t, action.Match(&tkscot.IncomingMessage{}))
	assert.Nil(t, action.Answer(&tkscot.IncomingMessage{}))
}

func TestNewActionWithMatcher(t *testing.T) {
	action := actions.NewHearAction().
		WithMatcher(func(m *tkscot.IncomingMessage) bool {
			return false
		}).
		Build()

	assert.False(t, action.Match(&tkscot.IncomingMessage{}))
}

func TestNewActionWithAnswerer(t *testing.T) {
	action := actions.NewHearAction().
		WithAnswerer(func(m *tkscot.IncomingMessage) *tkscot.Answer {
			return &tkscot.Answer{Text: "fake answer"}
		}).
		Build()

	assert.Equal(t, &tkscot.Answer{Text: "fake answer"}, action.Answer(&tkscot.IncomingMessage{}))
}

func TestNewActionWithUsage(t *testing.T) {
	action := actions.NewHearAction().
		WithUsage("make something").
		Build()

	assert.Equal(t, "make something", action.Usage)
}

func TestNewActionWithDescription(t *testing.T) {
	action := actions.NewHearAction().
		WithDescription("Instruct me to make something").
		Build()

	assert.Equal(t, "Instruct me to make something", action.Description)
}

func TestNewActionWithDescriptionf(t *testing.T) {
	action := actions.NewHearAction().
		WithDescriptionf("Instruct me to make one of %s", []string{"coffee", "soup"}).
		Build()

	assert.Equal(t, "Instruct me to make one of [coffee soup]", action.Description)
}

func TestNewAdminAction(t *testing.T) {
	action := actions.NewCommand().
		Admin().
		Build()

	assert.True(t, action.Admin)
	assert.False(t, action.Hidden)
}

func TestNewBlockActionWithDefaults(t *testing.T) {
	action := actions.NewBlockAction().Build()

	assert.Equal(t, "", action.ActionIDPrefix)
	assert.False(t, action.Admin)
	assert.Nil(t, action.Handle(&tkscot.BlockAction{ActionID: "anything"}))
}

func TestNewBlockAction(t *testing.T) {
	action := actions.NewBlockAction().
		WithActionIDPrefix("restore_").
		Admin().
		WithHandler(func(a *tkscot.BlockAction) *tkscot.Answer {
			return &tkscot.Answer{Text: a.Value}
		}).
		Build()

	assert.Equal(t, "restore_", action.ActionIDPrefix)
	assert.True(t, action.Admin)
	assert.Equal(t, &tkscot.Answer{Text: "42"}, action.Handle(&tkscot.BlockAction{Value: "42"}))
}

func TestNewHiddenAction(t *testing.T) {
	action := actions.NewHearAction().
		Hidden().
		Build()

	assert.True(t, action.Hidden)
}

func TestNewScheduledActionWithDefaults(t *testing.T) {
	action := actions.NewScheduledAction().Build()

	assert.False(t, action.Hidden)
	assert.Equal(t, schedule.Definition{}, action.Schedule)
	assert.NotPanics(t, assert.PanicTestFunc(action.Action))
}

func TestNewScheduledActionWithSchedule(t *testing.T) {
	action := actions.NewScheduledAction().WithSchedule(schedule.Every(time.Hour)).Build()

	assert.Equal(t, schedule.Definition{Interval: 1, Unit: schedule.Hours}, action.Schedule)
}

func TestNewScheduledActionWithDescription(t *testing.T) {
	action := actions.NewScheduledAction().
		WithDescription("Make a surprise").
		Build()

	assert.Equal(t, "Make a surprise", action.Description)
}

func TestNewScheduledActionWithDescriptionf(t *testing.T) {
	action := actions.NewScheduledAction().
		WithDescriptionf("Make one of %s", []string{"coffee", "soup"}).
		Build()

	assert.Equal(t, "Make one of [coffee soup]", action.Description)
}

func TestNewScheduledActionWithAction(t *testing.T) {
	action := actions.NewScheduledAction().
		WithAction(func() {
			panic("just checking that it's me")
		}).
		Build()

	assert.PanicsWithValue(t, "just checking that it's me", assert.PanicTestFunc(action.Action))
}
