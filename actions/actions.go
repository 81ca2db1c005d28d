/*
Package actions provides a fluent API for creating tkscot plugin actions. Typical usages
will also involve using the plugin fluent API from github.com/teamkill/tkscot/plugin.

A quick example could look like:

	import (
		"github.com/teamkill/tkscot"
		"github.com/teamkill/tkscot/actions"
		"github.com/teamkill/tkscot/plugin"
		"github.com/teamkill/tkscot/schedule"
	)

	func newPlugin() (p *tkscot.Plugin) {
		p = plugin.New("scoreboard").
			WithCommand(actions.NewCommand().
				WithMatcher(func(m *tkscot.IncomingMessage) bool {
					return strings.HasPrefix(m.NormalizedText, "score")
				}).
				WithUsage("score").
				WithDescription("Show the score").
				WithAnswerer(func(m *tkscot.IncomingMessage) *tkscot.Answer {
					return &tkscot.Answer{Text: "Nobody is winning"}
				}).
				Build()).
			WithCommand(actions.NewCommand().
				Admin().
				WithMatcher(func(m *tkscot.IncomingMessage) bool {
					return m.NormalizedText == "wipe"
				}).
				WithUsage("wipe").
				WithDescription("Wipe the score").
				WithAnswerer(wipe).
				Build()).
			WithBlockAction(actions.NewBlockAction().
				WithActionIDPrefix("wipe_").
				Admin().
				WithHandler(confirmWipe).
				Build()).
			WithScheduledAction(actions.NewScheduledAction().
				WithSchedule(schedule.Every(15 * time.Minute)).
				WithDescription("Save the score").
				WithAction(save).
				Build()).
			Build()
		return p
	}
*/
package actions

import (
	"fmt"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/schedule"
)

// ActionBuilder holds the action to build
type ActionBuilder struct {
	action tkscot.ActionDefinition
}

// BlockActionBuilder holds the block action to build
type BlockActionBuilder struct {
	blockAction tkscot.BlockActionDefinition
}

// ScheduledActionBuilder holds the scheduled action to build
type ScheduledActionBuilder struct {
	scheduledAction tkscot.ScheduledActionDefinition
}

var (
	// Default to always match. This is acceptable since we can accomplish the same
	// behavior most of the time by returning nil in the Answerer instead. For most cases,
	// this is fine as checking for a match still requires the Answerer to extract info
	// from the same matching logic. A simple matcher can be useful when the matching/triggering
	// logic can be made entirely separate from the answer logic (i.e. probability matching)
	defaultMatcher = func(m *tkscot.IncomingMessage) bool {
		return true
	}

	// Default to always return nil. This is not a default you want to use in most cases
	defaultAnswerer = func(m *tkscot.IncomingMessage) *tkscot.Answer {
		return nil
	}
)

// newAction creates a new action and returns the ActionBuilder to set various attributes
// of the action. When done with the setup, the caller is expected to call Build() to get
// the action
func newAction() (ab *ActionBuilder) {
	ab = new(ActionBuilder)
	ab.action = tkscot.ActionDefinition{Hidden: false}

	ab.action.Match = defaultMatcher
	ab.action.Answer = defaultAnswerer

	return ab
}

// NewCommand returns a new ActionBuilder to build a new command
func NewCommand() (ab *ActionBuilder) {
	return newAction()
}

// NewHearAction returns a new ActionBuilder to build a new hear action
func NewHearAction() (ab *ActionBuilder) {
	return newAction()
}

// WithMatcher sets the action's matcher function
func (ab *ActionBuilder) WithMatcher(matcher tkscot.Matcher) *ActionBuilder {
	ab.action.Match = matcher
	return ab
}

// WithUsage sets the action usage
func (ab *ActionBuilder) WithUsage(usage string) *ActionBuilder {
	ab.action.Usage = usage
	return ab
}

// WithDescription sets the action description
func (ab *ActionBuilder) WithDescription(description string) *ActionBuilder {
	ab.action.Description = description
	return ab
}

// WithDescriptionf sets the action description delegating format and arguments to fmt.Sprintf
func (ab *ActionBuilder) WithDescriptionf(format string, a ...interface{}) *ActionBuilder {
	ab.action.Description = fmt.Sprintf(format, a...)
	return ab
}

// WithAnswerer sets the action's answerer function
func (ab *ActionBuilder) WithAnswerer(answerer tkscot.Answerer) *ActionBuilder {
	ab.action.Answer = answerer
	return ab
}

// Hidden sets the action to hidden
func (ab *ActionBuilder) Hidden() *ActionBuilder {
	ab.action.Hidden = true
	return ab
}

// Admin restricts the action to admins
func (ab *ActionBuilder) Admin() *ActionBuilder {
	ab.action.Admin = true
	return ab
}

// Build returns the ActionDefinition
func (ab *ActionBuilder) Build() tkscot.ActionDefinition {
	return ab.action
}

// NewScheduledAction returns a new ScheduledActionBuilder to build a new ScheduledActionDefinition
func NewScheduledAction() (sab *ScheduledActionBuilder) {
	sab = new(ScheduledActionBuilder)
	sab.scheduledAction = tkscot.ScheduledActionDefinition{Hidden: false}
	sab.scheduledAction.Action = func() {}

	return sab
}

// WithSchedule sets the schedule for the scheduled action
func (sab *ScheduledActionBuilder) WithSchedule(schedule schedule.Definition) *ScheduledActionBuilder {
	sab.scheduledAction.Schedule = schedule
	return sab
}

// WithDescription sets the scheduled action description
func (sab *ScheduledActionBuilder) WithDescription(desc string) *ScheduledActionBuilder {
	sab.scheduledAction.Description = desc
	return sab
}

// WithDescriptionf sets the scheduled action description delegating format and arguments to fmt.Sprintf
func (sab *ScheduledActionBuilder) WithDescriptionf(format string, a ...interface{}) *ScheduledActionBuilder {
	sab.scheduledAction.Description = fmt.Sprintf(format, a...)
	return sab
}

// WithAction sets the action function to run on schedule
func (sab *ScheduledActionBuilder) WithAction(action tkscot.ScheduledAction) *ScheduledActionBuilder {
	sab.scheduledAction.Action = action
	return sab
}

// Build returns the ScheduledActionDefinition
func (sab *ScheduledActionBuilder) Build() tkscot.ScheduledActionDefinition {
	return sab.scheduledAction
}

// NewBlockAction returns a new BlockActionBuilder to build a new BlockActionDefinition. Without an action id prefix,
// the block action handles every action id
func NewBlockAction() (bab *BlockActionBuilder) {
	bab = new(BlockActionBuilder)
	bab.blockAction.Handle = func(a *tkscot.BlockAction) *tkscot.Answer {
		return nil
	}

	return bab
}

// WithActionIDPrefix sets the prefix of action ids handled by the block action
func (bab *BlockActionBuilder) WithActionIDPrefix(prefix string) *BlockActionBuilder {
	bab.blockAction.ActionIDPrefix = prefix
	return bab
}

// Admin restricts the block action to admins
func (bab *BlockActionBuilder) Admin() *BlockActionBuilder {
	bab.blockAction.Admin = true
	return bab
}

// WithHandler sets the block action handler
func (bab *BlockActionBuilder) WithHandler(handler tkscot.BlockActionHandler) *BlockActionBuilder {
	bab.blockAction.Handle = handler
	return bab
}

// Build returns the BlockActionDefinition
func (bab *BlockActionBuilder) Build() tkscot.BlockActionDefinition {
	return bab.blockAction
}
