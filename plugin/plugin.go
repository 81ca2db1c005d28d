// Package plugin provides a fluent API for assembling tkscot plugins from actions built
// with github.com/teamkill/tkscot/actions
package plugin

import (
	"github.com/teamkill/tkscot"
)

// PluginBuilder holds a plugin to build
type PluginBuilder struct {
	plugin *tkscot.Plugin
}

// New creates a new PluginBuilder with a plugin with the given name and empty set of actions
func New(name string) (pb *PluginBuilder) {
	pb = new(PluginBuilder)
	pb.plugin = new(tkscot.Plugin)
	pb.plugin.Name = name
	pb.plugin.Commands = make([]tkscot.ActionDefinition, 0)
	pb.plugin.HearActions = make([]tkscot.ActionDefinition, 0)
	pb.plugin.ScheduledActions = make([]tkscot.ScheduledActionDefinition, 0)
	pb.plugin.BlockActions = make([]tkscot.BlockActionDefinition, 0)

	return pb
}

// WithCommand adds a command to the plugin
func (pb *PluginBuilder) WithCommand(command tkscot.ActionDefinition) *PluginBuilder {
	pb.plugin.Commands = append(pb.plugin.Commands, command)
	return pb
}

// WithHearAction adds an hear action to the plugin
func (pb *PluginBuilder) WithHearAction(hearAction tkscot.ActionDefinition) *PluginBuilder {
	pb.plugin.HearActions = append(pb.plugin.HearActions, hearAction)
	return pb
}

// WithScheduledAction adds a scheduled action to the plugin
func (pb *PluginBuilder) WithScheduledAction(scheduledAction tkscot.ScheduledActionDefinition) *PluginBuilder {
	pb.plugin.ScheduledActions = append(pb.plugin.ScheduledActions, scheduledAction)
	return pb
}

// WithBlockAction adds a block action (interactive element handler) to the plugin
func (pb *PluginBuilder) WithBlockAction(blockAction tkscot.BlockActionDefinition) *PluginBuilder {
	pb.plugin.BlockActions = append(pb.plugin.BlockActions, blockAction)
	return pb
}

// Build returns the created Plugin instance
func (pb *PluginBuilder) Build() (p *tkscot.Plugin) {
	return pb.plugin
}
