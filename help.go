package tkscot

import (
	"fmt"
	"github.com/teamkill/tkscot/config"
	"io"
	"strings"
)

type helpPlugin struct {
	Plugin

	name                   string
	engineVersion          string
	timeLocation           string
	slashCommand           string
	commands               []ActionDefinition
	hearActions            []ActionDefinition
	pluginScheduledActions []pluginScheduledAction
}

const (
	helpPluginName = "help"
)

// pluginScheduledAction represents a plugin's scheduled action with the plugin name and the action's definition
type pluginScheduledAction struct {
	plugin string
	ScheduledActionDefinition
}

func (b *Bot) newHelpPlugin(version string) *helpPlugin {
	commands, hearActions, scheduledActions := findAllActions(b.plugins)

	helpPlugin := new(helpPlugin)
	helpPlugin.timeLocation = b.config.GetString(config.TimeLocationKey)
	helpPlugin.name = b.name
	helpPlugin.engineVersion = version
	helpPlugin.slashCommand = b.slashCommand
	helpPlugin.commands = commands
	helpPlugin.hearActions = hearActions
	helpPlugin.pluginScheduledActions = scheduledActions

	helpPlugin.Plugin = Plugin{Name: helpPluginName, Commands: []ActionDefinition{{
		Match: func(m *IncomingMessage) bool {
			return strings.HasPrefix(m.NormalizedText, "help")
		},
		Usage:       helpPluginName,
		Description: "Reply with usage instructions",
		Answer:      helpPlugin.showHelp,
	}}, HearActions: nil}

	return helpPlugin
}

// showHelp generates a message providing a list of all of the commands and hear actions.
// Note that ActionDefinitions with the flag Hidden set to true won't be included in the list and that
// admin actions are only listed for admins
func (h *helpPlugin) showHelp(m *IncomingMessage) *Answer {
	var b strings.Builder

	userID := m.User
	user, err := h.UserInfoFinder.GetUserInfo(userID)
	if err != nil {
		h.Logger.Debugf("Error getting user info for user id [%s] so skipping mentioning the name (it would be awkward): %v", userID, err)
	} else {
		fmt.Fprintf(&b, "🤝 Hi, `%s`! ", user.RealName)
	}

	fmt.Fprintf(&b, "I'm `%s` (engine `v%s`) and I keep count of the team's teamkills :skull:.\n", h.name, h.engineVersion)

	admin := h.AdminChecker != nil && h.AdminChecker.IsAdmin(userID)

	commands := filterAdminActions(admin, h.commands)
	if len(commands) > 0 {
		fmt.Fprintf(&b, "\nI currently support the following commands (mention me, DM me or use `%s`):\n", h.slashCommand)

		appendActions(&b, commands)
	}

	hearActions := filterAdminActions(admin, h.hearActions)
	if len(hearActions) > 0 {
		fmt.Fprintf(&b, "\nAnd listen for the following:\n")

		appendActions(&b, hearActions)
	}

	if len(h.pluginScheduledActions) > 0 {
		fmt.Fprintf(&b, "\nAnd do those things periodically:\n")

		appendScheduledActions(&b, h.timeLocation, h.pluginScheduledActions)
	}

	return &Answer{Text: b.String(), Options: []AnswerOption{AnswerEphemeral(userID)}}
}

func appendActions(w io.Writer, actions []ActionDefinition) {
	for _, value := range actions {
		if value.Usage != "" && !value.Hidden {
			adminMark := ""
			if value.Admin {
				adminMark = " _(admin)_"
			}

			fmt.Fprintf(w, "\t• `%s` - %s%s\n", value.Usage, value.Description, adminMark)
		}
	}
}

func appendScheduledActions(w io.Writer, timeLocationName string, scheduledActions []pluginScheduledAction) {
	for _, value := range scheduledActions {
		if !value.ScheduledActionDefinition.Hidden {
			fmt.Fprintf(w, "\t• [`%s`] `%s` (`%s`) - %s\n", value.plugin, value.ScheduledActionDefinition.Schedule, timeLocationName, value.ScheduledActionDefinition.Description)
		}
	}
}

func findAllActions(plugins []*Plugin) (commands []ActionDefinition, hearActions []ActionDefinition, pluginScheduledActions []pluginScheduledAction) {
	commands = make([]ActionDefinition, 0)
	hearActions = make([]ActionDefinition, 0)
	pluginScheduledActions = make([]pluginScheduledAction, 0)

	for _, p := range plugins {
		commands = append(commands, filterNonHiddenActions(p.Commands)...)
		hearActions = append(hearActions, filterNonHiddenActions(p.HearActions)...)
		pluginScheduledActions = append(pluginScheduledActions, filterNonHiddenScheduledActions(p.Name, p.ScheduledActions)...)
	}

	return commands, hearActions, pluginScheduledActions
}

func filterNonHiddenActions(actions []ActionDefinition) (visibleActions []ActionDefinition) {
	visibleActions = make([]ActionDefinition, 0)
	for _, a := range actions {
		if !a.Hidden {
			visibleActions = append(visibleActions, a)
		}
	}

	return visibleActions
}

// filterAdminActions drops admin actions unless admin is true
func filterAdminActions(admin bool, actions []ActionDefinition) (allowed []ActionDefinition) {
	allowed = make([]ActionDefinition, 0)
	for _, a := range actions {
		if admin || !a.Admin {
			allowed = append(allowed, a)
		}
	}

	return allowed
}

func filterNonHiddenScheduledActions(pluginName string, actions []ScheduledActionDefinition) (visibleActions []pluginScheduledAction) {
	visibleActions = make([]pluginScheduledAction, 0)

	for _, sa := range actions {
		if !sa.Hidden {
			visibleActions = append(visibleActions, pluginScheduledAction{plugin: pluginName, ScheduledActionDefinition: sa})
		}
	}

	return visibleActions
}
