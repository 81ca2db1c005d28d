package tkscot

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot/config"
	"github.com/teamkill/tkscot/schedule"
	"strings"
	"testing"
)

func newPluginWithActionsOfAllTypes() (p *Plugin) {
	p = new(Plugin)
	p.Name = "thank"
	p.Commands = []ActionDefinition{{
		Match: func(m *IncomingMessage) bool {
			return strings.HasPrefix(m.NormalizedText, "@user")
		},
		Usage:       "<someone of something to thank>",
		Description: "Format a thank you note",
		Answer: func(m *IncomingMessage) *Answer {
			return nil
		}},
		{
			Admin: true,
			Match: func(m *IncomingMessage) bool {
				return strings.HasPrefix(m.NormalizedText, "purge")
			},
			Usage:       "purge",
			Description: "Forget all thank you notes",
			Answer: func(m *IncomingMessage) *Answer {
				return nil
			}},
	}

	p.HearActions = []ActionDefinition{{
		Match: func(m *IncomingMessage) bool {
			return strings.Contains(m.NormalizedText, "chickadee")
		},
		Usage:       "say `chickadee` and hear a chirp",
		Description: "Chirp when hearing people talk about chickadees",
		Answer: func(m *IncomingMessage) *Answer {
			return nil
		}}}

	p.ScheduledActions = []ScheduledActionDefinition{{Schedule: schedule.Definition{Interval: 30, Unit: schedule.Seconds}, Description: "Sends a heartbeat every 30 seconds", Action: func() {}}}

	return p
}

const helpFooter = "\nAnd listen for the following:\n" +
	"\t• `say `chickadee` and hear a chirp` - Chirp when hearing people talk about chickadees\n\nAnd do those things periodically:\n" +
	"\t• [`thank`] `Every 30 seconds` (`Local`) - Sends a heartbeat every 30 seconds\n"

func TestHelpHidesAdminCommandsFromMembers(t *testing.T) {
	b, err := New("robert", config.NewViperWithDefaults())
	require.NoError(t, err)
	b.RegisterPlugin(newPluginWithActionsOfAllTypes())

	help := b.newHelpPlugin("1.0.0")
	help.UserInfoFinder = &userInfoFinder{}
	help.AdminChecker = adminSet{}

	cmd := help.Commands[0]
	assert.False(t, cmd.Match(&IncomingMessage{NormalizedText: " help"}))
	require.True(t, cmd.Match(&IncomingMessage{NormalizedText: "help"}))
	assert.True(t, cmd.Match(&IncomingMessage{NormalizedText: "help and something else"}))

	a := cmd.Answer(newIncomingMessage("help", "UMEMBER"))
	require.NotNil(t, a)

	assert.Equal(t, "🤝 Hi, `Daniel Quinn`! I'm `robert` (engine `v1.0.0`) and I keep count of the team's teamkills :skull:.\n\n"+
		"I currently support the following commands (mention me, DM me or use `/tk`):\n\t• `<someone of something to thank>` - Format a thank you note\n"+
		helpFooter, a.Text)
	assert.Equal(t, map[string]string{EphemeralAnswerToOpt: "UMEMBER"}, ApplyAnswerOpts(a.Options...))
}

func TestHelpListsAdminCommandsToAdmins(t *testing.T) {
	b, err := New("robert", config.NewViperWithDefaults())
	require.NoError(t, err)
	b.RegisterPlugin(newPluginWithActionsOfAllTypes())

	help := b.newHelpPlugin("1.0.0")
	help.UserInfoFinder = &userInfoFinder{}
	help.AdminChecker = adminSet{"UADMIN": true}

	a := help.Commands[0].Answer(newIncomingMessage("help", "UADMIN"))
	require.NotNil(t, a)

	assert.Equal(t, "🤝 Hi, `Daniel Quinn`! I'm `robert` (engine `v1.0.0`) and I keep count of the team's teamkills :skull:.\n\n"+
		"I currently support the following commands (mention me, DM me or use `/tk`):\n\t• `<someone of something to thank>` - Format a thank you note\n"+
		"\t• `purge` - Forget all thank you notes _(admin)_\n"+
		helpFooter, a.Text)
}

func TestHelpWithoutUserInfo(t *testing.T) {
	b, err := New("robert", config.NewViperWithDefaults())
	require.NoError(t, err)
	b.RegisterPlugin(newPluginWithActionsOfAllTypes())

	help := b.newHelpPlugin("1.0.0")
	help.UserInfoFinder = &userInfoFinder{fail: true}
	help.Logger = NewSLogger(newDiscardLogger(), false)
	help.AdminChecker = adminSet{}

	a := help.Commands[0].Answer(newIncomingMessage("help", "UMEMBER"))
	require.NotNil(t, a)

	assert.Equal(t, "I'm `robert` (engine `v1.0.0`) and I keep count of the team's teamkills :skull:.\n\n"+
		"I currently support the following commands (mention me, DM me or use `/tk`):\n\t• `<someone of something to thank>` - Format a thank you note\n"+
		helpFooter, a.Text)
}

func TestHelpOmitsHiddenActions(t *testing.T) {
	p := newPluginWithActionsOfAllTypes()
	for i := range p.Commands {
		p.Commands[i].Hidden = true
	}
	p.HearActions[0].Hidden = true
	p.ScheduledActions[0].Hidden = true

	b, err := New("robert", config.NewViperWithDefaults())
	require.NoError(t, err)
	b.RegisterPlugin(p)

	help := b.newHelpPlugin("1.0.0")
	help.UserInfoFinder = &userInfoFinder{}
	help.AdminChecker = adminSet{}

	a := help.Commands[0].Answer(newIncomingMessage("help", "UMEMBER"))
	require.NotNil(t, a)

	assert.Equal(t, "🤝 Hi, `Daniel Quinn`! I'm `robert` (engine `v1.0.0`) and I keep count of the team's teamkills :skull:.\n", a.Text)
}
