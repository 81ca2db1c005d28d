package tkscot

import (
	"context"
	"fmt"
	"github.com/marcsantiago/gocron"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/viper"
	"github.com/teamkill/tkscot/config"
	"github.com/teamkill/tkscot/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

const (
	// VERSION represents the current engine version
	VERSION = "1.0.0"

	defaultMeterName = "github.com/teamkill/tkscot"

	threadBroadcastSubType = "thread_broadcast"
)

// Bot represents what defines a tkscot bot (mostly, a name and its plugins)
type Bot struct {
	name          string
	config        *viper.Viper
	defaultAction Answerer
	plugins       []*Plugin

	// Internal state as an optimization when looping through all commands/hearActions/blockActions
	commandsWithID     []ActionDefinitionWithID
	hearActionsWithID  []ActionDefinitionWithID
	blockActionsWithID []BlockActionDefinitionWithID

	selfID      string
	selfName    string
	selfMention string

	slashCommand string

	services BotServices
	log      SLogger
	meter    metric.Meter
	ins      *instrumenter

	closers []io.Closer
}

// Plugin represents a plugin (its name, action definitions and the services injected
// by the engine on startup)
type Plugin struct {
	Name string

	Commands         []ActionDefinition
	HearActions      []ActionDefinition
	ScheduledActions []ScheduledActionDefinition
	BlockActions     []BlockActionDefinition

	// Services injected by the engine before it starts processing events
	BotServices
}

// BotServices holds the services made available to plugins
type BotServices struct {
	Logger         SLogger
	ChatPoster     ChatPoster
	UserInfoFinder UserInfoFinder
	AdminChecker   AdminChecker
	FileUploader   FileUploader
	FileDownloader FileDownloader
}

// ActionDefinition represents how an action is triggered, published, used and described
// along with defining the function defining its behavior
type ActionDefinition struct {
	// Indicates whether the action should be omitted from the help message
	Hidden bool

	// Indicates whether the action is restricted to admins. Non-admins get an ephemeral denial
	Admin bool

	// Matcher that will determine whether or not the action should be triggered
	Match Matcher

	// Usage example
	Usage string

	// Help description for the action
	Description string

	// Function to execute if the Matcher matches
	Answer Answerer
}

// IncomingMessage holds the original slack message along with its text normalized (the bot
// mention or slash command stripped from it)
type IncomingMessage struct {
	// NormalizedText is the text of the message without the bot mention prefix
	NormalizedText string

	// SlashCommand is the slash command that carried this message. Empty for regular messages
	SlashCommand string

	slack.Msg
}

// Matcher is the function that determines whether or not an action should be triggered. Note that a match doesn't guarantee that the action should
// actually respond with anything once invoked
type Matcher func(m *IncomingMessage) bool

// Answerer is what gets executed when an ActionDefinition is triggered. A nil Answer means nothing to answer
type Answerer func(m *IncomingMessage) *Answer

// ScheduledActionDefinition represents when a scheduled action is triggered as well
// as what it does and how
type ScheduledActionDefinition struct {
	// Indicates whether the action should be omitted from the help message
	Hidden bool

	// Schedule definition determining when the action runs
	Schedule schedule.Definition

	// Help description for the scheduled action
	Description string

	// Action is the function that is invoked when the schedule activates
	Action ScheduledAction
}

// ScheduledAction is what gets executed when a ScheduledActionDefinition is triggered (by its schedule.Definition)
type ScheduledAction func()

// BlockAction holds the details of a click on an interactive element (i.e. a button)
type BlockAction struct {
	ActionID         string
	BlockID          string
	Value            string
	UserID           string
	UserName         string
	ChannelID        string
	MessageTimestamp string
	ResponseURL      string
}

// BlockActionHandler is what gets executed when a BlockActionDefinition is triggered
type BlockActionHandler func(a *BlockAction) *Answer

// BlockActionDefinition routes interactive element actions to a handler
type BlockActionDefinition struct {
	// ActionIDPrefix selects the actions handled by this definition
	ActionIDPrefix string

	// Indicates whether the action is restricted to admins
	Admin bool

	// Handle is invoked with the action details
	Handle BlockActionHandler
}

// ActionDefinitionWithID holds an action definition along with its identifier string
type ActionDefinitionWithID struct {
	ActionDefinition
	id     string
	plugin *Plugin
}

// BlockActionDefinitionWithID holds a block action definition along with its identifier string
type BlockActionDefinitionWithID struct {
	BlockActionDefinition
	id string
}

// String returns a friendly description of a ScheduledActionDefinition
func (a ScheduledActionDefinition) String() string {
	return fmt.Sprintf("`%s` - %s", a.Schedule, a.Description)
}

// String returns a friendly description of an ActionDefinition
func (a ActionDefinition) String() string {
	return fmt.Sprintf("`%s` - %s", a.Usage, a.Description)
}

// acker acknowledges socket mode requests. socketmode.Client implements it
type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// Option defines an option for a Bot
type Option func(*Bot)

// OptionLog sets a logger for the bot. The debug flag is read from the configuration
func OptionLog(logger *log.Logger) Option {
	return func(b *Bot) {
		b.log = NewSLogger(logger, b.config.GetBool(config.DebugKey))
	}
}

// OptionLogger sets the SLogger for the bot
func OptionLogger(logger SLogger) Option {
	return func(b *Bot) {
		b.log = logger
	}
}

// OptionMeter sets the meter used to instrument the bot. Defaults to the global otel meter provider
func OptionMeter(meter metric.Meter) Option {
	return func(b *Bot) {
		b.meter = meter
	}
}

// New creates a new bot given a name, a configuration and options
func New(name string, v *viper.Viper, options ...Option) (b *Bot, err error) {
	b = new(Bot)
	b.name = name
	b.config = v
	b.plugins = make([]*Plugin, 0)
	b.slashCommand = v.GetString(config.SlashCommandKey)
	b.defaultAction = func(m *IncomingMessage) *Answer {
		return &Answer{Text: fmt.Sprintf("I don't understand, ask me for \"%s\" to get a list of things I do", helpPluginName), Options: []AnswerOption{AnswerEphemeral(m.User)}}
	}
	b.log = NewSLogger(log.New(os.Stdout, "tkscot: ", log.Lshortfile|log.LstdFlags), v.GetBool(config.DebugKey))
	b.meter = otel.Meter(defaultMeterName)

	for _, opt := range options {
		opt(b)
	}

	if b.ins, err = newInstrumenter(name, b.meter); err != nil {
		return nil, errors.Wrap(err, "failed to set up instrumentation")
	}

	return b, nil
}

// RegisterPlugin registers a plugin with the engine. This should be invoked
// prior to calling Run
func (b *Bot) RegisterPlugin(p *Plugin) {
	b.plugins = append(b.plugins, p)
}

// Close closes all closers registered with the bot (usually plugin resources)
func (b *Bot) Close() (err error) {
	for _, c := range b.closers {
		if cerr := c.Close(); cerr != nil {
			b.log.Printf("Error closing [%v]: %v", c, cerr)
			if err == nil {
				err = cerr
			}
		}
	}

	return err
}

// Run connects to slack with socket mode and processes events until the context is done
func (b *Bot) Run(ctx context.Context) (err error) {
	debug := b.config.GetBool(config.DebugKey)

	api := slack.New(
		b.config.GetString(config.TokenKey),
		slack.OptionAppLevelToken(b.config.GetString(config.AppTokenKey)),
		slack.OptionDebug(debug),
		slack.OptionLog(log.New(os.Stdout, "slack: ", log.Lshortfile|log.LstdFlags)),
	)

	client := socketmode.New(
		api,
		socketmode.OptionDebug(debug),
		socketmode.OptionLog(log.New(os.Stdout, "socketmode: ", log.Lshortfile|log.LstdFlags)),
	)

	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		return errors.Wrap(err, "slack authentication failed")
	}

	services, err := b.newServices(api)
	if err != nil {
		return err
	}

	b.init(auth.UserID, auth.User, services)

	timeLoc, err := config.GetTimeLocation(b.config)
	if err != nil {
		return err
	}

	stopScheduler, err := b.startActionScheduler(timeLoc)
	if err != nil {
		return err
	}
	defer func() {
		stopScheduler <- true
	}()

	connErr := make(chan error, 1)
	go func() {
		connErr <- client.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			b.log.Printf("Shutting down")
			return nil
		case err := <-connErr:
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "socket mode connection ended")
		case evt := <-client.Events:
			b.handleEvent(evt, client)
		}
	}
}

// newServices creates the services injected into plugins, all instrumented
func (b *Bot) newServices(api *slack.Client) (services BotServices, err error) {
	userInfoFinder, err := NewCachingUserInfoFinder(b.config, api, b.log)
	if err != nil {
		return services, err
	}

	if services.UserInfoFinder, err = NewUserInfoFinderWithTelemetry(userInfoFinder, b.name, b.meter); err != nil {
		return services, err
	}

	if services.ChatPoster, err = NewChatPosterWithTelemetry(api, b.name, b.meter); err != nil {
		return services, err
	}

	if services.FileUploader, err = NewFileUploaderWithTelemetry(NewFileUploader(api), b.name, b.meter); err != nil {
		return services, err
	}

	if services.FileDownloader, err = NewFileDownloaderWithTelemetry(NewFileDownloader(api), b.name, b.meter); err != nil {
		return services, err
	}

	services.AdminChecker = NewAdminChecker(config.GetAdmins(b.config), services.UserInfoFinder, b.log)

	return services, nil
}

// init caches the bot identity, injects services into plugins and indexes all actions. It must
// be called once all plugins are registered
func (b *Bot) init(selfID string, selfName string, services BotServices) {
	b.selfID = selfID
	b.selfName = selfName
	b.selfMention = fmt.Sprintf("<@%s>", selfID)

	services.Logger = b.log
	b.services = services

	helpPlugin := b.newHelpPlugin(VERSION)
	b.RegisterPlugin(&helpPlugin.Plugin)

	for _, p := range b.plugins {
		p.BotServices = services
	}

	b.attachIdentifiersToPluginActions()
	b.log.Printf("Ready as [%s] (%s) with %d plugins", selfName, selfID, len(b.plugins))
}

// attachIdentifiersToPluginActions indexes all plugin actions with an identifier of the form
// pluginName.c[commandIndex], pluginName.h[actionIndex] or pluginName.b[blockActionIndex]
func (b *Bot) attachIdentifiersToPluginActions() {
	b.commandsWithID = make([]ActionDefinitionWithID, 0)
	b.hearActionsWithID = make([]ActionDefinitionWithID, 0)
	b.blockActionsWithID = make([]BlockActionDefinitionWithID, 0)

	for _, p := range b.plugins {
		for i, c := range p.Commands {
			b.commandsWithID = append(b.commandsWithID, ActionDefinitionWithID{ActionDefinition: c, id: fmt.Sprintf("%s.c[%d]", p.Name, i), plugin: p})
		}

		for i, h := range p.HearActions {
			b.hearActionsWithID = append(b.hearActionsWithID, ActionDefinitionWithID{ActionDefinition: h, id: fmt.Sprintf("%s.h[%d]", p.Name, i), plugin: p})
		}

		for i, ba := range p.BlockActions {
			b.blockActionsWithID = append(b.blockActionsWithID, BlockActionDefinitionWithID{BlockActionDefinition: ba, id: fmt.Sprintf("%s.b[%d]", p.Name, i)})
		}
	}
}

// startActionScheduler schedules all plugin scheduled actions and starts the scheduler. Sending
// on the returned channel stops it
func (b *Bot) startActionScheduler(timeLoc *time.Location) (stop chan bool, err error) {
	gocron.ChangeLoc(timeLoc)
	sc := gocron.NewScheduler()

	for _, p := range b.plugins {
		for _, sa := range p.ScheduledActions {
			j, err := schedule.NewJob(sc, sa.Schedule)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to schedule action [%s] of plugin [%s]", sa.Description, p.Name)
			}

			b.log.Debugf("Adding job [%v] to scheduler", j)
			j.Do(sa.Action)
		}
	}

	if _, t := sc.NextRun(); !t.IsZero() {
		b.log.Printf("Next job scheduled at %s", t)
	}

	return sc.Start(), nil
}

// handleEvent acknowledges socket mode requests and dispatches events to plugins. Requests are acknowledged
// before any processing happens
func (b *Bot) handleEvent(evt socketmode.Event, ack acker) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.log.Printf("Connecting to slack with socket mode...")

	case socketmode.EventTypeConnected:
		b.log.Printf("Connected to slack")

	case socketmode.EventTypeConnectionError:
		b.log.Printf("Connection failed, retrying: %v", evt.Data)

	case socketmode.EventTypeEventsAPI:
		b.ack(evt, ack)

		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			b.log.Debugf("Ignoring unexpected events api payload: %v", evt.Data)
			return
		}

		if eventsAPIEvent.Type != slackevents.CallbackEvent {
			return
		}

		if e, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			b.processMessageEvent(e)
		}

	case socketmode.EventTypeSlashCommand:
		b.ack(evt, ack)

		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			b.log.Debugf("Ignoring unexpected slash command payload: %v", evt.Data)
			return
		}

		b.processSlashCommand(cmd)

	case socketmode.EventTypeInteractive:
		b.ack(evt, ack)

		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			b.log.Debugf("Ignoring unexpected interaction payload: %v", evt.Data)
			return
		}

		if callback.Type == slack.InteractionTypeBlockActions {
			b.processBlockActions(callback)
		}

	default:
		b.log.Debugf("Ignoring event of type [%s]", evt.Type)
	}
}

func (b *Bot) ack(evt socketmode.Event, ack acker) {
	if evt.Request != nil {
		ack.Ack(*evt.Request)
	}
}

// processMessageEvent handles a new message. Messages from the bot itself, from other bots
// as well as message edits and deletions are ignored
func (b *Bot) processMessageEvent(e *slackevents.MessageEvent) {
	b.ins.msgSeen()

	if e.User == "" || e.User == b.selfID || e.BotID != "" {
		return
	}

	if e.SubType != "" && e.SubType != threadBroadcastSubType {
		b.log.Debugf("Ignoring message with subtype [%s]", e.SubType)
		return
	}

	m := slack.Msg{Type: "message", Channel: e.Channel, User: e.User, Text: e.Text, Timestamp: e.TimeStamp, ThreadTimestamp: e.ThreadTimeStamp, SubType: e.SubType}

	d := measure(func() {
		for _, a := range b.answersTo(&m) {
			b.sendAnswer(m.Channel, &m, a, "")
		}
	})

	b.ins.msgProcessed(msgTypeMessage, d)
}

// processSlashCommand routes the slash command text to plugin commands
func (b *Bot) processSlashCommand(cmd slack.SlashCommand) {
	b.ins.msgSeen()

	if b.slashCommand != "" && cmd.Command != b.slashCommand {
		b.log.Printf("Ignoring unknown slash command [%s]", cmd.Command)
		return
	}

	m := slack.Msg{Type: "message", Channel: cmd.ChannelID, User: cmd.UserID, Username: cmd.UserName, Text: cmd.Text}
	inMsg := IncomingMessage{NormalizedText: strings.TrimSpace(cmd.Text), SlashCommand: cmd.Command, Msg: m}

	d := measure(func() {
		for _, a := range b.runCommands(&inMsg) {
			b.sendAnswer(m.Channel, &m, a, "")
		}
	})

	b.ins.msgProcessed(msgTypeSlashCommand, d)
}

// processBlockActions routes every action of an interaction to the first block action definition matching its action id
func (b *Bot) processBlockActions(callback slack.InteractionCallback) {
	channelID := callback.Channel.ID
	if channelID == "" {
		channelID = callback.Container.ChannelID
	}

	messageTimestamp := callback.Message.Timestamp
	if messageTimestamp == "" {
		messageTimestamp = callback.Container.MessageTs
	}

	for _, action := range callback.ActionCallback.BlockActions {
		ba := BlockAction{ActionID: action.ActionID, BlockID: action.BlockID, Value: action.Value, UserID: callback.User.ID, UserName: callback.User.Name,
			ChannelID: channelID, MessageTimestamp: messageTimestamp, ResponseURL: callback.ResponseURL}

		d := measure(func() {
			if answer := b.runBlockAction(&ba); answer != nil {
				b.sendAnswer(channelID, &slack.Msg{Channel: channelID, User: ba.UserID}, answer, ba.ResponseURL)
			}
		})

		b.ins.msgProcessed(msgTypeBlockAction, d)
	}
}

// answersTo returns the answers to a message. Messages starting with the bot mention and direct messages
// are commands while everything else goes to hear actions
func (b *Bot) answersTo(m *slack.Msg) (answers []*Answer) {
	if strings.HasPrefix(m.Text, b.selfMention) {
		inMsg := IncomingMessage{NormalizedText: strings.TrimSpace(strings.TrimPrefix(m.Text, b.selfMention)), Msg: *m}
		return b.runCommands(&inMsg)
	}

	inMsg := IncomingMessage{NormalizedText: m.Text, Msg: *m}
	if isDirectMessage(m.Channel) {
		return b.runCommands(&inMsg)
	}

	return b.runHearActions(&inMsg)
}

// runCommands runs all matching commands. The default action answers when no command matches
func (b *Bot) runCommands(m *IncomingMessage) (answers []*Answer) {
	answers = make([]*Answer, 0)
	matched := false

	for _, c := range b.commandsWithID {
		if c.Match(m) {
			matched = true
			if a := b.invoke(c, m); a != nil {
				answers = append(answers, a)
			}
		}
	}

	if !matched {
		answers = append(answers, b.defaultAction(m))
	}

	return answers
}

// runHearActions runs all matching hear actions
func (b *Bot) runHearActions(m *IncomingMessage) (answers []*Answer) {
	answers = make([]*Answer, 0)

	for _, h := range b.hearActionsWithID {
		if h.Match(m) {
			if a := b.invoke(h, m); a != nil {
				answers = append(answers, a)
			}
		}
	}

	return answers
}

// invoke runs an action after checking admin access
func (b *Bot) invoke(action ActionDefinitionWithID, m *IncomingMessage) (answer *Answer) {
	if action.Admin && !b.isAdmin(m.User) {
		b.log.Printf("Denied [%s] to non-admin user [%s]", action.id, m.User)
		return NewDenialAnswer(m.User, action.Usage)
	}

	d := measure(func() {
		answer = action.Answer(m)
	})

	b.ins.actionRan(action.plugin.Name, answer != nil, d)
	b.log.Debugf("Action [%s] answered [%v] in %s", action.id, answer != nil, d)

	return answer
}

// runBlockAction runs the first block action definition whose prefix matches the action id
func (b *Bot) runBlockAction(ba *BlockAction) (answer *Answer) {
	for _, def := range b.blockActionsWithID {
		if !strings.HasPrefix(ba.ActionID, def.ActionIDPrefix) {
			continue
		}

		if def.Admin && !b.isAdmin(ba.UserID) {
			b.log.Printf("Denied block action [%s] to non-admin user [%s]", def.id, ba.UserID)
			return NewDenialAnswer(ba.UserID, ba.ActionID)
		}

		return def.Handle(ba)
	}

	b.log.Debugf("No block action handler for action id [%s]", ba.ActionID)
	return nil
}

func (b *Bot) isAdmin(userID string) bool {
	return b.services.AdminChecker != nil && b.services.AdminChecker.IsAdmin(userID)
}

// NewDenialAnswer returns the ephemeral answer sent to non-admins invoking admin actions
func NewDenialAnswer(userID string, usage string) (a *Answer) {
	return &Answer{Text: fmt.Sprintf(":no_entry: Sorry <@%s>, `%s` is restricted to admins", userID, usage), Options: []AnswerOption{AnswerEphemeral(userID)}}
}

// sendAnswer delivers an answer to a channel. When a responseURL is provided and the answer asks for it, the answer
// replaces the interactive message it responds to
func (b *Bot) sendAnswer(channelID string, m *slack.Msg, answer *Answer, responseURL string) {
	sendOpts := ApplyAnswerOpts(answer.Options...)

	msgOpts := []slack.MsgOption{slack.MsgOptionText(answer.Text, false)}
	if len(answer.ContentBlocks) > 0 {
		msgOpts = append(msgOpts, slack.MsgOptionBlocks(answer.ContentBlocks...))
	}

	var err error
	switch {
	case responseURL != "" && sendOpts[ReplaceOriginalOpt] == "true":
		msgOpts = append(msgOpts, slack.MsgOptionReplaceOriginal(responseURL))
		_, _, err = b.services.ChatPoster.PostMessage(channelID, msgOpts...)

	case sendOpts[EphemeralAnswerToOpt] != "":
		if ts, inThread := threadTimestamp(m); inThread {
			msgOpts = append(msgOpts, slack.MsgOptionTS(ts))
		}
		_, err = b.services.ChatPoster.PostEphemeral(channelID, sendOpts[EphemeralAnswerToOpt], msgOpts...)

	default:
		if ts, inThread := threadTimestamp(m); inThread {
			msgOpts = append(msgOpts, slack.MsgOptionTS(ts))
		}
		_, _, err = b.services.ChatPoster.PostMessage(channelID, msgOpts...)
	}

	if err != nil {
		b.log.Printf("Error sending answer to channel [%s]: %v", channelID, err)
	}
}

// threadTimestamp returns the timestamp of the thread a message belongs to, if any. Answers to messages in a
// thread stay in that thread
func threadTimestamp(m *slack.Msg) (timestamp string, inThread bool) {
	if m.ThreadTimestamp != "" {
		return m.ThreadTimestamp, true
	}

	return "", false
}

// isDirectMessage returns true if the channel is a direct message channel
func isDirectMessage(channelID string) bool {
	return strings.HasPrefix(channelID, "D")
}
