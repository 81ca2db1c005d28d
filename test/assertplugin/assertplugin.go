package assertplugin

import (
	"fmt"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/schedule"
	"github.com/teamkill/tkscot/test/capture"
	"log"
	"strings"
	"testing"
)

// Asserter represents a plugin driver/asserter and holds the bot identifier that tests are using when
// sending test messages for processing
type Asserter struct {
	t         *testing.T
	botUserID string
	logger    *log.Logger
	admins    map[string]bool
	files     *capture.FileStub
	chat      *capture.ChatCaptor
}

// New creates a new asserter with the given botUserID
// (only include the id without the '@' prefix).
// The botUserID is used in order to detect commands formed with
// <@botUserID>
func New(t *testing.T, botUserID string, options ...Option) (a *Asserter) {
	a = new(Asserter)
	a.t = t
	a.botUserID = botUserID
	a.admins = make(map[string]bool)
	a.files = capture.NewFileStub(map[string]string{})
	a.chat = capture.NewChatCaptor()

	for _, option := range options {
		option(a)
	}

	return a
}

// Option defines an option for the Asserter
type Option func(*Asserter)

// OptionLog sets a logger for the asserter such that this logger is attached to the plugin when driven by
// the asserter
func OptionLog(logger *log.Logger) Option {
	return func(a *Asserter) {
		a.logger = logger
	}
}

// OptionAdmins sets the user ids treated as admins when driving admin actions
func OptionAdmins(userIDs ...string) Option {
	return func(a *Asserter) {
		for _, id := range userIDs {
			a.admins[id] = true
		}
	}
}

// OptionFiles sets the content of files available for download (keyed by file id)
func OptionFiles(files map[string]string) Option {
	return func(a *Asserter) {
		a.files = capture.NewFileStub(files)
	}
}

// ResultValidator is a function to do further validation of the answers resulting from a plugin processing
// of all of its commands and hear actions. The return value is meant to be true if validation is successful and
// false otherwise (following the testify convention)
type ResultValidator func(t *testing.T, answers []*tkscot.Answer) bool

// ResultWithUploadsValidator is a function to do further validation of the answers and file uploads resulting from
// a plugin processing of all of its commands and hear actions. Uploaded contents are in the same order as fileUploads
type ResultWithUploadsValidator func(t *testing.T, answers []*tkscot.Answer, fileUploads []slack.FileUploadParameters, contents []string) bool

// ScheduleResultValidator is a function to do further validation of the messages and file uploads resulting
// from scheduled actions running
type ScheduleResultValidator func(t *testing.T, posted []capture.PostedMessage, fileUploads []slack.FileUploadParameters) bool

type adminSet map[string]bool

func (as adminSet) IsAdmin(userID string) bool {
	return as[userID]
}

type namedUsers struct{}

func (nu namedUsers) GetUserInfo(userID string) (user *slack.User, err error) {
	return &slack.User{ID: userID, Name: strings.ToLower(userID), RealName: userID}, nil
}

// Answers drives a plugin and collects Answers. Once all of those have been collected, it passes handling to a
// validator to assert the expected answers. It follows the style of github.com/stretchr/testify/assert as far as
// returning true/false to indicate success for further nested testing.
//
// Note that all commands and hearActions are evaluated but this is a simplified version of how tkscot actually drives
// plugins and aims to provide the minimal processing required to allow a plugin to test functionality given an
// incoming message. Users should take special care to use include <@botUserID> with the same botUserID with which the
// plugin driver has been instantiated in the message text inputs to test commands (or include a channel name that
// starts with D for direct channel testing)
func (a *Asserter) Answers(p *tkscot.Plugin, m *slack.Msg, validate ResultValidator) (valid bool) {
	a.injectServices(p, capture.NewFileUploader())

	answers := a.driveActions(p, m)

	return validate(a.t, answers)
}

// AnswersWithUploads drives a plugin like Answers but also collects file uploads for validation
func (a *Asserter) AnswersWithUploads(p *tkscot.Plugin, m *slack.Msg, validate ResultWithUploadsValidator) (valid bool) {
	fc := capture.NewFileUploader()
	a.injectServices(p, fc)

	answers := a.driveActions(p, m)

	return validate(a.t, answers, fc.FileUploads, fc.Contents)
}

// HandlesBlockAction drives the plugin block action handler matching the block action and validates its answer
func (a *Asserter) HandlesBlockAction(p *tkscot.Plugin, ba *tkscot.BlockAction, validate ResultValidator) (valid bool) {
	a.injectServices(p, capture.NewFileUploader())

	answers := make([]*tkscot.Answer, 0)
	for _, def := range p.BlockActions {
		if !strings.HasPrefix(ba.ActionID, def.ActionIDPrefix) {
			continue
		}

		if def.Admin && !a.admins[ba.UserID] {
			answers = append(answers, tkscot.NewDenialAnswer(ba.UserID, ba.ActionID))
		} else if answer := def.Handle(ba); answer != nil {
			answers = append(answers, answer)
		}

		break
	}

	return validate(a.t, answers)
}

// RunsOnSchedule runs all scheduled actions of the plugin with the given schedule and validates what they
// posted and uploaded. It fails if no scheduled action has that schedule
func (a *Asserter) RunsOnSchedule(p *tkscot.Plugin, sd schedule.Definition, validate ScheduleResultValidator) (valid bool) {
	fc := capture.NewFileUploader()
	a.injectServices(p, fc)
	before := len(a.chat.Messages)

	ran := false
	for _, sa := range p.ScheduledActions {
		if sa.Schedule == sd {
			sa.Action()
			ran = true
		}
	}

	if !assert.Truef(a.t, ran, "No scheduled action of plugin [%s] runs on schedule [%s]", p.Name, sd) {
		return false
	}

	return validate(a.t, a.chat.Messages[before:], fc.FileUploads)
}

// DoesNotRunOnSchedule asserts that the plugin has no scheduled action with the given schedule
func (a *Asserter) DoesNotRunOnSchedule(p *tkscot.Plugin, sd schedule.Definition) (valid bool) {
	for _, sa := range p.ScheduledActions {
		if sa.Schedule == sd {
			return assert.Failf(a.t, "Unexpected scheduled action", "Plugin [%s] has a scheduled action running on schedule [%s]", p.Name, sd)
		}
	}

	return true
}

// Posted returns the messages posted by the plugin through its ChatPoster outside of answers
func (a *Asserter) Posted() (posted []capture.PostedMessage) {
	a.chat.Lock()
	defer a.chat.Unlock()

	return append([]capture.PostedMessage{}, a.chat.Messages...)
}

func (a *Asserter) injectServices(p *tkscot.Plugin, fc *capture.FileUploadCaptor) {
	p.Logger = tkscot.NewSLogger(getLogger(a), true)
	p.ChatPoster = a.chat
	p.UserInfoFinder = namedUsers{}
	p.AdminChecker = adminSet(a.admins)
	p.FileUploader = tkscot.NewFileUploader(fc)
	p.FileDownloader = a.files
}

func getLogger(a *Asserter) (logger *log.Logger) {
	if a.logger != nil {
		return a.logger
	}

	var b strings.Builder
	return log.New(&b, "", 0)
}

func (a *Asserter) driveActions(p *tkscot.Plugin, m *slack.Msg) (answers []*tkscot.Answer) {
	botMention := fmt.Sprintf("<@%s>", a.botUserID)

	if strings.HasPrefix(m.Text, botMention) {
		normalizedText := strings.TrimSpace(strings.TrimPrefix(m.Text, botMention))
		inMsg := tkscot.IncomingMessage{NormalizedText: normalizedText, Msg: *m}

		return a.runActions(p.Commands, &inMsg)
	}

	inMsg := tkscot.IncomingMessage{NormalizedText: m.Text, Msg: *m}

	if strings.HasPrefix(m.Channel, "D") {
		return a.runActions(p.Commands, &inMsg)
	}

	return a.runActions(p.HearActions, &inMsg)
}

func (a *Asserter) runActions(actions []tkscot.ActionDefinition, m *tkscot.IncomingMessage) (answers []*tkscot.Answer) {
	answers = make([]*tkscot.Answer, 0)

	for _, action := range actions {
		if action.Match(m) {
			if action.Admin && !a.admins[m.User] {
				answers = append(answers, tkscot.NewDenialAnswer(m.User, action.Usage))
				continue
			}

			if answer := action.Answer(m); answer != nil {
				answers = append(answers, answer)
			}
		}
	}

	return answers
}
