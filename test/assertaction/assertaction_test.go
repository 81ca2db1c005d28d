package assertaction_test

import (
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/test/assertaction"
	"strings"
	"testing"
)

var echoAction = tkscot.ActionDefinition{
	Hidden: false,
	Match: func(m *tkscot.IncomingMessage) bool {
		return strings.Contains(m.NormalizedText, "ping")
	},
	Usage:       "ping",
	Description: "Sends `pong` on hearing `ping`",
	Answer: func(m *tkscot.IncomingMessage) *tkscot.Answer {
		return &tkscot.Answer{Text: "pong"}
	},
}

func TestAssertNoMatchWhenMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.NotMatch(mockT, echoAction, &tkscot.IncomingMessage{NormalizedText: "ping", Msg: slack.Msg{Text: "ping"}}))
}

func TestAssertNoMatchWhenNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.NotMatch(mockT, echoAction, &tkscot.IncomingMessage{NormalizedText: "pang", Msg: slack.Msg{Text: "pang"}}))
}

func TestAssertMatchAndAnswersWhenNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.MatchesAndAnswers(mockT, echoAction, &tkscot.IncomingMessage{NormalizedText: "pang", Msg: slack.Msg{Text: "pang"}}, func(t *testing.T, a *tkscot.Answer) bool {
		return true
	}))
}

func TestAssertMatchAndAnswersWhenMatchesButAnswerNotValid(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.MatchesAndAnswers(mockT, echoAction, &tkscot.IncomingMessage{NormalizedText: "ping", Msg: slack.Msg{Text: "ping"}}, func(t *testing.T, a *tkscot.Answer) bool {
		return false
	}))
}

func TestAssertMatchAndAnswersWhenMatchesWithValidAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.MatchesAndAnswers(mockT, echoAction, &tkscot.IncomingMessage{NormalizedText: "ping", Msg: slack.Msg{Text: "ping"}}, func(t *testing.T, a *tkscot.Answer) bool {
		return true
	}))
}
