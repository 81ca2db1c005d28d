// Package assertanswer provides testing functions to validate a plugin's answer
package assertanswer

import (
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/teamkill/tkscot"
	"testing"
)

// ResolvedAnswerOption holds a pair of Key/Value representing the physical AnswerOption
type ResolvedAnswerOption struct {
	Key   string
	Value string
}

// HasText asserts that the answer's text is the expected text
func HasText(t *testing.T, answer *tkscot.Answer, text string) bool {
	if assert.NotNil(t, answer) {
		return assert.Equalf(t, text, answer.Text, "Answer text expected to be [%s] but was [%s]", text, answer.Text)
	}
	return false
}

// HasTextContaining asserts that the answer's text contains the expected subString
func HasTextContaining(t *testing.T, answer *tkscot.Answer, subString string) bool {
	if assert.NotNil(t, answer) {
		return assert.Containsf(t, answer.Text, subString, "Answer expected to have text containing [%s] but its text [%s] didn't", subString, answer.Text)
	}
	return false
}

// HasOptions asserts that the answer's options contains the expected configuration key/values
func HasOptions(t *testing.T, answer *tkscot.Answer, options ...ResolvedAnswerOption) bool {
	if assert.NotNil(t, answer) {
		ropts := convertConfigsToResolvedAnswerOptions(tkscot.ApplyAnswerOpts(answer.Options...))
		return assert.ElementsMatchf(t, options, ropts, "Answer options expected %s but were %s", options, ropts)
	}
	return false
}

// IsEphemeralTo asserts that the answer is sent as an ephemeral message to userID
func IsEphemeralTo(t *testing.T, answer *tkscot.Answer, userID string) bool {
	if assert.NotNil(t, answer) {
		to := tkscot.ApplyAnswerOpts(answer.Options...)[tkscot.EphemeralAnswerToOpt]
		return assert.Equalf(t, userID, to, "Answer expected to be ephemeral to [%s] but was to [%s]", userID, to)
	}
	return false
}

// HasBlockActions asserts that the action ids of interactive elements in the answer's action blocks are
// exactly the expected ones, in order
func HasBlockActions(t *testing.T, answer *tkscot.Answer, actionIDs ...string) bool {
	if assert.NotNil(t, answer) {
		found := make([]string, 0)
		for _, b := range answer.ContentBlocks {
			if ab, ok := b.(*slack.ActionBlock); ok && ab.Elements != nil {
				for _, e := range ab.Elements.ElementSet {
					if button, ok := e.(*slack.ButtonBlockElement); ok {
						found = append(found, button.ActionID)
					}
				}
			}
		}

		return assert.Equalf(t, actionIDs, found, "Answer expected to have block actions %s but had %s", actionIDs, found)
	}
	return false
}

// convertConfigsToResolvedAnswerOptions converts a map[string]string of answer options to an array
// of ResolvedAnswerOptions for easier matching
func convertConfigsToResolvedAnswerOptions(configs map[string]string) (ropts []ResolvedAnswerOption) {
	ropts = make([]ResolvedAnswerOption, 0)

	for key, value := range configs {
		ropts = append(ropts, ResolvedAnswerOption{Key: key, Value: value})
	}

	return ropts
}
