package assertanswer_test

import (
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/test/assertanswer"
	"testing"
)

func TestHasTextNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasText(mockT, &tkscot.Answer{Text: "this is my final answer"}, "this is my first answer"))
}

func TestHasTextNilAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasText(mockT, nil, "this is my first answer"))
}

func TestHasTextMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertanswer.HasText(mockT, &tkscot.Answer{Text: "this is my final answer"}, "this is my final answer"))
}

func TestHasTextContainingMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertanswer.HasTextContaining(mockT, &tkscot.Answer{Text: "this is my final answer"}, "final"))
}

func TestHasTextContainingNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasTextContaining(mockT, &tkscot.Answer{Text: "this is my final answer"}, "the gopher always has more answers"))
}

func TestHasTextContainingNilAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasTextContaining(mockT, nil, "the gopher always has more answers"))
}

func TestHasOptionsMismatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasOptions(mockT, &tkscot.Answer{Text: "this is my final answer", Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal()}}, assertanswer.ResolvedAnswerOption{Key: tkscot.EphemeralAnswerToOpt, Value: "U1"}))
}

func TestHasOptionsMissingOne(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasOptions(mockT, &tkscot.Answer{Text: "this is my final answer", Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal(), tkscot.AnswerEphemeral("U1")}}, assertanswer.ResolvedAnswerOption{Key: tkscot.ReplaceOriginalOpt, Value: "true"}))
}

func TestHasOptionsMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertanswer.HasOptions(mockT, &tkscot.Answer{Text: "this is my final answer", Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal(), tkscot.AnswerEphemeral("U1")}}, assertanswer.ResolvedAnswerOption{Key: tkscot.ReplaceOriginalOpt, Value: "true"}, assertanswer.ResolvedAnswerOption{Key: tkscot.EphemeralAnswerToOpt, Value: "U1"}))
}

func TestHasOptionsNilAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertanswer.HasOptions(mockT, nil))
}

func TestIsEphemeralTo(t *testing.T) {
	mockT := new(testing.T)
	answer := &tkscot.Answer{Text: "psst", Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral("U1")}}

	assert.Equal(t, true, assertanswer.IsEphemeralTo(mockT, answer, "U1"))
	assert.Equal(t, false, assertanswer.IsEphemeralTo(mockT, answer, "U2"))
	assert.Equal(t, false, assertanswer.IsEphemeralTo(mockT, &tkscot.Answer{Text: "hey"}, "U1"))
}

func TestHasBlockActions(t *testing.T) {
	mockT := new(testing.T)
	answer := &tkscot.Answer{Text: "confirm?", ContentBlocks: []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "confirm?", false, false), nil, nil),
		slack.NewActionBlock("restore",
			slack.NewButtonBlockElement("restore_confirm", "id1", slack.NewTextBlockObject(slack.PlainTextType, "Confirm", false, false)),
			slack.NewButtonBlockElement("restore_cancel", "id1", slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false))),
	}}

	assert.Equal(t, true, assertanswer.HasBlockActions(mockT, answer, "restore_confirm", "restore_cancel"))
	assert.Equal(t, false, assertanswer.HasBlockActions(mockT, answer, "restore_confirm"))
	assert.Equal(t, false, assertanswer.HasBlockActions(mockT, nil, "restore_confirm"))
}
