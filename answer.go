package tkscot

import (
	"github.com/slack-go/slack"
)

const (
	// EphemeralAnswerToOpt marks an answer to be sent as an ephemeral message to the provided userID
	EphemeralAnswerToOpt = "ephemeralMsgToUserID"
	// ReplaceOriginalOpt marks an answer to replace the interactive message it responds to (using its response url)
	ReplaceOriginalOpt = "replaceOriginal"
)

// Answer holds data of an Action's Answer: namely, its text and options
// to use when delivering it
type Answer struct {
	Text string

	// Options to apply when sending a message
	Options []AnswerOption

	// BlockKit content blocks to apply when sending the message
	ContentBlocks []slack.Block
}

// AnswerOption defines a function applied to Answers
type AnswerOption func(sendOpts map[string]string)

// AnswerEphemeral sends the answer as an ephemeral message to the provided userID
func AnswerEphemeral(userID string) AnswerOption {
	return func(sendOpts map[string]string) {
		sendOpts[EphemeralAnswerToOpt] = userID
	}
}

// AnswerReplaceOriginal makes the answer replace the message holding the interactive
// elements that triggered it. Only meaningful for block action answers
func AnswerReplaceOriginal() AnswerOption {
	return func(sendOpts map[string]string) {
		sendOpts[ReplaceOriginalOpt] = "true"
	}
}

// ApplyAnswerOpts applies answering options to build the send configuration
func ApplyAnswerOpts(opts ...AnswerOption) (sendOptions map[string]string) {
	sendOptions = make(map[string]string)
	for _, opt := range opts {
		opt(sendOptions)
	}

	return sendOptions
}
