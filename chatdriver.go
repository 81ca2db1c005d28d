package tkscot

import (
	"github.com/slack-go/slack"
)

// MessagePoster is implemented by any value that has the PostMessage method. The main purpose is a slight
// decoupling of the slack.Client in order for plugins to be able to write tests more easily if all they do
// is send new messages on a channel (i.e. from a scheduled action or after a timeout).
//
// slack.Client implements this interface
type MessagePoster interface {
	// PostMessage sends a message to a channel. See https://pkg.go.dev/github.com/slack-go/slack#Client.PostMessage for more details
	PostMessage(channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, err error)
}

// EphemeralPoster is implemented by any value that has the PostEphemeral method.
//
// slack.Client implements this interface
type EphemeralPoster interface {
	// PostEphemeral sends a message visible only to userID. See https://pkg.go.dev/github.com/slack-go/slack#Client.PostEphemeral for more details
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (rTimestamp string, err error)
}

// ChatPoster encompasses both the MessagePoster and EphemeralPoster interfaces and is implemented by any values that
// has all methods of those interfaces
type ChatPoster interface {
	MessagePoster
	EphemeralPoster
}
