package capture

import (
	"fmt"
	"github.com/slack-go/slack"
	"strings"
	"sync"
)

// PostedMessage holds the rendered form of a message posted through a ChatCaptor
type PostedMessage struct {
	Channel string
	// UserID is set for ephemeral messages
	UserID          string
	Text            string
	ThreadTimestamp string
	// Blocks holds the json encoding of content blocks, if any
	Blocks string
	// Endpoint is set to the response url for messages replacing an interactive message
	Endpoint        string
	ReplaceOriginal bool
}

// ChatCaptor records messages posted to it in order. It implements tkscot.ChatPoster
type ChatCaptor struct {
	sync.Mutex
	Messages  []PostedMessage
	timestamp int
}

// NewChatCaptor returns a new initialized ChatCaptor instance
func NewChatCaptor() (cc *ChatCaptor) {
	cc = new(ChatCaptor)
	cc.Messages = make([]PostedMessage, 0)

	return cc
}

// PostMessage captures a message sent to channelID
func (cc *ChatCaptor) PostMessage(channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, err error) {
	pm, err := render(channelID, options...)
	if err != nil {
		return "", "", err
	}

	return channelID, cc.record(pm), nil
}

// PostEphemeral captures a message sent to channelID and visible only to userID
func (cc *ChatCaptor) PostEphemeral(channelID, userID string, options ...slack.MsgOption) (rTimestamp string, err error) {
	pm, err := render(channelID, options...)
	if err != nil {
		return "", err
	}
	pm.UserID = userID

	return cc.record(pm), nil
}

// Texts returns the text of all captured messages in order
func (cc *ChatCaptor) Texts() (texts []string) {
	cc.Lock()
	defer cc.Unlock()

	texts = make([]string, 0, len(cc.Messages))
	for _, m := range cc.Messages {
		texts = append(texts, m.Text)
	}

	return texts
}

func (cc *ChatCaptor) record(pm PostedMessage) (timestamp string) {
	cc.Lock()
	defer cc.Unlock()

	cc.timestamp = cc.timestamp + 10
	cc.Messages = append(cc.Messages, pm)

	return fmt.Sprintf("%d.000", cc.timestamp)
}

func render(channelID string, options ...slack.MsgOption) (pm PostedMessage, err error) {
	endpoint, values, err := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	if err != nil {
		return pm, err
	}

	pm.Channel = channelID
	pm.Text = values.Get("text")
	pm.ThreadTimestamp = values.Get("thread_ts")
	pm.Blocks = values.Get("blocks")
	if strings.HasPrefix(endpoint, "http") {
		pm.Endpoint = endpoint
		pm.ReplaceOriginal = true
	}

	return pm, nil
}
