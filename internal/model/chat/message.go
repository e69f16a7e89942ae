package chat

import (
	"time"

	"github.com/zhouzirui/concierge/internal/model/persona"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one immutable entry of the conversation transcript. Mode is only
// set on bot messages and freezes the personality active when they were produced.
type Message struct {
	Seq       int          `json:"seq"`
	Sender    Sender       `json:"from"`
	Text      string       `json:"text"`
	Mode      persona.Mode `json:"agentMode,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// UserMessage builds an un-appended user message.
func UserMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text}
}

// BotMessage builds an un-appended bot message tagged with mode.
func BotMessage(text string, mode persona.Mode) Message {
	return Message{Sender: SenderBot, Text: text, Mode: mode}
}

// FromBot reports whether the message was produced by the assistant.
func (m Message) FromBot() bool {
	return m.Sender == SenderBot
}
