package chat

import (
	"sync"
	"time"

	"github.com/zhouzirui/concierge/internal/model/chat"
)

// Log is the append-only transcript of one session. Messages are never
// mutated or removed once appended.
type Log struct {
	mu       sync.RWMutex
	messages []chat.Message
	now      func() time.Time
}

// NewLog returns an empty transcript.
func NewLog() *Log {
	return &Log{
		messages: make([]chat.Message, 0, 16),
		now:      time.Now,
	}
}

// Append stores message at the end of the transcript and returns the stored copy
// with its sequence number and timestamp filled in.
func (l *Log) Append(message chat.Message) chat.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	message.Seq = len(l.messages) + 1
	if message.CreatedAt.IsZero() {
		message.CreatedAt = l.now().UTC()
	}

	l.messages = append(l.messages, message)
	return message
}

// Snapshot returns a copy of the transcript in arrival order.
func (l *Log) Snapshot() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]chat.Message, len(l.messages))
	copy(copied, l.messages)
	return copied
}

// Texts returns only the message texts, in order. Sender and mode are dropped,
// matching what the drafting service expects.
func (l *Log) Texts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	texts := make([]string, len(l.messages))
	for i, msg := range l.messages {
		texts[i] = msg.Text
	}
	return texts
}

// Len returns the number of appended messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
