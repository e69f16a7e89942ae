package controller

import (
	"github.com/zhouzirui/concierge/internal/model/chat"
	"github.com/zhouzirui/concierge/internal/model/draft"
)

// Observer is notified of every state change. Callbacks may arrive from any
// goroutine and must not call back into the controller synchronously.
type Observer interface {
	MessageAppended(msg chat.Message)
	StateChanged(state State)
	// NoticeChanged receives nil when the notice is cleared.
	NoticeChanged(n *Notice)
	DraftChanged(view draft.View)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) MessageAppended(chat.Message) {}
func (NopObserver) StateChanged(State)           {}
func (NopObserver) NoticeChanged(*Notice)        {}
func (NopObserver) DraftChanged(draft.View)      {}
