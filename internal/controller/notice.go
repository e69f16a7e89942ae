package controller

import "time"

// NoticeKind distinguishes the transient confirmation from the blocking error.
type NoticeKind string

const (
	NoticeConfirmation NoticeKind = "confirmation"
	NoticeError        NoticeKind = "error"
)

const (
	DraftReadyTitle = "Draft Ready!"
	DraftReadyText  = "Your chat summary has been prepared."
	DraftErrorText  = "Error fetching summary"
)

// Notice is a user-visible message outside the transcript. Blocking notices
// stay until DismissNotice; the others clear themselves.
type Notice struct {
	ID       uint64
	Kind     NoticeKind
	Title    string
	Text     string
	Blocking bool
}

// Notice returns the notice currently shown, if any.
func (c *Controller) Notice() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return Notice{}, false
	}
	return *c.notice, true
}

// DismissNotice clears the current notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	if c.notice == nil {
		c.mu.Unlock()
		return
	}
	c.notice = nil
	c.stopNoticeTimerLocked()
	c.mu.Unlock()

	c.observer.NoticeChanged(nil)
}

// showNotice replaces any current notice. A positive after schedules the
// automatic dismissal; the timer of a replaced notice is stopped.
func (c *Controller) showNotice(n Notice, after time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopNoticeTimerLocked()
	c.noticeSeq++
	n.ID = c.noticeSeq
	c.notice = &n
	if after > 0 {
		id := n.ID
		c.noticeTimer = time.AfterFunc(after, func() { c.expireNotice(id) })
	}
	c.mu.Unlock()

	c.observer.NoticeChanged(&n)
}

// expireNotice clears notice id if it is still the one shown.
func (c *Controller) expireNotice(id uint64) {
	c.mu.Lock()
	if c.closed || c.notice == nil || c.notice.ID != id {
		c.mu.Unlock()
		return
	}
	c.notice = nil
	c.noticeTimer = nil
	c.mu.Unlock()

	c.observer.NoticeChanged(nil)
}

func (c *Controller) stopNoticeTimerLocked() {
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
}
