// Package controller drives one chat session: it owns the transcript, the
// session identity, the current personality mode and the editable draft, and
// is the only place those are mutated.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/concierge/internal/analysis/entity"
	"github.com/zhouzirui/concierge/internal/client"
	"github.com/zhouzirui/concierge/internal/model/chat"
	"github.com/zhouzirui/concierge/internal/model/contract"
	"github.com/zhouzirui/concierge/internal/model/draft"
	"github.com/zhouzirui/concierge/internal/model/persona"
	chatsvc "github.com/zhouzirui/concierge/internal/service/chat"
	draftsvc "github.com/zhouzirui/concierge/internal/service/draft"
)

const (
	// DefaultGreeting is the bot message that opens every session.
	DefaultGreeting = "Hello! How can I assist you today?"
	// AskErrorReply replaces the answer when the answering service cannot be reached.
	AskErrorReply = "Error: Unable to reach the server."
	// DefaultNoticeDelay is how long the draft confirmation stays visible.
	DefaultNoticeDelay = 2 * time.Second
)

var (
	ErrInputRejected = errors.New("input rejected")
	ErrNotStarted    = fmt.Errorf("%w: session not started", ErrInputRejected)
	ErrUnknownMode   = errors.New("unknown personality mode")
	ErrDraftClosed   = errors.New("draft view is not open")
	ErrNotEditing    = errors.New("draft section is not in edit mode")
)

// State reports which request tracks are in flight. The two tracks are
// independent; both can be busy at once.
type State struct {
	AwaitingAnswer bool `json:"awaitingAnswer"`
	AwaitingDraft  bool `json:"awaitingDraft"`
}

// Turn is the outcome of one Submit. Err is set when the answering service
// failed; the failure is already reflected in Reply.
type Turn struct {
	ID    uint64
	User  chat.Message
	Reply chat.Message
	Err   error
}

// Options configures a Controller. Asker and Drafter are required.
type Options struct {
	Asker       client.Asker
	Drafter     client.Drafter
	Personas    persona.Store
	Extractor   *entity.Extractor
	Observer    Observer
	Greeting    string
	NoticeDelay time.Duration
}

// Controller is the session-scoped state object.
type Controller struct {
	asker       client.Asker
	drafter     client.Drafter
	personas    persona.Store
	extractor   *entity.Extractor
	observer    Observer
	greeting    string
	noticeDelay time.Duration

	log       *chatsvc.Log
	startOnce sync.Once
	identity  atomic.Pointer[chatsvc.Identity]

	turns    atomic.Uint64
	asking   atomic.Int32
	drafting atomic.Int32

	mu          sync.Mutex
	mode        persona.Mode
	input       string
	view        draft.View
	notice      *Notice
	noticeSeq   uint64
	noticeTimer *time.Timer
	closed      bool
}

// New creates a controller. The session is not usable until Start is called.
func New(opts Options) *Controller {
	if opts.Personas == nil {
		opts.Personas = persona.NewMemoryStore(persona.Seed())
	}
	if opts.Extractor == nil {
		opts.Extractor = entity.Default()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.NoticeDelay <= 0 {
		opts.NoticeDelay = DefaultNoticeDelay
	}

	return &Controller{
		asker:       opts.Asker,
		drafter:     opts.Drafter,
		personas:    opts.Personas,
		extractor:   opts.Extractor,
		observer:    opts.Observer,
		greeting:    opts.Greeting,
		noticeDelay: opts.NoticeDelay,
		log:         chatsvc.NewLog(),
		mode:        persona.DefaultMode,
	}
}

// Start generates the session identity and posts the greeting. Only the first
// call has any effect.
func (c *Controller) Start() chat.Identity {
	c.startOnce.Do(func() {
		id := chatsvc.NewIdentity()
		c.identity.Store(id)
		log.Printf("[controller] session started id=%s", id.SessionID())

		if c.greeting != "" {
			c.append(chat.BotMessage(c.greeting, persona.DefaultMode))
		}
	})
	return c.Identity()
}

// Started reports whether Start has run.
func (c *Controller) Started() bool {
	return c.identity.Load() != nil
}

// Submit runs one user turn: the user message is appended, identity signals
// are extracted, the answering service is called and its answer (or an error
// line) is appended. It blocks until the remote call resolves.
func (c *Controller) Submit(ctx context.Context, text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrInputRejected
	}
	id := c.identity.Load()
	if id == nil {
		return Turn{}, ErrNotStarted
	}

	turn := Turn{ID: c.turns.Add(1)}
	turn.User = c.append(chat.UserMessage(text))

	found := c.extractor.Extract(text)
	if found.Name != "" && id.RecordName(found.Name) {
		log.Printf("[controller] recorded name for session=%s", id.SessionID())
	}
	if found.Contact != "" && id.RecordContact(found.Contact) {
		log.Printf("[controller] recorded contact for session=%s", id.SessionID())
	}

	mode := c.Mode()
	c.asking.Add(1)
	c.setInput("")
	c.observer.StateChanged(c.State())
	defer func() {
		c.asking.Add(-1)
		c.observer.StateChanged(c.State())
	}()

	resp, err := c.asker.Ask(ctx, contract.AskRequest{
		Query:           text,
		SessionID:       id.SessionID(),
		PersonalityMode: mode,
	})
	if err != nil {
		log.Printf("[controller] ask failed turn=%d: %v", turn.ID, err)
		turn.Err = err
		turn.Reply = c.append(chat.BotMessage(AskErrorReply, mode))
		return turn, nil
	}

	replyMode := mode
	if resp.AgentMode != "" {
		replyMode = persona.Mode(resp.AgentMode)
	}
	turn.Reply = c.append(chat.BotMessage(resp.Answer, replyMode))
	return turn, nil
}

// Send submits the current input buffer.
func (c *Controller) Send(ctx context.Context) (Turn, error) {
	return c.Submit(ctx, c.Input())
}

// RequestDraft asks the drafting service for an email summarising the
// conversation so far and replaces the draft with the parsed result.
func (c *Controller) RequestDraft(ctx context.Context) (draft.Email, error) {
	id := c.identity.Load()
	if id == nil {
		return draft.Email{}, ErrNotStarted
	}

	c.drafting.Add(1)
	c.observer.StateChanged(c.State())
	defer func() {
		c.drafting.Add(-1)
		c.observer.StateChanged(c.State())
	}()

	who := id.Snapshot()
	resp, err := c.drafter.Draft(ctx, contract.DraftRequest{
		Messages:    c.log.Texts(),
		UserName:    who.NameOrNil(),
		UserContact: who.ContactOrNil(),
	})
	if err != nil {
		log.Printf("[controller] draft failed session=%s: %v", who.SessionID, err)
		c.showNotice(Notice{Kind: NoticeError, Text: DraftErrorText, Blocking: true}, 0)
		return draft.Email{}, fmt.Errorf("request draft: %w", err)
	}

	email := draftsvc.Parse(resp.Email)

	c.mu.Lock()
	c.view = draft.View{Open: true, Email: email}
	view := c.view
	c.mu.Unlock()

	c.observer.DraftChanged(view)
	c.showNotice(Notice{
		Kind:  NoticeConfirmation,
		Title: DraftReadyTitle,
		Text:  DraftReadyText,
	}, c.noticeDelay)
	return email, nil
}

// SetMode switches the personality used for subsequent turns.
func (c *Controller) SetMode(mode persona.Mode) error {
	if _, ok := c.personas.FindByID(mode); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return nil
}

// Mode returns the current personality mode.
func (c *Controller) Mode() persona.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Personas lists the modes offered by the selector.
func (c *Controller) Personas() []persona.Persona {
	return c.personas.List()
}

// SetInput replaces the pending input buffer.
func (c *Controller) SetInput(text string) {
	c.setInput(text)
}

// Input returns the pending input buffer.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *Controller) setInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// Messages returns the transcript in arrival order.
func (c *Controller) Messages() []chat.Message {
	return c.log.Snapshot()
}

// Identity returns what the session knows about the user. It is empty before Start.
func (c *Controller) Identity() chat.Identity {
	id := c.identity.Load()
	if id == nil {
		return chat.Identity{}
	}
	return id.Snapshot()
}

// State reports the in-flight request tracks.
func (c *Controller) State() State {
	return State{
		AwaitingAnswer: c.asking.Load() > 0,
		AwaitingDraft:  c.drafting.Load() > 0,
	}
}

// Close cancels the pending notice timer. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopNoticeTimerLocked()
}

func (c *Controller) append(msg chat.Message) chat.Message {
	stored := c.log.Append(msg)
	c.observer.MessageAppended(stored)
	return stored
}
