package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/internal/client"
	"github.com/zhouzirui/concierge/internal/model/chat"
	"github.com/zhouzirui/concierge/internal/model/contract"
	"github.com/zhouzirui/concierge/internal/model/draft"
	"github.com/zhouzirui/concierge/internal/model/persona"
)

const sampleDraft = "**Email Draft**\n\nSubject: Cloud migration — User Query Summary\nTo: team@argano.com, anna@example.com\n\nDear Team,\nFrom: Anna\n\nThe user asked about cloud migration.\n\nWarm regards,\nAI Support Bot"

type recordingAsker struct {
	mu       sync.Mutex
	requests []contract.AskRequest
	reply    contract.AskResponse
	err      error
}

func (a *recordingAsker) Ask(_ context.Context, req contract.AskRequest) (contract.AskResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return contract.AskResponse{}, a.err
	}
	return a.reply, nil
}

func (a *recordingAsker) last() contract.AskRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

type recordingObserver struct {
	mu       sync.Mutex
	messages []chat.Message
	notices  []*Notice
	views    []draft.View
}

func (o *recordingObserver) MessageAppended(msg chat.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
}

func (o *recordingObserver) StateChanged(State) {}

func (o *recordingObserver) NoticeChanged(n *Notice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notices = append(o.notices, n)
}

func (o *recordingObserver) DraftChanged(view draft.View) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.views = append(o.views, view)
}

func noDraft() client.Drafter {
	return client.DrafterFunc(func(context.Context, contract.DraftRequest) (contract.DraftResponse, error) {
		return contract.DraftResponse{}, errors.New("not configured")
	})
}

func staticDraft(email string, seen *contract.DraftRequest) client.Drafter {
	return client.DrafterFunc(func(_ context.Context, req contract.DraftRequest) (contract.DraftResponse, error) {
		if seen != nil {
			*seen = req
		}
		return contract.DraftResponse{Email: email}, nil
	})
}

func newStarted(t *testing.T, opts Options) *Controller {
	t.Helper()
	c := New(opts)
	c.Start()
	t.Cleanup(c.Close)
	return c
}

func TestSubmitBeforeStart(t *testing.T) {
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "hi"}}
	c := New(Options{Asker: asker, Drafter: noDraft()})

	_, err := c.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, err, ErrInputRejected)
	assert.Empty(t, c.Messages())
	assert.Empty(t, asker.requests)

	_, err = c.RequestDraft(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSubmitRejectsBlank(t *testing.T) {
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "hi"}}
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrInputRejected)
	}
	assert.Empty(t, c.Messages())
	assert.Empty(t, asker.requests)
}

func TestStartIsIdempotent(t *testing.T) {
	c := New(Options{Asker: &recordingAsker{}, Drafter: noDraft(), Greeting: DefaultGreeting})
	defer c.Close()

	first := c.Start()
	second := c.Start()
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, first.SessionID, second.SessionID)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultGreeting, msgs[0].Text)
	assert.Equal(t, persona.ModeNormal, msgs[0].Mode)
	assert.True(t, msgs[0].FromBot())
}

func TestSubmitCompletesTurn(t *testing.T) {
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "We do cloud work."}}
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})
	require.NoError(t, c.SetMode(persona.ModeWitty))
	c.SetInput("What do you do?")

	turn, err := c.Send(context.Background())
	require.NoError(t, err)
	assert.NoError(t, turn.Err)
	assert.Equal(t, uint64(1), turn.ID)
	assert.Empty(t, c.Input())

	req := asker.last()
	assert.Equal(t, "What do you do?", req.Query)
	assert.Equal(t, c.Identity().SessionID, req.SessionID)
	assert.Equal(t, persona.ModeWitty, req.PersonalityMode)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.SenderUser, msgs[0].Sender)
	assert.Equal(t, "What do you do?", msgs[0].Text)
	assert.Equal(t, "We do cloud work.", msgs[1].Text)
	assert.Equal(t, persona.ModeWitty, msgs[1].Mode)
	assert.Equal(t, 1, msgs[0].Seq)
	assert.Equal(t, 2, msgs[1].Seq)
}

func TestSubmitPendingShowsOnlyUserMessage(t *testing.T) {
	release := make(chan struct{})
	asker := client.AskerFunc(func(ctx context.Context, _ contract.AskRequest) (contract.AskResponse, error) {
		select {
		case <-release:
			return contract.AskResponse{Answer: "done"}, nil
		case <-ctx.Done():
			return contract.AskResponse{}, ctx.Err()
		}
	})
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})

	done := make(chan Turn, 1)
	go func() {
		turn, _ := c.Submit(context.Background(), "hello")
		done <- turn
	}()

	require.Eventually(t, func() bool { return c.State().AwaitingAnswer }, time.Second, 5*time.Millisecond)
	assert.Len(t, c.Messages(), 1)
	assert.False(t, c.State().AwaitingDraft)

	close(release)
	turn := <-done
	assert.Equal(t, "done", turn.Reply.Text)
	assert.Len(t, c.Messages(), 2)
	assert.False(t, c.State().AwaitingAnswer)
}

func TestSubmitFailureAppendsErrorLine(t *testing.T) {
	boom := errors.New("connection refused")
	asker := &recordingAsker{err: boom}
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})
	require.NoError(t, c.SetMode(persona.ModeNaruto))

	turn, err := c.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.ErrorIs(t, turn.Err, boom)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, AskErrorReply, msgs[1].Text)
	assert.Equal(t, persona.ModeNaruto, msgs[1].Mode)
	assert.False(t, c.State().AwaitingAnswer)
}

func TestEmptyAnswerIsAppended(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"answer":"","agent_mode":"normal"}`)
	}))
	defer server.Close()

	c := newStarted(t, Options{Asker: client.New(server.URL, time.Second), Drafter: noDraft()})

	turn, err := c.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.NoError(t, turn.Err)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "", msgs[1].Text)
	assert.NotEqual(t, AskErrorReply, msgs[1].Text)
	assert.True(t, msgs[1].FromBot())
}

func TestAgentModeOverridesReplyMode(t *testing.T) {
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "Believe it!", AgentMode: "naruto"}}
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})

	turn, err := c.Submit(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, persona.ModeNaruto, turn.Reply.Mode)
	assert.Equal(t, persona.ModeNormal, c.Mode())
}

func TestModeChangeDoesNotRewriteHistory(t *testing.T) {
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "ok"}}
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})

	_, err := c.Submit(context.Background(), "one")
	require.NoError(t, err)
	require.NoError(t, c.SetMode(persona.ModeWitty))
	_, err = c.Submit(context.Background(), "two")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, persona.ModeNormal, msgs[1].Mode)
	assert.Equal(t, persona.ModeWitty, msgs[3].Mode)
}

func TestIdentityFirstWriteWins(t *testing.T) {
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "ok"}}
	c := newStarted(t, Options{Asker: asker, Drafter: noDraft()})
	ctx := context.Background()

	_, err := c.Submit(ctx, "My name is Anna")
	require.NoError(t, err)
	_, err = c.Submit(ctx, "my name is Bob, mail me at bob@example.com")
	require.NoError(t, err)
	_, err = c.Submit(ctx, "or anna@example.com")
	require.NoError(t, err)

	who := c.Identity()
	assert.Equal(t, "Anna", who.Name)
	assert.Equal(t, "bob@example.com", who.Contact)
}

func TestSetModeRejectsUnknown(t *testing.T) {
	c := New(Options{Asker: &recordingAsker{}, Drafter: noDraft()})

	err := c.SetMode(persona.Mode("pirate"))
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Equal(t, persona.ModeNormal, c.Mode())
	assert.Len(t, c.Personas(), 3)
}

func TestRequestDraftOpensViewAndClearsNotice(t *testing.T) {
	obs := &recordingObserver{}
	var seen contract.DraftRequest
	asker := &recordingAsker{reply: contract.AskResponse{Answer: "Sure."}}
	c := newStarted(t, Options{
		Asker:       asker,
		Drafter:     staticDraft(sampleDraft, &seen),
		Observer:    obs,
		NoticeDelay: 20 * time.Millisecond,
	})
	_, err := c.Submit(context.Background(), "I'm Anna, tell me about cloud migration")
	require.NoError(t, err)

	email, err := c.RequestDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cloud migration — User Query Summary", email.Subject)
	assert.Equal(t, "team@argano.com, anna@example.com", email.To)
	assert.Contains(t, email.Body, "From: Anna")

	assert.Equal(t, []string{"I'm Anna, tell me about cloud migration", "Sure."}, seen.Messages)
	require.NotNil(t, seen.UserName)
	assert.Equal(t, "Anna", *seen.UserName)
	assert.Nil(t, seen.UserContact)

	view := c.Draft()
	assert.True(t, view.Open)
	assert.False(t, view.EditingFields)
	assert.False(t, view.EditingBody)
	assert.False(t, c.State().AwaitingDraft)

	n, ok := c.Notice()
	require.True(t, ok)
	assert.Equal(t, NoticeConfirmation, n.Kind)
	assert.False(t, n.Blocking)

	require.Eventually(t, func() bool {
		_, shown := c.Notice()
		return !shown
	}, time.Second, 5*time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.notices, 2)
	assert.Nil(t, obs.notices[1])
	assert.Len(t, obs.messages, 2)
	assert.NotEmpty(t, obs.views)
}

func TestRequestDraftFailureBlocksUntilDismissed(t *testing.T) {
	c := newStarted(t, Options{
		Asker:       &recordingAsker{},
		Drafter:     noDraft(),
		NoticeDelay: 10 * time.Millisecond,
	})

	_, err := c.RequestDraft(context.Background())
	require.Error(t, err)
	assert.False(t, c.Draft().Open)

	time.Sleep(40 * time.Millisecond)
	n, ok := c.Notice()
	require.True(t, ok)
	assert.Equal(t, NoticeError, n.Kind)
	assert.Equal(t, DraftErrorText, n.Text)
	assert.True(t, n.Blocking)

	c.DismissNotice()
	_, ok = c.Notice()
	assert.False(t, ok)
}

func TestNewDraftReplacesPendingNotice(t *testing.T) {
	c := newStarted(t, Options{
		Asker:       &recordingAsker{},
		Drafter:     staticDraft(sampleDraft, nil),
		NoticeDelay: time.Hour,
	})

	_, err := c.RequestDraft(context.Background())
	require.NoError(t, err)
	first, _ := c.Notice()
	_, err = c.RequestDraft(context.Background())
	require.NoError(t, err)
	second, ok := c.Notice()
	require.True(t, ok)
	assert.Greater(t, second.ID, first.ID)
}

func TestDraftEditing(t *testing.T) {
	c := newStarted(t, Options{Asker: &recordingAsker{}, Drafter: staticDraft(sampleDraft, nil)})

	_, err := c.ToggleFieldEditing()
	assert.ErrorIs(t, err, ErrDraftClosed)

	_, err = c.RequestDraft(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, c.EditTo("x@example.com"), ErrNotEditing)
	assert.ErrorIs(t, c.EditBody("new body"), ErrNotEditing)

	view, err := c.ToggleFieldEditing()
	require.NoError(t, err)
	assert.True(t, view.EditingFields)
	assert.False(t, view.EditingBody)

	require.NoError(t, c.EditTo("x@example.com"))
	require.NoError(t, c.EditSubject("Custom subject"))
	assert.ErrorIs(t, c.EditBody("new body"), ErrNotEditing)

	view, err = c.ToggleFieldEditing()
	require.NoError(t, err)
	assert.False(t, view.EditingFields)
	assert.Equal(t, "x@example.com", view.Email.To)
	assert.Equal(t, "Custom subject", view.Email.Subject)

	_, err = c.ToggleBodyEditing()
	require.NoError(t, err)
	require.NoError(t, c.EditBody("new body"))
	assert.Equal(t, "new body", c.Draft().Email.Body)

	closed := c.CloseDraft()
	assert.False(t, closed.Open)
	assert.False(t, closed.EditingBody)
	assert.Equal(t, "new body", closed.Email.Body)
}

func TestConcurrentTracks(t *testing.T) {
	askRelease := make(chan struct{})
	draftRelease := make(chan struct{})
	asker := client.AskerFunc(func(context.Context, contract.AskRequest) (contract.AskResponse, error) {
		<-askRelease
		return contract.AskResponse{Answer: "a"}, nil
	})
	drafter := client.DrafterFunc(func(context.Context, contract.DraftRequest) (contract.DraftResponse, error) {
		<-draftRelease
		return contract.DraftResponse{Email: sampleDraft}, nil
	})
	c := newStarted(t, Options{Asker: asker, Drafter: drafter, NoticeDelay: time.Hour})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.Submit(context.Background(), "q")
	}()
	go func() {
		defer wg.Done()
		_, _ = c.RequestDraft(context.Background())
	}()

	require.Eventually(t, func() bool {
		s := c.State()
		return s.AwaitingAnswer && s.AwaitingDraft
	}, time.Second, 5*time.Millisecond)

	close(draftRelease)
	require.Eventually(t, func() bool { return !c.State().AwaitingDraft }, time.Second, 5*time.Millisecond)
	assert.True(t, c.State().AwaitingAnswer)

	close(askRelease)
	wg.Wait()
	assert.Equal(t, State{}, c.State())
	assert.Len(t, c.Messages(), 2)
}
