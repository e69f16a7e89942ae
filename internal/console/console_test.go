package console

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/internal/client"
	"github.com/zhouzirui/concierge/internal/controller"
	"github.com/zhouzirui/concierge/internal/model/contract"
	"github.com/zhouzirui/concierge/internal/model/persona"
)

const rawDraft = "Subject: SAP — User Query Summary\nTo: team@argano.com\n\nDear Team,\nFrom: Anna\n\nAnna asked about SAP."

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func echoAsker() client.Asker {
	return client.AskerFunc(func(_ context.Context, req contract.AskRequest) (contract.AskResponse, error) {
		return contract.AskResponse{Answer: "echo: " + req.Query + " see argano.com"}, nil
	})
}

func fixedDrafter(err error) client.Drafter {
	return client.DrafterFunc(func(context.Context, contract.DraftRequest) (contract.DraftResponse, error) {
		if err != nil {
			return contract.DraftResponse{}, err
		}
		return contract.DraftResponse{Email: rawDraft}, nil
	})
}

type harness struct {
	con *Console
	ctl *controller.Controller
	out *lockedBuffer
}

func newHarness(t *testing.T, drafter client.Drafter) *harness {
	t.Helper()
	out := &lockedBuffer{}
	con := New(Options{In: strings.NewReader(""), Out: out, Sender: "bot@example.com", Width: 72})
	ctl := controller.New(controller.Options{
		Asker:       echoAsker(),
		Drafter:     drafter,
		Observer:    con,
		Greeting:    controller.DefaultGreeting,
		NoticeDelay: time.Hour,
	})
	t.Cleanup(ctl.Close)
	con.attach(ctl)
	return &harness{con: con, ctl: ctl, out: out}
}

// exec runs one input line and waits for any request it started.
func (h *harness) exec(t *testing.T, line string) {
	t.Helper()
	require.NoError(t, h.con.handle(context.Background(), line))
	h.con.pending.Wait()
}

func TestConsoleConversation(t *testing.T) {
	h := newHarness(t, fixedDrafter(nil))

	h.exec(t, "Hi, I'm Anna")
	h.exec(t, "/mode witty")
	h.exec(t, "what do you do")
	h.exec(t, "/whoami")

	out := h.out.String()
	assert.Contains(t, out, controller.DefaultGreeting)
	assert.Contains(t, out, "echo: Hi, I'm Anna")
	assert.Contains(t, out, "[argano.com](https://argano.com)")
	assert.Contains(t, out, "😎 AGENT")
	assert.Contains(t, out, "mode: 😎 Witty")
	assert.Contains(t, out, "name    Anna")
	assert.Contains(t, out, "contact unknown")

	msgs := h.ctl.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, persona.ModeNormal, msgs[2].Mode)
	assert.Equal(t, persona.ModeWitty, msgs[4].Mode)
}

func TestConsoleUnknownModeAndCommand(t *testing.T) {
	h := newHarness(t, fixedDrafter(nil))

	h.exec(t, "/mode pirate")
	h.exec(t, "/frobnicate")

	out := h.out.String()
	assert.Contains(t, out, `unknown mode "pirate"`)
	assert.Contains(t, out, "unknown command /frobnicate")
	assert.Equal(t, persona.ModeNormal, h.ctl.Mode())
}

func TestConsoleDraftEditAndExport(t *testing.T) {
	h := newHarness(t, fixedDrafter(nil))

	h.exec(t, "/show")
	assert.Contains(t, h.out.String(), "no draft open")

	h.exec(t, "/draft")
	assert.Contains(t, h.out.String(), "Draft Ready! Your chat summary has been prepared.")
	assert.Contains(t, h.out.String(), "SAP — User Query Summary")

	h.exec(t, "/to someone@example.com")
	assert.Contains(t, h.out.String(), "use /edit first")

	h.exec(t, "/edit fields")
	h.exec(t, "/to sales@example.com, ops@example.com")
	h.exec(t, "/subject Follow-up")
	h.exec(t, "/edit fields")
	h.exec(t, `/edit body`)
	h.exec(t, `/body Dear Team,\nPlease call Anna.`)

	view := h.ctl.Draft()
	assert.Equal(t, "sales@example.com, ops@example.com", view.Email.To)
	assert.Equal(t, "Follow-up", view.Email.Subject)
	assert.Equal(t, "Dear Team,\nPlease call Anna.", view.Email.Body)

	path := filepath.Join(t.TempDir(), "draft.eml")
	h.exec(t, "/export "+path)
	assert.Contains(t, h.out.String(), "draft saved to")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	env, err := enmime.ReadEnvelope(f)
	require.NoError(t, err)
	assert.Equal(t, "Follow-up", env.GetHeader("Subject"))
	assert.Contains(t, env.Text, "Please call Anna.")

	h.exec(t, "/close")
	assert.False(t, h.ctl.Draft().Open)
}

func TestConsoleBlockingNotice(t *testing.T) {
	h := newHarness(t, fixedDrafter(errors.New("unreachable")))

	h.exec(t, "/draft")
	assert.Contains(t, h.out.String(), "Error fetching summary")

	before := len(h.ctl.Messages())
	h.exec(t, "hello while blocked")
	assert.Len(t, h.ctl.Messages(), before)

	h.exec(t, "/ok")
	_, shown := h.ctl.Notice()
	assert.False(t, shown)

	h.exec(t, "hello again")
	assert.Len(t, h.ctl.Messages(), before+2)
}

func TestConsoleHistory(t *testing.T) {
	h := newHarness(t, fixedDrafter(nil))

	h.exec(t, "first question")
	h.exec(t, "/history")

	out := h.out.String()
	assert.Contains(t, out, "  1 👤 bot: Hello!")
	assert.Contains(t, out, "  2 you: first question")
}

func TestRunStopsOnQuit(t *testing.T) {
	out := &lockedBuffer{}
	con := New(Options{
		In:  strings.NewReader("hello\n/quit\nignored\n"),
		Out: out,
	})
	ctl := controller.New(controller.Options{Asker: echoAsker(), Drafter: fixedDrafter(nil), Observer: con})
	defer ctl.Close()

	require.NoError(t, con.Run(context.Background(), ctl))
	assert.Contains(t, out.String(), "echo: hello")
	assert.NotContains(t, out.String(), "ignored")
}

func TestRunStopsAtEOF(t *testing.T) {
	out := &lockedBuffer{}
	con := New(Options{In: strings.NewReader("/modes\n"), Out: out})
	ctl := controller.New(controller.Options{Asker: echoAsker(), Drafter: fixedDrafter(nil), Observer: con})
	defer ctl.Close()

	require.NoError(t, con.Run(context.Background(), ctl))
	assert.Contains(t, out.String(), "> 👤 Normal")
	assert.Contains(t, out.String(), "🔥 Naruto")
}
