// Package console is a line-oriented terminal front end for a chat session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/zhouzirui/concierge/internal/controller"
	"github.com/zhouzirui/concierge/internal/model/chat"
	"github.com/zhouzirui/concierge/internal/model/draft"
	"github.com/zhouzirui/concierge/internal/model/persona"
	draftsvc "github.com/zhouzirui/concierge/internal/service/draft"
)

var errQuit = errors.New("quit")

const helpText = `Type a message and press enter to send it. Commands:
  /mode <normal|naruto|witty>   switch personality      /modes   list personalities
  /draft                        request an email draft  /show    show the draft
  /edit fields|body             toggle a draft section  /close   close the draft
  /to <addr,...>  /subject <s>  /body <text>            edit the draft (\n for newline)
  /export <path>                save the draft as .eml
  /whoami  /history  /ok  /help  /quit`

// Options configures a Console.
type Options struct {
	In       io.Reader
	Out      io.Writer
	Personas persona.Store
	// Sender is the From address used by /export.
	Sender string
	Color  bool
	Width  int
}

// Console reads commands from In and prints session events to Out. It is the
// controller's Observer.
type Console struct {
	in     io.Reader
	out    io.Writer
	sender string
	rd     *renderer

	mu    sync.Mutex
	state controller.State
	ctl   *controller.Controller

	pending sync.WaitGroup
}

var _ controller.Observer = (*Console)(nil)

// New creates a console. Pass it as Options.Observer when building the
// controller, then call Run.
func New(opts Options) *Console {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Personas == nil {
		opts.Personas = persona.NewMemoryStore(persona.Seed())
	}
	return &Console{
		in:     opts.In,
		out:    opts.Out,
		sender: opts.Sender,
		rd:     newRenderer(opts.Out, opts.Personas, opts.Color, opts.Width),
	}
}

// Run starts the session and processes input until /quit, end of input or
// ctx cancellation. Requests still in flight are awaited before returning.
func (c *Console) Run(ctx context.Context, ctl *controller.Controller) error {
	c.attach(ctl)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	defer c.pending.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		case line := <-lines:
			if err := c.handle(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

func (c *Console) attach(ctl *controller.Controller) {
	c.mu.Lock()
	c.ctl = ctl
	c.mu.Unlock()

	who := ctl.Start()
	log.Printf("[console] session %s", who.SessionID)
	c.println(c.rd.dim.Render("Type /help for commands."))
}

func (c *Console) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if n, ok := c.ctl.Notice(); ok && n.Blocking {
		if line == "/ok" {
			c.ctl.DismissNotice()
		} else {
			c.println(c.rd.noticeLine(n))
		}
		return nil
	}

	if !strings.HasPrefix(line, "/") {
		c.submit(ctx, line)
		return nil
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return errQuit
	case "help":
		c.println(helpText)
	case "ok":
		c.ctl.DismissNotice()
	case "mode":
		c.setMode(arg)
	case "modes":
		c.println(c.rd.modes(c.ctl.Mode()))
	case "draft":
		c.requestDraft(ctx)
	case "show":
		c.showDraft(c.ctl.Draft())
	case "edit":
		c.toggle(arg)
	case "to":
		c.report(c.ctl.EditTo(arg))
	case "subject":
		c.report(c.ctl.EditSubject(arg))
	case "body":
		c.report(c.ctl.EditBody(strings.ReplaceAll(arg, `\n`, "\n")))
	case "close":
		c.ctl.CloseDraft()
		c.println(c.rd.dim.Render("draft closed"))
	case "export":
		c.report(c.export(arg))
	case "whoami":
		c.printIdentity(c.ctl.Identity())
	case "history":
		for _, msg := range c.ctl.Messages() {
			c.println(c.rd.preview(msg))
		}
	default:
		c.println(c.rd.alert.Render("unknown command /" + cmd + " (try /help)"))
	}
	return nil
}

// submit sends text without blocking the input loop.
func (c *Console) submit(ctx context.Context, text string) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if _, err := c.ctl.Submit(ctx, text); err != nil {
			c.report(err)
		}
	}()
}

func (c *Console) requestDraft(ctx context.Context) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		// failures surface through the error notice
		_, _ = c.ctl.RequestDraft(ctx)
	}()
}

func (c *Console) setMode(arg string) {
	mode, ok := persona.ParseMode(arg)
	if !ok {
		c.println(c.rd.alert.Render(fmt.Sprintf("unknown mode %q", arg)))
		c.println(c.rd.modes(c.ctl.Mode()))
		return
	}
	if err := c.ctl.SetMode(mode); err != nil {
		c.report(err)
		return
	}
	p := c.rd.persona(mode)
	c.println(c.rd.dim.Render("mode: ") + p.Icon + " " + p.Label)
}

func (c *Console) toggle(section string) {
	var err error
	switch strings.ToLower(section) {
	case "fields", "header", "to", "subject":
		_, err = c.ctl.ToggleFieldEditing()
	case "body":
		_, err = c.ctl.ToggleBodyEditing()
	default:
		err = fmt.Errorf("usage: /edit fields|body")
	}
	c.report(err)
}

func (c *Console) export(path string) error {
	if path == "" {
		return fmt.Errorf("usage: /export <path>")
	}
	view := c.ctl.Draft()
	if view.Email.Empty() {
		return fmt.Errorf("no draft to export")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := draftsvc.Export(f, view.Email, c.sender); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	c.println(c.rd.notice.Render("✓ draft saved to " + path))
	return nil
}

func (c *Console) showDraft(view draft.View) {
	if !view.Open {
		c.println(c.rd.dim.Render("no draft open (use /draft)"))
		return
	}
	c.println(c.rd.draft(view))
}

func (c *Console) printIdentity(who chat.Identity) {
	name, contact := who.Name, who.Contact
	if name == "" {
		name = "unknown"
	}
	if contact == "" {
		contact = "unknown"
	}
	c.println(fmt.Sprintf("session %s\nname    %s\ncontact %s", who.SessionID, name, contact))
}

func (c *Console) report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, controller.ErrDraftClosed):
		c.println(c.rd.dim.Render("no draft open (use /draft)"))
	case errors.Is(err, controller.ErrNotEditing):
		c.println(c.rd.dim.Render("that section is read-only; use /edit first"))
	default:
		c.println(c.rd.alert.Render(err.Error()))
	}
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// MessageAppended prints bot messages as they arrive; the user's own lines
// are already on screen.
func (c *Console) MessageAppended(msg chat.Message) {
	if msg.FromBot() {
		c.println(c.rd.message(msg))
	}
}

// StateChanged shows a hint when a request track becomes busy.
func (c *Console) StateChanged(s controller.State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if s.AwaitingAnswer && !prev.AwaitingAnswer {
		c.println(c.rd.dim.Render("…"))
	}
	if s.AwaitingDraft && !prev.AwaitingDraft {
		c.println(c.rd.dim.Render("drafting email…"))
	}
}

// NoticeChanged prints new notices; cleared notices need no output.
func (c *Console) NoticeChanged(n *controller.Notice) {
	if n != nil {
		c.println(c.rd.noticeLine(*n))
	}
}

// DraftChanged reprints the draft while it is open.
func (c *Console) DraftChanged(view draft.View) {
	if view.Open {
		c.println(c.rd.draft(view))
	}
}
