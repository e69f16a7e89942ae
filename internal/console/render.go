package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/zhouzirui/concierge/internal/analysis/linkify"
	"github.com/zhouzirui/concierge/internal/controller"
	"github.com/zhouzirui/concierge/internal/model/chat"
	"github.com/zhouzirui/concierge/internal/model/draft"
	"github.com/zhouzirui/concierge/internal/model/persona"
)

// renderer turns session state into terminal text. Colours follow the persona
// accent of the mode each message was produced in.
type renderer struct {
	r        *lipgloss.Renderer
	personas persona.Store
	width    int

	user   lipgloss.Style
	dim    lipgloss.Style
	label  lipgloss.Style
	notice lipgloss.Style
	alert  lipgloss.Style
	box    lipgloss.Style
}

func newRenderer(out io.Writer, personas persona.Store, color bool, width int) *renderer {
	var opts []termenv.OutputOption
	if !color {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	r := lipgloss.NewRenderer(out, opts...)
	if width <= 0 {
		width = 80
	}

	return &renderer{
		r:        r,
		personas: personas,
		width:    width,
		user:     r.NewStyle().Bold(true),
		dim:      r.NewStyle().Faint(true),
		label:    r.NewStyle().Bold(true),
		notice:   r.NewStyle().Foreground(lipgloss.Color("#198754")).Bold(true),
		alert:    r.NewStyle().Foreground(lipgloss.Color("#dc3545")).Bold(true),
		box:      r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (rd *renderer) persona(mode persona.Mode) persona.Persona {
	return persona.Resolve(rd.personas, mode)
}

// message renders one transcript entry. Bot text goes through the link
// annotator; user text is shown as typed.
func (rd *renderer) message(msg chat.Message) string {
	if !msg.FromBot() {
		return rd.user.Render("You") + ": " + msg.Text
	}

	p := rd.persona(msg.Mode)
	accent := lipgloss.Color(p.Accent)
	head := rd.label.Foreground(accent).Render(p.Icon + " AGENT")
	body := rd.r.NewStyle().
		Foreground(accent).
		Width(rd.width - 2).
		Render(linkify.Annotate(msg.Text))
	return head + "\n" + body
}

// preview is a single-line, width-bounded form of msg for /history.
func (rd *renderer) preview(msg chat.Message) string {
	who := "you"
	if msg.FromBot() {
		who = rd.persona(msg.Mode).Icon + " bot"
	}
	line := strings.Join(strings.Fields(msg.Text), " ")
	prefix := fmt.Sprintf("%3d %s: ", msg.Seq, who)
	room := rd.width - runewidth.StringWidth(prefix)
	if room < 10 {
		room = 10
	}
	return prefix + runewidth.Truncate(line, room, "…")
}

func (rd *renderer) noticeLine(n controller.Notice) string {
	if n.Kind == controller.NoticeError {
		return rd.alert.Render("! "+n.Text) + rd.dim.Render("  (type /ok to dismiss)")
	}
	text := n.Text
	if n.Title != "" {
		text = n.Title + " " + text
	}
	return rd.notice.Render("✓ " + text)
}

func (rd *renderer) draft(view draft.View) string {
	fieldsState, bodyState := "", ""
	if view.EditingFields {
		fieldsState = rd.dim.Render(" [editing]")
	}
	if view.EditingBody {
		bodyState = rd.dim.Render(" [editing]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", rd.label.Render("To:      "), view.Email.To+fieldsState)
	fmt.Fprintf(&b, "%s%s\n", rd.label.Render("Subject: "), view.Email.Subject)
	b.WriteString(rd.label.Render("Body:") + bodyState + "\n")
	b.WriteString(view.Email.Body)
	return rd.box.Width(rd.width - 2).Render(b.String())
}

func (rd *renderer) modes(current persona.Mode) string {
	var b strings.Builder
	for _, p := range rd.personas.List() {
		marker := "  "
		if p.ID == current {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s %-7s %s", marker, p.Icon, p.Label, rd.dim.Render(p.Title))
		b.WriteString(rd.r.NewStyle().Foreground(lipgloss.Color(p.Accent)).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
