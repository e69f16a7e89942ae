package mail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)

// Draft holds the values substituted into the email template.
type Draft struct {
	Subject    string
	Recipients []string
	UserName   string
	Contact    string
	Summary    string
}

// ExtractEmails returns the distinct addresses in text in order of first
// appearance, with trailing dots removed.
func ExtractEmails(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, found := range emailPattern.FindAllString(text, -1) {
		addr := strings.TrimRight(found, ".")
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// BuildSubject names the draft after the detected topics.
func BuildSubject(topics []string) string {
	switch len(topics) {
	case 0:
		return "User Query Summary"
	case 1:
		return topics[0] + " — User Query Summary"
	default:
		combined := strings.Join(topics[:len(topics)-1], ", ") + " & " + topics[len(topics)-1]
		return "User Query Summary related to " + combined
	}
}

// Render fills the draft template. The Subject:, To: and "Dear Team," lines
// are what the client parses the draft by.
func Render(d Draft) string {
	var b strings.Builder
	b.WriteString("**Email Draft**\n\n")
	fmt.Fprintf(&b, "Subject: %s\n", d.Subject)
	fmt.Fprintf(&b, "To: %s\n\n", strings.Join(d.Recipients, ", "))
	b.WriteString("Dear Team,\n")
	fmt.Fprintf(&b, "From: %s\n\n", orNotProvided(d.UserName))
	b.WriteString(strings.TrimSpace(d.Summary))
	b.WriteString("\n\nPlease proceed with the required assistance.\n")
	fmt.Fprintf(&b, "Contact: %s\n", orNotProvided(d.Contact))
	b.WriteString("Warm regards,\nAI Support Bot")
	return b.String()
}

const fallbackLines = 5

// FallbackSummary is used when no model is available: it quotes the first
// few messages, each cut to a readable width.
func FallbackSummary(messages []string) string {
	n := len(messages)
	shown := messages
	if n > fallbackLines {
		shown = messages[:fallbackLines]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The user had a conversation of %d message(s) with the assistant.", n)
	b.WriteString(" Key points:")
	for _, m := range shown {
		b.WriteString("\n- ")
		b.WriteString(runewidth.Truncate(strings.Join(strings.Fields(m), " "), 120, "..."))
	}
	if n > len(shown) {
		fmt.Fprintf(&b, "\n- (%d more)", n-len(shown))
	}
	return b.String()
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}
