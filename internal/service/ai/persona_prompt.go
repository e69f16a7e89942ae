package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/concierge/internal/model/persona"
)

// Canned answers used when no model is involved.
const (
	ContactAck = "Got it! Please click **Draft** when you're ready to send."

	OutOfScopeRelated = "I don't have specific information about that in my current knowledge base. " +
		"However, this is something our team can definitely help you with! " +
		"Please share your name and contact number, and click **Draft** to get in touch with someone who can assist."

	OutOfScopeUnrelated = "I can only answer questions related to our company's services and offerings. How else can I assist you?"
)

const receptionistPrompt = `You are a polite, professional virtual receptionist (company assistant) for Argano.

Behavior rules (VERY IMPORTANT):
- Answer only questions about the company, its services and offerings.
- If the question is outside the company's scope or you are not sure of the facts, reply exactly:
  "` + OutOfScopeRelated + `"
- Do NOT invent facts.
- Keep answers concise, factual and helpful.
- If the user introduced their name earlier in the session, greet them by name only when it is naturally required.`

// PromptBuilder renders the system and rewrite prompts for each persona.
type PromptBuilder struct {
	personas persona.Store
}

// NewPromptBuilder creates a builder backed by personas.
func NewPromptBuilder(personas persona.Store) *PromptBuilder {
	return &PromptBuilder{personas: personas}
}

// SystemPrompt returns the receptionist instructions, mentioning the user's
// name when the session knows it.
func (b *PromptBuilder) SystemPrompt(userName string) string {
	if userName == "" {
		return receptionistPrompt
	}
	return receptionistPrompt + "\n\nSession user name: " + userName
}

// FlairPrompt returns the instructions that rewrite an answer in p's voice,
// or "" when p has no flair to add.
func (b *PromptBuilder) FlairPrompt(p persona.Persona) string {
	if !p.Flavoured() {
		return ""
	}

	return fmt.Sprintf(`You are %s.
Your tone: %s
Your traits: %s
Your background: %s
Your quirks/habits: %s
Example lines:
- %s

Rewrite the answer you are given to match your persona while keeping all the technical information intact.
Make it engaging and memorable, but stay professional and on-brand for Argano.
Keep it concise - don't add more than 1-2 sentences of personality flair.
Reply with the rewritten answer only.`,
		p.Role,
		p.Tone,
		strings.Join(p.Traits, ", "),
		p.Story,
		strings.Join(p.Quirks, ", "),
		strings.Join(p.Examples, "\n- "),
	)
}

// Resolve looks up the persona for a requested mode, tolerating case and
// whitespace and falling back to normal.
func (b *PromptBuilder) Resolve(raw persona.Mode) persona.Persona {
	mode, _ := persona.ParseMode(string(raw))
	return persona.Resolve(b.personas, mode)
}
