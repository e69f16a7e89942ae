// Package contract holds the JSON bodies exchanged with the answering and
// drafting services.
package contract

import "github.com/zhouzirui/concierge/internal/model/persona"

const (
	AskPath   = "/ask"
	DraftPath = "/process_and_email"
	WSPath    = "/ws"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query           string       `json:"query"`
	SessionID       string       `json:"session_id"`
	PersonalityMode persona.Mode `json:"personality_mode"`
}

// AskResponse is the reply to POST /ask. AgentMode, when present, overrides
// the mode shown next to the answer.
type AskResponse struct {
	Answer    string `json:"answer"`
	AgentMode string `json:"agent_mode,omitempty"`
}

// DraftRequest is the body of POST /process_and_email. Nil pointers encode as null.
type DraftRequest struct {
	Messages    []string `json:"messages"`
	UserName    *string  `json:"user_name"`
	UserContact *string  `json:"user_contact"`
}

// DraftResponse carries the free-text email draft.
type DraftResponse struct {
	Email string `json:"email"`
}

// ErrorResponse is the body of any non-2xx reply and of websocket error frames.
type ErrorResponse struct {
	Error string `json:"error"`
}
