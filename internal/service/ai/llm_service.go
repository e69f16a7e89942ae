package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/concierge/internal/analysis/entity"
	"github.com/zhouzirui/concierge/internal/model/chat"
	"github.com/zhouzirui/concierge/internal/model/contract"
	"github.com/zhouzirui/concierge/internal/model/persona"
)

var ErrEmptyQuery = errors.New("query is empty")

const historyLimit = 10

// Service answers /ask requests. Without a chat model it still handles
// contacts, greetings and acknowledgments and answers questions with the
// canned out-of-scope reply.
type Service struct {
	chatModel model.ChatModel
	answer    compose.Runnable[map[string]any, *schema.Message]
	flair     compose.Runnable[map[string]any, *schema.Message]
	prompts   *PromptBuilder
	memory    *Memory
	extractor *entity.Extractor
}

// NewService creates the answering service. chatModel may be nil.
func NewService(ctx context.Context, personas persona.Store, chatModel model.ChatModel) (*Service, error) {
	svc := &Service{
		chatModel: chatModel,
		prompts:   NewPromptBuilder(personas),
		memory:    NewMemory(),
		extractor: entity.Default(),
	}
	if chatModel == nil {
		return svc, nil
	}

	answerTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)
	answer := compose.NewChain[map[string]any, *schema.Message]()
	answer.AppendChatTemplate(answerTemplate)
	answer.AppendChatModel(chatModel)

	runnable, err := answer.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer chain: %w", err)
	}
	svc.answer = runnable

	flairTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{persona}"),
		schema.UserMessage("User asked: \"{query}\"\nYour answer: \"{answer}\""),
	)
	flair := compose.NewChain[map[string]any, *schema.Message]()
	flair.AppendChatTemplate(flairTemplate)
	flair.AppendChatModel(chatModel)

	runnable, err = flair.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile flair chain: %w", err)
	}
	svc.flair = runnable

	return svc, nil
}

// Enabled reports whether questions are answered by the model.
func (s *Service) Enabled() bool {
	return s != nil && s.answer != nil
}

// GetChatModel 返回底层的聊天模型，供草稿服务复用。
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// Personas lists the personas known to the service.
func (s *Service) Personas() []persona.Persona {
	return s.prompts.personas.List()
}

// Answer handles one ask request. sessionKey identifies the caller when the
// request carries no session id.
func (s *Service) Answer(ctx context.Context, req contract.AskRequest, sessionKey string) (contract.AskResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return contract.AskResponse{}, ErrEmptyQuery
	}
	if req.SessionID != "" {
		sessionKey = req.SessionID
	}

	sess := s.memory.session(sessionKey)
	found := s.extractor.Extract(query)
	sess.identity.RecordName(found.Name)
	sess.identity.RecordContact(found.Contact)

	p := s.prompts.Resolve(req.PersonalityMode)
	who := sess.identity.Snapshot()

	var (
		answer string
		agent  = "receptionist"
	)
	switch {
	case found.Contact != "":
		answer, agent = ContactAck, "contact"
	default:
		switch ClassifyIntent(query, found.Name) {
		case IntentGreeting:
			answer, agent = s.withFlair(ctx, p, query, greetingFor(who)), "greeting"
		case IntentAcknowledgment:
			answer, agent = s.withFlair(ctx, p, query, acknowledgmentFor(who)), "acknowledgment"
		default:
			answer = s.withFlair(ctx, p, query, s.ask(ctx, sess, who, query))
		}
	}

	sess.history.Append(chat.UserMessage(query))
	sess.history.Append(chat.BotMessage(answer, p.ID))

	log.Printf("[ai] answered session=%s agent=%s mode=%s length=%d", sessionKey, agent, p.ID, len(answer))
	return contract.AskResponse{Answer: answer, AgentMode: string(p.ID)}, nil
}

func (s *Service) ask(ctx context.Context, sess *session, who chat.Identity, query string) string {
	if !s.Enabled() {
		return OutOfScopeRelated
	}

	input := map[string]any{
		"system":  s.prompts.SystemPrompt(who.Name),
		"history": buildHistoryMessages(sess.history.Snapshot()),
		"query":   query,
	}

	response, err := s.answer.Invoke(ctx, input)
	if err != nil {
		log.Printf("[ai] answer chain failed, use fallback: %v", err)
		return OutOfScopeRelated
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return OutOfScopeUnrelated
	}
	return strings.TrimSpace(response.Content)
}

// withFlair rewrites answer in the persona's voice. The original answer is
// kept whenever the persona has no flair or the rewrite fails.
func (s *Service) withFlair(ctx context.Context, p persona.Persona, query, answer string) string {
	instructions := s.prompts.FlairPrompt(p)
	if instructions == "" || s.flair == nil {
		return answer
	}

	response, err := s.flair.Invoke(ctx, map[string]any{
		"persona": instructions,
		"query":   query,
		"answer":  answer,
	})
	if err != nil {
		log.Printf("[ai] personality injection failed persona=%s: %v", p.ID, err)
		return answer
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return answer
	}
	return strings.TrimSpace(response.Content)
}

func greetingFor(who chat.Identity) string {
	if who.HasName() {
		return fmt.Sprintf("Nice to meet you, %s! How can I help you today?", who.Name)
	}
	return "Hello! How can I help you today?"
}

func acknowledgmentFor(who chat.Identity) string {
	if who.HasName() {
		return fmt.Sprintf("Great! I'm here to help you, %s. What would you like to know about Argano's services?", who.Name)
	}
	return "Great! I'm here to help you. What would you like to know about Argano's services?"
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SenderBot:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}

	return history
}
