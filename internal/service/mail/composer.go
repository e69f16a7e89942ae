// Package mail composes the support email draft returned by /process_and_email.
package mail

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
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/concierge/internal/model/contract"
)

var ErrNoMessages = errors.New("no messages to summarise")

const (
	defaultRecipient = "team@argano.com"
	generalTopic     = "General Inquiry"
	notProvided      = "Not provided"
)

// Config 控制草稿生成。
type Config struct {
	DefaultRecipient string
	// HistoryLimit keeps only the most recent messages; 0 keeps all.
	HistoryLimit int
	LLMEnabled   bool
}

// Composer builds the email draft from a conversation. Summary and topics
// come from the model when available and from heuristics otherwise.
type Composer struct {
	cfg        Config
	summarizer compose.Runnable[map[string]any, *schema.Message]
	topics     compose.Runnable[map[string]any, *schema.Message]
}

// NewComposer creates a composer. chatModel may be nil.
func NewComposer(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Composer, error) {
	if strings.TrimSpace(cfg.DefaultRecipient) == "" {
		cfg.DefaultRecipient = defaultRecipient
	}
	c := &Composer{cfg: cfg}
	if chatModel == nil || !cfg.LLMEnabled {
		return c, nil
	}

	var err error
	c.summarizer, err = compileChain(ctx, chatModel, summaryPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile summary chain: %w", err)
	}
	c.topics, err = compileChain(ctx, chatModel, topicPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile topic chain: %w", err)
	}
	return c, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, instructions string) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(instructions),
		schema.UserMessage("{conversation}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// Enabled reports whether the model is used.
func (c *Composer) Enabled() bool {
	return c != nil && c.summarizer != nil
}

// Compose returns the draft text for req.
func (c *Composer) Compose(ctx context.Context, req contract.DraftRequest) (string, error) {
	messages := nonEmpty(req.Messages)
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	if limit := c.cfg.HistoryLimit; limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	conversation := strings.Join(messages, "\n")

	var summary string
	var topics []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary = c.summarize(gctx, conversation, messages)
		return nil
	})
	g.Go(func() error {
		topics = c.detectTopics(gctx, conversation)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("compose draft: %w", err)
	}

	recipients := ExtractEmails(conversation + "\n" + summary)
	if len(recipients) == 0 {
		recipients = []string{c.cfg.DefaultRecipient}
	}

	draft := Render(Draft{
		Subject:    BuildSubject(topics),
		Recipients: recipients,
		UserName:   deref(req.UserName),
		Contact:    deref(req.UserContact),
		Summary:    summary,
	})
	log.Printf("[mail] composed draft messages=%d recipients=%d topics=%d llm=%t", len(messages), len(recipients), len(topics), c.Enabled())
	return draft, nil
}

func (c *Composer) summarize(ctx context.Context, conversation string, messages []string) string {
	if c.summarizer != nil {
		msg, err := c.summarizer.Invoke(ctx, map[string]any{"conversation": conversation})
		if err != nil {
			log.Printf("[mail] summary chain failed, use fallback: %v", err)
		} else if msg != nil && strings.TrimSpace(msg.Content) != "" {
			return strings.TrimSpace(msg.Content)
		}
	}
	return FallbackSummary(messages)
}

func (c *Composer) detectTopics(ctx context.Context, conversation string) []string {
	if c.topics == nil {
		return []string{generalTopic}
	}

	msg, err := c.topics.Invoke(ctx, map[string]any{"conversation": conversation})
	if err != nil {
		log.Printf("[mail] topic detection failed: %v", err)
		return []string{generalTopic}
	}
	if msg == nil {
		return []string{generalTopic}
	}
	topics := ParseTopics(msg.Content)
	if len(topics) == 0 {
		return []string{generalTopic}
	}
	return topics
}

// ParseTopics splits a comma separated label list, dropping empty entries.
func ParseTopics(raw string) []string {
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

func nonEmpty(messages []string) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

const summaryPrompt = "Summarize the following chat conversation in 4-5 clear sentences. If any email is mentioned, include it."

const topicPrompt = "Identify the main topics discussed in this conversation. " +
	"Return ONLY a comma-separated list of short topic labels. " +
	"Do not include sentences, explanations, or extra text."
