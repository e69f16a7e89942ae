// Package client talks to the answering and drafting services over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/concierge/internal/model/contract"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrEmptyResponse means the reply had no answer field at all. An empty
	// answer string is a valid reply.
	ErrEmptyResponse = errors.New("response has no answer")
)

// Asker forwards a user utterance to the answering service.
type Asker interface {
	Ask(ctx context.Context, req contract.AskRequest) (contract.AskResponse, error)
}

// Drafter requests an email draft summarising the conversation.
type Drafter interface {
	Draft(ctx context.Context, req contract.DraftRequest) (contract.DraftResponse, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, req contract.AskRequest) (contract.AskResponse, error)

func (f AskerFunc) Ask(ctx context.Context, req contract.AskRequest) (contract.AskResponse, error) {
	return f(ctx, req)
}

// DrafterFunc adapts a function to Drafter.
type DrafterFunc func(ctx context.Context, req contract.DraftRequest) (contract.DraftResponse, error)

func (f DrafterFunc) Draft(ctx context.Context, req contract.DraftRequest) (contract.DraftResponse, error) {
	return f(ctx, req)
}

// Client is a JSON-over-HTTP client for one service base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client rooted at baseURL. A zero timeout leaves the transport
// default in place (no deadline).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ask calls POST /ask.
func (c *Client) Ask(ctx context.Context, req contract.AskRequest) (contract.AskResponse, error) {
	var reply askReply
	if err := c.postJSON(ctx, contract.AskPath, req, &reply); err != nil {
		return contract.AskResponse{}, err
	}
	return reply.response()
}

// askReply decodes an ask reply, telling a missing answer apart from an
// empty one. Error is only set on websocket error frames.
type askReply struct {
	Answer    *string `json:"answer"`
	AgentMode string  `json:"agent_mode"`
	Error     string  `json:"error,omitempty"`
}

func (r askReply) response() (contract.AskResponse, error) {
	if r.Answer == nil {
		return contract.AskResponse{}, fmt.Errorf("ask: %w", ErrEmptyResponse)
	}
	return contract.AskResponse{Answer: *r.Answer, AgentMode: r.AgentMode}, nil
}

// Draft calls POST /process_and_email.
func (c *Client) Draft(ctx context.Context, req contract.DraftRequest) (contract.DraftResponse, error) {
	if req.Messages == nil {
		req.Messages = []string{}
	}

	var resp contract.DraftResponse
	if err := c.postJSON(ctx, contract.DraftPath, req, &resp); err != nil {
		return contract.DraftResponse{}, err
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp contract.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%w [%d] %s: %s", ErrUnexpectedStatus, resp.StatusCode, path, errResp.Error)
		}
		return fmt.Errorf("%w [%d] %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
