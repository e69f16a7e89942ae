package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/concierge/internal/model/contract"
)

var errServerFrame = errors.New("server returned error frame")

// WSAsker sends ask requests over a single websocket connection. The
// connection is dialled on first use and re-dialled after any failure.
// Requests on one connection are answered in order, so calls are serialised.
type WSAsker struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSAsker returns an Asker for a ws:// or wss:// endpoint. A positive
// timeout bounds each call whose ctx carries no earlier deadline; zero means
// calls wait until ctx is done.
func NewWSAsker(url string, timeout time.Duration) *WSAsker {
	return &WSAsker{url: url, timeout: timeout, dialer: websocket.DefaultDialer}
}

// Ask writes req as a JSON frame and waits for the matching reply. Cancelling
// ctx closes the connection, which unblocks a pending read.
func (a *WSAsker) Ask(ctx context.Context, req contract.AskRequest) (contract.AskResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.connect(ctx)
	if err != nil {
		return contract.AskResponse{}, err
	}

	// Deadlines stick to the connection, so every call sets them, clearing
	// whatever the previous call left behind.
	deadline := a.deadline(ctx)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	data, err := roundTrip(conn, req)
	if !stop() {
		// ctx fired and the connection is already closed.
		a.conn = nil
		if err == nil {
			err = ctx.Err()
		}
		return contract.AskResponse{}, fmt.Errorf("ask: %w", errors.Join(ctx.Err(), err))
	}
	if err != nil {
		a.reset()
		return contract.AskResponse{}, err
	}

	var reply askReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return contract.AskResponse{}, fmt.Errorf("unmarshal ask reply: %w", err)
	}
	if reply.Error != "" {
		return contract.AskResponse{}, fmt.Errorf("%w: %s", errServerFrame, reply.Error)
	}
	return reply.response()
}

func roundTrip(conn *websocket.Conn, req contract.AskRequest) ([]byte, error) {
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write ask frame: %w", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read ask reply: %w", err)
	}
	return data, nil
}

// deadline is the earlier of ctx's deadline and now+timeout; the zero time
// means no deadline.
func (a *WSAsker) deadline(ctx context.Context) time.Time {
	var d time.Time
	if a.timeout > 0 {
		d = time.Now().Add(a.timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}

func (a *WSAsker) connect(ctx context.Context) (*websocket.Conn, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", a.url, err)
	}
	a.conn = conn
	return conn, nil
}

func (a *WSAsker) reset() {
	if a.conn == nil {
		return
	}
	if err := a.conn.Close(); err != nil {
		log.Printf("[client] close websocket: %v", err)
	}
	a.conn = nil
}

// Close shuts the connection down, if one is open.
func (a *WSAsker) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	_ = a.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := a.conn.Close()
	a.conn = nil
	return err
}
