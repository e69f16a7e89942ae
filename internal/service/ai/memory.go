package ai

import (
	"sync"

	chatsvc "github.com/zhouzirui/concierge/internal/service/chat"
)

// session is what the backend remembers about one client session.
type session struct {
	identity *chatsvc.Identity
	history  *chatsvc.Log
}

// Memory keeps per-session identity and history in process.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewMemory returns an empty session memory.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*session)}
}

func (m *Memory) session(key string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		s = &session{
			identity: chatsvc.IdentityFor(key),
			history:  chatsvc.NewLog(),
		}
		m.sessions[key] = s
	}
	return s
}

// Len returns the number of known sessions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
