package chat

import (
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/concierge/internal/model/chat"
)

// Identity holds the session token and the name/contact learnt from the user.
// The token never changes; name and contact are written at most once each.
type Identity struct {
	mu        sync.RWMutex
	sessionID string
	name      string
	contact   string
}

// NewIdentity generates a fresh session token.
func NewIdentity() *Identity {
	return newIdentity(uuid.NewRandom)
}

// IdentityFor wraps a token issued elsewhere, e.g. one received from a client.
func IdentityFor(sessionID string) *Identity {
	return &Identity{sessionID: sessionID}
}

func newIdentity(gen func() (uuid.UUID, error)) *Identity {
	id, err := gen()
	if err != nil {
		token := fallbackSessionID(time.Now())
		log.Printf("[session] secure random unavailable, using fallback id: %v", err)
		return &Identity{sessionID: token}
	}
	return &Identity{sessionID: id.String()}
}

func fallbackSessionID(now time.Time) string {
	return fmt.Sprintf("session_%d_%v", now.UnixMilli(), rand.Float64())
}

// SessionID returns the immutable session token.
func (i *Identity) SessionID() string {
	return i.sessionID
}

// RecordName stores candidate as the user's name unless one is already known.
// It reports whether the value was stored.
func (i *Identity) RecordName(candidate string) bool {
	return i.setOnce(&i.name, candidate)
}

// RecordContact stores candidate as the user's contact unless one is already known.
func (i *Identity) RecordContact(candidate string) bool {
	return i.setOnce(&i.contact, candidate)
}

func (i *Identity) setOnce(field *string, candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if *field != "" {
		return false
	}
	*field = candidate
	return true
}

// Snapshot returns the current identity values.
func (i *Identity) Snapshot() chat.Identity {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return chat.Identity{
		SessionID: i.sessionID,
		Name:      i.name,
		Contact:   i.contact,
	}
}
