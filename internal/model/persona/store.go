package persona

// Store is the catalogue of personality modes offered to the user. The
// console's mode selector, the answering backend and the /api/personas
// handler all read from it.
type Store interface {
	// List returns every mode in selector order.
	List() []Persona
	// FindByID returns the persona behind a mode.
	FindByID(id Mode) (Persona, bool)
}

// MemoryStore is a fixed catalogue built once at startup.
type MemoryStore struct {
	order []Persona
	byID  map[Mode]int
}

// NewMemoryStore builds a catalogue from items, keeping their order. When two
// items share a mode the first one wins.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{byID: make(map[Mode]int, len(items))}
	for _, p := range items {
		if _, dup := s.byID[p.ID]; dup {
			continue
		}
		s.byID[p.ID] = len(s.order)
		s.order = append(s.order, p)
	}
	return s
}

// List returns a copy, so callers may reorder or edit it freely.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.order...)
}

func (s *MemoryStore) FindByID(id Mode) (Persona, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Persona{}, false
	}
	return s.order[i], true
}

// Resolve maps a mode stamped on a bot message to the persona used to render
// it. Modes the catalogue does not know (a server-supplied agent_mode, for
// instance) render as the normal persona.
func Resolve(s Store, id Mode) Persona {
	if p, ok := s.FindByID(id); ok {
		return p
	}
	if p, ok := s.FindByID(DefaultMode); ok {
		return p
	}
	return Persona{ID: DefaultMode, Label: "Normal"}
}
