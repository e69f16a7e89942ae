package chat

// Identity is a point-in-time view of what the session knows about the user.
type Identity struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name,omitempty"`
	Contact   string `json:"contact,omitempty"`
}

func (i Identity) HasName() bool    { return i.Name != "" }
func (i Identity) HasContact() bool { return i.Contact != "" }

// NameOrNil returns a pointer suitable for a nullable JSON field.
func (i Identity) NameOrNil() *string {
	return optional(i.Name)
}

// ContactOrNil returns a pointer suitable for a nullable JSON field.
func (i Identity) ContactOrNil() *string {
	return optional(i.Contact)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
