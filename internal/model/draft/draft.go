package draft

// Email is the editable draft assembled from the drafting service response.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Empty reports whether no field carries any content.
func (e Email) Empty() bool {
	return e.To == "" && e.Subject == "" && e.Body == ""
}

// View is the state of the draft panel: the current field values plus the two
// independently toggled edit sections (header fields and body).
type View struct {
	Open          bool  `json:"open"`
	Email         Email `json:"email"`
	EditingFields bool  `json:"editingFields"`
	EditingBody   bool  `json:"editingBody"`
}
