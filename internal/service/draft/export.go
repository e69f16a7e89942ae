package draft

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/zhouzirui/concierge/internal/model/draft"
)

var (
	ErrNoRecipients  = errors.New("draft has no recipients")
	ErrInvalidSender = errors.New("invalid sender address")
)

// Export writes e as a text/plain RFC 5322 message from the given sender. It
// prepares the message only; nothing is sent.
func Export(w io.Writer, e draft.Email, from string) error {
	sender, err := mail.ParseAddress(strings.TrimSpace(from))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSender, from)
	}

	recipients, err := Recipients(e.To)
	if err != nil {
		return err
	}

	builder := enmime.Builder().
		From(sender.Name, sender.Address).
		Subject(e.Subject).
		Text([]byte(e.Body))
	for _, rcpt := range recipients {
		builder = builder.To(rcpt.Name, rcpt.Address)
	}

	part, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build draft message: %w", err)
	}
	if err := part.Encode(w); err != nil {
		return fmt.Errorf("encode draft message: %w", err)
	}
	return nil
}

// Recipients parses the comma separated To field.
func Recipients(to string) ([]*mail.Address, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrNoRecipients
	}
	list, err := mail.ParseAddressList(to)
	if err != nil {
		return nil, fmt.Errorf("parse recipients %q: %w", to, err)
	}
	if len(list) == 0 {
		return nil, ErrNoRecipients
	}
	return list, nil
}
