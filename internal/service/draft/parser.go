// Package draft turns the drafting service's free-text email into editable
// fields and exports edited drafts as MIME messages.
package draft

import (
	"strings"

	"github.com/zhouzirui/concierge/internal/model/draft"
)

// Markers the drafting service is expected to emit. The body split depends on
// the exact salutation; if upstream changes its template the body comes back empty.
const (
	SubjectMarker    = "Subject:"
	ToMarker         = "To:"
	SalutationMarker = "Dear Team,"
)

// Parse extracts To, Subject and Body from raw. Each field independently
// falls back to "" when its marker is missing; Parse never fails.
func Parse(raw string) draft.Email {
	email := draft.Email{
		Subject: headerValue(raw, SubjectMarker),
		To:      headerValue(raw, ToMarker),
	}

	if _, rest, found := strings.Cut(raw, SalutationMarker); found {
		email.Body = SalutationMarker + "\n" + strings.TrimSpace(rest)
	}
	return email
}

// headerValue returns the text after the first occurrence of marker, up to the
// end of that line, trimmed.
func headerValue(raw, marker string) string {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return ""
	}
	line := raw[idx+len(marker):]
	if end := strings.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	return strings.TrimSpace(line)
}
