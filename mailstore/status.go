package mailstore

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// Status is the state of one message in one user's mailbox.
type Status string

const (
	StatusUnread  Status = "unread"
	StatusRead    Status = "read"
	StatusSent    Status = "sent"
	StatusTrashed Status = "trashed"
	StatusDraft   Status = "draft"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusUnread, StatusRead, StatusSent, StatusTrashed, StatusDraft}

// ParseStatus converts s to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown mailbox status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusSent, StatusTrashed, StatusDraft:
		return true
	}
	return false
}

// Flags returns the IMAP system flags equivalent to s.
func (s Status) Flags() []string {
	switch s {
	case StatusRead, StatusSent:
		return []string{imap.SeenFlag}
	case StatusTrashed:
		return []string{imap.SeenFlag, imap.DeletedFlag}
	case StatusDraft:
		return []string{imap.DraftFlag}
	default:
		return []string{}
	}
}
