package goMail

import (
	"time"

	"github.com/MrEthical07/goMail/mailstore"
)

// Attachment references a file attached to a message.
type Attachment = mailstore.Attachment

// Status is the state of a message in one user's mailbox.
type Status = mailstore.Status

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"-"`
}

// SignupInput is the payload of an account creation request.
type SignupInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Compose is an outgoing message as written by its sender.
type Compose struct {
	To          []string     `json:"to"`
	Cc          []string     `json:"cc"`
	Bcc         []string     `json:"bcc"`
	Subject     string       `json:"subject"`
	Message     string       `json:"message"`
	Attachments []Attachment `json:"attachments"`
}

// Message is a message as seen by one user. Bcc is empty unless the viewer
// is the sender.
type Message struct {
	ID          string       `json:"_id"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc"`
	Bcc         []string     `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Message     string       `json:"message"`
	Attachments []Attachment `json:"attachments"`
	Status      Status       `json:"status"`
	Flags       []string     `json:"flags"`
	SenderName  string       `json:"senderName"`
	SenderEmail string       `json:"senderEmail"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// MailboxView groups a user's mailbox by status, newest first.
type MailboxView struct {
	Inbox  []Message `json:"inbox"`
	Opened []Message `json:"opened"`
	Sent   []Message `json:"sent"`
	Trash  []Message `json:"trash"`
	Drafts []Message `json:"drafts"`
}

// SendResult is returned by Send. Undelivered lists recipient addresses that
// do not belong to a registered user.
type SendResult struct {
	Message     Message
	Undelivered []string
}

// ExportOptions selects what Export writes.
type ExportOptions struct {
	// Statuses limits the export to these statuses. Empty means all.
	Statuses []Status
	// Charset is an IANA charset name for subjects and bodies. Empty means UTF-8.
	Charset string
}
