// Package export writes mailbox contents as an mbox stream.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/goMail/mailstore"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-mbox"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrUnknownCharset is returned for charset names IANA does not define or
// that have no encoder.
var ErrUnknownCharset = errors.New("unknown charset")

// Item is one message to export.
type Item struct {
	Message    *mailstore.MessageRecord
	Status     mailstore.Status
	SenderName string
	// ShowBcc includes the Bcc header. Only the sender's copy sets it.
	ShowBcc bool
}

// Charset is a resolved output character set.
type Charset struct {
	Name     string
	encoding encoding.Encoding
}

// ResolveCharset looks name up in the IANA index. An empty name selects UTF-8.
func ResolveCharset(name string) (Charset, error) {
	if name == "" {
		name = "utf-8"
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(name))
	if err != nil || enc == nil {
		return Charset{}, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}
	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil || canonical == "" {
		canonical = strings.ToLower(name)
	}
	return Charset{Name: strings.ToLower(canonical), encoding: enc}, nil
}

func (c Charset) encode(s string) (string, error) {
	if c.encoding == nil {
		return s, nil
	}
	return encoding.ReplaceUnsupported(c.encoding.NewEncoder()).String(s)
}

// WriteMbox writes items to w in mboxo format, one entry per item.
func WriteMbox(w io.Writer, items []Item, cs Charset) error {
	bw := bufio.NewWriter(w)
	mw := mbox.NewWriter(bw)

	for _, it := range items {
		if it.Message == nil {
			continue
		}
		if err := writeEntry(mw, it, cs); err != nil {
			return err
		}
	}

	if err := mw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func writeEntry(mw *mbox.Writer, it Item, cs Charset) error {
	msg := it.Message
	entry, err := mw.CreateMessage(msg.From, msg.CreatedAt)
	if err != nil {
		return err
	}

	subject, err := cs.encode(msg.Subject)
	if err != nil {
		return err
	}
	body, err := cs.encode(msg.Body)
	if err != nil {
		return err
	}

	var b strings.Builder
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}

	from := &mail.Address{Name: it.SenderName, Address: msg.From}
	header("From", from.String())
	header("To", strings.Join(msg.To, ", "))
	header("Cc", strings.Join(msg.Cc, ", "))
	if it.ShowBcc {
		header("Bcc", strings.Join(msg.Bcc, ", "))
	}
	header("Subject", mime.QEncoding.Encode(cs.Name, subject))
	header("Date", msg.CreatedAt.UTC().Format(time.RFC1123Z))
	header("Message-ID", "<"+msg.ID+"@gomail>")
	header("MIME-Version", "1.0")
	header("Content-Type", mime.FormatMediaType("text/plain", map[string]string{"charset": cs.Name}))
	header("Content-Transfer-Encoding", "8bit")
	status, xstatus := mboxStatus(it.Status)
	header("Status", status)
	header("X-Status", xstatus)
	for _, a := range msg.Attachments {
		header("X-Attachment", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name, "url": a.URL}))
	}
	b.WriteString("\n")
	b.WriteString(strings.ReplaceAll(body, "\r\n", "\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	_, err = io.WriteString(entry, b.String())
	return err
}

// mboxStatus renders the IMAP flags of s as the Status/X-Status header pair
// understood by mutt and Thunderbird.
func mboxStatus(s mailstore.Status) (string, string) {
	status := "O"
	var x strings.Builder
	for _, f := range s.Flags() {
		switch f {
		case imap.SeenFlag:
			status = "RO"
		case imap.DeletedFlag:
			x.WriteByte('D')
		case imap.DraftFlag:
			x.WriteByte('T')
		}
	}
	return status, x.String()
}
