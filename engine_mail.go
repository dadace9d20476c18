package goMail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/MrEthical07/goMail/export"
	"github.com/MrEthical07/goMail/mailstore"
)

const unknownSenderName = "Unknown User"

// Send stores a message from senderID and delivers it to every registered
// address in To, Cc and Bcc. Delivery to all known recipients happens in one
// transaction. Addresses without an account are returned in Undelivered.
func (e *Engine) Send(ctx context.Context, senderID string, in Compose) (SendResult, error) {
	if e == nil || e.store == nil {
		return SendResult{}, ErrEngineNotReady
	}

	msg, err := e.normalizeCompose(in)
	if err != nil {
		return SendResult{}, err
	}

	sender, err := e.store.UserByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, mailstore.ErrUserNotFound) {
			return SendResult{}, ErrUserNotFound
		}
		return SendResult{}, storeErr(err)
	}

	recipients := uniqueAddresses(msg.To, msg.Cc, msg.Bcc)
	ids, err := e.store.UserIDsByEmail(ctx, recipients)
	if err != nil {
		return SendResult{}, storeErr(err)
	}

	var (
		recipientIDs []string
		undelivered  []string
		seen         = make(map[string]struct{}, len(ids))
		selfAddress  bool
	)
	for _, addr := range recipients {
		id, ok := ids[addr]
		if !ok {
			undelivered = append(undelivered, addr)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recipientIDs = append(recipientIDs, id)
		if id == sender.ID {
			selfAddress = true
		}
	}

	msg.SenderID = sender.ID
	msg.From = sender.Email
	if err := e.store.Deliver(ctx, msg, recipientIDs); err != nil {
		return SendResult{}, storeErr(err)
	}

	e.metricInc(MetricMailSent)
	e.metricAdd(MetricMailRecipientUndelivered, uint64(len(undelivered)))
	e.emitAudit(ctx, auditEventMailSent, true, sender.ID, nil, func() map[string]string {
		return map[string]string{
			"message_id":  msg.ID,
			"delivered":   fmt.Sprint(len(recipientIDs)),
			"undelivered": fmt.Sprint(len(undelivered)),
		}
	})

	status := mailstore.StatusSent
	if selfAddress {
		status = mailstore.StatusUnread
	}
	if undelivered == nil {
		undelivered = []string{}
	}

	return SendResult{
		Message:     messageView(msg, status, sender.Name, true),
		Undelivered: undelivered,
	}, nil
}

// Mailbox returns userID's mailbox grouped by status, newest first. Every
// entry carries the sender's display name, or "Unknown User" when the sender
// has no account.
func (e *Engine) Mailbox(ctx context.Context, userID string) (MailboxView, error) {
	if e == nil || e.store == nil {
		return MailboxView{}, ErrEngineNotReady
	}

	entries, names, err := e.loadMailbox(ctx, userID)
	if err != nil {
		return MailboxView{}, err
	}

	view := MailboxView{
		Inbox:  []Message{},
		Opened: []Message{},
		Sent:   []Message{},
		Trash:  []Message{},
		Drafts: []Message{},
	}
	for _, en := range entries {
		m := messageView(en.Message, en.Status, senderName(names, en.Message.From), en.Message.SenderID == userID)
		switch en.Status {
		case mailstore.StatusUnread:
			view.Inbox = append(view.Inbox, m)
		case mailstore.StatusRead:
			view.Opened = append(view.Opened, m)
		case mailstore.StatusSent:
			view.Sent = append(view.Sent, m)
		case mailstore.StatusTrashed:
			view.Trash = append(view.Trash, m)
		case mailstore.StatusDraft:
			view.Drafts = append(view.Drafts, m)
		}
	}

	e.metricInc(MetricMailboxFetched)
	return view, nil
}

// Message returns one message as seen by userID. A message outside userID's
// mailbox is ErrMessageNotFound, whether or not it exists.
func (e *Engine) Message(ctx context.Context, userID, messageID string) (Message, error) {
	if e == nil || e.store == nil {
		return Message{}, ErrEngineNotReady
	}
	if messageID == "" {
		return Message{}, ErrMessageNotFound
	}

	status, err := e.store.Status(ctx, userID, messageID)
	if err != nil {
		if errors.Is(err, mailstore.ErrNoRelation) {
			return Message{}, ErrMessageNotFound
		}
		return Message{}, storeErr(err)
	}

	rec, err := e.store.Message(ctx, messageID)
	if err != nil {
		if errors.Is(err, mailstore.ErrMessageNotFound) {
			return Message{}, ErrMessageNotFound
		}
		return Message{}, storeErr(err)
	}

	names, err := e.senderNames(ctx, []string{rec.From})
	if err != nil {
		return Message{}, err
	}

	return messageView(rec, status, senderName(names, rec.From), rec.SenderID == userID), nil
}

// MarkRead moves an unread message in userID's inbox to read. A message that
// is already read succeeds without change. Any other status, or no entry at
// all, is ErrMessageNotInInbox.
func (e *Engine) MarkRead(ctx context.Context, userID, messageID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(messageID) == "" {
		return invalid("emailId", "Email ID is required")
	}

	applied, err := e.store.MarkRead(ctx, userID, messageID)
	if err != nil {
		if errors.Is(err, mailstore.ErrNoRelation) || errors.Is(err, mailstore.ErrStatusConflict) {
			e.metricInc(MetricMailMarkReadMiss)
			return ErrMessageNotInInbox
		}
		return storeErr(err)
	}

	if applied {
		e.metricInc(MetricMailMarkedRead)
		e.emitAudit(ctx, auditEventMailMarkedRead, true, userID, nil, func() map[string]string {
			return map[string]string{"message_id": messageID}
		})
	}
	return nil
}

// Export writes userID's mailbox to w as an mbox stream. It returns the number
// of messages written.
func (e *Engine) Export(ctx context.Context, userID string, w io.Writer, opts ExportOptions) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}

	cs, err := export.ResolveCharset(opts.Charset)
	if err != nil {
		return 0, invalid("charset", "Unknown charset")
	}

	want := make(map[Status]bool, len(opts.Statuses))
	for _, s := range opts.Statuses {
		if !s.Valid() {
			return 0, invalid("status", fmt.Sprintf("Unknown status %q", s))
		}
		want[s] = true
	}

	entries, names, err := e.loadMailbox(ctx, userID)
	if err != nil {
		return 0, err
	}

	items := make([]export.Item, 0, len(entries))
	for _, en := range entries {
		if len(want) > 0 && !want[en.Status] {
			continue
		}
		items = append(items, export.Item{
			Message:    en.Message,
			Status:     en.Status,
			SenderName: senderName(names, en.Message.From),
			ShowBcc:    en.Message.SenderID == userID,
		})
	}

	if err := export.WriteMbox(w, items, cs); err != nil {
		return 0, err
	}

	e.metricInc(MetricMailExported)
	e.emitAudit(ctx, auditEventMailExported, true, userID, nil, func() map[string]string {
		return map[string]string{"count": fmt.Sprint(len(items)), "charset": cs.Name}
	})
	return len(items), nil
}

func (e *Engine) loadMailbox(ctx context.Context, userID string) ([]mailstore.Entry, map[string]string, error) {
	entries, err := e.store.Mailbox(ctx, userID)
	if err != nil {
		return nil, nil, storeErr(err)
	}

	from := make([]string, 0, len(entries))
	for _, en := range entries {
		from = append(from, en.Message.From)
	}
	names, err := e.senderNames(ctx, uniqueAddresses(from))
	if err != nil {
		return nil, nil, err
	}
	return entries, names, nil
}

// senderNames maps normalized addresses to account names. Unregistered
// addresses are absent.
func (e *Engine) senderNames(ctx context.Context, addrs []string) (map[string]string, error) {
	ids, err := e.store.UserIDsByEmail(ctx, addrs)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	userIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		userIDs = append(userIDs, id)
	}
	users, err := e.store.UsersByID(ctx, userIDs)
	if err != nil {
		return nil, storeErr(err)
	}

	out := make(map[string]string, len(users))
	for addr, id := range ids {
		if u, ok := users[id]; ok {
			out[addr] = u.Name
		}
	}
	return out, nil
}

func senderName(names map[string]string, from string) string {
	if n, ok := names[mailstore.NormalizeEmail(from)]; ok && n != "" {
		return n
	}
	return unknownSenderName
}

func (e *Engine) normalizeCompose(in Compose) (*mailstore.MessageRecord, error) {
	to, err := parseAddressList("to", in.To)
	if err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, invalid("to", "At least one recipient is required")
	}
	cc, err := parseAddressList("cc", in.Cc)
	if err != nil {
		return nil, err
	}
	bcc, err := parseAddressList("bcc", in.Bcc)
	if err != nil {
		return nil, err
	}

	limits := e.config.Mail
	if len(to)+len(cc)+len(bcc) > limits.MaxRecipients {
		return nil, invalid("to", fmt.Sprintf("At most %d recipients are allowed", limits.MaxRecipients))
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, invalid("subject", "Subject is required")
	}
	if len(subject) > limits.MaxSubjectBytes || strings.ContainsAny(subject, "\r\n") {
		return nil, invalid("subject", "Subject is invalid")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, invalid("message", "Message is required")
	}
	if len(in.Message) > limits.MaxBodyBytes {
		return nil, invalid("message", "Message is too large")
	}
	if len(in.Attachments) > limits.MaxAttachments {
		return nil, invalid("attachments", fmt.Sprintf("At most %d attachments are allowed", limits.MaxAttachments))
	}
	attachments := make([]mailstore.Attachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		if strings.TrimSpace(a.Name) == "" || a.Size < 0 {
			return nil, invalid("attachments", "Attachment is invalid")
		}
		attachments = append(attachments, a)
	}

	return &mailstore.MessageRecord{
		To:          to,
		Cc:          cc,
		Bcc:         bcc,
		Subject:     subject,
		Body:        in.Message,
		Attachments: attachments,
	}, nil
}

// parseAddressList returns the bare, normalized addresses of list. Display
// names are dropped.
func parseAddressList(field string, list []string) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, raw := range list {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, invalid(field, fmt.Sprintf("Invalid address %q", raw))
		}
		out = append(out, mailstore.NormalizeEmail(addr.Address))
	}
	return out, nil
}

func uniqueAddresses(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, a := range list {
			a = mailstore.NormalizeEmail(a)
			if a == "" {
				continue
			}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

func messageView(rec *mailstore.MessageRecord, status Status, name string, showBcc bool) Message {
	m := Message{
		ID:          rec.ID,
		From:        rec.From,
		To:          nonNil(rec.To),
		Cc:          nonNil(rec.Cc),
		Subject:     rec.Subject,
		Message:     rec.Body,
		Attachments: rec.Attachments,
		Status:      status,
		Flags:       status.Flags(),
		SenderName:  name,
		SenderEmail: rec.From,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if showBcc {
		m.Bcc = rec.Bcc
	}
	if m.Attachments == nil {
		m.Attachments = []Attachment{}
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
