package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goMail "github.com/MrEthical07/goMail"
)

type sendResult struct {
	Success     bool           `json:"success"`
	Email       goMail.Message `json:"email"`
	Undelivered []string       `json:"undelivered"`
}

func (h *harness) send(cookie *http.Cookie, in goMail.Compose) sendResult {
	h.t.Helper()

	rec := h.do(http.MethodPost, "/api/mails", in, cookie)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())

	var out sendResult
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (h *harness) mailbox(cookie *http.Cookie) goMail.MailboxView {
	h.t.Helper()

	rec := h.do(http.MethodGet, "/api/mails", nil, cookie)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	var view goMail.MailboxView
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestSendAndMarkRead(t *testing.T) {
	h := newHarness(t)
	h.signup("Alice", "Smith", "alice@example.com")
	h.signup("Bob", "Jones", "bob@example.com")
	alice := h.login("alice@example.com")
	bob := h.login("bob@example.com")

	sent := h.send(alice, goMail.Compose{
		To:      []string{"bob@example.com", "Ghost@Example.com"},
		Subject: "Hello",
		Message: "Hi Bob",
	})
	assert.True(t, sent.Success)
	assert.NotEmpty(t, sent.Email.ID)
	assert.Equal(t, []string{"ghost@example.com"}, sent.Undelivered)

	box := h.mailbox(bob)
	require.Len(t, box.Inbox, 1)
	assert.Empty(t, box.Opened)
	assert.Equal(t, "Alice Smith", box.Inbox[0].SenderName)
	assert.Equal(t, "alice@example.com", box.Inbox[0].SenderEmail)

	rec := h.do(http.MethodPatch, "/api/mails/read", map[string]string{"emailId": sent.Email.ID}, bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Email marked as read and moved to opened emails"}`, rec.Body.String())

	box = h.mailbox(bob)
	assert.Empty(t, box.Inbox)
	require.Len(t, box.Opened, 1)

	rec = h.do(http.MethodPatch, "/api/mails/read", map[string]string{"emailId": sent.Email.ID}, bob)
	assert.Equal(t, http.StatusOK, rec.Code, "marking a read message again succeeds")

	rec = h.do(http.MethodPatch, "/api/mails/read", map[string]string{"emailId": sent.Email.ID}, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Email not found in inbox", errorBody(t, rec))

	rec = h.do(http.MethodPatch, "/api/mails/read", map[string]string{"emailId": ""}, bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email ID is required", errorBody(t, rec))

	box = h.mailbox(alice)
	require.Len(t, box.Sent, 1)
	assert.Empty(t, box.Inbox)
}

func TestSendValidation(t *testing.T) {
	h := newHarness(t)
	h.signup("Alice", "Smith", "alice@example.com")
	alice := h.login("alice@example.com")

	rec := h.do(http.MethodPost, "/api/mails", goMail.Compose{Subject: "x", Message: "y"}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, errorBody(t, rec))

	rec = h.do(http.MethodPost, "/api/mails", `{"to": "not-a-list"}`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, rec))
}

func TestBccHiddenFromRecipients(t *testing.T) {
	h := newHarness(t)
	h.signup("Alice", "Smith", "alice@example.com")
	h.signup("Bob", "Jones", "bob@example.com")
	h.signup("Carol", "White", "carol@example.com")
	alice := h.login("alice@example.com")
	bob := h.login("bob@example.com")
	carol := h.login("carol@example.com")

	sent := h.send(alice, goMail.Compose{
		To:      []string{"bob@example.com"},
		Bcc:     []string{"carol@example.com"},
		Subject: "Secret",
		Message: "Carol is watching",
	})

	for _, c := range []*http.Cookie{bob, carol} {
		rec := h.do(http.MethodGet, "/api/mails/"+sent.Email.ID, nil, c)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"bcc"`)
	}

	rec := h.do(http.MethodGet, "/api/mails/"+sent.Email.ID, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var msg goMail.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, []string{"carol@example.com"}, msg.Bcc)
}

func TestMessageNotInMailbox(t *testing.T) {
	h := newHarness(t)
	h.signup("Alice", "Smith", "alice@example.com")
	h.signup("Bob", "Jones", "bob@example.com")
	h.signup("Eve", "Black", "eve@example.com")
	alice := h.login("alice@example.com")
	eve := h.login("eve@example.com")

	sent := h.send(alice, goMail.Compose{To: []string{"bob@example.com"}, Subject: "Hi", Message: "Private"})

	rec := h.do(http.MethodGet, "/api/mails/"+sent.Email.ID, nil, eve)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Email not found", errorBody(t, rec))

	rec = h.do(http.MethodGet, "/api/mails/does-not-exist", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.signup("Alice", "Smith", "alice@example.com")
	h.signup("Bob", "Jones", "bob@example.com")
	alice := h.login("alice@example.com")
	bob := h.login("bob@example.com")

	h.send(alice, goMail.Compose{To: []string{"bob@example.com"}, Subject: "One", Message: "first"})
	h.send(alice, goMail.Compose{To: []string{"bob@example.com"}, Subject: "Two", Message: "second"})

	rec := h.do(http.MethodGet, "/api/mails/export", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/mbox", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("X-Message-Count"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "From "))
	assert.Contains(t, rec.Body.String(), "Subject: One")

	rec = h.do(http.MethodGet, "/api/mails/export?status=sent", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Message-Count"))

	rec = h.do(http.MethodGet, "/api/mails/export?charset=klingon", nil, bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown charset", errorBody(t, rec))

	rec = h.do(http.MethodGet, "/api/mails/export?status=starred", nil, bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
