package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	goMail "github.com/MrEthical07/goMail"
)

type sendResponse struct {
	Success     bool           `json:"success"`
	Email       goMail.Message `json:"email"`
	Undelivered []string       `json:"undelivered"`
}

type markReadRequest struct {
	EmailID string `json:"emailId"`
}

func (s *server) handleMailbox(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.Mailbox(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err, msgInternalMail)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleSend(w http.ResponseWriter, r *http.Request) {
	var in goMail.Compose
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := s.engine.Send(r.Context(), identity(r).UserID, in)
	if err != nil {
		s.fail(w, r, err, msgInternalMail)
		return
	}

	undelivered := res.Undelivered
	if undelivered == nil {
		undelivered = []string{}
	}
	writeJSON(w, http.StatusCreated, sendResponse{Success: true, Email: res.Message, Undelivered: undelivered})
}

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.engine.Message(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, goMail.ErrMessageNotFound) {
			writeError(w, http.StatusNotFound, msgMessageNotFound)
			return
		}
		s.fail(w, r, err, msgInternalMail)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var in markReadRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	if err := s.engine.MarkRead(r.Context(), identity(r).UserID, in.EmailID); err != nil {
		if errors.Is(err, goMail.ErrMessageNotInInbox) {
			writeError(w, http.StatusNotFound, msgNotInInbox)
			return
		}
		s.fail(w, r, err, msgInternalMail)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Email marked as read and moved to opened emails",
	})
}

// handleExport buffers the mbox so a failure can still answer with JSON.
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts := goMail.ExportOptions{Charset: r.URL.Query().Get("charset")}
	for _, part := range strings.Split(r.URL.Query().Get("status"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			opts.Statuses = append(opts.Statuses, goMail.Status(part))
		}
	}

	var buf bytes.Buffer
	n, err := s.engine.Export(r.Context(), identity(r).UserID, &buf, opts)
	if err != nil {
		s.fail(w, r, err, msgInternalMail)
		return
	}

	w.Header().Set("Content-Type", "application/mbox")
	w.Header().Set("Content-Disposition", `attachment; filename="gomail.mbox"`)
	w.Header().Set("X-Message-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
