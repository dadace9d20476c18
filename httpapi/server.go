package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/middleware"
	"github.com/MrEthical07/goMail/session"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

// Engine is the subset of *goMail.Engine the handlers use.
type Engine interface {
	middleware.Authenticator
	middleware.Recorder

	Signup(ctx context.Context, in goMail.SignupInput) (goMail.User, error)
	Login(ctx context.Context, email, password string) (goMail.LoginResult, error)
	Profile(ctx context.Context, userID string) (goMail.User, error)

	Send(ctx context.Context, senderID string, in goMail.Compose) (goMail.SendResult, error)
	Mailbox(ctx context.Context, userID string) (goMail.MailboxView, error)
	Message(ctx context.Context, userID, messageID string) (goMail.Message, error)
	MarkRead(ctx context.Context, userID, messageID string) error
	Export(ctx context.Context, userID string, w io.Writer, opts goMail.ExportOptions) (int, error)

	CookieConfig() session.CookieConfig
	Ping(ctx context.Context) (time.Duration, error)
}

// Options configures [New].
type Options struct {
	Logger *slog.Logger
	// StaticDir is served under /static/. Empty disables static files.
	StaticDir string
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
}

type server struct {
	engine Engine
	logger *slog.Logger
}

// New returns the complete application handler.
func New(engine Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &server{engine: engine, logger: logger}

	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequireIdentity)
	api.HandleFunc("/user/profile", s.handleProfile).Methods(http.MethodGet)
	api.HandleFunc("/mails", s.handleMailbox).Methods(http.MethodGet)
	api.HandleFunc("/mails", s.handleSend).Methods(http.MethodPost)
	api.HandleFunc("/mails/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/mails/read", s.handleMarkRead).Methods(http.MethodPatch)
	api.HandleFunc("/mails/{id}", s.handleMessage).Methods(http.MethodGet)

	s.mountPages(r, opts.StaticDir)

	var h http.Handler = r
	h = middleware.Gate(engine, middleware.GateOptions{
		Recorder: engine,
		Logger:   logger,
	})(h)
	h = limitBody(h)
	h = middleware.ClientIP(opts.TrustProxy)(h)
	h = accessLog(logger)(h)

	return h
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rtt, err := s.engine.Ping(r.Context())
	if err != nil {
		s.logger.Warn("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"redis_ms": float64(rtt.Microseconds()) / 1000,
	})
}
