package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/session"
)

const testPassword = "correct horse battery"

type harness struct {
	t       *testing.T
	mr      *miniredis.Miniredis
	engine  *goMail.Engine
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goMail.DefaultConfig()
	cfg.Environment = goMail.EnvDevelopment
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := goMail.New().WithConfig(cfg).WithRedis(rdb).WithLogger(logger).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &harness{
		t:       t,
		mr:      mr,
		engine:  engine,
		handler: New(engine, Options{Logger: logger}),
	}
}

func (h *harness) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) signup(first, last, email string) goMail.User {
	h.t.Helper()

	rec := h.do(http.MethodPost, "/api/auth/signup", goMail.SignupInput{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  testPassword,
	}, nil)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		Message string      `json:"message"`
		User    goMail.User `json:"user"`
	}
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(h.t, "User created successfully", out.Message)
	return out.User
}

func (h *harness) login(email string) *http.Cookie {
	h.t.Helper()

	rec := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: testPassword}, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(h.t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	require.FailNow(t, "no session cookie in response", session.CookieName)
	return nil
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out["error"]
}

func TestSignupLoginProfile(t *testing.T) {
	h := newHarness(t)

	user := h.signup(" Ada ", "Lovelace", "ADA@example.com")
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, user.ID)

	rec := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Login successful"`)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.False(t, cookie.Secure, "development cookies are not Secure")

	rec = h.do(http.MethodGet, "/api/user/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, map[string]string{"id": user.ID, "name": "Ada Lovelace", "email": "ada@example.com"}, profile)
}

func TestSignupErrors(t *testing.T) {
	h := newHarness(t)
	h.signup("Ada", "Lovelace", "ada@example.com")

	rec := h.do(http.MethodPost, "/api/auth/signup", goMail.SignupInput{
		FirstName: "Other", LastName: "Person", Email: "ada@example.com", Password: testPassword,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already in use", errorBody(t, rec))

	rec = h.do(http.MethodPost, "/api/auth/signup", goMail.SignupInput{
		FirstName: "", LastName: "Person", Email: "p@example.com", Password: testPassword,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "First name is required", errorBody(t, rec))

	rec = h.do(http.MethodPost, "/api/auth/signup", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, rec))
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	h := newHarness(t)
	h.signup("Ada", "Lovelace", "ada@example.com")

	wrong := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: "nope nope nope"}, nil)
	unknown := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "nobody@example.com", Password: testPassword}, nil)

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid email or password", errorBody(t, rec))
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t)
	h.signup("Ada", "Lovelace", "ada@example.com")

	limited := false
	for i := 0; i < 10 && !limited; i++ {
		rec := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: "wrong password"}, nil)
		limited = rec.Code == http.StatusTooManyRequests
	}
	require.True(t, limited, "expected 429 after repeated failures")

	rec := h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: testPassword}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGateRedirectsProtectedRoutes(t *testing.T) {
	h := newHarness(t)

	forged := &http.Cookie{Name: session.CookieName, Value: "eyJhbGciOiJub25lIn0.eyJpZCI6ImFkbWluIn0."}

	tests := []struct {
		name   string
		method string
		path   string
		cookie *http.Cookie
	}{
		{"mailbox no cookie", http.MethodGet, "/api/mails", nil},
		{"send no cookie", http.MethodPost, "/api/mails", nil},
		{"profile forged", http.MethodGet, "/api/user/profile", forged},
		{"dashboard no cookie", http.MethodGet, "/dashboard", nil},
		{"dashboard subpage forged", http.MethodGet, "/dashboard/sent", forged},
		{"dot segment bypass", http.MethodGet, "/static/../api/mails", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(tc.method, tc.path, nil, tc.cookie)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
		})
	}
}

func TestPublicPages(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `data-view="login"`)

	rec = h.do(http.MethodGet, "/create-account", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-view="signup"`)
}

func TestPublicRoutesIgnoreInvalidSession(t *testing.T) {
	h := newHarness(t)
	h.signup("Ada", "Lovelace", "ada@example.com")

	cookies := map[string]*http.Cookie{
		"garbage": {Name: session.CookieName, Value: "garbage"},
		"forged":  {Name: session.CookieName, Value: "eyJhbGciOiJub25lIn0.eyJpZCI6ImFkbWluIn0."},
	}
	for name, cookie := range cookies {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodGet, "/", nil, cookie)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("Location"))

			rec = h.do(http.MethodGet, "/create-account", nil, cookie)
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: "wrong password"}, cookie)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid email or password", errorBody(t, rec))

			rec = h.do(http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: testPassword}, cookie)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotEmpty(t, sessionCookie(t, rec).Value)

			rec = h.do(http.MethodPost, "/api/auth/logout", nil, cookie)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	counters := h.engine.MetricsSnapshot().Counters
	assert.Zero(t, counters[goMail.MetricGateDeniedInvalid])
	assert.Zero(t, counters[goMail.MetricGateDeniedExpired])
	assert.Zero(t, counters[goMail.MetricGateDeniedMissing])
}

func TestDashboardWithSession(t *testing.T) {
	h := newHarness(t)
	h.signup("Ada", "Lovelace", "ada@example.com")
	cookie := h.login("ada@example.com")

	rec := h.do(http.MethodGet, "/dashboard/compose", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-view="compose"`)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestBodyTooLarge(t *testing.T) {
	h := newHarness(t)

	big := `{"firstName":"` + strings.Repeat("a", MaxBodyBytes+1) + `"}`
	rec := h.do(http.MethodPost, "/api/auth/signup", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	h.mr.Close()
	rec = h.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
