package httpapi

import (
	"errors"
	"net/http"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Message string      `json:"message"`
	User    goMail.User `json:"user"`
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in goMail.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := s.engine.Signup(r.Context(), in)
	if err != nil {
		if errors.Is(err, goMail.ErrAccountExists) {
			writeError(w, http.StatusBadRequest, msgEmailInUse)
			return
		}
		s.fail(w, r, err, msgInternalAuth)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Message: "User created successfully", User: user})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := s.engine.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, goMail.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, msgBadCredentials)
			return
		}
		s.fail(w, r, err, msgInternalAuth)
		return
	}

	session.SetCookie(w, res.Token, s.engine.CookieConfig())
	writeJSON(w, http.StatusOK, userResponse{Message: "Login successful", User: res.User})
}

// handleLogout drops the cookie. Issued tokens stay valid until they expire.
func (s *server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	session.ClearCookie(w, s.engine.CookieConfig())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.Profile(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err, msgInternalMail)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
