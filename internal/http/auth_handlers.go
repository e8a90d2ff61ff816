package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"carebridge/internal/apperr"
	"carebridge/internal/auth"
	"carebridge/internal/guard"
	"carebridge/internal/identity"
	"carebridge/internal/model"
)

type registerRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (req *registerRequest) decodeForm(values url.Values) {
	req.FirstName = values.Get("firstname")
	req.LastName = values.Get("lastname")
	req.Email = values.Get("email")
	req.Password = values.Get("password")
	req.Role = values.Get("role")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) decodeForm(values url.Values) {
	req.Email = values.Get("email")
	req.Password = values.Get("password")
}

type loginResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      model.UserSnapshot `json:"user"`
}

type meResponse struct {
	User      model.UserSnapshot `json:"user"`
	CreatedAt time.Time          `json:"createdAt"`
	ExpiresAt time.Time          `json:"sessionExpiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	id, err := s.identity.Register(r.Context(), identity.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	s.metrics.ObserveRegistration(err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.ObserveLogin(err)
		s.writeServiceError(w, r, err)
		return
	}

	sess, err := s.sessions.Start(r.Context(), user)
	if err != nil {
		s.metrics.ObserveLogin(err)
		s.writeServiceError(w, r, err)
		return
	}

	signed, err := auth.NewSessionToken(s.cfg.SessionSecret, s.cfg.SessionIssuer, sess.ExpiresAt, auth.Claims{
		SessionToken: sess.Token,
		UserID:       user.ID,
		Role:         string(user.Role),
	})
	if err != nil {
		_ = s.sessions.End(r.Context(), sess.Token)
		s.metrics.ObserveLogin(err)
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.ObserveLogin(nil)

	s.setSessionCookie(w, signed, sess.ExpiresAt)
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     signed,
		ExpiresAt: sess.ExpiresAt,
		User:      sess.User,
	})
}

// handleLogout succeeds for anonymous callers too.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFromContext(r.Context()); sess != nil {
		if err := s.sessions.End(r.Context(), sess.Token); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.logger.Info("user logged out", "user_id", sess.User.ID)
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	user, err := s.identity.User(r.Context(), sess.User.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Account removed since login.
			_ = s.sessions.End(r.Context(), sess.Token)
			s.clearSessionCookie(w)
			err = &guard.Denied{Reason: guard.ReasonLoginRequired}
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		User:      sess.User,
		CreatedAt: user.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
