package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"carebridge/internal/auth"
	"carebridge/internal/guard"
	"carebridge/internal/model"
)

type sessionKey struct{}

// sessionMiddleware resolves the caller's session, if any, from the session
// cookie or a bearer token. Anonymous callers pass through with no session.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signed := s.signedToken(r)
		if signed == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := auth.ParseSessionToken(s.cfg.SessionSecret, s.cfg.SessionIssuer, signed)
		if err != nil {
			s.logger.Debug("session token rejected", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		sess, err := s.sessions.Lookup(r.Context(), claims.SessionToken)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) signedToken(r *http.Request) string {
	if cookie, err := r.Cookie(s.cfg.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func sessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey{}).(*model.Session)
	return sess
}

func (s *Server) requireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := guard.RequireAuthenticated(sessionFromContext(r.Context())); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := guard.RequireRole(sessionFromContext(r.Context()), role); err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		)
	})
}
