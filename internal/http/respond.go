package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"carebridge/internal/apperr"
	"carebridge/internal/guard"
)

const maxBodyBytes = 1 << 20

// formDecoder is implemented by inputs that can also arrive as an HTML form.
type formDecoder interface {
	decodeForm(values url.Values)
}

// decodeBody accepts JSON, or a urlencoded/multipart form when out supports it.
func decodeBody(w http.ResponseWriter, r *http.Request, out formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return err
		}
		out.decodeForm(r.PostForm)
		return nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return err
		}
		out.decodeForm(r.PostForm)
		return nil
	default:
		return decodeJSON(r, out)
	}
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

type validationResponse struct {
	Error  string                   `json:"error"`
	Fields []apperr.ValidationError `json:"fields"`
}

// writeServiceError maps the service error taxonomy onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs apperr.ValidationErrors
	switch {
	case guard.IsLoginRequired(err):
		w.Header().Set("Location", "/login")
		writeError(w, http.StatusUnauthorized, "login_required")
	case guard.IsForbidden(err):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation_failed", Fields: verrs})
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, "email_taken")
	case errors.Is(err, apperr.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "request_not_found")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
