package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"carebridge/internal/model"
	"carebridge/internal/requests"
)

type createRequestRequest struct {
	Description string `json:"description"`
}

func (req *createRequestRequest) decodeForm(values url.Values) {
	req.Description = values.Get("description")
}

type requesterResponse struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type requestResponse struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Priority    bool               `json:"priority"`
	CreatedAt   time.Time          `json:"createdAt"`
	Requester   *requesterResponse `json:"requester,omitempty"`
}

type requestListResponse struct {
	Requests []requestResponse `json:"requests"`
}

func mapRequest(req model.Request) requestResponse {
	resp := requestResponse{
		ID:          req.ID,
		UserID:      req.UserID,
		Description: req.Description,
		Status:      string(req.Status),
		Priority:    req.Priority,
		CreatedAt:   req.CreatedAt,
	}
	if req.Requester != nil {
		resp.Requester = &requesterResponse{
			FirstName: req.Requester.FirstName,
			LastName:  req.Requester.LastName,
		}
	}
	return resp
}

func mapRequests(list []model.Request) requestListResponse {
	out := requestListResponse{Requests: make([]requestResponse, 0, len(list))}
	for _, req := range list {
		out.Requests = append(out.Requests, mapRequest(req))
	}
	return out
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req, err := s.requests.Create(r.Context(), sessionFromContext(r.Context()), requests.CreateInput{
		Description: body.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapRequest(req))
}

func (s *Server) handleListOwn(w http.ResponseWriter, r *http.Request) {
	s.writeRequestList(w, r, s.requests.ListOwn)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.writeRequestList(w, r, s.requests.Dashboard)
}

func (s *Server) handleImportant(w http.ResponseWriter, r *http.Request) {
	s.writeRequestList(w, r, s.requests.Important)
}

func (s *Server) handleFulfilled(w http.ResponseWriter, r *http.Request) {
	s.writeRequestList(w, r, s.requests.Fulfilled)
}

func (s *Server) handleForRequester(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	s.writeRequestList(w, r, func(ctx context.Context, sess *model.Session) ([]model.Request, error) {
		return s.requests.ForRequester(ctx, sess, userID)
	})
}

func (s *Server) writeRequestList(w http.ResponseWriter, r *http.Request, list func(context.Context, *model.Session) ([]model.Request, error)) {
	result, err := list(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapRequests(result))
}

func (s *Server) handleFulfill(w http.ResponseWriter, r *http.Request) {
	s.mutateRequest(w, r, s.requests.SetFulfilled)
}

func (s *Server) handleMarkImportant(w http.ResponseWriter, r *http.Request) {
	s.mutateRequest(w, r, s.requests.SetImportant)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mutateRequest(w, r, s.requests.Delete)
}

func (s *Server) mutateRequest(w http.ResponseWriter, r *http.Request, mutate func(context.Context, *model.Session, string) error) {
	id := chi.URLParam(r, "requestId")
	if err := mutate(r.Context(), sessionFromContext(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "id": id})
}
