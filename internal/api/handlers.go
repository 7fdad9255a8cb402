package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"burn.note/config"
	"burn.note/internal/crypto"
	"burn.note/internal/message"
	"burn.note/web"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *message.Service
	config  *config.Config
}

func NewHandler(svc *message.Service, cfg *config.Config) *Handler {
	return &Handler{
		service: svc,
		config:  cfg,
	}
}

type CreateRequest struct {
	Message       string `json:"message"`
	Password      string `json:"password,omitempty"`
	AllowResponse bool   `json:"allow_response,omitempty"`
}

type CreateResponse struct {
	MessageID  string    `json:"message_id"`
	MessageURL string    `json:"message_url"`
	AdminURL   string    `json:"admin_url"`
	AdminToken string    `json:"admin_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type ReadResponse struct {
	MessageID     string `json:"message_id"`
	Content       string `json:"content"`
	IsEncrypted   bool   `json:"is_encrypted"`
	AllowResponse bool   `json:"allow_response"`
}

type EditRequest struct {
	AdminToken string `json:"admin_token"`
	Message    string `json:"message"`
	Password   string `json:"password,omitempty"`
}

type RotateRequest struct {
	AdminToken      string `json:"admin_token"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password,omitempty"`
}

type DestroyRequest struct {
	AdminToken string `json:"admin_token"`
}

type SubmitResponseRequest struct {
	Content string `json:"content"`
}

type SubmitResponseResponse struct {
	ResponseID string `json:"response_id"`
}

type ResponseView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ListResponsesResponse struct {
	Responses []ResponseView `json:"responses"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), req.Message, req.Password, req.AllowResponse)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	base := h.config.Server.BaseURL
	h.json(w, http.StatusCreated, CreateResponse{
		MessageID:  created.ID,
		MessageURL: base + "/m/" + created.ID,
		AdminURL:   base + "/admin/" + created.ID + "?token=" + created.AdminToken,
		AdminToken: created.AdminToken,
		ExpiresAt:  created.ExpiresAt,
	})
}

func (h *Handler) ReadMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.Read(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, ReadResponse{
		MessageID:     view.ID,
		Content:       view.Content,
		IsEncrypted:   view.IsEncrypted,
		AllowResponse: view.AllowResponse,
	})
}

func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EditRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Edit(r.Context(), id, req.AdminToken, req.Message, req.Password); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.json(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) RotatePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RotateRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.RotatePassword(r.Context(), id, req.AdminToken, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.json(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) DestroyMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DestroyRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Destroy(r.Context(), id, req.AdminToken); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.json(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SubmitResponseRequest
	if !h.decode(w, r, &req) {
		return
	}

	responseID, err := h.service.SubmitResponse(r.Context(), id, req.Content)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.json(w, http.StatusCreated, SubmitResponseResponse{ResponseID: responseID})
}

func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token := r.URL.Query().Get("token")

	if token == "" {
		h.error(w, http.StatusUnauthorized, "admin token required")
		return
	}

	responses, err := h.service.ListResponses(r.Context(), id, token)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	views := make([]ResponseView, 0, len(responses))
	for _, resp := range responses {
		views = append(views, ResponseView{
			ID:        resp.ID,
			Content:   resp.Content,
			CreatedAt: resp.CreatedAt,
		})
	}
	h.json(w, http.StatusOK, ListResponsesResponse{Responses: views})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "index.html")
}

func (h *Handler) MessagePage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "message.html")
}

func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "admin.html")
}

func (h *Handler) serveFile(w http.ResponseWriter, filename string) {
	content, err := web.GetFile(filename)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

// decode parses a JSON body, capping it slightly above the configured
// content ceiling so the service's own size check stays authoritative.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.config.Messages.MaxSize)+64*1024)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, msg string) {
	h.json(w, status, ErrorResponse{Error: msg})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, message.ErrValidation):
		h.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, crypto.ErrDecryptionFailed):
		h.error(w, http.StatusBadRequest, "decryption failed")
	case errors.Is(err, message.ErrNotFound):
		h.error(w, http.StatusNotFound, "message not found")
	case errors.Is(err, message.ErrUnauthorized):
		h.error(w, http.StatusForbidden, "invalid admin token")
	case errors.Is(err, message.ErrForbidden):
		h.error(w, http.StatusForbidden, "responses are not enabled for this message")
	default:
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}
