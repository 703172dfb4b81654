package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"telecom-bundle-chat/internal/models"
	"telecom-bundle-chat/internal/service"
	"telecom-bundle-chat/internal/validation"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "telecom-bundle-chat"

// UsageMessage is returned by the root endpoint.
const UsageMessage = `Send POST /chat with JSON {"phone": ..., "message": ..., "metadata": {...}}`

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, models.StatusResponse{Status: "ok", Message: UsageMessage})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Service: ServiceName})
}

// Chat handles POST /chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var payload models.ChatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			h.respondError(w, http.StatusUnprocessableEntity, "request body is required")
		case errors.As(err, &maxErr):
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			h.respondError(w, http.StatusUnprocessableEntity, "invalid JSON in request body")
		}
		return
	}

	validation.SanitizeChatPayload(&payload)
	if err := validation.ValidateChatPayload(payload, h.service.RequiresPhone()); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := h.service.Chat(r.Context(), payload.Request())
	if err != nil {
		var upErr *service.UpstreamError
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, "User not found")
		case errors.As(err, &upErr):
			h.respondError(w, http.StatusInternalServerError, upErr.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Detail: message})
}
