package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/advconfig/advconfig"
	"github.com/eugenenazirov/advconfig/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes a managed config file over HTTP.
type Handler struct {
	storage storage.Storage

	clock func() time.Time

	mu         sync.RWMutex
	reloadedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler serving store.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.reloadedAt = h.clock()
	return h
}

// MarkReloaded records a reload triggered outside the API, e.g. by the file watcher.
func (h *Handler) MarkReloaded() {
	h.mu.Lock()
	h.reloadedAt = h.clock()
	h.mu.Unlock()
}

func (h *Handler) currentReloadedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reloadedAt
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	values, err := h.storage.Values()
	if err != nil {
		writeStorageError(w, err)
		return
	}

	resp := configResponse{
		File:       h.storage.Path(),
		Values:     values,
		ReloadedAt: h.currentReloadedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetValue(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	value, ok, err := h.storage.Value(path)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Not found", "no value stored at "+path)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Path: path, Value: value})
}

func (h *Handler) handlePutValue(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	value, ok := req["value"]
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request", `payload must contain a "value" field`)
		return
	}

	if err := h.storage.SetValue(path, value); err != nil {
		writeStorageError(w, err)
		return
	}
	h.MarkReloaded()

	message := "Value updated successfully"
	if value == nil {
		message = "Value removed successfully"
	}
	writeJSON(w, http.StatusOK, valueResponse{Path: path, Value: value, Message: message})
}

func (h *Handler) handleReload(w http.ResponseWriter, _ *http.Request) {
	report, err := h.storage.Reload()
	if err != nil {
		var fieldErr *advconfig.FieldError
		if errors.As(err, &fieldErr) {
			writeError(w, http.StatusUnprocessableEntity, "Reload failed", err.Error(), "fix the value at "+fieldErr.Path+" and reload again")
			return
		}
		writeInternalError(w, err)
		return
	}
	h.MarkReloaded()

	writeJSON(w, http.StatusOK, reloadResponse{
		Report:     report,
		ReloadedAt: h.currentReloadedAt(),
	})
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type configResponse struct {
	File       string         `json:"file"`
	Values     map[string]any `json:"values"`
	ReloadedAt time.Time      `json:"reloadedAt"`
}

type valueResponse struct {
	Path    string `json:"path"`
	Value   any    `json:"value"`
	Message string `json:"message,omitempty"`
}

type reloadResponse struct {
	Report     advconfig.Report `json:"report"`
	ReloadedAt time.Time        `json:"reloadedAt"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, "Invalid path", err.Error())
	case errors.Is(err, storage.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "Config not loaded", err.Error(), "POST /api/reload once the file is valid")
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
