// Package api exposes the todo list over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"todolist/internal/model"
	"todolist/internal/service"
)

const maxBodyBytes = 1 << 20

// ItemService is the lifecycle API the handlers drive.
type ItemService interface {
	CreateItem(ctx context.Context, input service.TodoInput) (*model.TodoItem, error)
	UpdateDescription(ctx context.Context, id uint, description string) (*model.TodoItem, error)
	MarkDone(ctx context.Context, id uint) (*model.TodoItem, error)
	MarkNotDone(ctx context.Context, id uint) (*model.TodoItem, error)
	GetItem(ctx context.Context, id uint) (*model.TodoItem, error)
	ListItems(ctx context.Context, includeAll bool) ([]model.TodoItem, error)
}

// CreateItemRequest is the payload for creating a new item.
type CreateItemRequest struct {
	Description string    `json:"description"`
	DueDatetime time.Time `json:"dueDatetime"`
}

// UpdateDescriptionRequest is the payload for changing an item's description.
type UpdateDescriptionRequest struct {
	Description string `json:"description"`
}

// ItemResponse is the wire form of a todo item.
type ItemResponse struct {
	ID               uint       `json:"id"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	CreationDatetime time.Time  `json:"creationDatetime"`
	DueDatetime      time.Time  `json:"dueDatetime"`
	DoneDatetime     *time.Time `json:"doneDatetime"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newItemResponse(item *model.TodoItem) ItemResponse {
	resp := ItemResponse{
		ID:               item.ID,
		Description:      item.Description,
		Status:           item.Status.Label(),
		CreationDatetime: item.CreationDatetime.UTC(),
		DueDatetime:      item.DueDatetime.UTC(),
	}
	if item.DoneDatetime != nil {
		done := item.DoneDatetime.UTC()
		resp.DoneDatetime = &done
	}
	return resp
}

// Handler handles HTTP requests for todo items.
type Handler struct {
	items  ItemService
	logger *log.Logger
}

// NewHandler creates a Handler with dependencies.
func NewHandler(items ItemService, logger *log.Logger) *Handler {
	return &Handler{items: items, logger: logger.WithPrefix("http")}
}

// handleCreateItem processes POST /items.
func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := h.decode(w, r, createItemValidator, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.items.CreateItem(r.Context(), service.TodoInput{
		Description: req.Description,
		DueDatetime: req.DueDatetime,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/items/%d", item.ID))
	writeJSON(w, http.StatusCreated, newItemResponse(item))
}

// handleUpdateDescription processes PUT /items/{id}/description.
func (h *Handler) handleUpdateDescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req UpdateDescriptionRequest
	if err := h.decode(w, r, updateDescriptionValidator, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.items.UpdateDescription(r.Context(), id, req.Description)
	h.writeItem(w, r, item, err)
}

// handleMarkDone processes PUT /items/{id}/done.
func (h *Handler) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.items.MarkDone(r.Context(), id)
	h.writeItem(w, r, item, err)
}

// handleMarkNotDone processes PUT /items/{id}/not-done.
func (h *Handler) handleMarkNotDone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.items.MarkNotDone(r.Context(), id)
	h.writeItem(w, r, item, err)
}

// handleGetItem processes GET /items/{id}.
func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.items.GetItem(r.Context(), id)
	h.writeItem(w, r, item, err)
}

// handleListItems processes GET /items.
func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	includeAll := false
	if raw := r.URL.Query().Get("includeAll"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, &RequestError{Path: "includeAll", Message: fmt.Sprintf("invalid boolean %q", raw)})
			return
		}
		includeAll = v
	}

	items, err := h.items.ListItems(r.Context(), includeAll)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeItem(w http.ResponseWriter, r *http.Request, item *model.TodoItem, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemResponse(item))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, schema validator, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &RequestError{Message: fmt.Sprintf("read request body: %v", err)}
	}
	return decodeValidated(body, schema, dst)
}

// writeError maps domain errors to status codes. Unexpected errors are logged
// and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *RequestError
	var valErr *service.ValidationError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPastDue):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("unexpected error", "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "unexpected server error"})
	}
}

func pathID(r *http.Request) (uint, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, &RequestError{Path: "id", Message: fmt.Sprintf("invalid item id %q", raw)}
	}
	return uint(id), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
