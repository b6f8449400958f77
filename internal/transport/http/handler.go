package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	chatSvc     *service.ChatService
	identitySvc *service.IdentityService // nil в plain-варианте (sqlite)
}

func NewHandler(chat *service.ChatService, identity *service.IdentityService) *Handler {
	return &Handler{
		chatSvc:     chat,
		identitySvc: identity,
	}
}

func (h *Handler) HasIdentities() bool { return h.identitySvc != nil }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SubmitMessageRequest struct {
	Content        string  `json:"content"`
	Sender         string  `json:"sender"`
	Receiver       *string `json:"receiver,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

type MessageItem struct {
	ID            int64   `json:"id"`
	Content       string  `json:"content"`
	Sender        string  `json:"sender"`
	Receiver      *string `json:"receiver,omitempty"`
	SenderLabel   *string `json:"sender_label,omitempty"`
	ReceiverLabel *string `json:"receiver_label,omitempty"`
	TSUnix        int64   `json:"ts_unix,omitempty"`
}

type MessagesResponse struct {
	Messages []MessageItem `json:"messages"`
}

type CreateIdentityRequest struct {
	Label string `json:"label"`
}

type IdentityItem struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// POST /messages — тот же конвейер, что и WS submit: commit → publish.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	ev, err := h.chatSvc.Submit(r.Context(), domain.Draft{
		Content:        req.Content,
		Sender:         req.Sender,
		Receiver:       req.Receiver,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		status := http.StatusInternalServerError
		msg := "failed to persist message"
		if isSubmitInputError(err) {
			status = http.StatusBadRequest
			msg = err.Error()
		} else {
			slog.Error("handler.SubmitMessage:", slog.Any("err", err))
		}
		writeJSON(w, status, ErrorResponse{Error: msg})
		return
	}

	writeJSON(w, http.StatusCreated, eventItem(ev))
}

// GET /messages?after_id=&limit=
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	afterID, _ := strconv.ParseInt(r.URL.Query().Get("after_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := h.chatSvc.History(r.Context(), afterID, limit)
	if err != nil {
		slog.Error("handler.ListMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to read messages"})
		return
	}

	items := make([]MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, eventItem(domain.EventFromMessage(m)))
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: items})
}

// POST /identities
func (h *Handler) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req CreateIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	ident, err := h.identitySvc.Create(r.Context(), req.Label)
	switch {
	case errors.Is(err, domain.ErrEmptyLabel):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrIdentityExists):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case err != nil:
		slog.Error("handler.CreateIdentity:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to create identity"})
	default:
		writeJSON(w, http.StatusCreated, IdentityItem{
			ID:        ident.ID,
			Label:     ident.Label,
			CreatedAt: ident.CreatedAt,
		})
	}
}

// GET /identities/{id}
func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	ref, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid identity id"})
		return
	}

	ident, err := h.identitySvc.Get(r.Context(), ref)
	switch {
	case errors.Is(err, domain.ErrIdentityNotFound), errors.Is(err, domain.ErrBadIdentityRef):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: domain.ErrIdentityNotFound.Error()})
	case err != nil:
		slog.Error("handler.GetIdentity:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to get identity"})
	default:
		writeJSON(w, http.StatusOK, IdentityItem{
			ID:        ident.ID,
			Label:     ident.Label,
			CreatedAt: ident.CreatedAt,
		})
	}
}

func eventItem(ev domain.Event) MessageItem {
	return MessageItem{
		ID:            ev.ID,
		Content:       ev.Content,
		Sender:        ev.Sender,
		Receiver:      ev.Receiver,
		SenderLabel:   ev.SenderLabel,
		ReceiverLabel: ev.ReceiverLabel,
		TSUnix:        ev.TSUnix,
	}
}

func isSubmitInputError(err error) bool {
	return errors.Is(err, domain.ErrEmptyMessage) ||
		errors.Is(err, domain.ErrMessageTooLong) ||
		errors.Is(err, domain.ErrEmptySender) ||
		errors.Is(err, domain.ErrBadIdentityRef) ||
		errors.Is(err, domain.ErrIdentityNotFound)
}
