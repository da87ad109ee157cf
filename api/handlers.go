package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

const DefaultSessionID = "default_session"

// ChatService is the dialogue surface the HTTP layer needs.
type ChatService interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Reply, error)
	History(ctx context.Context, sessionID string) ([]statex.Entry, error)
	ResetSession(ctx context.Context, sessionID string) error
}

type Handlers struct {
	chat     ChatService
	products contractx.ProductSearcher
}

func NewHandlers(chat ChatService, products contractx.ProductSearcher) *Handlers {
	return &Handlers{chat: chat, products: products}
}

type chatRequest struct {
	UserInput *string `json:"user_input"`
	SessionID string  `json:"session_id"`
}

type chatResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
	Tool     string `json:"tool"`
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Chatbot API is online"})
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserInput == nil {
		respondFieldError(w, "user_input")
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	reply, err := h.chat.HandleMessage(r.Context(), sessionID, *req.UserInput)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{
		Response: reply.Content,
		Source:   string(reply.Type),
		Tool:     reply.Tool,
	})
}

func (h *Handlers) LookupProduct(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserInput == nil {
		respondFieldError(w, "user_input")
		return
	}

	product, err := h.products.Search(r.Context(), *req.UserInput)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) SessionHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.chat.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{Role: string(e.Role), Content: e.Content})
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": chi.URLParam(r, "sessionID"), "history": out})
}

func (h *Handlers) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.ResetSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, "Not Found")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{
			"detail": {{Loc: []string{"body"}, Msg: "JSON decode error: " + err.Error(), Type: "json_invalid"}},
		})
		return false
	}
	return true
}

func respondFieldError(w http.ResponseWriter, field string) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{
		"detail": {{Loc: []string{"body", field}, Msg: "Field required", Type: "missing"}},
	})
}

// respondServiceError maps sentinel errors to status codes. Anything
// unrecognised is a 500 carrying the error text.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, statex.ErrStateNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, statex.ErrInvalidSession), errors.Is(err, contractx.ErrValidation):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
