package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

type fakeChat struct {
	reply     contractx.Reply
	err       error
	sessionID string
	text      string
	history   map[string][]statex.Entry
	resets    []string
}

func (f *fakeChat) HandleMessage(_ context.Context, sessionID, text string) (contractx.Reply, error) {
	f.sessionID = sessionID
	f.text = text
	return f.reply, f.err
}

func (f *fakeChat) History(_ context.Context, sessionID string) ([]statex.Entry, error) {
	entries, ok := f.history[sessionID]
	if !ok {
		return nil, statex.ErrStateNotFound
	}
	return entries, nil
}

func (f *fakeChat) ResetSession(_ context.Context, sessionID string) error {
	f.resets = append(f.resets, sessionID)
	return nil
}

type fakeProducts struct {
	product *contractx.ProductRecord
}

func (f *fakeProducts) Search(context.Context, string) (*contractx.ProductRecord, error) {
	if f.product == nil {
		return nil, contractx.ErrProductNotFound
	}
	return f.product, nil
}

func newServer(chat *fakeChat, products *fakeProducts) http.Handler {
	return NewRouter(NewHandlers(chat, products))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootIsOnline(t *testing.T) {
	t.Parallel()

	rec := do(t, newServer(&fakeChat{}, &fakeProducts{}), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"message":"Chatbot API is online"}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestChatSuccess(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: contractx.Reply{Type: contractx.ReplyTypeLLMResponse, Content: "Hi there!", Tool: contractx.ToolNone}}
	rec := do(t, newServer(chat, &fakeProducts{}), http.MethodPost, "/api/v1/chat",
		`{"user_input":"Hello, bot!","session_id":"test-session-123"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp != (chatResponse{Response: "Hi there!", Source: "llm_response", Tool: "none"}) {
		t.Fatalf("response = %+v", resp)
	}
	if chat.sessionID != "test-session-123" || chat.text != "Hello, bot!" {
		t.Fatalf("service got session=%q text=%q", chat.sessionID, chat.text)
	}
}

func TestChatDefaultsSessionID(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: contractx.Reply{Type: contractx.ReplyTypeLLMResponse, Tool: contractx.ToolNone}}
	rec := do(t, newServer(chat, &fakeProducts{}), http.MethodPost, "/api/v1/chat", `{"user_input":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if chat.sessionID != DefaultSessionID {
		t.Fatalf("session = %q, want %q", chat.sessionID, DefaultSessionID)
	}
}

func TestChatMissingUserInput(t *testing.T) {
	t.Parallel()

	rec := do(t, newServer(&fakeChat{}, &fakeProducts{}), http.MethodPost, "/api/v1/chat", `{"session_id":"only-session"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Detail []fieldError `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Detail) != 1 || strings.Join(body.Detail[0].Loc, ".") != "body.user_input" {
		t.Fatalf("detail = %+v", body.Detail)
	}
}

func TestChatMalformedJSON(t *testing.T) {
	t.Parallel()

	rec := do(t, newServer(&fakeChat{}, &fakeProducts{}), http.MethodPost, "/api/v1/chat", `{"user_input":`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatWrongMethod(t *testing.T) {
	t.Parallel()

	rec := do(t, newServer(&fakeChat{}, &fakeProducts{}), http.MethodGet, "/api/v1/chat", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatServiceErrorIs500(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.Join(contractx.ErrModelInvoke, errors.New("upstream down"))}
	rec := do(t, newServer(chat, &fakeProducts{}), http.MethodPost, "/api/v1/chat", `{"user_input":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if !strings.Contains(body["detail"], "upstream down") {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func TestChatValidationErrorIs422(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: contractx.ErrValidation}
	rec := do(t, newServer(chat, &fakeProducts{}), http.MethodPost, "/api/v1/chat", `{"user_input":"  "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatInternalErrorIs500(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: fmt.Errorf("%w: no handler produced a reply", contractx.ErrInternal)}
	rec := do(t, newServer(chat, &fakeProducts{}), http.MethodPost, "/api/v1/chat", `{"user_input":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestProductLookup(t *testing.T) {
	t.Parallel()

	products := &fakeProducts{product: &contractx.ProductRecord{Name: "Industrial Pump PX-500", Price: "$1,200", SpecsURL: "https://yourserver.com/docs/px500_specs.pdf"}}
	rec := do(t, newServer(&fakeChat{}, products), http.MethodPost, "/api/v1/products/lookup", `{"user_input":"hydraulic pump"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got contractx.ProductRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Industrial Pump PX-500" || got.SpecsURL == "" {
		t.Fatalf("product = %+v", got)
	}
}

func TestProductLookupNotFound(t *testing.T) {
	t.Parallel()

	rec := do(t, newServer(&fakeChat{}, &fakeProducts{}), http.MethodPost, "/api/v1/products/lookup", `{"user_input":"unicorn"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"detail":"product not found"}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{history: map[string][]statex.Entry{
		"alice": {statex.UserEntry("hi"), statex.AssistantEntry("hello")},
	}}
	srv := newServer(chat, &fakeProducts{})

	rec := do(t, srv, http.MethodGet, "/api/v1/sessions/alice/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var body struct {
		SessionID string         `json:"session_id"`
		History   []historyEntry `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SessionID != "alice" || len(body.History) != 2 || body.History[1].Role != "assistant" {
		t.Fatalf("history = %+v", body)
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/sessions/ghost/history", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/v1/sessions/alice", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if len(chat.resets) != 1 || chat.resets[0] != "alice" {
		t.Fatalf("resets = %v", chat.resets)
	}
}
