package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestResponseWriterCapturesStatusAndBytes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	rw.WriteHeader(http.StatusTeapot)
	_, _ = rw.Write([]byte("short and stout"))

	if rw.statusCode != http.StatusTeapot || rw.bytes != 15 {
		t.Fatalf("status=%d bytes=%d", rw.statusCode, rw.bytes)
	}
}

func TestLoggerWritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["path"] != "/missing" || entry["status"] != float64(404) || entry["level"] != "warn" {
		t.Fatalf("log entry = %v", entry)
	}
}

func TestTelemetryPassesThrough(t *testing.T) {
	t.Parallel()

	called := false
	h := Telemetry(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))

	if !called || rec.Code != http.StatusAccepted {
		t.Fatalf("called=%v code=%d", called, rec.Code)
	}
}
