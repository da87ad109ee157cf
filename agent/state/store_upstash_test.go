package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "ivabot:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "ivabot:session:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func newTestUpstash(t *testing.T, handler http.HandlerFunc, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, opts...)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreSaveSendsSetWithTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	var gotAuth string
	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}, WithKeyPrefix("test:"), WithTTL(90*time.Second))

	session, err := NewSession("session-1", 5, time.Now())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	session.History().Append(UserEntry("hello"))

	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if gotAuth != "Bearer token" {
		t.Fatalf("Authorization = %q, want Bearer token", gotAuth)
	}
	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "test:session-1" {
		t.Fatalf("command = %v %v, want SET test:session-1", gotCommand[0], gotCommand[1])
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(90) {
		t.Fatalf("ttl args = %v %v, want EX 90", gotCommand[3], gotCommand[4])
	}
}

func TestUpstashRedisStoreLoadRestoresHistory(t *testing.T) {
	t.Parallel()

	seed, err := NewSession("session-2", 3, time.Now())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	seed.History().Append(UserEntry("hi"))
	seed.History().Append(AssistantEntry("hello"))

	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	})

	got, err := store.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ID != "session-2" {
		t.Fatalf("Load().ID = %q, want session-2", got.ID)
	}
	if got.History().Cap() != 3 {
		t.Fatalf("Cap() = %d, want 3", got.History().Cap())
	}
	entries := got.History().Snapshot()
	if len(entries) != 2 || entries[1].Role != RoleAssistant || entries[1].Content != "hello" {
		t.Fatalf("entries = %#v", entries)
	}
	if gotCommand[0] != "GET" || gotCommand[1] != "ivabot:session:session-2" {
		t.Fatalf("command = %#v", gotCommand)
	}
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	})

	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGTYPE"}`)
	})

	err := store.Delete(context.Background(), "session-3")
	if err == nil || err.Error() != "WRONGTYPE" {
		t.Fatalf("Delete() error = %v, want WRONGTYPE", err)
	}
}

func TestNewUpstashRedisStoreRejectsNegativeTTL(t *testing.T) {
	t.Parallel()

	_, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "http://localhost", Token: "t"}, WithTTL(-time.Second))
	if err == nil {
		t.Fatal("NewUpstashRedisStore() error = nil, want ttl error")
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds(1.5s) = %d, want 2", got)
	}
	if got := ttlSeconds(time.Millisecond); got != 1 {
		t.Fatalf("ttlSeconds(1ms) = %d, want 1", got)
	}
}
