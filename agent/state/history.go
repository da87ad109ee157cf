package state

import (
	"sync"

	"github.com/cloudwego/eino/schema"
)

// DefaultHistoryCapacity is the number of turns a session remembers.
const DefaultHistoryCapacity = 5

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserEntry(content string) Entry {
	return Entry{Role: RoleUser, Content: content}
}

func AssistantEntry(content string) Entry {
	return Entry{Role: RoleAssistant, Content: content}
}

// History is a bounded FIFO of dialogue entries. Appending past capacity
// evicts the oldest entry. It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{entries: make([]Entry, capacity)}
}

func (h *History) Append(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	capacity := len(h.entries)
	if h.size < capacity {
		h.entries[(h.start+h.size)%capacity] = e
		h.size++
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % capacity
}

// Snapshot returns a copy of the entries, oldest first.
func (h *History) Snapshot() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *History) Cap() int {
	return len(h.entries)
}

func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.entries)
	h.start, h.size = 0, 0
}

// ToMessages converts entries into chat messages for the generation gateway.
func ToMessages(entries []Entry) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(e.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(e.Content))
		}
	}
	return msgs
}
