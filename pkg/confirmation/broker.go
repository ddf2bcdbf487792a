// Package confirmation implements the registry of pending tool-approval
// requests. The conversation loop creates an entry and suspends on its
// channel; the approval HTTP endpoint resolves the entry by id. Entries are
// scoped to the owning request and abandoned with it, so a closed connection
// implicitly denies whatever was pending.
package confirmation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/threadkit/threadkit/pkg/tools"
)

// Scope is how long an approval remains valid.
type Scope string

const (
	// ScopeOnce approves a single tool call.
	ScopeOnce Scope = "once"
	// ScopeThread approves the tool for the remainder of the thread.
	ScopeThread Scope = "thread"
	// ScopeAlways records the tool in the user's always-allow preferences.
	ScopeAlways Scope = "always"
)

func (s Scope) Valid() bool {
	return s == ScopeOnce || s == ScopeThread || s == ScopeAlways
}

// Request describes a pending confirmation. RequestID identifies the owning
// HTTP request/visitor so the resolve endpoint can verify ownership; the
// broker itself does not authorize.
type Request struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id"`
	ThreadID  string         `json:"thread_id"`
	UserID    string         `json:"user_id"`
	ToolCall  tools.ToolCall `json:"tool_call"`
	CreatedAt time.Time      `json:"created_at"`
}

// Resolution is the user's answer to a pending confirmation.
type Resolution struct {
	Approved bool
	Scope    Scope
}

type entry struct {
	req      Request
	ch       chan Resolution
	resolved bool
}

// Broker is the in-process registry of pending confirmations. It is safe for
// concurrent use; each entry is resolved at most once.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*entry
}

func NewBroker() *Broker {
	return &Broker{pending: make(map[string]*entry)}
}

// Create registers a pending confirmation and returns its id plus the
// channel the owning loop suspends on. The channel receives exactly one
// resolution and is closed afterwards.
func (b *Broker) Create(req Request) (string, <-chan Resolution) {
	id := uuid.New().String()
	req.ID = id
	req.CreatedAt = time.Now()

	e := &entry{
		req: req,
		ch:  make(chan Resolution, 1),
	}

	b.mu.Lock()
	b.pending[id] = e
	b.mu.Unlock()

	return id, e.ch
}

// Resolve delivers the user's answer to the loop suspended on id. It returns
// false if the id is unknown or already resolved, which makes duplicate
// client retries harmless.
func (b *Broker) Resolve(id string, approved bool, scope Scope) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.pending[id]
	if !ok || e.resolved {
		return false
	}
	e.resolved = true

	e.ch <- Resolution{Approved: approved, Scope: scope}
	close(e.ch)
	return true
}

// Get returns the pending request for id, if any. Resolved entries remain
// visible until abandoned so the resolve endpoint can report idempotent
// duplicates distinctly from unknown ids.
func (b *Broker) Get(id string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.pending[id]
	if !ok {
		return Request{}, false
	}
	return e.req, true
}

// Abandon removes the entry for id without resolving it. The owning loop
// calls this when its request ends, whether the entry was resolved or not.
func (b *Broker) Abandon(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

// Len reports the number of registered entries.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
