// Package memsync is an in-process sync engine. A Hub holds one message
// collection and any number of rooms; every peer talks to it through its own
// Conn, which exposes the same consumer surface as livechat.Client and
// livechat.Room.
//
// Deliveries to a Conn's listeners run on that Conn's own goroutine, in the
// order the hub produced them, so listeners never run under hub locks. A
// listener must not call Sync or Close on its own Conn.
package memsync

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// DefaultTypingTimeout is how long a peer stays in the active typists list
// after its last keystroke.
const DefaultTypingTimeout = 5 * time.Second

// Option configures a Hub.
type Option func(*Hub)

// WithTypingTimeout overrides DefaultTypingTimeout.
func WithTypingTimeout(d time.Duration) Option {
	return func(h *Hub) { h.typingTimeout = d }
}

// WithLogger sets the hub logger.
func WithLogger(l livechat.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// Hub is the shared server-side state.
type Hub struct {
	appID         string
	typingTimeout time.Duration
	logger        livechat.Logger

	mu       sync.Mutex
	messages []livechat.Message
	conns    map[string]*Conn
	rooms    map[string]*hubRoom
	failNext error
}

// NewHub creates an empty hub that accepts connections for appID.
func NewHub(appID string, opts ...Option) *Hub {
	h := &Hub{
		appID:         appID,
		typingTimeout: DefaultTypingTimeout,
		logger:        livechat.NopLogger{},
		conns:         make(map[string]*Conn),
		rooms:         make(map[string]*hubRoom),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect opens a peer connection. user is the account the provider
// resolves for this peer; nil means signed out. A wrong appID makes every
// query and the auth state fail with a configuration error.
func (h *Hub) Connect(appID string, user *livechat.User) *Conn {
	c := &Conn{
		hub:       h,
		key:       uuid.NewString(),
		box:       newMailbox(),
		auth:      livechat.AuthState{IsLoading: true},
		authSubs:  make(map[uint64]func(livechat.AuthState)),
		querySubs: make(map[uint64]func(livechat.MessagesResult)),
		rooms:     make(map[string]*Room),
	}
	if appID != h.appID {
		c.appErr = livechat.NewError(livechat.ErrorInvalidAppID, "unknown app id "+appID)
	}
	go c.box.run()

	h.mu.Lock()
	h.conns[c.key] = c
	h.mu.Unlock()

	switch {
	case c.appErr != nil:
		c.setAuth(livechat.AuthState{Err: c.appErr})
	default:
		c.setAuth(livechat.AuthState{User: user})
	}
	return c
}

// FailNextTransact makes the next transaction from any peer fail with err
// without applying any of its ops.
func (h *Hub) FailNextTransact(err error) {
	h.mu.Lock()
	h.failNext = err
	h.mu.Unlock()
}

// Messages returns the authoritative collection.
func (h *Hub) Messages() []livechat.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]livechat.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *Hub) disconnect(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.key)
	for _, r := range h.rooms {
		r.remove(c.key)
	}
	h.mu.Unlock()
}

// mailbox runs posted functions in order on one goroutine.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (m *mailbox) post(fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) run() {
	defer close(m.exited)
	for {
		select {
		case <-m.wake:
			m.drain()
		case <-m.done:
			return
		}
	}
}

func (m *mailbox) drain() {
	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()
		if closed || len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// sync blocks until everything posted before the call has run.
func (m *mailbox) sync() {
	flushed := make(chan struct{})
	m.post(func() { close(flushed) })
	select {
	case <-flushed:
	case <-m.exited:
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
	close(m.done)
	<-m.exited
}
