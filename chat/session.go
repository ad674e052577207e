package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vovakirdan/livechat-sdk-go/internal/metrics"
	"github.com/vovakirdan/livechat-sdk-go/livechat"
	"github.com/vovakirdan/livechat-sdk-go/livechat/memsync"
)

// Options configures a Session.
type Options struct {
	// Engine ports. All four are required.
	Auth     AuthProvider
	Feed     MessageFeed
	Presence PresenceChannel
	Typing   TypingChannel

	// Connect, if set, opens the engine connection before anything subscribes.
	Connect func(ctx context.Context) error

	// Handle overrides the random session handle.
	Handle string

	// ClientName and RedirectURL build the login URL.
	ClientName  string
	RedirectURL string

	Logger     livechat.Logger
	Registerer prometheus.Registerer

	// Now and NewID default to time.Now and NewMessageID.
	Now   func() time.Time
	NewID func() string
}

// ClientOptions wires a network client into Options. The presence room and
// the composer's typing indicator are taken from c.
func ClientOptions(c *livechat.Client) Options {
	room := c.Room(PresenceRoomType, PresenceRoomID)
	return Options{
		Auth:     c,
		Feed:     c,
		Presence: room,
		Typing:   room.TypingIndicator(TypingInput),
		Connect:  c.Connect,
	}
}

// MemoryOptions wires an in-process connection into Options.
func MemoryOptions(c *memsync.Conn) Options {
	room := c.Room(PresenceRoomType, PresenceRoomID)
	return Options{
		Auth:     c,
		Feed:     c,
		Presence: room,
		Typing:   room.TypingIndicator(TypingInput),
	}
}

type deps struct {
	logger  livechat.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Session is the process-scoped context of one chat client.
type Session struct {
	Identity Identity
	Gate     *Gate
	Store    *MessageStore
	Presence *PresencePublisher
	Typing   *TypingAggregator

	logger livechat.Logger
}

// NewSession connects the engine and builds the session components in
// dependency order: gate, identity, store, presence, typing.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Auth == nil || opts.Feed == nil || opts.Presence == nil || opts.Typing == nil {
		return nil, livechat.NewError(livechat.ErrorInvalidConfig, "session needs auth, feed, presence and typing ports")
	}
	d := deps{
		logger:  opts.Logger,
		metrics: metrics.New(opts.Registerer),
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if d.logger == nil {
		d.logger = livechat.NopLogger{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = NewMessageID
	}

	if opts.Connect != nil {
		if err := opts.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}

	s := &Session{logger: d.logger}
	s.Gate = newGate(opts.Auth, opts.ClientName, opts.RedirectURL, d.logger)
	s.Identity = NewIdentity(opts.Handle)
	s.Store = newMessageStore(opts.Feed, d)
	s.Presence = newPresencePublisher(opts.Presence, s.Identity, d)
	s.Typing = newTypingAggregator(opts.Typing, d)

	d.logger.Info("session started", map[string]any{"handle": s.Identity.Handle()})
	return s, nil
}

// Close releases every subscription held by the session. The engine
// connection is left to its owner.
func (s *Session) Close() {
	s.Typing.Close()
	s.Presence.Close()
	s.Store.Close()
	s.Gate.Close()
	s.logger.Info("session closed", nil)
}
