package livechat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/vovakirdan/livechat-sdk-go/livechat/internal"
	"github.com/vovakirdan/livechat-sdk-go/livechat/rest"
)

// Client is a connection to the sync engine. It owns the live queries, the
// rooms and the auth state of one process.
type Client struct {
	cfg        Config
	logger     Logger
	conn       *internal.Conn
	writeCh    chan Inbound
	dispatcher Dispatcher
	api        *rest.Client

	seq atomic.Uint64
	wg  sync.WaitGroup

	mu       sync.Mutex
	state    ConnectionState
	cancel   context.CancelFunc
	runDone  <-chan struct{}
	auth     AuthState
	authSubs map[uint64]func(AuthState)
	queries  map[string]*query
	rooms    map[string]*Room
	onState  func(StateEvent)
	onError  func(error)
}

const userAgent = "livechat-sdk-go"

type query struct {
	collection string
	fn         func(MessagesResult)
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
// Set a timeout to 0 to disable it.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:      cfg,
		logger:   NopLogger{},
		writeCh:  make(chan Inbound, 64),
		auth:     AuthState{IsLoading: true},
		authSubs: make(map[uint64]func(AuthState)),
		queries:  make(map[string]*query),
		rooms:    make(map[string]*Room),
	}
	if cfg.APIURL != "" {
		c.api = rest.NewClient(cfg.APIURL, cfg.AppID)
		c.api.SetToken(cfg.Token)
	}
	c.dispatcher.SetOnAuth(c.handleAuth)
	c.dispatcher.SetOnSnapshot(c.handleSnapshot)
	c.dispatcher.SetOnPeers(c.handlePeers)
	c.dispatcher.SetOnTyping(c.handleTyping)
	c.dispatcher.SetOnError(c.handleError)
	return c
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// OnStateChanged registers callback for connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnError registers callback for errors that are not tied to a query or to auth.
func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the server, sends hello, starts internal loops and replays
// queries and rooms registered before the connection was up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state.busy() {
		c.mu.Unlock()
		return errors.New("already connected")
	}
	c.mu.Unlock()

	if err := c.cfg.Validate(); err != nil {
		c.setState(StateError, err)
		return err
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		err = WrapError(ErrorInvalidConfig, "parse URL", err)
		c.setState(StateError, err)
		return err
	}
	c.setState(StateConnecting, nil)

	conn, err := internal.Dial(ctx, u.String(), internal.DialOptions{
		AppID:            c.cfg.AppID,
		UserAgent:        userAgent,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		ReadTimeout:      c.cfg.ReadTimeout,
		WriteTimeout:     c.cfg.WriteTimeout,
	})
	if err != nil {
		err = WrapError(ErrorConnection, "dial", err)
		c.setState(StateError, err)
		return err
	}

	hello := Inbound{
		Type: inboundHello,
		Data: HelloPayload{
			Protocol: ProtocolVersion,
			AppID:    c.cfg.AppID,
			Token:    c.token(),
		},
	}
	if err := conn.Write(ctx, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		err = WrapError(ErrorConnection, "hello", err)
		c.setState(StateError, err)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.runDone = runCtx.Done()
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readLoop(runCtx, cancel)
	go c.writeLoop(runCtx, cancel)
	c.setState(StateConnected, nil)

	c.replay(ctx)
	return nil
}

// replay re-sends subscriptions and room joins that were registered while
// the client was offline.
func (c *Client) replay(ctx context.Context) {
	c.mu.Lock()
	var frames []Inbound
	for id, q := range c.queries {
		frames = append(frames, Inbound{Type: inboundSubscribe, Data: SubscribePayload{Sub: id, Collection: q.collection}})
	}
	rooms := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	for _, in := range frames {
		if err := c.send(ctx, in); err != nil {
			c.logger.Warn("replay subscribe failed", map[string]any{"error": err.Error()})
		}
	}
	for _, r := range rooms {
		r.rejoin(ctx)
	}
}

// Close shuts down client and closes WebSocket. Every live query, room and
// timer owned by the client stops delivering.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	rooms := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	for _, r := range rooms {
		r.stopTimers()
	}

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client close")
	}
	c.wg.Wait()
	c.setState(StateClosed, nil)
	return err
}

// SubscribeMessages starts a live query over the messages collection. fn is
// called with IsLoading set before the first snapshot and then once per
// snapshot. The returned function cancels the query.
func (c *Client) SubscribeMessages(fn func(MessagesResult)) (unsubscribe func()) {
	id := fmt.Sprintf("q%d", c.seq.Add(1))

	c.mu.Lock()
	c.queries[id] = &query{collection: CollectionMessages, fn: fn}
	connected := c.state == StateConnected
	c.mu.Unlock()

	fn(MessagesResult{IsLoading: true})

	if connected {
		in := Inbound{Type: inboundSubscribe, Data: SubscribePayload{Sub: id, Collection: CollectionMessages}}
		if err := c.send(context.Background(), in); err != nil {
			c.logger.Warn("subscribe failed", map[string]any{"sub": id, "error": err.Error()})
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.queries, id)
			connected := c.state == StateConnected
			c.mu.Unlock()
			if connected {
				_ = c.trySend(Inbound{Type: inboundUnsubscribe, Data: UnsubscribePayload{Sub: id}})
			}
		})
	}
}

// Transact submits ops as one atomic transaction. It returns as soon as the
// transaction is queued; the result shows up in the next snapshot.
func (c *Client) Transact(ctx context.Context, ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	return c.send(ctx, Inbound{Type: inboundTransact, Data: TransactPayload{Tx: uuid.NewString(), Ops: ops}})
}

// Room returns the room identified by roomType and roomID, joining it on first use.
func (c *Client) Room(roomType, roomID string) *Room {
	name := roomType + "/" + roomID

	c.mu.Lock()
	if r, ok := c.rooms[name]; ok {
		c.mu.Unlock()
		return r
	}
	r := newRoom(c, name)
	c.rooms[name] = r
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		r.rejoin(context.Background())
	}
	return r
}

func (c *Client) send(ctx context.Context, in Inbound) error {
	c.mu.Lock()
	connected := c.state == StateConnected
	done := c.runDone
	c.mu.Unlock()
	if !connected {
		return NewError(ErrorNotConnected, "not connected")
	}

	select {
	case c.writeCh <- in:
		return nil
	case <-done:
		return NewError(ErrorDisconnected, "connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trySend queues in without blocking. It is used from teardown paths that may
// run on the read loop.
func (c *Client) trySend(in Inbound) bool {
	select {
	case c.writeCh <- in:
		return true
	default:
		return false
	}
}

func (c *Client) setState(s ConnectionState, err error) {
	c.mu.Lock()
	old := c.state
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	if old != s && fn != nil {
		fn(StateEvent{OldState: old, NewState: s, Error: err})
	}
}

func (c *Client) readLoop(ctx context.Context, stop context.CancelFunc) {
	defer c.wg.Done()
	defer stop()
	for {
		var out Outbound
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.Read(ctx, &out); err != nil {
			if isExpectedDisconnect(ctx, err) {
				return
			}
			werr := WrapError(ErrorDisconnected, "read", err)
			c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			c.setState(StateError, werr)
			c.handleError(werr)
			return
		}
		c.dispatcher.Dispatch(out)
	}
}

func (c *Client) writeLoop(ctx context.Context, stop context.CancelFunc) {
	defer c.wg.Done()
	defer stop()

	var keepalive <-chan time.Time
	if c.cfg.PingInterval > 0 {
		t := time.NewTicker(c.cfg.PingInterval)
		defer t.Stop()
		keepalive = t.C
	}
	for {
		select {
		case <-keepalive:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				return
			}
			if err := conn.Ping(ctx); err != nil && !isExpectedDisconnect(ctx, err) {
				c.logger.Warn("ping failed", map[string]any{"error": err.Error()})
			}
		case in := <-c.writeCh:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				return
			}
			if err := conn.Write(ctx, in); err != nil {
				if isExpectedDisconnect(ctx, err) {
					return
				}
				werr := WrapError(ErrorDisconnected, "write", err)
				c.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
				c.setState(StateError, werr)
				c.handleError(werr)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleSnapshot(ev SnapshotEvent) {
	c.mu.Lock()
	q, ok := c.queries[ev.Sub]
	c.mu.Unlock()
	if !ok {
		return
	}
	res := MessagesResult{Messages: ev.Messages}
	if ev.Error != nil {
		res = MessagesResult{Err: FromProtocolError(ev.Error)}
	}
	q.fn(res)
}

func (c *Client) handlePeers(ev PeersEvent) {
	c.mu.Lock()
	r, ok := c.rooms[ev.Room]
	c.mu.Unlock()
	if ok {
		r.setPeers(ev.Peers)
	}
}

func (c *Client) handleTyping(ev TypingEvent) {
	c.mu.Lock()
	r, ok := c.rooms[ev.Room]
	c.mu.Unlock()
	if ok {
		r.TypingIndicator(ev.Input).setActivePeers(ev.Active)
	}
}

// handleError routes an error to the surface it belongs to. Auth errors go
// to the auth state and configuration errors to auth and every live query.
// A lost connection ends every live query with err. All of them also reach
// the OnError callback.
func (c *Client) handleError(err error) {
	c.logger.Error("client error", map[string]any{"error": err.Error()})
	switch {
	case IsConfigError(err):
		c.setAuth(AuthState{Err: err})
		c.failQueries(err)
	case IsAuthError(err):
		c.setAuth(AuthState{Err: err})
	case IsConnectionError(err):
		c.failQueries(err)
	}

	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (c *Client) failQueries(err error) {
	c.mu.Lock()
	fns := make([]func(MessagesResult), 0, len(c.queries))
	for _, q := range c.queries {
		fns = append(fns, q.fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(MessagesResult{Err: err})
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
