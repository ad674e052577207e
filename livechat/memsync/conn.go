package memsync

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// Conn is one peer's connection to a Hub.
type Conn struct {
	hub    *Hub
	key    string
	box    *mailbox
	appErr error

	mu        sync.Mutex
	seq       uint64
	closed    bool
	auth      livechat.AuthState
	authSubs  map[uint64]func(livechat.AuthState)
	querySubs map[uint64]func(livechat.MessagesResult)
	rooms     map[string]*Room
}

// Key identifies the connection in peer maps.
func (c *Conn) Key() string { return c.key }

// Sync blocks until every delivery queued for this connection has run.
func (c *Conn) Sync() { c.box.sync() }

// Close disconnects the peer. Other peers see its presence and typing
// signal disappear.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.hub.disconnect(c)
	c.box.close()
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// OnAuth registers fn for auth state changes and calls it with the current state.
func (c *Conn) OnAuth(fn func(livechat.AuthState)) (unsubscribe func()) {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.authSubs[id] = fn
	cur := c.auth
	c.mu.Unlock()

	fn(cur)
	return func() {
		c.mu.Lock()
		delete(c.authSubs, id)
		c.mu.Unlock()
	}
}

// AuthorizationURL returns a memsync:// URL; the in-process provider has no
// real redirect flow, SignIn completes it.
func (c *Conn) AuthorizationURL(clientName, redirectURL string) (string, error) {
	if clientName == "" {
		return "", livechat.NewError(livechat.ErrorInvalidConfig, "empty client name")
	}
	q := url.Values{}
	q.Set("app_id", c.hub.appID)
	q.Set("client_name", clientName)
	q.Set("redirect_uri", redirectURL)
	return "memsync://authorize?" + q.Encode(), nil
}

// SignIn resolves the auth state to user.
func (c *Conn) SignIn(user livechat.User) {
	c.setAuth(livechat.AuthState{User: &user})
}

// FailAuth moves the auth state to denied with err.
func (c *Conn) FailAuth(err error) {
	c.setAuth(livechat.AuthState{Err: err})
}

// SignOut moves the auth state to signed out.
func (c *Conn) SignOut(context.Context) error {
	c.setAuth(livechat.AuthState{})
	return nil
}

func (c *Conn) setAuth(s livechat.AuthState) {
	c.box.post(func() {
		c.mu.Lock()
		c.auth = s
		fns := make([]func(livechat.AuthState), 0, len(c.authSubs))
		for _, fn := range c.authSubs {
			fns = append(fns, fn)
		}
		c.mu.Unlock()
		for _, fn := range fns {
			fn(s)
		}
	})
}

// SubscribeMessages starts a live query over the collection. fn sees a
// loading result first, then one result per change.
func (c *Conn) SubscribeMessages(fn func(livechat.MessagesResult)) (unsubscribe func()) {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.querySubs[id] = fn
	c.mu.Unlock()

	fn(livechat.MessagesResult{IsLoading: true})

	if c.appErr != nil {
		err := c.appErr
		c.box.post(func() { c.deliverQuery(id, livechat.MessagesResult{Err: err}) })
	} else {
		c.hub.mu.Lock()
		snap := c.hub.snapshotLocked()
		c.box.post(func() { c.deliverQuery(id, livechat.MessagesResult{Messages: snap}) })
		c.hub.mu.Unlock()
	}

	return func() {
		c.mu.Lock()
		delete(c.querySubs, id)
		c.mu.Unlock()
	}
}

func (c *Conn) deliverQuery(id uint64, res livechat.MessagesResult) {
	c.mu.Lock()
	fn, ok := c.querySubs[id]
	c.mu.Unlock()
	if ok {
		fn(res)
	}
}

func (c *Conn) postSnapshot(snap []livechat.Message) {
	c.box.post(func() {
		c.mu.Lock()
		fns := make([]func(livechat.MessagesResult), 0, len(c.querySubs))
		for _, fn := range c.querySubs {
			fns = append(fns, fn)
		}
		c.mu.Unlock()
		for _, fn := range fns {
			fn(livechat.MessagesResult{Messages: cloneMessages(snap)})
		}
	})
}

// Transact applies ops atomically: either all of them are visible in the
// next snapshot or none are.
func (c *Conn) Transact(_ context.Context, ops ...livechat.Op) error {
	if c.isClosed() {
		return livechat.NewError(livechat.ErrorNotConnected, "connection closed")
	}
	if c.appErr != nil {
		return c.appErr
	}
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	return c.hub.transact(ops)
}

// Room returns this peer's view of the room, joining it on first use.
func (c *Conn) Room(roomType, roomID string) *Room {
	name := fmt.Sprintf("%s/%s", roomType, roomID)
	c.mu.Lock()
	r, ok := c.rooms[name]
	if !ok {
		r = newRoom(c, name)
		c.rooms[name] = r
	}
	c.mu.Unlock()
	if !ok {
		c.hub.join(r)
	}
	return r
}
