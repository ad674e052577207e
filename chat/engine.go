// Package chat implements the client side of a multi-user chat session on top
// of a real-time sync engine: the identity gate, the session handle, presence
// and typing aggregation, the message store adapter and the inline edit flow.
//
// The package consumes the engine through the small interfaces below. Both
// the network client in package livechat and the in-process engine in
// package livechat/memsync satisfy them.
package chat

import (
	"context"
	"sync"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// AuthProvider pushes the authentication state of the session.
type AuthProvider interface {
	OnAuth(fn func(livechat.AuthState)) (unsubscribe func())
	AuthorizationURL(clientName, redirectURL string) (string, error)
	SignOut(ctx context.Context) error
}

// MessageFeed is the live messages collection of the engine.
type MessageFeed interface {
	SubscribeMessages(fn func(livechat.MessagesResult)) (unsubscribe func())
	Transact(ctx context.Context, ops ...livechat.Op) error
}

// PresenceChannel is a room that shares a presence payload per peer.
type PresenceChannel interface {
	PublishPresence(ctx context.Context, p livechat.Presence) error
	OnPeers(fn func(map[string]livechat.Presence)) (unsubscribe func())
}

// TypingChannel is the typing primitive of one input context of a room.
type TypingChannel interface {
	KeyDown(ctx context.Context, key string)
	OnActive(fn func([]livechat.Presence)) (unsubscribe func())
}

// listeners fans one upstream feed out to any number of local callbacks.
type listeners[T any] struct {
	mu  sync.Mutex
	seq uint64
	fns map[uint64]func(T)
}

func (l *listeners[T]) add(fn func(T)) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[uint64]func(T))
	}
	l.seq++
	id := l.seq
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
