package chat

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/vovakirdan/livechat-sdk-go/internal/metrics"
	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// Presence room shared by every chat session.
const (
	PresenceRoomType = "online"
	PresenceRoomID   = "1"
)

// PresencePublisher announces the session handle and tracks who else is online.
type PresencePublisher struct {
	ch       PresenceChannel
	identity Identity
	logger   livechat.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	friends []string
	subs    listeners[[]string]
	unsub   func()
}

func newPresencePublisher(ch PresenceChannel, id Identity, d deps) *PresencePublisher {
	p := &PresencePublisher{ch: ch, identity: id, logger: d.logger, metrics: d.metrics}
	p.unsub = ch.OnPeers(p.setPeers)
	return p
}

// Announce publishes the session handle once. The channel drops payloads
// identical to the previous one.
func (p *PresencePublisher) Announce(ctx context.Context) {
	err := p.ch.PublishPresence(ctx, livechat.Presence{Handle: p.identity.Handle()})
	p.metrics.ObservePresence(err)
	if err != nil {
		p.logger.Warn("presence publish failed", map[string]any{"error": err.Error()})
	}
}

// Friends returns the handles of the other peers ordered by peer key.
func (p *PresencePublisher) Friends() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.friends)
}

// OnFriends registers fn for changes of Friends and calls it with the current list.
func (p *PresencePublisher) OnFriends(fn func([]string)) (unsubscribe func()) {
	remove := p.subs.add(fn)
	fn(p.Friends())
	return remove
}

// Close stops observing the channel.
func (p *PresencePublisher) Close() {
	if p.unsub != nil {
		p.unsub()
	}
}

func (p *PresencePublisher) setPeers(peers map[string]livechat.Presence) {
	keys := slices.Sorted(maps.Keys(peers))
	friends := make([]string, 0, len(keys))
	for _, k := range keys {
		friends = append(friends, peers[k].Handle)
	}

	p.mu.Lock()
	p.friends = friends
	p.mu.Unlock()
	p.subs.emit(slices.Clone(friends))
}
