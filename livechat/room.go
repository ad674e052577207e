package livechat

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyEnter is the key name that ends a typing signal immediately.
const KeyEnter = "Enter"

// Room is a named real-time scope for presence and typing. It is independent
// of the message data.
type Room struct {
	client *Client
	name   string

	mu       sync.Mutex
	peers    map[string]Presence
	presence *Presence // last payload sent on the wire
	seq      uint64
	peerSubs map[uint64]func(map[string]Presence)
	typing   map[string]*TypingIndicator
}

func newRoom(c *Client, name string) *Room {
	return &Room{
		client:   c,
		name:     name,
		peers:    make(map[string]Presence),
		peerSubs: make(map[uint64]func(map[string]Presence)),
		typing:   make(map[string]*TypingIndicator),
	}
}

// Name returns "<type>/<id>".
func (r *Room) Name() string { return r.name }

// PublishPresence announces p to every peer in the room. Publishing the same
// payload again is a no-op on the wire.
func (r *Room) PublishPresence(ctx context.Context, p Presence) error {
	r.mu.Lock()
	if r.presence != nil && *r.presence == p {
		r.mu.Unlock()
		return nil
	}
	r.presence = &p
	r.mu.Unlock()

	err := r.client.send(ctx, Inbound{Type: inboundPresence, Data: PresencePayload{Room: r.name, Data: p}})
	if err != nil {
		r.mu.Lock()
		r.presence = nil
		r.mu.Unlock()
	}
	return err
}

// Peers returns the presence of every other peer, keyed by peer connection.
func (r *Room) Peers() map[string]Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.peers)
}

// OnPeers registers fn for presence changes. fn is called immediately with the
// current peers.
func (r *Room) OnPeers(fn func(map[string]Presence)) (unsubscribe func()) {
	r.mu.Lock()
	r.seq++
	id := r.seq
	r.peerSubs[id] = fn
	cur := maps.Clone(r.peers)
	r.mu.Unlock()

	fn(cur)
	return func() {
		r.mu.Lock()
		delete(r.peerSubs, id)
		r.mu.Unlock()
	}
}

// TypingIndicator returns the typing primitive for the named input context.
func (r *Room) TypingIndicator(input string) *TypingIndicator {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.typing[input]
	if !ok {
		t = newTypingIndicator(r, input, r.client.cfg.TypingThrottle, r.client.cfg.TypingTimeout)
		r.typing[input] = t
	}
	return t
}

// Leave unsubscribes from the room. Peers see this client disappear.
func (r *Room) Leave(ctx context.Context) error {
	r.stopTimers()
	r.client.mu.Lock()
	delete(r.client.rooms, r.name)
	r.client.mu.Unlock()
	return r.client.send(ctx, Inbound{Type: inboundLeave, Data: JoinPayload{Room: r.name}})
}

func (r *Room) rejoin(ctx context.Context) {
	if err := r.client.send(ctx, Inbound{Type: inboundJoin, Data: JoinPayload{Room: r.name}}); err != nil {
		r.client.logger.Warn("join failed", map[string]any{"room": r.name, "error": err.Error()})
		return
	}
	r.mu.Lock()
	p := r.presence
	r.mu.Unlock()
	if p != nil {
		_ = r.client.send(ctx, Inbound{Type: inboundPresence, Data: PresencePayload{Room: r.name, Data: *p}})
	}
}

func (r *Room) setPeers(peers map[string]Presence) {
	r.mu.Lock()
	r.peers = maps.Clone(peers)
	if r.peers == nil {
		r.peers = make(map[string]Presence)
	}
	fns := slices.Collect(maps.Values(r.peerSubs))
	r.mu.Unlock()

	for _, fn := range fns {
		fn(maps.Clone(peers))
	}
}

func (r *Room) stopTimers() {
	r.mu.Lock()
	ts := slices.Collect(maps.Values(r.typing))
	r.mu.Unlock()
	for _, t := range ts {
		t.stop()
	}
}

// TypingIndicator tracks who is typing in one input context and emits the
// local typing signal. Expiry on the peers' side is the server's job.
type TypingIndicator struct {
	room     *Room
	input    string
	interval time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	typing   bool
	throttle *rate.Sometimes
	timer    *time.Timer
	active   []Presence
	seq      uint64
	subs     map[uint64]func([]Presence)
}

func newTypingIndicator(r *Room, input string, interval, timeout time.Duration) *TypingIndicator {
	return &TypingIndicator{
		room:     r,
		input:    input,
		interval: interval,
		timeout:  timeout,
		throttle: newThrottle(interval),
		subs:     make(map[uint64]func([]Presence)),
	}
}

func newThrottle(interval time.Duration) *rate.Sometimes {
	if interval <= 0 {
		return &rate.Sometimes{Every: 1}
	}
	return &rate.Sometimes{Interval: interval}
}

// KeyDown must be called for every keystroke in the input. Enter ends the
// local typing signal; any other key starts or refreshes it.
func (t *TypingIndicator) KeyDown(ctx context.Context, key string) {
	t.setTyping(ctx, key != KeyEnter)
}

// Active returns the peers currently typing, in the order the server sent them.
func (t *TypingIndicator) Active() []Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.active)
}

// OnActive registers fn for changes of the active typists. fn is called
// immediately with the current set.
func (t *TypingIndicator) OnActive(fn func([]Presence)) (unsubscribe func()) {
	t.mu.Lock()
	t.seq++
	id := t.seq
	t.subs[id] = fn
	cur := slices.Clone(t.active)
	t.mu.Unlock()

	fn(cur)
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *TypingIndicator) setTyping(ctx context.Context, typing bool) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if !typing {
		was := t.typing
		t.typing = false
		t.throttle = newThrottle(t.interval)
		t.mu.Unlock()
		if was {
			t.publish(ctx, false)
		}
		return
	}
	t.typing = true
	if t.timeout > 0 {
		t.timer = time.AfterFunc(t.timeout, func() { t.setTyping(context.Background(), false) })
	}
	throttle := t.throttle
	t.mu.Unlock()

	throttle.Do(func() { t.publish(ctx, true) })
}

func (t *TypingIndicator) publish(ctx context.Context, active bool) {
	in := Inbound{Type: inboundTyping, Data: TypingPayload{Room: t.room.name, Input: t.input, Active: active}}
	if err := t.room.client.send(ctx, in); err != nil {
		t.room.client.logger.Debug("typing signal dropped", map[string]any{"room": t.room.name, "error": err.Error()})
	}
}

func (t *TypingIndicator) setActivePeers(active []Presence) {
	t.mu.Lock()
	t.active = slices.Clone(active)
	fns := slices.Collect(maps.Values(t.subs))
	t.mu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(active))
	}
}

func (t *TypingIndicator) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.typing = false
}
