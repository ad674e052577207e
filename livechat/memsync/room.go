package memsync

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

type typist struct {
	key   string
	gen   uint64
	timer *time.Timer
}

// hubRoom is the authoritative state of one room. Guarded by Hub.mu.
type hubRoom struct {
	name     string
	members  map[string]*Room
	presence map[string]livechat.Presence
	typing   map[string][]*typist // input -> typists in start order
	gen      uint64
}

func (h *Hub) join(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hr, ok := h.rooms[r.name]
	if !ok {
		hr = &hubRoom{
			name:     r.name,
			members:  make(map[string]*Room),
			presence: make(map[string]livechat.Presence),
			typing:   make(map[string][]*typist),
		}
		h.rooms[r.name] = hr
	}
	hr.members[r.conn.key] = r
	hr.broadcastPeers()
	for input := range hr.typing {
		hr.broadcastTyping(input)
	}
}

func (h *Hub) publish(r *Room, p livechat.Presence) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hr, ok := h.rooms[r.name]
	if !ok {
		return
	}
	if cur, ok := hr.presence[r.conn.key]; ok && cur == p {
		return
	}
	hr.presence[r.conn.key] = p
	hr.broadcastPeers()
	for input := range hr.typing {
		hr.broadcastTyping(input)
	}
}

func (h *Hub) leave(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hr, ok := h.rooms[r.name]; ok {
		hr.remove(r.conn.key)
	}
}

func (h *Hub) setTyping(roomName, input, key string, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hr, ok := h.rooms[roomName]
	if !ok {
		return
	}
	if _, ok := hr.members[key]; !ok {
		return
	}
	list := hr.typing[input]
	i := slices.IndexFunc(list, func(t *typist) bool { return t.key == key })

	if !active {
		if i < 0 {
			return
		}
		list[i].timer.Stop()
		hr.typing[input] = slices.Delete(list, i, i+1)
		hr.broadcastTyping(input)
		return
	}

	hr.gen++
	gen := hr.gen
	expire := func() { h.expireTyping(roomName, input, key, gen) }
	if i >= 0 {
		list[i].timer.Stop()
		list[i].gen = gen
		list[i].timer = time.AfterFunc(h.typingTimeout, expire)
		return
	}
	hr.typing[input] = append(list, &typist{key: key, gen: gen, timer: time.AfterFunc(h.typingTimeout, expire)})
	hr.broadcastTyping(input)
}

// expireTyping drops a typist whose last keystroke is older than the
// timeout. A newer keystroke bumps gen and keeps the typist alive.
func (h *Hub) expireTyping(roomName, input, key string, gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hr, ok := h.rooms[roomName]
	if !ok {
		return
	}
	list := hr.typing[input]
	i := slices.IndexFunc(list, func(t *typist) bool { return t.key == key && t.gen == gen })
	if i < 0 {
		return
	}
	hr.typing[input] = slices.Delete(list, i, i+1)
	hr.broadcastTyping(input)
}

func (hr *hubRoom) remove(key string) {
	if _, ok := hr.members[key]; !ok {
		return
	}
	delete(hr.members, key)
	delete(hr.presence, key)
	for input, list := range hr.typing {
		i := slices.IndexFunc(list, func(t *typist) bool { return t.key == key })
		if i >= 0 {
			list[i].timer.Stop()
			hr.typing[input] = slices.Delete(list, i, i+1)
		}
		hr.broadcastTyping(input)
	}
	hr.broadcastPeers()
}

// broadcastPeers sends every member the presence of everybody but itself.
func (hr *hubRoom) broadcastPeers() {
	for key, member := range hr.members {
		peers := make(map[string]livechat.Presence, len(hr.presence))
		for k, p := range hr.presence {
			if k != key {
				peers[k] = p
			}
		}
		m := member
		m.conn.box.post(func() { m.setPeers(peers) })
	}
}

func (hr *hubRoom) broadcastTyping(input string) {
	list := hr.typing[input]
	for key, member := range hr.members {
		active := make([]livechat.Presence, 0, len(list))
		for _, t := range list {
			if t.key != key {
				active = append(active, hr.presence[t.key])
			}
		}
		m := member
		m.conn.box.post(func() { m.typingFor(input).setActive(active) })
	}
}

// Room is one peer's view of a hub room.
type Room struct {
	conn *Conn
	name string

	mu       sync.Mutex
	seq      uint64
	peers    map[string]livechat.Presence
	peerSubs map[uint64]func(map[string]livechat.Presence)
	typing   map[string]*Typing
}

func newRoom(c *Conn, name string) *Room {
	return &Room{
		conn:     c,
		name:     name,
		peers:    make(map[string]livechat.Presence),
		peerSubs: make(map[uint64]func(map[string]livechat.Presence)),
		typing:   make(map[string]*Typing),
	}
}

// Name returns "<type>/<id>".
func (r *Room) Name() string { return r.name }

// PublishPresence announces p to the other members. Re-publishing an
// identical payload changes nothing.
func (r *Room) PublishPresence(_ context.Context, p livechat.Presence) error {
	if r.conn.isClosed() {
		return livechat.NewError(livechat.ErrorNotConnected, "connection closed")
	}
	r.conn.hub.publish(r, p)
	return nil
}

// Peers returns the other members' presence keyed by connection.
func (r *Room) Peers() map[string]livechat.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.peers)
}

// OnPeers registers fn for presence changes and calls it with the current peers.
func (r *Room) OnPeers(fn func(map[string]livechat.Presence)) (unsubscribe func()) {
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

// TypingIndicator returns the typing primitive for an input context.
func (r *Room) TypingIndicator(input string) *Typing {
	return r.typingFor(input)
}

// Leave removes this peer from the room.
func (r *Room) Leave(context.Context) error {
	r.conn.hub.leave(r)
	r.conn.mu.Lock()
	delete(r.conn.rooms, r.name)
	r.conn.mu.Unlock()
	return nil
}

func (r *Room) typingFor(input string) *Typing {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.typing[input]
	if !ok {
		t = &Typing{room: r, input: input, subs: make(map[uint64]func([]livechat.Presence))}
		r.typing[input] = t
	}
	return t
}

func (r *Room) setPeers(peers map[string]livechat.Presence) {
	r.mu.Lock()
	r.peers = peers
	fns := slices.Collect(maps.Values(r.peerSubs))
	r.mu.Unlock()
	for _, fn := range fns {
		fn(maps.Clone(peers))
	}
}

// Typing is one peer's typing primitive for an input context.
type Typing struct {
	room  *Room
	input string

	mu     sync.Mutex
	seq    uint64
	active []livechat.Presence
	subs   map[uint64]func([]livechat.Presence)
}

// KeyDown starts or refreshes this peer's typing signal; Enter ends it.
func (t *Typing) KeyDown(_ context.Context, key string) {
	if t.room.conn.isClosed() {
		return
	}
	t.room.conn.hub.setTyping(t.room.name, t.input, t.room.conn.key, key != livechat.KeyEnter)
}

// Active returns the other peers currently typing, in the order they started.
func (t *Typing) Active() []livechat.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.active)
}

// OnActive registers fn for changes of the active typists and calls it with
// the current list.
func (t *Typing) OnActive(fn func([]livechat.Presence)) (unsubscribe func()) {
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

func (t *Typing) setActive(active []livechat.Presence) {
	t.mu.Lock()
	t.active = active
	fns := slices.Collect(maps.Values(t.subs))
	t.mu.Unlock()
	for _, fn := range fns {
		fn(slices.Clone(active))
	}
}
