package livechat

import "sync"

// Dispatcher routes outbound events to registered callbacks.
type Dispatcher struct {
	mu         sync.RWMutex
	onAuth     func(AuthEvent)
	onSnapshot func(SnapshotEvent)
	onPeers    func(PeersEvent)
	onTyping   func(TypingEvent)
	onError    func(error)
}

func (d *Dispatcher) SetOnAuth(fn func(AuthEvent))         { d.set(func() { d.onAuth = fn }) }
func (d *Dispatcher) SetOnSnapshot(fn func(SnapshotEvent)) { d.set(func() { d.onSnapshot = fn }) }
func (d *Dispatcher) SetOnPeers(fn func(PeersEvent))       { d.set(func() { d.onPeers = fn }) }
func (d *Dispatcher) SetOnTyping(fn func(TypingEvent))     { d.set(func() { d.onTyping = fn }) }
func (d *Dispatcher) SetOnError(fn func(error))            { d.set(func() { d.onError = fn }) }

func (d *Dispatcher) set(apply func()) {
	d.mu.Lock()
	apply()
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatch(out Outbound) {
	d.mu.RLock()
	onAuth, onSnapshot, onPeers, onTyping := d.onAuth, d.onSnapshot, d.onPeers, d.onTyping
	d.mu.RUnlock()

	if out.Type == outboundError && out.Error != nil {
		d.fireError(FromProtocolError(out.Error))
		return
	}
	switch out.Event {
	case eventAuth:
		if onAuth == nil {
			return
		}
		var ev AuthEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal auth event", err))
			return
		}
		onAuth(ev)
	case eventSnapshot:
		if onSnapshot == nil {
			return
		}
		var ev SnapshotEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal snapshot event", err))
			return
		}
		onSnapshot(ev)
	case eventPeers:
		if onPeers == nil {
			return
		}
		var ev PeersEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal peers event", err))
			return
		}
		onPeers(ev)
	case eventTyping:
		if onTyping == nil {
			return
		}
		var ev TypingEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal typing event", err))
			return
		}
		onTyping(ev)
	}
}

func (d *Dispatcher) fireError(err error) {
	d.mu.RLock()
	onError := d.onError
	d.mu.RUnlock()
	if onError != nil && err != nil {
		onError(err)
	}
}
