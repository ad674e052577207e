package chat

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vovakirdan/livechat-sdk-go/internal/metrics"
	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// TypingInput is the input context of the message composer.
const TypingInput = "chat"

// TypingPlaceholder keeps the typing line's height when nobody is typing.
const TypingPlaceholder = "\u00a0"

// TypingInfo summarises the peers currently typing. The first peer in
// active is named; the rest are counted. It reports false when active is empty.
func TypingInfo(active []livechat.Presence) (string, bool) {
	switch len(active) {
	case 0:
		return "", false
	case 1:
		return fmt.Sprintf("%s is typing...", active[0].Handle), true
	case 2:
		return fmt.Sprintf("%s and %s are typing...", active[0].Handle, active[1].Handle), true
	default:
		return fmt.Sprintf("%s and %d others are typing...", active[0].Handle, len(active)-1), true
	}
}

// TypingAggregator forwards local keystrokes to the typing channel and turns
// the remote typists into a display line.
type TypingAggregator struct {
	ch      TypingChannel
	metrics *metrics.Metrics

	mu     sync.Mutex
	active []livechat.Presence
	subs   listeners[string]
	unsub  func()
}

func newTypingAggregator(ch TypingChannel, d deps) *TypingAggregator {
	t := &TypingAggregator{ch: ch, metrics: d.metrics}
	t.unsub = ch.OnActive(t.setActive)
	return t
}

// KeyDown reports a keystroke of the composer. Enter ends the local typing
// signal; any other key starts or refreshes it.
func (t *TypingAggregator) KeyDown(ctx context.Context, key string) {
	t.metrics.TypingSignals.Inc()
	t.ch.KeyDown(ctx, key)
}

// Active returns the peers currently typing in the order they started.
func (t *TypingAggregator) Active() []livechat.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.active)
}

// Line returns the typing line, or TypingPlaceholder when nobody is typing.
func (t *TypingAggregator) Line() string {
	return line(t.Active())
}

// OnChange registers fn for changes of Line and calls it with the current line.
func (t *TypingAggregator) OnChange(fn func(string)) (unsubscribe func()) {
	remove := t.subs.add(fn)
	fn(t.Line())
	return remove
}

// Close stops observing the channel.
func (t *TypingAggregator) Close() {
	if t.unsub != nil {
		t.unsub()
	}
}

func (t *TypingAggregator) setActive(active []livechat.Presence) {
	t.mu.Lock()
	t.active = slices.Clone(active)
	t.mu.Unlock()
	t.subs.emit(line(active))
}

func line(active []livechat.Presence) string {
	if s, ok := TypingInfo(active); ok {
		return s
	}
	return TypingPlaceholder
}
