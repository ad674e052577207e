package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
	"github.com/vovakirdan/livechat-sdk-go/livechat/memsync"
)

func presences(handles ...string) []livechat.Presence {
	out := make([]livechat.Presence, 0, len(handles))
	for _, h := range handles {
		out = append(out, livechat.Presence{Handle: h})
	}
	return out
}

func TestTypingInfo(t *testing.T) {
	tests := []struct {
		name   string
		active []livechat.Presence
		want   string
		ok     bool
	}{
		{"nobody", nil, "", false},
		{"one", presences("ann"), "ann is typing...", true},
		{"two", presences("ann", "bob"), "ann and bob are typing...", true},
		{"three", presences("ann", "bob", "cat"), "ann and 2 others are typing...", true},
		{"first is not sorted", presences("zed", "amy", "bob", "cat"), "zed and 3 others are typing...", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TypingInfo(tt.active)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.ok, ok)
		})
	}
}

func TestTypingLineAcrossSessions(t *testing.T) {
	hub := memsync.NewHub(testApp)
	a := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "ua"}), "alpha")
	b := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "ub"}), "bravo")
	ctx := context.Background()

	lines := make(chan string, 16)
	defer a.session.Typing.OnChange(func(s string) { lines <- s })()
	require.Equal(t, TypingPlaceholder, <-lines)

	b.surface.Render(ctx)
	b.surface.KeyDown(ctx, "h")
	a.conn.Sync()
	require.Equal(t, "bravo is typing...", a.session.Typing.Line())
	require.Equal(t, "bravo is typing...", a.surface.Render(ctx).Typing)
	require.Equal(t, TypingPlaceholder, b.session.Typing.Line())

	b.surface.KeyDown(ctx, livechat.KeyEnter)
	a.conn.Sync()
	require.Equal(t, TypingPlaceholder, a.session.Typing.Line())
	require.Empty(t, a.session.Typing.Active())
}
