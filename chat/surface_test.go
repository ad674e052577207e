package chat

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
	"github.com/vovakirdan/livechat-sdk-go/livechat/memsync"
)

// stuckFeed stays loading until deliver is called.
type stuckFeed struct {
	fn  func(livechat.MessagesResult)
	txs int
}

func (f *stuckFeed) SubscribeMessages(fn func(livechat.MessagesResult)) func() {
	f.fn = fn
	fn(livechat.MessagesResult{IsLoading: true})
	return func() { f.fn = nil }
}

func (f *stuckFeed) Transact(context.Context, ...livechat.Op) error {
	f.txs++
	return nil
}

func (f *stuckFeed) deliver(r livechat.MessagesResult) {
	if f.fn != nil {
		f.fn(r)
	}
}

func TestRenderAnnouncesOncePerPass(t *testing.T) {
	hub := memsync.NewHub(testApp)
	a := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "ua"}), "alpha")
	b := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "ub"}), "bravo")
	ctx := context.Background()

	var updates int
	defer b.session.Presence.OnFriends(func([]string) { updates++ })()

	a.surface.Render(ctx)
	b.conn.Sync()
	require.Equal(t, []string{"alpha"}, b.session.Presence.Friends())
	seen := updates

	a.surface.Render(ctx)
	a.surface.Render(ctx)
	b.conn.Sync()
	require.Equal(t, 3, a.pres.count())
	require.Equal(t, seen, updates)
}

func TestFriendsOrderedByPeerKey(t *testing.T) {
	hub := memsync.NewHub(testApp)
	ctx := context.Background()
	self := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u0"}), "self")

	type peer struct{ key, handle string }
	var peers []peer
	for _, handle := range []string{"ann", "bob", "cat"} {
		h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: handle}), handle)
		h.surface.Render(ctx)
		peers = append(peers, peer{h.conn.Key(), handle})
	}
	slices.SortFunc(peers, func(a, b peer) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	want := make([]string, 0, len(peers))
	for _, p := range peers {
		want = append(want, p.handle)
	}

	self.conn.Sync()
	view := self.surface.Render(ctx)
	require.Equal(t, want, view.Friends)
	require.NotContains(t, view.Friends, "self")
}

func TestSurfaceRefusesMutationsWhileLoading(t *testing.T) {
	hub := memsync.NewHub(testApp)
	feed := &stuckFeed{}
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha", func(o *Options) {
		o.Feed = feed
	})
	ctx := context.Background()

	require.Equal(t, StatusLoading, h.surface.Render(ctx).Status)
	_, ok := h.surface.Submit(ctx, "hi")
	require.False(t, ok)
	h.surface.Delete(ctx, "x")
	h.surface.DeleteAll(ctx)
	h.surface.BeginEdit("x")
	require.False(t, h.surface.SubmitEdit(ctx, "y"))
	require.Zero(t, feed.txs)

	feed.deliver(livechat.MessagesResult{Err: livechat.NewError(livechat.ErrorQueryFailed, "boom")})
	v := h.surface.Render(ctx)
	require.Equal(t, StatusError, v.Status)
	require.Equal(t, "boom", ErrorText(v.Err))
	_, ok = h.surface.Submit(ctx, "hi")
	require.False(t, ok)
	require.Zero(t, feed.txs)
}

func TestSurfaceSubmitAndDelete(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha")
	ctx := context.Background()

	_, ok := h.surface.Submit(ctx, "")
	require.False(t, ok)
	require.Empty(t, h.feed.transactions())

	first, ok := h.surface.Submit(ctx, "one")
	require.True(t, ok)
	_, ok = h.surface.Submit(ctx, "two")
	require.True(t, ok)
	h.conn.Sync()

	v := h.surface.Render(ctx)
	require.Equal(t, StatusReady, v.Status)
	require.Len(t, v.Messages, 2)
	require.Equal(t, "alpha", v.Messages[0].Handle)
	require.Equal(t, "u1", v.Messages[0].UserID)

	h.surface.Delete(ctx, first)
	h.conn.Sync()
	require.Len(t, h.surface.Render(ctx).Messages, 1)

	h.surface.DeleteAll(ctx)
	h.conn.Sync()
	require.Empty(t, h.surface.Render(ctx).Messages)
}

func TestSurfaceSignedOutCannotPost(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, nil), "alpha")

	_, ok := h.surface.Submit(context.Background(), "hi")
	require.False(t, ok)
	require.Empty(t, h.feed.transactions())
}

func TestSignedOutPeerIsInvisible(t *testing.T) {
	hub := memsync.NewHub(testApp)
	watcher := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "ua"}), "alpha")
	h := newHarness(t, hub.Connect(testApp, nil), "ghost")
	ctx := context.Background()

	require.Equal(t, DecisionLogin, h.session.Gate.Decision().Kind)
	h.surface.Render(ctx)
	h.surface.KeyDown(ctx, "h")
	require.Zero(t, h.pres.count())

	h.conn.Sync()
	watcher.conn.Sync()
	require.Empty(t, watcher.session.Presence.Friends())
	require.Equal(t, TypingPlaceholder, watcher.session.Typing.Line())
}

func TestSurfaceInertUntilSignedIn(t *testing.T) {
	cases := []struct {
		name    string
		user    *livechat.User
		tweak   func(*Options)
		prepare func(*harness)
		want    DecisionKind
	}{
		{
			name:  "loading",
			user:  &livechat.User{ID: "u1"},
			tweak: func(o *Options) { o.Auth = &brokenAuth{} },
			want:  DecisionLoading,
		},
		{
			name: "login",
			want: DecisionLogin,
		},
		{
			name: "error",
			user: &livechat.User{ID: "u1"},
			prepare: func(h *harness) {
				h.conn.FailAuth(errors.New("token expired"))
				h.conn.Sync()
			},
			want: DecisionError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hub := memsync.NewHub(testApp)
			ctx := context.Background()
			watcher := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "uw"}), "watcher")
			id, ok := watcher.surface.Submit(ctx, "keep me")
			require.True(t, ok)

			var tweaks []func(*Options)
			if tc.tweak != nil {
				tweaks = append(tweaks, tc.tweak)
			}
			h := newHarness(t, hub.Connect(testApp, tc.user), "subject", tweaks...)
			if tc.prepare != nil {
				tc.prepare(h)
			}
			require.Equal(t, tc.want, h.session.Gate.Decision().Kind)

			h.surface.Render(ctx)
			h.surface.KeyDown(ctx, "h")
			h.surface.BeginEdit(id)
			require.Empty(t, h.surface.Render(ctx).EditingID)
			require.False(t, h.surface.SubmitEdit(ctx, "changed"))
			h.surface.Delete(ctx, id)
			h.surface.DeleteAll(ctx)

			require.Zero(t, h.pres.count())
			require.Empty(t, h.feed.transactions())

			h.conn.Sync()
			watcher.conn.Sync()
			require.Empty(t, watcher.session.Presence.Friends())
			require.Equal(t, TypingPlaceholder, watcher.session.Typing.Line())
			msgs := hub.Messages()
			require.Len(t, msgs, 1)
			require.Equal(t, "keep me", msgs[0].Text)
		})
	}
}

func TestWrongAppIDRendersInstruction(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect("not-an-app", &livechat.User{ID: "u1"}), "alpha")

	v := h.surface.Render(context.Background())
	require.Equal(t, StatusError, v.Status)
	require.Equal(t, ConfigErrorText, ErrorText(v.Err))
	require.Equal(t, DecisionError, h.session.Gate.Decision().Kind)
}

func TestErrorText(t *testing.T) {
	require.Empty(t, ErrorText(nil))
	require.Equal(t, ConfigErrorText, ErrorText(livechat.NewError(livechat.ErrorInvalidAppID, "unknown app")))
	require.Equal(t, ConfigErrorText, ErrorText(livechat.NewError(livechat.ErrorInvalidConfig, "")))
	require.Equal(t, "session expired", ErrorText(livechat.NewError(livechat.ErrorUnauthorized, "session expired")))
	require.Equal(t, "plain", ErrorText(errors.New("plain")))
}
