package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
	"github.com/vovakirdan/livechat-sdk-go/livechat/memsync"
)

func TestDecide(t *testing.T) {
	denied := errors.New("denied")
	user := &livechat.User{ID: "u1", Email: "u1@example.com"}

	require.Equal(t, DecisionLoading, decide(livechat.AuthState{IsLoading: true}).Kind)
	require.Equal(t, Decision{Kind: DecisionError, Err: denied}, decide(livechat.AuthState{Err: denied}))
	require.Equal(t, DecisionLogin, decide(livechat.AuthState{}).Kind)

	d := decide(livechat.AuthState{User: user})
	require.Equal(t, DecisionChat, d.Kind)
	require.Equal(t, *user, *d.User)
}

func TestGateTransitions(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, nil), "alpha")
	gate := h.session.Gate

	var seen []DecisionKind
	defer gate.Watch(func(d Decision) { seen = append(seen, d.Kind) })()

	d := gate.Decision()
	require.Equal(t, DecisionLogin, d.Kind)
	require.Contains(t, d.LoginURL, "client_name=google-web")

	h.conn.SignIn(livechat.User{ID: "u1"})
	h.conn.Sync()
	require.Equal(t, DecisionChat, gate.Decision().Kind)
	require.Equal(t, "u1", gate.Decision().User.ID)

	h.conn.FailAuth(errors.New("token expired"))
	h.conn.Sync()
	require.Equal(t, DecisionError, gate.Decision().Kind)
	require.EqualError(t, gate.Decision().Err, "token expired")

	require.NoError(t, gate.SignOut(context.Background()))
	h.conn.Sync()
	require.Equal(t, DecisionLogin, gate.Decision().Kind)

	require.Equal(t, []DecisionKind{DecisionLogin, DecisionChat, DecisionError, DecisionLogin}, seen)
}

type brokenAuth struct{ fn func(livechat.AuthState) }

func (b *brokenAuth) OnAuth(fn func(livechat.AuthState)) func() {
	b.fn = fn
	fn(livechat.AuthState{IsLoading: true})
	return func() {}
}

func (*brokenAuth) AuthorizationURL(string, string) (string, error) {
	return "", livechat.NewError(livechat.ErrorInvalidConfig, "identity provider not configured")
}

func (*brokenAuth) SignOut(context.Context) error { return nil }

func TestGateLoginWithoutProvider(t *testing.T) {
	auth := &brokenAuth{}
	gate := newGate(auth, "google-web", "", livechat.NopLogger{})
	require.Equal(t, DecisionLoading, gate.Decision().Kind)

	auth.fn(livechat.AuthState{})
	d := gate.Decision()
	require.Equal(t, DecisionError, d.Kind)
	require.True(t, livechat.IsConfigError(d.Err))
}
