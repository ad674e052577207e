package chat

import (
	"context"
	"sync"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// DecisionKind is what the gate lets the user see.
type DecisionKind int

const (
	// DecisionLoading means authentication is still pending.
	DecisionLoading DecisionKind = iota
	// DecisionError means authentication was denied. Terminal.
	DecisionError
	// DecisionLogin means nobody is signed in.
	DecisionLogin
	// DecisionChat means a user is signed in.
	DecisionChat
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionLoading:
		return "loading"
	case DecisionError:
		return "error"
	case DecisionLogin:
		return "login"
	case DecisionChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Decision is the outcome of the gate for one authentication state.
type Decision struct {
	Kind DecisionKind

	// User is set for DecisionChat.
	User *livechat.User

	// Err is set for DecisionError.
	Err error

	// LoginURL is set for DecisionLogin.
	LoginURL string
}

// Gate maps the pushed authentication state to a Decision.
type Gate struct {
	auth        AuthProvider
	clientName  string
	redirectURL string
	logger      livechat.Logger

	mu       sync.Mutex
	decision Decision
	subs     listeners[Decision]
	unsub    func()
}

func newGate(auth AuthProvider, clientName, redirectURL string, logger livechat.Logger) *Gate {
	g := &Gate{
		auth:        auth,
		clientName:  clientName,
		redirectURL: redirectURL,
		logger:      logger,
		decision:    Decision{Kind: DecisionLoading},
	}
	g.unsub = auth.OnAuth(g.update)
	return g
}

// Decision returns the current decision.
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// Watch registers fn for decision changes and calls it with the current one.
func (g *Gate) Watch(fn func(Decision)) (unsubscribe func()) {
	remove := g.subs.add(fn)
	fn(g.Decision())
	return remove
}

// SignOut ends the session with the identity provider.
func (g *Gate) SignOut(ctx context.Context) error {
	return g.auth.SignOut(ctx)
}

// Close stops observing the provider.
func (g *Gate) Close() {
	if g.unsub != nil {
		g.unsub()
	}
}

func (g *Gate) update(s livechat.AuthState) {
	d := decide(s)
	if d.Kind == DecisionLogin {
		u, err := g.auth.AuthorizationURL(g.clientName, g.redirectURL)
		if err != nil {
			d = Decision{Kind: DecisionError, Err: err}
		} else {
			d.LoginURL = u
		}
	}

	g.mu.Lock()
	prev := g.decision.Kind
	g.decision = d
	g.mu.Unlock()

	if prev != d.Kind {
		g.logger.Debug("gate decision", map[string]any{"from": prev.String(), "to": d.Kind.String()})
	}
	g.subs.emit(d)
}

func decide(s livechat.AuthState) Decision {
	switch {
	case s.IsLoading:
		return Decision{Kind: DecisionLoading}
	case s.Err != nil:
		return Decision{Kind: DecisionError, Err: s.Err}
	case s.User != nil:
		u := *s.User
		return Decision{Kind: DecisionChat, User: &u}
	default:
		return Decision{Kind: DecisionLogin}
	}
}
