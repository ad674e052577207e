package livechat

import (
	"context"
)

// OnAuth registers fn for auth state changes. fn is called immediately with
// the current state; IsLoading stays set until the server answers hello.
func (c *Client) OnAuth(fn func(AuthState)) (unsubscribe func()) {
	id := c.seq.Add(1)
	c.mu.Lock()
	c.authSubs[id] = fn
	cur := c.auth
	c.mu.Unlock()

	fn(cur)
	return func() {
		c.mu.Lock()
		delete(c.authSubs, id)
		c.mu.Unlock()
	}
}

// Auth returns the current auth state.
func (c *Client) Auth() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

// AuthorizationURL returns the URL that starts the provider's redirect flow.
func (c *Client) AuthorizationURL(clientName, redirectURL string) (string, error) {
	if c.api == nil {
		return "", NewError(ErrorInvalidConfig, "no API URL configured")
	}
	u, err := c.api.AuthorizationURL(clientName, redirectURL)
	if err != nil {
		return "", WrapError(ErrorInvalidConfig, "authorization url", err)
	}
	return u, nil
}

// SignOut revokes the token with the provider and moves the auth state to
// signed out. The local state changes even if the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.api != nil {
		if err = c.api.SignOut(ctx); err != nil {
			err = WrapError(ErrorUnauthorized, "sign out", err)
		}
	}
	c.mu.Lock()
	c.cfg.Token = ""
	c.mu.Unlock()
	c.setAuth(AuthState{})
	return err
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Token
}

func (c *Client) handleAuth(ev AuthEvent) {
	c.setAuth(AuthState{User: ev.User})
}

func (c *Client) setAuth(s AuthState) {
	c.mu.Lock()
	c.auth = s
	fns := make([]func(AuthState), 0, len(c.authSubs))
	for _, fn := range c.authSubs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
