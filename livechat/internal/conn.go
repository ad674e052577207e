// Package internal holds the websocket plumbing of the livechat client.
package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// maxFrameSize bounds a single inbound frame. Snapshots carry the whole
// collection, so this is well above the websocket library default.
const maxFrameSize = 4 << 20

// DialOptions configure Dial. Zero timeouts disable the corresponding limit.
type DialOptions struct {
	AppID            string
	UserAgent        string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// Conn is a JSON frame connection with per-operation timeouts.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Dial opens the websocket at rawURL. The app id travels in a header so the
// server can reject an unknown app before the hello frame.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (*Conn, error) {
	if opts.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.HandshakeTimeout)
		defer cancel()
	}
	h := http.Header{}
	if opts.AppID != "" {
		h.Set("X-App-Id", opts.AppID)
	}
	if opts.UserAgent != "" {
		h.Set("User-Agent", opts.UserAgent)
	}
	ws, _, err := websocket.Dial(ctx, rawURL, &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxFrameSize)
	return &Conn{ws: ws, readTimeout: opts.ReadTimeout, writeTimeout: opts.WriteTimeout}, nil
}

// Read decodes the next frame into v. With no read timeout it waits until ctx ends.
func (c *Conn) Read(ctx context.Context, v any) error {
	ctx, cancel := withTimeout(ctx, c.readTimeout)
	defer cancel()
	return wsjson.Read(ctx, c.ws, v)
}

// Write encodes v as one frame.
func (c *Conn) Write(ctx context.Context, v any) error {
	ctx, cancel := withTimeout(ctx, c.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, v)
}

// Ping waits for the pong of one ping. It needs a concurrent Read.
func (c *Conn) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.ws.Ping(ctx)
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
