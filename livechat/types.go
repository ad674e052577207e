package livechat

import "encoding/json"

const (
	ProtocolVersion = 1

	inboundHello       = "hello"
	inboundSubscribe   = "subscribe"
	inboundUnsubscribe = "unsubscribe"
	inboundTransact    = "transact"
	inboundJoin        = "join"
	inboundLeave       = "leave"
	inboundPresence    = "presence"
	inboundTyping      = "typing"

	outboundEvent = "event"
	outboundError = "error"

	eventAuth     = "auth"
	eventSnapshot = "snapshot"
	eventPeers    = "peers"
	eventTyping   = "typing"
)

// Inbound represents the envelope from client to server.
type Inbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outbound is the envelope server -> client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *WireError      `json:"error,omitempty"`
}

// HelloPayload initiates the session.
type HelloPayload struct {
	Protocol int    `json:"protocol,omitempty"`
	AppID    string `json:"app_id"`
	Token    string `json:"token,omitempty"`
}

// SubscribePayload starts a live query over a collection.
type SubscribePayload struct {
	Sub        string `json:"sub"`
	Collection string `json:"collection"`
}

// UnsubscribePayload stops a live query.
type UnsubscribePayload struct {
	Sub string `json:"sub"`
}

// TransactPayload carries one atomic transaction.
type TransactPayload struct {
	Tx  string `json:"tx"`
	Ops []Op   `json:"ops"`
}

// JoinPayload subscribes to a room.
type JoinPayload struct {
	Room string `json:"room"`
}

// PresencePayload publishes local presence into a room.
type PresencePayload struct {
	Room string   `json:"room"`
	Data Presence `json:"data"`
}

// TypingPayload toggles the local typing signal for an input context.
type TypingPayload struct {
	Room   string `json:"room"`
	Input  string `json:"input"`
	Active bool   `json:"active"`
}

// AuthEvent reports the authenticated account for the connection.
type AuthEvent struct {
	User *User `json:"user,omitempty"`
}

// SnapshotEvent delivers the full current result of a live query.
type SnapshotEvent struct {
	Sub      string     `json:"sub"`
	Messages []Message  `json:"messages"`
	Error    *WireError `json:"error,omitempty"`
}

// PeersEvent delivers the current presence of every other peer in a room.
type PeersEvent struct {
	Room  string              `json:"room"`
	Peers map[string]Presence `json:"peers"`
}

// TypingEvent delivers the peers currently typing in an input context.
type TypingEvent struct {
	Room   string     `json:"room"`
	Input  string     `json:"input"`
	Active []Presence `json:"active"`
}

// WireError describes a protocol error.
type WireError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *WireError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
