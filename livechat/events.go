package livechat

import "fmt"

// CollectionMessages is the only collection the chat queries.
const CollectionMessages = "messages"

// Message is a chat message as stored by the sync engine.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Handle    string `json:"handle"`
	UserID    string `json:"userId"`
	CreatedAt int64  `json:"createdAt"` // unix millis, client clock
}

// Presence is the payload a peer announces into a room.
type Presence struct {
	Handle string `json:"handle"`
}

// User describes an authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// MessagesResult is delivered to a messages subscription on every change.
// While IsLoading is true no data has arrived yet.
type MessagesResult struct {
	IsLoading bool
	Err       error
	Messages  []Message
}

// AuthState is the authentication status pushed by the provider.
type AuthState struct {
	IsLoading bool
	User      *User
	Err       error
}

// Action is the kind of a transaction op.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Op is a single mutation against one entity. A transaction is a slice of ops
// that the store applies atomically.
type Op struct {
	Action     Action         `json:"action"`
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Attrs      map[string]any `json:"attrs,omitempty"`
}

// CreateOp builds an op that creates entity id with attrs.
func CreateOp(collection, id string, attrs map[string]any) Op {
	return Op{Action: ActionCreate, Collection: collection, ID: id, Attrs: attrs}
}

// UpdateOp builds an op that merges attrs into entity id.
func UpdateOp(collection, id string, attrs map[string]any) Op {
	return Op{Action: ActionUpdate, Collection: collection, ID: id, Attrs: attrs}
}

// DeleteOp builds an op that removes entity id.
func DeleteOp(collection, id string) Op {
	return Op{Action: ActionDelete, Collection: collection, ID: id}
}

// Validate checks that the op is well formed.
func (o Op) Validate() error {
	switch o.Action {
	case ActionCreate, ActionUpdate, ActionDelete:
	default:
		return NewError(ErrorInvalidOp, fmt.Sprintf("unknown action %q", o.Action))
	}
	if o.Collection == "" {
		return NewError(ErrorInvalidOp, "empty collection")
	}
	if o.ID == "" {
		return NewError(ErrorInvalidOp, "empty entity id")
	}
	if o.Attrs != nil {
		if _, ok := o.Attrs["id"]; ok {
			return NewError(ErrorInvalidOp, "id is immutable")
		}
	}
	return nil
}
