package memsync

import (
	"fmt"
	"slices"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

func (h *Hub) transact(ops []livechat.Op) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.failNext; err != nil {
		h.failNext = nil
		return livechat.WrapError(livechat.ErrorTxRejected, "transaction failed", err)
	}

	next, err := apply(h.messages, ops)
	if err != nil {
		h.logger.Warn("transaction rejected", map[string]any{"error": err.Error(), "ops": len(ops)})
		return err
	}
	h.messages = next

	snap := h.snapshotLocked()
	for _, c := range h.conns {
		if c.appErr == nil {
			c.postSnapshot(snap)
		}
	}
	return nil
}

func (h *Hub) snapshotLocked() []livechat.Message {
	return cloneMessages(h.messages)
}

// apply runs ops against a copy of msgs and leaves msgs untouched.
// Updating a missing entity or creating an existing one rejects the whole
// transaction; deleting a missing entity is a no-op.
func apply(msgs []livechat.Message, ops []livechat.Op) ([]livechat.Message, error) {
	next := cloneMessages(msgs)
	for _, op := range ops {
		if op.Collection != livechat.CollectionMessages {
			return nil, livechat.NewError(livechat.ErrorTxRejected, fmt.Sprintf("unknown collection %q", op.Collection))
		}
		i := slices.IndexFunc(next, func(m livechat.Message) bool { return m.ID == op.ID })
		switch op.Action {
		case livechat.ActionCreate:
			if i >= 0 {
				return nil, livechat.NewError(livechat.ErrorTxRejected, "duplicate id "+op.ID)
			}
			m := livechat.Message{ID: op.ID}
			setAttrs(&m, op.Attrs)
			next = append(next, m)
		case livechat.ActionUpdate:
			if i < 0 {
				return nil, livechat.NewError(livechat.ErrorTxRejected, "no such entity "+op.ID)
			}
			setAttrs(&next[i], op.Attrs)
		case livechat.ActionDelete:
			if i >= 0 {
				next = slices.Delete(next, i, i+1)
			}
		}
	}
	return next, nil
}

func setAttrs(m *livechat.Message, attrs map[string]any) {
	if v, ok := attrs["text"].(string); ok {
		m.Text = v
	}
	if v, ok := attrs["handle"].(string); ok {
		m.Handle = v
	}
	if v, ok := attrs["userId"].(string); ok {
		m.UserID = v
	}
	switch v := attrs["createdAt"].(type) {
	case int64:
		m.CreatedAt = v
	case int:
		m.CreatedAt = int64(v)
	case float64:
		m.CreatedAt = int64(v)
	}
}

func cloneMessages(msgs []livechat.Message) []livechat.Message {
	out := make([]livechat.Message, len(msgs))
	copy(out, msgs)
	return out
}
