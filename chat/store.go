package chat

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/livechat-sdk-go/internal/metrics"
	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// MessagesView is the state of the messages collection as seen by the session.
type MessagesView struct {
	Loading  bool
	Err      error
	Messages []livechat.Message
}

// MessageStore issues message transactions and mirrors the live collection.
//
// Writes are fire-and-forget: a failed transaction is logged and counted but
// not returned, and the collection is only changed by the next snapshot.
type MessageStore struct {
	feed    MessageFeed
	logger  livechat.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu    sync.Mutex
	view  MessagesView
	subs  listeners[MessagesView]
	unsub func()
}

func newMessageStore(feed MessageFeed, d deps) *MessageStore {
	s := &MessageStore{
		feed:    feed,
		logger:  d.logger,
		metrics: d.metrics,
		now:     d.now,
		newID:   d.newID,
		view:    MessagesView{Loading: true},
	}
	s.unsub = feed.SubscribeMessages(s.setResult)
	return s
}

// NewMessageID returns a time-ordered UUIDv7.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create submits a new message and returns its id.
func (s *MessageStore) Create(ctx context.Context, text, handle, accountID string) string {
	id := s.newID()
	s.submit(ctx, "create", livechat.CreateOp(livechat.CollectionMessages, id, map[string]any{
		"userId":    accountID,
		"text":      text,
		"handle":    handle,
		"createdAt": s.now().UnixMilli(),
	}))
	return id
}

// Update replaces the text of message id.
func (s *MessageStore) Update(ctx context.Context, id, text string) {
	s.submit(ctx, "update", livechat.UpdateOp(livechat.CollectionMessages, id, map[string]any{"text": text}))
}

// Delete removes message id.
func (s *MessageStore) Delete(ctx context.Context, id string) {
	s.submit(ctx, "delete", livechat.DeleteOp(livechat.CollectionMessages, id))
}

// DeleteAll removes every message in ids in a single transaction.
func (s *MessageStore) DeleteAll(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	ops := make([]livechat.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, livechat.DeleteOp(livechat.CollectionMessages, id))
	}
	s.submit(ctx, "delete_all", ops...)
}

// Read registers fn for every change of the collection and calls it with the
// current view. Until the first snapshot the view is Loading.
func (s *MessageStore) Read(fn func(MessagesView)) (unsubscribe func()) {
	remove := s.subs.add(fn)
	fn(s.Current())
	return remove
}

// Current returns the latest view.
func (s *MessageStore) Current() MessagesView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.Messages = slices.Clone(v.Messages)
	return v
}

// Close stops the subscription to the collection.
func (s *MessageStore) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *MessageStore) submit(ctx context.Context, kind string, ops ...livechat.Op) {
	err := s.feed.Transact(ctx, ops...)
	s.metrics.ObserveTransaction(kind, err)
	if err != nil {
		s.logger.Warn("transaction failed", map[string]any{
			"kind":  kind,
			"ops":   len(ops),
			"error": err.Error(),
		})
	}
}

func (s *MessageStore) setResult(r livechat.MessagesResult) {
	v := MessagesView{Loading: r.IsLoading, Err: r.Err, Messages: slices.Clone(r.Messages)}
	if !v.Loading && v.Err == nil {
		s.metrics.Snapshots.Inc()
	}
	if v.Err != nil {
		s.logger.Error("messages query failed", map[string]any{"error": v.Err.Error()})
	}

	s.mu.Lock()
	s.view = v
	s.mu.Unlock()

	out := v
	out.Messages = slices.Clone(v.Messages)
	s.subs.emit(out)
}
