package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livechat-sdk-go/internal/metrics"
	"github.com/vovakirdan/livechat-sdk-go/livechat"
	"github.com/vovakirdan/livechat-sdk-go/livechat/memsync"
)

func TestNewMessageIDIsV7(t *testing.T) {
	id, err := uuid.Parse(NewMessageID())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
	require.NotEqual(t, NewMessageID(), NewMessageID())
}

func TestCreateShowsUpOnce(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha")
	store := h.session.Store

	var views []MessagesView
	defer store.Read(func(v MessagesView) { views = append(views, v) })()

	id := store.Create(context.Background(), "hello", "alpha", "u1")
	require.Equal(t, "m-1", id)
	h.conn.Sync()

	want := []livechat.Message{{
		ID:        "m-1",
		Text:      "hello",
		Handle:    "alpha",
		UserID:    "u1",
		CreatedAt: testNow.UnixMilli(),
	}}
	if diff := cmp.Diff(want, store.Current().Messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, views, 2)
	require.Empty(t, views[0].Messages)
}

func TestReadStartsLoading(t *testing.T) {
	feed := &stuckFeed{}
	store := newMessageStore(feed, deps{logger: livechat.NopLogger{}, metrics: metrics.New(nil), newID: NewMessageID})
	defer store.Close()

	var views []MessagesView
	defer store.Read(func(v MessagesView) { views = append(views, v) })()
	require.Equal(t, []MessagesView{{Loading: true}}, views)

	feed.deliver(livechat.MessagesResult{Messages: []livechat.Message{{ID: "a"}}})
	require.Len(t, views, 2)
	require.False(t, views[1].Loading)
	require.Equal(t, "a", store.Current().Messages[0].ID)
}

func TestUpdateTouchesOnlyText(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha")
	ctx := context.Background()

	id := h.session.Store.Create(ctx, "before", "alpha", "u1")
	h.session.Store.Update(ctx, id, "after")

	txs := h.feed.transactions()
	require.Len(t, txs, 2)
	require.Equal(t, []livechat.Op{livechat.UpdateOp(livechat.CollectionMessages, id, map[string]any{"text": "after"})}, txs[1])
}

func TestDeleteAllIsAtomic(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha")
	store := h.session.Store
	ctx := context.Background()

	ids := []string{
		store.Create(ctx, "one", "alpha", "u1"),
		store.Create(ctx, "two", "alpha", "u1"),
		store.Create(ctx, "three", "alpha", "u1"),
	}
	h.conn.Sync()
	require.Len(t, store.Current().Messages, 3)

	hub.FailNextTransact(errors.New("network down"))
	store.DeleteAll(ctx, ids)
	h.conn.Sync()
	require.Len(t, hub.Messages(), 3)
	require.Len(t, store.Current().Messages, 3)

	store.DeleteAll(ctx, ids)
	h.conn.Sync()
	require.Empty(t, store.Current().Messages)

	txs := h.feed.transactions()
	require.Len(t, txs, 5)
	require.Len(t, txs[3], 3)
	require.Len(t, txs[4], 3)
}

func TestDeleteAllEmptyIssuesNothing(t *testing.T) {
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha")

	h.session.Store.DeleteAll(context.Background(), nil)
	require.Empty(t, h.feed.transactions())
}

func TestStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := memsync.NewHub(testApp)
	h := newHarness(t, hub.Connect(testApp, &livechat.User{ID: "u1"}), "alpha", func(o *Options) {
		o.Registerer = reg
	})
	ctx := context.Background()

	id := h.session.Store.Create(ctx, "hi", "alpha", "u1")
	hub.FailNextTransact(errors.New("network down"))
	h.session.Store.DeleteAll(ctx, []string{id})

	const want = `
# HELP livechat_transactions_total Total transactions submitted to the sync engine
# TYPE livechat_transactions_total counter
livechat_transactions_total{kind="create",result="ok"} 1
livechat_transactions_total{kind="delete_all",result="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "livechat_transactions_total"))
}
