package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAppend_MonotonicIDs(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		m, err := st.Append(ctx, domain.Draft{Content: "hello", Sender: "alice"})
		require.NoError(t, err)
		assert.Greater(t, m.ID, last, "ids strictly increase")
		last = m.ID
	}
}

func TestAppend_IdempotencyKeyDedup(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	key := "a1"
	first, err := st.Append(ctx, domain.Draft{Content: "hi", Sender: "alice", IdempotencyKey: &key})
	require.NoError(t, err)

	second, err := st.Append(ctx, domain.Draft{Content: "hi retry", Sender: "alice", IdempotencyKey: &key})
	require.NoError(t, err, "duplicate key reports success")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hi", second.Content, "original commit wins")

	all, err := st.ReadSince(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1, "no second row for the same key")
}

func TestAppend_NilKeysAreDistinct(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.Append(ctx, domain.Draft{Content: "one", Sender: "alice"})
	require.NoError(t, err)
	_, err = st.Append(ctx, domain.Draft{Content: "two", Sender: "alice"})
	require.NoError(t, err)

	all, err := st.ReadSince(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "absent idempotency keys never collide")
}

func TestReadSince_OrderAndFiltering(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	receiver := "bob"
	for i := 0; i < 4; i++ {
		d := domain.Draft{Content: "m", Sender: "alice"}
		if i%2 == 0 {
			d.Receiver = &receiver
		}
		_, err := st.Append(ctx, d)
		require.NoError(t, err)
	}

	msgs, err := st.ReadSince(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(3), msgs[0].ID)
	assert.Equal(t, int64(4), msgs[1].ID)
	require.NotNil(t, msgs[0].Receiver)
	assert.Equal(t, "bob", *msgs[0].Receiver)
	assert.Nil(t, msgs[1].Receiver)

	limited, err := st.ReadSince(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	empty, err := st.ReadSince(ctx, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReadSince_RoundTripFields(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	key := "k-7"
	committed, err := st.Append(ctx, domain.Draft{Content: "payload", Sender: "alice", IdempotencyKey: &key})
	require.NoError(t, err)
	require.False(t, committed.CreatedAt.IsZero())

	msgs, err := st.ReadSince(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	got := msgs[0]
	assert.Equal(t, committed.ID, got.ID)
	assert.Equal(t, "payload", got.Content)
	assert.Equal(t, "alice", got.Sender)
	require.NotNil(t, got.IdempotencyKey)
	assert.Equal(t, key, *got.IdempotencyKey)
	assert.True(t, got.CreatedAt.Equal(committed.CreatedAt))
}

func TestOpen_EmptyPathRejected(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

var _ store.MessageStore = (*Store)(nil)
