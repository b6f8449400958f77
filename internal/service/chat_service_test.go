package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeStore struct {
	msgs       []domain.Message
	byKey      map[string]int64
	nextID     int64
	failAppend error
	failRead   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byKey: map[string]int64{}, nextID: 1}
}

func (f *fakeStore) Append(_ context.Context, d domain.Draft) (*domain.Message, error) {
	if f.failAppend != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStorage, f.failAppend)
	}
	if d.IdempotencyKey != nil {
		if id, ok := f.byKey[*d.IdempotencyKey]; ok {
			for i := range f.msgs {
				if f.msgs[i].ID == id {
					m := f.msgs[i]
					return &m, nil
				}
			}
		}
	}
	m := domain.Message{
		ID:             f.nextID,
		Content:        d.Content,
		Sender:         d.Sender,
		Receiver:       d.Receiver,
		IdempotencyKey: d.IdempotencyKey,
	}
	f.nextID++
	f.msgs = append(f.msgs, m)
	if d.IdempotencyKey != nil {
		f.byKey[*d.IdempotencyKey] = m.ID
	}
	return &m, nil
}

func (f *fakeStore) ReadSince(_ context.Context, afterID int64, limit int) ([]domain.Message, error) {
	if f.failRead != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStorage, f.failRead)
	}
	var out []domain.Message
	for _, m := range f.msgs {
		if m.ID > afterID {
			out = append(out, m)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeBus struct {
	events []domain.Event
}

func (f *fakeBus) Publish(_ context.Context, ev domain.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBus) Subscribe(func(domain.Event)) func() { return func() {} }
func (f *fakeBus) Close() error                        { return nil }

// --- Submit ---

func TestSubmit_CommitsThenPublishes(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	ev, err := svc.Submit(context.Background(), domain.Draft{Content: "  hello  ", Sender: "alice"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), ev.ID)
	assert.Equal(t, "hello", ev.Content, "content is trimmed before commit")
	require.Len(t, st.msgs, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, ev.ID, b.events[0].ID, "published event carries the assigned id")
}

func TestSubmit_ValidationRejectsBeforeCommit(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)
	svc.SetMaxMessageLen(10)

	_, err := svc.Submit(context.Background(), domain.Draft{Content: "   ", Sender: "alice"})
	require.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = svc.Submit(context.Background(), domain.Draft{Content: strings.Repeat("x", 11), Sender: "alice"})
	require.ErrorIs(t, err, domain.ErrMessageTooLong)

	_, err = svc.Submit(context.Background(), domain.Draft{Content: "hi"})
	require.ErrorIs(t, err, domain.ErrEmptySender)

	assert.Empty(t, st.msgs)
	assert.Empty(t, b.events)
}

func TestSubmit_DuplicateKeyResolvesToOriginalID(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	key := "a1"
	first, err := svc.Submit(context.Background(), domain.Draft{Content: "hi", Sender: "alice", IdempotencyKey: &key})
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), domain.Draft{Content: "hi", Sender: "alice", IdempotencyKey: &key})
	require.NoError(t, err, "duplicate submission is success, not an error")

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, st.msgs, 1, "exactly one row committed")
}

func TestSubmit_StorageFailureNoPublish(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	st.failAppend = errors.New("disk full")
	_, err := svc.Submit(context.Background(), domain.Draft{Content: "hi", Sender: "alice"})
	require.ErrorIs(t, err, store.ErrStorage)
	assert.Empty(t, b.events, "nothing broadcast without a durable commit")

	// изоляция сбоев: следующая независимая отправка проходит
	st.failAppend = nil
	ev, err := svc.Submit(context.Background(), domain.Draft{Content: "hi again", Sender: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.ID)
	require.Len(t, b.events, 1)
}

func TestSubmit_BlankOptionalFieldsNormalized(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	blank := ""
	_, err := svc.Submit(context.Background(), domain.Draft{
		Content:        "hi",
		Sender:         "alice",
		Receiver:       &blank,
		IdempotencyKey: &blank,
	})
	require.NoError(t, err)
	require.Len(t, st.msgs, 1)
	assert.Nil(t, st.msgs[0].Receiver)
	assert.Nil(t, st.msgs[0].IdempotencyKey)
}

// --- Replay ---

func TestReplay_StreamsInOrderWithoutPublishing(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	for i := 1; i <= 3; i++ {
		_, err := svc.Submit(context.Background(), domain.Draft{Content: fmt.Sprintf("m%d", i), Sender: "alice"})
		require.NoError(t, err)
	}
	published := len(b.events)

	var got []int64
	err := svc.Replay(context.Background(), 1, func(ev domain.Event) error {
		got = append(got, ev.ID)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3}, got)
	assert.Len(t, b.events, published, "replay never re-publishes to the bus")
}

func TestReplay_ReadFailureSurfaced(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	st.failRead = errors.New("io error")
	err := svc.Replay(context.Background(), 0, func(domain.Event) error { return nil })
	require.ErrorIs(t, err, store.ErrStorage)
}

func TestReplay_StopsOnEmitError(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(context.Background(), domain.Draft{Content: "m", Sender: "alice"})
		require.NoError(t, err)
	}

	connClosed := errors.New("connection closed")
	emitted := 0
	err := svc.Replay(context.Background(), 0, func(domain.Event) error {
		emitted++
		if emitted == 2 {
			return connClosed
		}
		return nil
	})
	require.ErrorIs(t, err, connClosed)
	assert.Equal(t, 2, emitted)
}

// --- History ---

func TestHistory_ClampsLimit(t *testing.T) {
	st, b := newFakeStore(), &fakeBus{}
	svc := NewChatService(st, b)

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), domain.Draft{Content: "m", Sender: "alice"})
		require.NoError(t, err)
	}

	msgs, err := svc.History(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = svc.History(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(4), msgs[0].ID)
	assert.Equal(t, int64(5), msgs[1].ID)
}
