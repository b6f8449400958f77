package bus

import (
	"context"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_FanOutToAllSubscribers(t *testing.T) {
	b := NewLocal()

	var got1, got2 []domain.Event
	unsub1 := b.Subscribe(func(ev domain.Event) { got1 = append(got1, ev) })
	unsub2 := b.Subscribe(func(ev domain.Event) { got2 = append(got2, ev) })
	defer unsub1()
	defer unsub2()

	require.NoError(t, b.Publish(context.Background(), domain.Event{ID: 1, Content: "hello", Sender: "bob"}))

	require.Len(t, got1, 1)
	require.Len(t, got2, 1)
	assert.Equal(t, int64(1), got1[0].ID)
	assert.Equal(t, "hello", got2[0].Content)
}

func TestLocal_Unsubscribe(t *testing.T) {
	b := NewLocal()

	var got []domain.Event
	unsub := b.Subscribe(func(ev domain.Event) { got = append(got, ev) })

	require.NoError(t, b.Publish(context.Background(), domain.Event{ID: 1}))
	unsub()
	require.NoError(t, b.Publish(context.Background(), domain.Event{ID: 2}))

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	// повторный unsubscribe безопасен
	unsub()
}

func TestLocal_PublishWithoutSubscribers(t *testing.T) {
	b := NewLocal()

	require.NoError(t, b.Publish(context.Background(), domain.Event{ID: 42}))
	require.NoError(t, b.Close())
}
