package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/bus"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/store"
)

type ChatService struct {
	store store.MessageStore
	bus   bus.Bus

	maxMessageLen int
	replayLimit   int
}

func NewChatService(st store.MessageStore, b bus.Bus) *ChatService {
	return &ChatService{
		store:         st,
		bus:           b,
		maxMessageLen: 4000,
	}
}

func (s *ChatService) SetMaxMessageLen(n int) {
	if n > 0 {
		s.maxMessageLen = n
	}
}

func (s *ChatService) SetReplayLimit(n int) {
	if n > 0 {
		s.replayLimit = n
	}
}

// Submit проводит сообщение по конвейеру: валидация → идемпотентный коммит →
// publish в шину. Событие возвращается только после устойчивого коммита, так
// что ack отправителю никогда не опережает запись. Сбой стора — ошибка
// отправителю, без publish.
func (s *ChatService) Submit(ctx context.Context, d domain.Draft) (domain.Event, error) {
	d.Content = strings.TrimSpace(d.Content)
	if d.Content == "" {
		return domain.Event{}, domain.ErrEmptyMessage
	}
	if len(d.Content) > s.maxMessageLen {
		return domain.Event{}, domain.ErrMessageTooLong
	}
	d.Sender = strings.TrimSpace(d.Sender)
	if d.Sender == "" {
		return domain.Event{}, domain.ErrEmptySender
	}
	if d.Receiver != nil && strings.TrimSpace(*d.Receiver) == "" {
		d.Receiver = nil
	}
	if d.IdempotencyKey != nil && *d.IdempotencyKey == "" {
		d.IdempotencyKey = nil
	}

	msg, err := s.store.Append(ctx, d)
	if err != nil {
		metrics.StorageFailures.Inc()
		slog.Error("chat: append failed", "sender", d.Sender, "err", err)
		return domain.Event{}, err
	}
	metrics.MessagesIngested.Inc()

	ev := domain.EventFromMessage(*msg)
	// publish строго после коммита; отказ relay не отменяет успех записи
	if err := s.bus.Publish(ctx, ev); err != nil {
		slog.Warn("chat: publish failed", "id", ev.ID, "err", err)
	} else {
		metrics.EventsPublished.Inc()
	}
	return ev, nil
}

// Replay стримит через emit всё с id > afterID, по возрастанию, одному
// соединению. В шину не публикует: это повтор, а не новое событие.
func (s *ChatService) Replay(ctx context.Context, afterID int64, emit func(domain.Event) error) error {
	if afterID < 0 {
		afterID = 0
	}
	msgs, err := s.store.ReadSince(ctx, afterID, s.replayLimit)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := emit(domain.EventFromMessage(m)); err != nil {
			// соединение закрылось — дальше не доставляем
			return err
		}
		metrics.MessagesReplayed.Inc()
	}
	return nil
}

// History — постраничное чтение ленты для REST.
func (s *ChatService) History(ctx context.Context, afterID int64, limit int) ([]domain.Message, error) {
	if afterID < 0 {
		afterID = 0
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.store.ReadSince(ctx, afterID, limit)
}
