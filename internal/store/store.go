package store

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// ErrStorage — отказ стора: I/O либо нарушение ограничений, кроме дубликата
// idempotency key. Вызывающий обязан не публиковать событие и вернуть
// ошибку отправителю.
var ErrStorage = errors.New("storage failure")

// MessageStore — append-only журнал сообщений. Единственный владелец id:
// значения строго возрастают и не переиспользуются.
type MessageStore interface {
	// Append коммитит сообщение. Повтор известного idempotency key —
	// не ошибка: возвращается ранее закоммиченная строка.
	Append(ctx context.Context, d domain.Draft) (*domain.Message, error)

	// ReadSince возвращает все сообщения с id > afterID по возрастанию id.
	// Снимок конечен и считается один раз на вызов; limit <= 0 — без лимита.
	ReadSince(ctx context.Context, afterID int64, limit int) ([]domain.Message, error)
}

// IdentityDirectory — справочник участников (identity-aware вариант).
type IdentityDirectory interface {
	CreateIdentity(ctx context.Context, label string) (*domain.Identity, error)
	GetIdentity(ctx context.Context, ref int64) (*domain.Identity, error)
}
