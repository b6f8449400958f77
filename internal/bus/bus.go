package bus

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Bus — шина «message committed»: доводит событие до подписчиков всех
// процессов, включая процесс-отправитель (loop-back).
//
// Контракт:
//   - Publish — fire-and-forget, best-effort; порядок между независимыми
//     Publish из разных процессов не гарантируется.
//   - Subscribe регистрирует процесс-локальный обработчик; обработчики
//     не должны блокировать.
//   - Пропуск доставки закрывается replay-ем при реконнекте, не шиной.
type Bus interface {
	Publish(ctx context.Context, ev domain.Event) error
	Subscribe(h func(domain.Event)) (unsubscribe func())
	Close() error
}
