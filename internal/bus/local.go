package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Local — процесс-локальный fanout. Сам по себе — шина одиночного процесса;
// Postgres-relay использует его как локальное плечо доставки.
type Local struct {
	mu   sync.RWMutex
	subs map[uint64]func(domain.Event)
	seq  atomic.Uint64
}

func NewLocal() *Local {
	return &Local{subs: make(map[uint64]func(domain.Event))}
}

func (b *Local) Publish(_ context.Context, ev domain.Event) error {
	b.dispatch(ev)
	return nil
}

func (b *Local) Subscribe(h func(domain.Event)) func() {
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Local) Close() error { return nil }

func (b *Local) dispatch(ev domain.Event) {
	// снапшот под RLock, вызовы — без блокировки карты
	b.mu.RLock()
	hs := make([]func(domain.Event), 0, len(b.subs))
	for _, h := range b.subs {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ev)
	}
}
