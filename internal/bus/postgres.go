package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres — межпроцессный relay поверх LISTEN/NOTIFY. Payload — JSON
// domain.Event. Локальная доставка идёт через собственный LISTEN
// (loop-back), поэтому успешный Publish подписчиков напрямую не зовёт —
// только при деградации, когда notify не прошёл: тогда хотя бы соединения
// этого процесса получают событие.
type Postgres struct {
	pool    *pgxpool.Pool
	channel string
	local   *Local
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPostgres(ctx context.Context, pool *pgxpool.Pool, channel string) *Postgres {
	if channel == "" {
		channel = "chat_events"
	}
	ctx, cancel := context.WithCancel(ctx)
	b := &Postgres{
		pool:    pool,
		channel: channel,
		local:   NewLocal(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.listen(ctx)
	return b
}

func (b *Postgres) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: marshal event: %w", err)
	}

	if _, err := b.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, b.channel, string(payload)); err != nil {
		// relay недоступен: событие уже закоммичено, доставляем хотя бы
		// локальным соединениям; остальные процессы догонят через replay
		slog.Warn("bus: pg_notify failed, local-only delivery", "id", ev.ID, "err", err)
		metrics.RelayFailures.Inc()
		b.local.dispatch(ev)
	}
	return nil
}

func (b *Postgres) Subscribe(h func(domain.Event)) func() {
	return b.local.Subscribe(h)
}

func (b *Postgres) Close() error {
	b.cancel()
	<-b.done
	return nil
}

func (b *Postgres) listen(ctx context.Context) {
	defer close(b.done)

	for {
		err := b.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("bus: listener lost, reconnecting", "channel", b.channel, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (b *Postgres) listenOnce(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			slog.Warn("bus: bad event payload", "channel", b.channel, "err", err)
			continue
		}
		b.local.dispatch(ev)
	}
}
