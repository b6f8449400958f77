package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

// New — создаёт *pgxpool.Pool с проверкой Ping().
func New(ctx context.Context, dsn string) (*DB, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

// Migrate накатывает схему. Уникальный индекс по idempotency_key — основа
// дедупликации: проверка происходит при коммите, а не check-then-insert.
func (d *DB) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS identities (
			id         BIGSERIAL PRIMARY KEY,
			label      TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL PRIMARY KEY,
			content         TEXT NOT NULL,
			sender          BIGINT NOT NULL REFERENCES identities(id),
			receiver        BIGINT REFERENCES identities(id),
			idempotency_key TEXT UNIQUE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);`

	_, err := d.Pool.Exec(ctx, schema)
	return err
}
