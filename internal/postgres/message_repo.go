package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Identity-normalized бэкенд: sender/receiver — BIGINT-ссылки на identities,
// исходящие строки обогащаются label-ами через join при чтении и коммите.
type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `m.id, m.content, m.sender, m.receiver, si.label, ri.label, m.idempotency_key, m.created_at`

func (r *MessageRepository) Append(ctx context.Context, d domain.Draft) (*domain.Message, error) {
	sender, err := parseRef(d.Sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	var receiver *int64
	if d.Receiver != nil {
		ref, err := parseRef(*d.Receiver)
		if err != nil {
			return nil, fmt.Errorf("receiver: %w", err)
		}
		receiver = &ref
	}

	row := r.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO messages (content, sender, receiver, idempotency_key)
			VALUES ($1, $2, $3, $4)
			RETURNING id, content, sender, receiver, idempotency_key, created_at
		)
		SELECT `+messageColumns+`
		FROM ins m
		JOIN identities si ON si.id = m.sender
		LEFT JOIN identities ri ON ri.id = m.receiver
	`, d.Content, sender, receiver, d.IdempotencyKey)

	m, err := scanMessage(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505" && d.IdempotencyKey != nil:
				// дубликат idempotency key — успех: отдаём исходный commit
				metrics.DuplicateSubmissions.Inc()
				return r.byIdempotencyKey(ctx, *d.IdempotencyKey)
			case pgErr.Code == "23503":
				return nil, fmt.Errorf("%w: sender/receiver ref", domain.ErrIdentityNotFound)
			}
		}
		return nil, fmt.Errorf("%w: append: %v", store.ErrStorage, err)
	}
	return m, nil
}

func (r *MessageRepository) ReadSince(ctx context.Context, afterID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN identities si ON si.id = m.sender
		LEFT JOIN identities ri ON ri.id = m.receiver
		WHERE m.id > $1
		ORDER BY m.id ASC`
	args := []any{afterID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: read since: %v", store.ErrStorage, err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: read since: %v", store.ErrStorage, err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read since: %v", store.ErrStorage, err)
	}
	return out, nil
}

func (r *MessageRepository) byIdempotencyKey(ctx context.Context, key string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN identities si ON si.id = m.sender
		LEFT JOIN identities ri ON ri.id = m.receiver
		WHERE m.idempotency_key = $1
	`, key)

	m, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lookup: %v", store.ErrStorage, err)
	}
	return m, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m        domain.Message
		sender   int64
		receiver *int64
	)
	if err := row.Scan(&m.ID, &m.Content, &sender, &receiver,
		&m.SenderLabel, &m.ReceiverLabel, &m.IdempotencyKey, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Sender = strconv.FormatInt(sender, 10)
	if receiver != nil {
		s := strconv.FormatInt(*receiver, 10)
		m.Receiver = &s
	}
	return &m, nil
}

func parseRef(s string) (int64, error) {
	ref, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ref <= 0 {
		return 0, domain.ErrBadIdentityRef
	}
	return ref, nil
}
