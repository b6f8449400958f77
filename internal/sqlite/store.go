package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/store"

	_ "modernc.org/sqlite"
)

// Plain бэкенд: sender/receiver хранятся как есть (free-text label),
// без справочника identities. AUTOINCREMENT гарантирует, что id не
// переиспользуются после удаления строк.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	content         TEXT NOT NULL,
	sender          TEXT NOT NULL,
	receiver        TEXT,
	idempotency_key TEXT UNIQUE,
	created_at      TEXT NOT NULL
);`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// один writer: sqlite плохо переносит конкурентные записи
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, d domain.Draft) (*domain.Message, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (content, sender, receiver, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`,
		d.Content, d.Sender, nullStr(d.Receiver), nullStr(d.IdempotencyKey),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: append: %v", store.ErrStorage, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: append: %v", store.ErrStorage, err)
	}
	if affected == 0 {
		if d.IdempotencyKey == nil {
			return nil, fmt.Errorf("%w: append: no row inserted", store.ErrStorage)
		}
		// дубликат idempotency key — успех: отдаём исходный commit
		metrics.DuplicateSubmissions.Inc()
		return s.byIdempotencyKey(ctx, *d.IdempotencyKey)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: append: %v", store.ErrStorage, err)
	}

	return &domain.Message{
		ID:             id,
		Content:        d.Content,
		Sender:         d.Sender,
		Receiver:       d.Receiver,
		IdempotencyKey: d.IdempotencyKey,
		CreatedAt:      now,
	}, nil
}

func (s *Store) ReadSince(ctx context.Context, afterID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, content, sender, receiver, idempotency_key, created_at
		FROM messages
		WHERE id > ?
		ORDER BY id ASC`
	args := []any{afterID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: read since: %v", store.ErrStorage, err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
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

func (s *Store) byIdempotencyKey(ctx context.Context, key string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, sender, receiver, idempotency_key, created_at
		FROM messages
		WHERE idempotency_key = ?`, key)

	m, err := scanMessage(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lookup: %v", store.ErrStorage, err)
	}
	return m, nil
}

func scanMessage(scan func(...any) error) (*domain.Message, error) {
	var (
		m         domain.Message
		receiver  sql.NullString
		key       sql.NullString
		createdAt string
	)
	if err := scan(&m.ID, &m.Content, &m.Sender, &receiver, &key, &createdAt); err != nil {
		return nil, err
	}
	if receiver.Valid {
		m.Receiver = &receiver.String
	}
	if key.Valid {
		m.IdempotencyKey = &key.String
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = ts
	return &m, nil
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
