package domain

import "time"

// Identity — зарегистрированный участник (identity-aware вариант стора).
// Ссылки messages.sender/receiver указывают на Identity.ID, не на label.
type Identity struct {
	ID        int64     `db:"id"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}
