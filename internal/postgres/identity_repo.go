package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IdentityRepository struct {
	db *pgxpool.Pool
}

func NewIdentityRepository(db *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) CreateIdentity(ctx context.Context, label string) (*domain.Identity, error) {
	ident := domain.Identity{Label: label}
	err := r.db.QueryRow(ctx,
		`INSERT INTO identities (label) VALUES ($1) RETURNING id, created_at`,
		label).Scan(&ident.ID, &ident.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrIdentityExists
		}
		return nil, fmt.Errorf("%w: create identity: %v", store.ErrStorage, err)
	}
	return &ident, nil
}

func (r *IdentityRepository) GetIdentity(ctx context.Context, ref int64) (*domain.Identity, error) {
	var ident domain.Identity
	err := r.db.QueryRow(ctx,
		`SELECT id, label, created_at FROM identities WHERE id = $1`,
		ref).Scan(&ident.ID, &ident.Label, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("%w: get identity: %v", store.ErrStorage, err)
	}
	return &ident, nil
}
