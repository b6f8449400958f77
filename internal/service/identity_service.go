package service

import (
	"context"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
)

// IdentityService — регистрация и поиск участников. Есть только в
// identity-aware конфигурации (postgres-бэкенд).
type IdentityService struct {
	dir store.IdentityDirectory
}

func NewIdentityService(dir store.IdentityDirectory) *IdentityService {
	return &IdentityService{dir: dir}
}

func (s *IdentityService) Create(ctx context.Context, label string) (*domain.Identity, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, domain.ErrEmptyLabel
	}
	return s.dir.CreateIdentity(ctx, label)
}

func (s *IdentityService) Get(ctx context.Context, ref int64) (*domain.Identity, error) {
	if ref <= 0 {
		return nil, domain.ErrBadIdentityRef
	}
	return s.dir.GetIdentity(ctx, ref)
}
