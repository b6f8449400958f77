package service

import (
	"context"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	nextID int64
	byID   map[int64]*domain.Identity
	byName map[string]*domain.Identity
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{nextID: 1, byID: map[int64]*domain.Identity{}, byName: map[string]*domain.Identity{}}
}

func (f *fakeDirectory) CreateIdentity(_ context.Context, label string) (*domain.Identity, error) {
	if _, ok := f.byName[label]; ok {
		return nil, domain.ErrIdentityExists
	}
	ident := &domain.Identity{ID: f.nextID, Label: label}
	f.nextID++
	f.byID[ident.ID] = ident
	f.byName[label] = ident
	return ident, nil
}

func (f *fakeDirectory) GetIdentity(_ context.Context, ref int64) (*domain.Identity, error) {
	ident, ok := f.byID[ref]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return ident, nil
}

func TestIdentityService_CreateAndGet(t *testing.T) {
	svc := NewIdentityService(newFakeDirectory())

	ident, err := svc.Create(context.Background(), "  carol  ")
	require.NoError(t, err)
	assert.Equal(t, "carol", ident.Label, "label is trimmed")

	got, err := svc.Get(context.Background(), ident.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Label)

	_, err = svc.Create(context.Background(), "carol")
	require.ErrorIs(t, err, domain.ErrIdentityExists)
}

func TestIdentityService_Validation(t *testing.T) {
	svc := NewIdentityService(newFakeDirectory())

	_, err := svc.Create(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrEmptyLabel)

	_, err = svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrBadIdentityRef)

	_, err = svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrIdentityNotFound)
}
