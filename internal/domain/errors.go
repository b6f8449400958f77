package domain

import "errors"

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
	ErrEmptySender    = errors.New("sender is required")

	ErrEmptyLabel       = errors.New("identity label is required")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityExists   = errors.New("identity already exists")
	ErrBadIdentityRef   = errors.New("identity ref must be a positive integer")
)
