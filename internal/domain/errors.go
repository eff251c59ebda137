package domain

import "errors"

// Store errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Conversation errors
var (
	ErrInvalidRole  = errors.New("invalid message role")
	ErrEmptyMessage = errors.New("message content is required")
)
