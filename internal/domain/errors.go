package domain

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrInvalidRole = errors.New("invalid role")
)
