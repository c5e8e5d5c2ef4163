package errors

import "errors"

var (
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrCacheOperation    = errors.New("cache operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrUserNotFound      = errors.New("user not found")
	ErrUnauthorized      = errors.New("unauthorized")
)
