package adapter

import "errors"

var (
	ErrNotFound     = errors.New("adapter: record not found")
	ErrUnknownModel = errors.New("adapter: unknown model")
	ErrInvalidWhere = errors.New("adapter: invalid where clause")
)
