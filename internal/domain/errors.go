package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoActiveKey     = errors.New("no active credential for provider")
	ErrInvalidKey      = errors.New("invalid api key")
	ErrProviderFailure = errors.New("provider failure")
)
