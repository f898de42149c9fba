package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPrompt   = errors.New("invalid prompt")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrProviderFailure = errors.New("provider failure")
)
