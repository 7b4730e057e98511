package tokens

import "errors"

var (
	ErrWeakSecret   = errors.New("tokens: signing secret must be at least 32 bytes")
	ErrInvalidTTL   = errors.New("tokens: ttl must be positive")
	ErrMalformed    = errors.New("tokens: malformed token")
	ErrExpired      = errors.New("tokens: token expired")
	ErrBadSignature = errors.New("tokens: signature verification failed")
)
