package auth

import "errors"

var (
	// ErrNoIdentity means no caller identity could be resolved (401).
	ErrNoIdentity = errors.New("auth: no identity")
	// ErrForbidden means the identity lacks the required permission (403).
	ErrForbidden = errors.New("auth: forbidden")
	// ErrCheckFailed means the authorization decision itself failed; the
	// caller must fail closed (500).
	ErrCheckFailed = errors.New("auth: authorization check failed")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnknownRole  = errors.New("auth: unknown role")
	ErrInvalidToken = errors.New("auth: invalid token")
)
