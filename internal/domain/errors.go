package domain

import "errors"

var (
	// ErrNoCredential is returned when an operation needs a token pair and
	// the local store has none.
	ErrNoCredential = errors.New("no local credential")

	// ErrSessionRevoked is returned when the identity provider rejects the
	// credential even after a silent refresh attempt.
	ErrSessionRevoked = errors.New("session revoked by identity provider")
)
