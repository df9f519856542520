package domain

import (
	"context"
	"time"
)

// IdentityClient talks to the remote identity provider. FetchProfile may
// perform its own silent refresh-and-retry before failing; callers treat any
// returned error as the session being over.
type IdentityClient interface {
	FetchProfile(ctx context.Context) (*Profile, error)
	Logout(ctx context.Context) error
}

// TokenPair is the locally held credential.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// IsZero reports whether the pair holds no credential at all.
func (t TokenPair) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// CredentialStore owns the local credential. HasCredential is synchronous and
// side-effect-free; it is the cheap presence check that lets reconciliation
// skip the network entirely.
type CredentialStore interface {
	HasCredential() bool
	Tokens() (TokenPair, error)
	Save(pair TokenPair) error
	Clear() error
}
