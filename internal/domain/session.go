package domain

import (
	"fmt"
	"time"
)

// State is the controller's current belief about the authenticated user.
type State int

const (
	// StateLoading means no reconcile has completed yet.
	StateLoading State = iota
	// StateAuthenticated means the last reconcile resolved a profile.
	StateAuthenticated
	// StateUnauthenticated means there is no usable session.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// MarshalText makes the state render as its name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "loading":
		*s = StateLoading
	case "authenticated":
		*s = StateAuthenticated
	case "unauthenticated":
		*s = StateUnauthenticated
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// Snapshot is the cached view of the authenticated user. Profile is non-nil
// only when State is StateAuthenticated.
type Snapshot struct {
	State   State    `json:"state"`
	Profile *Profile `json:"profile,omitempty"`
}

// Profile holds the identity attributes returned by the identity API.
// The session layer stores and forwards it without interpreting the fields.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	PlanTier    string    `json:"plan_tier,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
