// Package domain contains the core types and contracts shared across the
// application: the session snapshot, the identity collaborators, and the
// trigger sources that feed session reconciliation.
package domain
