package repo

import "github.com/google/uuid"

// NewID generates an opaque identifier for any entity in §3's data
// model, per spec.md's "Identifiers are opaque strings (UUID
// recommended)".
func NewID() string {
	return uuid.NewString()
}
