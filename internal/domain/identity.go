package domain

import "github.com/google/uuid"

const (
	RoleBidder = "bidder"
	RoleHost   = "host"
)

// Identity is the verified caller supplied by the authentication layer.
// The core trusts it as-is and never re-checks credentials.
type Identity struct {
	SubjectID uuid.UUID
	Role      string
}
