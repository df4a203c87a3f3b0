package identity

import "time"

// Capability is a named permission a principal may hold.
type Capability string

const (
	CapabilityAdmin      Capability = "admin"
	CapabilityMediator   Capability = "mediator"
	CapabilityArbitrator Capability = "arbitrator"
)

// Principal is the domain representation of an authenticated identity.
// It mirrors the principals table and should not include JSON annotations so
// it can be reused by different presentation layers.
type Principal struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains principal registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Grant records one capability held by a principal.
type Grant struct {
	PrincipalID string
	Capability  Capability
	GrantedBy   *string
	GrantedAt   time.Time
}

func isValidCapability(c Capability) bool {
	switch c {
	case CapabilityAdmin, CapabilityMediator, CapabilityArbitrator:
		return true
	default:
		return false
	}
}
