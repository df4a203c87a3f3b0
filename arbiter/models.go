package arbiter

import "time"

const (
	// ReputationBaseline is the score every profile starts with.
	ReputationBaseline = 100
	// ReputationReward is added each time the arbitrator's decision is recorded.
	ReputationReward = 10
)

// Profile mirrors the arbitrators table. One profile per qualified identity;
// profiles are deactivated, never deleted.
type Profile struct {
	PrincipalID     string
	Name            string
	Credentials     string
	Specializations []string
	FeePerCase      int64
	Reputation      int64
	CasesResolved   int
	Active          bool
	RegisteredAt    time.Time
	UpdatedAt       time.Time
}

// RegisterParams enumerates the fields required for self-registration.
type RegisterParams struct {
	PrincipalID     string
	Name            string
	Credentials     string
	Specializations []string
	FeePerCase      int64
}
