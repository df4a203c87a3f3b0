package arbiter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipdispute/identity"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNameRequired = errors.New("arbiter: name required")
	ErrZeroFee      = errors.New("arbiter: fee per case must be positive")
	ErrNotOwner     = errors.New("arbiter: caller does not own this profile")
)

// roleDirectory is the slice of the identity service registration needs:
// a successful self-registration grants the arbitrator capability in the
// same transaction as the profile insert.
type roleDirectory interface {
	InsertGrant(ctx context.Context, tx pgx.Tx, principalID string, capability identity.Capability, grantedBy *string) error
}

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service manages the directory of qualified decision-makers.
type Service struct {
	pool  TxBeginner
	repo  Repository
	roles roleDirectory
}

func NewService(pool TxBeginner, repo Repository, roles roleDirectory) *Service {
	return &Service{
		pool:  pool,
		repo:  repo,
		roles: roles,
	}
}

// Register self-registers the caller as an arbitrator. The profile insert
// and the capability grant commit atomically; a second registration for the
// same identity fails with ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, params RegisterParams) (Profile, error) {
	if strings.TrimSpace(params.Name) == "" {
		return Profile{}, ErrNameRequired
	}
	if params.FeePerCase <= 0 {
		return Profile{}, ErrZeroFee
	}
	if params.PrincipalID == "" {
		return Profile{}, fmt.Errorf("arbiter: principal id required")
	}
	if params.Specializations == nil {
		params.Specializations = []string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("arbiter: begin register tx: %w", err)
	}
	defer tx.Rollback(ctx)

	profile, err := s.repo.Insert(ctx, tx, params)
	if err != nil {
		return Profile{}, err
	}

	if err := s.roles.InsertGrant(ctx, tx, params.PrincipalID, identity.CapabilityArbitrator, nil); err != nil {
		return Profile{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Profile{}, fmt.Errorf("arbiter: commit register: %w", err)
	}
	return profile, nil
}

// GetByIdentity returns the profile for a principal.
func (s *Service) GetByIdentity(ctx context.Context, principalID string) (Profile, error) {
	return s.repo.GetByIdentity(ctx, principalID)
}

// List returns every registered profile in registration order.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// SetActive flips the active flag. Only the profile owner may change it;
// inactive arbitrators cannot be assigned to new cases.
func (s *Service) SetActive(ctx context.Context, callerID, principalID string, active bool) (Profile, error) {
	if callerID != principalID {
		return Profile{}, ErrNotOwner
	}
	return s.repo.SetActive(ctx, principalID, active)
}
