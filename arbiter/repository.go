package arbiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("arbiter: profile not found")
	ErrAlreadyRegistered = errors.New("arbiter: identity already registered")
)

// Repository handles data access for arbitrator profiles.
type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, params RegisterParams) (Profile, error)
	GetByIdentity(ctx context.Context, principalID string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	SetActive(ctx context.Context, principalID string, active bool) (Profile, error)
	ProfileForAssignment(ctx context.Context, tx pgx.Tx, principalID string) (Profile, error)
	RecordDecision(ctx context.Context, tx pgx.Tx, principalID string) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `principal_id, name, credentials, specializations, fee_per_case, reputation, cases_resolved, active, registered_at, updated_at`

// Insert creates a profile inside the caller's transaction so registration
// and the capability grant commit together.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, params RegisterParams) (Profile, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO arbitrators (principal_id, name, credentials, specializations, fee_per_case, reputation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, profileColumns)

	p, err := scanProfile(tx.QueryRow(ctx, insertSQL,
		params.PrincipalID,
		params.Name,
		params.Credentials,
		params.Specializations,
		params.FeePerCase,
		ReputationBaseline,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Profile{}, ErrAlreadyRegistered
		}
		return Profile{}, fmt.Errorf("arbiter: insert profile: %w", err)
	}
	return p, nil
}

func (r *PGRepository) GetByIdentity(ctx context.Context, principalID string) (Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM arbitrators WHERE principal_id = $1`, profileColumns)

	p, err := scanProfile(r.pool.QueryRow(ctx, query, principalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("arbiter: get profile: %w", err)
	}
	return p, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM arbitrators ORDER BY registered_at`, profileColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("arbiter: list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]Profile, 0, 8)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("arbiter: scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("arbiter: iterate profiles: %w", err)
	}
	return out, nil
}

func (r *PGRepository) SetActive(ctx context.Context, principalID string, active bool) (Profile, error) {
	query := fmt.Sprintf(`
		UPDATE arbitrators
		SET active = $2, updated_at = NOW()
		WHERE principal_id = $1
		RETURNING %s
	`, profileColumns)

	p, err := scanProfile(r.pool.QueryRow(ctx, query, principalID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("arbiter: set active: %w", err)
	}
	return p, nil
}

// ProfileForAssignment locks and returns the profile inside the caller's
// transaction; the dispute core reads the per-case fee from it.
func (r *PGRepository) ProfileForAssignment(ctx context.Context, tx pgx.Tx, principalID string) (Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM arbitrators WHERE principal_id = $1 FOR UPDATE`, profileColumns)

	p, err := scanProfile(tx.QueryRow(ctx, query, principalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("arbiter: profile for assignment: %w", err)
	}
	return p, nil
}

// RecordDecision bumps the case counter and reputation inside the caller's
// transaction. Only the dispute core calls this, when a decision is recorded.
func (r *PGRepository) RecordDecision(ctx context.Context, tx pgx.Tx, principalID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE arbitrators
		SET cases_resolved = cases_resolved + 1,
		    reputation = reputation + $2,
		    updated_at = NOW()
		WHERE principal_id = $1
	`, principalID, ReputationReward)
	if err != nil {
		return fmt.Errorf("arbiter: record decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.PrincipalID,
		&p.Name,
		&p.Credentials,
		&p.Specializations,
		&p.FeePerCase,
		&p.Reputation,
		&p.CasesResolved,
		&p.Active,
		&p.RegisteredAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}
