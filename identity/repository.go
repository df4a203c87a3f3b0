package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrPrincipalNotFound signals that the principal does not exist.
	ErrPrincipalNotFound = errors.New("identity: principal not found")
	// ErrDuplicateEmail signals that the email is already registered.
	ErrDuplicateEmail = errors.New("identity: email already exists")
)

// Repository handles data access for principals and capability grants.
type Repository interface {
	CreatePrincipal(ctx context.Context, params CreatePrincipalParams) (Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (Principal, error)
	GetPrincipalByID(ctx context.Context, principalID string) (Principal, error)
	HasCapability(ctx context.Context, principalID string, capability Capability) (bool, error)
	ListCapabilities(ctx context.Context, principalID string) ([]Capability, error)
	InsertGrant(ctx context.Context, tx pgx.Tx, principalID string, capability Capability, grantedBy *string) error
	DeleteGrant(ctx context.Context, tx pgx.Tx, principalID string, capability Capability) error
}

// CreatePrincipalParams contains write parameters for creating principals.
type CreatePrincipalParams struct {
	Email        string
	FullName     string
	PasswordHash string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed identity repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreatePrincipal inserts a new principal with hashed password.
func (r *PGRepository) CreatePrincipal(ctx context.Context, params CreatePrincipalParams) (Principal, error) {
	const insertSQL = `
		INSERT INTO principals (email, full_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, full_name, password_hash, created_at, updated_at
	`

	p, err := scanPrincipal(r.pool.QueryRow(ctx, insertSQL, params.Email, params.FullName, params.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Principal{}, ErrDuplicateEmail
		}
		return Principal{}, fmt.Errorf("identity: create principal: %w", err)
	}

	return p, nil
}

// GetPrincipalByEmail retrieves a principal by email address.
func (r *PGRepository) GetPrincipalByEmail(ctx context.Context, email string) (Principal, error) {
	const selectSQL = `
		SELECT id, email, full_name, password_hash, created_at, updated_at
		FROM principals
		WHERE email = $1
	`

	p, err := scanPrincipal(r.pool.QueryRow(ctx, selectSQL, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, fmt.Errorf("identity: get principal by email: %w", err)
	}

	return p, nil
}

// GetPrincipalByID retrieves a principal by ID.
func (r *PGRepository) GetPrincipalByID(ctx context.Context, principalID string) (Principal, error) {
	const selectSQL = `
		SELECT id, email, full_name, password_hash, created_at, updated_at
		FROM principals
		WHERE id = $1
	`

	p, err := scanPrincipal(r.pool.QueryRow(ctx, selectSQL, principalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, fmt.Errorf("identity: get principal by id: %w", err)
	}

	return p, nil
}

// HasCapability reports whether the principal currently holds the capability.
func (r *PGRepository) HasCapability(ctx context.Context, principalID string, capability Capability) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM capabilities WHERE principal_id = $1 AND capability = $2
		)
	`
	var held bool
	if err := r.pool.QueryRow(ctx, query, principalID, capability).Scan(&held); err != nil {
		return false, fmt.Errorf("identity: check capability: %w", err)
	}
	return held, nil
}

// ListCapabilities returns every capability held by the principal.
func (r *PGRepository) ListCapabilities(ctx context.Context, principalID string) ([]Capability, error) {
	const query = `
		SELECT capability FROM capabilities WHERE principal_id = $1 ORDER BY capability
	`
	rows, err := r.pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("identity: list capabilities: %w", err)
	}
	defer rows.Close()

	out := make([]Capability, 0, 3)
	for rows.Next() {
		var c Capability
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("identity: scan capability: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: iterate capabilities: %w", err)
	}
	return out, nil
}

// InsertGrant records a capability grant inside the caller's transaction.
// Granting an already-held capability is a no-op.
func (r *PGRepository) InsertGrant(ctx context.Context, tx pgx.Tx, principalID string, capability Capability, grantedBy *string) error {
	const insertSQL = `
		INSERT INTO capabilities (principal_id, capability, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (principal_id, capability) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertSQL, principalID, capability, grantedBy); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("identity: insert grant: %w", err)
	}
	return nil
}

// DeleteGrant removes a capability grant inside the caller's transaction.
func (r *PGRepository) DeleteGrant(ctx context.Context, tx pgx.Tx, principalID string, capability Capability) error {
	const deleteSQL = `
		DELETE FROM capabilities WHERE principal_id = $1 AND capability = $2
	`
	if _, err := tx.Exec(ctx, deleteSQL, principalID, capability); err != nil {
		return fmt.Errorf("identity: delete grant: %w", err)
	}
	return nil
}

func scanPrincipal(row pgx.Row) (Principal, error) {
	var p Principal
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.PasswordHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Principal{}, err
	}
	return p, nil
}
