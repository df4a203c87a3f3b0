package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository backed by PostgreSQL. All mutating
// methods run inside the caller's transaction; queries use the pool.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const disputeColumns = `
	id, category::text, status::text, plaintiff_id, defendant_id, mediator_id, arbitrator_id,
	ip_record_id, ip_contract_ref, title, description, claimed_damages,
	filed_at, response_deadline, resolved_at, decision, winner_id, award,
	escrow_balance, appealed, enforceable, updated_at`

// Insert creates a dispute row in FILED status.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, plaintiffID string, params FileParams, deadline time.Time) (Record, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO disputes (category, plaintiff_id, defendant_id, ip_record_id, ip_contract_ref, title, description, claimed_damages, response_deadline)
		VALUES ($1::dispute_category, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s
	`, disputeColumns)

	rec, err := scanDispute(tx.QueryRow(ctx, insertSQL,
		params.Category,
		plaintiffID,
		params.DefendantID,
		params.IPRecordID,
		params.IPContractRef,
		params.Title,
		params.Description,
		params.ClaimedDamages,
		deadline,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return Record{}, fmt.Errorf("%w: unknown party", ErrValidation)
			case "23514":
				return Record{}, fmt.Errorf("%w: constraint %s", ErrValidation, pgErr.ConstraintName)
			}
		}
		return Record{}, fmt.Errorf("dispute: insert: %w", err)
	}
	return rec, nil
}

// GetForUpdate locks the dispute row for the remainder of the transaction,
// serializing concurrent mutations of the same dispute.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE id = $1 FOR UPDATE`, disputeColumns)

	rec, err := scanDispute(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: get for update: %w", err)
	}
	return rec, nil
}

// SetMediation moves the dispute into MEDIATION with the assigned mediator.
func (r *PGRepository) SetMediation(ctx context.Context, tx pgx.Tx, id int64, mediatorID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE disputes
		SET status = 'mediation', mediator_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, mediatorID); err != nil {
		return fmt.Errorf("dispute: set mediation: %w", err)
	}
	return nil
}

// SetArbitration moves the dispute into ARBITRATION with the assigned arbitrator.
func (r *PGRepository) SetArbitration(ctx context.Context, tx pgx.Tx, id int64, arbitratorID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE disputes
		SET status = 'arbitration', arbitrator_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, arbitratorID); err != nil {
		return fmt.Errorf("dispute: set arbitration: %w", err)
	}
	return nil
}

// SetResolved records the decision and marks the dispute RESOLVED and enforceable.
func (r *PGRepository) SetResolved(ctx context.Context, tx pgx.Tx, id int64, params DecisionParams, resolvedAt time.Time) error {
	if _, err := tx.Exec(ctx, `
		UPDATE disputes
		SET status = 'resolved',
		    winner_id = $2,
		    award = $3,
		    decision = $4,
		    resolved_at = $5,
		    enforceable = TRUE,
		    updated_at = NOW()
		WHERE id = $1
	`, id, params.WinnerID, params.Award, params.Decision, resolvedAt); err != nil {
		return fmt.Errorf("dispute: set resolved: %w", err)
	}
	return nil
}

// AddEscrow increases the dispute's escrow balance.
func (r *PGRepository) AddEscrow(ctx context.Context, tx pgx.Tx, id int64, amount int64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE disputes
		SET escrow_balance = escrow_balance + $2, updated_at = NOW()
		WHERE id = $1
	`, id, amount); err != nil {
		return fmt.Errorf("dispute: add escrow: %w", err)
	}
	return nil
}

// SetEnforced drains the escrow balance and marks the dispute ENFORCED.
func (r *PGRepository) SetEnforced(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE disputes
		SET status = 'enforced', escrow_balance = 0, enforceable = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("dispute: set enforced: %w", err)
	}
	return nil
}

// InsertEvidence appends an evidence record with the next dispute-scoped seq.
func (r *PGRepository) InsertEvidence(ctx context.Context, tx pgx.Tx, disputeID int64, submitterID string, params EvidenceParams) (Evidence, error) {
	const insertSQL = `
		INSERT INTO dispute_evidence (dispute_id, seq, submitter_id, kind, title, description, content_hash)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3::evidence_kind, $4, $5, $6
		FROM dispute_evidence
		WHERE dispute_id = $1
		RETURNING dispute_id, seq, submitter_id, kind::text, title, description, content_hash, submitted_at, admitted, rejection_reason
	`

	var ev Evidence
	err := tx.QueryRow(ctx, insertSQL,
		disputeID,
		submitterID,
		params.Kind,
		params.Title,
		params.Description,
		params.ContentHash,
	).Scan(
		&ev.DisputeID,
		&ev.Seq,
		&ev.SubmitterID,
		&ev.Kind,
		&ev.Title,
		&ev.Description,
		&ev.ContentHash,
		&ev.SubmittedAt,
		&ev.Admitted,
		&ev.RejectionReason,
	)
	if err != nil {
		return Evidence{}, fmt.Errorf("dispute: insert evidence: %w", err)
	}
	return ev, nil
}

// AppendEvent writes an immutable business event within the transaction.
func (r *PGRepository) AppendEvent(ctx context.Context, tx pgx.Tx, disputeID int64, eventType string, actorID *string, payload map[string]any) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO dispute_events (dispute_id, seq, type, actor_id, payload)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4::jsonb
		FROM dispute_events
		WHERE dispute_id = $1
	`, disputeID, eventType, actorID, toJSON(payload)); err != nil {
		return fmt.Errorf("dispute: append event: %w", err)
	}
	return nil
}

// EnqueueOutbox records an outbox message within the transaction.
func (r *PGRepository) EnqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO outbox (topic, payload)
		VALUES ($1, $2::jsonb)
	`, topic, toJSON(payload)); err != nil {
		return fmt.Errorf("dispute: enqueue outbox: %w", err)
	}
	return nil
}

// GetByID returns the dispute record without its evidence collection.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE id = $1`, disputeColumns)

	rec, err := scanDispute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: get by id: %w", err)
	}
	return rec, nil
}

// ListIDsByParty returns dispute ids where the principal is plaintiff or
// defendant, in filing order.
func (r *PGRepository) ListIDsByParty(ctx context.Context, principalID string) ([]int64, error) {
	const query = `
		SELECT id FROM disputes
		WHERE plaintiff_id = $1 OR defendant_id = $1
		ORDER BY id
	`
	return r.listIDs(ctx, query, principalID)
}

// ListIDsByIPRecord returns dispute ids referencing the IP record, in filing order.
func (r *PGRepository) ListIDsByIPRecord(ctx context.Context, ipRecordID int64) ([]int64, error) {
	const query = `
		SELECT id FROM disputes
		WHERE ip_record_id = $1
		ORDER BY id
	`
	return r.listIDs(ctx, query, ipRecordID)
}

func (r *PGRepository) listIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("dispute: list ids: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0, 8)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dispute: scan id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate ids: %w", err)
	}
	return out, nil
}

const evidenceColumns = `dispute_id, seq, submitter_id, kind::text, title, description, content_hash, submitted_at, admitted, rejection_reason`

// GetEvidence returns one evidence item by dispute id and sequence index.
func (r *PGRepository) GetEvidence(ctx context.Context, disputeID int64, seq int) (Evidence, error) {
	query := fmt.Sprintf(`SELECT %s FROM dispute_evidence WHERE dispute_id = $1 AND seq = $2`, evidenceColumns)

	var ev Evidence
	err := r.pool.QueryRow(ctx, query, disputeID, seq).Scan(
		&ev.DisputeID, &ev.Seq, &ev.SubmitterID, &ev.Kind, &ev.Title,
		&ev.Description, &ev.ContentHash, &ev.SubmittedAt, &ev.Admitted, &ev.RejectionReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Evidence{}, ErrNotFound
		}
		return Evidence{}, fmt.Errorf("dispute: get evidence: %w", err)
	}
	return ev, nil
}

// ListEvidence returns every evidence item for a dispute in submission order.
func (r *PGRepository) ListEvidence(ctx context.Context, disputeID int64) ([]Evidence, error) {
	query := fmt.Sprintf(`SELECT %s FROM dispute_evidence WHERE dispute_id = $1 ORDER BY seq`, evidenceColumns)

	rows, err := r.pool.Query(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute: list evidence: %w", err)
	}
	defer rows.Close()

	out := make([]Evidence, 0, 8)
	for rows.Next() {
		var ev Evidence
		if err := rows.Scan(
			&ev.DisputeID, &ev.Seq, &ev.SubmitterID, &ev.Kind, &ev.Title,
			&ev.Description, &ev.ContentHash, &ev.SubmittedAt, &ev.Admitted, &ev.RejectionReason,
		); err != nil {
			return nil, fmt.Errorf("dispute: scan evidence: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate evidence: %w", err)
	}
	return out, nil
}

func scanDispute(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.Category,
		&rec.Status,
		&rec.PlaintiffID,
		&rec.DefendantID,
		&rec.MediatorID,
		&rec.ArbitratorID,
		&rec.IPRecordID,
		&rec.IPContractRef,
		&rec.Title,
		&rec.Description,
		&rec.ClaimedDamages,
		&rec.FiledAt,
		&rec.ResponseDeadline,
		&rec.ResolvedAt,
		&rec.Decision,
		&rec.WinnerID,
		&rec.Award,
		&rec.EscrowBalance,
		&rec.Appealed,
		&rec.Enforceable,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func toJSON(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(b)
}
