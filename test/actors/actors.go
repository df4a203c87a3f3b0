package actors

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ipdispute/dispute"
)

var categories = []dispute.Category{
	dispute.CategoryCopyrightInfringement,
	dispute.CategoryLicenseBreach,
	dispute.CategoryRoyaltyDispute,
	dispute.CategoryOwnershipDispute,
}

// Filer keeps opening fresh disputes between the two seeded parties. Failures
// are expected under chaos and checked by the oracles, not here.
func Filer(ctx context.Context, svc *dispute.Service, plaintiff, defendant string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = svc.File(ctx, plaintiff, dispute.FileParams{
			Category:       categories[rand.Intn(len(categories))],
			DefendantID:    defendant,
			Title:          fmt.Sprintf("stress claim %d", rand.Int63()),
			ClaimedDamages: int64(100 + rand.Intn(900)),
		})
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Escalator moves freshly filed disputes into arbitration with the seeded
// arbitrator, competing with other escalators over the same rows.
func Escalator(ctx context.Context, pool *pgxpool.Pool, svc *dispute.Service, caller, arbitratorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id int64
		if err := pool.QueryRow(ctx, `SELECT id FROM disputes WHERE status = 'filed' ORDER BY id DESC LIMIT 1`).Scan(&id); err == nil {
			_, _ = svc.StartArbitration(ctx, caller, id, arbitratorID)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Depositor tops up escrow on any live dispute the party belongs to.
func Depositor(ctx context.Context, pool *pgxpool.Pool, svc *dispute.Service, party string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id int64
		if err := pool.QueryRow(ctx, `
            SELECT id FROM disputes
            WHERE status NOT IN ('enforced','dismissed') AND (plaintiff_id = $1 OR defendant_id = $1)
            ORDER BY random() LIMIT 1`, party).Scan(&id); err == nil {
			_, _ = svc.Deposit(ctx, party, id, int64(50+rand.Intn(150)))
		}
		time.Sleep(time.Duration(25+rand.Intn(50)) * time.Millisecond)
	}
}

// Witness submits evidence to disputes that are in a fee-gated stage.
func Witness(ctx context.Context, pool *pgxpool.Pool, svc *dispute.Service, party string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id int64
		if err := pool.QueryRow(ctx, `
            SELECT id FROM disputes
            WHERE status IN ('mediation','arbitration') AND (plaintiff_id = $1 OR defendant_id = $1)
            ORDER BY random() LIMIT 1`, party).Scan(&id); err == nil {
			_, _ = svc.SubmitEvidence(ctx, party, id, dispute.EvidenceParams{
				Kind:        dispute.EvidenceDocument,
				Title:       fmt.Sprintf("exhibit %d", rand.Int63()),
				ContentHash: fmt.Sprintf("sha256:%016x", rand.Int63()),
			})
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

// Decider issues decisions on disputes assigned to the arbitrator, awarding
// modest amounts so the enforcer has a chance of covering them from escrow.
func Decider(ctx context.Context, pool *pgxpool.Pool, svc *dispute.Service, arbitratorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id int64
		var plaintiff string
		if err := pool.QueryRow(ctx, `
            SELECT id, plaintiff_id FROM disputes
            WHERE status = 'arbitration' AND arbitrator_id = $1
            ORDER BY random() LIMIT 1`, arbitratorID).Scan(&id, &plaintiff); err == nil {
			_, _ = svc.SubmitDecision(ctx, arbitratorID, id, dispute.DecisionParams{
				WinnerID: plaintiff,
				Award:    int64(rand.Intn(200)),
				Decision: "stress decision",
			})
		}
		time.Sleep(time.Duration(60+rand.Intn(80)) * time.Millisecond)
	}
}

// Enforcer settles resolved disputes. Awards exceeding escrow are rejected by
// the service and retried after the depositors catch up.
func Enforcer(ctx context.Context, pool *pgxpool.Pool, svc *dispute.Service, caller string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id int64
		if err := pool.QueryRow(ctx, `SELECT id FROM disputes WHERE status = 'resolved' ORDER BY random() LIMIT 1`).Scan(&id); err == nil {
			_, _ = svc.Enforce(ctx, caller, id)
		}
		time.Sleep(time.Duration(50+rand.Intn(70)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending outbox messages with SKIP LOCKED and marks
// them processed, simulating occasional delivery failures.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]string, 0, 10)
		for rows.Next() {
			var id string
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1, last_attempt=NOW() WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed', last_attempt=NOW() WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}
