package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_custody_covers_escrow",
			SQL: `SELECT 'custody_underfunded' AS detail
                  WHERE (SELECT balance FROM ledger_accounts WHERE id = 'custody')
                      < (SELECT COALESCE(SUM(escrow_balance),0) FROM disputes)`,
		},
		{
			Name: "O2_no_negative_balance",
			SQL:  `SELECT id, balance FROM ledger_accounts WHERE balance < 0`,
		},
		{
			Name: "O3_event_seq_monotonic",
			SQL: `WITH seqs AS (
                      SELECT dispute_id, seq,
                             LAG(seq) OVER (PARTITION BY dispute_id ORDER BY seq) AS prev
                      FROM dispute_events)
                  SELECT * FROM seqs WHERE prev IS NOT NULL AND seq <= prev`,
		},
		{
			Name: "O4_terminal_escrow_drained",
			SQL:  `SELECT id, escrow_balance FROM disputes WHERE status = 'enforced' AND escrow_balance <> 0`,
		},
		{
			Name: "O5_resolution_fields_present",
			SQL: `SELECT id, status FROM disputes
                  WHERE (status IN ('resolved','enforced') AND (winner_id IS NULL OR decision = ''))
                     OR (status = 'arbitration' AND arbitrator_id IS NULL)
                     OR (status = 'mediation' AND mediator_id IS NULL)`,
		},
		{
			Name: "O6_self_transfer",
			SQL:  `SELECT id FROM ledger_entries WHERE debit_account = credit_account`,
		},
		{
			Name: "O7_award_within_escrow_at_enforcement",
			SQL: `SELECT d.id FROM disputes d
                  WHERE d.status = 'enforced'
                    AND d.award > (SELECT COALESCE(SUM(amount),0) FROM ledger_entries
                                   WHERE dispute_id = d.id AND kind = 'deposit')`,
		},
		{
			Name: "O8_outbox_stale",
			SQL: `SELECT id::text FROM outbox
                  WHERE status NOT IN ('processed','dead')
                    AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
