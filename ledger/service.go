package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInsufficientFunds signals the debit account cannot cover the transfer.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrAccountNotFound signals the debit account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidAmount signals a zero or negative transfer amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

// Service implements the settlement primitives the dispute core depends on.
// Every primitive runs inside the caller's transaction and either fully
// transfers the requested amount or fails, never partially.
type Service struct {
	pool  *pgxpool.Pool
	idGen func() string
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{
		pool:  pool,
		idGen: func() string { return uuid.NewString() },
	}
}

// PayFee moves a fee from the payer into custody, tagged with the dispute id.
func (s *Service) PayFee(ctx context.Context, tx pgx.Tx, payer string, disputeID int64, amount int64) error {
	return s.transfer(ctx, tx, payer, AccountCustody, amount, KindFee, &disputeID)
}

// Deposit moves escrow funds from the payer into custody.
func (s *Service) Deposit(ctx context.Context, tx pgx.Tx, payer string, disputeID int64, amount int64) error {
	return s.transfer(ctx, tx, payer, AccountCustody, amount, KindDeposit, &disputeID)
}

// PayRecipient pays a named recipient out of custody.
func (s *Service) PayRecipient(ctx context.Context, tx pgx.Tx, recipient string, disputeID int64, amount int64) error {
	return s.transfer(ctx, tx, AccountCustody, recipient, amount, KindPayment, &disputeID)
}

// DistributeAward pays the dispute's award to the winner out of custody.
func (s *Service) DistributeAward(ctx context.Context, tx pgx.Tx, winner string, disputeID int64, amount int64) error {
	return s.transfer(ctx, tx, AccountCustody, winner, amount, KindAward, &disputeID)
}

// Refund returns escrowed funds to a recipient out of custody.
func (s *Service) Refund(ctx context.Context, tx pgx.Tx, recipient string, disputeID int64, amount int64) error {
	return s.transfer(ctx, tx, AccountCustody, recipient, amount, KindRefund, &disputeID)
}

func (s *Service) transfer(ctx context.Context, tx pgx.Tx, debit, credit string, amount int64, kind EntryKind, disputeID *int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tag, err := tx.Exec(ctx, `
		UPDATE ledger_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
	`, debit, amount)
	if err != nil {
		return fmt.Errorf("ledger: debit %s: %w", debit, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_accounts WHERE id = $1)`, debit).Scan(&exists); err != nil {
			return fmt.Errorf("ledger: check account %s: %w", debit, err)
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrInsufficientFunds
	}

	// Recipient accounts are created on first credit.
	if _, err := tx.Exec(ctx, `
		INSERT INTO ledger_accounts (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`, credit, amount); err != nil {
		return fmt.Errorf("ledger: credit %s: %w", credit, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, debit_account, credit_account, amount, kind, dispute_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.idGen(), debit, credit, amount, kind, disputeID); err != nil {
		return fmt.Errorf("ledger: record entry: %w", err)
	}

	return nil
}

// OpenAccount creates an account with an initial balance. Bootstrap helper
// for wiring party accounts; existing accounts are left untouched.
func (s *Service) OpenAccount(ctx context.Context, id string, balance int64) error {
	if balance < 0 {
		return ErrInvalidAmount
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_accounts (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, balance); err != nil {
		return fmt.Errorf("ledger: open account: %w", err)
	}
	return nil
}

// Balance returns the current balance of an account.
func (s *Service) Balance(ctx context.Context, id string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT balance FROM ledger_accounts WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("ledger: balance: %w", err)
	}
	return balance, nil
}

// EntriesForDispute lists the movements recorded against one dispute in
// insertion order.
func (s *Service) EntriesForDispute(ctx context.Context, disputeID int64) ([]Entry, error) {
	const query = `
		SELECT id, debit_account, credit_account, amount, kind, dispute_id, created_at
		FROM ledger_entries
		WHERE dispute_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.pool.Query(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list entries: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, 8)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Debit, &e.Credit, &e.Amount, &e.Kind, &e.DisputeID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate entries: %w", err)
	}
	return out, nil
}
