package ledger

import "time"

// AccountCustody holds every amount the dispute system has collected: fees
// awaiting distribution and escrowed funds. Per-dispute escrow bookkeeping
// lives on the dispute record; the custody balance is the sum of both.
const AccountCustody = "custody"

// EntryKind tags a ledger entry with the primitive that produced it.
type EntryKind string

const (
	KindFee     EntryKind = "fee"
	KindDeposit EntryKind = "deposit"
	KindPayment EntryKind = "payment"
	KindAward   EntryKind = "award"
	KindRefund  EntryKind = "refund"
)

// Account mirrors the ledger_accounts table.
type Account struct {
	ID        string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is one double-entry movement between two accounts. Amounts are whole
// units of the ledger's base currency and are always positive.
type Entry struct {
	ID        string
	Debit     string
	Credit    string
	Amount    int64
	Kind      EntryKind
	DisputeID *int64
	CreatedAt time.Time
}
