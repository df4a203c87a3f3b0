package dispute

import (
	"context"
	"errors"
	"sort"
	"time"

	"ipdispute/arbiter"
	"ipdispute/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const custodyAccount = "custody"

type fakeRepo struct {
	nextID   int64
	disputes map[int64]Record
	evidence map[int64][]Evidence
	events   map[int64][]fakeEvent
	outbox   []fakeMessage
}

type fakeEvent struct {
	eventType string
	payload   map[string]any
}

type fakeMessage struct {
	topic   string
	payload map[string]any
}

func newFakeRepoState() *fakeRepo {
	return &fakeRepo{
		nextID:   1,
		disputes: make(map[int64]Record),
		evidence: make(map[int64][]Evidence),
		events:   make(map[int64][]fakeEvent),
	}
}

func (f *fakeRepo) Insert(ctx context.Context, tx pgx.Tx, plaintiffID string, params FileParams, deadline time.Time) (Record, error) {
	rec := Record{
		ID:               f.nextID,
		Category:         params.Category,
		Status:           StatusFiled,
		PlaintiffID:      plaintiffID,
		DefendantID:      params.DefendantID,
		IPRecordID:       params.IPRecordID,
		IPContractRef:    params.IPContractRef,
		Title:            params.Title,
		Description:      params.Description,
		ClaimedDamages:   params.ClaimedDamages,
		FiledAt:          deadline.Add(-ResponseWindow),
		ResponseDeadline: deadline,
		UpdatedAt:        deadline.Add(-ResponseWindow),
	}
	f.nextID++
	f.disputes[rec.ID] = rec
	return rec, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Record, error) {
	rec, ok := f.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) SetMediation(ctx context.Context, tx pgx.Tx, id int64, mediatorID string) error {
	rec := f.disputes[id]
	rec.Status = StatusMediation
	rec.MediatorID = &mediatorID
	f.disputes[id] = rec
	return nil
}

func (f *fakeRepo) SetArbitration(ctx context.Context, tx pgx.Tx, id int64, arbitratorID string) error {
	rec := f.disputes[id]
	rec.Status = StatusArbitration
	rec.ArbitratorID = &arbitratorID
	f.disputes[id] = rec
	return nil
}

func (f *fakeRepo) SetResolved(ctx context.Context, tx pgx.Tx, id int64, params DecisionParams, resolvedAt time.Time) error {
	rec := f.disputes[id]
	rec.Status = StatusResolved
	winner := params.WinnerID
	rec.WinnerID = &winner
	rec.Award = params.Award
	rec.Decision = params.Decision
	rec.ResolvedAt = &resolvedAt
	rec.Enforceable = true
	f.disputes[id] = rec
	return nil
}

func (f *fakeRepo) AddEscrow(ctx context.Context, tx pgx.Tx, id int64, amount int64) error {
	rec := f.disputes[id]
	rec.EscrowBalance += amount
	f.disputes[id] = rec
	return nil
}

func (f *fakeRepo) SetEnforced(ctx context.Context, tx pgx.Tx, id int64) error {
	rec := f.disputes[id]
	rec.Status = StatusEnforced
	rec.EscrowBalance = 0
	rec.Enforceable = false
	f.disputes[id] = rec
	return nil
}

func (f *fakeRepo) InsertEvidence(ctx context.Context, tx pgx.Tx, disputeID int64, submitterID string, params EvidenceParams) (Evidence, error) {
	ev := Evidence{
		DisputeID:   disputeID,
		Seq:         len(f.evidence[disputeID]) + 1,
		SubmitterID: submitterID,
		Kind:        params.Kind,
		Title:       params.Title,
		Description: params.Description,
		ContentHash: params.ContentHash,
		SubmittedAt: time.Now().UTC(),
		Admitted:    true,
	}
	f.evidence[disputeID] = append(f.evidence[disputeID], ev)
	return ev, nil
}

func (f *fakeRepo) AppendEvent(ctx context.Context, tx pgx.Tx, disputeID int64, eventType string, actorID *string, payload map[string]any) error {
	f.events[disputeID] = append(f.events[disputeID], fakeEvent{eventType: eventType, payload: payload})
	return nil
}

func (f *fakeRepo) EnqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	f.outbox = append(f.outbox, fakeMessage{topic: topic, payload: payload})
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (Record, error) {
	rec, ok := f.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) ListIDsByParty(ctx context.Context, principalID string) ([]int64, error) {
	out := make([]int64, 0, 4)
	for id, rec := range f.disputes {
		if rec.PlaintiffID == principalID || rec.DefendantID == principalID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeRepo) ListIDsByIPRecord(ctx context.Context, ipRecordID int64) ([]int64, error) {
	out := make([]int64, 0, 4)
	for id, rec := range f.disputes {
		if rec.IPRecordID != nil && *rec.IPRecordID == ipRecordID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeRepo) GetEvidence(ctx context.Context, disputeID int64, seq int) (Evidence, error) {
	for _, ev := range f.evidence[disputeID] {
		if ev.Seq == seq {
			return ev, nil
		}
	}
	return Evidence{}, ErrNotFound
}

func (f *fakeRepo) ListEvidence(ctx context.Context, disputeID int64) ([]Evidence, error) {
	return f.evidence[disputeID], nil
}

type fakeLedger struct {
	balances map[string]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[string]int64{
		plaintiffID:    10_000,
		defendantID:    10_000,
		custodyAccount: 0,
	}}
}

var errFakeInsufficient = errors.New("insufficient funds")

func (f *fakeLedger) move(from, to string, amount int64) error {
	if f.balances[from] < amount {
		return errFakeInsufficient
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	return nil
}

func (f *fakeLedger) PayFee(ctx context.Context, tx pgx.Tx, payer string, disputeID int64, amount int64) error {
	return f.move(payer, custodyAccount, amount)
}

func (f *fakeLedger) Deposit(ctx context.Context, tx pgx.Tx, payer string, disputeID int64, amount int64) error {
	return f.move(payer, custodyAccount, amount)
}

func (f *fakeLedger) PayRecipient(ctx context.Context, tx pgx.Tx, recipient string, disputeID int64, amount int64) error {
	return f.move(custodyAccount, recipient, amount)
}

func (f *fakeLedger) DistributeAward(ctx context.Context, tx pgx.Tx, winner string, disputeID int64, amount int64) error {
	return f.move(custodyAccount, winner, amount)
}

func (f *fakeLedger) Refund(ctx context.Context, tx pgx.Tx, recipient string, disputeID int64, amount int64) error {
	return f.move(custodyAccount, recipient, amount)
}

type fakeRoles struct {
	caps map[string][]identity.Capability
}

func (f *fakeRoles) HasCapability(ctx context.Context, principalID string, capability identity.Capability) (bool, error) {
	for _, c := range f.caps[principalID] {
		if c == capability {
			return true, nil
		}
	}
	return false, nil
}

type fakeArbiters struct {
	profiles map[string]arbiter.Profile
}

func (f *fakeArbiters) ProfileForAssignment(ctx context.Context, tx pgx.Tx, principalID string) (arbiter.Profile, error) {
	p, ok := f.profiles[principalID]
	if !ok {
		return arbiter.Profile{}, arbiter.ErrNotFound
	}
	return p, nil
}

func (f *fakeArbiters) RecordDecision(ctx context.Context, tx pgx.Tx, principalID string) error {
	p, ok := f.profiles[principalID]
	if !ok {
		return arbiter.ErrNotFound
	}
	p.CasesResolved++
	p.Reputation += arbiter.ReputationReward
	f.profiles[principalID] = p
	return nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
