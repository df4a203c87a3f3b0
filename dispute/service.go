package dispute

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ipdispute/arbiter"
	"ipdispute/identity"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository defines the data access required by the service.
type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, plaintiffID string, params FileParams, deadline time.Time) (Record, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Record, error)
	SetMediation(ctx context.Context, tx pgx.Tx, id int64, mediatorID string) error
	SetArbitration(ctx context.Context, tx pgx.Tx, id int64, arbitratorID string) error
	SetResolved(ctx context.Context, tx pgx.Tx, id int64, params DecisionParams, resolvedAt time.Time) error
	AddEscrow(ctx context.Context, tx pgx.Tx, id int64, amount int64) error
	SetEnforced(ctx context.Context, tx pgx.Tx, id int64) error
	InsertEvidence(ctx context.Context, tx pgx.Tx, disputeID int64, submitterID string, params EvidenceParams) (Evidence, error)
	AppendEvent(ctx context.Context, tx pgx.Tx, disputeID int64, eventType string, actorID *string, payload map[string]any) error
	EnqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
	GetByID(ctx context.Context, id int64) (Record, error)
	ListIDsByParty(ctx context.Context, principalID string) ([]int64, error)
	ListIDsByIPRecord(ctx context.Context, ipRecordID int64) ([]int64, error)
	GetEvidence(ctx context.Context, disputeID int64, seq int) (Evidence, error)
	ListEvidence(ctx context.Context, disputeID int64) ([]Evidence, error)
}

// RoleDirectory answers capability checks; the core never stores
// credentials itself.
type RoleDirectory interface {
	HasCapability(ctx context.Context, principalID string, capability identity.Capability) (bool, error)
}

// Settlement is the ledger boundary. Every primitive runs inside the
// transition's transaction and either fully transfers or fails; a failure
// aborts the whole transition.
type Settlement interface {
	PayFee(ctx context.Context, tx pgx.Tx, payer string, disputeID int64, amount int64) error
	Deposit(ctx context.Context, tx pgx.Tx, payer string, disputeID int64, amount int64) error
	PayRecipient(ctx context.Context, tx pgx.Tx, recipient string, disputeID int64, amount int64) error
	DistributeAward(ctx context.Context, tx pgx.Tx, winner string, disputeID int64, amount int64) error
	Refund(ctx context.Context, tx pgx.Tx, recipient string, disputeID int64, amount int64) error
}

// ArbiterDirectory is the slice of the arbitrator directory the core needs:
// a fee lookup at assignment and a reputation update when a decision lands.
type ArbiterDirectory interface {
	ProfileForAssignment(ctx context.Context, tx pgx.Tx, principalID string) (arbiter.Profile, error)
	RecordDecision(ctx context.Context, tx pgx.Tx, principalID string) error
}

// Outbox topics published on dispute transitions.
const (
	TopicDisputeFiled    = "dispute.filed"
	TopicStatusChanged   = "dispute.status_changed"
	TopicDisputeResolved = "dispute.resolved"
	TopicDisputeEnforced = "dispute.enforced"
)

// Service is the dispute registry: it owns dispute and evidence records,
// escrow bookkeeping, and every status transition.
type Service struct {
	pool     TxBeginner
	repo     Repository
	roles    RoleDirectory
	ledger   Settlement
	arbiters ArbiterDirectory
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[int64]struct{}
	paused   bool
}

func NewService(pool TxBeginner, repo Repository, roles RoleDirectory, ledger Settlement, arbiters ArbiterDirectory) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		roles:    roles,
		ledger:   ledger,
		arbiters: arbiters,
		now:      time.Now,
		inFlight: make(map[int64]struct{}),
	}
}

// File opens a new dispute in FILED status and charges the filing fee to the
// plaintiff. The insert and the fee charge commit atomically.
func (s *Service) File(ctx context.Context, plaintiffID string, params FileParams) (Record, error) {
	if err := s.checkPaused(); err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return Record{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	if params.ClaimedDamages <= 0 {
		return Record{}, fmt.Errorf("%w: claimed damages must be positive", ErrValidation)
	}
	if params.DefendantID == "" {
		return Record{}, fmt.Errorf("%w: defendant required", ErrValidation)
	}
	if params.DefendantID == plaintiffID {
		return Record{}, fmt.Errorf("%w: cannot dispute against self", ErrValidation)
	}
	if !isValidCategory(params.Category) {
		return Record{}, fmt.Errorf("%w: unknown category %q", ErrValidation, params.Category)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin file tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.Insert(ctx, tx, plaintiffID, params, s.now().Add(ResponseWindow))
	if err != nil {
		return Record{}, err
	}

	if err := s.ledger.PayFee(ctx, tx, plaintiffID, rec.ID, FilingFee); err != nil {
		return Record{}, fmt.Errorf("%w: charge filing fee: %w", ErrFunds, err)
	}

	if err := s.repo.AppendEvent(ctx, tx, rec.ID, "DISPUTE_FILED", &plaintiffID, map[string]any{
		"category":        string(rec.Category),
		"defendant_id":    rec.DefendantID,
		"claimed_damages": rec.ClaimedDamages,
		"filing_fee":      FilingFee,
	}); err != nil {
		return Record{}, err
	}

	if err := s.repo.EnqueueOutbox(ctx, tx, TopicDisputeFiled, map[string]any{
		"dispute_id":   rec.ID,
		"plaintiff_id": rec.PlaintiffID,
		"defendant_id": rec.DefendantID,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit file: %w", err)
	}
	return rec, nil
}

// StartMediation moves a FILED dispute into MEDIATION with the assigned
// mediator. The mediation fee is split between the parties.
func (s *Service) StartMediation(ctx context.Context, callerID string, disputeID int64, mediatorID string) (Record, error) {
	if err := s.checkPaused(); err != nil {
		return Record{}, err
	}
	release, err := s.acquire(disputeID)
	if err != nil {
		return Record{}, err
	}
	defer release()

	holdsMediator, err := s.roles.HasCapability(ctx, mediatorID, identity.CapabilityMediator)
	if err != nil {
		return Record{}, err
	}
	if !holdsMediator {
		return Record{}, fmt.Errorf("%w: assignee lacks mediator capability", ErrUnauthorized)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin mediation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Record{}, err
	}

	if callerID != rec.PlaintiffID && callerID != rec.DefendantID {
		isAdmin, err := s.roles.HasCapability(ctx, callerID, identity.CapabilityAdmin)
		if err != nil {
			return Record{}, err
		}
		if !isAdmin {
			return Record{}, fmt.Errorf("%w: caller is not a party or admin", ErrUnauthorized)
		}
	}

	if !CanTransition(rec.Status, StatusMediation) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrBadStatus, rec.Status, StatusMediation)
	}

	plaintiffShare, defendantShare := splitBetweenParties(MediationFee)
	if err := s.ledger.PayFee(ctx, tx, rec.PlaintiffID, disputeID, plaintiffShare); err != nil {
		return Record{}, fmt.Errorf("%w: charge plaintiff mediation fee: %w", ErrFunds, err)
	}
	if err := s.ledger.PayFee(ctx, tx, rec.DefendantID, disputeID, defendantShare); err != nil {
		return Record{}, fmt.Errorf("%w: charge defendant mediation fee: %w", ErrFunds, err)
	}

	if err := s.repo.SetMediation(ctx, tx, disputeID, mediatorID); err != nil {
		return Record{}, err
	}

	if err := s.appendStatusChange(ctx, tx, rec, StatusMediation, callerID, map[string]any{
		"mediator_id":   mediatorID,
		"mediation_fee": MediationFee,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit mediation: %w", err)
	}
	return s.repo.GetByID(ctx, disputeID)
}

// StartArbitration moves a FILED or MEDIATION dispute into ARBITRATION. The
// base arbitration fee plus the arbitrator's per-case fee is split between
// the parties; the per-case fee is paid through to the arbitrator.
func (s *Service) StartArbitration(ctx context.Context, callerID string, disputeID int64, arbitratorID string) (Record, error) {
	if err := s.checkPaused(); err != nil {
		return Record{}, err
	}
	release, err := s.acquire(disputeID)
	if err != nil {
		return Record{}, err
	}
	defer release()

	holdsArbitrator, err := s.roles.HasCapability(ctx, arbitratorID, identity.CapabilityArbitrator)
	if err != nil {
		return Record{}, err
	}
	if !holdsArbitrator {
		return Record{}, fmt.Errorf("%w: assignee lacks arbitrator capability", ErrUnauthorized)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin arbitration tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Record{}, err
	}
	if !CanTransition(rec.Status, StatusArbitration) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrBadStatus, rec.Status, StatusArbitration)
	}

	profile, err := s.arbiters.ProfileForAssignment(ctx, tx, arbitratorID)
	if err != nil {
		return Record{}, err
	}
	if !profile.Active {
		return Record{}, fmt.Errorf("%w: arbitrator is inactive", ErrValidation)
	}

	total := ArbitrationFee + profile.FeePerCase
	plaintiffShare, defendantShare := splitBetweenParties(total)
	if err := s.ledger.PayFee(ctx, tx, rec.PlaintiffID, disputeID, plaintiffShare); err != nil {
		return Record{}, fmt.Errorf("%w: charge plaintiff arbitration fee: %w", ErrFunds, err)
	}
	if err := s.ledger.PayFee(ctx, tx, rec.DefendantID, disputeID, defendantShare); err != nil {
		return Record{}, fmt.Errorf("%w: charge defendant arbitration fee: %w", ErrFunds, err)
	}
	if err := s.ledger.PayRecipient(ctx, tx, arbitratorID, disputeID, profile.FeePerCase); err != nil {
		return Record{}, fmt.Errorf("%w: pay arbitrator fee: %w", ErrFunds, err)
	}

	if err := s.repo.SetArbitration(ctx, tx, disputeID, arbitratorID); err != nil {
		return Record{}, err
	}

	if err := s.appendStatusChange(ctx, tx, rec, StatusArbitration, callerID, map[string]any{
		"arbitrator_id":   arbitratorID,
		"arbitration_fee": ArbitrationFee,
		"arbitrator_fee":  profile.FeePerCase,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit arbitration: %w", err)
	}
	return s.repo.GetByID(ctx, disputeID)
}

// SubmitEvidence appends a fee-gated evidence record. Only the parties of a
// MEDIATION- or ARBITRATION-stage dispute may submit; submissions are
// admitted as recorded and immutable thereafter.
func (s *Service) SubmitEvidence(ctx context.Context, callerID string, disputeID int64, params EvidenceParams) (Evidence, error) {
	if err := s.checkPaused(); err != nil {
		return Evidence{}, err
	}
	release, err := s.acquire(disputeID)
	if err != nil {
		return Evidence{}, err
	}
	defer release()

	if strings.TrimSpace(params.Title) == "" {
		return Evidence{}, fmt.Errorf("%w: evidence title required", ErrValidation)
	}
	if !isValidEvidenceKind(params.Kind) {
		return Evidence{}, fmt.Errorf("%w: unknown evidence kind %q", ErrValidation, params.Kind)
	}
	if params.ContentHash == "" {
		return Evidence{}, fmt.Errorf("%w: content hash required", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Evidence{}, fmt.Errorf("dispute: begin evidence tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Evidence{}, err
	}
	if callerID != rec.PlaintiffID && callerID != rec.DefendantID {
		return Evidence{}, fmt.Errorf("%w: caller is not a party", ErrUnauthorized)
	}
	if rec.Status != StatusMediation && rec.Status != StatusArbitration {
		return Evidence{}, fmt.Errorf("%w: evidence not accepted in status %s", ErrBadStatus, rec.Status)
	}

	if err := s.ledger.PayFee(ctx, tx, callerID, disputeID, EvidenceFee); err != nil {
		return Evidence{}, fmt.Errorf("%w: charge evidence fee: %w", ErrFunds, err)
	}

	ev, err := s.repo.InsertEvidence(ctx, tx, disputeID, callerID, params)
	if err != nil {
		return Evidence{}, err
	}

	if err := s.repo.AppendEvent(ctx, tx, disputeID, "EVIDENCE_SUBMITTED", &callerID, map[string]any{
		"seq":  ev.Seq,
		"kind": string(ev.Kind),
	}); err != nil {
		return Evidence{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Evidence{}, fmt.Errorf("dispute: commit evidence: %w", err)
	}
	return ev, nil
}

// SubmitDecision records the assigned arbitrator's binding decision and
// moves the dispute to RESOLVED. The arbitrator's case count and reputation
// are updated in the same transaction.
func (s *Service) SubmitDecision(ctx context.Context, callerID string, disputeID int64, params DecisionParams) (Record, error) {
	if err := s.checkPaused(); err != nil {
		return Record{}, err
	}
	release, err := s.acquire(disputeID)
	if err != nil {
		return Record{}, err
	}
	defer release()

	if params.Award < 0 {
		return Record{}, fmt.Errorf("%w: award cannot be negative", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin decision tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Record{}, err
	}
	if rec.ArbitratorID == nil || *rec.ArbitratorID != callerID {
		return Record{}, fmt.Errorf("%w: caller is not the assigned arbitrator", ErrUnauthorized)
	}
	if !CanTransition(rec.Status, StatusResolved) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrBadStatus, rec.Status, StatusResolved)
	}
	if params.WinnerID != rec.PlaintiffID && params.WinnerID != rec.DefendantID {
		return Record{}, fmt.Errorf("%w: winner must be a party to the dispute", ErrValidation)
	}

	if err := s.repo.SetResolved(ctx, tx, disputeID, params, s.now()); err != nil {
		return Record{}, err
	}

	if err := s.arbiters.RecordDecision(ctx, tx, callerID); err != nil {
		return Record{}, err
	}

	if err := s.appendStatusChange(ctx, tx, rec, StatusResolved, callerID, map[string]any{
		"winner_id": params.WinnerID,
		"award":     params.Award,
	}); err != nil {
		return Record{}, err
	}
	if err := s.repo.EnqueueOutbox(ctx, tx, TopicDisputeResolved, map[string]any{
		"dispute_id": disputeID,
		"winner_id":  params.WinnerID,
		"award":      params.Award,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit decision: %w", err)
	}
	return s.repo.GetByID(ctx, disputeID)
}

// Deposit adds funds to the dispute's escrow. Either party may deposit at
// any time before enforcement.
func (s *Service) Deposit(ctx context.Context, callerID string, disputeID int64, amount int64) (Record, error) {
	if err := s.checkPaused(); err != nil {
		return Record{}, err
	}
	release, err := s.acquire(disputeID)
	if err != nil {
		return Record{}, err
	}
	defer release()

	if amount <= 0 {
		return Record{}, fmt.Errorf("%w: deposit must be positive", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin deposit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Record{}, err
	}
	if callerID != rec.PlaintiffID && callerID != rec.DefendantID {
		return Record{}, fmt.Errorf("%w: caller is not a party", ErrUnauthorized)
	}
	if IsTerminal(rec.Status) {
		return Record{}, fmt.Errorf("%w: no deposits in status %s", ErrBadStatus, rec.Status)
	}

	if err := s.ledger.Deposit(ctx, tx, callerID, disputeID, amount); err != nil {
		return Record{}, fmt.Errorf("%w: escrow deposit: %w", ErrFunds, err)
	}
	if err := s.repo.AddEscrow(ctx, tx, disputeID, amount); err != nil {
		return Record{}, err
	}

	if err := s.repo.AppendEvent(ctx, tx, disputeID, "ESCROW_DEPOSITED", &callerID, map[string]any{
		"amount": amount,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit deposit: %w", err)
	}
	return s.repo.GetByID(ctx, disputeID)
}

// Enforce settles a RESOLVED dispute: the award goes to the winner, the
// remaining escrow is split between the parties (plaintiff's half rounds
// down, defendant receives the odd unit), and the dispute becomes ENFORCED.
// Enforcement is open to any caller. An award exceeding the escrowed amount
// is rejected rather than settled partially.
func (s *Service) Enforce(ctx context.Context, callerID string, disputeID int64) (Record, error) {
	if err := s.checkPaused(); err != nil {
		return Record{}, err
	}
	release, err := s.acquire(disputeID)
	if err != nil {
		return Record{}, err
	}
	defer release()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin enforce tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Record{}, err
	}
	if !CanTransition(rec.Status, StatusEnforced) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrBadStatus, rec.Status, StatusEnforced)
	}
	if rec.WinnerID == nil {
		return Record{}, fmt.Errorf("%w: no winner recorded", ErrBadStatus)
	}
	if rec.Award > rec.EscrowBalance {
		return Record{}, fmt.Errorf("%w: award %d exceeds escrow %d", ErrFunds, rec.Award, rec.EscrowBalance)
	}

	if rec.Award > 0 {
		if err := s.ledger.DistributeAward(ctx, tx, *rec.WinnerID, disputeID, rec.Award); err != nil {
			return Record{}, fmt.Errorf("%w: distribute award: %w", ErrFunds, err)
		}
	}

	remainder := rec.EscrowBalance - rec.Award
	plaintiffShare, defendantShare := splitBetweenParties(remainder)
	if plaintiffShare > 0 {
		if err := s.ledger.Refund(ctx, tx, rec.PlaintiffID, disputeID, plaintiffShare); err != nil {
			return Record{}, fmt.Errorf("%w: refund plaintiff: %w", ErrFunds, err)
		}
	}
	if defendantShare > 0 {
		if err := s.ledger.Refund(ctx, tx, rec.DefendantID, disputeID, defendantShare); err != nil {
			return Record{}, fmt.Errorf("%w: refund defendant: %w", ErrFunds, err)
		}
	}

	if err := s.repo.SetEnforced(ctx, tx, disputeID); err != nil {
		return Record{}, err
	}

	if err := s.appendStatusChange(ctx, tx, rec, StatusEnforced, callerID, map[string]any{
		"award":            rec.Award,
		"refund_plaintiff": plaintiffShare,
		"refund_defendant": defendantShare,
	}); err != nil {
		return Record{}, err
	}
	if err := s.repo.EnqueueOutbox(ctx, tx, TopicDisputeEnforced, map[string]any{
		"dispute_id": disputeID,
		"winner_id":  *rec.WinnerID,
		"award":      rec.Award,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit enforce: %w", err)
	}
	return s.repo.GetByID(ctx, disputeID)
}

// Pause stops all mutating operations. Admin only.
func (s *Service) Pause(ctx context.Context, callerID string) error {
	return s.setPaused(ctx, callerID, true)
}

// Unpause resumes mutating operations. Admin only.
func (s *Service) Unpause(ctx context.Context, callerID string) error {
	return s.setPaused(ctx, callerID, false)
}

func (s *Service) setPaused(ctx context.Context, callerID string, paused bool) error {
	isAdmin, err := s.roles.HasCapability(ctx, callerID, identity.CapabilityAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: only admins may pause", ErrUnauthorized)
	}
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	return nil
}

// GetByID returns the dispute record without its evidence collection.
func (s *Service) GetByID(ctx context.Context, id int64) (Record, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByParty returns dispute ids where the principal is a party.
func (s *Service) ListByParty(ctx context.Context, principalID string) ([]int64, error) {
	return s.repo.ListIDsByParty(ctx, principalID)
}

// ListByIPRecord returns dispute ids referencing an IP record.
func (s *Service) ListByIPRecord(ctx context.Context, ipRecordID int64) ([]int64, error) {
	return s.repo.ListIDsByIPRecord(ctx, ipRecordID)
}

// GetEvidence returns one evidence item by dispute id and sequence index.
func (s *Service) GetEvidence(ctx context.Context, disputeID int64, seq int) (Evidence, error) {
	return s.repo.GetEvidence(ctx, disputeID, seq)
}

// ListEvidence returns every evidence item for a dispute.
func (s *Service) ListEvidence(ctx context.Context, disputeID int64) ([]Evidence, error) {
	return s.repo.ListEvidence(ctx, disputeID)
}

func (s *Service) checkPaused() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return ErrPaused
	}
	return nil
}

// acquire marks a dispute as having a mutation in flight. A second mutation
// of the same dispute before release fails instead of observing stale state.
func (s *Service) acquire(disputeID int64) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[disputeID]; busy {
		return nil, ErrReentrant
	}
	s.inFlight[disputeID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, disputeID)
		s.mu.Unlock()
	}, nil
}

func (s *Service) appendStatusChange(ctx context.Context, tx pgx.Tx, rec Record, next Status, actorID string, extra map[string]any) error {
	payload := map[string]any{
		"previous_status": string(rec.Status),
		"next_status":     string(next),
	}
	for k, v := range extra {
		payload[k] = v
	}

	var actorPtr *string
	if actorID != "" {
		actorPtr = &actorID
	}
	if err := s.repo.AppendEvent(ctx, tx, rec.ID, "DISPUTE_STATUS_CHANGED", actorPtr, payload); err != nil {
		return err
	}

	return s.repo.EnqueueOutbox(ctx, tx, TopicStatusChanged, map[string]any{
		"dispute_id": rec.ID,
		"previous":   string(rec.Status),
		"next":       string(next),
	})
}
