package dispute

import "time"

// Category classifies the IP claim behind a dispute.
type Category string

const (
	CategoryCopyrightInfringement Category = "copyright_infringement"
	CategoryPatentInfringement    Category = "patent_infringement"
	CategoryLicenseBreach         Category = "license_breach"
	CategoryOwnershipDispute      Category = "ownership_dispute"
	CategoryRoyaltyDispute        Category = "royalty_dispute"
	CategoryPriorArtChallenge     Category = "prior_art_challenge"
	CategoryTrademarkDispute      Category = "trademark_dispute"
)

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusFiled       Status = "filed"
	StatusMediation   Status = "mediation"
	StatusArbitration Status = "arbitration"
	StatusAppealed    Status = "appealed"
	StatusResolved    Status = "resolved"
	StatusEnforced    Status = "enforced"
	StatusDismissed   Status = "dismissed"
)

// EvidenceKind classifies a submission attached to a dispute.
type EvidenceKind string

const (
	EvidenceDocument          EvidenceKind = "document"
	EvidenceTestimony         EvidenceKind = "testimony"
	EvidenceExpertOpinion     EvidenceKind = "expert_opinion"
	EvidencePriorArt          EvidenceKind = "prior_art"
	EvidenceContract          EvidenceKind = "contract"
	EvidenceCommunication     EvidenceKind = "communication"
	EvidenceTechnicalAnalysis EvidenceKind = "technical_analysis"
)

// Record mirrors the disputes table. It is returned by the query surface
// without the evidence collection; evidence is fetched separately.
type Record struct {
	ID               int64
	Category         Category
	Status           Status
	PlaintiffID      string
	DefendantID      string
	MediatorID       *string
	ArbitratorID     *string
	IPRecordID       *int64
	IPContractRef    *string
	Title            string
	Description      string
	ClaimedDamages   int64
	FiledAt          time.Time
	ResponseDeadline time.Time
	ResolvedAt       *time.Time
	Decision         string
	WinnerID         *string
	Award            int64
	EscrowBalance    int64
	Appealed         bool
	Enforceable      bool
	UpdatedAt        time.Time
}

// Evidence is one immutable submission, keyed by (dispute id, seq).
type Evidence struct {
	DisputeID       int64
	Seq             int
	SubmitterID     string
	Kind            EvidenceKind
	Title           string
	Description     string
	ContentHash     string
	SubmittedAt     time.Time
	Admitted        bool
	RejectionReason *string
}

// FileParams enumerates the fields required to file a new dispute.
type FileParams struct {
	Category       Category
	DefendantID    string
	IPRecordID     *int64
	IPContractRef  *string
	Title          string
	Description    string
	ClaimedDamages int64
}

// EvidenceParams enumerates the fields of one evidence submission.
type EvidenceParams struct {
	Kind        EvidenceKind
	Title       string
	Description string
	ContentHash string
}

// DecisionParams carries the arbitrator's binding decision.
type DecisionParams struct {
	WinnerID string
	Award    int64
	Decision string
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryCopyrightInfringement, CategoryPatentInfringement, CategoryLicenseBreach,
		CategoryOwnershipDispute, CategoryRoyaltyDispute, CategoryPriorArtChallenge,
		CategoryTrademarkDispute:
		return true
	default:
		return false
	}
}

func isValidEvidenceKind(k EvidenceKind) bool {
	switch k {
	case EvidenceDocument, EvidenceTestimony, EvidenceExpertOpinion, EvidencePriorArt,
		EvidenceContract, EvidenceCommunication, EvidenceTechnicalAnalysis:
		return true
	default:
		return false
	}
}
