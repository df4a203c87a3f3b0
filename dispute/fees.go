package dispute

import "time"

// Fee schedule, in whole ledger units. The appeal fee is part of the
// published schedule but no transition charges it: the appeal pathway is
// declared in the status taxonomy without defined semantics.
const (
	FilingFee      int64 = 50
	MediationFee   int64 = 25
	ArbitrationFee int64 = 100
	AppealFee      int64 = 150
	EvidenceFee    int64 = 5
)

// ResponseWindow is the deadline recorded at filing. It is data only:
// nothing transitions a dispute when it lapses.
const ResponseWindow = 14 * 24 * time.Hour

// splitBetweenParties divides an amount between plaintiff and defendant:
// the plaintiff's share rounds down, the defendant covers the odd unit.
// The same rule applies to stage fees and to the enforcement remainder.
func splitBetweenParties(total int64) (plaintiffShare, defendantShare int64) {
	plaintiffShare = total / 2
	defendantShare = total - plaintiffShare
	return plaintiffShare, defendantShare
}
