package dispute

// transitions enumerates every permitted status move. Statuses absent as a
// target (appealed, dismissed) are representable but unreachable: no
// operation is defined that enters them.
var transitions = map[Status]map[Status]bool{
	StatusFiled:       {StatusMediation: true, StatusArbitration: true},
	StatusMediation:   {StatusArbitration: true},
	StatusArbitration: {StatusResolved: true},
	StatusResolved:    {StatusEnforced: true},
}

// CanTransition reports whether a dispute may move from one status to another.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next[to]
}

// IsTerminal reports whether no further transition leaves the status.
func IsTerminal(s Status) bool {
	return s == StatusEnforced || s == StatusDismissed
}
