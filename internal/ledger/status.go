package ledger

// Complaint statuses. The graph is submitted → in_review → in_progress →
// {resolved | rejected}; terminal states only re-open through Reopen.
const (
	StatusSubmitted  = "submitted"
	StatusInReview   = "in_review"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

var forwardRank = map[string]int{
	StatusSubmitted:  0,
	StatusInReview:   1,
	StatusInProgress: 2,
}

// IsTerminal reports whether a status ends the normal lifecycle.
func IsTerminal(status string) bool {
	return status == StatusResolved || status == StatusRejected
}

func isKnownStatus(status string) bool {
	if IsTerminal(status) {
		return true
	}
	_, ok := forwardRank[status]
	return ok
}

// CanTransition reports whether from → to is a legal edge: strictly forward
// moves within the open states, or any open state into a terminal one.
// Regressions and moves out of a terminal state are rejected here; Reopen is
// the only way back.
func CanTransition(from, to string) bool {
	if !isKnownStatus(to) || IsTerminal(from) {
		return false
	}
	if IsTerminal(to) {
		return true
	}
	return forwardRank[to] > forwardRank[from]
}
