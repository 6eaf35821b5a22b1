package posting

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a stored posting.
type Status string

const (
	StatusNew         Status = "New"
	StatusLead        Status = "Lead"
	StatusApplied     Status = "Applied"
	StatusUnderReview Status = "Under Review"
	StatusInterview   Status = "Interview"
	StatusOffer       Status = "Offer"
	StatusRejected    Status = "Rejected"
	StatusResigned    Status = "Resigned"
	StatusNoResponse  Status = "No Response"
	StatusWaiting     Status = "Waiting"
)

var allStatuses = []Status{
	StatusNew, StatusLead, StatusApplied, StatusUnderReview, StatusInterview,
	StatusOffer, StatusRejected, StatusResigned, StatusNoResponse, StatusWaiting,
}

// ActiveStatuses are the states in which a posting is still being pursued.
var ActiveStatuses = []Status{
	StatusNew, StatusLead, StatusApplied, StatusUnderReview, StatusInterview, StatusOffer, StatusWaiting,
}

// ClosedStatuses are the states whose report folders get archived.
var ClosedStatuses = []Status{StatusRejected, StatusResigned, StatusNoResponse}

// StaleStatuses are the states aged out to No Response by the cleanup sweep.
var StaleStatuses = []Status{StatusNew, StatusApplied, StatusLead}

// ParseStatus converts user input to a Status. Matching ignores case and
// treats '_' and '-' as spaces, so "under_review" is accepted.
func ParseStatus(s string) (Status, error) {
	key := normalizeStatus(s)
	for _, st := range allStatuses {
		if normalizeStatus(string(st)) == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown posting status %q", s)
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
