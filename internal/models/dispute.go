// internal/models/dispute.go
package models

type DisputeType string

const (
	DisputeTypeCalculationError DisputeType = "calculation_error"
	DisputeTypeFeeStructure     DisputeType = "fee_structure"
	DisputeTypePaymentIssue     DisputeType = "payment_issue"
	DisputeTypeServiceDispute   DisputeType = "service_dispute"
	DisputeTypeOther            DisputeType = "other"
)

// Valid reports whether t is a known dispute type.
func (t DisputeType) Valid() bool {
	switch t {
	case DisputeTypeCalculationError, DisputeTypeFeeStructure, DisputeTypePaymentIssue,
		DisputeTypeServiceDispute, DisputeTypeOther:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:        {DisputeStatusUnderReview},
	DisputeStatusUnderReview: {DisputeStatusResolved, DisputeStatusClosed},
	DisputeStatusResolved:    {DisputeStatusClosed},
}

// Valid reports whether s is a known dispute status.
func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusClosed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal.
func (s DisputeStatus) CanTransition(next DisputeStatus) bool {
	for _, allowed := range disputeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type DisputePriority string

const (
	DisputePriorityLow    DisputePriority = "low"
	DisputePriorityMedium DisputePriority = "medium"
	DisputePriorityHigh   DisputePriority = "high"
	DisputePriorityUrgent DisputePriority = "urgent"
)

// Valid reports whether p is a known dispute priority.
func (p DisputePriority) Valid() bool {
	switch p {
	case DisputePriorityLow, DisputePriorityMedium, DisputePriorityHigh, DisputePriorityUrgent:
		return true
	}
	return false
}

type DisputeCase struct {
	ID                   string          `json:"id"`
	FranchiseID          string          `json:"franchiseId"`
	FranchiseName        string          `json:"franchiseName"`
	RoyaltyCalculationID string          `json:"royaltyCalculationId"`
	DisputeType          DisputeType     `json:"disputeType"`
	Description          string          `json:"description"`
	DisputedAmount       float64         `json:"disputedAmount"`
	EvidenceFiles        []string        `json:"evidenceFiles"`
	Status               DisputeStatus   `json:"status"`
	Priority             DisputePriority `json:"priority"`
	AssignedTo           string          `json:"assignedTo,omitempty"`
	CreatedAt            string          `json:"createdAt"` // RFC 3339
	ResolvedAt           string          `json:"resolvedAt,omitempty"`
	Resolution           string          `json:"resolution,omitempty"`
	ResolutionAmount     *float64        `json:"resolutionAmount,omitempty"`
}
