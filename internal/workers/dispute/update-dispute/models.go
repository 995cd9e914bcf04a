// internal/workers/dispute/update-dispute/models.go
package updatedispute

type Input struct {
	DisputeID  string `json:"disputeId"`
	NewStatus  string `json:"newStatus,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

type Output struct {
	DisputeID     string `json:"disputeId"`
	DisputeStatus string `json:"disputeStatus"`
	AssignedTo    string `json:"assignedTo,omitempty"`
	Priority      string `json:"priority"`
	UpdatedAt     string `json:"updatedAt"`
}
