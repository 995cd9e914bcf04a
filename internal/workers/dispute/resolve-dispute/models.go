// internal/workers/dispute/resolve-dispute/models.go
package resolvedispute

type Input struct {
	DisputeID        string   `json:"disputeId"`
	Resolution       string   `json:"resolution"`
	ResolutionAmount *float64 `json:"resolutionAmount,omitempty"`
}

type Output struct {
	DisputeID         string   `json:"disputeId"`
	DisputeStatus     string   `json:"disputeStatus"`
	Resolution        string   `json:"resolution"`
	ResolutionAmount  *float64 `json:"resolutionAmount,omitempty"`
	ResolvedAt        string   `json:"resolvedAt"`
	AlreadyResolved   bool     `json:"alreadyResolved"`
	CalculationStatus string   `json:"calculationStatus,omitempty"`
}
