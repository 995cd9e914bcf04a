// internal/workers/data-access/query-royalty-data/models.go
package queryroyaltydata

type Input struct {
	QueryType   string `json:"queryType"`
	FranchiseID string `json:"franchiseId,omitempty"`
	Status      string `json:"status,omitempty"`
	Period      string `json:"period,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type Output struct {
	QueryType string                   `json:"queryType"`
	Results   []map[string]interface{} `json:"results"`
	Count     int                      `json:"count"`
	QueriedAt string                   `json:"queriedAt"`
}
