// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeCalculationsByStatus QueryType = "calculations_by_status"
	QueryTypeOverdueCalculations  QueryType = "overdue_calculations"
	QueryTypePendingPayments      QueryType = "pending_payments"
	QueryTypeCompletedPayments    QueryType = "completed_payments"
	QueryTypeOpenDisputes         QueryType = "open_disputes"
	QueryTypeRoyaltyTotals        QueryType = "royalty_totals"
	QueryTypeRevenueReport        QueryType = "revenue_report"
)
