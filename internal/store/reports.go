// internal/store/reports.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"prmcms-workers/internal/models"
)

type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// ServiceRevenueLine is the raw dollar total per service for a period,
// before percentages are computed.
type ServiceRevenueLine struct {
	Service string
	Amount  float64
}

// ServiceRevenue aggregates recorded revenue by service for one
// franchise period.
func (s *ReportStore) ServiceRevenue(ctx context.Context, franchiseID, period string) ([]ServiceRevenueLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service, SUM(amount) FROM service_revenue WHERE franchise_id = $1 AND period = $2 GROUP BY service ORDER BY service`,
		franchiseID, period)
	if err != nil {
		return nil, fmt.Errorf("aggregate service revenue: %w", err)
	}
	defer rows.Close()

	var out []ServiceRevenueLine
	for rows.Next() {
		var line ServiceRevenueLine
		if err := rows.Scan(&line.Service, &line.Amount); err != nil {
			return nil, fmt.Errorf("scan service revenue: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// TotalRevenue sums all recorded revenue for a franchise period.
// Returns 0 when the period has no recorded revenue.
func (s *ReportStore) TotalRevenue(ctx context.Context, franchiseID, period string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM service_revenue WHERE franchise_id = $1 AND period = $2`,
		franchiseID, period,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum period revenue: %w", err)
	}
	return total.Float64, nil
}

const insertReportSQL = `
INSERT INTO revenue_reports (
	id, franchise_id, franchise_name, period, total_revenue,
	service_breakdown, growth_rate, comparison_previous_period, generated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (franchise_id, period) DO UPDATE SET
	total_revenue = EXCLUDED.total_revenue,
	service_breakdown = EXCLUDED.service_breakdown,
	growth_rate = EXCLUDED.growth_rate,
	comparison_previous_period = EXCLUDED.comparison_previous_period,
	generated_at = EXCLUDED.generated_at`

// Insert writes a report, replacing any earlier snapshot for the same
// franchise period. Regenerating a period is therefore safe to retry.
func (s *ReportStore) Insert(ctx context.Context, r *models.RevenueReport) error {
	breakdown, err := json.Marshal(r.ServiceBreakdown)
	if err != nil {
		return fmt.Errorf("encode service breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertReportSQL,
		r.ID, r.FranchiseID, r.FranchiseName, r.Period, r.TotalRevenue,
		breakdown, r.GrowthRate, r.ComparisonPreviousPeriod, r.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revenue report: %w", err)
	}
	return nil
}
