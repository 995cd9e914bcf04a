// internal/store/royalties.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"prmcms-workers/internal/models"
)

type RoyaltyStore struct {
	db *sql.DB
}

func NewRoyaltyStore(db *sql.DB) *RoyaltyStore {
	return &RoyaltyStore{db: db}
}

const insertRoyaltySQL = `
INSERT INTO royalty_calculations (
	id, franchise_id, franchise_name, period, gross_revenue,
	royalty_rate, royalty_amount, marketing_fee, technology_fee,
	total_fees, net_payment, status, calculated_at, due_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (s *RoyaltyStore) Insert(ctx context.Context, calc *models.RoyaltyCalculation) error {
	_, err := s.db.ExecContext(ctx, insertRoyaltySQL,
		calc.ID, calc.FranchiseID, calc.FranchiseName, calc.Period,
		calc.GrossRevenue, calc.RoyaltyRate, calc.RoyaltyAmount,
		calc.MarketingFee, calc.TechnologyFee, calc.TotalFees,
		calc.NetPayment, string(calc.Status), calc.CalculatedAt, calc.DueDate,
	)
	if err != nil {
		return fmt.Errorf("insert royalty calculation: %w", err)
	}
	return nil
}

const selectRoyaltySQL = `
SELECT id, franchise_id, franchise_name, period, gross_revenue,
       royalty_rate, royalty_amount, marketing_fee, technology_fee,
       total_fees, net_payment, status, calculated_at, due_date, paid_date
FROM royalty_calculations
WHERE id = $1`

func (s *RoyaltyStore) GetByID(ctx context.Context, id string) (*models.RoyaltyCalculation, error) {
	return scanRoyalty(s.db.QueryRowContext(ctx, selectRoyaltySQL, id))
}

// Exists reports whether a calculation row exists. Used for
// referential integrity checks before payments and disputes are
// attached to a calculation.
func (s *RoyaltyStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM royalty_calculations WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check calculation existence: %w", err)
	}
	return exists, nil
}

// ExistsForPeriod reports whether the franchise already has a
// calculation for the billing period.
func (s *RoyaltyStore) ExistsForPeriod(ctx context.Context, franchiseID, period string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM royalty_calculations WHERE franchise_id = $1 AND period = $2)`,
		franchiseID, period,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check period existence: %w", err)
	}
	return exists, nil
}

// YTDRevenue sums gross revenue for every calculation of the franchise
// in the given calendar year. Volume-based rate brackets key off this.
func (s *RoyaltyStore) YTDRevenue(ctx context.Context, franchiseID, year string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(gross_revenue) FROM royalty_calculations WHERE franchise_id = $1 AND period LIKE $2`,
		franchiseID, year+"-%",
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum year-to-date revenue: %w", err)
	}
	return total.Float64, nil
}

// TransitionStatus moves a calculation to the next status inside a
// transaction, locking the row so concurrent updates serialize. The
// paid date is stamped when the calculation reaches "paid".
func (s *RoyaltyStore) TransitionStatus(ctx context.Context, id string, next models.RoyaltyStatus, paidDate string) (*models.RoyaltyCalculation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	calc, err := scanRoyalty(tx.QueryRowContext(ctx, selectRoyaltySQL+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}

	if !calc.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: royalty calculation %s: %s -> %s",
			ErrInvalidTransition, id, calc.Status, next)
	}

	if next == models.RoyaltyStatusPaid {
		_, err = tx.ExecContext(ctx,
			`UPDATE royalty_calculations SET status = $1, paid_date = $2 WHERE id = $3`,
			string(next), paidDate, id)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE royalty_calculations SET status = $1 WHERE id = $2`,
			string(next), id)
	}
	if err != nil {
		return nil, fmt.Errorf("update calculation status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	calc.Status = next
	if next == models.RoyaltyStatusPaid {
		calc.PaidDate = paidDate
	}
	return calc, nil
}

func scanRoyalty(row *sql.Row) (*models.RoyaltyCalculation, error) {
	var (
		calc     models.RoyaltyCalculation
		status   string
		paidDate sql.NullString
	)
	err := row.Scan(
		&calc.ID, &calc.FranchiseID, &calc.FranchiseName, &calc.Period,
		&calc.GrossRevenue, &calc.RoyaltyRate, &calc.RoyaltyAmount,
		&calc.MarketingFee, &calc.TechnologyFee, &calc.TotalFees,
		&calc.NetPayment, &status, &calc.CalculatedAt, &calc.DueDate, &paidDate,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: royalty calculation", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan royalty calculation: %w", err)
	}
	calc.Status = models.RoyaltyStatus(status)
	if paidDate.Valid {
		calc.PaidDate = paidDate.String
	}
	return &calc, nil
}
