// internal/store/disputes.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"prmcms-workers/internal/models"
)

type DisputeStore struct {
	db *sql.DB
}

func NewDisputeStore(db *sql.DB) *DisputeStore {
	return &DisputeStore{db: db}
}

const insertDisputeSQL = `
INSERT INTO dispute_cases (
	id, franchise_id, franchise_name, royalty_calculation_id,
	dispute_type, description, disputed_amount, evidence_files,
	status, priority, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *DisputeStore) Insert(ctx context.Context, d *models.DisputeCase) error {
	_, err := s.db.ExecContext(ctx, insertDisputeSQL,
		d.ID, d.FranchiseID, d.FranchiseName, d.RoyaltyCalculationID,
		string(d.DisputeType), d.Description, d.DisputedAmount,
		pq.Array(d.EvidenceFiles), string(d.Status), string(d.Priority),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

// OpenForCalculation files a dispute against a calculation and flips
// the calculation to disputed in one transaction. The calculation must
// still be in a disputable state (calculated or approved); anything
// else, paid included, rejects the dispute before a row is written.
func (s *DisputeStore) OpenForCalculation(ctx context.Context, d *models.DisputeCase) (*models.RoyaltyCalculation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	calc, err := scanRoyalty(tx.QueryRowContext(ctx, selectRoyaltySQL+" FOR UPDATE", d.RoyaltyCalculationID))
	if err != nil {
		return nil, err
	}

	if !calc.Status.CanTransition(models.RoyaltyStatusDisputed) {
		return nil, fmt.Errorf("%w: royalty calculation %s: %s -> %s",
			ErrInvalidTransition, calc.ID, calc.Status, models.RoyaltyStatusDisputed)
	}

	if _, err := tx.ExecContext(ctx, insertDisputeSQL,
		d.ID, d.FranchiseID, d.FranchiseName, d.RoyaltyCalculationID,
		string(d.DisputeType), d.Description, d.DisputedAmount,
		pq.Array(d.EvidenceFiles), string(d.Status), string(d.Priority),
		d.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert dispute: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE royalty_calculations SET status = $1 WHERE id = $2`,
		string(models.RoyaltyStatusDisputed), calc.ID,
	); err != nil {
		return nil, fmt.Errorf("flag calculation disputed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	calc.Status = models.RoyaltyStatusDisputed
	return calc, nil
}

const selectDisputeSQL = `
SELECT id, franchise_id, franchise_name, royalty_calculation_id,
       dispute_type, description, disputed_amount, evidence_files,
       status, priority, assigned_to, created_at, resolved_at,
       resolution, resolution_amount
FROM dispute_cases
WHERE id = $1`

func (s *DisputeStore) GetByID(ctx context.Context, id string) (*models.DisputeCase, error) {
	return scanDispute(s.db.QueryRowContext(ctx, selectDisputeSQL, id))
}

// Update applies a review-stage change: a status transition, an
// assignment, a priority change, or any combination. The row is locked
// so concurrent reviewers serialize.
func (s *DisputeStore) Update(ctx context.Context, id string, next models.DisputeStatus, assignedTo string, priority models.DisputePriority) (*models.DisputeCase, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	dispute, err := scanDispute(tx.QueryRowContext(ctx, selectDisputeSQL+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}

	if next != "" && next != dispute.Status {
		if !dispute.Status.CanTransition(next) {
			return nil, fmt.Errorf("%w: dispute %s: %s -> %s",
				ErrInvalidTransition, id, dispute.Status, next)
		}
		dispute.Status = next
	}
	if assignedTo != "" {
		dispute.AssignedTo = assignedTo
	}
	if priority != "" {
		dispute.Priority = priority
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE dispute_cases SET status = $1, assigned_to = $2, priority = $3 WHERE id = $4`,
		string(dispute.Status), nullIfEmpty(dispute.AssignedTo), string(dispute.Priority), id)
	if err != nil {
		return nil, fmt.Errorf("update dispute: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return dispute, nil
}

// Resolve records a resolution exactly once. A dispute that is already
// resolved or closed keeps its original resolution and the call reports
// applied=false, so replayed jobs are harmless.
func (s *DisputeStore) Resolve(ctx context.Context, id, resolution, resolvedAt string, resolutionAmount *float64) (*models.DisputeCase, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	dispute, err := scanDispute(tx.QueryRowContext(ctx, selectDisputeSQL+" FOR UPDATE", id))
	if err != nil {
		return nil, false, err
	}

	if dispute.Status == models.DisputeStatusResolved || dispute.Status == models.DisputeStatusClosed {
		return dispute, false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE dispute_cases SET status = $1, resolution = $2, resolved_at = $3, resolution_amount = $4 WHERE id = $5`,
		string(models.DisputeStatusResolved), resolution, resolvedAt, resolutionAmount, id)
	if err != nil {
		return nil, false, fmt.Errorf("resolve dispute: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}

	dispute.Status = models.DisputeStatusResolved
	dispute.Resolution = resolution
	dispute.ResolvedAt = resolvedAt
	dispute.ResolutionAmount = resolutionAmount
	return dispute, true, nil
}

func scanDispute(row *sql.Row) (*models.DisputeCase, error) {
	var (
		d                models.DisputeCase
		disputeType      string
		status           string
		priority         string
		evidence         pq.StringArray
		assignedTo       sql.NullString
		resolvedAt       sql.NullString
		resolution       sql.NullString
		resolutionAmount sql.NullFloat64
	)
	err := row.Scan(
		&d.ID, &d.FranchiseID, &d.FranchiseName, &d.RoyaltyCalculationID,
		&disputeType, &d.Description, &d.DisputedAmount, &evidence,
		&status, &priority, &assignedTo, &d.CreatedAt, &resolvedAt,
		&resolution, &resolutionAmount,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: dispute", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan dispute: %w", err)
	}
	d.DisputeType = models.DisputeType(disputeType)
	d.Status = models.DisputeStatus(status)
	d.Priority = models.DisputePriority(priority)
	d.EvidenceFiles = []string(evidence)
	if assignedTo.Valid {
		d.AssignedTo = assignedTo.String
	}
	if resolvedAt.Valid {
		d.ResolvedAt = resolvedAt.String
	}
	if resolution.Valid {
		d.Resolution = resolution.String
	}
	if resolutionAmount.Valid {
		d.ResolutionAmount = &resolutionAmount.Float64
	}
	return &d, nil
}
