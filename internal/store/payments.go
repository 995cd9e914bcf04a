// internal/store/payments.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"prmcms-workers/internal/models"
)

type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

const insertPaymentSQL = `
INSERT INTO payment_tracking (
	id, franchise_id, franchise_name, royalty_calculation_id, amount,
	payment_method, status, transaction_id, reference_number,
	payment_date, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *PaymentStore) Insert(ctx context.Context, p *models.PaymentTracking) error {
	_, err := s.db.ExecContext(ctx, insertPaymentSQL,
		p.ID, p.FranchiseID, p.FranchiseName, p.RoyaltyCalculationID,
		p.Amount, string(p.PaymentMethod), string(p.Status),
		p.TransactionID, p.ReferenceNumber, p.PaymentDate, p.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

const selectPaymentSQL = `
SELECT id, franchise_id, franchise_name, royalty_calculation_id, amount,
       payment_method, status, transaction_id, reference_number,
       payment_date, processed_date, notes
FROM payment_tracking
WHERE id = $1`

func (s *PaymentStore) GetByID(ctx context.Context, id string) (*models.PaymentTracking, error) {
	return scanPayment(s.db.QueryRowContext(ctx, selectPaymentSQL, id))
}

// TransitionStatus moves a payment through its state machine with the
// row locked. The processed date is stamped when the payment completes
// or fails, and optional notes replace the previous ones.
func (s *PaymentStore) TransitionStatus(ctx context.Context, id string, next models.PaymentStatus, processedDate, notes string) (*models.PaymentTracking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := scanPayment(tx.QueryRowContext(ctx, selectPaymentSQL+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}

	if !payment.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: payment %s: %s -> %s",
			ErrInvalidTransition, id, payment.Status, next)
	}

	stamped := payment.ProcessedDate
	if next == models.PaymentStatusCompleted || next == models.PaymentStatusFailed || next == models.PaymentStatusRefunded {
		stamped = processedDate
	}
	if notes == "" {
		notes = payment.Notes
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payment_tracking SET status = $1, processed_date = $2, notes = $3 WHERE id = $4`,
		string(next), nullIfEmpty(stamped), notes, id)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	payment.Status = next
	payment.ProcessedDate = stamped
	payment.Notes = notes
	return payment, nil
}

func scanPayment(row *sql.Row) (*models.PaymentTracking, error) {
	var (
		p             models.PaymentTracking
		method        string
		status        string
		processedDate sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.FranchiseID, &p.FranchiseName, &p.RoyaltyCalculationID,
		&p.Amount, &method, &status, &p.TransactionID, &p.ReferenceNumber,
		&p.PaymentDate, &processedDate, &p.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: payment", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.PaymentMethod = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	if processedDate.Valid {
		p.ProcessedDate = processedDate.String
	}
	return &p, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
