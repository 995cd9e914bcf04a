// internal/workers/payment/update-payment-status/handler_test.go
package updatepaymentstatus

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/store"
)

func paymentRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "franchise_id", "franchise_name", "royalty_calculation_id", "amount",
		"payment_method", "status", "transaction_id", "reference_number",
		"payment_date", "processed_date", "notes",
	}).AddRow(
		"pay-001", "franchise-001", "PRMCMS San Juan Centro", "calc-001", 14625.0,
		"bank_transfer", status, "TXN-A1B2C3D4E5F6", "REF-F6E5D4C3B2A1",
		"2024-02-10", nil, "",
	)
}

func TestExecute_StartProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("pending"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("pending"))
	mock.ExpectExec("UPDATE payment_tracking").
		WithArgs("processing", nil, "", "pay-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		PaymentID: "pay-001",
		NewStatus: "processing",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", output.PreviousStatus)
	assert.Equal(t, "processing", output.Status)
	assert.Empty(t, output.ProcessedDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_CompleteStampsProcessedDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("processing"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("processing"))
	mock.ExpectExec("UPDATE payment_tracking").
		WithArgs("completed", "2024-02-12", "cleared by bank", "pay-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		PaymentID:     "pay-001",
		NewStatus:     "completed",
		ProcessedDate: "2024-02-12",
		Notes:         "cleared by bank",
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", output.Status)
	assert.Equal(t, "2024-02-12", output.ProcessedDate)
}

func TestExecute_RefundStampsProcessedDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("completed"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("completed"))
	mock.ExpectExec("UPDATE payment_tracking").
		WithArgs("refunded", "2024-03-01", "duplicate charge reversed", "pay-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		PaymentID:     "pay-001",
		NewStatus:     "refunded",
		ProcessedDate: "2024-03-01",
		Notes:         "duplicate charge reversed",
	})
	require.NoError(t, err)
	assert.Equal(t, "refunded", output.Status)
	assert.Equal(t, "2024-03-01", output.ProcessedDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_RefundOnlyFromCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("pending"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-001").
		WillReturnRows(paymentRow("pending"))
	mock.ExpectRollback()

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{
		PaymentID: "pay-001",
		NewStatus: "refunded",
	})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestExecute_RejectsUnknownStatus(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{
		PaymentID: "pay-001",
		NewStatus: "reversed",
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestExecute_MissingPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("pay-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{
		PaymentID: "pay-missing",
		NewStatus: "processing",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
