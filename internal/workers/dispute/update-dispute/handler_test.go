// internal/workers/dispute/update-dispute/handler_test.go
package updatedispute

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/store"
)

func disputeRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "franchise_id", "franchise_name", "royalty_calculation_id",
		"dispute_type", "description", "disputed_amount", "evidence_files",
		"status", "priority", "assigned_to", "created_at", "resolved_at",
		"resolution", "resolution_amount",
	}).AddRow(
		"dispute-001", "franchise-001", "PRMCMS San Juan Centro", "calc-001",
		"calculation_error", "Revenue figure includes a refunded shipment", 850.0, "{}",
		status, "medium", nil, "2024-02-05T14:00:00Z", nil,
		nil, nil,
	)
}

func TestExecute_AssignsReviewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("dispute-001").
		WillReturnRows(disputeRow("open"))
	mock.ExpectExec("UPDATE dispute_cases").
		WithArgs("under_review", "maria.rivera", "high", "dispute-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		DisputeID:  "dispute-001",
		NewStatus:  "under_review",
		AssignedTo: "maria.rivera",
		Priority:   "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "under_review", output.DisputeStatus)
	assert.Equal(t, "maria.rivera", output.AssignedTo)
	assert.Equal(t, "high", output.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_PriorityOnlyChangeKeepsStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("dispute-001").
		WillReturnRows(disputeRow("open"))
	mock.ExpectExec("UPDATE dispute_cases").
		WithArgs("open", nil, "urgent", "dispute-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		DisputeID: "dispute-001",
		Priority:  "urgent",
	})
	require.NoError(t, err)
	assert.Equal(t, "open", output.DisputeStatus)
	assert.Equal(t, "urgent", output.Priority)
}

func TestExecute_ClosedDisputeCannotReopen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("dispute-001").
		WillReturnRows(disputeRow("closed"))
	mock.ExpectRollback()

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{
		DisputeID: "dispute-001",
		NewStatus: "under_review",
	})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestExecute_RejectsEmptyUpdate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{DisputeID: "dispute-001"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestExecute_MissingDispute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("dispute-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{
		DisputeID: "dispute-missing",
		NewStatus: "under_review",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
