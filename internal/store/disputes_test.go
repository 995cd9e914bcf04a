// internal/store/disputes_test.go
package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prmcms-workers/internal/models"
)

func disputeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "franchise_id", "franchise_name", "royalty_calculation_id",
		"dispute_type", "description", "disputed_amount", "evidence_files",
		"status", "priority", "assigned_to", "created_at", "resolved_at",
		"resolution", "resolution_amount",
	})
}

func sampleDisputeRow(rows *sqlmock.Rows, status string) *sqlmock.Rows {
	return rows.AddRow(
		"disp-001", "franchise-001", "PRMCMS San Juan Centro", "calc-001",
		"calculation_error", "Ingresos de enero incorrectos", 10625.0,
		pq.StringArray{"evidencia-enero.pdf"}, status, "high", nil,
		"2024-02-05T09:00:00Z", nil, nil, nil,
	)
}

func TestDisputeStore_Update_OpenToUnderReview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("disp-001").
		WillReturnRows(sampleDisputeRow(disputeRows(), "open"))
	mock.ExpectExec("UPDATE dispute_cases").
		WithArgs("under_review", "reviewer@prmcms.com", "high", "disp-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewDisputeStore(db)
	d, err := s.Update(context.Background(), "disp-001", models.DisputeStatusUnderReview, "reviewer@prmcms.com", "")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, d.Status)
	assert.Equal(t, "reviewer@prmcms.com", d.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeStore_Update_ClosedRejectsReopen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("disp-001").
		WillReturnRows(sampleDisputeRow(disputeRows(), "closed"))
	mock.ExpectRollback()

	s := NewDisputeStore(db)
	_, err = s.Update(context.Background(), "disp-001", models.DisputeStatusOpen, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDisputeStore_Resolve_FirstResolutionWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	amount := 9500.0

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("disp-001").
		WillReturnRows(sampleDisputeRow(disputeRows(), "under_review"))
	mock.ExpectExec("UPDATE dispute_cases").
		WithArgs("resolved", "Ajuste aplicado al cálculo de enero", "2024-02-20T15:00:00Z", &amount, "disp-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewDisputeStore(db)
	d, applied, err := s.Resolve(context.Background(), "disp-001",
		"Ajuste aplicado al cálculo de enero", "2024-02-20T15:00:00Z", &amount)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.DisputeStatusResolved, d.Status)
	assert.Equal(t, "2024-02-20T15:00:00Z", d.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeStore_Resolve_IdempotentOnResolved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := disputeRows().AddRow(
		"disp-001", "franchise-001", "PRMCMS San Juan Centro", "calc-001",
		"calculation_error", "Ingresos de enero incorrectos", 10625.0,
		pq.StringArray{}, "resolved", "high", "reviewer@prmcms.com",
		"2024-02-05T09:00:00Z", "2024-02-20T15:00:00Z",
		"Ajuste aplicado al cálculo de enero", 9500.0,
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, franchise_id").
		WithArgs("disp-001").
		WillReturnRows(rows)
	mock.ExpectRollback()

	s := NewDisputeStore(db)
	other := 1.0
	d, applied, err := s.Resolve(context.Background(), "disp-001", "Segunda resolución", "2024-03-01T00:00:00Z", &other)
	require.NoError(t, err)

	// The original resolution is untouched.
	assert.False(t, applied)
	assert.Equal(t, "Ajuste aplicado al cálculo de enero", d.Resolution)
	assert.Equal(t, "2024-02-20T15:00:00Z", d.ResolvedAt)
	require.NotNil(t, d.ResolutionAmount)
	assert.Equal(t, 9500.0, *d.ResolutionAmount)
}
