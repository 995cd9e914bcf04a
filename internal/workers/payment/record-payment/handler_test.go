// internal/workers/payment/record-payment/handler_test.go
package recordpayment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prmcms-workers/internal/common/database"
	"prmcms-workers/internal/common/logger"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisDB, redisMock := redismock.NewClientMock()

	h := NewHandler(LoadConfig(), db, &database.RedisClient{Client: redisDB}, logger.NewTestLogger(t))
	return h, dbMock, redisMock
}

func franchiseRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "municipality", "email", "phone", "status", "created_at", "updated_at",
	}).AddRow(
		"franchise-001", "PRMCMS San Juan Centro", "San Juan",
		"sanjuan@prmcms.com", "+1-787-555-0101", "active",
		"2023-01-15T09:00:00Z", "2024-01-01T09:00:00Z",
	)
}

func existsRow(exists bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
}

func TestExecute_RecordsPendingPayment(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-001").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("calc-001").
		WillReturnRows(existsRow(true))
	mock.ExpectExec("INSERT INTO payment_tracking").
		WithArgs(
			sqlmock.AnyArg(), "franchise-001", "PRMCMS San Juan Centro", "calc-001",
			14625.0, "bank_transfer", "pending",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "2024-02-10", "January royalties",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-001",
		RoyaltyCalculationID: "calc-001",
		Amount:               14625.0,
		PaymentMethod:        "bank_transfer",
		PaymentDate:          "2024-02-10",
		Notes:                "January royalties",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", output.PaymentStatus)
	assert.Equal(t, 14625.0, output.Amount)
	assert.NotEmpty(t, output.PaymentID)
	assert.Regexp(t, regexp.MustCompile(`^TXN-[0-9A-F]{12}$`), output.TransactionID)
	assert.Regexp(t, regexp.MustCompile(`^REF-[0-9A-F]{12}$`), output.ReferenceNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_IdempotencyKeyReservedBeforeInsert(t *testing.T) {
	h, mock, redisMock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-001").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("calc-001").
		WillReturnRows(existsRow(true))
	redisMock.Regexp().ExpectSetNX("payment:idem:pay-jan-2024", `.*`, 24*time.Hour).SetVal(true)
	mock.ExpectExec("INSERT INTO payment_tracking").
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-001",
		RoyaltyCalculationID: "calc-001",
		Amount:               14625.0,
		PaymentMethod:        "bank_transfer",
		PaymentDate:          "2024-02-10",
		IdempotencyKey:       "pay-jan-2024",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", output.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// A replayed job with the same idempotencyKey must not write a second
// payment row.
func TestExecute_ReplayedIdempotencyKeyRejected(t *testing.T) {
	h, mock, redisMock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-001").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("calc-001").
		WillReturnRows(existsRow(true))
	redisMock.Regexp().ExpectSetNX("payment:idem:pay-jan-2024", `.*`, 24*time.Hour).SetVal(false)

	_, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-001",
		RoyaltyCalculationID: "calc-001",
		Amount:               14625.0,
		PaymentMethod:        "bank_transfer",
		PaymentDate:          "2024-02-10",
		IdempotencyKey:       "pay-jan-2024",
	})
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	// No INSERT was expected; any write would fail ExpectationsWereMet.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestExecute_IdempotencyKeyReleasedOnInsertFailure(t *testing.T) {
	h, mock, redisMock := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-001").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("calc-001").
		WillReturnRows(existsRow(true))
	redisMock.Regexp().ExpectSetNX("payment:idem:pay-jan-2024", `.*`, 24*time.Hour).SetVal(true)
	mock.ExpectExec("INSERT INTO payment_tracking").
		WillReturnError(assert.AnError)
	redisMock.ExpectDel("payment:idem:pay-jan-2024").SetVal(1)

	_, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-001",
		RoyaltyCalculationID: "calc-001",
		Amount:               14625.0,
		PaymentMethod:        "bank_transfer",
		PaymentDate:          "2024-02-10",
		IdempotencyKey:       "pay-jan-2024",
	})
	assert.ErrorIs(t, err, ErrDatabaseInsertFailed)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestExecute_RejectsNonPositiveAmount(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, amount := range []float64{0, -500.0} {
		_, err := h.Execute(context.Background(), &Input{
			FranchiseID:          "franchise-001",
			RoyaltyCalculationID: "calc-001",
			Amount:               amount,
			PaymentMethod:        "check",
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestExecute_RejectsUnknownPaymentMethod(t *testing.T) {
	h, _, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-001",
		RoyaltyCalculationID: "calc-001",
		Amount:               100.0,
		PaymentMethod:        "cryptocurrency",
	})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestExecute_RejectsMissingCalculationReference(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-001").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("calc-missing").
		WillReturnRows(existsRow(false))

	_, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-001",
		RoyaltyCalculationID: "calc-missing",
		Amount:               100.0,
		PaymentMethod:        "cash",
	})
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_RejectsUnknownFranchise(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-999").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := h.Execute(context.Background(), &Input{
		FranchiseID:          "franchise-999",
		RoyaltyCalculationID: "calc-001",
		Amount:               100.0,
		PaymentMethod:        "cash",
	})
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestNewTransactionID_Unique(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := NewTransactionID()
		require.False(t, seen[id], "duplicate transaction id %s", id)
		seen[id] = true
	}
}
