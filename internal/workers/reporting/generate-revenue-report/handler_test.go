// internal/workers/reporting/generate-revenue-report/handler_test.go
package generaterevenuereport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/models"
)

type fakeIndexer struct {
	index string
	docID string
	body  []byte
	err   error
	calls int
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, index, docID string, body []byte) error {
	f.calls++
	f.index = index
	f.docID = docID
	f.body = body
	return f.err
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

func TestExecute_GeneratesReportWithBreakdown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, municipality").
		WithArgs("franchise-001").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT service, SUM").
		WithArgs("franchise-001", "2024-01").
		WillReturnRows(sqlmock.NewRows([]string{"service", "sum"}).
			AddRow("package_handling", 25000.0).
			AddRow("shipping", 10000.0).
			AddRow("storage", 1000.0))
	mock.ExpectQuery("SELECT SUM").
		WithArgs("franchise-001", "2023-12").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(30000.0))
	mock.ExpectExec("INSERT INTO revenue_reports").
		WithArgs(
			sqlmock.AnyArg(), "franchise-001", "PRMCMS San Juan Centro", "2024-01",
			36000.0, sqlmock.AnyArg(), 20.0, 6000.0, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	indexer := &fakeIndexer{}
	h := NewHandler(LoadConfig(), db, indexer, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		FranchiseID: "franchise-001",
		Period:      "2024-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 36000.0, output.TotalRevenue)
	assert.Equal(t, 20.0, output.GrowthRate)
	assert.Equal(t, 6000.0, output.ComparisonPreviousPeriod)
	require.Len(t, output.ServiceBreakdown, 3)
	assert.Equal(t, models.ServiceRevenue{Service: "package_handling", Revenue: 25000.0, Percentage: 69.44}, output.ServiceBreakdown[0])
	assert.Equal(t, models.ServiceRevenue{Service: "shipping", Revenue: 10000.0, Percentage: 27.78}, output.ServiceBreakdown[1])
	assert.Equal(t, models.ServiceRevenue{Service: "storage", Revenue: 1000.0, Percentage: 2.78}, output.ServiceBreakdown[2])

	assert.Equal(t, 1, indexer.calls)
	assert.Equal(t, "revenue-reports", indexer.index)
	assert.Equal(t, output.ReportID, indexer.docID)

	var indexed models.RevenueReport
	require.NoError(t, json.Unmarshal(indexer.body, &indexed))
	assert.Equal(t, output.TotalRevenue, indexed.TotalRevenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ReportIDIsStablePerPeriod(t *testing.T) {
	run := func() string {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, name, municipality").
			WillReturnRows(franchiseRow())
		mock.ExpectQuery("SELECT service, SUM").
			WillReturnRows(sqlmock.NewRows([]string{"service", "sum"}).AddRow("shipping", 500.0))
		mock.ExpectQuery("SELECT SUM").
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
		mock.ExpectExec("INSERT INTO revenue_reports").
			WillReturnResult(sqlmock.NewResult(1, 1))

		h := NewHandler(LoadConfig(), db, &fakeIndexer{}, logger.NewTestLogger(t))
		output, err := h.Execute(context.Background(), &Input{
			FranchiseID: "franchise-001",
			Period:      "2024-03",
		})
		require.NoError(t, err)
		return output.ReportID
	}

	assert.Equal(t, run(), run())
}

func TestExecute_ZeroActivityPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, municipality").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT service, SUM").
		WillReturnRows(sqlmock.NewRows([]string{"service", "sum"}))
	mock.ExpectQuery("SELECT SUM").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
	mock.ExpectExec("INSERT INTO revenue_reports").
		WillReturnResult(sqlmock.NewResult(1, 1))

	indexer := &fakeIndexer{}
	h := NewHandler(LoadConfig(), db, indexer, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		FranchiseID: "franchise-001",
		Period:      "2024-02",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, output.TotalRevenue)
	assert.Equal(t, 0.0, output.GrowthRate)
	assert.Equal(t, 0.0, output.ComparisonPreviousPeriod)
	assert.Empty(t, output.ServiceBreakdown)
	assert.Equal(t, 1, indexer.calls)
}

func TestExecute_InvalidPeriodFormat(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(LoadConfig(), db, &fakeIndexer{}, logger.NewTestLogger(t))
	for _, period := range []string{"2024-13", "202401", "2024", ""} {
		_, err := h.Execute(context.Background(), &Input{
			FranchiseID: "franchise-001",
			Period:      period,
		})
		assert.ErrorIs(t, err, ErrInvalidPeriodFormat, "period %q", period)
	}
}

func TestExecute_IndexFailureIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, municipality").
		WillReturnRows(franchiseRow())
	mock.ExpectQuery("SELECT service, SUM").
		WillReturnRows(sqlmock.NewRows([]string{"service", "sum"}).AddRow("shipping", 500.0))
	mock.ExpectQuery("SELECT SUM").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
	mock.ExpectExec("INSERT INTO revenue_reports").
		WillReturnResult(sqlmock.NewResult(1, 1))

	indexer := &fakeIndexer{err: errors.New("cluster unavailable")}
	h := NewHandler(LoadConfig(), db, indexer, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{
		FranchiseID: "franchise-001",
		Period:      "2024-02",
	})
	assert.ErrorIs(t, err, ErrReportIndexFailed)
	// The upsert landed before the index attempt, so a retried job
	// converges on the same row instead of duplicating it.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, indexer.calls)
}

func TestPreviousPeriod(t *testing.T) {
	assert.Equal(t, "2023-12", previousPeriod("2024-01"))
	assert.Equal(t, "2024-01", previousPeriod("2024-02"))
}
