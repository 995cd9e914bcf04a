// internal/workers/reporting/generate-revenue-report/handler.go
package generaterevenuereport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"prmcms-workers/internal/billing"
	apperrors "prmcms-workers/internal/common/errors"
	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/common/metrics"
	"prmcms-workers/internal/common/validation"
	"prmcms-workers/internal/models"
	"prmcms-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "generate-revenue-report"
)

var (
	ErrInvalidPeriodFormat  = errors.New("INVALID_PERIOD_FORMAT")
	ErrFranchiseNotFound    = errors.New("DANGLING_REFERENCE")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrReportIndexFailed    = errors.New("REPORT_INDEX_FAILED")
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ReportIndexer ships a finished report to the search backend.
// database.ElasticsearchClient satisfies it.
type ReportIndexer interface {
	IndexDocument(ctx context.Context, index, docID string, body []byte) error
}

type Handler struct {
	config       *Config
	franchises   *store.FranchiseStore
	reports      *store.ReportStore
	indexer      ReportIndexer
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, indexer ReportIndexer, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		franchises:   store.NewFranchiseStore(db),
		reports:      store.NewReportStore(db),
		indexer:      indexer,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithValidator turns on input validation against the activity
// registry schema for this task type.
func (h *Handler) WithValidator(v *validation.SchemaValidator) *Handler {
	h.validator = v
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "PARSE_ERROR").Inc()
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewStandardError("PARSE_ERROR", fmt.Sprintf("parse input: %v", err)))
		return
	}

	if h.validator != nil {
		if vars, err := job.GetVariablesAsMap(); err == nil {
			if verr := h.validator.ValidateInput(TaskType, vars); verr != nil {
				metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeValidationFailed)).Inc()
				h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewStandardError(apperrors.ErrCodeValidationFailed, verr.Error()))
				return
			}
		}
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := apperrors.ErrorCode("UNKNOWN_ERROR")
		switch {
		case errors.Is(err, ErrInvalidPeriodFormat):
			errorCode = apperrors.ErrCodeInvalidPeriodFormat
		case errors.Is(err, ErrFranchiseNotFound):
			errorCode = apperrors.ErrCodeDanglingReference
		case errors.Is(err, ErrQueryExecutionFailed):
			errorCode = apperrors.ErrCodeQueryExecutionFailed
		case errors.Is(err, ErrReportIndexFailed):
			errorCode = apperrors.ErrCodeReportIndexFailed
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errorCode)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewStandardError(errorCode, err.Error()))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if !periodPattern.MatchString(input.Period) {
		return nil, fmt.Errorf("%w: period %q must be YYYY-MM", ErrInvalidPeriodFormat, input.Period)
	}

	franchise, err := h.franchises.GetByID(ctx, input.FranchiseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: franchise %s", ErrFranchiseNotFound, input.FranchiseID)
		}
		return nil, fmt.Errorf("%w: franchise lookup: %v", ErrQueryExecutionFailed, err)
	}

	lines, err := h.reports.ServiceRevenue(ctx, franchise.ID, input.Period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	var total float64
	for _, line := range lines {
		total += line.Amount
	}

	breakdown := make([]models.ServiceRevenue, 0, len(lines))
	for _, line := range lines {
		pct := 0.0
		if total > 0 {
			pct = billing.RoundCurrency(line.Amount / total * 100)
		}
		breakdown = append(breakdown, models.ServiceRevenue{
			Service:    line.Service,
			Revenue:    billing.RoundCurrency(line.Amount),
			Percentage: pct,
		})
	}

	previous, err := h.reports.TotalRevenue(ctx, franchise.ID, previousPeriod(input.Period))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	growthRate := 0.0
	if previous > 0 {
		growthRate = billing.RoundCurrency((total - previous) / previous * 100)
	}
	comparison := billing.RoundCurrency(total - previous)

	report := &models.RevenueReport{
		// Report identity is derived from franchise and period so a
		// regenerated report overwrites its predecessor everywhere,
		// including the search index.
		ID:                       uuid.NewSHA1(uuid.NameSpaceOID, []byte(franchise.ID+":"+input.Period)).String(),
		FranchiseID:              franchise.ID,
		FranchiseName:            franchise.Name,
		Period:                   input.Period,
		TotalRevenue:             billing.RoundCurrency(total),
		ServiceBreakdown:         breakdown,
		GrowthRate:               growthRate,
		ComparisonPreviousPeriod: comparison,
		GeneratedAt:              time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.reports.Insert(ctx, report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	doc, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("%w: encode report: %v", ErrReportIndexFailed, err)
	}
	if err := h.indexer.IndexDocument(ctx, h.config.ReportIndex, report.ID, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportIndexFailed, err)
	}

	h.logger.Info("revenue report generated", map[string]interface{}{
		"reportId":     report.ID,
		"franchiseId":  report.FranchiseID,
		"period":       report.Period,
		"totalRevenue": report.TotalRevenue,
		"growthRate":   report.GrowthRate,
	})

	return &Output{
		ReportID:                 report.ID,
		FranchiseID:              report.FranchiseID,
		Period:                   report.Period,
		TotalRevenue:             report.TotalRevenue,
		ServiceBreakdown:         report.ServiceBreakdown,
		GrowthRate:               report.GrowthRate,
		ComparisonPreviousPeriod: report.ComparisonPreviousPeriod,
		GeneratedAt:              report.GeneratedAt,
	}, nil
}

// previousPeriod returns the calendar month before a YYYY-MM period.
func previousPeriod(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return t.AddDate(0, -1, 0).Format("2006-01")
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
