// internal/workers/data-access/query-royalty-data/handler.go
package queryroyaltydata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "prmcms-workers/internal/common/errors"
	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/common/metrics"
	"prmcms-workers/internal/common/validation"
	"prmcms-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "query-royalty-data"
)

var (
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		db:           db,
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
		case errors.Is(err, ErrInvalidQueryType):
			errorCode = apperrors.ErrCodeInvalidQueryType
		case errors.Is(err, ErrQueryTimeout):
			errorCode = apperrors.ErrCodeQueryTimeout
		case errors.Is(err, ErrQueryExecutionFailed):
			errorCode = apperrors.ErrCodeQueryExecutionFailed
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
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}

	var (
		query string
		args  []interface{}
	)

	switch models.QueryType(input.QueryType) {
	case models.QueryTypeCalculationsByStatus:
		query = `SELECT id, franchise_id, franchise_name, period, gross_revenue, total_fees, net_payment, status, due_date
			FROM royalty_calculations WHERE status = $1`
		args = append(args, input.Status)
		if input.FranchiseID != "" {
			query += ` AND franchise_id = $2`
			args = append(args, input.FranchiseID)
		}
		query += fmt.Sprintf(` ORDER BY period DESC LIMIT %d`, limit)

	case models.QueryTypeOverdueCalculations:
		query = `SELECT id, franchise_id, franchise_name, period, total_fees, due_date, status
			FROM royalty_calculations WHERE due_date < $1 AND status <> 'paid'`
		args = append(args, time.Now().UTC().Format("2006-01-02"))
		query += fmt.Sprintf(` ORDER BY due_date ASC LIMIT %d`, limit)

	case models.QueryTypePendingPayments:
		query = `SELECT id, franchise_id, franchise_name, royalty_calculation_id, amount, payment_method, payment_date
			FROM payment_tracking WHERE status = 'pending'`
		if input.FranchiseID != "" {
			query += ` AND franchise_id = $1`
			args = append(args, input.FranchiseID)
		}
		query += fmt.Sprintf(` ORDER BY payment_date ASC LIMIT %d`, limit)

	case models.QueryTypeCompletedPayments:
		query = `SELECT id, franchise_id, franchise_name, royalty_calculation_id, amount, payment_method, processed_date
			FROM payment_tracking WHERE status = 'completed'`
		if input.FranchiseID != "" {
			query += ` AND franchise_id = $1`
			args = append(args, input.FranchiseID)
		}
		query += fmt.Sprintf(` ORDER BY processed_date DESC LIMIT %d`, limit)

	case models.QueryTypeOpenDisputes:
		query = `SELECT id, franchise_id, franchise_name, royalty_calculation_id, dispute_type, disputed_amount, status, priority, created_at
			FROM dispute_cases WHERE status IN ('open', 'under_review')`
		if input.FranchiseID != "" {
			query += ` AND franchise_id = $1`
			args = append(args, input.FranchiseID)
		}
		query += fmt.Sprintf(` ORDER BY created_at ASC LIMIT %d`, limit)

	case models.QueryTypeRoyaltyTotals:
		query = `SELECT franchise_id, franchise_name, COUNT(*) AS calculations,
			SUM(gross_revenue) AS gross_revenue, SUM(total_fees) AS total_fees, SUM(net_payment) AS net_payment
			FROM royalty_calculations WHERE period = $1
			GROUP BY franchise_id, franchise_name ORDER BY franchise_id`
		args = append(args, input.Period)

	case models.QueryTypeRevenueReport:
		query = `SELECT id, franchise_id, franchise_name, period, total_revenue, growth_rate, comparison_previous_period, generated_at
			FROM revenue_reports WHERE franchise_id = $1 AND period = $2`
		args = append(args, input.FranchiseID, input.Period)

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidQueryType, input.QueryType)
	}

	results, err := h.runQuery(ctx, query, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrQueryTimeout, input.QueryType)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	h.logger.Info("query executed", map[string]interface{}{
		"queryType": input.QueryType,
		"count":     len(results),
	})

	return &Output{
		QueryType: input.QueryType,
		Results:   results,
		Count:     len(results),
		QueriedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// runQuery executes a read query and flattens every row into a map
// keyed by column name, so the workflow engine gets plain JSON.
func (h *Handler) runQuery(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
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
