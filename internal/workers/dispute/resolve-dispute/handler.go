// internal/workers/dispute/resolve-dispute/handler.go
package resolvedispute

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
	"prmcms-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "resolve-dispute"
)

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config       *Config
	disputes     *store.DisputeStore
	royalties    *store.RoyaltyStore
	audit        *store.AuditStore
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		disputes:     store.NewDisputeStore(db),
		royalties:    store.NewRoyaltyStore(db),
		audit:        store.NewAuditStore(db),
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
		case errors.Is(err, ErrValidationFailed):
			errorCode = apperrors.ErrCodeValidationFailed
		case errors.Is(err, store.ErrNotFound):
			errorCode = apperrors.ErrCodeDanglingReference
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
	if input.Resolution == "" {
		return nil, fmt.Errorf("%w: resolution is required", ErrValidationFailed)
	}
	if input.ResolutionAmount != nil && *input.ResolutionAmount < 0 {
		return nil, fmt.Errorf("%w: resolution amount %.2f cannot be negative",
			ErrValidationFailed, *input.ResolutionAmount)
	}

	resolvedAt := time.Now().UTC().Format(time.RFC3339)
	dispute, applied, err := h.disputes.Resolve(ctx, input.DisputeID, input.Resolution, resolvedAt, input.ResolutionAmount)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	output := &Output{
		DisputeID:        dispute.ID,
		DisputeStatus:    string(dispute.Status),
		Resolution:       dispute.Resolution,
		ResolutionAmount: dispute.ResolutionAmount,
		ResolvedAt:       dispute.ResolvedAt,
		AlreadyResolved:  !applied,
	}

	if !applied {
		// First resolution wins. Replays report the original outcome.
		h.logger.Info("dispute already resolved", map[string]interface{}{
			"disputeId":  dispute.ID,
			"resolvedAt": dispute.ResolvedAt,
		})
		return output, nil
	}

	// Release the disputed calculation back into the payment flow. A
	// calculation a reviewer already moved elsewhere stays untouched.
	calc, err := h.royalties.GetByID(ctx, dispute.RoyaltyCalculationID)
	switch {
	case err == nil && calc.Status == models.RoyaltyStatusDisputed:
		updated, terr := h.royalties.TransitionStatus(ctx, calc.ID, models.RoyaltyStatusApproved, "")
		if terr != nil {
			h.logger.Warn("calculation not re-approved", map[string]interface{}{
				"calculationId": calc.ID,
				"error":         terr,
			})
		} else {
			output.CalculationStatus = string(updated.Status)
		}
	case err == nil:
		output.CalculationStatus = string(calc.Status)
	case errors.Is(err, store.ErrNotFound):
		h.logger.Warn("resolved dispute references missing calculation", map[string]interface{}{
			"disputeId":     dispute.ID,
			"calculationId": dispute.RoyaltyCalculationID,
		})
	default:
		h.logger.Warn("calculation lookup failed after resolution", map[string]interface{}{
			"calculationId": dispute.RoyaltyCalculationID,
			"error":         err,
		})
	}

	if err := h.audit.Record(ctx, "dispute_case", dispute.ID, "resolved", input.Resolution); err != nil {
		h.logger.Warn("audit record failed", map[string]interface{}{
			"disputeId": dispute.ID,
			"error":     err,
		})
	}

	h.logger.Info("dispute resolved", map[string]interface{}{
		"disputeId":     dispute.ID,
		"calculationId": dispute.RoyaltyCalculationID,
		"resolvedAt":    dispute.ResolvedAt,
	})

	return output, nil
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
