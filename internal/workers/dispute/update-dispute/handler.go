// internal/workers/dispute/update-dispute/handler.go
package updatedispute

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
	TaskType = "update-dispute"
)

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config       *Config
	disputes     *store.DisputeStore
	audit        *store.AuditStore
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		disputes:     store.NewDisputeStore(db),
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
		case errors.Is(err, store.ErrInvalidTransition):
			errorCode = apperrors.ErrCodeInvalidStatusTransition
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
	next := models.DisputeStatus(input.NewStatus)
	if input.NewStatus != "" && !next.Valid() {
		return nil, fmt.Errorf("%w: unknown dispute status %q", ErrValidationFailed, input.NewStatus)
	}
	priority := models.DisputePriority(input.Priority)
	if input.Priority != "" && !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidationFailed, input.Priority)
	}
	if input.NewStatus == "" && input.AssignedTo == "" && input.Priority == "" {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidationFailed)
	}

	updated, err := h.disputes.Update(ctx, input.DisputeID, next, input.AssignedTo, priority)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	// Audit trail is best-effort; the update already committed.
	if err := h.audit.Record(ctx, "dispute_case", updated.ID, "review_update",
		fmt.Sprintf("status=%s assignedTo=%s priority=%s", updated.Status, updated.AssignedTo, updated.Priority)); err != nil {
		h.logger.Warn("audit record failed", map[string]interface{}{
			"disputeId": updated.ID,
			"error":     err,
		})
	}

	h.logger.Info("dispute updated", map[string]interface{}{
		"disputeId":  updated.ID,
		"status":     string(updated.Status),
		"assignedTo": updated.AssignedTo,
		"priority":   string(updated.Priority),
	})

	return &Output{
		DisputeID:     updated.ID,
		DisputeStatus: string(updated.Status),
		AssignedTo:    updated.AssignedTo,
		Priority:      string(updated.Priority),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
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
