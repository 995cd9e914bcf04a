// internal/workers/dispute/create-dispute/handler.go
package createdispute

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
	"github.com/google/uuid"
)

const (
	TaskType = "create-dispute"
)

var (
	ErrInvalidAmount        = errors.New("INVALID_AMOUNT")
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrDanglingReference    = errors.New("DANGLING_REFERENCE")
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config       *Config
	franchises   *store.FranchiseStore
	disputes     *store.DisputeStore
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		franchises:   store.NewFranchiseStore(db),
		disputes:     store.NewDisputeStore(db),
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
		case errors.Is(err, ErrInvalidAmount):
			errorCode = apperrors.ErrCodeInvalidAmount
		case errors.Is(err, ErrValidationFailed):
			errorCode = apperrors.ErrCodeValidationFailed
		case errors.Is(err, ErrDanglingReference):
			errorCode = apperrors.ErrCodeDanglingReference
		case errors.Is(err, store.ErrInvalidTransition):
			errorCode = apperrors.ErrCodeInvalidStatusTransition
		case errors.Is(err, ErrDatabaseInsertFailed):
			errorCode = apperrors.ErrCodeDatabaseInsertFailed
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
	disputeType := models.DisputeType(input.DisputeType)
	if !disputeType.Valid() {
		return nil, fmt.Errorf("%w: unknown dispute type %q", ErrValidationFailed, input.DisputeType)
	}
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidationFailed)
	}
	if input.DisputedAmount <= 0 {
		return nil, fmt.Errorf("%w: disputed amount %.2f must be positive", ErrInvalidAmount, input.DisputedAmount)
	}
	priority := models.DisputePriority(input.Priority)
	if input.Priority == "" {
		priority = models.DisputePriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidationFailed, input.Priority)
	}

	franchise, err := h.franchises.GetByID(ctx, input.FranchiseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: franchise %s", ErrDanglingReference, input.FranchiseID)
		}
		return nil, fmt.Errorf("%w: franchise lookup: %v", ErrDatabaseInsertFailed, err)
	}

	evidence := input.EvidenceFiles
	if evidence == nil {
		evidence = []string{}
	}

	dispute := &models.DisputeCase{
		ID:                   uuid.New().String(),
		FranchiseID:          franchise.ID,
		FranchiseName:        franchise.Name,
		RoyaltyCalculationID: input.RoyaltyCalculationID,
		DisputeType:          disputeType,
		Description:          input.Description,
		DisputedAmount:       input.DisputedAmount,
		EvidenceFiles:        evidence,
		Status:               models.DisputeStatusOpen,
		Priority:             priority,
		CreatedAt:            time.Now().UTC().Format(time.RFC3339),
	}

	// Filing the case and flagging the calculation commit together, so a
	// dispute never exists against a calculation that was not flipped.
	calc, err := h.disputes.OpenForCalculation(ctx, dispute)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("%w: royalty calculation %s", ErrDanglingReference, input.RoyaltyCalculationID)
		case errors.Is(err, store.ErrInvalidTransition):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
		}
	}

	h.logger.Info("dispute created", map[string]interface{}{
		"disputeId":     dispute.ID,
		"franchiseId":   dispute.FranchiseID,
		"calculationId": dispute.RoyaltyCalculationID,
		"disputeType":   string(dispute.DisputeType),
		"amount":        dispute.DisputedAmount,
	})

	return &Output{
		DisputeID:         dispute.ID,
		FranchiseID:       dispute.FranchiseID,
		DisputeStatus:     string(dispute.Status),
		Priority:          string(dispute.Priority),
		DisputedAmount:    dispute.DisputedAmount,
		CalculationStatus: string(calc.Status),
		CreatedAt:         dispute.CreatedAt,
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
