// internal/workers/payment/record-payment/handler.go
package recordpayment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prmcms-workers/internal/common/database"
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
	TaskType = "record-payment"
)

var (
	ErrInvalidAmount          = errors.New("INVALID_AMOUNT")
	ErrValidationFailed       = errors.New("VALIDATION_FAILED")
	ErrDanglingReference      = errors.New("DANGLING_REFERENCE")
	ErrDuplicatePayment       = errors.New("DUPLICATE_IDEMPOTENCY_KEY")
	ErrIdempotencyCheckFailed = errors.New("IDEMPOTENCY_CHECK_FAILED")
	ErrDatabaseInsertFailed   = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config       *Config
	redis        *database.RedisClient
	franchises   *store.FranchiseStore
	royalties    *store.RoyaltyStore
	payments     *store.PaymentStore
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, redis *database.RedisClient, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		redis:        redis,
		franchises:   store.NewFranchiseStore(db),
		royalties:    store.NewRoyaltyStore(db),
		payments:     store.NewPaymentStore(db),
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
		case errors.Is(err, ErrDuplicatePayment):
			errorCode = apperrors.ErrCodeDuplicateIdempotencyKey
		case errors.Is(err, ErrIdempotencyCheckFailed):
			errorCode = apperrors.ErrCodeIdempotencyCheckFailed
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
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount %.2f must be positive", ErrInvalidAmount, input.Amount)
	}
	method := models.PaymentMethod(input.PaymentMethod)
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidationFailed, input.PaymentMethod)
	}
	if input.RoyaltyCalculationID == "" {
		return nil, fmt.Errorf("%w: royaltyCalculationId is required", ErrValidationFailed)
	}

	franchise, err := h.franchises.GetByID(ctx, input.FranchiseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: franchise %s", ErrDanglingReference, input.FranchiseID)
		}
		return nil, fmt.Errorf("%w: franchise lookup: %v", ErrDatabaseInsertFailed, err)
	}

	// A payment must reference a persisted calculation. Rejecting here
	// keeps orphan payments out of the ledger.
	exists, err := h.royalties.Exists(ctx, input.RoyaltyCalculationID)
	if err != nil {
		return nil, fmt.Errorf("%w: calculation lookup: %v", ErrDatabaseInsertFailed, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: royalty calculation %s", ErrDanglingReference, input.RoyaltyCalculationID)
	}

	// Callers that retry supply an idempotencyKey; the Redis reservation
	// rejects the replay before a second row reaches the ledger.
	idemKey := ""
	if input.IdempotencyKey != "" {
		idemKey = "payment:idem:" + input.IdempotencyKey
		acquired, err := h.redis.SetNX(ctx, idemKey, time.Now().UTC().Format(time.RFC3339), h.config.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdempotencyCheckFailed, err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePayment, idemKey)
		}
	}

	paymentDate := input.PaymentDate
	if paymentDate == "" {
		paymentDate = time.Now().UTC().Format("2006-01-02")
	}

	payment := &models.PaymentTracking{
		ID:                   uuid.New().String(),
		FranchiseID:          franchise.ID,
		FranchiseName:        franchise.Name,
		RoyaltyCalculationID: input.RoyaltyCalculationID,
		Amount:               input.Amount,
		PaymentMethod:        method,
		Status:               models.PaymentStatusPending,
		TransactionID:        NewTransactionID(),
		ReferenceNumber:      NewReferenceNumber(),
		PaymentDate:          paymentDate,
		Notes:                input.Notes,
	}

	if err := h.payments.Insert(ctx, payment); err != nil {
		if idemKey != "" {
			h.releaseIdempotencyKey(idemKey)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}

	h.logger.Info("payment recorded", map[string]interface{}{
		"paymentId":     payment.ID,
		"franchiseId":   payment.FranchiseID,
		"calculationId": payment.RoyaltyCalculationID,
		"amount":        payment.Amount,
		"transactionId": payment.TransactionID,
	})

	return &Output{
		PaymentID:       payment.ID,
		FranchiseID:     payment.FranchiseID,
		Amount:          payment.Amount,
		PaymentStatus:   string(payment.Status),
		TransactionID:   payment.TransactionID,
		ReferenceNumber: payment.ReferenceNumber,
		PaymentDate:     payment.PaymentDate,
	}, nil
}

// releaseIdempotencyKey frees the reservation after a failed insert so
// a retry is not misreported as a duplicate.
func (h *Handler) releaseIdempotencyKey(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.redis.Del(ctx, key); err != nil {
		h.logger.Warn("idempotency key release failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
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
