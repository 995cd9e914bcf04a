// internal/workers/royalty/calculate-royalty/handler.go
package calculateroyalty

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"prmcms-workers/internal/billing"
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
	TaskType = "calculate-royalty"
)

var (
	ErrInvalidPeriodFormat    = errors.New("INVALID_PERIOD_FORMAT")
	ErrFranchiseNotFound      = errors.New("DANGLING_REFERENCE")
	ErrDuplicateCalculation   = errors.New("DUPLICATE_IDEMPOTENCY_KEY")
	ErrIdempotencyCheckFailed = errors.New("IDEMPOTENCY_CHECK_FAILED")
	ErrDatabaseInsertFailed   = errors.New("DATABASE_INSERT_FAILED")
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type Handler struct {
	config       *Config
	timeout      time.Duration
	redis        *database.RedisClient
	franchises   *store.FranchiseStore
	structures   *store.FeeStructureStore
	royalties    *store.RoyaltyStore
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, redis *database.RedisClient, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		timeout:      config.Timeout,
		redis:        redis,
		franchises:   store.NewFranchiseStore(db),
		structures:   store.NewFeeStructureStore(db),
		royalties:    store.NewRoyaltyStore(db),
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

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
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
		case errors.Is(err, billing.ErrInvalidAmount):
			errorCode = apperrors.ErrCodeInvalidAmount
		case errors.Is(err, ErrFranchiseNotFound):
			errorCode = apperrors.ErrCodeDanglingReference
		case errors.Is(err, ErrDuplicateCalculation):
			errorCode = apperrors.ErrCodeDuplicateIdempotencyKey
		case errors.Is(err, billing.ErrNoActiveFeeStructure):
			errorCode = apperrors.ErrCodeNoActiveFeeStructure
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
	if !periodPattern.MatchString(input.Period) {
		return nil, fmt.Errorf("%w: period %q must be YYYY-MM", ErrInvalidPeriodFormat, input.Period)
	}
	if input.GrossRevenue < 0 {
		return nil, fmt.Errorf("%w: gross revenue %.2f", billing.ErrInvalidAmount, input.GrossRevenue)
	}

	franchise, err := h.franchises.GetByID(ctx, input.FranchiseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: franchise %s", ErrFranchiseNotFound, input.FranchiseID)
		}
		return nil, fmt.Errorf("%w: franchise lookup: %v", ErrDatabaseInsertFailed, err)
	}

	// One calculation per franchise and period. Redis is the fast path,
	// the database check is authoritative.
	idemKey := fmt.Sprintf("royalty:idem:%s:%s", input.FranchiseID, input.Period)
	acquired, err := h.redis.SetNX(ctx, idemKey, time.Now().UTC().Format(time.RFC3339), h.config.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdempotencyCheckFailed, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCalculation, idemKey)
	}

	exists, err := h.royalties.ExistsForPeriod(ctx, input.FranchiseID, input.Period)
	if err != nil {
		h.releaseIdempotencyKey(idemKey)
		return nil, fmt.Errorf("%w: duplicate check: %v", ErrDatabaseInsertFailed, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: calculation already persisted for %s %s",
			ErrDuplicateCalculation, input.FranchiseID, input.Period)
	}

	structures, err := h.structures.ListActive(ctx)
	if err != nil {
		h.releaseIdempotencyKey(idemKey)
		return nil, fmt.Errorf("%w: fee structure lookup: %v", ErrDatabaseInsertFailed, err)
	}

	asOf := input.Period + "-01"
	royaltyStructure, err := billing.ActiveFeeStructure(structures, models.FeeTypeRoyalty, input.FranchiseID, asOf)
	if err != nil {
		h.releaseIdempotencyKey(idemKey)
		return nil, err
	}
	marketingStructure := optionalStructure(structures, models.FeeTypeMarketing, input.FranchiseID, asOf)
	technologyStructure := optionalStructure(structures, models.FeeTypeTechnology, input.FranchiseID, asOf)

	// Volume brackets key off cumulative calendar-year revenue
	// including the period being calculated.
	ytd := input.GrossRevenue
	if royaltyStructure.CalculationMethod == models.MethodVolumeBased {
		prior, err := h.royalties.YTDRevenue(ctx, input.FranchiseID, input.Period[:4])
		if err != nil {
			h.releaseIdempotencyKey(idemKey)
			return nil, fmt.Errorf("%w: year-to-date lookup: %v", ErrDatabaseInsertFailed, err)
		}
		ytd += prior
	}

	breakdown, err := billing.Compute(royaltyStructure, marketingStructure, technologyStructure,
		input.GrossRevenue, ytd, billing.BrandDefaults{
			MarketingRate: h.config.DefaultMarketingRate,
			TechnologyFee: h.config.DefaultTechnologyFee,
		})
	if err != nil {
		h.releaseIdempotencyKey(idemKey)
		return nil, err
	}

	now := time.Now().UTC()
	calc := &models.RoyaltyCalculation{
		ID:            uuid.New().String(),
		FranchiseID:   franchise.ID,
		FranchiseName: franchise.Name,
		Period:        input.Period,
		GrossRevenue:  input.GrossRevenue,
		RoyaltyRate:   breakdown.RoyaltyRate,
		RoyaltyAmount: breakdown.RoyaltyAmount,
		MarketingFee:  breakdown.MarketingFee,
		TechnologyFee: breakdown.TechnologyFee,
		TotalFees:     breakdown.TotalFees,
		NetPayment:    breakdown.NetPayment,
		Status:        models.RoyaltyStatusCalculated,
		CalculatedAt:  now.Format(time.RFC3339),
		DueDate:       now.AddDate(0, 0, h.config.PaymentDueDays).Format("2006-01-02"),
	}

	if err := h.royalties.Insert(ctx, calc); err != nil {
		h.releaseIdempotencyKey(idemKey)
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}

	metrics.RoyaltyCalculationsTotal.WithLabelValues(string(royaltyStructure.CalculationMethod)).Inc()
	metrics.RoyaltyFeesAmount.WithLabelValues("royalty").Add(breakdown.RoyaltyAmount)
	metrics.RoyaltyFeesAmount.WithLabelValues("marketing").Add(breakdown.MarketingFee)
	metrics.RoyaltyFeesAmount.WithLabelValues("technology").Add(breakdown.TechnologyFee)

	h.logger.Info("royalty calculated", map[string]interface{}{
		"calculationId": calc.ID,
		"franchiseId":   calc.FranchiseID,
		"period":        calc.Period,
		"grossRevenue":  calc.GrossRevenue,
		"totalFees":     calc.TotalFees,
		"netPayment":    calc.NetPayment,
	})

	return &Output{
		CalculationID:     calc.ID,
		FranchiseID:       calc.FranchiseID,
		FranchiseName:     calc.FranchiseName,
		Period:            calc.Period,
		GrossRevenue:      calc.GrossRevenue,
		RoyaltyRate:       calc.RoyaltyRate,
		RoyaltyAmount:     calc.RoyaltyAmount,
		MarketingFee:      calc.MarketingFee,
		TechnologyFee:     calc.TechnologyFee,
		TotalFees:         calc.TotalFees,
		NetPayment:        calc.NetPayment,
		CalculationStatus: string(calc.Status),
		CalculatedAt:      calc.CalculatedAt,
		DueDate:           calc.DueDate,
	}, nil
}

func optionalStructure(structures []models.FeeStructure, feeType models.FeeType, franchiseID, date string) *models.FeeStructure {
	fs, err := billing.ActiveFeeStructure(structures, feeType, franchiseID, date)
	if err != nil {
		return nil
	}
	return fs
}

// releaseIdempotencyKey frees the reservation after a failed attempt so
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
	} else {
		h.logger.Info("job completed successfully", map[string]interface{}{
			"jobKey": job.Key,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
