// internal/workers/notification/send-royalty-notice/handler.go
package sendroyaltynotice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "prmcms-workers/internal/common/errors"
	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/common/metrics"
	"prmcms-workers/internal/common/validation"
	"prmcms-workers/internal/store"
)

const (
	TaskType = "send-royalty-notice"
)

var (
	ErrValidationFailed       = errors.New("VALIDATION_FAILED")
	ErrFranchiseNotFound      = errors.New("DANGLING_REFERENCE")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// SESService and SNSService exist so tests can swap in fakes.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	franchises   *store.FranchiseStore
	sesClient    SESService
	snsClient    SNSService
	logger       logger.Logger
	validator    *validation.SchemaValidator
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		franchises:   store.NewFranchiseStore(db),
		sesClient:    sesClient,
		snsClient:    snsClient,
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
		case errors.Is(err, ErrFranchiseNotFound):
			errorCode = apperrors.ErrCodeDanglingReference
		case errors.Is(err, ErrNotificationSendFailed):
			errorCode = apperrors.ErrCodeNotificationSendFailed
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
	tmpl, ok := noticeTemplates[input.NoticeType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown notice type %q", ErrValidationFailed, input.NoticeType)
	}

	franchise, err := h.franchises.GetByID(ctx, input.FranchiseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: franchise %s", ErrFranchiseNotFound, input.FranchiseID)
		}
		return nil, fmt.Errorf("%w: franchise lookup: %v", ErrNotificationSendFailed, err)
	}

	data := make(map[string]string, len(input.Data)+1)
	for k, v := range input.Data {
		data[k] = v
	}
	data["franchiseName"] = franchise.Name

	output := &Output{
		FranchiseID: franchise.ID,
		NoticeType:  input.NoticeType,
		EmailStatus: "disabled",
		SMSStatus:   "disabled",
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}

	if h.config.EmailEnabled {
		output.EmailStatus = h.sendEmail(ctx, franchise.Email, tmpl, data)
	}

	// SMS is reserved for notices that should interrupt someone.
	if h.config.SMSEnabled {
		if input.Priority == "high" || input.Priority == "urgent" {
			output.SMSStatus = h.sendSMS(ctx, franchise.Phone, tmpl, data)
		} else {
			output.SMSStatus = "skipped"
		}
	}

	h.logger.Info("royalty notice processed", map[string]interface{}{
		"franchiseId": franchise.ID,
		"noticeType":  input.NoticeType,
		"emailStatus": output.EmailStatus,
		"smsStatus":   output.SMSStatus,
	})

	return output, nil
}

// sendEmail delivers the notice over SES. Delivery problems are reported
// in the status rather than failing the job; the notice is advisory and
// the workflow should not stall on a mail outage.
func (h *Handler) sendEmail(ctx context.Context, to string, tmpl noticeTemplate, data map[string]string) string {
	// No address means the channel is unavailable for this franchise,
	// not that a delivery attempt failed.
	if to == "" {
		h.logger.Warn("franchise has no email on file", map[string]interface{}{
			"franchiseName": data["franchiseName"],
		})
		return "disabled"
	}

	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	if err != nil {
		h.logger.Error("email send failed", map[string]interface{}{
			"to":    to,
			"error": err,
		})
		metrics.RoyaltyNoticesSent.WithLabelValues("email", "failed").Inc()
		return "failed"
	}

	metrics.RoyaltyNoticesSent.WithLabelValues("email", "sent").Inc()
	return "sent"
}

func (h *Handler) sendSMS(ctx context.Context, phone string, tmpl noticeTemplate, data map[string]string) string {
	if phone == "" {
		h.logger.Warn("franchise has no phone on file", map[string]interface{}{
			"franchiseName": data["franchiseName"],
		})
		return "disabled"
	}

	message := renderTemplate(tmpl.SMS, data)

	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	})
	if err != nil {
		h.logger.Error("sms send failed", map[string]interface{}{
			"phone": phone,
			"error": err,
		})
		metrics.RoyaltyNoticesSent.WithLabelValues("sms", "failed").Inc()
		return "failed"
	}

	metrics.RoyaltyNoticesSent.WithLabelValues("sms", "sent").Inc()
	return "sent"
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
