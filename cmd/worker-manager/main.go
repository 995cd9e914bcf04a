// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"prmcms-workers/internal/common/aws"
	"prmcms-workers/internal/common/camunda"
	"prmcms-workers/internal/common/config"
	"prmcms-workers/internal/common/database"
	"prmcms-workers/internal/common/logger"
	"prmcms-workers/internal/common/observability"
	"prmcms-workers/internal/common/validation"
	"prmcms-workers/pkg/registry"

	// Royalty Workers (2)
	cr "prmcms-workers/internal/workers/royalty/calculate-royalty"
	ucs "prmcms-workers/internal/workers/royalty/update-calculation-status"

	// Payment Workers (2)
	rp "prmcms-workers/internal/workers/payment/record-payment"
	ups "prmcms-workers/internal/workers/payment/update-payment-status"

	// Dispute Workers (3)
	cd "prmcms-workers/internal/workers/dispute/create-dispute"
	rd "prmcms-workers/internal/workers/dispute/resolve-dispute"
	ud "prmcms-workers/internal/workers/dispute/update-dispute"

	// Reporting Worker (1)
	grr "prmcms-workers/internal/workers/reporting/generate-revenue-report"

	// Notification Worker (1)
	srn "prmcms-workers/internal/workers/notification/send-royalty-notice"

	// Data Access Worker (1)
	qrd "prmcms-workers/internal/workers/data-access/query-royalty-data"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Load Activity Registry ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	validator := validation.NewSchemaValidator(reg)
	for taskType := range cfg.Workers {
		if err := validator.CheckRegistered(taskType); err != nil {
			zapLog.Fatal("configured worker missing from activity registry",
				zap.String("taskType", taskType), zap.Error(err))
		}
	}
	zapLog.Info("Activity registry loaded", zap.Int("activities", len(reg.Activities)))

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS Clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- START: Register ALL 10 Workers ---
	var workers []*camunda.Worker

	// --- 1. Royalty Workers (2) ---
	if cfg.Workers[cr.TaskType].Enabled {
		handler := cr.NewHandler(
			&cr.Config{
				Timeout:              time.Duration(cfg.Workers[cr.TaskType].Timeout) * time.Millisecond,
				DefaultMarketingRate: cfg.Billing.DefaultMarketingRate,
				DefaultTechnologyFee: cfg.Billing.DefaultTechnologyFee,
				PaymentDueDays:       cfg.Billing.PaymentDueDays,
				IdempotencyTTL:       time.Duration(cfg.Billing.IdempotencyTTL) * time.Second,
			},
			pg.DB, redis, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, cr.TaskType, cfg.Workers[cr.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[ucs.TaskType].Enabled {
		handler := ucs.NewHandler(
			&ucs.Config{
				Timeout: time.Duration(cfg.Workers[ucs.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, ucs.TaskType, cfg.Workers[ucs.TaskType], handler.Handle, zapLog))
	}

	// --- 2. Payment Workers (2) ---
	if cfg.Workers[rp.TaskType].Enabled {
		handler := rp.NewHandler(
			&rp.Config{
				Timeout:        time.Duration(cfg.Workers[rp.TaskType].Timeout) * time.Millisecond,
				IdempotencyTTL: time.Duration(cfg.Billing.IdempotencyTTL) * time.Second,
			},
			pg.DB, redis, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, rp.TaskType, cfg.Workers[rp.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[ups.TaskType].Enabled {
		handler := ups.NewHandler(
			&ups.Config{
				Timeout: time.Duration(cfg.Workers[ups.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, ups.TaskType, cfg.Workers[ups.TaskType], handler.Handle, zapLog))
	}

	// --- 3. Dispute Workers (3) ---
	if cfg.Workers[cd.TaskType].Enabled {
		handler := cd.NewHandler(
			&cd.Config{
				Timeout: time.Duration(cfg.Workers[cd.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, cd.TaskType, cfg.Workers[cd.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[ud.TaskType].Enabled {
		handler := ud.NewHandler(
			&ud.Config{
				Timeout: time.Duration(cfg.Workers[ud.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, ud.TaskType, cfg.Workers[ud.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[rd.TaskType].Enabled {
		handler := rd.NewHandler(
			&rd.Config{
				Timeout: time.Duration(cfg.Workers[rd.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, rd.TaskType, cfg.Workers[rd.TaskType], handler.Handle, zapLog))
	}

	// --- 4. Reporting Worker (1) ---
	if cfg.Workers[grr.TaskType].Enabled {
		handler := grr.NewHandler(
			&grr.Config{
				Timeout:     time.Duration(cfg.Workers[grr.TaskType].Timeout) * time.Millisecond,
				ReportIndex: cfg.Database.Elasticsearch.ReportIndex,
			},
			pg.DB, esClient, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, grr.TaskType, cfg.Workers[grr.TaskType], handler.Handle, zapLog))
	}

	// --- 5. Notification Worker (1) ---
	if cfg.Workers[srn.TaskType].Enabled {
		handler := srn.NewHandler(
			&srn.Config{
				Timeout:      time.Duration(cfg.Workers[srn.TaskType].Timeout) * time.Millisecond,
				EmailEnabled: cfg.Notifications.Email.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
			},
			pg.DB, sesClient, snsClient, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, srn.TaskType, cfg.Workers[srn.TaskType], handler.Handle, zapLog))
	}

	// --- 6. Data Access Worker (1) ---
	if cfg.Workers[qrd.TaskType].Enabled {
		handler := qrd.NewHandler(
			&qrd.Config{
				Timeout:      time.Duration(cfg.Workers[qrd.TaskType].Timeout) * time.Millisecond,
				DefaultLimit: 50,
				MaxLimit:     500,
			},
			pg.DB, log,
		).WithValidator(validator)
		workers = append(workers, startWorker(zeebeClient, qrd.TaskType, cfg.Workers[qrd.TaskType], handler.Handle, zapLog))
	}

	zapLog.Info("All 10 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		if w != nil {
			w.Close()
		}
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) *camunda.Worker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	return camunda.NewWorker(client, taskType, camunda.WorkerOptions{
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       time.Duration(wcfg.Timeout) * time.Millisecond,
	}, handlerFunc, log)
}
