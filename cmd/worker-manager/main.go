// cmd/worker-manager/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onboarding-workers/internal/api"
	"onboarding-workers/internal/audit"
	"onboarding-workers/internal/common/auth"
	awsclients "onboarding-workers/internal/common/aws"
	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/config"
	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/common/database"
	"onboarding-workers/internal/common/docverify"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/common/observability"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/identitysync"
	"onboarding-workers/internal/notify"
	"onboarding-workers/internal/onboarding"
	"onboarding-workers/internal/repository"
	"onboarding-workers/internal/workers"
	"onboarding-workers/pkg/registry"

	// Billing Workers (1)
	epu "onboarding-workers/internal/workers/billing/extend-paid-upto"

	// Communication Workers (1)
	ssn "onboarding-workers/internal/workers/communication/send-status-notification"

	// Identity Workers (7)
	ack "onboarding-workers/internal/workers/identity/acknowledge-disclosures"
	cri "onboarding-workers/internal/workers/identity/create-remote-identity"
	rdi "onboarding-workers/internal/workers/identity/run-document-inquiry"
	sk "onboarding-workers/internal/workers/identity/submit-kyc"
	skr "onboarding-workers/internal/workers/identity/submit-kyc-remote"
	sks "onboarding-workers/internal/workers/identity/sync-kyc-status"
	ukd "onboarding-workers/internal/workers/identity/upload-kyc-documents"

	// Onboarding Workers (2)
	cos "onboarding-workers/internal/workers/onboarding/change-onboarding-state"
	ros "onboarding-workers/internal/workers/onboarding/record-onboarding-steps"
)

const serviceName = "onboarding-workers"

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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("worker manager stopped", zap.Error(err))
	}
	zapLog.Info("worker manager stopped")
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("dispatchBackend", cfg.Dispatch.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(serviceName, log)
	defer obs.Shutdown()
	if err := obs.EnableTracing(serviceName, cfg.Tracing); err != nil {
		return err
	}
	workers.SetTaskRecorder(obs)

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pg.GetDB()); err != nil {
			return err
		}
		zapLog.Info("Database migrations applied")
	}

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		return err
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch audit index (optional) ---
	var (
		recorder audit.Recorder = audit.Nop{}
		history  api.HistoryReader
	)
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return err
	}
	if esClient != nil {
		err = retryWithBackoff(func() error {
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return err
		}
		indexer := audit.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
		recorder = audit.Logged{Recorder: indexer, Logger: log}
		history = indexer
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init External Service Clients ---
	bank := corebank.NewClient(
		cfg.Integrations.CoreBank.BaseURL,
		cfg.Integrations.CoreBank.APIKey,
		config.GetDuration(cfg.Integrations.CoreBank.Timeout),
	)

	var verifier docverify.API
	if cfg.Integrations.DocVerify.BaseURL != "" {
		verifier = docverify.NewClient(
			cfg.Integrations.DocVerify.BaseURL,
			cfg.Integrations.DocVerify.APIKey,
			cfg.Integrations.DocVerify.TemplateID,
			config.GetDuration(cfg.Integrations.DocVerify.Timeout),
		)
	}

	var directory auth.AdminDirectory
	if cfg.Integrations.Keycloak.URL != "" {
		directory = auth.NewKeycloakDirectory(
			cfg.Integrations.Keycloak.URL,
			cfg.Integrations.Keycloak.Realm,
			cfg.Integrations.Keycloak.ClientID,
			cfg.Integrations.Keycloak.ClientSecret,
			cfg.Integrations.Keycloak.AdminRole,
		)
	}

	notificationDeps, err := notificationSenders(ctx, cfg)
	if err != nil {
		return err
	}

	zapLog.Info("All external service clients initialized")

	// --- Dispatch ---
	catalog, err := registry.Load(cfg.Dispatch.CatalogPath)
	if err != nil {
		return err
	}
	if problems := catalog.Check(); len(problems) > 0 {
		return fmt.Errorf("task catalog is invalid: %v", problems)
	}

	handlers := dispatch.NewRegistry()
	var (
		dispatcher   dispatch.Dispatcher
		zeebeClient  *camunda.Client
		asynqClient  *asynq.Client
		useZeebe     = cfg.Dispatch.Backend != "asynq"
		camundaLimit = config.GetDuration(cfg.Camunda.RequestTimeout)
	)
	if useZeebe {
		err = retryWithBackoff(func() error {
			var err error
			zeebeClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress, camundaLimit)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebeClient.Close()
		dispatcher = dispatch.NewZeebeDispatcher(zeebeClient, catalog, dispatch.ZeebeOptions{
			MessageTTL:  config.GetDuration(cfg.Dispatch.MessageTTL),
			ProcessIDs:  cfg.Dispatch.ProcessIDs,
			WaitTimeout: config.GetDuration(cfg.Dispatch.WaitTimeout),
		}, log)
		zapLog.Info("Zeebe client connected successfully")
	} else {
		asynqClient = asynq.NewClient(dispatch.RedisOpt(cfg.Database.Redis))
		defer asynqClient.Close()
		dispatcher = dispatch.NewAsynqDispatcher(asynqClient, handlers, catalog, cfg.Dispatch.Queue, log)
	}

	// --- Domain services ---
	applicants := repository.NewApplicantRepository(pg.GetDB(), config.GetDuration(cfg.Onboarding.LockTimeout), log)
	profiles := repository.NewProfileStore(pg.GetDB())
	subscriptions := repository.NewSubscriptionStore(pg.GetDB(), redis.GetClient(),
		time.Duration(cfg.Onboarding.SubscriptionCacheTTL)*time.Second, log)
	notifier := notify.NewDispatching(dispatcher, log)

	stepRecorder := onboarding.NewStepRecorder(applicants, repository.NewStepStore(pg.GetDB()), log)
	machine := onboarding.NewMachine(onboarding.MachineDeps{
		Locker:     applicants,
		Settings:   onboarding.NewSettingsProvider(cfg.Onboarding, redis.GetClient(), log),
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Steps:      stepRecorder,
		Directory:  directory,
		Audit:      recorder,
	}, log)

	identity := identitysync.NewService(identitysync.Deps{
		Applicants:   applicants,
		Profiles:     profiles,
		Attempts:     repository.NewSyncAttemptStore(pg.GetDB()),
		Bank:         bank,
		Verifier:     verifier,
		Dispatcher:   dispatcher,
		Notifier:     notifier,
		Cache:        redis.GetClient(),
		Audit:        recorder,
		KeyNamespace: cfg.Integrations.CoreBank.KeyNamespace,
	}, log)

	notificationDeps.Contacts = profiles
	notificationDeps.Logger = log

	// --- Register all 11 workers ---
	taskHandlers := []workers.TaskHandler{
		cos.NewHandler(workerConfig(cfg, cos.TaskType, cos.LoadConfig().Timeout, func(d time.Duration) *cos.Config { return &cos.Config{Timeout: d} }), machine, log),
		ros.NewHandler(workerConfig(cfg, ros.TaskType, ros.LoadConfig().Timeout, func(d time.Duration) *ros.Config { return &ros.Config{Timeout: d} }), stepRecorder, log),
		cri.NewHandler(workerConfig(cfg, cri.TaskType, cri.LoadConfig().Timeout, func(d time.Duration) *cri.Config { return &cri.Config{Timeout: d} }), identity, log),
		sk.NewHandler(workerConfig(cfg, sk.TaskType, sk.LoadConfig().Timeout, func(d time.Duration) *sk.Config { return &sk.Config{Timeout: d} }), identity, log),
		skr.NewHandler(workerConfig(cfg, skr.TaskType, skr.LoadConfig().Timeout, func(d time.Duration) *skr.Config { return &skr.Config{Timeout: d} }), identity, log),
		rdi.NewHandler(workerConfig(cfg, rdi.TaskType, rdi.LoadConfig().Timeout, func(d time.Duration) *rdi.Config { return &rdi.Config{Timeout: d} }), identity, log),
		ukd.NewHandler(workerConfig(cfg, ukd.TaskType, ukd.LoadConfig().Timeout, func(d time.Duration) *ukd.Config { return &ukd.Config{Timeout: d} }), identity, log),
		ack.NewHandler(workerConfig(cfg, ack.TaskType, ack.LoadConfig().Timeout, func(d time.Duration) *ack.Config { return &ack.Config{Timeout: d} }), identity, log),
		sks.NewHandler(workerConfig(cfg, sks.TaskType, sks.LoadConfig().Timeout, func(d time.Duration) *sks.Config { return &sks.Config{Timeout: d} }), identity, log),
		ssn.NewHandler(workerConfig(cfg, ssn.TaskType, ssn.LoadConfig().Timeout, func(d time.Duration) *ssn.Config { return &ssn.Config{Timeout: d} }), ssn.NewService(notificationDeps), log),
		epu.NewHandler(workerConfig(cfg, epu.TaskType, epu.LoadConfig().Timeout, func(d time.Duration) *epu.Config {
			c := epu.LoadConfig()
			c.Timeout = d
			return c
		}), subscriptions, log),
	}

	enabled := make([]workers.TaskHandler, 0, len(taskHandlers))
	for _, h := range taskHandlers {
		if !config.IsWorkerEnabled(cfg, h.TaskType()) {
			zapLog.Info("worker disabled", zap.String("taskType", h.TaskType()))
			continue
		}
		enabled = append(enabled, h)
	}
	workers.Register(handlers, enabled...)

	// --- HTTP surface ---
	checks := map[string]api.Check{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}
	if esClient != nil {
		checks["elasticsearch"] = esClient.Ping
	}
	server := api.NewServer(api.Deps{
		Verifier:      identity,
		Flow:          stepRecorder,
		Applicants:    applicants,
		History:       history,
		TaxIDs:        identity,
		WebhookSecret: cfg.Integrations.DocVerify.WebhookSecret,
		Checks:        checks,
	}, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if useZeebe {
		started := startZeebeWorkers(zeebeClient, cfg, enabled, log)
		g.Go(func() error {
			<-gctx.Done()
			for _, w := range started {
				w.Stop()
			}
			return nil
		})
	} else {
		asynqServer := dispatch.NewAsynqServer(dispatch.RedisOpt(cfg.Database.Redis), cfg.Dispatch, handlers, log)
		g.Go(func() error {
			return asynqServer.Run(gctx)
		})
	}

	zapLog.Info("Worker manager started", zap.Int("workers", len(enabled)))
	return g.Wait()
}

// workerConfig applies the configured timeout for taskType, falling back to
// the worker package default.
func workerConfig[T any](cfg *config.Config, taskType string, def time.Duration, build func(time.Duration) *T) *T {
	timeout := def
	if wc, ok := cfg.Workers[taskType]; ok && wc.Timeout > 0 {
		timeout = config.GetDuration(wc.Timeout)
	}
	return build(timeout)
}

func startZeebeWorkers(client *camunda.Client, cfg *config.Config, handlers []workers.TaskHandler, log logger.Logger) []*camunda.Worker {
	started := make([]*camunda.Worker, 0, len(handlers))
	for _, h := range handlers {
		wcfg := config.GetWorkerConfig(cfg, h.TaskType())
		started = append(started, camunda.NewWorker(client.GetClient(), h.TaskType(), h, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, log))
	}
	return started
}

// notificationSenders builds the SES and SNS senders that are enabled.
func notificationSenders(ctx context.Context, cfg *config.Config) (ssn.ServiceDependencies, error) {
	var deps ssn.ServiceDependencies
	aws := cfg.Integrations.AWS
	if aws.SES.Enabled {
		ses, err := awsclients.NewSESClient(ctx, aws.Region, aws.SES.FromEmail)
		if err != nil {
			return deps, fmt.Errorf("create SES client: %w", err)
		}
		deps.Email = ses
	}
	if aws.SNS.Enabled {
		sns, err := awsclients.NewSNSClient(ctx, aws.Region, aws.SNS.DefaultSMSSenderID)
		if err != nil {
			return deps, fmt.Errorf("create SNS client: %w", err)
		}
		deps.SMS = sns
	}
	return deps, nil
}
