package dispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"onboarding-workers/internal/common/config"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/pkg/registry"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher enqueues tasks with the idempotency key as the asynq task
// id. Wait mode runs the registered handler inline.
type AsynqDispatcher struct {
	client   Enqueuer
	handlers *Registry
	catalog  *registry.TaskCatalog
	queue    string
	logger   logger.Logger
}

func NewAsynqDispatcher(client Enqueuer, handlers *Registry, catalog *registry.TaskCatalog, queue string, log logger.Logger) *AsynqDispatcher {
	if queue == "" {
		queue = "default"
	}
	return &AsynqDispatcher{
		client:   client,
		handlers: handlers,
		catalog:  catalog,
		queue:    queue,
		logger:   log.WithFields(map[string]interface{}{"component": "asynq-dispatcher"}),
	}
}

// RedisOpt builds the asynq connection options from the shared Redis config.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, task Task, wait bool) (*Result, error) {
	entry, err := validate(d.catalog, task)
	if err != nil {
		return nil, err
	}
	if wait {
		return runInline(ctx, d.handlers, task)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return nil, errors.NewDispatchFailedError(task.HandlerName, err)
	}

	opts := []asynq.Option{
		asynq.TaskID(task.IdempotencyKey),
		asynq.Queue(d.queue),
	}
	if entry != nil {
		opts = append(opts,
			asynq.MaxRetry(entry.Retries),
			asynq.Timeout(entry.TimeoutOf(30*time.Second)),
		)
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(task.HandlerName, body), opts...)
	if stderrors.Is(err, asynq.ErrTaskIDConflict) {
		d.logger.Debug("duplicate task ignored", map[string]interface{}{
			"handler":        task.HandlerName,
			"idempotencyKey": task.IdempotencyKey,
		})
		return &Result{Duplicate: true}, nil
	}
	if err != nil {
		return nil, errors.NewDispatchFailedError(task.HandlerName, err)
	}

	d.logger.Info("task enqueued", map[string]interface{}{
		"handler":        task.HandlerName,
		"idempotencyKey": task.IdempotencyKey,
		"asynqId":        info.ID,
		"queue":          info.Queue,
	})
	return &Result{}, nil
}

// AsynqServer consumes the dispatch queue and runs registered handlers.
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger logger.Logger
}

func NewAsynqServer(opt asynq.RedisConnOpt, cfg config.DispatchConfig, handlers *Registry, log logger.Logger) *AsynqServer {
	queue := cfg.Queue
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 10
	}

	log = log.WithFields(map[string]interface{}{"component": "asynq-server"})
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      asynqLogger{log: log},
	})

	mux := asynq.NewServeMux()
	for _, name := range handlers.Names() {
		h, _ := handlers.Lookup(name)
		mux.HandleFunc(name, serveTask(h, log))
	}

	return &AsynqServer{server: server, mux: mux, logger: log}
}

// Run blocks until ctx is cancelled.
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}

// serveTask adapts a HandlerFunc to asynq. Non-retryable errors skip the
// remaining retries.
func serveTask(h HandlerFunc, log logger.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var task Task
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("decode task %s: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		if _, err := h(ctx, task); err != nil {
			stdErr := errors.Normalize(err)
			log.Error("task failed", map[string]interface{}{
				"handler":        task.HandlerName,
				"idempotencyKey": task.IdempotencyKey,
				"errorCode":      string(stdErr.Code),
				"retryable":      stdErr.Retryable,
				"details":        stdErr.Details,
			})
			if !stdErr.Retryable {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// asynqLogger routes asynq's internal logging through the module logger.
type asynqLogger struct {
	log logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...), nil) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...), nil) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...), nil) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...), nil) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...), nil) }
