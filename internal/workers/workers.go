// internal/workers/workers.go
package workers

import (
	"context"
	"time"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/metrics"
	"onboarding-workers/internal/dispatch"

	"github.com/hibiken/asynq"
)

// TaskHandler is implemented by every worker package. Handle serves Zeebe
// jobs; HandleTask serves asynq deliveries and inline wait-mode runs.
type TaskHandler interface {
	camunda.JobHandler
	TaskType() string
	HandleTask(ctx context.Context, task dispatch.Task) (interface{}, error)
}

// TaskRecorder receives one observation per finished task.
type TaskRecorder interface {
	RecordTask(ctx context.Context, taskType, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordTask(context.Context, string, string, time.Duration) {}

var recorder TaskRecorder = nopRecorder{}

// SetTaskRecorder installs r for every handler instrumented afterwards.
func SetTaskRecorder(r TaskRecorder) {
	if r == nil {
		r = nopRecorder{}
	}
	recorder = r
}

// Instrument records the worker metrics around fn.
func Instrument(taskType string, fn dispatch.HandlerFunc) dispatch.HandlerFunc {
	rec := recorder
	return func(ctx context.Context, task dispatch.Task) (interface{}, error) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		start := time.Now()
		out, err := fn(ctx, task)
		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())

		if err != nil {
			metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.Normalize(err).Code)).Inc()
			rec.RecordTask(ctx, taskType, "failed", elapsed)
			return nil, err
		}
		metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		rec.RecordTask(ctx, taskType, "completed", elapsed)
		return out, nil
	}
}

// JobFunc adapts a task handler to the Zeebe job runner.
func JobFunc(taskType string, fn dispatch.HandlerFunc) camunda.ExecuteFunc {
	instrumented := Instrument(taskType, fn)
	return func(ctx context.Context, variables []byte) (interface{}, error) {
		task, err := dispatch.TaskFromJob(taskType, variables)
		if err != nil {
			return nil, err
		}
		return instrumented(ctx, task)
	}
}

// Register adds every handler to the dispatch registry.
func Register(reg *dispatch.Registry, handlers ...TaskHandler) {
	for _, h := range handlers {
		reg.Register(h.TaskType(), Instrument(h.TaskType(), h.HandleTask))
	}
}

// FinalAttempt reports whether the current delivery has no retries left.
// A Zeebe job with one retry remaining is failed for good by the error
// handler, so it counts as final.
func FinalAttempt(ctx context.Context) bool {
	if remaining, ok := camunda.JobRetries(ctx); ok {
		return remaining <= 1
	}
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	max, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= max
}
