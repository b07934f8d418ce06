package camunda

import (
	"context"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ExecuteFunc does the work of one job given its raw variables.
type ExecuteFunc func(ctx context.Context, variables []byte) (interface{}, error)

type jobRetriesKey struct{}

// WithJobRetries stores the retries Zeebe has left for the job being run.
func WithJobRetries(ctx context.Context, retries int32) context.Context {
	return context.WithValue(ctx, jobRetriesKey{}, retries)
}

// JobRetries returns the value stored by WithJobRetries. ok is false outside
// a Zeebe job.
func JobRetries(ctx context.Context) (retries int32, ok bool) {
	retries, ok = ctx.Value(jobRetriesKey{}).(int32)
	return retries, ok
}

// JobRunner completes a job with the output of an ExecuteFunc, or hands the
// error to the ErrorHandler.
type JobRunner struct {
	timeout    time.Duration
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewJobRunner(timeout time.Duration, log logger.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JobRunner{
		timeout:    timeout,
		logger:     log,
		errHandler: errors.NewErrorHandler(log),
	}
}

func (r *JobRunner) Run(client worker.JobClient, job entities.Job, exec ExecuteFunc) {
	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
		"retries":     job.Retries,
	})

	ctx, cancel := context.WithTimeout(WithJobRetries(context.Background(), job.Retries), r.timeout)
	defer cancel()

	output, err := exec(ctx, []byte(job.Variables))

	// The job context may be spent by now.
	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sendCancel()

	if err != nil {
		r.errHandler.HandleJobError(sendCtx, client, job, err)
		return
	}
	r.complete(sendCtx, client, job, output)
}

func (r *JobRunner) complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	r.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}
