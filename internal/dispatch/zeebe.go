package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/pkg/registry"
)

// ZeebeDispatcher publishes a message per task, with the idempotency key as
// the message id. Wait mode starts the task's process and blocks for its
// result.
type ZeebeDispatcher struct {
	client      *camunda.Client
	catalog     *registry.TaskCatalog
	messageTTL  time.Duration
	processIDs  map[string]string
	waitTimeout time.Duration
	logger      logger.Logger
}

type ZeebeOptions struct {
	MessageTTL  time.Duration
	ProcessIDs  map[string]string
	WaitTimeout time.Duration
}

func NewZeebeDispatcher(client *camunda.Client, catalog *registry.TaskCatalog, opts ZeebeOptions, log logger.Logger) *ZeebeDispatcher {
	if opts.MessageTTL <= 0 {
		opts.MessageTTL = time.Hour
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = time.Minute
	}
	return &ZeebeDispatcher{
		client:      client,
		catalog:     catalog,
		messageTTL:  opts.MessageTTL,
		processIDs:  opts.ProcessIDs,
		waitTimeout: opts.WaitTimeout,
		logger:      log.WithFields(map[string]interface{}{"component": "zeebe-dispatcher"}),
	}
}

func (d *ZeebeDispatcher) Dispatch(ctx context.Context, task Task, wait bool) (*Result, error) {
	if _, err := validate(d.catalog, task); err != nil {
		return nil, err
	}
	vars, err := taskVariables(task)
	if err != nil {
		return nil, err
	}

	if wait {
		return d.runProcess(ctx, task, vars)
	}
	return d.publish(ctx, task, vars)
}

func (d *ZeebeDispatcher) publish(ctx context.Context, task Task, vars map[string]interface{}) (*Result, error) {
	zb := d.client.GetClient()
	err := d.client.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		cmd, err := zb.NewPublishMessageCommand().
			MessageName(task.HandlerName).
			CorrelationKey(task.CorrelationKey).
			MessageId(task.IdempotencyKey).
			TimeToLive(d.messageTTL).
			VariablesFromMap(vars)
		if err != nil {
			return err
		}
		_, err = cmd.Send(ctx)
		return err
	}, "publish "+task.HandlerName)

	if camunda.IsAlreadyExists(err) {
		d.logger.Debug("duplicate task ignored", map[string]interface{}{
			"handler":        task.HandlerName,
			"idempotencyKey": task.IdempotencyKey,
		})
		return &Result{Duplicate: true}, nil
	}
	if err != nil {
		return nil, errors.NewDispatchFailedError(task.HandlerName, err)
	}

	d.logger.Info("task published", map[string]interface{}{
		"handler":        task.HandlerName,
		"idempotencyKey": task.IdempotencyKey,
	})
	return &Result{}, nil
}

// runProcess is not retried: a second instance would repeat the work.
func (d *ZeebeDispatcher) runProcess(ctx context.Context, task Task, vars map[string]interface{}) (*Result, error) {
	processID, ok := d.processIDs[task.HandlerName]
	if !ok || processID == "" {
		return nil, errors.NewDispatchFailedError(task.HandlerName, fmt.Errorf("no process configured for wait mode"))
	}

	ctx, cancel := context.WithTimeout(ctx, d.waitTimeout)
	defer cancel()

	cmd, err := d.client.GetClient().NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(vars)
	if err != nil {
		return nil, errors.NewPayloadInvalidError(task.HandlerName, []string{err.Error()})
	}

	resp, err := cmd.WithResult().Send(ctx)
	if err != nil {
		return nil, errors.NewDispatchFailedError(task.HandlerName, err)
	}
	return processResult(task.HandlerName, resp.GetVariables())
}

// processResult unpacks the output a worker left in the process variables.
// A process that ended in a BPMN error carries errorCode instead.
func processResult(handler, variables string) (*Result, error) {
	var out struct {
		ErrorCode    string          `json:"errorCode"`
		ErrorMessage string          `json:"errorMessage"`
		Retryable    bool            `json:"retryable"`
		Output       json.RawMessage `json:"output"`
	}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &out); err != nil {
			return nil, errors.NewDispatchFailedError(handler, err)
		}
	}
	if out.ErrorCode != "" {
		return nil, &errors.StandardError{
			Code:      errors.ErrorCode(out.ErrorCode),
			Message:   out.ErrorMessage,
			Retryable: out.Retryable,
			Timestamp: time.Now().UTC(),
		}
	}
	if len(out.Output) == 0 {
		return &Result{Output: json.RawMessage(variables)}, nil
	}
	return &Result{Output: out.Output}, nil
}

// taskVariables flattens the payload into process variables and adds the
// dispatch envelope.
func taskVariables(task Task) (map[string]interface{}, error) {
	vars := map[string]interface{}{}
	if len(task.Payload) > 0 {
		if err := json.Unmarshal(task.Payload, &vars); err != nil {
			return nil, errors.NewPayloadInvalidError(task.HandlerName, []string{err.Error()})
		}
	}
	vars["idempotencyKey"] = task.IdempotencyKey
	vars["entityType"] = task.EntityType
	vars["handlerName"] = task.HandlerName
	return vars, nil
}

// TaskFromJob rebuilds the dispatched task from job variables.
func TaskFromJob(jobType string, variables []byte) (Task, error) {
	var envelope struct {
		IdempotencyKey string `json:"idempotencyKey"`
		EntityType     string `json:"entityType"`
		ApplicantID    string `json:"applicantId"`
	}
	if err := json.Unmarshal(variables, &envelope); err != nil {
		return Task{}, errors.NewPayloadInvalidError(jobType, []string{err.Error()})
	}
	return Task{
		EntityType:     envelope.EntityType,
		HandlerName:    jobType,
		Payload:        json.RawMessage(variables),
		IdempotencyKey: envelope.IdempotencyKey,
		CorrelationKey: envelope.ApplicantID,
	}, nil
}
