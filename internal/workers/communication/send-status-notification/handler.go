// internal/workers/communication/send-status-notification/handler.go
package sendstatusnotification

import (
	"context"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = dispatch.HandlerSendStatusNotification
)

type ServiceInterface interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config  *Config
	service ServiceInterface
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service ServiceInterface, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: service,
		runner:  camunda.NewJobRunner(config.Timeout, log),
		logger:  log,
	}
}

func (h *Handler) TaskType() string { return TaskType }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, workers.JobFunc(TaskType, h.HandleTask))
}

func (h *Handler) HandleTask(ctx context.Context, task dispatch.Task) (interface{}, error) {
	var input Input
	if err := task.Decode(&input); err != nil {
		return nil, err
	}
	return h.service.Execute(ctx, &input)
}
