// internal/workers/identity/create-remote-identity/handler.go
package createremoteidentity

import (
	"context"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = dispatch.HandlerCreateRemoteIdentity
)

type IdentityCreator interface {
	CreateRemoteIdentity(ctx context.Context, applicantID string) (*models.Applicant, error)
}

type Handler struct {
	config  *Config
	service IdentityCreator
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service IdentityCreator, log logger.Logger) *Handler {
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
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicantID == "" {
		return nil, errors.NewPayloadInvalidError(TaskType, []string{"applicantId is required"})
	}

	applicant, err := h.service.CreateRemoteIdentity(ctx, input.ApplicantID)
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicantID:        applicant.ID,
		ExternalIdentityID: applicant.ExternalIdentityID,
		ApprovalStatus:     string(applicant.ApprovalStatus),
	}, nil
}
