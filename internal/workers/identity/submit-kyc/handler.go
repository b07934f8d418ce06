// internal/workers/identity/submit-kyc/handler.go
package submitkyc

import (
	"context"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/identitysync"
	"onboarding-workers/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = dispatch.HandlerSubmitKyc
)

type Submitter interface {
	SubmitKyc(ctx context.Context, req identitysync.SubmitRequest) (*identitysync.SubmitResult, error)
}

type Handler struct {
	config  *Config
	service Submitter
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service Submitter, log logger.Logger) *Handler {
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
	if input.RequestID == "" {
		input.RequestID = task.IdempotencyKey
	}
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicantID == "" {
		return nil, errors.NewPayloadInvalidError(TaskType, []string{"applicantId is required"})
	}

	res, err := h.service.SubmitKyc(ctx, identitysync.SubmitRequest{
		ApplicantID:             input.ApplicantID,
		RunDocumentVerification: input.RunDocumentVerification,
		Rerun:                   input.Rerun,
		RequestID:               input.RequestID,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicantID:    input.ApplicantID,
		Outcome:        string(res.Outcome),
		SubmissionID:   res.SubmissionID,
		ApprovalStatus: string(res.Status),
	}, nil
}
