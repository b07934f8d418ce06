// internal/workers/identity/submit-kyc-remote/handler.go
package submitkycremote

import (
	"context"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/identitysync"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = dispatch.HandlerSubmitKycRemote
)

type RemoteSubmitter interface {
	SubmitKycRemote(ctx context.Context, applicantID, submissionID string) (*identitysync.StatusResult, error)
	Restore(ctx context.Context, applicantID string, previous models.ApprovalStatus)
}

type Handler struct {
	config  *Config
	service RemoteSubmitter
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service RemoteSubmitter, log logger.Logger) *Handler {
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
	if input.ApplicantID == "" || input.SubmissionID == "" {
		return nil, errors.NewPayloadInvalidError(TaskType, []string{"applicantId and submissionId are required"})
	}

	res, err := h.service.SubmitKycRemote(ctx, input.ApplicantID, input.SubmissionID)
	if err != nil {
		// A submission that can no longer succeed gives the applicant their
		// previous status back.
		if !errors.IsRetryable(err) || workers.FinalAttempt(ctx) {
			h.service.Restore(ctx, input.ApplicantID, models.ApprovalStatus(input.PreviousStatus))
		}
		return nil, err
	}

	return &Output{
		ApplicantID:    input.ApplicantID,
		PreviousStatus: string(res.Previous),
		ApprovalStatus: string(res.Current),
		Changed:        res.Changed,
		Pending:        res.Pending,
	}, nil
}
