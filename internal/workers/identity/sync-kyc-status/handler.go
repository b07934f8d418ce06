// internal/workers/identity/sync-kyc-status/handler.go
package synckycstatus

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
	TaskType = dispatch.HandlerSyncKycStatus
)

type StatusSyncer interface {
	ApplyRemoteKycResult(ctx context.Context, applicantID, remoteStatus string) (*identitysync.StatusResult, error)
	RefreshKycStatus(ctx context.Context, applicantID string) (*identitysync.StatusResult, error)
}

type Handler struct {
	config  *Config
	service StatusSyncer
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service StatusSyncer, log logger.Logger) *Handler {
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

	var (
		res *identitysync.StatusResult
		err error
	)
	if input.VerificationStatus != "" {
		res, err = h.service.ApplyRemoteKycResult(ctx, input.ApplicantID, input.VerificationStatus)
	} else {
		res, err = h.service.RefreshKycStatus(ctx, input.ApplicantID)
	}
	if err != nil {
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
