// internal/workers/onboarding/change-onboarding-state/handler.go
package changeonboardingstate

import (
	"context"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/onboarding"
	"onboarding-workers/internal/workers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = dispatch.HandlerChangeOnboardingState
)

// StateChanger is the onboarding state machine.
type StateChanger interface {
	ChangeState(ctx context.Context, applicantID string, target models.ApprovalStatus, actingAdmin string) (*onboarding.Result, error)
}

type Handler struct {
	config  *Config
	machine StateChanger
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, machine StateChanger, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		machine: machine,
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	res, err := h.machine.ChangeState(ctx, input.ApplicantID, models.ApprovalStatus(input.TargetStatus), input.ActingAdmin)
	if err != nil {
		return nil, err
	}

	h.logger.Info("onboarding state handled", map[string]interface{}{
		"applicantId": res.ApplicantID,
		"from":        string(res.Previous),
		"to":          string(res.Current),
		"changed":     res.Changed,
	})
	return &Output{
		ApplicantID:    res.ApplicantID,
		PreviousStatus: string(res.Previous),
		ApprovalStatus: string(res.Current),
		Changed:        res.Changed,
	}, nil
}

func validateInput(input *Input) error {
	var violations []string
	if input.ApplicantID == "" {
		violations = append(violations, "applicantId is required")
	}
	if input.TargetStatus == "" {
		violations = append(violations, "targetStatus is required")
	}
	if len(violations) > 0 {
		return errors.NewPayloadInvalidError(TaskType, violations)
	}
	return nil
}
