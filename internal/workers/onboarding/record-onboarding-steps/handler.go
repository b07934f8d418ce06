// internal/workers/onboarding/record-onboarding-steps/handler.go
package recordonboardingsteps

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
	TaskType = dispatch.HandlerRecordOnboardingSteps
)

// StepChecker records every step the applicant's profile already satisfies.
type StepChecker interface {
	CheckAndAddAllSteps(ctx context.Context, applicantID string) ([]models.OnboardingStep, error)
}

type Handler struct {
	config *Config
	steps  StepChecker
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, steps StepChecker, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		steps:  steps,
		runner: camunda.NewJobRunner(config.Timeout, log),
		logger: log,
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

	created, err := h.steps.CheckAndAddAllSteps(ctx, input.ApplicantID)
	if err != nil {
		return nil, err
	}

	out := &Output{ApplicantID: input.ApplicantID, CreatedSteps: make([]string, 0, len(created))}
	for _, s := range created {
		out.CreatedSteps = append(out.CreatedSteps, string(s))
	}
	if len(created) > 0 {
		h.logger.Debug("onboarding steps recorded", map[string]interface{}{
			"applicantId": input.ApplicantID,
			"steps":       out.CreatedSteps,
		})
	}
	return out, nil
}
