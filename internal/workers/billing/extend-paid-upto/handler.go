// internal/workers/billing/extend-paid-upto/handler.go
package extendpaidupto

import (
	"context"
	"time"

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
	TaskType = dispatch.HandlerExtendPaidUpto
)

type SubscriptionExtender interface {
	ActiveOnboarding(ctx context.Context, applicantID string) (*models.Subscription, error)
	ExtendPaidUpto(ctx context.Context, subscriptionID string, from time.Time, period time.Duration) (*models.Subscription, error)
}

type Handler struct {
	config *Config
	store  SubscriptionExtender
	now    func() time.Time
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, store SubscriptionExtender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		now:    time.Now,
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

// Execute starts the paid period at the approval date. The store keeps a
// paid-up-to date that already lies beyond it, so redelivery is harmless.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SubscriptionID == "" && input.ApplicantID == "" {
		return nil, errors.NewPayloadInvalidError(TaskType, []string{"subscriptionId or applicantId is required"})
	}

	subscriptionID := input.SubscriptionID
	if subscriptionID == "" {
		active, err := h.store.ActiveOnboarding(ctx, input.ApplicantID)
		if err != nil {
			return nil, err
		}
		if active == nil {
			h.logger.Info("No active onboarding subscription", map[string]interface{}{"applicantId": input.ApplicantID})
			return &Output{}, nil
		}
		subscriptionID = active.ID
	}

	sub, err := h.store.ExtendPaidUpto(ctx, subscriptionID, h.now().UTC(), h.config.Period)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Paid period extended", map[string]interface{}{
		"applicantId":    input.ApplicantID,
		"subscriptionId": sub.ID,
		"adminApproved":  input.AdminApproved,
	})
	return &Output{SubscriptionID: sub.ID, PaidUpto: sub.PaidUpto}, nil
}
