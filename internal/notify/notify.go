// Package notify tells applicants about onboarding status changes. Delivery
// is best effort: a failed notification never fails the operation that
// caused it.
package notify

import (
	"context"

	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
)

type Notifier interface {
	StatusChanged(ctx context.Context, applicant models.Applicant, previous, next models.ApprovalStatus)
	AdminApproved(ctx context.Context, applicant models.Applicant)
}

// Dispatching hands notifications to the send-status-notification worker.
type Dispatching struct {
	dispatcher dispatch.Dispatcher
	logger     logger.Logger
}

func NewDispatching(d dispatch.Dispatcher, log logger.Logger) *Dispatching {
	return &Dispatching{
		dispatcher: d,
		logger:     log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

func (n *Dispatching) StatusChanged(ctx context.Context, applicant models.Applicant, previous, next models.ApprovalStatus) {
	if previous == next {
		return
	}
	n.send(ctx, models.Notification{
		Kind:           models.NotifyStatusChanged,
		ApplicantID:    applicant.ID,
		Email:          applicant.Email,
		PreviousStatus: previous,
		NewStatus:      next,
	})
}

func (n *Dispatching) AdminApproved(ctx context.Context, applicant models.Applicant) {
	n.send(ctx, models.Notification{
		Kind:        models.NotifyAdminApproved,
		ApplicantID: applicant.ID,
		Email:       applicant.Email,
		NewStatus:   applicant.ApprovalStatus,
	})
}

func (n *Dispatching) send(ctx context.Context, msg models.Notification) {
	if _, err := n.dispatcher.Dispatch(ctx, dispatch.NotificationTask(msg), false); err != nil {
		n.logger.Warn("notification not dispatched", map[string]interface{}{
			"applicantId": msg.ApplicantID,
			"kind":        string(msg.Kind),
			"error":       err.Error(),
		})
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) StatusChanged(context.Context, models.Applicant, models.ApprovalStatus, models.ApprovalStatus) {
}

func (Discard) AdminApproved(context.Context, models.Applicant) {}
