// internal/workers/communication/send-status-notification/models.go
package sendstatusnotification

import (
	"context"

	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/models"
)

type Input = models.Notification

type Output = models.NotificationResult

// EmailSender delivers a plain text email and returns the provider message ID.
type EmailSender interface {
	SendText(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender delivers a text message and returns the provider message ID.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

// ContactLookup fills in contact details missing from the notification.
type ContactLookup interface {
	Contact(ctx context.Context, applicantID string) (email, mobile string, err error)
}

// ServiceDependencies groups the collaborators of the Service. A nil sender
// disables its channel.
type ServiceDependencies struct {
	Email    EmailSender
	SMS      SMSSender
	Contacts ContactLookup
	Logger   logger.Logger
}
