// internal/workers/communication/send-status-notification/service.go
package sendstatusnotification

import (
	"context"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/notify"
)

type Service struct {
	email    EmailSender
	sms      SMSSender
	contacts ContactLookup
	logger   logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	return &Service{
		email:    deps.Email,
		sms:      deps.SMS,
		contacts: deps.Contacts,
		logger:   deps.Logger,
	}
}

// Execute renders the notification and sends it on every enabled channel
// the applicant has contact details for. It fails only when every attempted
// channel failed, so a redelivery never repeats a message that went out.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	email, mobile := input.Email, input.PhoneNumber
	if (email == "" || mobile == "") && s.contacts != nil {
		e, m, err := s.contacts.Contact(ctx, input.ApplicantID)
		if err != nil {
			return nil, err
		}
		if email == "" {
			email = e
		}
		if mobile == "" {
			mobile = m
		}
	}

	msg := notify.Render(*input)
	out := &Output{}
	var (
		attempted int
		lastErr   error
	)

	if s.email != nil && email != "" {
		attempted++
		id, err := s.email.SendText(ctx, email, msg.Subject, msg.Body)
		if err != nil {
			lastErr = errors.NewNotificationSendFailedError("email", err)
			s.logger.Warn("Email notification failed", map[string]interface{}{
				"applicantId": input.ApplicantID,
				"error":       err.Error(),
			})
		} else {
			out.EmailSent = true
			out.MessageID = id
		}
	}

	if s.sms != nil && mobile != "" {
		attempted++
		id, err := s.sms.SendSMS(ctx, mobile, msg.SMS)
		if err != nil {
			lastErr = errors.NewNotificationSendFailedError("sms", err)
			s.logger.Warn("SMS notification failed", map[string]interface{}{
				"applicantId": input.ApplicantID,
				"error":       err.Error(),
			})
		} else {
			out.SMSSent = true
			if out.MessageID == "" {
				out.MessageID = id
			}
		}
	}

	if attempted > 0 && !out.EmailSent && !out.SMSSent {
		return nil, lastErr
	}

	s.logger.Info("Notification processed", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"kind":        string(input.Kind),
		"emailSent":   out.EmailSent,
		"smsSent":     out.SMSSent,
	})
	return out, nil
}
