package notify

import (
	"fmt"

	"onboarding-workers/internal/models"
)

// Message is the rendered text of a notification.
type Message struct {
	Subject string
	Body    string
	SMS     string
}

// Render builds the email and SMS text for n.
func Render(n models.Notification) Message {
	switch n.Kind {
	case models.NotifyAdminApproved:
		return Message{
			Subject: "Your profile has been approved",
			Body:    "Your onboarding profile was reviewed and approved. You can now continue with identity verification.",
			SMS:     "Your profile has been approved. Open the app to continue.",
		}
	default:
		next := n.NewStatus.Label()
		body := fmt.Sprintf("Your onboarding status changed to %s.", next)
		if n.PreviousStatus != "" {
			body = fmt.Sprintf("Your onboarding status changed from %s to %s.", n.PreviousStatus.Label(), next)
		}
		return Message{
			Subject: "Onboarding status: " + next,
			Body:    body,
			SMS:     fmt.Sprintf("Onboarding status: %s", next),
		}
	}
}
