package models

type NotificationKind string

const (
	NotifyStatusChanged NotificationKind = "status_changed"
	NotifyAdminApproved NotificationKind = "admin_approved"
)

// Notification is the payload handed to the notification worker.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	ApplicantID    string           `json:"applicantId"`
	Email          string           `json:"email,omitempty"`
	PhoneNumber    string           `json:"phoneNumber,omitempty"`
	PreviousStatus ApprovalStatus   `json:"previousStatus,omitempty"`
	NewStatus      ApprovalStatus   `json:"newStatus,omitempty"`
}

// NotificationResult is reported back by the notification worker.
type NotificationResult struct {
	EmailSent bool   `json:"emailSent"`
	SMSSent   bool   `json:"smsSent"`
	MessageID string `json:"messageId,omitempty"`
}
