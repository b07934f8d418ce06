// internal/workers/onboarding/change-onboarding-state/models.go
package changeonboardingstate

type Input struct {
	ApplicantID  string `json:"applicantId"`
	TargetStatus string `json:"targetStatus"`
	ActingAdmin  string `json:"actingAdmin,omitempty"`
}

// Output reports the committed status. Changed is false for a no-op.
type Output struct {
	ApplicantID    string `json:"applicantId"`
	PreviousStatus string `json:"previousStatus"`
	ApprovalStatus string `json:"approvalStatus"`
	Changed        bool   `json:"changed"`
}
