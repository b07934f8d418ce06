// internal/workers/identity/sync-kyc-status/models.go
package synckycstatus

// Input.VerificationStatus is the remote status to apply. When empty the
// worker polls the remote side instead.
type Input struct {
	ApplicantID        string `json:"applicantId"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

type Output struct {
	ApplicantID    string `json:"applicantId"`
	PreviousStatus string `json:"previousStatus"`
	ApprovalStatus string `json:"approvalStatus"`
	Changed        bool   `json:"changed"`
	Pending        bool   `json:"pending,omitempty"`
}
