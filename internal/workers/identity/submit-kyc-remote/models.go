// internal/workers/identity/submit-kyc-remote/models.go
package submitkycremote

type Input struct {
	ApplicantID             string `json:"applicantId"`
	SubmissionID            string `json:"submissionId"`
	RunDocumentVerification bool   `json:"runDocumentVerification"`
	PreviousStatus          string `json:"previousStatus,omitempty"`
}

type Output struct {
	ApplicantID    string `json:"applicantId"`
	PreviousStatus string `json:"previousStatus"`
	ApprovalStatus string `json:"approvalStatus"`
	Changed        bool   `json:"changed"`
	Pending        bool   `json:"pending,omitempty"`
}
