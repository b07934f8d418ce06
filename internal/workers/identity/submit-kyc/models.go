// internal/workers/identity/submit-kyc/models.go
package submitkyc

type Input struct {
	ApplicantID             string `json:"applicantId"`
	RunDocumentVerification bool   `json:"runDocumentVerification"`
	Rerun                   bool   `json:"rerun"`
	// RequestID is the dispatch idempotency key.
	RequestID string `json:"idempotencyKey,omitempty"`
}

type Output struct {
	ApplicantID    string `json:"applicantId"`
	Outcome        string `json:"outcome"`
	SubmissionID   string `json:"submissionId,omitempty"`
	ApprovalStatus string `json:"approvalStatus"`
}
