// internal/workers/identity/run-document-inquiry/models.go
package rundocumentinquiry

type Input struct {
	ApplicantID             string `json:"applicantId"`
	SubmissionID            string `json:"submissionId"`
	RunDocumentVerification bool   `json:"runDocumentVerification"`
	PreviousStatus          string `json:"previousStatus,omitempty"`
}

// Output.Pending is set while the inquiry is still open; the verifier
// webhook settles it later.
type Output struct {
	ApplicantID    string `json:"applicantId"`
	ApprovalStatus string `json:"approvalStatus"`
	Changed        bool   `json:"changed"`
	Pending        bool   `json:"pending"`
}
