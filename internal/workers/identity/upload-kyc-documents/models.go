// internal/workers/identity/upload-kyc-documents/models.go
package uploadkycdocuments

type Input struct {
	ApplicantID  string `json:"applicantId"`
	SubmissionID string `json:"submissionId,omitempty"`
}

type Output struct {
	ApplicantID string `json:"applicantId"`
	Uploaded    int    `json:"uploaded"`
}
