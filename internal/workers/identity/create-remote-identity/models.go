// internal/workers/identity/create-remote-identity/models.go
package createremoteidentity

type Input struct {
	ApplicantID string `json:"applicantId"`
}

// Output is read back by the state machine when it dispatches this task in
// wait mode.
type Output struct {
	ApplicantID        string `json:"applicantId"`
	ExternalIdentityID string `json:"externalIdentityId"`
	ApprovalStatus     string `json:"approvalStatus"`
}
