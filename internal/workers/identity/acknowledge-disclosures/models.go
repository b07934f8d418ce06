// internal/workers/identity/acknowledge-disclosures/models.go
package acknowledgedisclosures

type Input struct {
	ApplicantID string `json:"applicantId"`
}

type Output struct {
	ApplicantID  string `json:"applicantId"`
	Acknowledged int    `json:"acknowledged"`
}
