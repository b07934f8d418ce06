// internal/workers/onboarding/record-onboarding-steps/models.go
package recordonboardingsteps

type Input struct {
	ApplicantID string `json:"applicantId"`
}

type Output struct {
	ApplicantID  string   `json:"applicantId"`
	CreatedSteps []string `json:"createdSteps"`
}
