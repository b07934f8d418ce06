package models

import "time"

type OnboardingStep string

const (
	StepLogin                    OnboardingStep = "LOG_IN"
	StepReferral                 OnboardingStep = "REFERRAL"
	StepOnboardingType           OnboardingStep = "ONBOARDING_TYPE"
	StepCountry                  OnboardingStep = "COUNTRY"
	StepMobile                   OnboardingStep = "MOBILE"
	StepNameDOB                  OnboardingStep = "NAME_DOB"
	StepLocation                 OnboardingStep = "LOCATION"
	StepAddress                  OnboardingStep = "ADDRESS"
	StepProfilePicture           OnboardingStep = "PROFILE_PICTURE"
	StepDocuments                OnboardingStep = "DOCUMENTS"
	StepAdditionalInfo           OnboardingStep = "ADDITIONAL_INFO"
	StepSubscription             OnboardingStep = "SUBSCRIPTION"
	StepIdentityVerification     OnboardingStep = "IDENTITY_VERIFICATION"
	StepAdminApproval            OnboardingStep = "ADMIN_APPROVAL"
	StepKycAcceptanceReduced     OnboardingStep = "KYC_ACCEPTANCE_REDUCED"
	StepExternalIdentityCreation OnboardingStep = "EXTERNAL_IDENTITY_CREATION"
	StepTaxID                    OnboardingStep = "TAX_ID"
	StepKycSubmission            OnboardingStep = "KYC_SUBMISSION"
	StepKycAcceptance            OnboardingStep = "KYC_ACCEPTANCE"
)

// AllSteps lists every step in declaration order.
var AllSteps = []OnboardingStep{
	StepLogin,
	StepReferral,
	StepOnboardingType,
	StepCountry,
	StepMobile,
	StepNameDOB,
	StepLocation,
	StepAddress,
	StepProfilePicture,
	StepDocuments,
	StepAdditionalInfo,
	StepSubscription,
	StepIdentityVerification,
	StepAdminApproval,
	StepKycAcceptanceReduced,
	StepExternalIdentityCreation,
	StepTaxID,
	StepKycSubmission,
	StepKycAcceptance,
}

func (s OnboardingStep) Valid() bool {
	for _, step := range AllSteps {
		if step == s {
			return true
		}
	}
	return false
}

// StepRecord is an append-only fact that a step was observed complete.
type StepRecord struct {
	ID          int64          `json:"id" db:"id"`
	ApplicantID string         `json:"applicantId" db:"applicant_id"`
	Step        OnboardingStep `json:"step" db:"step"`
	CompletedAt time.Time      `json:"completedAt" db:"completed_at"`
	Elapsed     time.Duration  `json:"elapsed" db:"elapsed_ms"`
}

// FlowEntry is one line of the applicant's checklist.
type FlowEntry struct {
	Step     OnboardingStep `json:"step"`
	Finished bool           `json:"finished"`
}
