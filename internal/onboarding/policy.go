package onboarding

import (
	"strings"

	"onboarding-workers/internal/models"
)

const (
	CountryBD = "BD"
	CountryUS = "US"
)

// VerificationPathway selects who verifies identity documents.
type VerificationPathway string

const (
	PathwayDocumentVerifier VerificationPathway = "document_verifier"
	PathwayRemoteEngine     VerificationPathway = "remote_engine"
)

// JurisdictionPolicy holds every country-specific onboarding rule.
type JurisdictionPolicy interface {
	Country() string
	// FlowSteps are the steps that follow the common prefix.
	FlowSteps(facts *models.ProfileFacts) []models.OnboardingStep
	RequiredDocuments() []models.DocumentType
	RequiresAdditionalInfo() bool
	AddressRequiredFields(a *models.Address) []string
	RequiresAdminApproval(s Settings) bool
	SupportsManualReview() bool
	VerificationPathway() VerificationPathway
	// ReducedScopeEligible reports whether sub ends onboarding at the
	// local-currency-only acceptance instead of remote KYC.
	ReducedScopeEligible(sub *models.Subscription) bool
}

// PolicyFor returns the policy for a country code. Unknown countries get a
// conservative fallback.
func PolicyFor(country string) JurisdictionPolicy {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case CountryBD:
		return bdPolicy{}
	case CountryUS:
		return usPolicy{}
	default:
		return defaultPolicy{country: country}
	}
}

var commonSteps = []models.OnboardingStep{
	models.StepLogin,
	models.StepReferral,
	models.StepOnboardingType,
	models.StepCountry,
	models.StepMobile,
}

func baseAddressFields(a *models.Address) []string {
	var missing []string
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "address_line_1")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

type bdPolicy struct{}

func (bdPolicy) Country() string { return CountryBD }

func (p bdPolicy) FlowSteps(facts *models.ProfileFacts) []models.OnboardingStep {
	steps := []models.OnboardingStep{
		models.StepNameDOB,
		models.StepLocation,
		models.StepAddress,
		models.StepProfilePicture,
		models.StepDocuments,
		models.StepAdditionalInfo,
		models.StepSubscription,
		models.StepIdentityVerification,
		models.StepAdminApproval,
	}
	full := []models.OnboardingStep{
		models.StepExternalIdentityCreation,
		models.StepKycSubmission,
		models.StepKycAcceptance,
	}
	if p.ReducedScopeEligible(facts.ActiveSubscription) {
		steps = append(steps, models.StepKycAcceptanceReduced)
		if facts.Applicant.ApprovalStatus == models.StatusKycAccepted {
			steps = append(steps, full...)
		}
		return steps
	}
	return append(steps, full...)
}

func (bdPolicy) RequiredDocuments() []models.DocumentType {
	return []models.DocumentType{models.DocProfileImage}
}

func (bdPolicy) RequiresAdditionalInfo() bool { return true }

func (bdPolicy) AddressRequiredFields(a *models.Address) []string {
	missing := baseAddressFields(a)
	if strings.TrimSpace(a.District) == "" {
		missing = append(missing, "district")
	}
	if strings.TrimSpace(a.Thana) == "" {
		missing = append(missing, "thana")
	}
	if strings.TrimSpace(a.Division) == "" {
		missing = append(missing, "division")
	}
	return missing
}

func (bdPolicy) RequiresAdminApproval(s Settings) bool {
	return s.adminApprovalRequired(CountryBD)
}

func (bdPolicy) SupportsManualReview() bool { return true }

func (bdPolicy) VerificationPathway() VerificationPathway { return PathwayDocumentVerifier }

func (bdPolicy) ReducedScopeEligible(sub *models.Subscription) bool { return sub.IsReducedScope() }

type usPolicy struct{}

func (usPolicy) Country() string { return CountryUS }

func (usPolicy) FlowSteps(*models.ProfileFacts) []models.OnboardingStep {
	return []models.OnboardingStep{
		models.StepNameDOB,
		models.StepLocation,
		models.StepAddress,
		models.StepDocuments,
		models.StepSubscription,
		models.StepIdentityVerification,
		models.StepAdminApproval,
		models.StepExternalIdentityCreation,
		models.StepTaxID,
		models.StepKycSubmission,
		models.StepKycAcceptance,
	}
}

func (usPolicy) RequiredDocuments() []models.DocumentType { return nil }

func (usPolicy) RequiresAdditionalInfo() bool { return false }

func (usPolicy) AddressRequiredFields(a *models.Address) []string {
	missing := baseAddressFields(a)
	if strings.TrimSpace(a.State) == "" {
		missing = append(missing, "state")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	return missing
}

func (usPolicy) RequiresAdminApproval(s Settings) bool {
	return s.adminApprovalRequired(CountryUS)
}

func (usPolicy) SupportsManualReview() bool { return false }

func (usPolicy) VerificationPathway() VerificationPathway { return PathwayRemoteEngine }

func (usPolicy) ReducedScopeEligible(*models.Subscription) bool { return false }

type defaultPolicy struct {
	country string
}

func (p defaultPolicy) Country() string { return p.country }

func (defaultPolicy) FlowSteps(*models.ProfileFacts) []models.OnboardingStep { return nil }

func (defaultPolicy) RequiredDocuments() []models.DocumentType { return nil }

func (defaultPolicy) RequiresAdditionalInfo() bool { return false }

func (defaultPolicy) AddressRequiredFields(a *models.Address) []string {
	return baseAddressFields(a)
}

// RequiresAdminApproval is always true outside known jurisdictions.
func (defaultPolicy) RequiresAdminApproval(Settings) bool { return true }

func (defaultPolicy) SupportsManualReview() bool { return false }

func (defaultPolicy) VerificationPathway() VerificationPathway { return PathwayRemoteEngine }

func (defaultPolicy) ReducedScopeEligible(*models.Subscription) bool { return false }
