package onboarding

import (
	"strings"

	"onboarding-workers/internal/common/phone"
	"onboarding-workers/internal/models"
)

// Missing-item labels reported by the completeness guard, in check order.
const (
	MissingProfileInfo    = "profile info"
	MissingMobile         = "mobile"
	MissingAddress        = "address"
	MissingAdditionalInfo = "additional_info"
	MissingDocuments      = "documents/profile image"
)

// VerifyStepCompleted reports whether step is satisfied by facts.
func VerifyStepCompleted(facts *models.ProfileFacts, step models.OnboardingStep) bool {
	policy := PolicyFor(facts.Applicant.Country)
	status := facts.Applicant.ApprovalStatus

	switch step {
	case models.StepLogin:
		return true
	case models.StepReferral:
		return facts.ReferralCode != ""
	case models.StepOnboardingType:
		return facts.Applicant.ProfileType != ""
	case models.StepCountry:
		return facts.Applicant.Country != ""
	case models.StepMobile:
		return facts.Mobile != nil && facts.Mobile.Number != ""
	case models.StepNameDOB:
		return hasNameAndDOB(facts)
	case models.StepLocation:
		return facts.HasBrowserLocation
	case models.StepAddress:
		return isAddressComplete(policy, facts.LegalAddress)
	case models.StepProfilePicture:
		return facts.HasDocument(models.DocProfileImage)
	case models.StepDocuments:
		return len(facts.Documents) > 0 && hasRequiredDocuments(policy, facts)
	case models.StepAdditionalInfo:
		return isAdditionalInfoPresentAndComplete(facts.AdditionalInfo)
	case models.StepSubscription:
		return facts.HasActiveSubscription
	case models.StepIdentityVerification:
		return facts.IdentityVerification.IsComplete()
	case models.StepAdminApproval:
		return status.IsAfterAdminApproval() && status != models.StatusProfileCompleted
	case models.StepKycAcceptanceReduced:
		return status == models.StatusKycAcceptedReduced
	case models.StepExternalIdentityCreation:
		return facts.Applicant.ExternalIdentityID != ""
	case models.StepTaxID:
		return facts.Applicant.TaxIDSubmitted
	case models.StepKycSubmission:
		return status.IsRemoteKyc()
	case models.StepKycAcceptance:
		return status == models.StatusKycAccepted
	default:
		return false
	}
}

// ExpectedFlow is the ordered checklist for the applicant's jurisdiction.
func ExpectedFlow(facts *models.ProfileFacts) []models.OnboardingStep {
	flow := make([]models.OnboardingStep, 0, len(models.AllSteps))
	flow = append(flow, commonSteps...)
	return append(flow, PolicyFor(facts.Applicant.Country).FlowSteps(facts)...)
}

// LastFinishedStep walks the expected flow backwards and returns the first
// recorded step. Recording order is irrelevant.
func LastFinishedStep(facts *models.ProfileFacts, recorded map[models.OnboardingStep]bool) (models.OnboardingStep, bool) {
	flow := ExpectedFlow(facts)
	for i := len(flow) - 1; i >= 0; i-- {
		if recorded[flow[i]] {
			return flow[i], true
		}
	}
	return "", false
}

// Flow pairs each expected step with whether it has been recorded.
func Flow(facts *models.ProfileFacts, recorded map[models.OnboardingStep]bool) []models.FlowEntry {
	flow := ExpectedFlow(facts)
	out := make([]models.FlowEntry, 0, len(flow))
	for _, step := range flow {
		out = append(out, models.FlowEntry{Step: step, Finished: recorded[step]})
	}
	return out
}

// MissingOnboardingData lists every unmet completeness item.
func MissingOnboardingData(facts *models.ProfileFacts) []string {
	policy := PolicyFor(facts.Applicant.Country)

	var missing []string
	if !hasNameAndDOB(facts) {
		missing = append(missing, MissingProfileInfo)
	}
	if !isMobileComplete(facts) {
		missing = append(missing, MissingMobile)
	}
	if !isAddressComplete(policy, facts.LegalAddress) || !isAddressComplete(policy, facts.ShippingAddress) {
		missing = append(missing, MissingAddress)
	}
	if policy.RequiresAdditionalInfo() && !isAdditionalInfoPresentAndComplete(facts.AdditionalInfo) {
		missing = append(missing, MissingAdditionalInfo)
	}
	if !hasRequiredDocuments(policy, facts) {
		missing = append(missing, MissingDocuments)
	}
	return missing
}

func hasNameAndDOB(facts *models.ProfileFacts) bool {
	return strings.TrimSpace(facts.FirstName) != "" &&
		strings.TrimSpace(facts.LastName) != "" &&
		facts.DateOfBirth != nil
}

func isMobileComplete(facts *models.ProfileFacts) bool {
	if facts.Mobile == nil {
		return false
	}
	return phone.IsValid(facts.Mobile.Number, facts.Applicant.Country)
}

func isAddressComplete(policy JurisdictionPolicy, a *models.Address) bool {
	return a != nil && len(policy.AddressRequiredFields(a)) == 0
}

func isAdditionalInfoPresentAndComplete(info *models.AdditionalInfo) bool {
	return info != nil &&
		strings.TrimSpace(info.Purpose) != "" &&
		info.EstimatedTxUSD > 0 &&
		strings.TrimSpace(info.Profession) != ""
}

func hasRequiredDocuments(policy JurisdictionPolicy, facts *models.ProfileFacts) bool {
	for _, doc := range policy.RequiredDocuments() {
		if !facts.HasDocument(doc) {
			return false
		}
	}
	return true
}

// shippingFromLegal returns a copy of facts whose shipping address mirrors
// the legal one.
func shippingFromLegal(facts *models.ProfileFacts) *models.ProfileFacts {
	out := *facts
	if facts.LegalAddress == nil {
		return &out
	}
	shipping := *facts.LegalAddress
	shipping.ID = 0
	shipping.Type = models.AddressShipping
	out.ShippingAddress = &shipping
	return &out
}
