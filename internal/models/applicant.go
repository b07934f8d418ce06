package models

import "time"

// ApprovalStatus is the externally visible onboarding status of an applicant.
// A few values are not durable states, see IsPseudo and IsTransient.
type ApprovalStatus string

const (
	StatusAwaitingSignupCompletion  ApprovalStatus = "AWAITING_SIGNUP_COMPLETION"
	StatusAwaitingProfileCompletion ApprovalStatus = "AWAITING_PROFILE_COMPLETION"
	StatusProfileInfoSaved          ApprovalStatus = "PROFILE_INFO_SAVED"
	StatusAwaitingAdminApproval     ApprovalStatus = "AWAITING_ADMIN_APPROVAL"
	StatusProfileCompleted          ApprovalStatus = "PROFILE_COMPLETED"
	StatusProfileCreatedExternal    ApprovalStatus = "PROFILE_CREATED_EXTERNAL"
	StatusVerificationInProgress    ApprovalStatus = "VERIFICATION_IN_PROGRESS"

	StatusKycUnverified  ApprovalStatus = "KYC_UNVERIFIED"
	StatusKycPending     ApprovalStatus = "KYC_PENDING"
	StatusKycProvisional ApprovalStatus = "KYC_PROVISIONAL"
	StatusKycAccepted    ApprovalStatus = "KYC_ACCEPTED"
	StatusKycReview      ApprovalStatus = "KYC_REVIEW"
	StatusKycRejected    ApprovalStatus = "KYC_REJECTED"

	StatusManualKycInReview ApprovalStatus = "MANUAL_KYC_IN_REVIEW"
	StatusManualKycAccepted ApprovalStatus = "MANUAL_KYC_ACCEPTED"
	StatusManualKycRejected ApprovalStatus = "MANUAL_KYC_REJECTED"

	StatusKycAcceptedReduced ApprovalStatus = "KYC_ACCEPTED_FOR_BDT_ONLY"
	StatusKycRejectedReduced ApprovalStatus = "KYC_REJECTED_FOR_BDT_ONLY"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ApprovalStatus{
	StatusAwaitingSignupCompletion,
	StatusAwaitingProfileCompletion,
	StatusProfileInfoSaved,
	StatusAwaitingAdminApproval,
	StatusProfileCompleted,
	StatusProfileCreatedExternal,
	StatusVerificationInProgress,
	StatusKycUnverified,
	StatusKycPending,
	StatusKycProvisional,
	StatusKycAccepted,
	StatusKycReview,
	StatusKycRejected,
	StatusManualKycInReview,
	StatusManualKycAccepted,
	StatusManualKycRejected,
	StatusKycAcceptedReduced,
	StatusKycRejectedReduced,
}

// RemoteKycStatuses are the values the banking core can report back.
var RemoteKycStatuses = []ApprovalStatus{
	StatusKycUnverified,
	StatusKycPending,
	StatusKycProvisional,
	StatusKycAccepted,
	StatusKycReview,
	StatusKycRejected,
}

var statusLabels = map[ApprovalStatus]string{
	StatusAwaitingSignupCompletion:  "Awaiting Signup Completion",
	StatusAwaitingProfileCompletion: "Awaiting Profile Completion",
	StatusProfileInfoSaved:          "Profile Info Saved",
	StatusAwaitingAdminApproval:     "Awaiting Admin Approval",
	StatusProfileCompleted:          "IDV Verification Pending",
	StatusProfileCreatedExternal:    "Profile Created",
	StatusVerificationInProgress:    "Verification In Progress",
	StatusKycUnverified:             "KYC Unverified",
	StatusKycPending:                "KYC Pending",
	StatusKycProvisional:            "KYC Provisional",
	StatusKycAccepted:               "KYC Accepted",
	StatusKycReview:                 "KYC Review",
	StatusKycRejected:               "KYC Rejected",
	StatusManualKycInReview:         "KYC in Review",
	StatusManualKycAccepted:         "KYC Accepted (Manual)",
	StatusManualKycRejected:         "KYC Rejected (Manual)",
	StatusKycAcceptedReduced:        "KYC Accepted for BDT Account",
	StatusKycRejectedReduced:        "KYC Rejected for BDT Account",
}

// Label returns the human readable form used in notifications.
func (s ApprovalStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s ApprovalStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsPseudo marks a decision-only target. It is requested but never stored.
func (s ApprovalStatus) IsPseudo() bool {
	return s == StatusProfileInfoSaved
}

// IsTransient marks an in-flight marker that a later write always replaces.
func (s ApprovalStatus) IsTransient() bool {
	return s == StatusVerificationInProgress
}

func (s ApprovalStatus) IsRemoteKyc() bool {
	for _, r := range RemoteKycStatuses {
		if r == s {
			return true
		}
	}
	return false
}

// IsAfterAdminApproval reports whether the applicant has passed (or been
// auto-approved through) the admin approval gate.
func (s ApprovalStatus) IsAfterAdminApproval() bool {
	switch s {
	case StatusProfileCompleted, StatusProfileCreatedExternal, StatusVerificationInProgress,
		StatusKycAcceptedReduced, StatusKycRejectedReduced:
		return true
	}
	return s.IsRemoteKyc()
}

// IsAcceptable reports whether the account is usable.
func (s ApprovalStatus) IsAcceptable() bool {
	return s == StatusKycAccepted || s == StatusKycAcceptedReduced
}

type AdminReviewStatus string

const (
	AdminReviewAutoApproved AdminReviewStatus = "AUTO_APPROVED"
	AdminReviewBlocked      AdminReviewStatus = "BLOCKED"
	AdminReviewInitiated    AdminReviewStatus = "INITIATED"
	AdminReviewInReview     AdminReviewStatus = "IN_REVIEW"
	AdminReviewVerified     AdminReviewStatus = "VERIFIED"
)

type ProfileType string

const (
	ProfilePerson   ProfileType = "PERSON"
	ProfileBusiness ProfileType = "BUSINESS"
)

// Applicant is the onboarding record. ApprovalStatus only changes through
// the onboarding state machine and ExternalIdentityID is written once.
type Applicant struct {
	ID                     string            `json:"id" db:"id"`
	Email                  string            `json:"email" db:"email"`
	Country                string            `json:"country" db:"country"`
	ProfileType            ProfileType       `json:"profileType" db:"profile_type"`
	ApprovalStatus         ApprovalStatus    `json:"approvalStatus" db:"approval_status"`
	AdminReviewStatus      AdminReviewStatus `json:"adminReviewStatus" db:"admin_review_status"`
	ExternalIdentityID     string            `json:"externalIdentityId,omitempty" db:"external_identity_id"`
	ExternalIdentityStatus string            `json:"externalIdentityStatus,omitempty" db:"external_identity_status"`
	TaxIDSubmitted         bool              `json:"taxIdSubmitted" db:"tax_id_submitted"`
	CreatedAt              time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time         `json:"updatedAt" db:"updated_at"`
}

// AdminApproval is the dual-control record. ApprovedBy and VerifiedBy are
// never the same admin.
type AdminApproval struct {
	ApplicantID string     `json:"applicantId" db:"applicant_id"`
	ApprovedBy  string     `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty" db:"approved_at"`
	VerifiedBy  string     `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty" db:"verified_at"`
}
