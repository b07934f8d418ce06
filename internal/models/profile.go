package models

import "time"

type AddressType string

const (
	AddressLegal    AddressType = "LEGAL"
	AddressShipping AddressType = "SHIPPING"
)

type Address struct {
	ID          int64       `json:"id" db:"id"`
	ApplicantID string      `json:"applicantId" db:"applicant_id"`
	Type        AddressType `json:"type" db:"address_type"`
	Line1       string      `json:"addressLine1" db:"address_line_1"`
	Line2       string      `json:"addressLine2,omitempty" db:"address_line_2"`
	City        string      `json:"city,omitempty" db:"city"`
	State       string      `json:"state,omitempty" db:"state"`
	District    string      `json:"district,omitempty" db:"district"`
	Thana       string      `json:"thana,omitempty" db:"thana"`
	Division    string      `json:"division,omitempty" db:"division"`
	PostalCode  string      `json:"postalCode" db:"postal_code"`
	Country     string      `json:"country" db:"country"`
}

type MobileNumber struct {
	Number        string `json:"mobileNumber" db:"mobile_number"`
	CountryPrefix string `json:"countryPrefix" db:"country_prefix"`
}

type DocumentType string

const (
	DocProfileImage DocumentType = "PROFILE_IMAGE"
	DocNationalID   DocumentType = "NATIONAL_ID"
	DocPassport     DocumentType = "PASSPORT"
	DocSelfie       DocumentType = "SELFIE"
)

type Document struct {
	ID          int64        `json:"id" db:"id"`
	ApplicantID string       `json:"applicantId" db:"applicant_id"`
	Type        DocumentType `json:"docType" db:"doc_type"`
	URL         string       `json:"url" db:"url"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}

// AdditionalInfo is only collected in jurisdictions that require it.
type AdditionalInfo struct {
	Purpose           string  `json:"purpose" db:"purpose"`
	EstimatedTxUSD    float64 `json:"estimatedTxUsd" db:"estimated_tx_usd"`
	Profession        string  `json:"profession" db:"profession"`
	Organization      string  `json:"organization,omitempty" db:"organization"`
	YearsOfExperience int     `json:"yearsOfExperience,omitempty" db:"years_of_experience"`
}

type PackageType string

const PackageOnboarding PackageType = "ONBOARDING"

type Subscription struct {
	ID              string      `json:"id" db:"id"`
	ApplicantID     string      `json:"applicantId" db:"applicant_id"`
	PackageID       string      `json:"packageId" db:"package_id"`
	PackageType     PackageType `json:"packageType" db:"package_type"`
	AccountLimit    int         `json:"accountLimit" db:"account_limit"`
	BDTAccountLimit int         `json:"bdtAccountLimit" db:"bdt_account_limit"`
	IsActive        bool        `json:"isActive" db:"is_active"`
	PaidUpto        *time.Time  `json:"paidUpto,omitempty" db:"paid_upto"`
}

// IsReducedScope reports a subscription that only covers the local
// currency account.
func (s *Subscription) IsReducedScope() bool {
	return s != nil && s.AccountLimit == 0 && s.BDTAccountLimit > 0
}

type IdentityVerificationStatus string

const (
	IDVCreated   IdentityVerificationStatus = "created"
	IDVPending   IdentityVerificationStatus = "pending"
	IDVCompleted IdentityVerificationStatus = "completed"
	IDVApproved  IdentityVerificationStatus = "approved"
	IDVFailed    IdentityVerificationStatus = "failed"
	IDVDeclined  IdentityVerificationStatus = "declined"
)

// IdentityVerification is the third-party document verification inquiry.
type IdentityVerification struct {
	ID          string                     `json:"id" db:"id"`
	ApplicantID string                     `json:"applicantId" db:"applicant_id"`
	InquiryID   string                     `json:"inquiryId" db:"inquiry_id"`
	Status      IdentityVerificationStatus `json:"status" db:"status"`
	IsActive    bool                       `json:"isActive" db:"is_active"`
	UpdatedAt   time.Time                  `json:"updatedAt" db:"updated_at"`
}

func (v *IdentityVerification) IsComplete() bool {
	return v != nil && (v.Status == IDVCompleted || v.Status == IDVApproved)
}

type IdentificationClass string

const (
	IDNational      IdentificationClass = "id"
	IDPassport      IdentificationClass = "pp"
	IDDriverLicense IdentificationClass = "dl"
)

type Identification struct {
	ID          int64               `json:"id" db:"id"`
	ApplicantID string              `json:"applicantId" db:"applicant_id"`
	Class       IdentificationClass `json:"identificationClass" db:"identification_class"`
	Number      string              `json:"identificationNumber" db:"identification_number"`
	IssuedAt    *time.Time          `json:"issuedAt,omitempty" db:"issued_at"`
}

type Disclosure struct {
	ID       int64  `json:"id" db:"id"`
	Type     string `json:"type" db:"type"`
	Version  string `json:"version" db:"version"`
	IsActive bool   `json:"isActive" db:"is_active"`
}

type DisclosureAcknowledgement struct {
	DisclosureID   int64     `json:"disclosureId" db:"disclosure_id"`
	ApplicantID    string    `json:"applicantId" db:"applicant_id"`
	AcknowledgedAt time.Time `json:"acknowledgedAt" db:"acknowledged_at"`
	Response       []byte    `json:"response,omitempty" db:"response"`
}

// ProfileFacts is the read-only snapshot the evaluator and guards work on.
// It is loaded in one pass so a decision sees a consistent view.
type ProfileFacts struct {
	Applicant          Applicant
	FirstName          string
	LastName           string
	DateOfBirth        *time.Time
	ReferralCode       string
	Mobile             *MobileNumber
	HasBrowserLocation bool
	LegalAddress       *Address
	ShippingAddress    *Address
	Documents          []Document
	AdditionalInfo     *AdditionalInfo

	// ActiveSubscription is the active onboarding-package subscription.
	ActiveSubscription    *Subscription
	HasActiveSubscription bool
	IdentityVerification  *IdentityVerification
}

func (f *ProfileFacts) HasDocument(t DocumentType) bool {
	for _, d := range f.Documents {
		if d.Type == t {
			return true
		}
	}
	return false
}
