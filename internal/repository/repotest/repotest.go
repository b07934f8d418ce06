// Package repotest holds sqlmock expectations for the repository queries so
// packages built on top of the repository can test against a mocked DB.
package repotest

import (
	"database/sql/driver"
	"time"

	"onboarding-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

// Profile is the row data behind one applicant.
type Profile struct {
	Applicant          models.Applicant
	FirstName          string
	LastName           string
	DateOfBirth        *time.Time
	ReferralCode       string
	HasBrowserLocation bool

	Mobile               *models.MobileNumber
	Addresses            []models.Address
	Documents            []models.Document
	AdditionalInfo       *models.AdditionalInfo
	Subscriptions        []models.Subscription
	IdentityVerification *models.IdentityVerification
	Approval             *models.AdminApproval
}

var applicantColumns = []string{
	"id", "email", "country", "profile_type", "approval_status", "admin_review_status",
	"external_identity_id", "external_identity_status", "tax_id_submitted",
	"first_name", "last_name", "date_of_birth", "referral_code", "has_browser_location",
	"created_at", "updated_at",
}

func (p *Profile) applicantRow() *sqlmock.Rows {
	a := p.Applicant
	var dob driver.Value
	if p.DateOfBirth != nil {
		dob = *p.DateOfBirth
	}
	return sqlmock.NewRows(applicantColumns).AddRow(
		a.ID, a.Email, a.Country, string(a.ProfileType), string(a.ApprovalStatus), string(a.AdminReviewStatus),
		a.ExternalIdentityID, a.ExternalIdentityStatus, a.TaxIDSubmitted,
		p.FirstName, p.LastName, dob, p.ReferralCode, p.HasBrowserLocation,
		a.CreatedAt, a.UpdatedAt,
	)
}

// ExpectLock expects BEGIN, the lock timeout and the FOR UPDATE read.
func ExpectLock(mock sqlmock.Sqlmock, p *Profile) {
	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM applicants WHERE id = \$1 FOR UPDATE`).
		WithArgs(p.Applicant.ID).
		WillReturnRows(p.applicantRow())
}

// ExpectLockTimeout expects the FOR UPDATE read to fail with err, then a
// rollback.
func ExpectLockTimeout(mock sqlmock.Sqlmock, applicantID string, err error) {
	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM applicants WHERE id = \$1 FOR UPDATE`).
		WithArgs(applicantID).
		WillReturnError(err)
	mock.ExpectRollback()
}

// ExpectGet expects the unlocked applicant read.
func ExpectGet(mock sqlmock.Sqlmock, p *Profile) {
	mock.ExpectQuery(`FROM applicants WHERE id = \$1$`).
		WithArgs(p.Applicant.ID).
		WillReturnRows(p.applicantRow())
}

// ExpectFacts expects the supporting reads issued by Facts, in order.
func ExpectFacts(mock sqlmock.Sqlmock, p *Profile) {
	id := p.Applicant.ID

	mobile := sqlmock.NewRows([]string{"mobile_number", "country_prefix"})
	if p.Mobile != nil {
		mobile.AddRow(p.Mobile.Number, p.Mobile.CountryPrefix)
	}
	mock.ExpectQuery(`FROM mobile_numbers`).WithArgs(id).WillReturnRows(mobile)

	addresses := sqlmock.NewRows([]string{
		"id", "applicant_id", "address_type", "address_line_1", "address_line_2", "city", "state",
		"district", "thana", "division", "postal_code", "country",
	})
	for _, a := range p.Addresses {
		addresses.AddRow(a.ID, id, string(a.Type), a.Line1, a.Line2, a.City, a.State,
			a.District, a.Thana, a.Division, a.PostalCode, a.Country)
	}
	mock.ExpectQuery(`FROM addresses`).WithArgs(id).WillReturnRows(addresses)

	docs := sqlmock.NewRows([]string{"id", "applicant_id", "doc_type", "url", "created_at"})
	for _, d := range p.Documents {
		docs.AddRow(d.ID, id, string(d.Type), d.URL, d.CreatedAt)
	}
	mock.ExpectQuery(`FROM documents`).WithArgs(id).WillReturnRows(docs)

	info := sqlmock.NewRows([]string{"purpose", "estimated_tx_usd", "profession", "organization", "years_of_experience"})
	if p.AdditionalInfo != nil {
		i := p.AdditionalInfo
		info.AddRow(i.Purpose, i.EstimatedTxUSD, i.Profession, i.Organization, i.YearsOfExperience)
	}
	mock.ExpectQuery(`FROM additional_infos`).WithArgs(id).WillReturnRows(info)

	mock.ExpectQuery(`FROM subscriptions`).WithArgs(id).WillReturnRows(SubscriptionRows(p.Subscriptions...))

	idv := sqlmock.NewRows([]string{"id", "applicant_id", "inquiry_id", "status", "is_active", "updated_at"})
	if v := p.IdentityVerification; v != nil {
		idv.AddRow(v.ID, id, v.InquiryID, string(v.Status), v.IsActive, v.UpdatedAt)
	}
	mock.ExpectQuery(`FROM identity_verifications`).WithArgs(id).WillReturnRows(idv)
}

// ExpectApproval expects the admin approval read.
func ExpectApproval(mock sqlmock.Sqlmock, p *Profile) {
	rows := sqlmock.NewRows([]string{"applicant_id", "approved_by", "approved_at", "verified_by", "verified_at"})
	if a := p.Approval; a != nil {
		rows.AddRow(p.Applicant.ID, nullable(a.ApprovedBy), timeValue(a.ApprovedAt), nullable(a.VerifiedBy), timeValue(a.VerifiedAt))
	}
	mock.ExpectQuery(`FROM admin_approvals`).WithArgs(p.Applicant.ID).WillReturnRows(rows)
}

// SubscriptionRows builds rows in subscription column order.
func SubscriptionRows(subs ...models.Subscription) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "applicant_id", "package_id", "package_type", "account_limit", "bdt_account_limit", "is_active", "paid_upto",
	})
	for _, s := range subs {
		rows.AddRow(s.ID, s.ApplicantID, s.PackageID, string(s.PackageType), s.AccountLimit, s.BDTAccountLimit,
			s.IsActive, timeValue(s.PaidUpto))
	}
	return rows
}

func nullable(s string) driver.Value {
	if s == "" {
		return nil
	}
	return s
}

func timeValue(t *time.Time) driver.Value {
	if t == nil {
		return nil
	}
	return *t
}
