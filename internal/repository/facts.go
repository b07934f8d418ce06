package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"onboarding-workers/internal/models"
)

// loadFacts reads the supporting profile records for one applicant through q.
// Called with the locking transaction it sees the same snapshot the status
// decision is made on.
func loadFacts(ctx context.Context, q querier, snap *applicantSnapshot) (*models.ProfileFacts, error) {
	id := snap.applicant.ID
	facts := &models.ProfileFacts{
		Applicant:          snap.applicant,
		FirstName:          snap.firstName,
		LastName:           snap.lastName,
		DateOfBirth:        snap.dateOfBirth,
		ReferralCode:       snap.referralCode,
		HasBrowserLocation: snap.hasBrowserLocation,
	}

	var err error
	if facts.Mobile, err = loadMobile(ctx, q, id); err != nil {
		return nil, queryError("load_mobile", id, err)
	}
	if facts.LegalAddress, facts.ShippingAddress, err = loadAddresses(ctx, q, id); err != nil {
		return nil, queryError("load_addresses", id, err)
	}
	if facts.Documents, err = loadDocuments(ctx, q, id); err != nil {
		return nil, queryError("load_documents", id, err)
	}
	if facts.AdditionalInfo, err = loadAdditionalInfo(ctx, q, id); err != nil {
		return nil, queryError("load_additional_info", id, err)
	}

	subs, err := loadActiveSubscriptions(ctx, q, id)
	if err != nil {
		return nil, queryError("load_subscriptions", id, err)
	}
	facts.HasActiveSubscription = len(subs) > 0
	for i := range subs {
		if subs[i].PackageType == models.PackageOnboarding {
			facts.ActiveSubscription = &subs[i]
			break
		}
	}

	if facts.IdentityVerification, err = loadIdentityVerification(ctx, q, id); err != nil {
		return nil, queryError("load_identity_verification", id, err)
	}
	return facts, nil
}

func loadMobile(ctx context.Context, q querier, applicantID string) (*models.MobileNumber, error) {
	var m models.MobileNumber
	err := q.QueryRowContext(ctx,
		`SELECT mobile_number, country_prefix FROM mobile_numbers WHERE applicant_id = $1`,
		applicantID,
	).Scan(&m.Number, &m.CountryPrefix)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func loadAddresses(ctx context.Context, q querier, applicantID string) (legal, shipping *models.Address, err error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, applicant_id, address_type, address_line_1, address_line_2, city, state,
		        district, thana, division, postal_code, country
		   FROM addresses WHERE applicant_id = $1`,
		applicantID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.ApplicantID, &a.Type, &a.Line1, &a.Line2, &a.City, &a.State,
			&a.District, &a.Thana, &a.Division, &a.PostalCode, &a.Country); err != nil {
			return nil, nil, err
		}
		switch a.Type {
		case models.AddressLegal:
			legal = &a
		case models.AddressShipping:
			shipping = &a
		}
	}
	return legal, shipping, rows.Err()
}

func loadDocuments(ctx context.Context, q querier, applicantID string) ([]models.Document, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, applicant_id, doc_type, url, created_at
		   FROM documents WHERE applicant_id = $1 ORDER BY created_at`,
		applicantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ApplicantID, &d.Type, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func loadAdditionalInfo(ctx context.Context, q querier, applicantID string) (*models.AdditionalInfo, error) {
	var info models.AdditionalInfo
	err := q.QueryRowContext(ctx,
		`SELECT purpose, estimated_tx_usd, profession, organization, years_of_experience
		   FROM additional_infos WHERE applicant_id = $1`,
		applicantID,
	).Scan(&info.Purpose, &info.EstimatedTxUSD, &info.Profession, &info.Organization, &info.YearsOfExperience)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func loadActiveSubscriptions(ctx context.Context, q querier, applicantID string) ([]models.Subscription, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+subscriptionColumns+`
		   FROM subscriptions WHERE applicant_id = $1 AND is_active`,
		applicantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

func loadIdentityVerification(ctx context.Context, q querier, applicantID string) (*models.IdentityVerification, error) {
	var v models.IdentityVerification
	err := q.QueryRowContext(ctx,
		`SELECT id, applicant_id, inquiry_id, status, is_active, updated_at
		   FROM identity_verifications
		  WHERE applicant_id = $1 AND is_active
		  ORDER BY updated_at DESC LIMIT 1`,
		applicantID,
	).Scan(&v.ID, &v.ApplicantID, &v.InquiryID, &v.Status, &v.IsActive, &v.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
