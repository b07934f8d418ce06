package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/phone"
	"onboarding-workers/internal/models"
)

// ProfileStore reads the supporting records identity sync needs and writes
// verifier results.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Identifications(ctx context.Context, applicantID string) ([]models.Identification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, applicant_id, identification_class, identification_number, issued_at
		   FROM identifications WHERE applicant_id = $1`,
		applicantID,
	)
	if err != nil {
		return nil, queryError("list_identifications", applicantID, err)
	}
	defer rows.Close()

	var out []models.Identification
	for rows.Next() {
		var (
			i        models.Identification
			issuedAt sql.NullTime
		)
		if err := rows.Scan(&i.ID, &i.ApplicantID, &i.Class, &i.Number, &issuedAt); err != nil {
			return nil, queryError("list_identifications", applicantID, err)
		}
		if issuedAt.Valid {
			i.IssuedAt = &issuedAt.Time
		}
		out = append(out, i)
	}
	return out, queryError("list_identifications", applicantID, rows.Err())
}

func (s *ProfileStore) Documents(ctx context.Context, applicantID string) ([]models.Document, error) {
	docs, err := loadDocuments(ctx, s.db, applicantID)
	if err != nil {
		return nil, queryError("list_documents", applicantID, err)
	}
	return docs, nil
}

// IdentityVerification returns the active verifier inquiry, or nil.
func (s *ProfileStore) IdentityVerification(ctx context.Context, applicantID string) (*models.IdentityVerification, error) {
	v, err := loadIdentityVerification(ctx, s.db, applicantID)
	if err != nil {
		return nil, queryError("get_identity_verification", applicantID, err)
	}
	return v, nil
}

// UpdateVerificationStatus stores a verifier result by inquiry id and returns
// the owning applicant.
func (s *ProfileStore) UpdateVerificationStatus(ctx context.Context, inquiryID string, status models.IdentityVerificationStatus) (string, error) {
	var applicantID string
	err := s.db.QueryRowContext(ctx,
		`UPDATE identity_verifications SET status = $2, updated_at = now()
		  WHERE inquiry_id = $1 AND is_active
		 RETURNING applicant_id`,
		inquiryID, string(status),
	).Scan(&applicantID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", errors.NewResourceNotFoundError("identity_verifications", "inquiryId: "+inquiryID)
	}
	if err != nil {
		return "", queryError("update_verification_status", "", err)
	}
	return applicantID, nil
}

// SaveInquiry records a new active verifier inquiry and retires older ones.
func (s *ProfileStore) SaveInquiry(ctx context.Context, v *models.IdentityVerification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE identity_verifications SET is_active = FALSE WHERE applicant_id = $1 AND is_active`,
		v.ApplicantID,
	); err != nil {
		return queryError("retire_inquiries", v.ApplicantID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO identity_verifications (id, applicant_id, inquiry_id, status, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)`,
		v.ID, v.ApplicantID, v.InquiryID, string(v.Status),
	); err != nil {
		return queryError("save_inquiry", v.ApplicantID, err)
	}
	return queryError("commit", v.ApplicantID, tx.Commit())
}

// PendingDisclosures lists active disclosures the applicant has not
// acknowledged yet.
func (s *ProfileStore) PendingDisclosures(ctx context.Context, applicantID string) ([]models.Disclosure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.type, d.version, d.is_active
		   FROM disclosures d
		  WHERE d.is_active
		    AND NOT EXISTS (
		        SELECT 1 FROM disclosure_acknowledgements a
		         WHERE a.disclosure_id = d.id AND a.applicant_id = $1)
		  ORDER BY d.id`,
		applicantID,
	)
	if err != nil {
		return nil, queryError("list_disclosures", applicantID, err)
	}
	defer rows.Close()

	var out []models.Disclosure
	for rows.Next() {
		var d models.Disclosure
		if err := rows.Scan(&d.ID, &d.Type, &d.Version, &d.IsActive); err != nil {
			return nil, queryError("list_disclosures", applicantID, err)
		}
		out = append(out, d)
	}
	return out, queryError("list_disclosures", applicantID, rows.Err())
}

func (s *ProfileStore) AcknowledgeDisclosure(ctx context.Context, ack models.DisclosureAcknowledgement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO disclosure_acknowledgements (disclosure_id, applicant_id, acknowledged_at, response)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (disclosure_id, applicant_id) DO NOTHING`,
		ack.DisclosureID, ack.ApplicantID, ack.AcknowledgedAt, ack.Response,
	)
	return queryError("acknowledge_disclosure", ack.ApplicantID, err)
}

// Contact returns the applicant's email and mobile number in E.164 form when
// one is on file.
func (s *ProfileStore) Contact(ctx context.Context, applicantID string) (email, mobile string, err error) {
	var country string
	var number sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT a.email, a.country, m.mobile_number
		   FROM applicants a
		   LEFT JOIN mobile_numbers m ON m.applicant_id = a.id
		  WHERE a.id = $1`,
		applicantID,
	).Scan(&email, &country, &number)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", "", errors.NewApplicantNotFoundError(applicantID)
	}
	if err != nil {
		return "", "", queryError("get_contact", applicantID, err)
	}
	if number.Valid && number.String != "" {
		mobile = phone.NormalizeE164(number.String, country)
	}
	return email, mobile, nil
}
