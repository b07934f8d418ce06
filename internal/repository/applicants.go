package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/models"
)

const applicantColumns = `id, email, country, profile_type, approval_status, admin_review_status,
       COALESCE(external_identity_id, ''), external_identity_status, tax_id_submitted,
       first_name, last_name, date_of_birth, referral_code, has_browser_location,
       created_at, updated_at`

// LockedApplicant is the view of one applicant while its row lock is held.
// Every write goes through the same transaction.
type LockedApplicant interface {
	Applicant() models.Applicant
	Facts(ctx context.Context) (*models.ProfileFacts, error)
	AdminApproval(ctx context.Context) (*models.AdminApproval, error)
	UpdateStatus(ctx context.Context, status models.ApprovalStatus, review models.AdminReviewStatus) error
	SaveAdminApproval(ctx context.Context, approval *models.AdminApproval) error
	SyncShippingAddress(ctx context.Context) error
	SetExternalIdentity(ctx context.Context, externalID, remoteStatus string) error
}

type ApplicantRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
	logger      logger.Logger
}

func NewApplicantRepository(db *sql.DB, lockTimeout time.Duration, log logger.Logger) *ApplicantRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &ApplicantRepository{
		db:          db,
		lockTimeout: lockTimeout,
		logger:      log.WithFields(map[string]interface{}{"component": "applicant-repository"}),
	}
}

// WithApplicantLock runs fn while holding SELECT ... FOR UPDATE on the
// applicant row. The transaction commits only when fn returns nil. Lock
// waits longer than the configured lock_timeout fail with
// CONCURRENCY_CONFLICT.
func (r *ApplicantRepository) WithApplicantLock(ctx context.Context, applicantID string, fn func(LockedApplicant) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// SET does not accept bind parameters.
	setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, setTimeout); err != nil {
		return queryError("set_lock_timeout", applicantID, err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = $1 FOR UPDATE`, applicantID)
	snap, err := scanApplicant(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewApplicantNotFoundError(applicantID)
		}
		return queryError("lock_applicant", applicantID, err)
	}

	locked := &lockedApplicant{tx: tx, snap: snap}
	if err := fn(locked); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return queryError("commit", applicantID, err)
	}
	return nil
}

// Get reads the applicant without locking.
func (r *ApplicantRepository) Get(ctx context.Context, applicantID string) (*models.Applicant, error) {
	snap, err := r.get(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	return &snap.applicant, nil
}

// Facts loads a profile snapshot without locking. Use it for reads only.
func (r *ApplicantRepository) Facts(ctx context.Context, applicantID string) (*models.ProfileFacts, error) {
	snap, err := r.get(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	return loadFacts(ctx, r.db, snap)
}

// MarkTaxIDSubmitted records that the applicant handed over a tax ID.
func (r *ApplicantRepository) MarkTaxIDSubmitted(ctx context.Context, applicantID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applicants SET tax_id_submitted = TRUE, updated_at = now() WHERE id = $1`, applicantID)
	if err != nil {
		return queryError("mark_tax_id", applicantID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewApplicantNotFoundError(applicantID)
	}
	return nil
}

func (r *ApplicantRepository) get(ctx context.Context, applicantID string) (*applicantSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = $1`, applicantID)
	snap, err := scanApplicant(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewApplicantNotFoundError(applicantID)
		}
		return nil, queryError("get_applicant", applicantID, err)
	}
	return snap, nil
}

// applicantSnapshot is the applicant row plus the profile columns stored on it.
type applicantSnapshot struct {
	applicant          models.Applicant
	firstName          string
	lastName           string
	dateOfBirth        *time.Time
	referralCode       string
	hasBrowserLocation bool
}

func scanApplicant(row *sql.Row) (*applicantSnapshot, error) {
	var (
		s   applicantSnapshot
		dob sql.NullTime
	)
	err := row.Scan(
		&s.applicant.ID,
		&s.applicant.Email,
		&s.applicant.Country,
		&s.applicant.ProfileType,
		&s.applicant.ApprovalStatus,
		&s.applicant.AdminReviewStatus,
		&s.applicant.ExternalIdentityID,
		&s.applicant.ExternalIdentityStatus,
		&s.applicant.TaxIDSubmitted,
		&s.firstName,
		&s.lastName,
		&dob,
		&s.referralCode,
		&s.hasBrowserLocation,
		&s.applicant.CreatedAt,
		&s.applicant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		t := dob.Time
		s.dateOfBirth = &t
	}
	return &s, nil
}

type lockedApplicant struct {
	tx   *sql.Tx
	snap *applicantSnapshot
}

func (l *lockedApplicant) Applicant() models.Applicant {
	return l.snap.applicant
}

func (l *lockedApplicant) Facts(ctx context.Context) (*models.ProfileFacts, error) {
	return loadFacts(ctx, l.tx, l.snap)
}

func (l *lockedApplicant) AdminApproval(ctx context.Context) (*models.AdminApproval, error) {
	var (
		a                      models.AdminApproval
		approvedBy, verifiedBy sql.NullString
		approvedAt, verifiedAt sql.NullTime
	)
	err := l.tx.QueryRowContext(ctx,
		`SELECT applicant_id, approved_by, approved_at, verified_by, verified_at
		   FROM admin_approvals WHERE applicant_id = $1`,
		l.snap.applicant.ID,
	).Scan(&a.ApplicantID, &approvedBy, &approvedAt, &verifiedBy, &verifiedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryError("get_admin_approval", l.snap.applicant.ID, err)
	}
	a.ApprovedBy = approvedBy.String
	a.VerifiedBy = verifiedBy.String
	if approvedAt.Valid {
		a.ApprovedAt = &approvedAt.Time
	}
	if verifiedAt.Valid {
		a.VerifiedAt = &verifiedAt.Time
	}
	return &a, nil
}

// UpdateStatus writes the approval status and, when review is set, the admin
// review status.
func (l *lockedApplicant) UpdateStatus(ctx context.Context, status models.ApprovalStatus, review models.AdminReviewStatus) error {
	id := l.snap.applicant.ID
	_, err := l.tx.ExecContext(ctx,
		`UPDATE applicants
		    SET approval_status = $2,
		        admin_review_status = COALESCE(NULLIF($3, ''), admin_review_status),
		        updated_at = now()
		  WHERE id = $1`,
		id, string(status), string(review),
	)
	if err != nil {
		return queryError("update_status", id, err)
	}
	l.snap.applicant.ApprovalStatus = status
	if review != "" {
		l.snap.applicant.AdminReviewStatus = review
	}
	return nil
}

func (l *lockedApplicant) SaveAdminApproval(ctx context.Context, a *models.AdminApproval) error {
	id := l.snap.applicant.ID
	_, err := l.tx.ExecContext(ctx,
		`INSERT INTO admin_approvals (applicant_id, approved_by, approved_at, verified_by, verified_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (applicant_id) DO UPDATE
		    SET approved_by = EXCLUDED.approved_by,
		        approved_at = EXCLUDED.approved_at,
		        verified_by = EXCLUDED.verified_by,
		        verified_at = EXCLUDED.verified_at`,
		id, nullString(a.ApprovedBy), a.ApprovedAt, nullString(a.VerifiedBy), a.VerifiedAt,
	)
	return queryError("save_admin_approval", id, err)
}

// SyncShippingAddress copies the legal address over the shipping address.
func (l *lockedApplicant) SyncShippingAddress(ctx context.Context) error {
	id := l.snap.applicant.ID
	_, err := l.tx.ExecContext(ctx,
		`INSERT INTO addresses (applicant_id, address_type, address_line_1, address_line_2, city, state,
		                        district, thana, division, postal_code, country)
		 SELECT applicant_id, 'SHIPPING', address_line_1, address_line_2, city, state,
		        district, thana, division, postal_code, country
		   FROM addresses
		  WHERE applicant_id = $1 AND address_type = 'LEGAL'
		 ON CONFLICT (applicant_id, address_type) DO UPDATE
		    SET address_line_1 = EXCLUDED.address_line_1,
		        address_line_2 = EXCLUDED.address_line_2,
		        city = EXCLUDED.city,
		        state = EXCLUDED.state,
		        district = EXCLUDED.district,
		        thana = EXCLUDED.thana,
		        division = EXCLUDED.division,
		        postal_code = EXCLUDED.postal_code,
		        country = EXCLUDED.country`,
		id,
	)
	return queryError("sync_shipping_address", id, err)
}

// SetExternalIdentity stores the remote identity id. The id is write-once; a
// second write with a different value is rejected.
func (l *lockedApplicant) SetExternalIdentity(ctx context.Context, externalID, remoteStatus string) error {
	id := l.snap.applicant.ID
	current := l.snap.applicant.ExternalIdentityID
	if current != "" && current != externalID {
		return errors.NewValidationError("External identity is already set", "externalIdentityId")
	}

	res, err := l.tx.ExecContext(ctx,
		`UPDATE applicants
		    SET external_identity_id = $2, external_identity_status = $3, updated_at = now()
		  WHERE id = $1 AND (external_identity_id IS NULL OR external_identity_id = $2)`,
		id, externalID, remoteStatus,
	)
	if err != nil {
		return queryError("set_external_identity", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewValidationError("External identity is already set", "externalIdentityId")
	}
	l.snap.applicant.ExternalIdentityID = externalID
	l.snap.applicant.ExternalIdentityStatus = remoteStatus
	return nil
}
