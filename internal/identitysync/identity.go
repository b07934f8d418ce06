package identitysync

import (
	"context"
	"strings"
	"time"

	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/phone"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/onboarding"
	"onboarding-workers/internal/repository"

	"github.com/redis/go-redis/v9"
)

const taxIDCacheTTL = 7 * 24 * time.Hour

var taxIDSeparators = strings.NewReplacer("-", "", " ", "")

// TaxIDCacheKey is where the API keeps a submitted tax ID until the remote
// identity exists.
func TaxIDCacheKey(applicantID string) string {
	return "taxid:" + applicantID
}

// SubmitTaxID takes the applicant's tax ID and marks the TAX_ID step as
// satisfied. Before the remote identity exists the number is held in the
// cache for CreateRemoteIdentity; it is never written to the database.
func (s *Service) SubmitTaxID(ctx context.Context, applicantID, taxID string) error {
	taxID = taxIDSeparators.Replace(strings.TrimSpace(taxID))
	if len(taxID) < 6 || len(taxID) > 20 {
		return errors.NewValidationError("Tax ID is invalid", "taxId")
	}

	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if app.ExternalIdentityID == "" && s.cache != nil {
		if err := s.cache.Set(ctx, TaxIDCacheKey(applicantID), taxID, taxIDCacheTTL).Err(); err != nil {
			return errors.NewExternalServiceError("redis", err)
		}
	}
	if err := s.applicants.MarkTaxIDSubmitted(ctx, applicantID); err != nil {
		return err
	}

	s.dispatchAsync(ctx, dispatch.RecordStepTask(applicantID, models.StepTaxID))
	return nil
}

func (s *Service) cachedTaxID(ctx context.Context, applicantID string) string {
	if s.cache == nil {
		return ""
	}
	v, err := s.cache.Get(ctx, TaxIDCacheKey(applicantID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cached tax id not read", map[string]interface{}{
				"applicantId": applicantID,
				"error":       err.Error(),
			})
		}
		return ""
	}
	return v
}

// SelectIdentification picks the document the remote identity is created
// with: a national ID when there is one, otherwise the most recently issued
// passport or driver licence. On equal issue dates the passport wins.
func SelectIdentification(ids []models.Identification) *models.Identification {
	var best *models.Identification
	for i := range ids {
		id := &ids[i]
		switch id.Class {
		case models.IDNational:
			return id
		case models.IDPassport, models.IDDriverLicense:
			if best == nil || issuedLater(id, best) {
				best = id
			}
		}
	}
	return best
}

func issuedLater(a, b *models.Identification) bool {
	var at, bt time.Time
	if a.IssuedAt != nil {
		at = *a.IssuedAt
	}
	if b.IssuedAt != nil {
		bt = *b.IssuedAt
	}
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.Class == models.IDPassport && b.Class != models.IDPassport
}

func identificationType(class models.IdentificationClass, country string) string {
	switch class {
	case models.IDNational:
		if strings.EqualFold(country, onboarding.CountryUS) {
			return "SSN"
		}
		return "NATIONAL_ID"
	case models.IDPassport:
		return "PASSPORT"
	case models.IDDriverLicense:
		return "DRIVERS_LICENSE"
	}
	return ""
}

func identityRequest(facts *models.ProfileFacts, ident *models.Identification) corebank.CreateIdentityRequest {
	app := facts.Applicant
	req := corebank.CreateIdentityRequest{
		FirstName:            facts.FirstName,
		LastName:             facts.LastName,
		Email:                app.Email,
		IdentificationType:   identificationType(ident.Class, app.Country),
		IdentificationNumber: ident.Number,
	}
	if facts.DateOfBirth != nil {
		req.DateOfBirth = facts.DateOfBirth.Format("2006-01-02")
	}
	if facts.Mobile != nil {
		req.PhoneNumber = phone.NormalizeE164(facts.Mobile.Number, app.Country)
	}
	if a := facts.LegalAddress; a != nil {
		req.LegalAddress = &corebank.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       firstNonEmpty(a.City, a.District),
			State:      firstNonEmpty(a.State, a.Division),
			PostalCode: a.PostalCode,
			Country:    strings.ToUpper(a.Country),
		}
	}
	return req
}

// redacted is the request as stored in the attempt snapshot.
func redacted(req corebank.CreateIdentityRequest) corebank.CreateIdentityRequest {
	n := req.IdentificationNumber
	if len(n) > 4 {
		req.IdentificationNumber = strings.Repeat("*", len(n)-4) + n[len(n)-4:]
	}
	return req
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// CreateRemoteIdentity creates the applicant in the banking core and moves
// it to PROFILE_CREATED_EXTERNAL. A remote failure leaves the applicant
// untouched. Calling it again after success returns the stored identity.
func (s *Service) CreateRemoteIdentity(ctx context.Context, applicantID string) (*models.Applicant, error) {
	facts, err := s.applicants.Facts(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if facts.Applicant.ExternalIdentityID != "" {
		return &facts.Applicant, nil
	}

	ids, err := s.profiles.Identifications(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if taxID := s.cachedTaxID(ctx, applicantID); taxID != "" {
		ids = append(ids, models.Identification{Class: models.IDNational, Number: taxID})
	}
	ident := SelectIdentification(ids)
	if ident == nil {
		return nil, errors.NewIdentificationNotFoundError(applicantID)
	}

	req := identityRequest(facts, ident)
	key := s.key("create-identity", applicantID)

	var identity *corebank.Identity
	err = s.call(ctx, applicantID, models.OpCreateIdentity, key, redacted(req), func(ctx context.Context) error {
		var callErr error
		identity, callErr = s.bank.CreateIdentity(ctx, req, key)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var (
		applicant models.Applicant
		previous  models.ApprovalStatus
		changed   bool
	)
	err = s.applicants.WithApplicantLock(ctx, applicantID, func(l repository.LockedApplicant) error {
		previous = l.Applicant().ApprovalStatus
		if err := l.SetExternalIdentity(ctx, identity.ID, identity.Status); err != nil {
			return err
		}
		if previous == models.StatusProfileCompleted {
			if err := l.UpdateStatus(ctx, models.StatusProfileCreatedExternal, ""); err != nil {
				return err
			}
			changed = true
		}
		applicant = l.Applicant()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.evictTaxID(ctx, applicantID)
	if changed {
		s.transitioned(ctx, applicant, previous, false)
	}
	return &applicant, nil
}

func (s *Service) evictTaxID(ctx context.Context, applicantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, TaxIDCacheKey(applicantID)).Err(); err != nil {
		s.logger.Warn("cached tax id not evicted", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err.Error(),
		})
	}
}
