package identitysync

import (
	"context"
	"fmt"
	"strconv"

	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/models"

	"github.com/google/uuid"
)

// DisclosureDateFormat is the timestamp layout the banking core expects.
const DisclosureDateFormat = "2006-01-02T15:04:05.000000Z"

// DisclosureKey is the idempotency key for one acknowledgement. The suffix is
// derived from the applicant so a redelivered task reuses the key.
func DisclosureKey(applicantID string, disclosureID int64) string {
	suffix := uuid.NewSHA1(uuid.NameSpaceOID, []byte(applicantID+":"+strconv.FormatInt(disclosureID, 10)))
	return fmt.Sprintf("IDM%d_%s", disclosureID, suffix)
}

// AcknowledgeDisclosures sends every active disclosure the applicant has not
// acknowledged yet. It stops at the first failure; disclosures already sent
// stay recorded.
func (s *Service) AcknowledgeDisclosures(ctx context.Context, applicantID string) (int, error) {
	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return 0, err
	}
	if app.ExternalIdentityID == "" {
		return 0, errors.NewValidationError("Remote identity has not been created", "externalIdentityId")
	}

	pending, err := s.profiles.PendingDisclosures(ctx, applicantID)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, d := range pending {
		now := s.now()
		req := corebank.DisclosureAck{
			IdentityID:     app.ExternalIdentityID,
			Type:           d.Type,
			Version:        d.Version,
			DisclosureDate: now.UTC().Format(DisclosureDateFormat),
			EventType:      "ACKNOWLEDGED",
		}
		key := DisclosureKey(applicantID, d.ID)

		var response []byte
		err := s.call(ctx, applicantID, models.OpAcknowledgeDisclosure, key, req, func(ctx context.Context) error {
			var callErr error
			response, callErr = s.bank.AcknowledgeDisclosure(ctx, req, key)
			return callErr
		})
		if err != nil {
			return sent, err
		}

		if err := s.profiles.AcknowledgeDisclosure(ctx, models.DisclosureAcknowledgement{
			DisclosureID:   d.ID,
			ApplicantID:    applicantID,
			AcknowledgedAt: now,
			Response:       response,
		}); err != nil {
			return sent, err
		}
		sent++
	}

	s.logger.Info("disclosures acknowledged", map[string]interface{}{
		"applicantId": applicantID,
		"count":       sent,
	})
	return sent, nil
}
