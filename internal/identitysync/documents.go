package identitysync

import (
	"context"
	"fmt"

	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/models"
)

const identityDocumentType = "IDENTITY_DOCUMENTATION"

// UploadDocuments pushes the documents captured by the verifier to the
// remote identity. Nothing is sent until the inquiry has completed.
func (s *Service) UploadDocuments(ctx context.Context, applicantID string) (int, error) {
	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return 0, err
	}
	if app.ExternalIdentityID == "" || s.verifier == nil {
		return 0, nil
	}

	idv, err := s.profiles.IdentityVerification(ctx, applicantID)
	if err != nil {
		return 0, err
	}
	if !idv.IsComplete() {
		s.logger.Info("document upload skipped, verification not complete", map[string]interface{}{
			"applicantId": applicantID,
		})
		return 0, nil
	}

	inquiry, err := s.verifier.GetInquiry(ctx, idv.InquiryID)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for i, doc := range inquiry.Documents {
		req := corebank.DocumentUpload{
			IdentityID: app.ExternalIdentityID,
			Type:       identityDocumentType,
			URL:        doc.URL,
			Name:       fmt.Sprintf("%s-%d", doc.Kind, i+1),
		}
		key := s.key("upload-document", applicantID, doc.URL)
		err := s.call(ctx, applicantID, models.OpUploadDocument, key, req, func(ctx context.Context) error {
			_, callErr := s.bank.UploadDocument(ctx, req, key)
			return callErr
		})
		if err != nil {
			return uploaded, err
		}
		uploaded++
	}
	return uploaded, nil
}
