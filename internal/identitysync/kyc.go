package identitysync

import (
	"context"
	"strings"

	"onboarding-workers/internal/common/docverify"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/onboarding"
	"onboarding-workers/internal/repository"

	"github.com/google/uuid"
)

type SubmitOutcome string

const (
	SubmitDispatched SubmitOutcome = "dispatched"
	// SubmitPending means another submission is already in flight.
	SubmitPending SubmitOutcome = "pending"
	// SubmitSkipped means the applicant is already accepted and no rerun was
	// asked for.
	SubmitSkipped SubmitOutcome = "skipped"
)

type SubmitRequest struct {
	ApplicantID             string
	RunDocumentVerification bool
	Rerun                   bool
	// RequestID identifies the request across redeliveries.
	RequestID string
}

type SubmitResult struct {
	Outcome      SubmitOutcome         `json:"outcome"`
	SubmissionID string                `json:"submissionId,omitempty"`
	Status       models.ApprovalStatus `json:"approvalStatus"`
}

// StatusResult reports the effect of a KYC status update. Pending is set
// when no final remote status was available yet.
type StatusResult struct {
	Previous models.ApprovalStatus `json:"previousStatus"`
	Current  models.ApprovalStatus `json:"approvalStatus"`
	Changed  bool                  `json:"changed"`
	Pending  bool                  `json:"pending,omitempty"`
}

// MapRemoteStatus maps a banking-core verification status onto the local
// KYC status.
func MapRemoteStatus(remote string) (models.ApprovalStatus, error) {
	s := models.ApprovalStatus("KYC_" + strings.ToUpper(strings.TrimSpace(remote)))
	if !s.IsRemoteKyc() {
		return "", errors.NewUnknownRemoteStatusError(remote)
	}
	return s, nil
}

// SubmitKyc flips the applicant to VERIFICATION_IN_PROGRESS and dispatches
// the check for its jurisdiction plus the document upload. A caller that
// finds a submission already in flight gets SubmitPending and nothing is
// sent.
func (s *Service) SubmitKyc(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	submissionID := s.key("submit-kyc", req.ApplicantID, req.RequestID)

	var (
		applicant models.Applicant
		previous  models.ApprovalStatus
		outcome   SubmitOutcome
	)
	err := s.applicants.WithApplicantLock(ctx, req.ApplicantID, func(l repository.LockedApplicant) error {
		app := l.Applicant()
		previous = app.ApprovalStatus
		switch {
		case app.ApprovalStatus == models.StatusVerificationInProgress:
			outcome = SubmitPending
		case app.ApprovalStatus == models.StatusKycAccepted && !req.Rerun:
			outcome = SubmitSkipped
		case app.ExternalIdentityID == "":
			return errors.NewValidationError("Remote identity has not been created", "externalIdentityId")
		default:
			if err := l.UpdateStatus(ctx, models.StatusVerificationInProgress, ""); err != nil {
				return err
			}
			outcome = SubmitDispatched
		}
		applicant = l.Applicant()
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{Outcome: outcome, Status: applicant.ApprovalStatus}
	if outcome != SubmitDispatched {
		s.logger.Info("kyc submission not started", map[string]interface{}{
			"applicantId": req.ApplicantID,
			"outcome":     string(outcome),
		})
		return res, nil
	}
	res.SubmissionID = submissionID

	var check dispatch.Task
	switch onboarding.PolicyFor(applicant.Country).VerificationPathway() {
	case onboarding.PathwayDocumentVerifier:
		check = dispatch.RunDocumentInquiryTask(req.ApplicantID, submissionID, req.RunDocumentVerification, previous)
	default:
		check = dispatch.SubmitKycRemoteTask(req.ApplicantID, submissionID, req.RunDocumentVerification, previous)
	}
	if _, err := s.dispatcher.Dispatch(ctx, check, false); err != nil {
		s.restore(ctx, req.ApplicantID, previous)
		return nil, err
	}
	s.dispatchAsync(ctx, dispatch.UploadKycDocumentsTask(req.ApplicantID, submissionID))
	return res, nil
}

// Restore puts back the status a failed submission replaced, unless
// something else has written the status since.
func (s *Service) Restore(ctx context.Context, applicantID string, previous models.ApprovalStatus) {
	s.restore(ctx, applicantID, previous)
}

func (s *Service) restore(ctx context.Context, applicantID string, previous models.ApprovalStatus) {
	if previous == "" || previous == models.StatusVerificationInProgress {
		return
	}
	err := s.applicants.WithApplicantLock(ctx, applicantID, func(l repository.LockedApplicant) error {
		if l.Applicant().ApprovalStatus != models.StatusVerificationInProgress {
			return nil
		}
		return l.UpdateStatus(ctx, previous, "")
	})
	if err != nil {
		s.logger.Error("kyc submission status not restored", map[string]interface{}{
			"applicantId": applicantID,
			"status":      string(previous),
			"error":       err.Error(),
		})
	}
}

// SubmitKycRemote asks the banking core to verify the identity and applies
// the verdict. When the response carries no verification status the remote
// identity is read back instead.
func (s *Service) SubmitKycRemote(ctx context.Context, applicantID, submissionID string) (*StatusResult, error) {
	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if app.ExternalIdentityID == "" {
		return nil, errors.NewValidationError("Remote identity has not been created", "externalIdentityId")
	}

	key := s.key("submit-kyc-remote", applicantID, submissionID)
	var verification string
	err = s.call(ctx, applicantID, models.OpSubmitKyc, key, map[string]string{"identityId": app.ExternalIdentityID},
		func(ctx context.Context) error {
			res, err := s.bank.SubmitKycWithoutDocument(ctx, app.ExternalIdentityID, key)
			if err != nil {
				return err
			}
			verification = res.VerificationStatus
			return nil
		})
	if err != nil {
		return nil, err
	}

	if verification == "" {
		identity, err := s.bank.GetIdentity(ctx, app.ExternalIdentityID)
		if err != nil {
			return nil, err
		}
		verification = identity.VerificationStatus
	}
	if verification == "" {
		return &StatusResult{Previous: app.ApprovalStatus, Current: app.ApprovalStatus, Pending: true}, nil
	}
	return s.ApplyRemoteKycResult(ctx, applicantID, verification)
}

// RunDocumentInquiry settles a submission through the document verifier.
// An already completed inquiry is reused unless runDocumentVerification
// asks for a new one. Open inquiries are settled later by the webhook or by
// sync-kyc-status.
func (s *Service) RunDocumentInquiry(ctx context.Context, applicantID, submissionID string, runDocumentVerification bool) (*StatusResult, error) {
	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	current, err := s.profiles.IdentityVerification(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if current != nil && !runDocumentVerification {
		if remote, final := docverify.RemoteStatus(current.Status); final {
			return s.ApplyRemoteKycResult(ctx, applicantID, remote)
		}
	}
	if s.verifier == nil {
		return nil, errors.NewExternalServiceError("docverify", errors.NewValidationError("document verifier is not configured"))
	}

	key := s.key("run-document-inquiry", applicantID, submissionID)
	var inquiry *models.IdentityVerification
	err = s.call(ctx, applicantID, models.OpRunDocumentInquiry, key, map[string]string{"submissionId": submissionID},
		func(ctx context.Context) error {
			inq, err := s.verifier.CreateInquiry(ctx, applicantID, submissionID, key)
			if err != nil {
				return err
			}
			inquiry = &models.IdentityVerification{
				ID:          uuid.NewString(),
				ApplicantID: applicantID,
				InquiryID:   inq.ID,
				Status:      inq.Status,
				IsActive:    true,
			}
			return s.profiles.SaveInquiry(ctx, inquiry)
		})
	if err != nil {
		return nil, err
	}

	if remote, final := docverify.RemoteStatus(inquiry.Status); final {
		return s.ApplyRemoteKycResult(ctx, applicantID, remote)
	}
	return &StatusResult{Previous: app.ApprovalStatus, Current: app.ApprovalStatus, Pending: true}, nil
}

// ApplyRemoteKycResult writes the local status for a remote verification
// status. Unknown statuses are rejected without any write; an unchanged
// status is a no-op.
func (s *Service) ApplyRemoteKycResult(ctx context.Context, applicantID, remoteStatus string) (*StatusResult, error) {
	next, err := MapRemoteStatus(remoteStatus)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{}
	var applicant models.Applicant
	err = s.applicants.WithApplicantLock(ctx, applicantID, func(l repository.LockedApplicant) error {
		res.Previous = l.Applicant().ApprovalStatus
		if res.Previous == next {
			return nil
		}
		if err := l.UpdateStatus(ctx, next, ""); err != nil {
			return err
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Current = next
	applicant = models.Applicant{ID: applicantID, ApprovalStatus: next}

	if res.Changed {
		if full, err := s.applicants.Get(ctx, applicantID); err == nil {
			applicant = *full
		}
		s.transitioned(ctx, applicant, res.Previous, true)
	}
	return res, nil
}

// RefreshKycStatus pulls the current verdict from whichever side owns it for
// the applicant's jurisdiction and applies it.
func (s *Service) RefreshKycStatus(ctx context.Context, applicantID string) (*StatusResult, error) {
	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	pending := &StatusResult{Previous: app.ApprovalStatus, Current: app.ApprovalStatus, Pending: true}

	if onboarding.PolicyFor(app.Country).VerificationPathway() == onboarding.PathwayDocumentVerifier && s.verifier != nil {
		current, err := s.profiles.IdentityVerification(ctx, applicantID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return pending, nil
		}
		status := current.Status
		if _, final := docverify.RemoteStatus(status); !final {
			inq, err := s.verifier.GetInquiry(ctx, current.InquiryID)
			if err != nil {
				return nil, err
			}
			status = inq.Status
			if status != current.Status {
				if _, err := s.profiles.UpdateVerificationStatus(ctx, current.InquiryID, status); err != nil {
					return nil, err
				}
			}
		}
		remote, final := docverify.RemoteStatus(status)
		if !final {
			return pending, nil
		}
		return s.ApplyRemoteKycResult(ctx, applicantID, remote)
	}

	if app.ExternalIdentityID == "" {
		return pending, nil
	}
	identity, err := s.bank.GetIdentity(ctx, app.ExternalIdentityID)
	if err != nil {
		return nil, err
	}
	if identity.VerificationStatus == "" {
		return pending, nil
	}
	return s.ApplyRemoteKycResult(ctx, applicantID, identity.VerificationStatus)
}

// HandleVerifierResult stores a verifier callback. When the inquiry is final
// and the applicant is waiting on it, a sync-kyc-status task applies the
// verdict.
func (s *Service) HandleVerifierResult(ctx context.Context, inquiryID string, status models.IdentityVerificationStatus) error {
	applicantID, err := s.profiles.UpdateVerificationStatus(ctx, inquiryID, status)
	if err != nil {
		return err
	}
	remote, final := docverify.RemoteStatus(status)
	if !final {
		return nil
	}
	app, err := s.applicants.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if app.ApprovalStatus != models.StatusVerificationInProgress {
		return nil
	}
	_, err = s.dispatcher.Dispatch(ctx, dispatch.SyncKycStatusTask(applicantID, remote, inquiryID), false)
	return err
}
