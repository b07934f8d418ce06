package dispatch

import (
	"encoding/json"
	"strings"

	"onboarding-workers/internal/models"
)

// Handler names. They match the task catalog and the Zeebe job types.
const (
	HandlerChangeOnboardingState  = "change-onboarding-state"
	HandlerRecordOnboardingSteps  = "record-onboarding-steps"
	HandlerCreateRemoteIdentity   = "create-remote-identity"
	HandlerSubmitKyc              = "submit-kyc"
	HandlerSubmitKycRemote        = "submit-kyc-remote"
	HandlerRunDocumentInquiry     = "run-document-inquiry"
	HandlerUploadKycDocuments     = "upload-kyc-documents"
	HandlerAcknowledgeDisclosures = "acknowledge-disclosures"
	HandlerSyncKycStatus          = "sync-kyc-status"
	HandlerSendStatusNotification = "send-status-notification"
	HandlerExtendPaidUpto         = "extend-paid-upto"
)

// AllHandlers lists every handler name.
var AllHandlers = []string{
	HandlerChangeOnboardingState,
	HandlerRecordOnboardingSteps,
	HandlerCreateRemoteIdentity,
	HandlerSubmitKyc,
	HandlerSubmitKycRemote,
	HandlerRunDocumentInquiry,
	HandlerUploadKycDocuments,
	HandlerAcknowledgeDisclosures,
	HandlerSyncKycStatus,
	HandlerSendStatusNotification,
	HandlerExtendPaidUpto,
}

const (
	EntityUser         = "USER"
	EntityKyc          = "KYC"
	EntityDocument     = "DOCUMENT"
	EntityDisclosure   = "DISCLOSURE"
	EntityNotification = "NOTIFICATION"
	EntitySubscription = "SUBSCRIPTION"
)

type ChangeStatePayload struct {
	ApplicantID  string `json:"applicantId"`
	TargetStatus string `json:"targetStatus"`
	ActingAdmin  string `json:"actingAdmin,omitempty"`
}

type ApplicantPayload struct {
	ApplicantID string `json:"applicantId"`
}

type SubmitKycPayload struct {
	ApplicantID             string `json:"applicantId"`
	RunDocumentVerification bool   `json:"runDocumentVerification"`
	Rerun                   bool   `json:"rerun"`
}

// KycCheckPayload starts one verification pathway for a submission.
// PreviousStatus is restored when the check fails for good.
type KycCheckPayload struct {
	ApplicantID             string `json:"applicantId"`
	SubmissionID            string `json:"submissionId"`
	RunDocumentVerification bool   `json:"runDocumentVerification"`
	PreviousStatus          string `json:"previousStatus,omitempty"`
}

type UploadDocumentsPayload struct {
	ApplicantID  string `json:"applicantId"`
	SubmissionID string `json:"submissionId"`
}

type SyncKycStatusPayload struct {
	ApplicantID        string `json:"applicantId"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

type ExtendPaidUptoPayload struct {
	ApplicantID    string `json:"applicantId"`
	SubscriptionID string `json:"subscriptionId"`
	AdminApproved  bool   `json:"adminApproved"`
}

func key(parts ...string) string {
	return strings.Join(parts, ":")
}

func newTask(entity, handler, idempotencyKey, correlation string, payload interface{}) Task {
	raw, _ := json.Marshal(payload)
	return Task{
		EntityType:     entity,
		HandlerName:    handler,
		Payload:        raw,
		IdempotencyKey: idempotencyKey,
		CorrelationKey: correlation,
	}
}

func ChangeStateTask(applicantID string, target models.ApprovalStatus, actingAdmin string) Task {
	return newTask(EntityUser, HandlerChangeOnboardingState,
		key(HandlerChangeOnboardingState, applicantID, string(target), actingAdmin), applicantID,
		ChangeStatePayload{ApplicantID: applicantID, TargetStatus: string(target), ActingAdmin: actingAdmin})
}

// RecordStepsTask refreshes the step records after the applicant reached
// status.
func RecordStepsTask(applicantID string, status models.ApprovalStatus) Task {
	return newTask(EntityUser, HandlerRecordOnboardingSteps,
		key(HandlerRecordOnboardingSteps, applicantID, string(status)), applicantID,
		ApplicantPayload{ApplicantID: applicantID})
}

// RecordStepTask refreshes the step records after step was satisfied
// without a status change.
func RecordStepTask(applicantID string, step models.OnboardingStep) Task {
	return newTask(EntityUser, HandlerRecordOnboardingSteps,
		key(HandlerRecordOnboardingSteps, applicantID, "step", string(step)), applicantID,
		ApplicantPayload{ApplicantID: applicantID})
}

func CreateRemoteIdentityTask(applicantID string) Task {
	return newTask(EntityUser, HandlerCreateRemoteIdentity,
		key(HandlerCreateRemoteIdentity, applicantID), applicantID,
		ApplicantPayload{ApplicantID: applicantID})
}

// SubmitKycTask requests a submission. requestID distinguishes reruns.
func SubmitKycTask(applicantID string, runDocumentVerification, rerun bool, requestID string) Task {
	return newTask(EntityKyc, HandlerSubmitKyc,
		key(HandlerSubmitKyc, applicantID, requestID), applicantID,
		SubmitKycPayload{ApplicantID: applicantID, RunDocumentVerification: runDocumentVerification, Rerun: rerun})
}

func SubmitKycRemoteTask(applicantID, submissionID string, runDocumentVerification bool, previous models.ApprovalStatus) Task {
	return newTask(EntityKyc, HandlerSubmitKycRemote,
		key(HandlerSubmitKycRemote, applicantID, submissionID), applicantID,
		KycCheckPayload{ApplicantID: applicantID, SubmissionID: submissionID,
			RunDocumentVerification: runDocumentVerification, PreviousStatus: string(previous)})
}

func RunDocumentInquiryTask(applicantID, submissionID string, runDocumentVerification bool, previous models.ApprovalStatus) Task {
	return newTask(EntityKyc, HandlerRunDocumentInquiry,
		key(HandlerRunDocumentInquiry, applicantID, submissionID), applicantID,
		KycCheckPayload{ApplicantID: applicantID, SubmissionID: submissionID,
			RunDocumentVerification: runDocumentVerification, PreviousStatus: string(previous)})
}

func UploadKycDocumentsTask(applicantID, submissionID string) Task {
	return newTask(EntityDocument, HandlerUploadKycDocuments,
		key(HandlerUploadKycDocuments, applicantID, submissionID), applicantID,
		UploadDocumentsPayload{ApplicantID: applicantID, SubmissionID: submissionID})
}

func AcknowledgeDisclosuresTask(applicantID, requestID string) Task {
	return newTask(EntityDisclosure, HandlerAcknowledgeDisclosures,
		key(HandlerAcknowledgeDisclosures, applicantID, requestID), applicantID,
		ApplicantPayload{ApplicantID: applicantID})
}

// SyncKycStatusTask applies status when set, otherwise polls the remote
// identity.
func SyncKycStatusTask(applicantID, status, requestID string) Task {
	return newTask(EntityKyc, HandlerSyncKycStatus,
		key(HandlerSyncKycStatus, applicantID, status, requestID), applicantID,
		SyncKycStatusPayload{ApplicantID: applicantID, VerificationStatus: status})
}

func NotificationTask(n models.Notification) Task {
	return newTask(EntityNotification, HandlerSendStatusNotification,
		key(HandlerSendStatusNotification, string(n.Kind), n.ApplicantID, string(n.PreviousStatus), string(n.NewStatus)),
		n.ApplicantID, n)
}

func ExtendPaidUptoTask(applicantID, subscriptionID string, adminApproved bool) Task {
	return newTask(EntitySubscription, HandlerExtendPaidUpto,
		key(HandlerExtendPaidUpto, subscriptionID, applicantID), applicantID,
		ExtendPaidUptoPayload{ApplicantID: applicantID, SubscriptionID: subscriptionID, AdminApproved: adminApproved})
}
