package models

import (
	"encoding/json"
	"time"
)

type SyncOperation string

const (
	OpCreateIdentity        SyncOperation = "createIdentity"
	OpGetIdentity           SyncOperation = "getIdentity"
	OpSubmitKyc             SyncOperation = "submitKycWithoutDocument"
	OpAcknowledgeDisclosure SyncOperation = "acknowledgeDisclosure"
	OpUploadDocument        SyncOperation = "uploadDocument"
	OpRunDocumentInquiry    SyncOperation = "runDocumentInquiry"
	OpUpdateIdentityStatus  SyncOperation = "updateIdentityStatus"
)

type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncSucceeded SyncStatus = "succeeded"
	SyncFailed    SyncStatus = "failed"
)

// SyncAttempt is one logical remote call. Redeliveries with the same
// idempotency key reuse the row and bump RetryCount.
type SyncAttempt struct {
	ID              int64           `json:"id" db:"id"`
	ApplicantID     string          `json:"applicantId" db:"applicant_id"`
	IdempotencyKey  string          `json:"idempotencyKey" db:"idempotency_key"`
	Operation       SyncOperation   `json:"operation" db:"operation"`
	PayloadSnapshot json.RawMessage `json:"payloadSnapshot" db:"payload_snapshot"`
	Status          SyncStatus      `json:"status" db:"status"`
	RetryCount      int             `json:"retryCount" db:"retry_count"`
	LastError       string          `json:"lastError,omitempty" db:"last_error"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}
