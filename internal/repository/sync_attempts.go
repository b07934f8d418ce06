package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"onboarding-workers/internal/models"
)

// SyncAttemptStore records one row per logical remote call, keyed by its
// idempotency key.
type SyncAttemptStore struct {
	db *sql.DB
}

func NewSyncAttemptStore(db *sql.DB) *SyncAttemptStore {
	return &SyncAttemptStore{db: db}
}

// Begin opens the attempt for key. A redelivery of the same key reuses the
// row, bumps retry_count and reopens a failed attempt.
func (s *SyncAttemptStore) Begin(ctx context.Context, applicantID, key string, op models.SyncOperation, payload interface{}) (*models.SyncAttempt, error) {
	snapshot, err := json.Marshal(payload)
	if err != nil {
		return nil, queryError("marshal_sync_payload", applicantID, err)
	}
	if payload == nil {
		snapshot = []byte(`{}`)
	}

	a := &models.SyncAttempt{
		ApplicantID:     applicantID,
		IdempotencyKey:  key,
		Operation:       op,
		PayloadSnapshot: snapshot,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO external_sync_attempts (applicant_id, idempotency_key, operation, payload_snapshot, status)
		 VALUES ($1, $2, $3, $4, 'pending')
		 ON CONFLICT (idempotency_key) DO UPDATE
		    SET retry_count = external_sync_attempts.retry_count + 1,
		        status = CASE WHEN external_sync_attempts.status = 'failed' THEN 'pending'
		                      ELSE external_sync_attempts.status END,
		        updated_at = now()
		 RETURNING id, status, retry_count, created_at, updated_at`,
		applicantID, key, string(op), snapshot,
	).Scan(&a.ID, &a.Status, &a.RetryCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, queryError("begin_sync_attempt", applicantID, err)
	}
	return a, nil
}

// Succeed marks the attempt terminal-successful.
func (s *SyncAttemptStore) Succeed(ctx context.Context, a *models.SyncAttempt) error {
	return s.finish(ctx, a, models.SyncSucceeded, "")
}

// Fail marks the attempt failed with the last error.
func (s *SyncAttemptStore) Fail(ctx context.Context, a *models.SyncAttempt, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(ctx, a, models.SyncFailed, msg)
}

func (s *SyncAttemptStore) finish(ctx context.Context, a *models.SyncAttempt, status models.SyncStatus, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE external_sync_attempts SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		a.ID, string(status), lastError,
	)
	if err != nil {
		return queryError("finish_sync_attempt", a.ApplicantID, err)
	}
	a.Status = status
	a.LastError = lastError
	return nil
}
