package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"onboarding-workers/internal/models"
)

// StepStore persists the append-only onboarding step records.
type StepStore struct {
	db *sql.DB
}

func NewStepStore(db *sql.DB) *StepStore {
	return &StepStore{db: db}
}

// Create inserts the step if it is not recorded yet and returns the stored
// record. created is false when the row already existed. The elapsed time is
// measured from the applicant's most recent prior step and is fixed at
// creation.
func (s *StepStore) Create(ctx context.Context, applicantID string, step models.OnboardingStep, now time.Time) (*models.StepRecord, bool, error) {
	rec := &models.StepRecord{ApplicantID: applicantID, Step: step}
	var elapsedMs int64

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO onboarding_steps (applicant_id, step, completed_at, elapsed_ms)
		 SELECT $1, $2, $3::timestamptz,
		        COALESCE((EXTRACT(EPOCH FROM ($3::timestamptz - MAX(completed_at))) * 1000)::BIGINT, 0)
		   FROM onboarding_steps WHERE applicant_id = $1
		 ON CONFLICT (applicant_id, step) DO NOTHING
		 RETURNING id, completed_at, elapsed_ms`,
		applicantID, string(step), now,
	).Scan(&rec.ID, &rec.CompletedAt, &elapsedMs)
	if err == nil {
		rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		return rec, true, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, queryError("insert_step", applicantID, err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id, completed_at, elapsed_ms FROM onboarding_steps WHERE applicant_id = $1 AND step = $2`,
		applicantID, string(step),
	).Scan(&rec.ID, &rec.CompletedAt, &elapsedMs)
	if err != nil {
		return nil, false, queryError("get_step", applicantID, err)
	}
	rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	return rec, false, nil
}

// Recorded returns the set of steps recorded for the applicant.
func (s *StepStore) Recorded(ctx context.Context, applicantID string) (map[models.OnboardingStep]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step FROM onboarding_steps WHERE applicant_id = $1`, applicantID)
	if err != nil {
		return nil, queryError("list_steps", applicantID, err)
	}
	defer rows.Close()

	recorded := make(map[models.OnboardingStep]bool)
	for rows.Next() {
		var step models.OnboardingStep
		if err := rows.Scan(&step); err != nil {
			return nil, queryError("list_steps", applicantID, err)
		}
		recorded[step] = true
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list_steps", applicantID, err)
	}
	return recorded, nil
}
