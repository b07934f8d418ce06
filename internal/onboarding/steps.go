package onboarding

import (
	"context"
	"time"

	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/models"
)

// FactsLoader reads an unlocked profile snapshot.
type FactsLoader interface {
	Facts(ctx context.Context, applicantID string) (*models.ProfileFacts, error)
}

// StepStore is the persistence the step recorder needs.
type StepStore interface {
	Create(ctx context.Context, applicantID string, step models.OnboardingStep, now time.Time) (*models.StepRecord, bool, error)
	Recorded(ctx context.Context, applicantID string) (map[models.OnboardingStep]bool, error)
}

// StepRecorder records completed onboarding steps. Records are append-only
// and one per (applicant, step); the unique index is the only guard against
// concurrent writers.
type StepRecorder struct {
	facts  FactsLoader
	store  StepStore
	now    func() time.Time
	logger logger.Logger
}

func NewStepRecorder(facts FactsLoader, store StepStore, log logger.Logger) *StepRecorder {
	return &StepRecorder{
		facts:  facts,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithFields(map[string]interface{}{"component": "step-recorder"}),
	}
}

// AddStep records step for the applicant. With checkCompletion set, a step
// whose completion predicate does not hold is skipped and (nil, false) is
// returned.
func (r *StepRecorder) AddStep(ctx context.Context, applicantID string, step models.OnboardingStep, checkCompletion bool) (*models.StepRecord, bool, error) {
	if checkCompletion {
		facts, err := r.facts.Facts(ctx, applicantID)
		if err != nil {
			return nil, false, err
		}
		if !VerifyStepCompleted(facts, step) {
			return nil, false, nil
		}
	}
	return r.store.Create(ctx, applicantID, step, r.now())
}

// CheckAndAddAllSteps records every known step that is currently satisfied,
// including steps outside the applicant's current flow. It returns the steps
// created by this call.
func (r *StepRecorder) CheckAndAddAllSteps(ctx context.Context, applicantID string) ([]models.OnboardingStep, error) {
	facts, err := r.facts.Facts(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	var created []models.OnboardingStep
	for _, step := range models.AllSteps {
		if !VerifyStepCompleted(facts, step) {
			continue
		}
		_, isNew, err := r.store.Create(ctx, applicantID, step, r.now())
		if err != nil {
			return created, err
		}
		if isNew {
			created = append(created, step)
		}
	}

	if len(created) > 0 {
		r.logger.Debug("onboarding steps recorded", map[string]interface{}{
			"applicantId": applicantID,
			"steps":       created,
		})
	}
	return created, nil
}

// OnboardingFlow returns the applicant's checklist and the last finished
// step, if any.
func (r *StepRecorder) OnboardingFlow(ctx context.Context, applicantID string) ([]models.FlowEntry, models.OnboardingStep, error) {
	facts, err := r.facts.Facts(ctx, applicantID)
	if err != nil {
		return nil, "", err
	}
	recorded, err := r.store.Recorded(ctx, applicantID)
	if err != nil {
		return nil, "", err
	}
	last, _ := LastFinishedStep(facts, recorded)
	return Flow(facts, recorded), last, nil
}
