package onboarding

import (
	"context"
	"sync"
	"testing"
	"time"

	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFacts struct {
	facts *models.ProfileFacts
}

func (s staticFacts) Facts(context.Context, string) (*models.ProfileFacts, error) {
	return s.facts, nil
}

// memoryStepStore mimics the unique (applicant, step) index.
type memoryStepStore struct {
	mu      sync.Mutex
	records map[models.OnboardingStep]*models.StepRecord
	last    time.Time
}

func newMemoryStepStore() *memoryStepStore {
	return &memoryStepStore{records: map[models.OnboardingStep]*models.StepRecord{}}
}

func (m *memoryStepStore) Create(_ context.Context, applicantID string, step models.OnboardingStep, now time.Time) (*models.StepRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[step]; ok {
		return rec, false, nil
	}
	rec := &models.StepRecord{ApplicantID: applicantID, Step: step, CompletedAt: now}
	if !m.last.IsZero() {
		rec.Elapsed = now.Sub(m.last)
	}
	m.last = now
	m.records[step] = rec
	return rec, true, nil
}

func (m *memoryStepStore) Recorded(context.Context, string) (map[models.OnboardingStep]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.OnboardingStep]bool, len(m.records))
	for s := range m.records {
		out[s] = true
	}
	return out, nil
}

func newTestRecorder(t *testing.T, facts *models.ProfileFacts, store *memoryStepStore) *StepRecorder {
	r := NewStepRecorder(staticFacts{facts}, store, logger.NewTestLogger(t))
	clock := decideNow
	r.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return r
}

func TestAddStep(t *testing.T) {
	facts := completeBDFacts()
	store := newMemoryStepStore()
	r := newTestRecorder(t, facts, store)
	ctx := context.Background()

	rec, created, err := r.AddStep(ctx, "app-bd", models.StepLogin, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, rec.Elapsed)

	rec, created, err = r.AddStep(ctx, "app-bd", models.StepMobile, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, time.Minute, rec.Elapsed)

	again, created, err := r.AddStep(ctx, "app-bd", models.StepMobile, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.CompletedAt, again.CompletedAt, "elapsed time is fixed at creation")

	rec, created, err = r.AddStep(ctx, "app-bd", models.StepKycAcceptance, true)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, created)
}

func TestCheckAndAddAllSteps(t *testing.T) {
	facts := completeBDFacts()
	facts.ReferralCode = "FRIEND"
	store := newMemoryStepStore()
	r := newTestRecorder(t, facts, store)

	created, err := r.CheckAndAddAllSteps(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.Contains(t, created, models.StepLogin)
	assert.Contains(t, created, models.StepReferral)
	assert.Contains(t, created, models.StepNameDOB)
	assert.NotContains(t, created, models.StepLocation)
	assert.NotContains(t, created, models.StepKycAcceptance)

	again, err := r.CheckAndAddAllSteps(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestCheckAndAddAllSteps_RecordsStepsOutsideFlow(t *testing.T) {
	facts := completeUSFacts()
	facts.Documents = []models.Document{{Type: models.DocProfileImage}}
	require.NotContains(t, ExpectedFlow(facts), models.StepProfilePicture)

	store := newMemoryStepStore()
	r := newTestRecorder(t, facts, store)

	created, err := r.CheckAndAddAllSteps(context.Background(), "app-us")
	require.NoError(t, err)
	assert.Contains(t, created, models.StepProfilePicture)

	recorded, err := store.Recorded(context.Background(), "app-us")
	require.NoError(t, err)
	assert.True(t, recorded[models.StepProfilePicture])

	flow := Flow(facts, recorded)
	for _, entry := range flow {
		assert.NotEqual(t, models.StepProfilePicture, entry.Step)
	}
}

func TestOnboardingFlow(t *testing.T) {
	facts := completeUSFacts()
	store := newMemoryStepStore()
	r := newTestRecorder(t, facts, store)
	ctx := context.Background()

	_, _, err := r.AddStep(ctx, "app-us", models.StepLogin, false)
	require.NoError(t, err)
	_, _, err = r.AddStep(ctx, "app-us", models.StepAddress, false)
	require.NoError(t, err)

	flow, last, err := r.OnboardingFlow(ctx, "app-us")
	require.NoError(t, err)
	assert.Equal(t, models.StepAddress, last)
	require.Len(t, flow, len(ExpectedFlow(facts)))
	assert.Equal(t, models.FlowEntry{Step: models.StepLogin, Finished: true}, flow[0])
	assert.Equal(t, models.FlowEntry{Step: models.StepReferral, Finished: false}, flow[1])
}
