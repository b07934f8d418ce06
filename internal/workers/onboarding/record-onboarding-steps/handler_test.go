// internal/workers/onboarding/record-onboarding-steps/handler_test.go
package recordonboardingsteps

import (
	"context"
	"testing"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSteps struct {
	created []models.OnboardingStep
	err     error
	calls   []string
}

func (s *stubSteps) CheckAndAddAllSteps(_ context.Context, applicantID string) ([]models.OnboardingStep, error) {
	s.calls = append(s.calls, applicantID)
	return s.created, s.err
}

func TestHandler_Execute(t *testing.T) {
	steps := &stubSteps{created: []models.OnboardingStep{models.StepLogin, models.StepMobile}}
	h := NewHandler(&Config{Timeout: time.Second}, steps, logger.NewTestLogger(t))

	out, err := h.HandleTask(context.Background(), dispatch.RecordStepsTask("app-1", models.StatusProfileCompleted))

	require.NoError(t, err)
	assert.Equal(t, []string{string(models.StepLogin), string(models.StepMobile)}, out.(*Output).CreatedSteps)
	assert.Equal(t, []string{"app-1"}, steps.calls)
}

func TestHandler_Execute_NothingNew(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, &stubSteps{}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ApplicantID: "app-1"})

	require.NoError(t, err)
	assert.Empty(t, out.CreatedSteps)
}

func TestHandler_Execute_Errors(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, &stubSteps{err: errors.NewApplicantNotFoundError("app-9")}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadInvalid))

	_, err = h.Execute(context.Background(), &Input{ApplicantID: "app-9"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicantNotFound))
}
