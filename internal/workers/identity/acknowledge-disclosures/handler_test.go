// internal/workers/identity/acknowledge-disclosures/handler_test.go
package acknowledgedisclosures

import (
	"context"
	"testing"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) AcknowledgeDisclosures(ctx context.Context, applicantID string) (int, error) {
	args := m.Called(ctx, applicantID)
	return args.Int(0), args.Error(1)
}

func createTestHandler(t *testing.T, svc Acknowledger) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))
}

func TestHandler_HandleTask_Success(t *testing.T) {
	svc := &mockAcknowledger{}
	svc.On("AcknowledgeDisclosures", mock.Anything, "app-1").Return(3, nil)

	out, err := createTestHandler(t, svc).HandleTask(context.Background(), dispatch.AcknowledgeDisclosuresTask("app-1", "req-1"))

	require.NoError(t, err)
	assert.Equal(t, 3, out.(*Output).Acknowledged)
	svc.AssertExpectations(t)
}

func TestHandler_Execute_NoRemoteIdentity(t *testing.T) {
	svc := &mockAcknowledger{}
	svc.On("AcknowledgeDisclosures", mock.Anything, "app-1").
		Return(0, errors.NewValidationError("Remote identity has not been created", "externalIdentityId"))

	_, err := createTestHandler(t, svc).Execute(context.Background(), &Input{ApplicantID: "app-1"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	assert.False(t, errors.IsRetryable(err))
}

func TestHandler_Execute_MissingApplicant(t *testing.T) {
	_, err := createTestHandler(t, &mockAcknowledger{}).Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadInvalid))
}
