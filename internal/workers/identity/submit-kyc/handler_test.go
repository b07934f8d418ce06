// internal/workers/identity/submit-kyc/handler_test.go
package submitkyc

import (
	"context"
	"testing"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/identitysync"
	"onboarding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitKyc(ctx context.Context, req identitysync.SubmitRequest) (*identitysync.SubmitResult, error) {
	args := m.Called(ctx, req)
	if r, ok := args.Get(0).(*identitysync.SubmitResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHandler_HandleTask_UsesIdempotencyKeyAsRequestID(t *testing.T) {
	task := dispatch.SubmitKycTask("app-1", true, false, "req-7")
	svc := &mockSubmitter{}
	svc.On("SubmitKyc", mock.Anything, identitysync.SubmitRequest{
		ApplicantID:             "app-1",
		RunDocumentVerification: true,
		RequestID:               task.IdempotencyKey,
	}).Return(&identitysync.SubmitResult{
		Outcome:      identitysync.SubmitDispatched,
		SubmissionID: "sub-1",
		Status:       models.StatusVerificationInProgress,
	}, nil)

	h := NewHandler(&Config{Timeout: time.Second}, svc, logger.NewTestLogger(t))
	out, err := h.HandleTask(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, "dispatched", out.(*Output).Outcome)
	assert.Equal(t, "VERIFICATION_IN_PROGRESS", out.(*Output).ApprovalStatus)
	svc.AssertExpectations(t)
}

func TestHandler_Execute_Pending(t *testing.T) {
	svc := &mockSubmitter{}
	svc.On("SubmitKyc", mock.Anything, mock.Anything).Return(&identitysync.SubmitResult{
		Outcome: identitysync.SubmitPending,
		Status:  models.StatusVerificationInProgress,
	}, nil)

	h := NewHandler(&Config{Timeout: time.Second}, svc, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{ApplicantID: "app-1", RequestID: "r"})

	require.NoError(t, err)
	assert.Equal(t, "pending", out.Outcome)
	assert.Empty(t, out.SubmissionID)
}

func TestHandler_Execute_Errors(t *testing.T) {
	svc := &mockSubmitter{}
	svc.On("SubmitKyc", mock.Anything, mock.Anything).
		Return(nil, errors.NewValidationError("Remote identity has not been created", "externalIdentityId"))
	h := NewHandler(&Config{Timeout: time.Second}, svc, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadInvalid))

	_, err = h.Execute(context.Background(), &Input{ApplicantID: "app-1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
