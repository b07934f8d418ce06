package notify

import (
	"context"
	stderrors "errors"
	"testing"

	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, task dispatch.Task, wait bool) (*dispatch.Result, error) {
	args := m.Called(ctx, task, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Result), args.Error(1)
}

func TestDispatching_StatusChanged(t *testing.T) {
	d := new(MockDispatcher)
	n := NewDispatching(d, logger.NewTestLogger(t))
	applicant := models.Applicant{ID: "app-1", Email: "a@example.com"}

	var sent dispatch.Task
	d.On("Dispatch", mock.Anything, mock.Anything, false).
		Run(func(args mock.Arguments) { sent = args.Get(1).(dispatch.Task) }).
		Return(&dispatch.Result{}, nil).Once()

	n.StatusChanged(context.Background(), applicant, models.StatusProfileInfoSaved, models.StatusKycAccepted)

	d.AssertExpectations(t)
	assert.Equal(t, dispatch.HandlerSendStatusNotification, sent.HandlerName)
	var payload models.Notification
	require.NoError(t, sent.Decode(&payload))
	assert.Equal(t, models.NotifyStatusChanged, payload.Kind)
	assert.Equal(t, "a@example.com", payload.Email)
	assert.Equal(t, models.StatusKycAccepted, payload.NewStatus)
}

func TestDispatching_SkipsUnchangedStatus(t *testing.T) {
	d := new(MockDispatcher)
	n := NewDispatching(d, logger.NewTestLogger(t))

	n.StatusChanged(context.Background(), models.Applicant{ID: "app-1"}, models.StatusKycAccepted, models.StatusKycAccepted)

	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatching_SwallowsDispatchErrors(t *testing.T) {
	d := new(MockDispatcher)
	n := NewDispatching(d, logger.NewTestLogger(t))
	d.On("Dispatch", mock.Anything, mock.Anything, false).Return(nil, stderrors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		n.AdminApproved(context.Background(), models.Applicant{ID: "app-1", ApprovalStatus: models.StatusKycAccepted})
	})
	d.AssertExpectations(t)
}

func TestRender(t *testing.T) {
	msg := Render(models.Notification{
		Kind:           models.NotifyStatusChanged,
		PreviousStatus: models.StatusProfileInfoSaved,
		NewStatus:      models.StatusKycAccepted,
	})
	assert.Equal(t, "Onboarding status: KYC Accepted", msg.Subject)
	assert.Contains(t, msg.Body, "from Profile Info Saved to KYC Accepted")

	first := Render(models.Notification{Kind: models.NotifyStatusChanged, NewStatus: models.StatusKycAccepted})
	assert.NotContains(t, first.Body, "from")

	approved := Render(models.Notification{Kind: models.NotifyAdminApproved})
	assert.Contains(t, approved.Subject, "approved")
}
