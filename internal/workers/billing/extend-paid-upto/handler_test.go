// internal/workers/billing/extend-paid-upto/handler_test.go
package extendpaidupto

import (
	"context"
	"testing"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ActiveOnboarding(ctx context.Context, applicantID string) (*models.Subscription, error) {
	args := m.Called(ctx, applicantID)
	if s, ok := args.Get(0).(*models.Subscription); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ExtendPaidUpto(ctx context.Context, id string, from time.Time, period time.Duration) (*models.Subscription, error) {
	args := m.Called(ctx, id, from, period)
	if s, ok := args.Get(0).(*models.Subscription); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func createTestHandler(t *testing.T, store SubscriptionExtender, now time.Time) *Handler {
	h := NewHandler(&Config{Timeout: 5 * time.Second, Period: 30 * 24 * time.Hour}, store, logger.NewTestLogger(t))
	h.now = func() time.Time { return now }
	return h
}

func TestHandler_HandleTask_Extends(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	paid := now.Add(30 * 24 * time.Hour)
	store := &mockStore{}
	store.On("ExtendPaidUpto", mock.Anything, "sub-1", now, 30*24*time.Hour).
		Return(&models.Subscription{ID: "sub-1", ApplicantID: "app-1", PaidUpto: &paid}, nil)

	out, err := createTestHandler(t, store, now).HandleTask(context.Background(), dispatch.ExtendPaidUptoTask("app-1", "sub-1", true))

	require.NoError(t, err)
	assert.Equal(t, paid, *out.(*Output).PaidUpto)
	store.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	now := time.Now()

	_, err := createTestHandler(t, &mockStore{}, now).Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadInvalid))

	store := &mockStore{}
	store.On("ExtendPaidUpto", mock.Anything, "sub-x", mock.Anything, mock.Anything).
		Return(nil, errors.NewResourceNotFoundError("subscriptions", "subscriptionId: sub-x"))
	_, err = createTestHandler(t, store, now).Execute(context.Background(), &Input{SubscriptionID: "sub-x"})
	assert.Error(t, err)
	assert.False(t, errors.IsRetryable(err))
}

func TestHandler_Execute_LooksUpActiveSubscription(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	store := &mockStore{}
	store.On("ActiveOnboarding", mock.Anything, "app-1").Return(&models.Subscription{ID: "sub-7", ApplicantID: "app-1"}, nil)
	store.On("ExtendPaidUpto", mock.Anything, "sub-7", now, mock.Anything).Return(&models.Subscription{ID: "sub-7"}, nil)

	out, err := createTestHandler(t, store, now).Execute(context.Background(), &Input{ApplicantID: "app-1"})

	require.NoError(t, err)
	assert.Equal(t, "sub-7", out.SubscriptionID)
	store.AssertExpectations(t)
}

func TestHandler_Execute_NoActiveSubscription(t *testing.T) {
	store := &mockStore{}
	store.On("ActiveOnboarding", mock.Anything, "app-1").Return(nil, nil)

	out, err := createTestHandler(t, store, time.Now()).Execute(context.Background(), &Input{ApplicantID: "app-1"})

	require.NoError(t, err)
	assert.Empty(t, out.SubscriptionID)
	store.AssertNotCalled(t, "ExtendPaidUpto", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
