// internal/workers/communication/send-status-notification/handler_test.go
package sendstatusnotification

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	awsclients "onboarding-workers/internal/common/aws"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*ses.SendEmailOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*sns.PublishOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type stubContacts struct {
	email, mobile string
	calls         int
}

func (s *stubContacts) Contact(context.Context, string) (string, string, error) {
	s.calls++
	return s.email, s.mobile, nil
}

func newTestService(t *testing.T, sesAPI *mockSES, snsAPI *mockSNS, contacts ContactLookup) *Service {
	deps := ServiceDependencies{Contacts: contacts, Logger: logger.NewTestLogger(t)}
	if sesAPI != nil {
		deps.Email = awsclients.NewSESClientWith(sesAPI, "no-reply@example.com")
	}
	if snsAPI != nil {
		deps.SMS = awsclients.NewSNSClientWith(snsAPI, "ONBOARD")
	}
	return NewService(deps)
}

func statusChanged() *Input {
	return &Input{
		Kind:           models.NotifyStatusChanged,
		ApplicantID:    "app-1",
		Email:          "jane@example.com",
		PhoneNumber:    "+14155550100",
		PreviousStatus: models.StatusVerificationInProgress,
		NewStatus:      models.StatusKycAccepted,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestService_Execute_BothChannels(t *testing.T) {
	sesAPI, snsAPI := &mockSES{}, &mockSNS{}
	sesAPI.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return in.Destination.ToAddresses[0] == "jane@example.com" &&
			aws.ToString(in.Source) == "no-reply@example.com"
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil)
	snsAPI.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+14155550100"
	})).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil)

	out, err := newTestService(t, sesAPI, snsAPI, nil).Execute(context.Background(), statusChanged())

	require.NoError(t, err)
	assert.True(t, out.EmailSent)
	assert.True(t, out.SMSSent)
	assert.Equal(t, "ses-1", out.MessageID)
	sesAPI.AssertExpectations(t)
	snsAPI.AssertExpectations(t)
}

func TestService_Execute_LooksUpMissingContact(t *testing.T) {
	sesAPI := &mockSES{}
	sesAPI.On("SendEmail", mock.Anything, mock.Anything).Return(&ses.SendEmailOutput{MessageId: aws.String("ses-2")}, nil)
	contacts := &stubContacts{email: "stored@example.com"}

	input := statusChanged()
	input.Email, input.PhoneNumber = "", ""
	out, err := newTestService(t, sesAPI, nil, contacts).Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 1, contacts.calls)
	assert.True(t, out.EmailSent)
	assert.False(t, out.SMSSent)
}

func TestService_Execute_NoChannelsEnabled(t *testing.T) {
	out, err := newTestService(t, nil, nil, nil).Execute(context.Background(), statusChanged())

	require.NoError(t, err)
	assert.False(t, out.EmailSent)
	assert.False(t, out.SMSSent)
}

// ==========================
// Error Handling Tests
// ==========================

func TestService_Execute_PartialFailureSucceeds(t *testing.T) {
	sesAPI, snsAPI := &mockSES{}, &mockSNS{}
	sesAPI.On("SendEmail", mock.Anything, mock.Anything).Return(nil, stderrors.New("throttled"))
	snsAPI.On("Publish", mock.Anything, mock.Anything).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil)

	out, err := newTestService(t, sesAPI, snsAPI, nil).Execute(context.Background(), statusChanged())

	require.NoError(t, err)
	assert.False(t, out.EmailSent)
	assert.Equal(t, "sns-1", out.MessageID)
}

func TestService_Execute_AllChannelsFail(t *testing.T) {
	sesAPI := &mockSES{}
	sesAPI.On("SendEmail", mock.Anything, mock.Anything).Return(nil, stderrors.New("throttled"))

	_, err := newTestService(t, sesAPI, nil, nil).Execute(context.Background(), statusChanged())

	assert.True(t, errors.HasCode(err, errors.ErrCodeNotificationSendFailed))
	assert.True(t, errors.IsRetryable(err))
}

func TestService_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"missing applicant", &Input{Kind: models.NotifyStatusChanged}},
		{"unknown kind", &Input{Kind: "weekly_digest", ApplicantID: "app-1"}},
		{"bad email", &Input{Kind: models.NotifyAdminApproved, ApplicantID: "app-1", Email: "not-an-email"}},
		{"bad phone", &Input{Kind: models.NotifyAdminApproved, ApplicantID: "app-1", PhoneNumber: "0155"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(t, nil, nil, nil).Execute(context.Background(), tt.input)
			assert.True(t, errors.HasCode(err, errors.ErrCodePayloadInvalid))
		})
	}
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_HandleTask(t *testing.T) {
	sesAPI := &mockSES{}
	sesAPI.On("SendEmail", mock.Anything, mock.Anything).Return(&ses.SendEmailOutput{MessageId: aws.String("ses-3")}, nil)
	h := NewHandler(&Config{Timeout: 5 * time.Second}, newTestService(t, sesAPI, nil, nil), logger.NewTestLogger(t))

	n := *statusChanged()
	n.PhoneNumber = ""
	out, err := h.HandleTask(context.Background(), dispatch.NotificationTask(n))

	require.NoError(t, err)
	assert.True(t, out.(*Output).EmailSent)
}
