// internal/workers/workers_test.go
package workers

import (
	"context"
	"testing"
	"time"

	"onboarding-workers/internal/common/camunda"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedTask struct {
	taskType string
	status   string
}

type captureRecorder struct {
	seen []recordedTask
}

func (c *captureRecorder) RecordTask(_ context.Context, taskType, status string, _ time.Duration) {
	c.seen = append(c.seen, recordedTask{taskType, status})
}

// ==========================
// Instrumentation Tests
// ==========================

func TestInstrument_RecordsOutcome(t *testing.T) {
	rec := &captureRecorder{}
	SetTaskRecorder(rec)
	defer SetTaskRecorder(nil)

	ok := Instrument("sync-kyc-status", func(context.Context, dispatch.Task) (interface{}, error) {
		return "done", nil
	})
	failing := Instrument("sync-kyc-status", func(context.Context, dispatch.Task) (interface{}, error) {
		return nil, errors.NewApplicantNotFoundError("app-1")
	})

	out, err := ok(context.Background(), dispatch.Task{})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	_, err = failing(context.Background(), dispatch.Task{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicantNotFound))

	assert.Equal(t, []recordedTask{
		{"sync-kyc-status", "completed"},
		{"sync-kyc-status", "failed"},
	}, rec.seen)
}

func TestJobFunc_BuildsTaskFromVariables(t *testing.T) {
	var got dispatch.Task
	fn := JobFunc(dispatch.HandlerCreateRemoteIdentity, func(_ context.Context, task dispatch.Task) (interface{}, error) {
		got = task
		return nil, nil
	})

	_, err := fn(context.Background(), []byte(`{"applicantId":"app-1","idempotencyKey":"create-remote-identity:app-1","entityType":"USER"}`))

	require.NoError(t, err)
	assert.Equal(t, "create-remote-identity:app-1", got.IdempotencyKey)
	assert.Equal(t, "app-1", got.CorrelationKey)

	_, err = fn(context.Background(), []byte(`nope`))
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadInvalid))
}

func TestFinalAttempt(t *testing.T) {
	assert.False(t, FinalAttempt(context.Background()))
	assert.False(t, FinalAttempt(camunda.WithJobRetries(context.Background(), 3)))
	assert.True(t, FinalAttempt(camunda.WithJobRetries(context.Background(), 1)))
	assert.True(t, FinalAttempt(camunda.WithJobRetries(context.Background(), 0)))
}
