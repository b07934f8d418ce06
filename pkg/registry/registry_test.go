package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalog_IsConsistent(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, c.Check())
	assert.Contains(t, c.Names(), "create-remote-identity")
	assert.Contains(t, c.Names(), "submit-kyc")
}

func TestValidatePayload(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	t.Run("valid payload", func(t *testing.T) {
		res, err := c.ValidatePayload("submit-kyc", []byte(`{"applicantId":"a-1","rerun":true}`))
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})

	t.Run("missing required field", func(t *testing.T) {
		res, err := c.ValidatePayload("extend-paid-upto", []byte(`{"applicantId":"a-1"}`))
		require.NoError(t, err)
		assert.False(t, res.Valid)
		require.NotEmpty(t, res.Messages())
	})

	t.Run("wrong type", func(t *testing.T) {
		res, err := c.ValidatePayload("submit-kyc", []byte(`{"applicantId":"a-1","rerun":"yes"}`))
		require.NoError(t, err)
		assert.False(t, res.Valid)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := c.ValidatePayload("nope", []byte(`{}`))
		assert.Error(t, err)
	})
}

func TestCheck_ReportsProblems(t *testing.T) {
	c := &TaskCatalog{Tasks: []Task{
		{Name: "a", EntityType: "USER", Timeout: "10s"},
		{Name: "a", EntityType: "USER"},
		{Name: "b", Timeout: "soon", Retries: -1},
	}}

	problems := c.Check()
	assert.Contains(t, problems, "a: duplicate name")
	assert.Contains(t, problems, "b: entityType is required")
	assert.Contains(t, problems, "b: retries must be >= 0")
	assert.Contains(t, problems, `b: invalid timeout "soon"`)
}

func TestTimeoutOf(t *testing.T) {
	task := &Task{Timeout: "45s"}
	assert.Equal(t, 45*time.Second, task.TimeoutOf(time.Second))

	task = &Task{}
	assert.Equal(t, time.Second, task.TimeoutOf(time.Second))
}
