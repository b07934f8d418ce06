package docverify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInquiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/inquiries", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tmpl", body["template_id"])
		assert.Equal(t, "app-1", body["account_id"])

		_ = json.NewEncoder(w).Encode(Inquiry{ID: "inq_1", Status: models.IDVCreated})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "tmpl", time.Second)
	inq, err := c.CreateInquiry(context.Background(), "app-1", "ref-1", "idem-1")

	require.NoError(t, err)
	assert.Equal(t, "inq_1", inq.ID)
	assert.Equal(t, models.IDVCreated, inq.Status)
}

func TestGetInquiry_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "tmpl", time.Second)
	_, err := c.GetInquiry(context.Background(), "inq_1")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRemoteAPIError))
	assert.True(t, errors.IsRetryable(err))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"inquiryId":"inq_1","status":"approved"}`)
	sig := Sign("s3cret", body)

	assert.True(t, VerifySignature("s3cret", body, sig))
	assert.True(t, VerifySignature("s3cret", body, "sha256="+sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("s3cret", []byte(`{}`), sig))
	assert.False(t, VerifySignature("", body, sig))
	assert.False(t, VerifySignature("s3cret", body, "not-hex"))
}

func TestRemoteStatus(t *testing.T) {
	tests := []struct {
		in   models.IdentityVerificationStatus
		want string
		done bool
	}{
		{models.IDVApproved, "ACCEPTED", true},
		{models.IDVCompleted, "ACCEPTED", true},
		{models.IDVDeclined, "REJECTED", true},
		{models.IDVFailed, "UNVERIFIED", true},
		{models.IDVPending, "", false},
		{models.IDVCreated, "", false},
	}
	for _, tt := range tests {
		got, done := RemoteStatus(tt.in)
		assert.Equal(t, tt.want, got, string(tt.in))
		assert.Equal(t, tt.done, done, string(tt.in))
	}
}
