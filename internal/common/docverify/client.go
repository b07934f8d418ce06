// Package docverify talks to the third-party document verification service.
// Inquiries are created by the run-document-inquiry task; results come back
// either by polling GetInquiry or through the signed webhook.
package docverify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "onboarding-workers/internal/common/http"
	"onboarding-workers/internal/models"
)

const opGetInquiry = "getInquiry"

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Verifier-Signature"

type API interface {
	CreateInquiry(ctx context.Context, applicantID, referenceID, key string) (*Inquiry, error)
	GetInquiry(ctx context.Context, inquiryID string) (*Inquiry, error)
}

// Inquiry is one verification session at the verifier.
type Inquiry struct {
	ID          string                            `json:"id"`
	ReferenceID string                            `json:"reference_id,omitempty"`
	Status      models.IdentityVerificationStatus `json:"status"`
	Documents   []InquiryDocument                 `json:"documents,omitempty"`
}

type InquiryDocument struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type Client struct {
	http       *commonhttp.Client
	templateID string
}

func NewClient(baseURL, apiKey, templateID string, timeout time.Duration) *Client {
	return &Client{
		http: commonhttp.NewClient(baseURL, timeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
		templateID: templateID,
	}
}

func (c *Client) CreateInquiry(ctx context.Context, applicantID, referenceID, key string) (*Inquiry, error) {
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation: string(models.OpRunDocumentInquiry),
		Method:    http.MethodPost,
		Path:      "/inquiries",
		Body: map[string]string{
			"template_id":  c.templateID,
			"reference_id": referenceID,
			"account_id":   applicantID,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	var out Inquiry
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInquiry(ctx context.Context, inquiryID string) (*Inquiry, error) {
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation: opGetInquiry,
		Method:    http.MethodGet,
		Path:      "/inquiries/" + url.PathEscape(inquiryID),
	})
	if err != nil {
		return nil, err
	}
	var out Inquiry
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body. An empty secret
// never verifies.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(Sign(secret, body))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// RemoteStatus normalizes a verifier status to the banking-core KYC
// vocabulary. ok is false while the inquiry is still open.
func RemoteStatus(s models.IdentityVerificationStatus) (string, bool) {
	switch s {
	case models.IDVApproved, models.IDVCompleted:
		return "ACCEPTED", true
	case models.IDVDeclined:
		return "REJECTED", true
	case models.IDVFailed:
		return "UNVERIFIED", true
	default:
		return "", false
	}
}
