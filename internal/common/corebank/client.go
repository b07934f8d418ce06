// Package corebank is the client for the remote KYC and banking-core system
// of record. Every mutating call carries an Idempotency-Key header.
package corebank

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	commonhttp "onboarding-workers/internal/common/http"
	"onboarding-workers/internal/models"
)

// API is the remote surface identity sync depends on.
type API interface {
	CreateIdentity(ctx context.Context, req CreateIdentityRequest, key string) (*Identity, error)
	GetIdentity(ctx context.Context, identityID string) (*Identity, error)
	UpdateIdentityStatus(ctx context.Context, identityID, status, key string) (*Identity, error)
	SubmitKycWithoutDocument(ctx context.Context, identityID, key string) (*KycResult, error)
	AcknowledgeDisclosure(ctx context.Context, req DisclosureAck, key string) ([]byte, error)
	UploadDocument(ctx context.Context, req DocumentUpload, key string) (*UploadedDocument, error)
}

type Address struct {
	Line1      string `json:"address_line_1"`
	Line2      string `json:"address_line_2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country_code"`
}

type CreateIdentityRequest struct {
	FirstName            string   `json:"first_name"`
	LastName             string   `json:"last_name"`
	DateOfBirth          string   `json:"dob,omitempty"`
	Email                string   `json:"email"`
	PhoneNumber          string   `json:"phone_number,omitempty"`
	LegalAddress         *Address `json:"legal_address,omitempty"`
	IdentificationType   string   `json:"identification_type,omitempty"`
	IdentificationNumber string   `json:"identification_number,omitempty"`
	IsCustomer           bool     `json:"is_customer"`
	Status               string   `json:"status"`
}

type Identity struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	VerificationStatus string `json:"verification_status,omitempty"`
}

type KycResult struct {
	ID                 string `json:"id,omitempty"`
	VerificationStatus string `json:"verification_status,omitempty"`
}

type DisclosureAck struct {
	IdentityID     string `json:"person_id"`
	Type           string `json:"type"`
	Version        string `json:"version"`
	DisclosureDate string `json:"disclosure_date"`
	EventType      string `json:"event_type"`
}

type DocumentUpload struct {
	IdentityID string `json:"person_id"`
	Type       string `json:"type"`
	URL        string `json:"file_url"`
	Name       string `json:"name,omitempty"`
}

type UploadedDocument struct {
	ID string `json:"id"`
}

type Client struct {
	http *commonhttp.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http: commonhttp.NewClient(baseURL, timeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
}

func (c *Client) CreateIdentity(ctx context.Context, req CreateIdentityRequest, key string) (*Identity, error) {
	if req.Status == "" {
		req.Status = "ACTIVE"
	}
	req.IsCustomer = true

	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation:      string(models.OpCreateIdentity),
		Method:         http.MethodPost,
		Path:           "/persons",
		Body:           req,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	var out Identity
	if err := resp.Decode(&out); err != nil {
		return nil, decodeError(models.OpCreateIdentity, resp, err)
	}
	if out.ID == "" {
		return nil, decodeError(models.OpCreateIdentity, resp, fmt.Errorf("response has no id"))
	}
	return &out, nil
}

func (c *Client) GetIdentity(ctx context.Context, identityID string) (*Identity, error) {
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation: string(models.OpGetIdentity),
		Method:    http.MethodGet,
		Path:      "/persons/" + url.PathEscape(identityID),
	})
	if err != nil {
		return nil, err
	}
	var out Identity
	if err := resp.Decode(&out); err != nil {
		return nil, decodeError(models.OpGetIdentity, resp, err)
	}
	return &out, nil
}

func (c *Client) UpdateIdentityStatus(ctx context.Context, identityID, status, key string) (*Identity, error) {
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation:      string(models.OpUpdateIdentityStatus),
		Method:         http.MethodPatch,
		Path:           "/persons/" + url.PathEscape(identityID),
		Body:           map[string]string{"status": status},
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	var out Identity
	if err := resp.Decode(&out); err != nil {
		return nil, decodeError(models.OpUpdateIdentityStatus, resp, err)
	}
	return &out, nil
}

// SubmitKycWithoutDocument asks the remote engine to verify the identity from
// the data it already holds. The result may omit verification_status.
func (c *Client) SubmitKycWithoutDocument(ctx context.Context, identityID, key string) (*KycResult, error) {
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation: string(models.OpSubmitKyc),
		Method:    http.MethodPost,
		Path:      "/verifications/verify",
		Body: map[string]interface{}{
			"customer_id":       identityID,
			"customer_consent":  true,
			"verification_type": []string{"IDENTITY"},
		},
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	var out KycResult
	if err := resp.Decode(&out); err != nil {
		return nil, decodeError(models.OpSubmitKyc, resp, err)
	}
	return &out, nil
}

// AcknowledgeDisclosure returns the raw response, which is stored with the
// local acknowledgement.
func (c *Client) AcknowledgeDisclosure(ctx context.Context, req DisclosureAck, key string) ([]byte, error) {
	if req.EventType == "" {
		req.EventType = "ACKNOWLEDGED"
	}
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation:      string(models.OpAcknowledgeDisclosure),
		Method:         http.MethodPost,
		Path:           "/disclosures",
		Body:           req,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) UploadDocument(ctx context.Context, req DocumentUpload, key string) (*UploadedDocument, error) {
	resp, err := c.http.Do(ctx, commonhttp.Request{
		Operation:      string(models.OpUploadDocument),
		Method:         http.MethodPost,
		Path:           "/documents",
		Body:           req,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	var out UploadedDocument
	if err := resp.Decode(&out); err != nil {
		return nil, decodeError(models.OpUploadDocument, resp, err)
	}
	return &out, nil
}
