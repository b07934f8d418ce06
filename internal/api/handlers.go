package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"onboarding-workers/internal/audit"
	"onboarding-workers/internal/common/docverify"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/models"

	"github.com/go-chi/chi/v5"
)

const (
	SignatureHeader = "X-Signature"
	maxWebhookBody  = 1 << 20
	maxFormBody     = 4 << 10
)

// VerifierEvent is the body of a verifier callback.
type VerifierEvent struct {
	InquiryID string `json:"inquiryId"`
	Status    string `json:"status"`
}

func (s *Server) handleVerifierWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, errors.NewPayloadInvalidError("verifier-webhook", []string{err.Error()}))
		return
	}
	if !docverify.VerifySignature(s.deps.WebhookSecret, body, r.Header.Get(SignatureHeader)) {
		s.logger.Warn("verifier callback rejected", map[string]interface{}{"reason": "signature"})
		writeError(w, errors.NewAuthenticationError("invalid webhook signature"))
		return
	}

	var ev VerifierEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, errors.NewPayloadInvalidError("verifier-webhook", []string{err.Error()}))
		return
	}
	if ev.InquiryID == "" || ev.Status == "" {
		writeError(w, errors.NewPayloadInvalidError("verifier-webhook", []string{"inquiryId and status are required"}))
		return
	}

	status := models.IdentityVerificationStatus(strings.ToLower(ev.Status))
	if err := s.deps.Verifier.HandleVerifierResult(r.Context(), ev.InquiryID, status); err != nil {
		s.logger.Error("verifier callback failed", map[string]interface{}{
			"inquiryId": ev.InquiryID,
			"status":    ev.Status,
			"error":     err.Error(),
		})
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type flowResponse struct {
	ApplicantID    string             `json:"applicantId"`
	ApprovalStatus string             `json:"approvalStatus"`
	StatusLabel    string             `json:"statusLabel"`
	LastStep       string             `json:"lastFinishedStep,omitempty"`
	Steps          []models.FlowEntry `json:"steps"`
}

func (s *Server) handleOnboardingFlow(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "applicantID")

	app, err := s.deps.Applicants.Get(r.Context(), applicantID)
	if err != nil {
		writeError(w, err)
		return
	}
	steps, last, err := s.deps.Flow.OnboardingFlow(r.Context(), applicantID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flowResponse{
		ApplicantID:    applicantID,
		ApprovalStatus: string(app.ApprovalStatus),
		StatusLabel:    app.ApprovalStatus.Label(),
		LastStep:       string(last),
		Steps:          steps,
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "applicantID")
	size := 50
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, errors.NewPayloadInvalidError("audit", []string{"size must be between 1 and 500"}))
			return
		}
		size = n
	}

	events, err := s.deps.History.History(r.Context(), applicantID, size)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

type taxIDRequest struct {
	TaxID string `json:"taxId"`
}

func (s *Server) handleTaxID(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "applicantID")

	var req taxIDRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFormBody)).Decode(&req); err != nil {
		writeError(w, errors.NewPayloadInvalidError("tax-id", []string{err.Error()}))
		return
	}
	if strings.TrimSpace(req.TaxID) == "" {
		writeError(w, errors.NewPayloadInvalidError("tax-id", []string{"taxId is required"}))
		return
	}

	if err := s.deps.TaxIDs.SubmitTaxID(r.Context(), applicantID, req.TaxID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
