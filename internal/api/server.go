// Package api serves the process's HTTP surface: health and metrics, the
// document verifier callback, and read-only onboarding views.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"onboarding-workers/internal/audit"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// VerifierResults receives verifier callbacks.
type VerifierResults interface {
	HandleVerifierResult(ctx context.Context, inquiryID string, status models.IdentityVerificationStatus) error
}

// FlowReader lists an applicant's onboarding checklist.
type FlowReader interface {
	OnboardingFlow(ctx context.Context, applicantID string) ([]models.FlowEntry, models.OnboardingStep, error)
}

// ApplicantReader loads the applicant row.
type ApplicantReader interface {
	Get(ctx context.Context, applicantID string) (*models.Applicant, error)
}

// HistoryReader returns recent audit events for an applicant.
type HistoryReader interface {
	History(ctx context.Context, applicantID string, size int) ([]audit.Event, error)
}

// TaxIDSubmitter takes an applicant's tax ID.
type TaxIDSubmitter interface {
	SubmitTaxID(ctx context.Context, applicantID, taxID string) error
}

// Check is one readiness check.
type Check func(ctx context.Context) error

type Deps struct {
	Verifier      VerifierResults
	Flow          FlowReader
	Applicants    ApplicantReader
	History       HistoryReader
	TaxIDs        TaxIDSubmitter
	WebhookSecret string
	Checks        map[string]Check
}

type Server struct {
	deps   Deps
	logger logger.Logger
}

func NewServer(deps Deps, log logger.Logger) *Server {
	return &Server{deps: deps, logger: log.WithFields(map[string]interface{}{"component": "api"})}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhooks/verifier", s.handleVerifierWebhook)

	r.Route("/applicants/{applicantID}", func(r chi.Router) {
		r.Get("/onboarding-flow", s.handleOnboardingFlow)
		if s.deps.History != nil {
			r.Get("/audit", s.handleAudit)
		}
		if s.deps.TaxIDs != nil {
			r.Post("/tax-id", s.handleTaxID)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]string, len(s.deps.Checks))
	status := http.StatusOK
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, results)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a StandardError code onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	status := http.StatusInternalServerError
	switch stdErr.Code {
	case errors.ErrCodeApplicantNotFound, "RESOURCE_NOT_FOUND":
		status = http.StatusNotFound
	case errors.ErrCodePayloadInvalid, errors.ErrCodeValidationFailed, errors.ErrCodeUnknownRemoteStatus:
		status = http.StatusBadRequest
	case errors.ErrCodeInvalidTransition, errors.ErrCodeConcurrencyConflict:
		status = http.StatusConflict
	case "AUTHENTICATION_ERROR":
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]interface{}{
		"code":    stdErr.Code,
		"message": stdErr.Message,
	})
}
