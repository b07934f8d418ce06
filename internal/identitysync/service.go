// Package identitysync mirrors applicants into the remote banking core and
// feeds remote KYC results back into the onboarding status. Every remote
// call carries a stable idempotency key and is recorded as a sync attempt.
package identitysync

import (
	"context"
	"strings"
	"time"

	"onboarding-workers/internal/audit"
	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/common/docverify"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/common/metrics"
	"onboarding-workers/internal/common/observability"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/notify"
	"onboarding-workers/internal/onboarding"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ApplicantStore interface {
	onboarding.Locker
	Get(ctx context.Context, applicantID string) (*models.Applicant, error)
	Facts(ctx context.Context, applicantID string) (*models.ProfileFacts, error)
	MarkTaxIDSubmitted(ctx context.Context, applicantID string) error
}

type ProfileStore interface {
	Identifications(ctx context.Context, applicantID string) ([]models.Identification, error)
	IdentityVerification(ctx context.Context, applicantID string) (*models.IdentityVerification, error)
	SaveInquiry(ctx context.Context, v *models.IdentityVerification) error
	UpdateVerificationStatus(ctx context.Context, inquiryID string, status models.IdentityVerificationStatus) (string, error)
	PendingDisclosures(ctx context.Context, applicantID string) ([]models.Disclosure, error)
	AcknowledgeDisclosure(ctx context.Context, ack models.DisclosureAcknowledgement) error
}

type AttemptStore interface {
	Begin(ctx context.Context, applicantID, key string, op models.SyncOperation, payload interface{}) (*models.SyncAttempt, error)
	Succeed(ctx context.Context, a *models.SyncAttempt) error
	Fail(ctx context.Context, a *models.SyncAttempt, cause error) error
}

// Deps wires the service. Cache, Verifier and Audit may be nil.
type Deps struct {
	Applicants ApplicantStore
	Profiles   ProfileStore
	Attempts   AttemptStore
	Bank       corebank.API
	Verifier   docverify.API
	Dispatcher dispatch.Dispatcher
	Notifier   notify.Notifier
	Cache      *redis.Client
	Audit      audit.Recorder
	// KeyNamespace seeds the deterministic idempotency keys.
	KeyNamespace string
	Now          func() time.Time
}

type Service struct {
	applicants ApplicantStore
	profiles   ProfileStore
	attempts   AttemptStore
	bank       corebank.API
	verifier   docverify.API
	dispatcher dispatch.Dispatcher
	notifier   notify.Notifier
	cache      *redis.Client
	audit      audit.Recorder
	namespace  uuid.UUID
	now        func() time.Time
	logger     logger.Logger
}

func NewService(deps Deps, log logger.Logger) *Service {
	ns, err := uuid.Parse(deps.KeyNamespace)
	if err != nil {
		ns = uuid.NewSHA1(uuid.NameSpaceURL, []byte("onboarding-workers/"+deps.KeyNamespace))
	}
	s := &Service{
		applicants: deps.Applicants,
		profiles:   deps.Profiles,
		attempts:   deps.Attempts,
		bank:       deps.Bank,
		verifier:   deps.Verifier,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		cache:      deps.Cache,
		audit:      deps.Audit,
		namespace:  ns,
		now:        deps.Now,
		logger:     log.WithFields(map[string]interface{}{"component": "identity-sync"}),
	}
	if s.notifier == nil {
		s.notifier = notify.Discard{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// key derives a stable idempotency key so redeliveries reach the remote side
// with the same key.
func (s *Service) key(parts ...string) string {
	return uuid.NewSHA1(s.namespace, []byte(strings.Join(parts, ":"))).String()
}

// call records one logical remote call around fn.
func (s *Service) call(ctx context.Context, applicantID string, op models.SyncOperation, key string, payload interface{}, fn func(ctx context.Context) error) error {
	ctx, span := observability.Tracer("identitysync").Start(ctx, "identitysync."+string(op))
	defer span.End()
	span.SetAttributes(
		attribute.String("applicant.id", applicantID),
		attribute.String("sync.idempotency_key", key),
	)

	attempt, err := s.attempts.Begin(ctx, applicantID, key, op, payload)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("sync.retry_count", attempt.RetryCount))

	callErr := fn(ctx)

	var finishErr error
	if callErr != nil {
		span.RecordError(callErr)
		span.SetStatus(codes.Error, callErr.Error())
		finishErr = s.attempts.Fail(ctx, attempt, callErr)
	} else {
		finishErr = s.attempts.Succeed(ctx, attempt)
	}
	if finishErr != nil {
		s.logger.Warn("sync attempt not finalized", map[string]interface{}{
			"applicantId": applicantID,
			"operation":   string(op),
			"error":       finishErr.Error(),
		})
	}

	outcome := audit.Outcome(callErr)
	metrics.ExternalSyncAttempts.WithLabelValues(string(op), outcome).Inc()

	ev := audit.Event{
		Kind:        audit.KindSyncAttempt,
		ApplicantID: applicantID,
		Operation:   string(op),
		Outcome:     outcome,
		OccurredAt:  s.now(),
	}
	if callErr != nil {
		ev.Error = callErr.Error()
	}
	_ = s.audit.Record(ctx, ev)

	return callErr
}

// transitioned runs the post-commit effects of a status write made by this
// package.
func (s *Service) transitioned(ctx context.Context, applicant models.Applicant, previous models.ApprovalStatus, notifyApplicant bool) {
	next := applicant.ApprovalStatus
	metrics.OnboardingTransitions.WithLabelValues(string(previous), string(next)).Inc()
	s.logger.Info("onboarding status changed", map[string]interface{}{
		"applicantId": applicant.ID,
		"from":        string(previous),
		"to":          string(next),
	})
	_ = s.audit.Record(ctx, audit.Event{
		Kind:        audit.KindTransition,
		ApplicantID: applicant.ID,
		From:        string(previous),
		To:          string(next),
		OccurredAt:  s.now(),
	})
	if notifyApplicant {
		s.notifier.StatusChanged(ctx, applicant, previous, next)
	}
	s.dispatchAsync(ctx, dispatch.RecordStepsTask(applicant.ID, next))
}

func (s *Service) dispatchAsync(ctx context.Context, task dispatch.Task) {
	if _, err := s.dispatcher.Dispatch(ctx, task, false); err != nil {
		s.logger.Warn("follow-up task not dispatched", map[string]interface{}{
			"handler":        task.HandlerName,
			"idempotencyKey": task.IdempotencyKey,
			"error":          err.Error(),
		})
	}
}
