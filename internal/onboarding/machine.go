package onboarding

import (
	"context"
	"encoding/json"
	"time"

	"onboarding-workers/internal/audit"
	"onboarding-workers/internal/common/auth"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/common/metrics"
	"onboarding-workers/internal/common/observability"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/notify"
	"onboarding-workers/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Locker serializes all writes for one applicant.
type Locker interface {
	WithApplicantLock(ctx context.Context, applicantID string, fn func(repository.LockedApplicant) error) error
}

// Result reports what ChangeState did.
type Result struct {
	ApplicantID string                `json:"applicantId"`
	Previous    models.ApprovalStatus `json:"previousStatus"`
	Current     models.ApprovalStatus `json:"approvalStatus"`
	Changed     bool                  `json:"changed"`
}

// Machine owns every status transition requested from outside identity sync.
type Machine struct {
	locker     Locker
	settings   SettingsSource
	dispatcher dispatch.Dispatcher
	notifier   notify.Notifier
	steps      *StepRecorder
	directory  auth.AdminDirectory
	audit      audit.Recorder
	now        func() time.Time
	logger     logger.Logger
}

type MachineDeps struct {
	Locker     Locker
	Settings   SettingsSource
	Dispatcher dispatch.Dispatcher
	Notifier   notify.Notifier
	Steps      *StepRecorder
	// Directory is optional; without it any non-empty admin id is accepted.
	Directory auth.AdminDirectory
	// Audit is optional.
	Audit audit.Recorder
	Now   func() time.Time
}

func NewMachine(deps MachineDeps, log logger.Logger) *Machine {
	m := &Machine{
		locker:     deps.Locker,
		settings:   deps.Settings,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		steps:      deps.Steps,
		directory:  deps.Directory,
		audit:      deps.Audit,
		now:        deps.Now,
		logger:     log.WithFields(map[string]interface{}{"component": "onboarding-machine"}),
	}
	if m.notifier == nil {
		m.notifier = notify.Discard{}
	}
	if m.directory == nil {
		m.directory = auth.AllowAll{}
	}
	if m.audit == nil {
		m.audit = audit.Nop{}
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// ChangeState moves the applicant towards target. Requesting the current
// status is a no-op. The guard and every write run in one transaction under
// the applicant row lock; notifications and dispatches happen after commit.
func (m *Machine) ChangeState(ctx context.Context, applicantID string, target models.ApprovalStatus, actingAdmin string) (*Result, error) {
	ctx, span := observability.Tracer("onboarding").Start(ctx, "onboarding.ChangeState")
	defer span.End()
	span.SetAttributes(
		attribute.String("applicant.id", applicantID),
		attribute.String("onboarding.target", string(target)),
	)

	res, err := m.changeState(ctx, applicantID, target, actingAdmin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.HasCode(err, errors.ErrCodeInvalidTransition) || errors.HasCode(err, errors.ErrCodeValidationFailed) {
			metrics.OnboardingGuardFailures.WithLabelValues(string(errors.CodeOf(err))).Inc()
		}
		return nil, err
	}
	span.SetAttributes(attribute.Bool("onboarding.changed", res.Changed))
	return res, nil
}

func (m *Machine) changeState(ctx context.Context, applicantID string, target models.ApprovalStatus, actingAdmin string) (*Result, error) {
	if !target.Valid() {
		return nil, errors.NewInvalidTransitionError(string(target), "", nil)
	}
	if target == models.StatusProfileCompleted && actingAdmin != "" {
		if err := m.directory.VerifyAdmin(ctx, actingAdmin); err != nil {
			return nil, err
		}
	}

	settings := m.settings.Snapshot(ctx)
	ev := Event{Target: target, ActingAdmin: actingAdmin, Now: m.now()}

	var (
		res      = &Result{ApplicantID: applicantID}
		decision Decision
		current  models.Applicant
	)
	err := m.locker.WithApplicantLock(ctx, applicantID, func(l repository.LockedApplicant) error {
		app := l.Applicant()
		res.Previous = app.ApprovalStatus
		if app.ApprovalStatus == target {
			current = app
			return nil
		}

		in := Input{
			Facts:    &models.ProfileFacts{Applicant: app},
			Policy:   PolicyFor(app.Country),
			Settings: settings,
		}
		if needsFacts(target) {
			facts, err := l.Facts(ctx)
			if err != nil {
				return err
			}
			in.Facts = facts
		}
		if target == models.StatusProfileCompleted {
			approval, err := l.AdminApproval(ctx)
			if err != nil {
				return err
			}
			in.Approval = approval
		}

		d, err := Decide(app.ApprovalStatus, ev, in)
		if err != nil {
			return err
		}
		if err := apply(ctx, l, d); err != nil {
			return err
		}
		decision = d
		current = l.Applicant()
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Current = current.ApprovalStatus
	res.Changed = decision.NewStatus != ""
	if res.Changed {
		m.recordTransition(ctx, res, actingAdmin)
	} else if decision.Approval != nil {
		m.logger.Info("admin approval recorded, awaiting second admin", map[string]interface{}{
			"applicantId": applicantID,
			"approvedBy":  decision.Approval.ApprovedBy,
		})
	}

	output, err := m.applyEffects(ctx, current, decision.Effects)
	if err != nil {
		return nil, err
	}
	if output != nil && output.ApprovalStatus != "" {
		res.Current = output.ApprovalStatus
		res.Changed = res.Current != res.Previous
	}
	return res, nil
}

// needsFacts reports whether the decision for target reads the profile.
func needsFacts(target models.ApprovalStatus) bool {
	switch target {
	case models.StatusAwaitingAdminApproval, models.StatusProfileCompleted, models.StatusProfileInfoSaved:
		return true
	}
	return false
}

func apply(ctx context.Context, l repository.LockedApplicant, d Decision) error {
	if d.SyncShippingAddress {
		if err := l.SyncShippingAddress(ctx); err != nil {
			return err
		}
	}
	if d.Approval != nil {
		if err := l.SaveAdminApproval(ctx, d.Approval); err != nil {
			return err
		}
	}
	if d.NewStatus != "" {
		if err := l.UpdateStatus(ctx, d.NewStatus, d.AdminReview); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) recordTransition(ctx context.Context, res *Result, actingAdmin string) {
	metrics.OnboardingTransitions.WithLabelValues(string(res.Previous), string(res.Current)).Inc()
	m.logger.Info("onboarding status changed", map[string]interface{}{
		"applicantId": res.ApplicantID,
		"from":        string(res.Previous),
		"to":          string(res.Current),
	})
	_ = m.audit.Record(ctx, audit.Event{
		Kind:        audit.KindTransition,
		ApplicantID: res.ApplicantID,
		From:        string(res.Previous),
		To:          string(res.Current),
		ActingAdmin: actingAdmin,
		OccurredAt:  m.now(),
	})
}

// identityOutput is the part of the create-remote-identity output the
// machine reads back.
type identityOutput struct {
	ApprovalStatus models.ApprovalStatus `json:"approvalStatus"`
}

// applyEffects runs post-commit effects in order. Only remote identity
// creation can fail the call; everything else is logged.
func (m *Machine) applyEffects(ctx context.Context, applicant models.Applicant, effects []Effect) (*identityOutput, error) {
	var out *identityOutput
	for _, e := range effects {
		switch e.Kind {
		case EffectNotifyStatusChange:
			m.notifier.StatusChanged(ctx, applicant, e.Previous, e.Next)
		case EffectNotifyAdminApproved:
			m.notifier.AdminApproved(ctx, applicant)
		case EffectExtendPaidUpto:
			m.dispatchAsync(ctx, dispatch.ExtendPaidUptoTask(applicant.ID, e.SubscriptionID, true))
		case EffectRefreshSteps:
			m.dispatchAsync(ctx, dispatch.RecordStepsTask(applicant.ID, applicant.ApprovalStatus))
		case EffectRecordStep:
			if m.steps == nil {
				continue
			}
			if _, _, err := m.steps.AddStep(ctx, applicant.ID, e.Step, false); err != nil {
				m.logger.Warn("step not recorded", map[string]interface{}{
					"applicantId": applicant.ID,
					"step":        string(e.Step),
					"error":       err.Error(),
				})
			}
		case EffectCreateRemoteIdentity:
			res, err := m.dispatcher.Dispatch(ctx, dispatch.CreateRemoteIdentityTask(applicant.ID), true)
			if err != nil {
				return nil, err
			}
			if res != nil && len(res.Output) > 0 {
				var o identityOutput
				if err := json.Unmarshal(res.Output, &o); err == nil {
					out = &o
				}
			}
		}
	}
	return out, nil
}

func (m *Machine) dispatchAsync(ctx context.Context, task dispatch.Task) {
	if _, err := m.dispatcher.Dispatch(ctx, task, false); err != nil {
		m.logger.Warn("follow-up task not dispatched", map[string]interface{}{
			"handler":        task.HandlerName,
			"idempotencyKey": task.IdempotencyKey,
			"error":          err.Error(),
		})
	}
}
