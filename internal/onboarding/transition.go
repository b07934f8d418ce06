package onboarding

import (
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/models"
)

// Event is a requested status change.
type Event struct {
	Target      models.ApprovalStatus
	ActingAdmin string
	Now         time.Time
}

// Input is everything a decision reads. It is loaded inside the applicant
// lock.
type Input struct {
	Facts    *models.ProfileFacts
	Approval *models.AdminApproval
	Policy   JurisdictionPolicy
	Settings Settings
}

// Decision is the outcome of a guarded transition. Nothing in it has been
// applied yet.
type Decision struct {
	// NewStatus is empty when the status is not written.
	NewStatus models.ApprovalStatus
	// AdminReview is empty when the review status is not written.
	AdminReview models.AdminReviewStatus
	// Approval is non-nil when the dual-control record changed.
	Approval            *models.AdminApproval
	SyncShippingAddress bool
	Effects             []Effect
}

type EffectKind string

const (
	EffectNotifyStatusChange   EffectKind = "notify_status_change"
	EffectNotifyAdminApproved  EffectKind = "notify_admin_approved"
	EffectExtendPaidUpto       EffectKind = "extend_paid_upto"
	EffectRecordStep           EffectKind = "record_step"
	EffectCreateRemoteIdentity EffectKind = "create_remote_identity"
	EffectRefreshSteps         EffectKind = "refresh_steps"
)

// Effect is a side effect applied after the transaction commits.
type Effect struct {
	Kind           EffectKind
	Previous       models.ApprovalStatus
	Next           models.ApprovalStatus
	Step           models.OnboardingStep
	SubscriptionID string
}

type decider func(current models.ApprovalStatus, ev Event, in Input) (Decision, error)

// handlerFor maps a target to its decision function. The second result is
// false only for values outside the status enum; statuses that ChangeState
// never writes are listed explicitly with a nil decider.
func handlerFor(target models.ApprovalStatus) (decider, bool) {
	switch target {
	case models.StatusAwaitingProfileCompletion:
		return decideAwaitingProfileCompletion, true
	case models.StatusAwaitingAdminApproval:
		return decideAwaitingAdminApproval, true
	case models.StatusProfileCompleted:
		return decideProfileCompleted, true
	case models.StatusProfileInfoSaved:
		return decideProfileInfoSaved, true
	case models.StatusManualKycAccepted, models.StatusManualKycRejected:
		return decideManualKyc, true
	case models.StatusAwaitingSignupCompletion,
		models.StatusProfileCreatedExternal,
		models.StatusVerificationInProgress,
		models.StatusKycUnverified,
		models.StatusKycPending,
		models.StatusKycProvisional,
		models.StatusKycAccepted,
		models.StatusKycReview,
		models.StatusKycRejected,
		models.StatusManualKycInReview,
		models.StatusKycAcceptedReduced,
		models.StatusKycRejectedReduced:
		// Written by identity sync, never requested directly.
		return nil, true
	default:
		return nil, false
	}
}

// Decide evaluates a transition from current. It has no side effects.
func Decide(current models.ApprovalStatus, ev Event, in Input) (Decision, error) {
	decide, _ := handlerFor(ev.Target)
	if decide == nil {
		return Decision{}, errors.NewInvalidTransitionError(string(ev.Target), string(current), nil)
	}

	d, err := decide(current, ev, in)
	if err != nil {
		return Decision{}, err
	}
	if d.NewStatus != "" {
		d.Effects = append(d.Effects, Effect{Kind: EffectRefreshSteps})
	}
	return d, nil
}

func requirePredecessor(current models.ApprovalStatus, target models.ApprovalStatus, allowed ...models.ApprovalStatus) error {
	for _, a := range allowed {
		if current == a {
			return nil
		}
	}
	expected := make([]string, len(allowed))
	for i, a := range allowed {
		expected[i] = string(a)
	}
	return errors.NewInvalidTransitionError(string(target), string(current), expected)
}

func notifyStatus(previous, next models.ApprovalStatus) Effect {
	return Effect{Kind: EffectNotifyStatusChange, Previous: previous, Next: next}
}

func decideAwaitingProfileCompletion(current models.ApprovalStatus, ev Event, _ Input) (Decision, error) {
	if err := requirePredecessor(current, ev.Target, models.StatusAwaitingSignupCompletion); err != nil {
		return Decision{}, err
	}
	return Decision{NewStatus: ev.Target}, nil
}

func decideAwaitingAdminApproval(current models.ApprovalStatus, ev Event, in Input) (Decision, error) {
	if err := requirePredecessor(current, ev.Target, models.StatusAwaitingProfileCompletion); err != nil {
		return Decision{}, err
	}

	facts := shippingFromLegal(in.Facts)
	if missing := MissingOnboardingData(facts); len(missing) > 0 {
		return Decision{}, errors.NewValidationError("Onboarding data is incomplete", missing...)
	}

	d := Decision{SyncShippingAddress: true}
	if in.Policy.RequiresAdminApproval(in.Settings) {
		d.NewStatus = models.StatusAwaitingAdminApproval
		d.AdminReview = models.AdminReviewInReview
	} else {
		d.NewStatus = models.StatusProfileCompleted
		d.AdminReview = models.AdminReviewAutoApproved
	}
	d.Effects = append(d.Effects, notifyStatus(current, d.NewStatus))
	return d, nil
}

func decideProfileCompleted(current models.ApprovalStatus, ev Event, in Input) (Decision, error) {
	if err := requirePredecessor(current, ev.Target, models.StatusAwaitingAdminApproval); err != nil {
		return Decision{}, err
	}
	if ev.ActingAdmin == "" {
		return Decision{}, errors.NewValidationError("An acting admin is required", "admin")
	}

	approval := models.AdminApproval{ApplicantID: in.Facts.Applicant.ID}
	if in.Approval != nil {
		approval = *in.Approval
	}
	now := ev.Now

	complete := false
	switch {
	case approval.ApprovedBy == "":
		approval.ApprovedBy = ev.ActingAdmin
		approval.ApprovedAt = &now
		complete = in.Settings.SingleAdminStep
	case approval.ApprovedBy == ev.ActingAdmin:
		return Decision{}, errors.NewValidationError("Same admin can't verify", "admin")
	default:
		approval.VerifiedBy = ev.ActingAdmin
		approval.VerifiedAt = &now
		complete = true
	}

	d := Decision{Approval: &approval}
	if !complete {
		return d, nil
	}

	d.NewStatus = models.StatusProfileCompleted
	d.Effects = append(d.Effects,
		notifyStatus(current, d.NewStatus),
		Effect{Kind: EffectNotifyAdminApproved},
	)
	if sub := in.Facts.ActiveSubscription; sub != nil {
		d.Effects = append(d.Effects, Effect{Kind: EffectExtendPaidUpto, SubscriptionID: sub.ID})
	}
	return d, nil
}

func decideProfileInfoSaved(current models.ApprovalStatus, ev Event, in Input) (Decision, error) {
	if err := requirePredecessor(current, ev.Target, models.StatusProfileCompleted); err != nil {
		return Decision{}, err
	}

	missing := MissingOnboardingData(in.Facts)
	if in.Facts.ActiveSubscription == nil {
		missing = append(missing, "subscription")
	}
	if in.Facts.Applicant.ProfileType != models.ProfileBusiness && !in.Facts.IdentityVerification.IsComplete() {
		missing = append(missing, "identity verification")
	}
	if len(missing) > 0 {
		return Decision{}, errors.NewValidationError("Profile cannot be submitted", missing...)
	}

	if in.Policy.ReducedScopeEligible(in.Facts.ActiveSubscription) {
		next := models.StatusKycAcceptedReduced
		return Decision{
			NewStatus: next,
			Effects: []Effect{
				notifyStatus(current, next),
				{Kind: EffectRecordStep, Step: models.StepKycAcceptanceReduced},
			},
		}, nil
	}

	return Decision{Effects: []Effect{{Kind: EffectCreateRemoteIdentity}}}, nil
}

func decideManualKyc(current models.ApprovalStatus, ev Event, in Input) (Decision, error) {
	if !in.Policy.SupportsManualReview() {
		return Decision{}, errors.NewValidationError("Manual review is not available in this country", "country")
	}
	if err := requirePredecessor(current, ev.Target, models.StatusManualKycInReview, models.StatusManualKycRejected); err != nil {
		return Decision{}, err
	}
	return Decision{
		NewStatus: ev.Target,
		Effects:   []Effect{notifyStatus(current, ev.Target)},
	}, nil
}
