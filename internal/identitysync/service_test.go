package identitysync

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/common/docverify"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var syncNow = time.Date(2024, 3, 5, 10, 30, 0, 123456000, time.UTC)

type fixture struct {
	store      *memStore
	bank       *fakeBank
	verifier   *fakeVerifier
	dispatcher *recordingDispatcher
	notifier   *recordingNotifier
	svc        *Service
}

func newFixture(t *testing.T, cache *redis.Client) *fixture {
	f := &fixture{
		store:      newMemStore(),
		bank:       &fakeBank{},
		verifier:   newFakeVerifier(),
		dispatcher: &recordingDispatcher{err: map[string]error{}},
		notifier:   &recordingNotifier{},
	}
	f.svc = NewService(Deps{
		Applicants:   f.store,
		Profiles:     f.store,
		Attempts:     f.store,
		Bank:         f.bank,
		Verifier:     f.verifier,
		Dispatcher:   f.dispatcher,
		Notifier:     f.notifier,
		Cache:        cache,
		KeyNamespace: "test",
		Now:          func() time.Time { return syncNow },
	}, logger.NewTestLogger(t))
	return f
}

func usApplicant(status models.ApprovalStatus) models.Applicant {
	return models.Applicant{
		ID:                 "app-us",
		Email:              "jane@example.com",
		Country:            "US",
		ProfileType:        models.ProfilePerson,
		ApprovalStatus:     status,
		ExternalIdentityID: "person-1",
	}
}

func bdApplicant(status models.ApprovalStatus) models.Applicant {
	a := usApplicant(status)
	a.ID = "app-bd"
	a.Country = "BD"
	return a
}

func issued(y int) *time.Time {
	t := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

// ==========================
// Remote status mapping
// ==========================

func TestMapRemoteStatus(t *testing.T) {
	tests := []struct {
		remote string
		want   models.ApprovalStatus
	}{
		{"ACCEPTED", models.StatusKycAccepted},
		{"accepted", models.StatusKycAccepted},
		{" review ", models.StatusKycReview},
		{"PROVISIONAL", models.StatusKycProvisional},
		{"UNVERIFIED", models.StatusKycUnverified},
		{"PENDING", models.StatusKycPending},
		{"REJECTED", models.StatusKycRejected},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			got, err := MapRemoteStatus(tt.remote)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "APPROVED", "ACCEPTED_FOR_BDT_ONLY"} {
		_, err := MapRemoteStatus(bad)
		assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownRemoteStatus), bad)
	}
}

// ==========================
// ApplyRemoteKycResult
// ==========================

func TestApplyRemoteKycResult_AcceptedNotifies(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusVerificationInProgress))

	res, err := f.svc.ApplyRemoteKycResult(context.Background(), "app-us", "ACCEPTED")
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, models.StatusVerificationInProgress, res.Previous)
	assert.Equal(t, models.StatusKycAccepted, res.Current)
	assert.Equal(t, models.StatusKycAccepted, f.store.status("app-us"))
	require.Len(t, f.notifier.changes, 1)
	assert.Equal(t, change{models.StatusVerificationInProgress, models.StatusKycAccepted}, f.notifier.changes[0])
	assert.Len(t, f.dispatcher.byHandler(dispatch.HandlerRecordOnboardingSteps), 1)
}

func TestApplyRemoteKycResult_UnknownStatusWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusVerificationInProgress))

	_, err := f.svc.ApplyRemoteKycResult(context.Background(), "app-us", "MAYBE")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownRemoteStatus))
	assert.Equal(t, models.StatusVerificationInProgress, f.store.status("app-us"))
	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.notifier.changes)
}

func TestApplyRemoteKycResult_SameStatusIsNoOp(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusKycReview))

	res, err := f.svc.ApplyRemoteKycResult(context.Background(), "app-us", "REVIEW")
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.notifier.changes)
	assert.Empty(t, f.dispatcher.tasks)
}

// ==========================
// SubmitKyc
// ==========================

func TestSubmitKyc_RoutesByJurisdiction(t *testing.T) {
	tests := []struct {
		name      string
		applicant models.Applicant
		handler   string
	}{
		{"remote engine", usApplicant(models.StatusProfileCreatedExternal), dispatch.HandlerSubmitKycRemote},
		{"document verifier", bdApplicant(models.StatusProfileCreatedExternal), dispatch.HandlerRunDocumentInquiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.store.put(tt.applicant)

			res, err := f.svc.SubmitKyc(context.Background(), SubmitRequest{ApplicantID: tt.applicant.ID, RequestID: "r1"})
			require.NoError(t, err)

			assert.Equal(t, SubmitDispatched, res.Outcome)
			assert.NotEmpty(t, res.SubmissionID)
			assert.Equal(t, models.StatusVerificationInProgress, f.store.status(tt.applicant.ID))

			checks := f.dispatcher.byHandler(tt.handler)
			require.Len(t, checks, 1)
			var payload dispatch.KycCheckPayload
			require.NoError(t, checks[0].Decode(&payload))
			assert.Equal(t, res.SubmissionID, payload.SubmissionID)
			assert.Equal(t, string(models.StatusProfileCreatedExternal), payload.PreviousStatus)
			assert.Len(t, f.dispatcher.byHandler(dispatch.HandlerUploadKycDocuments), 1)
		})
	}
}

func TestSubmitKyc_AcceptedWithoutRerunIsSkipped(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusKycAccepted))

	res, err := f.svc.SubmitKyc(context.Background(), SubmitRequest{ApplicantID: "app-us"})
	require.NoError(t, err)

	assert.Equal(t, SubmitSkipped, res.Outcome)
	assert.Empty(t, f.dispatcher.tasks)

	res, err = f.svc.SubmitKyc(context.Background(), SubmitRequest{ApplicantID: "app-us", Rerun: true})
	require.NoError(t, err)
	assert.Equal(t, SubmitDispatched, res.Outcome)
}

func TestSubmitKyc_RequiresRemoteIdentity(t *testing.T) {
	f := newFixture(t, nil)
	a := usApplicant(models.StatusProfileCompleted)
	a.ExternalIdentityID = ""
	f.store.put(a)

	_, err := f.svc.SubmitKyc(context.Background(), SubmitRequest{ApplicantID: "app-us"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	assert.Equal(t, models.StatusProfileCompleted, f.store.status("app-us"))
}

func TestSubmitKyc_DispatchFailureRestoresStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusKycReview))
	f.dispatcher.err[dispatch.HandlerSubmitKycRemote] = errors.NewDispatchFailedError(dispatch.HandlerSubmitKycRemote, context.DeadlineExceeded)

	_, err := f.svc.SubmitKyc(context.Background(), SubmitRequest{ApplicantID: "app-us"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeDispatchFailed))
	assert.Equal(t, models.StatusKycReview, f.store.status("app-us"))
}

// Two concurrent submissions: only one reaches the remote system.
func TestSubmitKyc_ConcurrentSubmissionsSendOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusProfileCreatedExternal))
	f.bank.kycStatus = "ACCEPTED"

	var wg sync.WaitGroup
	results := make([]*SubmitResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.SubmitKyc(context.Background(), SubmitRequest{
				ApplicantID: "app-us",
				RequestID:   []string{"a", "b"}[i],
			})
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	outcomes := []SubmitOutcome{results[0].Outcome, results[1].Outcome}
	assert.ElementsMatch(t, []SubmitOutcome{SubmitDispatched, SubmitPending}, outcomes)

	checks := f.dispatcher.byHandler(dispatch.HandlerSubmitKycRemote)
	require.Len(t, checks, 1)

	// Run the dispatched check the way the worker would.
	var payload dispatch.KycCheckPayload
	require.NoError(t, checks[0].Decode(&payload))
	_, err := f.svc.SubmitKycRemote(context.Background(), payload.ApplicantID, payload.SubmissionID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.bank.submissions)
	assert.Equal(t, models.StatusKycAccepted, f.store.status("app-us"))
}

// ==========================
// SubmitKycRemote
// ==========================

func TestSubmitKycRemote_FallsBackToGetIdentity(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusVerificationInProgress))
	f.bank.identity = &corebank.Identity{ID: "person-1", Status: "ACTIVE", VerificationStatus: "PROVISIONAL"}

	res, err := f.svc.SubmitKycRemote(context.Background(), "app-us", "sub-1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.bank.getCalls)
	assert.Equal(t, models.StatusKycProvisional, res.Current)
	assert.Equal(t, models.StatusKycProvisional, f.store.status("app-us"))
}

func TestSubmitKycRemote_RemoteFailureLeavesStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusVerificationInProgress))
	f.bank.kycErr = errors.NewRemoteAPIError("submitKycWithoutDocument", 422, `{"detail":"bad"}`, nil)

	_, err := f.svc.SubmitKycRemote(context.Background(), "app-us", "sub-1")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRemoteAPIError))
	assert.False(t, errors.IsRetryable(err))
	assert.Equal(t, models.StatusVerificationInProgress, f.store.status("app-us"))

	attempts := f.store.attemptsFor(models.OpSubmitKyc)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.SyncFailed, attempts[0].Status)

	f.svc.Restore(context.Background(), "app-us", models.StatusProfileCreatedExternal)
	assert.Equal(t, models.StatusProfileCreatedExternal, f.store.status("app-us"))
}

func TestSubmitKycRemote_RedeliveryReusesKey(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusVerificationInProgress))
	f.bank.kycErr = errors.NewRemoteAPIError("submitKycWithoutDocument", 503, "", nil)

	_, err := f.svc.SubmitKycRemote(context.Background(), "app-us", "sub-1")
	require.Error(t, err)
	_, err = f.svc.SubmitKycRemote(context.Background(), "app-us", "sub-1")
	require.Error(t, err)

	attempts := f.store.attemptsFor(models.OpSubmitKyc)
	require.Len(t, attempts, 1)
	assert.Equal(t, 1, attempts[0].RetryCount)
}

// ==========================
// Document verifier pathway
// ==========================

func TestRunDocumentInquiry_OpenInquiryStaysPending(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(bdApplicant(models.StatusVerificationInProgress))

	res, err := f.svc.RunDocumentInquiry(context.Background(), "app-bd", "sub-1", false)
	require.NoError(t, err)

	assert.True(t, res.Pending)
	assert.Equal(t, 1, f.verifier.created)
	idv, _ := f.store.IdentityVerification(context.Background(), "app-bd")
	require.NotNil(t, idv)
	assert.Equal(t, "inq-1", idv.InquiryID)
}

func TestRunDocumentInquiry_ReusesCompletedInquiry(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(bdApplicant(models.StatusVerificationInProgress))
	require.NoError(t, f.store.SaveInquiry(context.Background(), &models.IdentityVerification{
		ApplicantID: "app-bd", InquiryID: "inq-old", Status: models.IDVApproved, IsActive: true,
	}))

	res, err := f.svc.RunDocumentInquiry(context.Background(), "app-bd", "sub-1", false)
	require.NoError(t, err)

	assert.Zero(t, f.verifier.created)
	assert.Equal(t, models.StatusKycAccepted, res.Current)
}

func TestHandleVerifierResult_DispatchesSync(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(bdApplicant(models.StatusVerificationInProgress))
	require.NoError(t, f.store.SaveInquiry(context.Background(), &models.IdentityVerification{
		ApplicantID: "app-bd", InquiryID: "inq-1", Status: models.IDVPending, IsActive: true,
	}))

	require.NoError(t, f.svc.HandleVerifierResult(context.Background(), "inq-1", models.IDVDeclined))

	syncs := f.dispatcher.byHandler(dispatch.HandlerSyncKycStatus)
	require.Len(t, syncs, 1)
	var payload dispatch.SyncKycStatusPayload
	require.NoError(t, syncs[0].Decode(&payload))
	assert.Equal(t, "REJECTED", payload.VerificationStatus)

	// Not final: stored but nothing dispatched.
	require.NoError(t, f.svc.HandleVerifierResult(context.Background(), "inq-1", models.IDVPending))
	assert.Len(t, f.dispatcher.byHandler(dispatch.HandlerSyncKycStatus), 1)
}

func TestRefreshKycStatus_PollsVerifier(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(bdApplicant(models.StatusVerificationInProgress))
	_, err := f.svc.RunDocumentInquiry(context.Background(), "app-bd", "sub-1", false)
	require.NoError(t, err)

	res, err := f.svc.RefreshKycStatus(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.True(t, res.Pending)

	f.verifier.inquiries["inq-1"].Status = models.IDVCompleted
	res, err = f.svc.RefreshKycStatus(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.Equal(t, models.StatusKycAccepted, res.Current)
	idv, _ := f.store.IdentityVerification(context.Background(), "app-bd")
	assert.Equal(t, models.IDVCompleted, idv.Status)
}

// ==========================
// CreateRemoteIdentity
// ==========================

func TestSelectIdentification(t *testing.T) {
	national := models.Identification{Class: models.IDNational, Number: "N1"}
	oldPassport := models.Identification{Class: models.IDPassport, Number: "P0", IssuedAt: issued(2015)}
	newLicence := models.Identification{Class: models.IDDriverLicense, Number: "D1", IssuedAt: issued(2020)}
	samePassport := models.Identification{Class: models.IDPassport, Number: "P1", IssuedAt: issued(2020)}

	assert.Equal(t, "N1", SelectIdentification([]models.Identification{oldPassport, national}).Number)
	assert.Equal(t, "D1", SelectIdentification([]models.Identification{oldPassport, newLicence}).Number)
	assert.Equal(t, "P1", SelectIdentification([]models.Identification{newLicence, samePassport}).Number)
	assert.Nil(t, SelectIdentification(nil))
}

func TestCreateRemoteIdentity_Success(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, mr.Set(TaxIDCacheKey("app-us"), "123456789"))

	f := newFixture(t, rdb)
	a := usApplicant(models.StatusProfileCompleted)
	a.ExternalIdentityID = ""
	f.store.put(a)
	f.store.ids["app-us"] = []models.Identification{{Class: models.IDNational, Number: "123456789"}}
	f.store.facts["app-us"] = models.ProfileFacts{
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: issued(1990),
		Mobile:      &models.MobileNumber{Number: "2025550143", CountryPrefix: "+1"},
	}

	got, err := f.svc.CreateRemoteIdentity(context.Background(), "app-us")
	require.NoError(t, err)

	assert.Equal(t, "person-1", got.ExternalIdentityID)
	assert.Equal(t, models.StatusProfileCreatedExternal, f.store.status("app-us"))
	require.Len(t, f.bank.creates, 1)
	assert.Equal(t, "SSN", f.bank.creates[0].IdentificationType)
	assert.Equal(t, "1990-01-01", f.bank.creates[0].DateOfBirth)
	assert.False(t, mr.Exists(TaxIDCacheKey("app-us")))
	assert.Empty(t, f.notifier.changes)
	assert.Len(t, f.dispatcher.byHandler(dispatch.HandlerRecordOnboardingSteps), 1)

	attempts := f.store.attemptsFor(models.OpCreateIdentity)
	require.Len(t, attempts, 1)
	assert.NotContains(t, string(attempts[0].PayloadSnapshot), "123456789")
	assert.True(t, strings.Contains(string(attempts[0].PayloadSnapshot), "*****6789"))

	// Calling again returns the stored identity without a second remote call.
	again, err := f.svc.CreateRemoteIdentity(context.Background(), "app-us")
	require.NoError(t, err)
	assert.Equal(t, "person-1", again.ExternalIdentityID)
	assert.Len(t, f.bank.creates, 1)
}

func TestCreateRemoteIdentity_RemoteFailureLeavesApplicant(t *testing.T) {
	f := newFixture(t, nil)
	a := usApplicant(models.StatusProfileCompleted)
	a.ExternalIdentityID = ""
	f.store.put(a)
	f.store.ids["app-us"] = []models.Identification{{Class: models.IDPassport, Number: "X1"}}
	f.bank.createErr = errors.NewRemoteAPIError("createIdentity", 400, "bad request", nil)

	_, err := f.svc.CreateRemoteIdentity(context.Background(), "app-us")

	assert.True(t, errors.HasCode(err, errors.ErrCodeRemoteAPIError))
	got := f.store.applicant("app-us")
	assert.Empty(t, got.ExternalIdentityID)
	assert.Equal(t, models.StatusProfileCompleted, got.ApprovalStatus)
	assert.Zero(t, f.store.writes)
}

func TestCreateRemoteIdentity_NoIdentification(t *testing.T) {
	f := newFixture(t, nil)
	a := usApplicant(models.StatusProfileCompleted)
	a.ExternalIdentityID = ""
	f.store.put(a)

	_, err := f.svc.CreateRemoteIdentity(context.Background(), "app-us")

	assert.True(t, errors.HasCode(err, errors.ErrCodeIdentityNotFound))
	assert.Empty(t, f.bank.creates)
}

func TestSubmitTaxID_HeldUntilIdentityCreated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newFixture(t, rdb)
	a := usApplicant(models.StatusProfileCompleted)
	a.ExternalIdentityID = ""
	f.store.put(a)
	f.store.facts["app-us"] = models.ProfileFacts{FirstName: "Jane", LastName: "Doe"}
	ctx := context.Background()

	require.NoError(t, f.svc.SubmitTaxID(ctx, "app-us", "123-45-6789"))

	assert.True(t, f.store.applicant("app-us").TaxIDSubmitted)
	cached, err := mr.Get(TaxIDCacheKey("app-us"))
	require.NoError(t, err)
	assert.Equal(t, "123456789", cached)
	steps := f.dispatcher.byHandler(dispatch.HandlerRecordOnboardingSteps)
	require.Len(t, steps, 1)
	assert.Contains(t, steps[0].IdempotencyKey, string(models.StepTaxID))

	// No identification on file; the held tax ID is used as the national ID.
	_, err = f.svc.CreateRemoteIdentity(ctx, "app-us")
	require.NoError(t, err)
	require.Len(t, f.bank.creates, 1)
	assert.Equal(t, "SSN", f.bank.creates[0].IdentificationType)
	assert.Equal(t, "123456789", f.bank.creates[0].IdentificationNumber)
	assert.False(t, mr.Exists(TaxIDCacheKey("app-us")))
}

func TestSubmitTaxID_Invalid(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusProfileCompleted))

	err := f.svc.SubmitTaxID(context.Background(), "app-us", "12-3")

	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	assert.False(t, f.store.applicant("app-us").TaxIDSubmitted)
	assert.Empty(t, f.dispatcher.byHandler(dispatch.HandlerRecordOnboardingSteps))
}

func TestCreateRemoteIdentity_KeyIsStable(t *testing.T) {
	f := newFixture(t, nil)
	a := usApplicant(models.StatusProfileCompleted)
	a.ExternalIdentityID = ""
	f.store.put(a)
	f.store.ids["app-us"] = []models.Identification{{Class: models.IDPassport, Number: "X1"}}
	f.bank.createErr = errors.NewRemoteAPIError("createIdentity", 502, "", nil)

	_, _ = f.svc.CreateRemoteIdentity(context.Background(), "app-us")
	_, _ = f.svc.CreateRemoteIdentity(context.Background(), "app-us")

	require.Len(t, f.bank.createKeys, 2)
	assert.Equal(t, f.bank.createKeys[0], f.bank.createKeys[1])
}

// ==========================
// Disclosures and documents
// ==========================

func TestAcknowledgeDisclosures(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusProfileCreatedExternal))
	f.store.disclosures = []models.Disclosure{
		{ID: 7, Type: "TERMS_AND_CONDITIONS", Version: "1.0", IsActive: true},
		{ID: 8, Type: "PRIVACY_NOTICE", Version: "2.1", IsActive: true},
		{ID: 9, Type: "RETIRED", Version: "0.1", IsActive: false},
	}

	n, err := f.svc.AcknowledgeDisclosures(context.Background(), "app-us")
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	require.Len(t, f.bank.acks, 2)
	assert.Equal(t, "2024-03-05T10:30:00.123456Z", f.bank.acks[0].DisclosureDate)
	assert.True(t, strings.HasPrefix(f.bank.ackKeys[0], "IDM7_"))
	assert.Equal(t, DisclosureKey("app-us", 7), f.bank.ackKeys[0])

	n, err = f.svc.AcknowledgeDisclosures(context.Background(), "app-us")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.bank.acks, 2)
}

func TestAcknowledgeDisclosures_FailureKeepsEarlierAcks(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(usApplicant(models.StatusProfileCreatedExternal))
	f.store.disclosures = []models.Disclosure{
		{ID: 1, Type: "A", Version: "1", IsActive: true},
		{ID: 2, Type: "B", Version: "1", IsActive: true},
	}
	f.bank.ackErr = map[string]error{"B": errors.NewRemoteAPIError("acknowledgeDisclosure", 400, "", nil)}

	n, err := f.svc.AcknowledgeDisclosures(context.Background(), "app-us")

	assert.True(t, errors.HasCode(err, errors.ErrCodeRemoteAPIError))
	assert.Equal(t, 1, n)
	pending, _ := f.store.PendingDisclosures(context.Background(), "app-us")
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].ID)
}

func TestUploadDocuments(t *testing.T) {
	f := newFixture(t, nil)
	f.store.put(bdApplicant(models.StatusVerificationInProgress))

	n, err := f.svc.UploadDocuments(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.Zero(t, n, "nothing to upload before an inquiry exists")

	f.verifier.status = models.IDVCompleted
	_, err = f.svc.RunDocumentInquiry(context.Background(), "app-bd", "sub-1", true)
	require.NoError(t, err)
	f.verifier.inquiries["inq-1"].Documents = []docverify.InquiryDocument{
		{Kind: "government_id_front", URL: "https://files.example/front.jpg"},
		{Kind: "selfie", URL: "https://files.example/selfie.jpg"},
	}

	n, err = f.svc.UploadDocuments(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.bank.uploads, 2)
	assert.Equal(t, identityDocumentType, f.bank.uploads[0].Type)
	assert.Equal(t, "person-1", f.bank.uploads[0].IdentityID)

	_, err = f.svc.UploadDocuments(context.Background(), "app-bd")
	require.NoError(t, err)
	assert.Equal(t, f.bank.uploadKeys[0], f.bank.uploadKeys[2], "redelivery reuses the key")
}
