package identitysync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"onboarding-workers/internal/common/corebank"
	"onboarding-workers/internal/common/docverify"
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/dispatch"
	"onboarding-workers/internal/models"
	"onboarding-workers/internal/repository"
)

// ==========================
// In-memory applicant store
// ==========================

// memStore holds one row lock for all applicants, which is enough to model
// SELECT ... FOR UPDATE in these tests.
type memStore struct {
	rowLock sync.Mutex

	mu          sync.Mutex
	applicants  map[string]models.Applicant
	facts       map[string]models.ProfileFacts
	ids         map[string][]models.Identification
	idv         map[string]*models.IdentityVerification
	disclosures []models.Disclosure
	acks        map[string]map[int64]models.DisclosureAcknowledgement
	attempts    map[string]*models.SyncAttempt
	writes      int
}

func newMemStore() *memStore {
	return &memStore{
		applicants: map[string]models.Applicant{},
		facts:      map[string]models.ProfileFacts{},
		ids:        map[string][]models.Identification{},
		idv:        map[string]*models.IdentityVerification{},
		acks:       map[string]map[int64]models.DisclosureAcknowledgement{},
		attempts:   map[string]*models.SyncAttempt{},
	}
}

func (m *memStore) put(a models.Applicant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applicants[a.ID] = a
}

func (m *memStore) status(id string) models.ApprovalStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applicants[id].ApprovalStatus
}

func (m *memStore) applicant(id string) models.Applicant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applicants[id]
}

func (m *memStore) WithApplicantLock(ctx context.Context, applicantID string, fn func(repository.LockedApplicant) error) error {
	m.rowLock.Lock()
	defer m.rowLock.Unlock()

	m.mu.Lock()
	a, ok := m.applicants[applicantID]
	m.mu.Unlock()
	if !ok {
		return errors.NewApplicantNotFoundError(applicantID)
	}

	l := &memLocked{store: m, app: a}
	if err := fn(l); err != nil {
		return err
	}
	m.mu.Lock()
	m.applicants[applicantID] = l.app
	m.writes += l.writes
	m.mu.Unlock()
	return nil
}

func (m *memStore) Get(_ context.Context, applicantID string) (*models.Applicant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applicants[applicantID]
	if !ok {
		return nil, errors.NewApplicantNotFoundError(applicantID)
	}
	return &a, nil
}

func (m *memStore) Facts(_ context.Context, applicantID string) (*models.ProfileFacts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applicants[applicantID]
	if !ok {
		return nil, errors.NewApplicantNotFoundError(applicantID)
	}
	f := m.facts[applicantID]
	f.Applicant = a
	return &f, nil
}

func (m *memStore) MarkTaxIDSubmitted(_ context.Context, applicantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applicants[applicantID]
	if !ok {
		return errors.NewApplicantNotFoundError(applicantID)
	}
	a.TaxIDSubmitted = true
	m.applicants[applicantID] = a
	return nil
}

type memLocked struct {
	store  *memStore
	app    models.Applicant
	writes int
}

func (l *memLocked) Applicant() models.Applicant { return l.app }

func (l *memLocked) Facts(ctx context.Context) (*models.ProfileFacts, error) {
	f, err := l.store.Facts(ctx, l.app.ID)
	if err != nil {
		return nil, err
	}
	f.Applicant = l.app
	return f, nil
}

func (l *memLocked) AdminApproval(context.Context) (*models.AdminApproval, error) {
	return &models.AdminApproval{ApplicantID: l.app.ID}, nil
}

func (l *memLocked) UpdateStatus(_ context.Context, status models.ApprovalStatus, review models.AdminReviewStatus) error {
	l.app.ApprovalStatus = status
	if review != "" {
		l.app.AdminReviewStatus = review
	}
	l.writes++
	return nil
}

func (l *memLocked) SaveAdminApproval(context.Context, *models.AdminApproval) error { return nil }

func (l *memLocked) SyncShippingAddress(context.Context) error { return nil }

func (l *memLocked) SetExternalIdentity(_ context.Context, externalID, remoteStatus string) error {
	if l.app.ExternalIdentityID != "" {
		return errors.NewValidationError("External identity is already set", "externalIdentityId")
	}
	l.app.ExternalIdentityID = externalID
	l.app.ExternalIdentityStatus = remoteStatus
	l.writes++
	return nil
}

// ProfileStore

func (m *memStore) Identifications(_ context.Context, applicantID string) ([]models.Identification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[applicantID], nil
}

func (m *memStore) IdentityVerification(_ context.Context, applicantID string) (*models.IdentityVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.idv[applicantID]; ok {
		c := *v
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) SaveInquiry(_ context.Context, v *models.IdentityVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *v
	m.idv[v.ApplicantID] = &c
	return nil
}

func (m *memStore) UpdateVerificationStatus(_ context.Context, inquiryID string, status models.IdentityVerificationStatus) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for applicantID, v := range m.idv {
		if v.InquiryID == inquiryID {
			v.Status = status
			return applicantID, nil
		}
	}
	return "", errors.NewResourceNotFoundError("identity_verification", inquiryID)
}

func (m *memStore) PendingDisclosures(_ context.Context, applicantID string) ([]models.Disclosure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Disclosure
	for _, d := range m.disclosures {
		if _, done := m.acks[applicantID][d.ID]; d.IsActive && !done {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) AcknowledgeDisclosure(_ context.Context, ack models.DisclosureAcknowledgement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acks[ack.ApplicantID] == nil {
		m.acks[ack.ApplicantID] = map[int64]models.DisclosureAcknowledgement{}
	}
	m.acks[ack.ApplicantID][ack.DisclosureID] = ack
	return nil
}

// AttemptStore

func (m *memStore) Begin(_ context.Context, applicantID, key string, op models.SyncOperation, payload interface{}) (*models.SyncAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attempts[key]; ok {
		a.RetryCount++
		a.Status = models.SyncPending
		return a, nil
	}
	raw, _ := json.Marshal(payload)
	a := &models.SyncAttempt{
		ApplicantID:     applicantID,
		IdempotencyKey:  key,
		Operation:       op,
		PayloadSnapshot: raw,
		Status:          models.SyncPending,
	}
	m.attempts[key] = a
	return a, nil
}

func (m *memStore) Succeed(_ context.Context, a *models.SyncAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Status = models.SyncSucceeded
	return nil
}

func (m *memStore) Fail(_ context.Context, a *models.SyncAttempt, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Status = models.SyncFailed
	a.LastError = cause.Error()
	return nil
}

func (m *memStore) attemptsFor(op models.SyncOperation) []models.SyncAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SyncAttempt
	for _, a := range m.attempts {
		if a.Operation == op {
			out = append(out, *a)
		}
	}
	return out
}

// ==========================
// Remote fakes
// ==========================

type fakeBank struct {
	mu sync.Mutex

	createErr  error
	creates    []corebank.CreateIdentityRequest
	createKeys []string

	kycStatus   string
	kycErr      error
	submissions int

	identity *corebank.Identity
	getCalls int

	acks    []corebank.DisclosureAck
	ackKeys []string
	ackErr  map[string]error

	uploads    []corebank.DocumentUpload
	uploadKeys []string
}

func (b *fakeBank) CreateIdentity(_ context.Context, req corebank.CreateIdentityRequest, key string) (*corebank.Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates = append(b.creates, req)
	b.createKeys = append(b.createKeys, key)
	if b.createErr != nil {
		return nil, b.createErr
	}
	return &corebank.Identity{ID: "person-1", Status: "ACTIVE"}, nil
}

func (b *fakeBank) GetIdentity(_ context.Context, identityID string) (*corebank.Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getCalls++
	if b.identity == nil {
		return nil, errors.NewRemoteAPIError("getIdentity", 404, "not found", nil)
	}
	return b.identity, nil
}

func (b *fakeBank) UpdateIdentityStatus(_ context.Context, identityID, status, _ string) (*corebank.Identity, error) {
	return &corebank.Identity{ID: identityID, Status: status}, nil
}

func (b *fakeBank) SubmitKycWithoutDocument(_ context.Context, identityID, _ string) (*corebank.KycResult, error) {
	// Widen the race window for the concurrent submission test.
	time.Sleep(time.Millisecond)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions++
	if b.kycErr != nil {
		return nil, b.kycErr
	}
	return &corebank.KycResult{ID: "kyc-" + identityID, VerificationStatus: b.kycStatus}, nil
}

func (b *fakeBank) AcknowledgeDisclosure(_ context.Context, req corebank.DisclosureAck, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ackErr[req.Type]; err != nil {
		return nil, err
	}
	b.acks = append(b.acks, req)
	b.ackKeys = append(b.ackKeys, key)
	return []byte(fmt.Sprintf(`{"type":%q}`, req.Type)), nil
}

func (b *fakeBank) UploadDocument(_ context.Context, req corebank.DocumentUpload, key string) (*corebank.UploadedDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, req)
	b.uploadKeys = append(b.uploadKeys, key)
	return &corebank.UploadedDocument{ID: fmt.Sprintf("doc-%d", len(b.uploads))}, nil
}

type fakeVerifier struct {
	mu        sync.Mutex
	inquiries map[string]*docverify.Inquiry
	created   int
	status    models.IdentityVerificationStatus
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{inquiries: map[string]*docverify.Inquiry{}, status: models.IDVCreated}
}

func (v *fakeVerifier) CreateInquiry(_ context.Context, applicantID, referenceID, _ string) (*docverify.Inquiry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created++
	inq := &docverify.Inquiry{ID: fmt.Sprintf("inq-%d", v.created), ReferenceID: referenceID, Status: v.status}
	v.inquiries[inq.ID] = inq
	return inq, nil
}

func (v *fakeVerifier) GetInquiry(_ context.Context, inquiryID string) (*docverify.Inquiry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	inq, ok := v.inquiries[inquiryID]
	if !ok {
		return nil, errors.NewRemoteAPIError("getInquiry", 404, "not found", nil)
	}
	return inq, nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []dispatch.Task
	err   map[string]error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task dispatch.Task, _ bool) (*dispatch.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.err[task.HandlerName]; err != nil {
		return nil, err
	}
	d.tasks = append(d.tasks, task)
	return &dispatch.Result{}, nil
}

func (d *recordingDispatcher) byHandler(name string) []dispatch.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []dispatch.Task
	for _, t := range d.tasks {
		if t.HandlerName == name {
			out = append(out, t)
		}
	}
	return out
}

type change struct {
	previous, next models.ApprovalStatus
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []change
}

func (n *recordingNotifier) StatusChanged(_ context.Context, _ models.Applicant, previous, next models.ApprovalStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change{previous, next})
}

func (n *recordingNotifier) AdminApproved(context.Context, models.Applicant) {}
