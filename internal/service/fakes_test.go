package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leadforge/outreach-engine/internal/adapter"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/queue"
	"github.com/leadforge/outreach-engine/internal/repository"
)

// In-memory repository fakes. Default behavior stores records in a map guarded
// by a mutex; any method can be overridden with its function field.

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*domain.Lead

	getByIDFn      func(ctx context.Context, id string) (*domain.Lead, error)
	updateStatusFn func(ctx context.Context, id string, status domain.LeadStatus) error
	createBatchFn  func(ctx context.Context, leads []*domain.Lead) error
}

func newFakeLeadRepo(leads ...*domain.Lead) *fakeLeadRepo {
	r := &fakeLeadRepo{leads: make(map[string]*domain.Lead)}
	for _, l := range leads {
		copied := *l
		r.leads[l.ID] = &copied
	}
	return r
}

func (r *fakeLeadRepo) Create(ctx context.Context, l *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *l
	r.leads[l.ID] = &copied
	return nil
}

func (r *fakeLeadRepo) CreateBatch(ctx context.Context, leads []*domain.Lead) error {
	if r.createBatchFn != nil {
		return r.createBatchFn(ctx, leads)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range leads {
		copied := *l
		r.leads[l.ID] = &copied
	}
	return nil
}

func (r *fakeLeadRepo) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	if r.getByIDFn != nil {
		return r.getByIDFn(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeLeadRepo) List(ctx context.Context, params repository.LeadListParams) ([]domain.Lead, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeadRepo) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	if r.updateStatusFn != nil {
		return r.updateStatusFn(ctx, id, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Status = status
	return nil
}

func (r *fakeLeadRepo) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok || l.Status == domain.LeadStatusArchived {
		return domain.ErrConflict
	}
	l.Status = domain.LeadStatusArchived
	return nil
}

func (r *fakeLeadRepo) status(id string) domain.LeadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leads[id]; ok {
		return l.Status
	}
	return ""
}

type fakeEmailRepo struct {
	mu     sync.Mutex
	emails map[string]*domain.GeneratedEmail

	createFn           func(ctx context.Context, e *domain.GeneratedEmail) error
	getByLeadAndTypeFn func(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error)
}

func newFakeEmailRepo(emails ...*domain.GeneratedEmail) *fakeEmailRepo {
	r := &fakeEmailRepo{emails: make(map[string]*domain.GeneratedEmail)}
	for _, e := range emails {
		copied := *e
		r.emails[e.ID] = &copied
	}
	return r
}

func (r *fakeEmailRepo) Create(ctx context.Context, e *domain.GeneratedEmail) error {
	if r.createFn != nil {
		return r.createFn(ctx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.emails {
		if existing.LeadID == e.LeadID && existing.EmailType == e.EmailType {
			return errors.New(`duplicate key value violates unique constraint "idx_emails_lead_type"`)
		}
	}
	copied := *e
	r.emails[e.ID] = &copied
	return nil
}

func (r *fakeEmailRepo) GetByID(ctx context.Context, id string) (*domain.GeneratedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.emails[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEmailRepo) GetByLeadAndType(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error) {
	if r.getByLeadAndTypeFn != nil {
		return r.getByLeadAndTypeFn(ctx, leadID, emailType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.emails {
		if e.LeadID == leadID && e.EmailType == emailType {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeEmailRepo) ListByLead(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.GeneratedEmail, 0)
	for _, e := range r.emails {
		if e.LeadID == leadID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEmailRepo) UpdateStatus(ctx context.Context, id string, status domain.EmailStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.emails[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	return nil
}

func (r *fakeEmailRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.emails[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = domain.EmailStatusSent
	e.SentAt = &sentAt
	return nil
}

func (r *fakeEmailRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.emails[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.emails, id)
	return nil
}

func (r *fakeEmailRepo) get(id string) *domain.GeneratedEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.emails[id]; ok {
		copied := *e
		return &copied
	}
	return nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.QueueEntry

	claimForSendingFn func(ctx context.Context, id string) (bool, error)
	getLiveByEmailFn  func(ctx context.Context, emailID string) (*domain.QueueEntry, error)
	rescheduleFn      func(ctx context.Context, id string, nextAttempt time.Time, lastError string) error
}

func newFakeQueueRepo(entries ...*domain.QueueEntry) *fakeQueueRepo {
	r := &fakeQueueRepo{entries: make(map[string]*domain.QueueEntry)}
	for _, e := range entries {
		copied := *e
		r.entries[e.ID] = &copied
	}
	return r
}

func (r *fakeQueueRepo) Create(ctx context.Context, e *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *e
	r.entries[e.ID] = &copied
	return nil
}

func (r *fakeQueueRepo) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeQueueRepo) GetLiveByEmail(ctx context.Context, emailID string) (*domain.QueueEntry, error) {
	if r.getLiveByEmailFn != nil {
		return r.getLiveByEmailFn(ctx, emailID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.EmailID == emailID &&
			(e.Status == domain.QueueStatusQueued || e.Status == domain.QueueStatusSending) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeQueueRepo) ListPending(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.QueueEntry, 0)
	for _, e := range r.entries {
		if e.Status == domain.QueueStatusQueued {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeQueueRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.QueueEntry, 0)
	for _, e := range r.entries {
		if e.Status == domain.QueueStatusQueued && !e.ScheduledTime.After(now) {
			out = append(out, *e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeQueueRepo) ClaimForSending(ctx context.Context, id string) (bool, error) {
	if r.claimForSendingFn != nil {
		return r.claimForSendingFn(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != domain.QueueStatusQueued {
		return false, nil
	}
	e.Status = domain.QueueStatusSending
	return true, nil
}

func (r *fakeQueueRepo) MarkSent(ctx context.Context, id string, providerMessageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = domain.QueueStatusSent
	if providerMessageID != "" {
		e.ProviderMessageID = &providerMessageID
	}
	return nil
}

func (r *fakeQueueRepo) Reschedule(ctx context.Context, id string, nextAttempt time.Time, lastError string) error {
	if r.rescheduleFn != nil {
		return r.rescheduleFn(ctx, id, nextAttempt, lastError)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = domain.QueueStatusQueued
	e.ScheduledTime = nextAttempt
	e.AttemptCount++
	e.LastError = &lastError
	return nil
}

func (r *fakeQueueRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = domain.QueueStatusFailed
	e.LastError = &lastError
	return nil
}

func (r *fakeQueueRepo) get(id string) *domain.QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		copied := *e
		return &copied
	}
	return nil
}

type fakeFollowupRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.FollowupTask

	claimForProcessingFn func(ctx context.Context, id string) (bool, error)
	createFn             func(ctx context.Context, t *domain.FollowupTask) error
}

func newFakeFollowupRepo(tasks ...*domain.FollowupTask) *fakeFollowupRepo {
	r := &fakeFollowupRepo{tasks: make(map[string]*domain.FollowupTask)}
	for _, t := range tasks {
		copied := *t
		r.tasks[t.ID] = &copied
	}
	return r
}

func (r *fakeFollowupRepo) Create(ctx context.Context, t *domain.FollowupTask) error {
	if r.createFn != nil {
		return r.createFn(ctx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *fakeFollowupRepo) GetByID(ctx context.Context, id string) (*domain.FollowupTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeFollowupRepo) GetByLeadAndType(ctx context.Context, leadID string, followupType domain.FollowupType) (*domain.FollowupTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.LeadID == leadID && t.FollowupType == followupType {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeFollowupRepo) GetByEmailID(ctx context.Context, emailID string) (*domain.FollowupTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.EmailID != nil && *t.EmailID == emailID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeFollowupRepo) List(ctx context.Context, params repository.FollowupListParams) ([]domain.FollowupTask, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.FollowupTask, 0)
	for _, t := range r.tasks {
		if params.LeadID != nil && t.LeadID != *params.LeadID {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (r *fakeFollowupRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.FollowupTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.FollowupTask, 0)
	for _, t := range r.tasks {
		if t.Status == domain.FollowupStatusScheduled && !t.ScheduledDate.After(now) {
			out = append(out, *t)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeFollowupRepo) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	if r.claimForProcessingFn != nil {
		return r.claimForProcessingFn(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.Status != domain.FollowupStatusScheduled {
		return false, nil
	}
	t.Status = domain.FollowupStatusProcessing
	t.AttemptCount++
	return true, nil
}

func (r *fakeFollowupRepo) SetEmailID(ctx context.Context, id string, emailID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.EmailID = &emailID
	return nil
}

func (r *fakeFollowupRepo) UpdateStatus(ctx context.Context, id string, status domain.FollowupStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeFollowupRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.FollowupStatusFailed
	t.LastError = &lastError
	return nil
}

func (r *fakeFollowupRepo) ReleaseClaim(ctx context.Context, id string, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.FollowupStatusScheduled
	t.LastError = &lastError
	return nil
}

func (r *fakeFollowupRepo) CancelScheduledForLead(ctx context.Context, leadID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tasks {
		if t.LeadID == leadID && t.Status == domain.FollowupStatusScheduled {
			t.Status = domain.FollowupStatusCanceled
			n++
		}
	}
	return n, nil
}

func (r *fakeFollowupRepo) MarkRepliedForLead(ctx context.Context, leadID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tasks {
		if t.LeadID == leadID && t.Status == domain.FollowupStatusSent {
			t.Status = domain.FollowupStatusReplied
			n++
		}
	}
	return n, nil
}

func (r *fakeFollowupRepo) get(id string) *domain.FollowupTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		copied := *t
		return &copied
	}
	return nil
}

func (r *fakeFollowupRepo) byLeadAndType(leadID string, followupType domain.FollowupType) *domain.FollowupTask {
	t, err := r.GetByLeadAndType(context.Background(), leadID, followupType)
	if err != nil {
		return nil
	}
	return t
}

type fakeWebsiteRepo struct {
	mu        sync.Mutex
	artifacts map[string]*domain.WebsiteArtifact

	getByDomainFn func(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error)
	upsertFn      func(ctx context.Context, a *domain.WebsiteArtifact) error
}

func newFakeWebsiteRepo(artifacts ...*domain.WebsiteArtifact) *fakeWebsiteRepo {
	r := &fakeWebsiteRepo{artifacts: make(map[string]*domain.WebsiteArtifact)}
	for _, a := range artifacts {
		copied := *a
		r.artifacts[a.Domain] = &copied
	}
	return r
}

func (r *fakeWebsiteRepo) GetByDomain(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error) {
	if r.getByDomainFn != nil {
		return r.getByDomainFn(ctx, normalizedDomain)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artifacts[normalizedDomain]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeWebsiteRepo) Upsert(ctx context.Context, a *domain.WebsiteArtifact) error {
	if r.upsertFn != nil {
		return r.upsertFn(ctx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *a
	r.artifacts[a.Domain] = &copied
	return nil
}

func (r *fakeWebsiteRepo) List(ctx context.Context, params repository.WebsiteListParams) ([]domain.WebsiteArtifact, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WebsiteArtifact, 0, len(r.artifacts))
	for _, a := range r.artifacts {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeWebsiteRepo) get(normalizedDomain string) *domain.WebsiteArtifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.artifacts[normalizedDomain]; ok {
		copied := *a
		return &copied
	}
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.DeliveryAttempt
}

func (r *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *fakeAttemptRepo) GetByEntryID(ctx context.Context, entryID string) ([]domain.DeliveryAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DeliveryAttempt, 0)
	for _, a := range r.attempts {
		if a.EntryID == entryID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type fakeScrapeRunRepo struct {
	mu   sync.Mutex
	runs map[string]*domain.ScrapeRun
}

func newFakeScrapeRunRepo() *fakeScrapeRunRepo {
	return &fakeScrapeRunRepo{runs: make(map[string]*domain.ScrapeRun)}
}

func (r *fakeScrapeRunRepo) Create(ctx context.Context, run *domain.ScrapeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *fakeScrapeRunRepo) GetByID(ctx context.Context, id string) (*domain.ScrapeRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *run
	return &copied, nil
}

func (r *fakeScrapeRunRepo) UpdateStatus(ctx context.Context, id string, status domain.ScrapeRunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	run.Status = status
	return nil
}

func (r *fakeScrapeRunRepo) SetFoundCount(ctx context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	run.FoundCount = count
	return nil
}

func (r *fakeScrapeRunRepo) get(id string) *domain.ScrapeRun {
	run, err := r.GetByID(context.Background(), id)
	if err != nil {
		return nil
	}
	return run
}

// Adapter fakes.

type fakeDrafter struct {
	draftEmailFn func(ctx context.Context, lead domain.Lead, emailType domain.EmailType, websiteMarkdown string) (*adapter.Draft, error)
	calls        int
	mu           sync.Mutex
}

func (d *fakeDrafter) DraftEmail(ctx context.Context, lead domain.Lead, emailType domain.EmailType, websiteMarkdown string) (*adapter.Draft, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.draftEmailFn != nil {
		return d.draftEmailFn(ctx, lead, emailType, websiteMarkdown)
	}
	return &adapter.Draft{
		Subject:        "Quick question for " + lead.CompanyName,
		Body:           "Hello " + lead.FullName(),
		IsPersonalized: websiteMarkdown != "",
	}, nil
}

func (d *fakeDrafter) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeSender struct {
	sendEmailFn func(ctx context.Context, req adapter.SendRequest) (*adapter.SendResult, error)
	mu          sync.Mutex
	requests    []adapter.SendRequest
}

func (s *fakeSender) SendEmail(ctx context.Context, req adapter.SendRequest) (*adapter.SendResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.sendEmailFn != nil {
		return s.sendEmailFn(ctx, req)
	}
	return &adapter.SendResult{StatusCode: 200, MessageID: "msg-" + req.IdempotencyKey}, nil
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *fakeSender) sentRequests() []adapter.SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]adapter.SendRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

type fakeScraper struct {
	scrapeWebsiteFn func(ctx context.Context, url string) (*adapter.ScrapeResult, error)
	mu              sync.Mutex
	calls           int
}

func (s *fakeScraper) ScrapeWebsite(ctx context.Context, url string) (*adapter.ScrapeResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.scrapeWebsiteFn != nil {
		return s.scrapeWebsiteFn(ctx, url)
	}
	return &adapter.ScrapeResult{URL: url, Markdown: "# Site"}, nil
}

func (s *fakeScraper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeReplyObserver struct {
	observeReplyFn func(ctx context.Context, leadID string) (bool, error)
}

func (o *fakeReplyObserver) ObserveReply(ctx context.Context, leadID string) (bool, error) {
	if o.observeReplyFn != nil {
		return o.observeReplyFn(ctx, leadID)
	}
	return false, nil
}

type fakeSearcher struct {
	source        domain.LeadSource
	searchLeadsFn func(ctx context.Context, criteria adapter.SearchCriteria, count int) ([]domain.Lead, error)
}

func (s *fakeSearcher) SearchLeads(ctx context.Context, criteria adapter.SearchCriteria, count int) ([]domain.Lead, error) {
	if s.searchLeadsFn != nil {
		return s.searchLeadsFn(ctx, criteria, count)
	}
	return nil, nil
}

func (s *fakeSearcher) Source() domain.LeadSource {
	if s.source == "" {
		return domain.SourceApollo
	}
	return s.source
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.LeadMessage) error
	mu        sync.Mutex
	published []queue.LeadMessage
}

func (p *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.LeadMessage) error {
	p.mu.Lock()
	p.published = append(p.published, msg)
	p.mu.Unlock()
	if p.publishFn != nil {
		return p.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) publishedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, scope string) error
	mu     sync.Mutex
	waits  []string
}

func (l *fakeRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	return true, nil
}

func (l *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	l.mu.Lock()
	l.waits = append(l.waits, scope)
	l.mu.Unlock()
	if l.waitFn != nil {
		return l.waitFn(ctx, scope)
	}
	return nil
}

func (l *fakeRateLimiter) waitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waits)
}

type fakeArtifactCache struct {
	mu        sync.Mutex
	artifacts map[string]*domain.WebsiteArtifact

	getFn func(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error)
	setFn func(ctx context.Context, a *domain.WebsiteArtifact) error
}

func newFakeArtifactCache(artifacts ...*domain.WebsiteArtifact) *fakeArtifactCache {
	c := &fakeArtifactCache{artifacts: make(map[string]*domain.WebsiteArtifact)}
	for _, a := range artifacts {
		copied := *a
		c.artifacts[a.Domain] = &copied
	}
	return c
}

func (c *fakeArtifactCache) Get(ctx context.Context, normalizedDomain string) (*domain.WebsiteArtifact, error) {
	if c.getFn != nil {
		return c.getFn(ctx, normalizedDomain)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.artifacts[normalizedDomain]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (c *fakeArtifactCache) Set(ctx context.Context, a *domain.WebsiteArtifact) error {
	if c.setFn != nil {
		return c.setFn(ctx, a)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *a
	c.artifacts[a.Domain] = &copied
	return nil
}

func (c *fakeArtifactCache) Invalidate(ctx context.Context, normalizedDomain string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.artifacts, normalizedDomain)
	return nil
}

func (c *fakeArtifactCache) contains(normalizedDomain string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.artifacts[normalizedDomain]
	return ok
}

// transientError builds a retryable adapter failure for tests.
func transientError(message string) error {
	return &adapter.AdapterError{StatusCode: 503, Message: message, Transient: true}
}

// permanentError builds a non-retryable adapter failure for tests.
func permanentError(message string) error {
	return &adapter.AdapterError{StatusCode: 400, Message: message, Transient: false}
}
