package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadforge/outreach-engine/internal/domain"
	"github.com/leadforge/outreach-engine/internal/service"
)

type stubEmailService struct {
	generateFn         func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error)
	getByLeadAndTypeFn func(ctx context.Context, leadID string, emailType domain.EmailType) (*domain.GeneratedEmail, error)
	listByLeadFn       func(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error)
}

func (s *stubEmailService) Generate(
	ctx context.Context,
	leadID string,
	emailType domain.EmailType,
	force bool,
) (*service.GenerateResult, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, leadID, emailType, force)
	}
	return nil, errors.New("not implemented")
}

func (s *stubEmailService) GetByLeadAndType(
	ctx context.Context,
	leadID string,
	emailType domain.EmailType,
) (*domain.GeneratedEmail, error) {
	if s.getByLeadAndTypeFn != nil {
		return s.getByLeadAndTypeFn(ctx, leadID, emailType)
	}
	return nil, domain.ErrNotFound
}

func (s *stubEmailService) ListByLead(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error) {
	if s.listByLeadFn != nil {
		return s.listByLeadFn(ctx, leadID)
	}
	return nil, nil
}

type stubQueueService struct {
	enqueueFn     func(ctx context.Context, emailID string, scheduledTime time.Time) (*domain.QueueEntry, bool, error)
	getEntryFn    func(ctx context.Context, id string) (*domain.QueueEntry, error)
	listPendingFn func(ctx context.Context, limit int) ([]domain.QueueEntry, error)
	attemptsFn    func(ctx context.Context, entryID string) ([]domain.DeliveryAttempt, error)
	processDueFn  func(ctx context.Context, limit int) (*service.ProcessResult, error)
}

func (s *stubQueueService) Enqueue(
	ctx context.Context,
	emailID string,
	scheduledTime time.Time,
) (*domain.QueueEntry, bool, error) {
	if s.enqueueFn != nil {
		return s.enqueueFn(ctx, emailID, scheduledTime)
	}
	return nil, false, errors.New("not implemented")
}

func (s *stubQueueService) GetEntry(ctx context.Context, id string) (*domain.QueueEntry, error) {
	if s.getEntryFn != nil {
		return s.getEntryFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubQueueService) ListPending(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	if s.listPendingFn != nil {
		return s.listPendingFn(ctx, limit)
	}
	return nil, nil
}

func (s *stubQueueService) Attempts(ctx context.Context, entryID string) ([]domain.DeliveryAttempt, error) {
	if s.attemptsFn != nil {
		return s.attemptsFn(ctx, entryID)
	}
	return nil, nil
}

func (s *stubQueueService) ProcessDue(ctx context.Context, limit int) (*service.ProcessResult, error) {
	if s.processDueFn != nil {
		return s.processDueFn(ctx, limit)
	}
	return &service.ProcessResult{}, nil
}

func newEmailTestApp(t *testing.T, emails EmailService, queue QueueService) *fiber.App {
	t.Helper()

	app := newHandlerTestApp(t)
	if err := RegisterEmailRoutes(app, emails, queue); err != nil {
		t.Fatalf("RegisterEmailRoutes() error = %v", err)
	}
	return app
}

func sampleEmail(id string, leadID string) *domain.GeneratedEmail {
	return &domain.GeneratedEmail{
		ID:        id,
		LeadID:    leadID,
		EmailType: domain.EmailTypeInitial,
		Subject:   "Quick question",
		Body:      "Hello from the team",
		Status:    domain.EmailStatusGenerated,
	}
}

func TestEmailIntegration_GenerateEmail(t *testing.T) {
	t.Parallel()

	svc := &stubEmailService{
		generateFn: func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error) {
			if leadID != "lead-1" {
				t.Fatalf("leadID = %q, want lead-1", leadID)
			}
			if emailType != domain.EmailTypeInitial {
				t.Fatalf("emailType = %s, want initial", emailType)
			}
			if force {
				t.Fatal("force should default to false")
			}
			return &service.GenerateResult{
				Email:       sampleEmail("email-1", leadID),
				WebsiteUsed: true,
			}, nil
		},
	}

	app := newEmailTestApp(t, svc, &stubQueueService{})

	// Empty body defaults to the initial email type.
	resp, body := performRequest(t, app, http.MethodPost, "/v1/emails/generate/lead-1", "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["alreadyGenerated"] != false {
		t.Fatalf("alreadyGenerated = %v, want false", parsed["alreadyGenerated"])
	}
	if parsed["websiteUsed"] != true {
		t.Fatalf("websiteUsed = %v, want true", parsed["websiteUsed"])
	}
}

func TestEmailIntegration_GenerateEmailIdempotentRepeat(t *testing.T) {
	t.Parallel()

	svc := &stubEmailService{
		generateFn: func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error) {
			if emailType != domain.EmailTypeFollowup5Day {
				t.Fatalf("emailType = %s, want followup_5day", emailType)
			}
			return &service.GenerateResult{
				Email:            sampleEmail("email-1", leadID),
				AlreadyGenerated: true,
			}, nil
		},
	}

	app := newEmailTestApp(t, svc, &stubQueueService{})

	reqBody := `{"emailType":"followup_5day"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/emails/generate/lead-1", reqBody)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for existing draft, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["alreadyGenerated"] != true {
		t.Fatalf("alreadyGenerated = %v, want true", parsed["alreadyGenerated"])
	}
}

func TestEmailIntegration_GenerateEmailErrors(t *testing.T) {
	t.Parallel()

	svc := &stubEmailService{
		generateFn: func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error) {
			return nil, domain.ErrNotFound
		},
	}

	app := newEmailTestApp(t, svc, &stubQueueService{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/emails/generate/lead-1", `{"emailType":"weekly"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown email type", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/emails/generate/not-exists", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown lead", resp.StatusCode)
	}
}

func TestEmailIntegration_SendEmail(t *testing.T) {
	t.Parallel()

	scheduledAt, _ := time.Parse(time.RFC3339, "2026-09-01T09:00:00Z")

	svc := &stubEmailService{
		generateFn: func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error) {
			return &service.GenerateResult{Email: sampleEmail("email-1", leadID)}, nil
		},
	}
	queue := &stubQueueService{
		enqueueFn: func(ctx context.Context, emailID string, scheduledTime time.Time) (*domain.QueueEntry, bool, error) {
			if emailID != "email-1" {
				t.Fatalf("emailID = %q, want email-1", emailID)
			}
			if !scheduledTime.Equal(scheduledAt) {
				t.Fatalf("scheduledTime = %v, want %v", scheduledTime, scheduledAt)
			}
			return &domain.QueueEntry{
				ID:            "entry-1",
				EmailID:       emailID,
				LeadID:        "lead-1",
				Recipient:     "ada@example.com",
				ScheduledTime: scheduledTime,
				Status:        domain.QueueStatusQueued,
			}, false, nil
		},
	}

	app := newEmailTestApp(t, svc, queue)

	reqBody := `{"emailType":"initial","scheduledTime":"2026-09-01T09:00:00Z"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/emails/send/lead-1", reqBody)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["alreadyQueued"] != false {
		t.Fatalf("alreadyQueued = %v, want false", parsed["alreadyQueued"])
	}
	entry, ok := parsed["entry"].(map[string]any)
	if !ok {
		t.Fatalf("entry missing in response: %s", string(body))
	}
	if entry["id"] != "entry-1" {
		t.Fatalf("entry id = %v, want entry-1", entry["id"])
	}
	if entry["status"] != domain.QueueStatusQueued.String() {
		t.Fatalf("entry status = %v, want QUEUED", entry["status"])
	}
}

func TestEmailIntegration_SendEmailDuplicateSuppressed(t *testing.T) {
	t.Parallel()

	svc := &stubEmailService{
		generateFn: func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error) {
			return &service.GenerateResult{
				Email:            sampleEmail("email-1", leadID),
				AlreadyGenerated: true,
			}, nil
		},
	}
	queue := &stubQueueService{
		enqueueFn: func(ctx context.Context, emailID string, scheduledTime time.Time) (*domain.QueueEntry, bool, error) {
			return &domain.QueueEntry{
				ID:      "entry-live",
				EmailID: emailID,
				Status:  domain.QueueStatusQueued,
			}, true, nil
		},
	}

	app := newEmailTestApp(t, svc, queue)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/emails/send/lead-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for suppressed duplicate, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["alreadyQueued"] != true {
		t.Fatalf("alreadyQueued = %v, want true", parsed["alreadyQueued"])
	}
}

func TestEmailIntegration_SendEmailConflict(t *testing.T) {
	t.Parallel()

	svc := &stubEmailService{
		generateFn: func(ctx context.Context, leadID string, emailType domain.EmailType, force bool) (*service.GenerateResult, error) {
			return &service.GenerateResult{Email: sampleEmail("email-1", leadID)}, nil
		},
	}
	queue := &stubQueueService{
		enqueueFn: func(ctx context.Context, emailID string, scheduledTime time.Time) (*domain.QueueEntry, bool, error) {
			return nil, false, domain.ErrConflict
		},
	}

	app := newEmailTestApp(t, svc, queue)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/emails/send/lead-1", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for already sent email", resp.StatusCode)
	}
}

func TestEmailIntegration_ListLeadEmails(t *testing.T) {
	t.Parallel()

	svc := &stubEmailService{
		listByLeadFn: func(ctx context.Context, leadID string) ([]domain.GeneratedEmail, error) {
			if leadID != "lead-1" {
				t.Fatalf("leadID = %q, want lead-1", leadID)
			}
			return []domain.GeneratedEmail{*sampleEmail("email-1", leadID)}, nil
		},
	}

	app := newEmailTestApp(t, svc, &stubQueueService{})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/emails/lead/lead-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Data) != 1 {
		t.Fatalf("data len = %d, want 1", len(parsed.Data))
	}
	if parsed.Data[0]["emailType"] != domain.EmailTypeInitial.String() {
		t.Fatalf("emailType = %v, want initial", parsed.Data[0]["emailType"])
	}
}

func TestEmailIntegration_ListQueue(t *testing.T) {
	t.Parallel()

	queue := &stubQueueService{
		listPendingFn: func(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
			if limit != 5 {
				t.Fatalf("limit = %d, want 5", limit)
			}
			return []domain.QueueEntry{
				{ID: "entry-1", EmailID: "email-1", Status: domain.QueueStatusQueued},
			}, nil
		},
	}

	app := newEmailTestApp(t, &stubEmailService{}, queue)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/emails/queue?limit=5", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/emails/queue?limit=0", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for limit=0", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/emails/queue?limit=500", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized limit", resp.StatusCode)
	}
}

func TestEmailIntegration_ProcessQueue(t *testing.T) {
	t.Parallel()

	queue := &stubQueueService{
		processDueFn: func(ctx context.Context, limit int) (*service.ProcessResult, error) {
			if limit != 20 {
				t.Fatalf("limit = %d, want 20", limit)
			}
			return &service.ProcessResult{Processed: 7, Failed: 3, Total: 10}, nil
		},
	}

	app := newEmailTestApp(t, &stubEmailService{}, queue)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/emails/queue/process?limit=20", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed processQueueResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Processed != 7 || parsed.Failed != 3 || parsed.Total != 10 {
		t.Fatalf("result = %+v, want processed=7,failed=3,total=10", parsed)
	}
}

func TestEmailIntegration_GetQueueEntry(t *testing.T) {
	t.Parallel()

	queue := &stubQueueService{
		getEntryFn: func(ctx context.Context, id string) (*domain.QueueEntry, error) {
			if id == "entry-found" {
				return &domain.QueueEntry{
					ID:      "entry-found",
					EmailID: "email-1",
					Status:  domain.QueueStatusSent,
				}, nil
			}
			return nil, domain.ErrNotFound
		},
	}

	app := newEmailTestApp(t, &stubEmailService{}, queue)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/emails/queue/entry-found", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.QueueStatusSent.String() {
		t.Fatalf("status = %v, want SENT", parsed["status"])
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/emails/queue/not-exists", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEmailIntegration_ListQueueEntryAttempts(t *testing.T) {
	t.Parallel()

	statusCode := 503
	lastError := "provider overloaded"
	queue := &stubQueueService{
		attemptsFn: func(ctx context.Context, entryID string) ([]domain.DeliveryAttempt, error) {
			if entryID != "entry-1" {
				t.Fatalf("entryID = %q, want entry-1", entryID)
			}
			return []domain.DeliveryAttempt{
				{ID: "attempt-1", EntryID: entryID, AttemptNumber: 1, StatusCode: &statusCode, Error: &lastError},
				{ID: "attempt-2", EntryID: entryID, AttemptNumber: 2},
			}, nil
		},
	}

	app := newEmailTestApp(t, &stubEmailService{}, queue)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/emails/queue/entry-1/attempts", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Data) != 2 {
		t.Fatalf("data len = %d, want 2", len(parsed.Data))
	}
	if parsed.Data[0]["attemptNumber"] != float64(1) {
		t.Fatalf("attemptNumber = %v, want 1", parsed.Data[0]["attemptNumber"])
	}
	if parsed.Data[0]["error"] != lastError {
		t.Fatalf("error = %v, want %q", parsed.Data[0]["error"], lastError)
	}
}
