package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsPipelineCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.AddLeadsScraped("Apollo", 3)
	metrics.IncEmailGenerated("initial")
	metrics.IncEmailSent("initial")
	metrics.IncEmailFailed("initial", "permanent_error")
	metrics.ObserveSendDuration(120 * time.Millisecond)
	metrics.IncRetryScheduled()
	metrics.IncWebsiteLookup("cache_hit")
	metrics.IncWebsiteScrape("success")
	metrics.IncFollowupScheduled("followup_5day")
	metrics.IncFollowupSuppressed("followup_5day")
	metrics.IncWorkerInFlight("send")
	metrics.DecWorkerInFlight("send")

	if got := testutil.ToFloat64(metrics.leadsScrapedTotal.WithLabelValues("apollo")); got != 3 {
		t.Fatalf("leads_scraped_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.emailsGeneratedTotal.WithLabelValues("initial")); got != 1 {
		t.Fatalf("emails_generated_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.emailsSentTotal.WithLabelValues("initial")); got != 1 {
		t.Fatalf("emails_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.emailsFailedTotal.WithLabelValues("initial", "permanent_error")); got != 1 {
		t.Fatalf("emails_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.retryScheduledTotal); got != 1 {
		t.Fatalf("retry_scheduled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.websiteLookupsTotal.WithLabelValues("cache_hit")); got != 1 {
		t.Fatalf("website_lookups_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.followupsSuppressedTotal.WithLabelValues("followup_5day")); got != 1 {
		t.Fatalf("followups_suppressed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.workerInflight.WithLabelValues("send")); got != 0 {
		t.Fatalf("worker_inflight = %v, want 0", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics

	metrics.AddLeadsScraped("apollo", 1)
	metrics.IncEmailSent("initial")
	metrics.IncRetryScheduled()
	metrics.DecWorkerInFlight("send")

	if metrics.Handler() == nil {
		t.Fatal("nil metrics should still serve a handler")
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareSkipsMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/metrics", "200")); got != 0 {
		t.Fatalf("http_requests_total = %v, want 0 for self scrape", got)
	}
}
