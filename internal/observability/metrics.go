package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and pipeline flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	leadsScrapedTotal        *prometheus.CounterVec
	emailsGeneratedTotal     *prometheus.CounterVec
	emailsSentTotal          *prometheus.CounterVec
	emailsFailedTotal        *prometheus.CounterVec
	emailSendDuration        prometheus.Histogram
	retryScheduledTotal      prometheus.Counter
	websiteLookupsTotal      *prometheus.CounterVec
	websiteScrapesTotal      *prometheus.CounterVec
	followupsScheduledTotal  *prometheus.CounterVec
	followupsSuppressedTotal *prometheus.CounterVec
	workerInflight           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		leadsScrapedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "leads_scraped_total",
				Help:      "Total number of leads ingested grouped by scraping source.",
			},
			[]string{"source"},
		),
		emailsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "emails_generated_total",
				Help:      "Total number of emails drafted grouped by email type.",
			},
			[]string{"type"},
		),
		emailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "emails_sent_total",
				Help:      "Total number of emails delivered grouped by email type.",
			},
			[]string{"type"},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "emails_failed_total",
				Help:      "Total number of emails that ended in failed state by type and reason.",
			},
			[]string{"type", "reason"},
		),
		emailSendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "email_send_duration_seconds",
				Help:      "Provider send duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		retryScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "retry_scheduled_total",
				Help:      "Total number of deliveries rescheduled for retry.",
			},
		),
		websiteLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "website_lookups_total",
				Help:      "Website artifact lookups grouped by result.",
			},
			[]string{"result"},
		),
		websiteScrapesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "website_scrapes_total",
				Help:      "Live website scrapes grouped by result.",
			},
			[]string{"result"},
		),
		followupsScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "followups_scheduled_total",
				Help:      "Total number of follow-up tasks scheduled grouped by type.",
			},
			[]string{"type"},
		),
		followupsSuppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "followups_suppressed_total",
				Help:      "Total number of follow-up tasks suppressed by an observed reply.",
			},
			[]string{"type"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "outreach_engine",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight worker operations grouped by stage.",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.leadsScrapedTotal,
		m.emailsGeneratedTotal,
		m.emailsSentTotal,
		m.emailsFailedTotal,
		m.emailSendDuration,
		m.retryScheduledTotal,
		m.websiteLookupsTotal,
		m.websiteScrapesTotal,
		m.followupsScheduledTotal,
		m.followupsSuppressedTotal,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) AddLeadsScraped(source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.leadsScrapedTotal.WithLabelValues(normalizeLabel(source)).Add(float64(count))
}

func (m *Metrics) IncEmailGenerated(emailType string) {
	if m == nil {
		return
	}
	m.emailsGeneratedTotal.WithLabelValues(normalizeLabel(emailType)).Inc()
}

func (m *Metrics) IncEmailSent(emailType string) {
	if m == nil {
		return
	}
	m.emailsSentTotal.WithLabelValues(normalizeLabel(emailType)).Inc()
}

func (m *Metrics) IncEmailFailed(emailType string, reason string) {
	if m == nil {
		return
	}
	m.emailsFailedTotal.WithLabelValues(normalizeLabel(emailType), normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveSendDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.emailSendDuration.Observe(seconds)
}

func (m *Metrics) IncRetryScheduled() {
	if m == nil {
		return
	}
	m.retryScheduledTotal.Inc()
}

func (m *Metrics) IncWebsiteLookup(result string) {
	if m == nil {
		return
	}
	m.websiteLookupsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncWebsiteScrape(result string) {
	if m == nil {
		return
	}
	m.websiteScrapesTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncFollowupScheduled(followupType string) {
	if m == nil {
		return
	}
	m.followupsScheduledTotal.WithLabelValues(normalizeLabel(followupType)).Inc()
}

func (m *Metrics) IncFollowupSuppressed(followupType string) {
	if m == nil {
		return
	}
	m.followupsSuppressedTotal.WithLabelValues(normalizeLabel(followupType)).Inc()
}

func (m *Metrics) IncWorkerInFlight(stage string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(stage)).Inc()
}

func (m *Metrics) DecWorkerInFlight(stage string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(stage)).Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
