package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec

	ballotsTotal          *prometheus.CounterVec
	ballotLatencySeconds  prometheus.Histogram
	electionTransitions   *prometheus.CounterVec
	resultsCacheTotal     *prometheus.CounterVec
	resultsExportsTotal   *prometheus.CounterVec
	liveSubscribersActive prometheus.Gauge
	liveEventsTotal       *prometheus.CounterVec
	mailDeliveriesTotal   *prometheus.CounterVec
	uploadRequestsTotal   *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram

	announcementsRequestsTotal *prometheus.CounterVec
	announcementsLatency       prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		ballotsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_ballots_total",
			Help: "Ballot submissions by outcome.",
		}, []string{"outcome"})

		ballotLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evote_ballot_latency_seconds",
			Help:    "Time spent validating and storing a ballot.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		electionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_election_transitions_total",
			Help: "Election state transitions by name and trigger.",
		}, []string{"transition", "trigger"})

		resultsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_results_cache_total",
			Help: "Results cache lookups by outcome.",
		}, []string{"result"})

		resultsExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_results_exports_total",
			Help: "Results exports by format.",
		}, []string{"format"})

		liveSubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evote_live_subscribers",
			Help: "Open live result streams.",
		})

		liveEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_live_events_total",
			Help: "Live events delivered to local subscribers by type.",
		}, []string{"type"})

		mailDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_mail_deliveries_total",
			Help: "Outgoing voter e-mails by kind and outcome.",
		}, []string{"kind", "outcome"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_uploads_total",
			Help: "Stored uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_uploads_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evote_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		announcementsRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evote_announcements_requests_total",
			Help: "Public announcement list requests by cache outcome.",
		}, []string{"result"})

		announcementsLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evote_announcements_latency_seconds",
			Help:    "Latency of public announcement listing.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			adminRequestsTotal, adminLatencySeconds, adminErrorsTotal,
			ballotsTotal, ballotLatencySeconds, electionTransitions,
			resultsCacheTotal, resultsExportsTotal,
			liveSubscribersActive, liveEventsTotal, mailDeliveriesTotal,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
			announcementsRequestsTotal, announcementsLatency,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// Ballots exposes the ballot submission counter.
func Ballots() *prometheus.CounterVec {
	RegisterMetrics()
	return ballotsTotal
}

// BallotLatency exposes the ballot latency histogram.
func BallotLatency() prometheus.Histogram {
	RegisterMetrics()
	return ballotLatencySeconds
}

// ElectionTransitions exposes the election transition counter.
func ElectionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return electionTransitions
}

// ResultsCache exposes the results cache counter.
func ResultsCache() *prometheus.CounterVec {
	RegisterMetrics()
	return resultsCacheTotal
}

// ResultsExports exposes the export counter.
func ResultsExports() *prometheus.CounterVec {
	RegisterMetrics()
	return resultsExportsTotal
}

// LiveSubscribers exposes the open stream gauge.
func LiveSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return liveSubscribersActive
}

// LiveEvents exposes the live event counter.
func LiveEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return liveEventsTotal
}

// MailDeliveries exposes the mail delivery counter.
func MailDeliveries() *prometheus.CounterVec {
	RegisterMetrics()
	return mailDeliveriesTotal
}

func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// AnnouncementsRequests exposes the announcement list counter.
func AnnouncementsRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return announcementsRequestsTotal
}

// AnnouncementsLatency exposes the announcement list latency histogram.
func AnnouncementsLatency() prometheus.Histogram {
	RegisterMetrics()
	return announcementsLatency
}
