package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cms_document_reads_total",
			Help: "Document store reads, by document key and source (cache or storage).",
		},
		[]string{"key", "source"},
	)

	DocumentWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cms_document_writes_total",
			Help: "Successful document writes, by document key and operation (save or update).",
		},
		[]string{"key", "operation"},
	)

	UpdateConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cms_update_conflicts_total",
			Help: "Conditional writes rejected due to a version mismatch, by document key.",
		},
		[]string{"key"},
	)

	UpdateRetriesExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cms_update_retries_exhausted_total",
			Help: "Updates that failed after exhausting the retry budget, by document key.",
		},
		[]string{"key"},
	)

	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cms_rate_limit_rejections_total",
			Help: "Requests rejected by the admission controller, by limiter name.",
		},
		[]string{"limiter"},
	)

	CSRFFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_cms_csrf_failures_total",
			Help: "Mutating requests rejected by CSRF verification.",
		},
	)

	ContentEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_cms_content_events_published_total",
			Help: "Content-change events published, by collection and action.",
		},
		[]string{"collection", "action"},
	)
)

// IncrementDocumentRead records one document read served from the given source.
func IncrementDocumentRead(key, source string) {
	DocumentReadsTotal.WithLabelValues(key, source).Inc()
}

// IncrementDocumentWrite records one successful document write.
func IncrementDocumentWrite(key, operation string) {
	DocumentWritesTotal.WithLabelValues(key, operation).Inc()
}

// IncrementUpdateConflict records one version-mismatch rejection.
func IncrementUpdateConflict(key string) {
	UpdateConflictsTotal.WithLabelValues(key).Inc()
}

// IncrementUpdateRetriesExhausted records one update that ran out of attempts.
func IncrementUpdateRetriesExhausted(key string) {
	UpdateRetriesExhaustedTotal.WithLabelValues(key).Inc()
}

// IncrementRateLimitRejection records one admission-control rejection.
func IncrementRateLimitRejection(limiter string) {
	RateLimitRejectionsTotal.WithLabelValues(limiter).Inc()
}

// IncrementCSRFFailure records one CSRF verification failure.
func IncrementCSRFFailure() {
	CSRFFailuresTotal.Inc()
}

// IncrementContentEventPublished records one published content event.
func IncrementContentEventPublished(collection, action string) {
	ContentEventsPublishedTotal.WithLabelValues(collection, action).Inc()
}
