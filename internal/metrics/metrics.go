// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceived counts accepted webhook deliveries by event name.
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answerbot_webhooks_received_total",
		Help: "Webhook deliveries received, by event.",
	}, []string{"event"})

	// DiscussionsProcessed counts pipeline completions by outcome.
	DiscussionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answerbot_discussions_processed_total",
		Help: "Discussions taken off the queue, by outcome.",
	}, []string{"outcome"})

	// DiscussionsSkipped counts skips by classifier category or filter reason.
	DiscussionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answerbot_discussions_skipped_total",
		Help: "Discussions skipped before answering, by reason.",
	}, []string{"reason"})

	// AnswersPublished counts replies written to the forum.
	AnswersPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "answerbot_answers_published_total",
		Help: "Replies published to the forum.",
	})

	// KnowledgeLookups counts knowledge endpoint calls by tool and result.
	KnowledgeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "answerbot_knowledge_lookups_total",
		Help: "Knowledge endpoint lookups, by tool and result.",
	}, []string{"tool", "result"})

	// SynthesisFallbacks counts replies that fell back to the canned answer.
	SynthesisFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "answerbot_synthesis_fallbacks_total",
		Help: "Replies that used the fallback answer.",
	})

	// ProcessingDuration observes end-to-end per-discussion latency.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "answerbot_processing_duration_seconds",
		Help:    "End-to-end processing time per discussion.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

// Outcome labels for DiscussionsProcessed.
const (
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)
