// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesIngested    prometheus.Counter
	DuplicatesDropped   prometheus.Counter
	SpamDropped         prometheus.Counter
	MalformedDropped    prometheus.Counter
	QueueDrops          prometheus.Counter
	SendsAttempted      prometheus.Counter
	SendsFailed         prometheus.Counter
	CredentialRotations prometheus.Counter
	PollCycles          prometheus.Counter

	// Histograms (seconds)
	SendDuration prometheus.Observer

	// Gauges
	QueueDepthGauge   prometheus.Gauge
	LiveSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_messages_ingested_total", Help: "Chat messages accepted into the outbound queue"})
		DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_duplicates_dropped_total", Help: "Messages dropped because their id was already seen this session"})
		SpamDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_spam_dropped_total", Help: "Messages dropped by the same-author same-text guard"})
		MalformedDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_malformed_dropped_total", Help: "Individual items dropped for missing required fields"})
		QueueDrops = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_queue_drops_total", Help: "Oldest items evicted from a full outbound sub-queue"})
		SendsAttempted = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_sends_attempted_total", Help: "Relay send attempts (parts count individually)"})
		SendsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_sends_failed_total", Help: "Relay send attempts that returned an error"})
		CredentialRotations = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_credential_rotations_total", Help: "Credential pool advances triggered by quota errors"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_poll_cycles_total", Help: "Completed poll iterations across all platforms"})
		SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatrelay_send_duration_seconds", Help: "Relay send duration seconds", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatrelay_queue_depth", Help: "Current number of buffered outbound items"})
		LiveSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatrelay_live_sessions", Help: "Number of platforms currently in a live session"})
	})
}

// SetQueueDepth records the current buffered outbound item count.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// QueueDropped counts one drop-oldest eviction.
func QueueDropped() {
	if QueueDrops != nil {
		QueueDrops.Inc()
	}
}

// ObserveSend records one relay send attempt.
func ObserveSend(d time.Duration, ok bool) {
	if SendsAttempted != nil {
		SendsAttempted.Inc()
	}
	if !ok && SendsFailed != nil {
		SendsFailed.Inc()
	}
	if SendDuration != nil {
		SendDuration.Observe(d.Seconds())
	}
}

// CountIngested counts a message accepted into the queue.
func CountIngested() {
	if MessagesIngested != nil {
		MessagesIngested.Inc()
	}
}

// CountDuplicate counts a message rejected by dedup (spam=true for the
// same-author same-text guard).
func CountDuplicate(spam bool) {
	if spam {
		if SpamDropped != nil {
			SpamDropped.Inc()
		}
		return
	}
	if DuplicatesDropped != nil {
		DuplicatesDropped.Inc()
	}
}

// CountMalformed counts a single dropped malformed item.
func CountMalformed() {
	if MalformedDropped != nil {
		MalformedDropped.Inc()
	}
}

// CountRotation counts one credential pool advance.
func CountRotation() {
	if CredentialRotations != nil {
		CredentialRotations.Inc()
	}
}

// CountPollCycle counts a completed poll iteration.
func CountPollCycle() {
	if PollCycles != nil {
		PollCycles.Inc()
	}
}

// IncLiveSessions records one platform entering a live session.
func IncLiveSessions() {
	if LiveSessionsGauge != nil {
		LiveSessionsGauge.Inc()
	}
}

// DecLiveSessions records one platform leaving its live session.
func DecLiveSessions() {
	if LiveSessionsGauge != nil {
		LiveSessionsGauge.Dec()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
