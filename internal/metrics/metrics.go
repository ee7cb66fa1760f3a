package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PollMetrics tracks vote recording outcomes and store contention.
// A nil *PollMetrics is valid and records nothing.
type PollMetrics struct {
	VotesRecorded  *prometheus.CounterVec
	VotesRejected  *prometheus.CounterVec
	StoreConflicts prometheus.Counter
	StoreTimeouts  prometheus.Counter
	VoteDuration   prometheus.Histogram
	ActivityFailed prometheus.Counter
}

// NewPollMetrics registers the poll metrics on reg.
func NewPollMetrics(reg prometheus.Registerer, namespace string) *PollMetrics {
	f := promauto.With(reg)
	return &PollMetrics{
		VotesRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "polls",
				Name:      "votes_recorded_total",
				Help:      "Votes written to polls, by poll mode",
			},
			[]string{"mode"},
		),
		VotesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "polls",
				Name:      "votes_rejected_total",
				Help:      "Vote requests refused, by reason",
			},
			[]string{"reason"},
		),
		StoreConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "conflicts_total",
			Help:      "Conditional poll writes that lost to a concurrent writer",
		}),
		StoreTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "timeouts_total",
			Help:      "Store calls that exceeded their deadline",
		}),
		VoteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "polls",
			Name:      "vote_duration_seconds",
			Help:      "Time to record a vote including conflict retries",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		ActivityFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "enqueue_failures_total",
			Help:      "Poll activity jobs that could not be enqueued",
		}),
	}
}

// VoteRecorded counts n votes written to a poll in the given mode.
func (m *PollMetrics) VoteRecorded(multiple bool, n int) {
	if m == nil {
		return
	}
	mode := "single"
	if multiple {
		mode = "multiple"
	}
	m.VotesRecorded.WithLabelValues(mode).Add(float64(n))
}

// VoteRejected counts a refused vote.
func (m *PollMetrics) VoteRejected(reason string) {
	if m == nil {
		return
	}
	m.VotesRejected.WithLabelValues(reason).Inc()
}

// Conflict counts a lost conditional write.
func (m *PollMetrics) Conflict() {
	if m == nil {
		return
	}
	m.StoreConflicts.Inc()
}

// Timeout counts an expired store deadline.
func (m *PollMetrics) Timeout() {
	if m == nil {
		return
	}
	m.StoreTimeouts.Inc()
}

// ObserveVote records how long a vote took.
func (m *PollMetrics) ObserveVote(start time.Time) {
	if m == nil {
		return
	}
	m.VoteDuration.Observe(time.Since(start).Seconds())
}

// ActivityEnqueueFailed counts a dropped activity job.
func (m *PollMetrics) ActivityEnqueueFailed() {
	if m == nil {
		return
	}
	m.ActivityFailed.Inc()
}
