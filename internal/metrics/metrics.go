// Package metrics exposes the engine's Prometheus instruments. All methods
// are safe on a nil *Set so wiring metrics stays optional in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Set struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsExited    prometheus.Counter
	commitRetries     prometheus.Counter
	commitFailures    prometheus.Counter
	attacksQueued     prometheus.Counter
	attacksConsumed   prometheus.Counter
	perksUsed         *prometheus.CounterVec
	commitDuration    prometheus.Histogram
}

// New registers the instrument set with reg (use prometheus.DefaultRegisterer
// in production).
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "sessions_started_total",
			Help: "Sessions admitted past the guard.",
		}),
		sessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "sessions_completed_total",
			Help: "Sessions that reached the final commit.",
		}),
		sessionsExited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "sessions_exited_total",
			Help: "Sessions abandoned by voluntary quit.",
		}),
		commitRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "commit_retries_total",
			Help: "Leaderboard transactions retried after a conflict.",
		}),
		commitFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "commit_failures_total",
			Help: "Leaderboard transactions that exhausted their retries.",
		}),
		attacksQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "attacks_queued_total",
			Help: "Attack tickets created.",
		}),
		attacksConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "attacks_consumed_total",
			Help: "Attack tickets applied to a starting session.",
		}),
		perksUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizrush", Name: "perks_used_total",
			Help: "Perks consumed, by kind.",
		}, []string{"kind"}),
		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizrush", Name: "commit_duration_seconds",
			Help:    "Wall time of the leaderboard commit including retries.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (s *Set) SessionStarted() {
	if s != nil {
		s.sessionsStarted.Inc()
	}
}

func (s *Set) SessionCompleted() {
	if s != nil {
		s.sessionsCompleted.Inc()
	}
}

func (s *Set) SessionExited() {
	if s != nil {
		s.sessionsExited.Inc()
	}
}

func (s *Set) CommitRetry() {
	if s != nil {
		s.commitRetries.Inc()
	}
}

func (s *Set) CommitFailed() {
	if s != nil {
		s.commitFailures.Inc()
	}
}

func (s *Set) AttackQueued() {
	if s != nil {
		s.attacksQueued.Inc()
	}
}

func (s *Set) AttackConsumed() {
	if s != nil {
		s.attacksConsumed.Inc()
	}
}

func (s *Set) PerkUsed(kind string) {
	if s != nil {
		s.perksUsed.WithLabelValues(kind).Inc()
	}
}

func (s *Set) ObserveCommit(seconds float64) {
	if s != nil {
		s.commitDuration.Observe(seconds)
	}
}
