// Package metrics holds the Prometheus instruments of the contest backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dkaggle"

// Submission outcomes used as the "outcome" label.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeClosed   = "closed"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Recorder groups the counters and histograms. A nil *Recorder records nothing,
// so components can be built without metrics in tests.
type Recorder struct {
	submissions      *prometheus.CounterVec
	versionConflicts prometheus.Counter
	upsertLatency    prometheus.Histogram
	contestsCreated  prometheus.Counter
	contestsExpired  prometheus.Counter
	leaderboardSize  *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Leaderboard submissions by outcome.",
		}, []string{"outcome"}),
		versionConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_version_conflicts_total",
			Help:      "Leaderboard writes that lost a compare-and-swap and were retried.",
		}),
		upsertLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_upsert_seconds",
			Help:      "Time to read, re-rank and write a leaderboard.",
			Buckets:   prometheus.DefBuckets,
		}),
		contestsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contests_created_total",
			Help:      "Contests created by hosts or seed files.",
		}),
		contestsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contests_expired_total",
			Help:      "Contests moved from ongoing to past by the sweeper.",
		}),
		leaderboardSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leaderboard_participants",
			Help:      "Participants on a contest leaderboard after its last write.",
		}, []string{"contest"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by server, route and status.",
		}, []string{"server", "route", "status"}),
	}
}

func (r *Recorder) Submission(outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) VersionConflict() {
	if r == nil {
		return
	}
	r.versionConflicts.Inc()
}

func (r *Recorder) ObserveUpsert(d time.Duration) {
	if r == nil {
		return
	}
	r.upsertLatency.Observe(d.Seconds())
}

func (r *Recorder) ContestCreated() {
	if r == nil {
		return
	}
	r.contestsCreated.Inc()
}

func (r *Recorder) ContestsExpired(n int) {
	if r == nil {
		return
	}
	r.contestsExpired.Add(float64(n))
}

func (r *Recorder) LeaderboardSize(contestID string, n int) {
	if r == nil {
		return
	}
	r.leaderboardSize.WithLabelValues(contestID).Set(float64(n))
}

func (r *Recorder) HTTPRequest(server, route, status string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(server, route, status).Inc()
}
