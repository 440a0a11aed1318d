// Package metrics implements a prometheus.Collector that a caller wires
// into sessions via the session.Observer hook (§4.16), so the core
// session engine never imports prometheus itself — it only calls back
// into whatever Observer it was given, the same one-directional layering
// the teacher keeps between internal/session and internal/server.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sessionCounts tracks the running totals for one session label.
type sessionCounts struct {
	matches        float64
	timeouts       float64
	eofs           float64
	bytesDiscarded float64
}

// SessionCollector implements prometheus.Collector and session.Observer,
// grounded on runZeroInc-sockstats's TCPInfoCollector shape: a small
// mutex-guarded map of per-label counters, reported as Prometheus metrics
// on every Collect call rather than pushed through a client on every
// event.
type SessionCollector struct {
	mu    sync.Mutex
	byID  map[string]*sessionCounts
	start map[string]time.Time

	activeSessions    *prometheus.Desc
	matchesTotal      *prometheus.Desc
	timeoutsTotal     *prometheus.Desc
	eofTotal          *prometheus.Desc
	bytesDiscarded    *prometheus.Desc
	sessionUptimeDesc *prometheus.Desc
}

// New returns a SessionCollector with no sessions registered yet. Register
// the result with a *prometheus.Registry, then pass it to
// session.Builder.Observe for each session it should track.
func New(constLabels prometheus.Labels) *SessionCollector {
	return &SessionCollector{
		byID:  make(map[string]*sessionCounts),
		start: make(map[string]time.Time),
		activeSessions: prometheus.NewDesc(
			"expect_active_sessions", "Number of sessions currently tracked.",
			nil, constLabels),
		matchesTotal: prometheus.NewDesc(
			"expect_matches_total", "Total successful pattern matches.",
			[]string{"session_id"}, constLabels),
		timeoutsTotal: prometheus.NewDesc(
			"expect_timeouts_total", "Total expect calls that timed out.",
			[]string{"session_id"}, constLabels),
		eofTotal: prometheus.NewDesc(
			"expect_eof_total", "Total EOF observations.",
			[]string{"session_id"}, constLabels),
		bytesDiscarded: prometheus.NewDesc(
			"expect_buffer_bytes_discarded_total", "Total bytes dropped on ring-buffer overflow.",
			[]string{"session_id"}, constLabels),
		sessionUptimeDesc: prometheus.NewDesc(
			"expect_session_uptime_seconds", "Seconds since a session started being tracked.",
			[]string{"session_id"}, constLabels),
	}
}

func (c *SessionCollector) entry(id string) *sessionCounts {
	e, ok := c.byID[id]
	if !ok {
		e = &sessionCounts{}
		c.byID[id] = e
		c.start[id] = time.Now()
	}
	return e
}

// OnMatch implements session.Observer.
func (c *SessionCollector) OnMatch(sessionID string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(sessionID).matches++
}

// OnTimeout implements session.Observer.
func (c *SessionCollector) OnTimeout(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(sessionID).timeouts++
}

// OnEOF implements session.Observer.
func (c *SessionCollector) OnEOF(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(sessionID).eofs++
}

// OnBytesDiscarded implements session.Observer.
func (c *SessionCollector) OnBytesDiscarded(sessionID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(sessionID).bytesDiscarded += float64(n)
}

// Forget removes a session's counters, for callers that want bounded
// cardinality after a session closes rather than an ever-growing label
// set.
func (c *SessionCollector) Forget(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, sessionID)
	delete(c.start, sessionID)
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.activeSessions
	descs <- c.matchesTotal
	descs <- c.timeoutsTotal
	descs <- c.eofTotal
	descs <- c.bytesDiscarded
	descs <- c.sessionUptimeDesc
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics <- prometheus.MustNewConstMetric(c.activeSessions, prometheus.GaugeValue, float64(len(c.byID)))

	for id, counts := range c.byID {
		metrics <- prometheus.MustNewConstMetric(c.matchesTotal, prometheus.CounterValue, counts.matches, id)
		metrics <- prometheus.MustNewConstMetric(c.timeoutsTotal, prometheus.CounterValue, counts.timeouts, id)
		metrics <- prometheus.MustNewConstMetric(c.eofTotal, prometheus.CounterValue, counts.eofs, id)
		metrics <- prometheus.MustNewConstMetric(c.bytesDiscarded, prometheus.CounterValue, counts.bytesDiscarded, id)
		metrics <- prometheus.MustNewConstMetric(c.sessionUptimeDesc, prometheus.GaugeValue, time.Since(c.start[id]).Seconds(), id)
	}
}
