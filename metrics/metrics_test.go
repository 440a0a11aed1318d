package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func collectMetric(t *testing.T, c *SessionCollector, name, sessionID string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 32)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("write: %v", err)
		}
		desc := m.Desc().String()
		if !contains(desc, name) {
			continue
		}
		for _, lp := range pb.Label {
			if lp.GetName() == "session_id" && lp.GetValue() == sessionID {
				return &pb
			}
		}
	}
	return nil
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func TestOnMatchIncrementsCounter(t *testing.T) {
	c := New(nil)
	c.OnMatch("sess_1", 10*time.Millisecond)
	c.OnMatch("sess_1", 10*time.Millisecond)

	m := collectMetric(t, c, "matches_total", "sess_1")
	if m == nil {
		t.Fatal("expected a matches_total metric for sess_1")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Fatalf("got %v want 2", got)
	}
}

func TestForgetRemovesSession(t *testing.T) {
	c := New(nil)
	c.OnEOF("sess_2")
	c.Forget("sess_2")

	m := collectMetric(t, c, "eof_total", "sess_2")
	if m != nil {
		t.Fatal("expected no metric after Forget")
	}
}

func TestActiveSessionsReflectsTrackedCount(t *testing.T) {
	c := New(nil)
	c.OnMatch("a", 0)
	c.OnMatch("b", 0)

	ch := make(chan prometheus.Metric, 32)
	c.Collect(ch)
	close(ch)
	var found bool
	for m := range ch {
		if contains(m.Desc().String(), "active_sessions") {
			var pb dto.Metric
			if err := m.Write(&pb); err != nil {
				t.Fatalf("write: %v", err)
			}
			if pb.GetGauge().GetValue() != 2 {
				t.Fatalf("got %v want 2", pb.GetGauge().GetValue())
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected an active_sessions metric")
	}
}
