package voice

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()

	updates := make(chan Metrics, 4)
	m.OnUpdate(func(x Metrics) { updates <- x })

	m.Begin("one")
	time.Sleep(2 * time.Millisecond)
	m.MarkFrameSent()
	m.MarkFrameSent()
	m.MarkFrameDropped()
	m.End(nil, false)

	cur := m.Current()
	if cur.ID != "one" || cur.FramesSent != 2 || cur.FramesDropped != 1 {
		t.Errorf("unexpected metrics %+v", cur)
	}
	if cur.FirstFrameLatency <= 0 {
		t.Error("expected positive first-frame latency")
	}
	if cur.Duration < cur.FirstFrameLatency {
		t.Error("duration should cover first-frame latency")
	}

	// first frame + end
	for i := 0; i < 2; i++ {
		select {
		case <-updates:
		case <-time.After(time.Second):
			t.Fatal("missing update")
		}
	}

	m.Begin("two")
	m.End(errors.New("boom"), false)

	hist := m.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[1].Error != "boom" {
		t.Errorf("expected error recorded, got %q", hist[1].Error)
	}

	// "two" never produced audio so it is excluded from the average.
	avg := m.Average()
	if avg.FramesSent != 2 {
		t.Errorf("average frames = %d, want 2", avg.FramesSent)
	}
}

func TestMetricsHistoryBounded(t *testing.T) {
	m := NewMetricsCollector()
	for i := 0; i < metricsHistory+10; i++ {
		m.Begin("x")
		m.End(nil, true)
	}
	if got := len(m.History()); got != metricsHistory {
		t.Errorf("history length = %d, want %d", got, metricsHistory)
	}
	if avg := m.Average(); avg != (Metrics{}) {
		t.Errorf("expected empty average, got %+v", avg)
	}
}

func TestFormatLatency(t *testing.T) {
	m := Metrics{FirstFrameLatency: 120 * time.Millisecond}
	got := m.FormatLatency()
	if !strings.Contains(got, "120ms first frame") || !strings.Contains(got, "---ms total") {
		t.Errorf("unexpected format %q", got)
	}
}
