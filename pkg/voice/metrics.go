package voice

import (
	"sync"
	"time"
)

// Metrics tracks timing for one playback.
// Latencies are measured from the moment Play handed the stream to the player.
type Metrics struct {
	ID string `json:"id"`

	// Timestamps for key events
	RequestedAt  time.Time `json:"requestedAt"`
	FirstFrameAt time.Time `json:"firstFrameAt"`
	EndedAt      time.Time `json:"endedAt"`

	// Computed latencies
	FirstFrameLatency time.Duration `json:"firstFrameLatency"`
	Duration          time.Duration `json:"duration"`

	// Frame counts
	FramesSent    int `json:"framesSent"`
	FramesDropped int `json:"framesDropped"`

	Preempted bool   `json:"preempted"`
	Error     string `json:"error,omitempty"`
}

// MetricsCollector collects per-playback metrics. It is goroutine-safe.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
	history []Metrics

	onUpdate func(Metrics)
}

const metricsHistory = 100

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]Metrics, 0, metricsHistory),
	}
}

// OnUpdate sets a callback fired when a playback starts producing audio
// and when it ends.
func (m *MetricsCollector) OnUpdate(fn func(Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Begin resets the current record for a new playback.
func (m *MetricsCollector) Begin(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Metrics{ID: id, RequestedAt: time.Now()}
}

// MarkFrameSent counts a delivered frame and records the first one.
func (m *MetricsCollector) MarkFrameSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.FramesSent++
	if m.current.FirstFrameAt.IsZero() {
		m.current.FirstFrameAt = time.Now()
		m.current.FirstFrameLatency = m.current.FirstFrameAt.Sub(m.current.RequestedAt)
		m.notify()
	}
}

// MarkFrameDropped counts a frame that had nowhere to go.
func (m *MetricsCollector) MarkFrameDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.FramesDropped++
}

// End closes the current record and archives it.
func (m *MetricsCollector) End(err error, preempted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.EndedAt = time.Now()
	m.current.Duration = m.current.EndedAt.Sub(m.current.RequestedAt)
	m.current.Preempted = preempted
	if err != nil {
		m.current.Error = err.Error()
	}
	m.history = append(m.history, m.current)
	if len(m.history) > metricsHistory {
		m.history = m.history[1:]
	}
	m.notify()
}

// Current returns the current metrics snapshot.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// History returns finished playbacks, oldest first.
func (m *MetricsCollector) History() []Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Metrics, len(m.history))
	copy(out, m.history)
	return out
}

// Average returns mean latencies over finished playbacks that produced audio.
func (m *MetricsCollector) Average() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg Metrics
	n := 0
	for _, h := range m.history {
		if h.FirstFrameAt.IsZero() {
			continue
		}
		avg.FirstFrameLatency += h.FirstFrameLatency
		avg.Duration += h.Duration
		avg.FramesSent += h.FramesSent
		avg.FramesDropped += h.FramesDropped
		n++
	}
	if n == 0 {
		return Metrics{}
	}

	avg.FirstFrameLatency /= time.Duration(n)
	avg.Duration /= time.Duration(n)
	avg.FramesSent /= n
	avg.FramesDropped /= n
	return avg
}

// notify calls the update callback if set.
// Must be called with mutex held.
func (m *MetricsCollector) notify() {
	if m.onUpdate != nil {
		metrics := m.current
		go m.onUpdate(metrics)
	}
}

// FormatLatency returns a one-line summary.
func (m *Metrics) FormatLatency() string {
	return formatDuration(m.FirstFrameLatency) + " first frame | " +
		formatDuration(m.Duration) + " total"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
