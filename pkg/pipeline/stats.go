package pipeline

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// statsWindow is how many recent iterations the latency figures cover.
const statsWindow = 120

// Stats tracks iteration latency over a sliding window.
type Stats struct {
	mu         sync.Mutex
	latencies  []float64 // milliseconds, ring buffer
	next       int
	iterations uint64
	detections int
	blanks     uint64
	retries    uint64
	lastErr    string
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Iterations uint64  `json:"iterations"`
	Detections int     `json:"detections"` // In the last iteration
	Blanks     uint64  `json:"blanks"`     // Tiles substituted under PolicyBlank
	Retries    uint64  `json:"retries"`    // Extra fetch attempts under PolicyRetry
	LatencyMs  float64 `json:"latency_ms"`
	JitterMs   float64 `json:"jitter_ms"`
	FPS        float64 `json:"fps"`
	LastError  string  `json:"last_error,omitempty"`
}

func newStats() *Stats {
	return &Stats{latencies: make([]float64, 0, statsWindow)}
}

// observe records one completed iteration.
func (s *Stats) observe(d time.Duration, detections int) {
	ms := float64(d) / float64(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.latencies) < statsWindow {
		s.latencies = append(s.latencies, ms)
	} else {
		s.latencies[s.next] = ms
	}
	s.next = (s.next + 1) % statsWindow
	s.iterations++
	s.detections = detections
}

func (s *Stats) blank() {
	s.mu.Lock()
	s.blanks++
	s.mu.Unlock()
}

func (s *Stats) retry() {
	s.mu.Lock()
	s.retries++
	s.mu.Unlock()
}

func (s *Stats) fail(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// Snapshot returns the current figures.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Iterations: s.iterations,
		Detections: s.detections,
		Blanks:     s.blanks,
		Retries:    s.retries,
		LastError:  s.lastErr,
	}
	switch len(s.latencies) {
	case 0:
	case 1:
		snap.LatencyMs = s.latencies[0]
	default:
		snap.LatencyMs, snap.JitterMs = stat.MeanStdDev(s.latencies, nil)
	}
	if snap.LatencyMs > 0 {
		snap.FPS = 1000 / snap.LatencyMs
	}
	return snap
}
