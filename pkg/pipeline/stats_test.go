package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestStats_Empty(t *testing.T) {
	snap := newStats().Snapshot()
	if snap.Iterations != 0 || snap.LatencyMs != 0 || snap.FPS != 0 {
		t.Errorf("empty snapshot = %+v", snap)
	}
}

func TestStats_Observe(t *testing.T) {
	s := newStats()
	s.observe(10*time.Millisecond, 2)
	s.observe(30*time.Millisecond, 1)

	snap := s.Snapshot()
	if snap.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", snap.Iterations)
	}
	if snap.Detections != 1 {
		t.Errorf("Detections = %d, want 1 (last iteration)", snap.Detections)
	}
	if math.Abs(snap.LatencyMs-20) > 1e-9 {
		t.Errorf("LatencyMs = %v, want 20", snap.LatencyMs)
	}
	// Sample std dev of {10, 30}.
	if math.Abs(snap.JitterMs-math.Sqrt(200)) > 1e-9 {
		t.Errorf("JitterMs = %v, want %v", snap.JitterMs, math.Sqrt(200))
	}
	if math.Abs(snap.FPS-50) > 1e-9 {
		t.Errorf("FPS = %v, want 50", snap.FPS)
	}
}

func TestStats_Window(t *testing.T) {
	s := newStats()
	for i := 0; i < statsWindow; i++ {
		s.observe(100*time.Millisecond, 0)
	}
	for i := 0; i < statsWindow; i++ {
		s.observe(10*time.Millisecond, 0)
	}

	snap := s.Snapshot()
	if snap.Iterations != 2*statsWindow {
		t.Errorf("Iterations = %d, want %d", snap.Iterations, 2*statsWindow)
	}
	if math.Abs(snap.LatencyMs-10) > 1e-9 || snap.JitterMs > 1e-9 {
		t.Errorf("latency = %v ± %v, want 10 ± 0 once old samples rolled out", snap.LatencyMs, snap.JitterMs)
	}
}

func TestStats_Counters(t *testing.T) {
	s := newStats()
	s.blank()
	s.blank()
	s.retry()
	s.fail(errors.New("camera 2 gone"))

	snap := s.Snapshot()
	if snap.Blanks != 2 || snap.Retries != 1 {
		t.Errorf("Blanks/Retries = %d/%d, want 2/1", snap.Blanks, snap.Retries)
	}
	if snap.LastError != "camera 2 gone" {
		t.Errorf("LastError = %q", snap.LastError)
	}
}
