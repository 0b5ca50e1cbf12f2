package trigger

import (
	"sync"
	"time"
)

// Samples closer together than this are dropped before evaluation, so a
// burst of near-duplicate accelerometer readings cannot stack into a
// phantom spike.
const MIN_SAMPLE_GAP = 100 * time.Millisecond

// MotionReading is one accelerometer sample from the device.
type MotionReading struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MotionMonitor watches a stream of accelerometer readings and fires when
// the summed axis deltas between consecutive samples exceed the threshold.
// After firing it stays quiet for the cooldown window.
type MotionMonitor struct {
	mu        sync.Mutex
	active    bool
	threshold float64
	cooldown  time.Duration

	primed    bool
	last      MotionReading
	lastAt    time.Time
	lastFired time.Time

	now func() time.Time
}

func NewMotionMonitor(threshold float64, cooldown time.Duration) *MotionMonitor {
	return &MotionMonitor{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (m *MotionMonitor) SetActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = active
	if !active {
		m.primed = false
	}
}

func (m *MotionMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active
}

// Observe feeds one reading through the state machine. It returns the
// movement magnitude and whether this sample tripped the alarm. The first
// sample after arming only primes the baseline.
func (m *MotionMonitor) Observe(reading MotionReading) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return 0, false
	}

	now := m.now()
	if m.primed && now.Sub(m.lastAt) < MIN_SAMPLE_GAP {
		return 0, false
	}

	if !m.primed {
		m.primed = true
		m.last = reading
		m.lastAt = now
		return 0, false
	}

	magnitude := abs(reading.X-m.last.X) + abs(reading.Y-m.last.Y) + abs(reading.Z-m.last.Z)
	m.last = reading
	m.lastAt = now

	if magnitude <= m.threshold {
		return magnitude, false
	}

	if !m.lastFired.IsZero() && now.Sub(m.lastFired) < m.cooldown {
		return magnitude, false
	}

	m.lastFired = now
	return magnitude, true
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}
