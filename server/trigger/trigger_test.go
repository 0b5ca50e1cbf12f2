package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/shared"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestMotionMonitor(threshold float64, cooldown time.Duration) (*MotionMonitor, *fakeClock) {
	clock := &fakeClock{current: time.Now()}
	monitor := NewMotionMonitor(threshold, cooldown)
	monitor.now = clock.now
	monitor.SetActive(true)
	return monitor, clock
}

func TestMotionFiresOnceAboveThreshold(t *testing.T) {
	monitor, clock := newTestMotionMonitor(30, 30*time.Second)

	// First sample only primes the baseline.
	_, fired := monitor.Observe(MotionReading{X: 0, Y: 0, Z: 9.8})
	assert.False(t, fired)

	clock.advance(200 * time.Millisecond)
	magnitude, fired := monitor.Observe(MotionReading{X: 20, Y: 15, Z: 9.8})
	assert.True(t, fired)
	assert.InDelta(t, 35, magnitude, 0.001)

	// Still shaking, but inside the cooldown window.
	clock.advance(200 * time.Millisecond)
	_, fired = monitor.Observe(MotionReading{X: -20, Y: -15, Z: 9.8})
	assert.False(t, fired)

	clock.advance(5 * time.Second)
	_, fired = monitor.Observe(MotionReading{X: 20, Y: 15, Z: 9.8})
	assert.False(t, fired)

	// Cooldown expired.
	clock.advance(30 * time.Second)
	_, fired = monitor.Observe(MotionReading{X: -20, Y: -15, Z: 9.8})
	assert.True(t, fired)
}

func TestMotionIgnoresSamplesBelowThreshold(t *testing.T) {
	monitor, clock := newTestMotionMonitor(30, 30*time.Second)

	monitor.Observe(MotionReading{X: 0, Y: 0, Z: 9.8})

	clock.advance(200 * time.Millisecond)
	magnitude, fired := monitor.Observe(MotionReading{X: 10, Y: 10, Z: 19.8})
	assert.False(t, fired)
	assert.InDelta(t, 30, magnitude, 0.001)
}

func TestMotionDropsSamplesInsideMinGap(t *testing.T) {
	monitor, clock := newTestMotionMonitor(30, 30*time.Second)

	monitor.Observe(MotionReading{X: 0, Y: 0, Z: 9.8})

	clock.advance(50 * time.Millisecond)
	_, fired := monitor.Observe(MotionReading{X: 50, Y: 50, Z: 9.8})
	assert.False(t, fired)

	// The dropped sample must not have shifted the baseline.
	clock.advance(100 * time.Millisecond)
	_, fired = monitor.Observe(MotionReading{X: 50, Y: 50, Z: 9.8})
	assert.True(t, fired)
}

func TestMotionInactiveNeverFires(t *testing.T) {
	monitor, clock := newTestMotionMonitor(30, 30*time.Second)
	monitor.SetActive(false)

	monitor.Observe(MotionReading{X: 0, Y: 0, Z: 9.8})
	clock.advance(200 * time.Millisecond)
	_, fired := monitor.Observe(MotionReading{X: 100, Y: 100, Z: 100})
	assert.False(t, fired)
}

func TestSpeechMatchesKeywordsCaseInsensitive(t *testing.T) {
	clock := &fakeClock{current: time.Now()}
	monitor := NewSpeechMonitor(nil, 5*time.Second)
	monitor.now = clock.now
	monitor.SetActive(true)

	keyword, fired := monitor.Observe("Socorro, me ajudem!")
	assert.True(t, fired)
	assert.Equal(t, "socorro", keyword)

	// Second chunk of the same sentence lands inside the holdoff.
	clock.advance(2 * time.Second)
	_, fired = monitor.Observe("preciso de ajuda")
	assert.False(t, fired)

	clock.advance(5 * time.Second)
	keyword, fired = monitor.Observe("chama a POLÍCIA")
	assert.True(t, fired)
	assert.Equal(t, "polícia", keyword)

	_, fired = monitor.Observe("tudo tranquilo por aqui")
	assert.False(t, fired)
}

func TestRegistryAppliesSettingsAndDefaults(t *testing.T) {
	registry := NewRegistry(shared.DispatchConfig{})

	setting := &models.TriggerSetting{
		UserID:                1,
		MotionActive:          true,
		SoundActive:           false,
		MotionThreshold:       50,
		MotionCooldownSeconds: 10,
	}

	motion := registry.MotionMonitorFor(1, setting)
	assert.True(t, motion.Active())
	assert.Equal(t, float64(50), motion.threshold)
	assert.Equal(t, 10*time.Second, motion.cooldown)

	speech := registry.SpeechMonitorFor(1, setting)
	assert.False(t, speech.Active())
	assert.Equal(t, time.Duration(DEFAULT_SPEECH_HOLDOFF_SECONDS)*time.Second, speech.holdoff)

	// Same monitor instance comes back until the settings change.
	assert.Same(t, motion, registry.MotionMonitorFor(1, setting))
	registry.Invalidate(1)
	assert.NotSame(t, motion, registry.MotionMonitorFor(1, setting))
}
