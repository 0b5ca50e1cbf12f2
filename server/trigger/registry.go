package trigger

import (
	"sync"
	"time"

	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/shared"
)

const DEFAULT_SPEECH_HOLDOFF_SECONDS = 5

// Registry keeps one monitor pair per user, built on first use from the
// user's trigger settings. Settings updates invalidate the cached pair so
// the next sensor reading sees the new thresholds.
type Registry struct {
	mu     sync.Mutex
	motion map[uint]*MotionMonitor
	speech map[uint]*SpeechMonitor
	config shared.DispatchConfig
}

func NewRegistry(config shared.DispatchConfig) *Registry {
	return &Registry{
		motion: make(map[uint]*MotionMonitor),
		speech: make(map[uint]*SpeechMonitor),
		config: config,
	}
}

func (r *Registry) MotionMonitorFor(userID uint, setting *models.TriggerSetting) *MotionMonitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	monitor, ok := r.motion[userID]
	if !ok {
		threshold := setting.MotionThreshold
		if threshold == 0 {
			threshold = r.motionThreshold()
		}

		cooldownSeconds := setting.MotionCooldownSeconds
		if cooldownSeconds == 0 {
			cooldownSeconds = r.motionCooldownSeconds()
		}

		monitor = NewMotionMonitor(threshold, time.Duration(cooldownSeconds)*time.Second)
		r.motion[userID] = monitor
	}

	monitor.SetActive(setting.MotionActive)
	return monitor
}

func (r *Registry) SpeechMonitorFor(userID uint, setting *models.TriggerSetting) *SpeechMonitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	monitor, ok := r.speech[userID]
	if !ok {
		monitor = NewSpeechMonitor(DefaultKeywords, time.Duration(r.speechHoldoffSeconds())*time.Second)
		r.speech[userID] = monitor
	}

	monitor.SetActive(setting.SoundActive)
	return monitor
}

// Invalidate drops a user's cached monitors after a settings change.
func (r *Registry) Invalidate(userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.motion, userID)
	delete(r.speech, userID)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (r *Registry) motionThreshold() float64 {
	if r.config.MotionThreshold > 0 {
		return r.config.MotionThreshold
	}
	return models.DEFAULT_MOTION_THRESHOLD
}

func (r *Registry) motionCooldownSeconds() int {
	if r.config.MotionCooldownSeconds > 0 {
		return r.config.MotionCooldownSeconds
	}
	return models.DEFAULT_MOTION_COOLDOWN_SECONDS
}

func (r *Registry) speechHoldoffSeconds() int {
	if r.config.SpeechHoldoffSeconds > 0 {
		return r.config.SpeechHoldoffSeconds
	}
	return DEFAULT_SPEECH_HOLDOFF_SECONDS
}
