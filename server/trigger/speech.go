package trigger

import (
	"strings"
	"sync"
	"time"
)

// DefaultKeywords are the distress phrases matched against speech
// transcripts. Matching is case-insensitive substring containment, so
// "Socorro, me ajudem!" trips on "socorro".
var DefaultKeywords = []string{
	"socorro",
	"ajuda",
	"emergência",
	"polícia",
	"me ajuda",
	"perigo",
}

// SpeechMonitor scans transcripts for distress keywords. After a match it
// holds off for a short window so one spoken sentence, chunked into
// several transcripts, dispatches a single alert.
type SpeechMonitor struct {
	mu        sync.Mutex
	active    bool
	keywords  []string
	holdoff   time.Duration
	lastFired time.Time

	now func() time.Time
}

func NewSpeechMonitor(keywords []string, holdoff time.Duration) *SpeechMonitor {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	return &SpeechMonitor{
		keywords: keywords,
		holdoff:  holdoff,
		now:      time.Now,
	}
}

func (m *SpeechMonitor) SetActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = active
}

func (m *SpeechMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active
}

// Observe checks one transcript. It returns the keyword that matched and
// whether this transcript tripped the alarm.
func (m *SpeechMonitor) Observe(transcript string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return "", false
	}

	lowered := strings.ToLower(transcript)
	matched := ""
	for _, keyword := range m.keywords {
		if strings.Contains(lowered, keyword) {
			matched = keyword
			break
		}
	}

	if matched == "" {
		return "", false
	}

	now := m.now()
	if !m.lastFired.IsZero() && now.Sub(m.lastFired) < m.holdoff {
		return matched, false
	}

	m.lastFired = now
	return matched, true
}
