package orchestrator

import "time"

// muLawSilence is the standard G.711 μ-law silence code: an 8-bit μ-law
// sample of 0xFF decodes near zero amplitude, and encoded silence
// clusters around 127/128 rather than 0 the way linear PCM silence does.
const muLawSilence = 127

// activityRatioThreshold is the fraction of samples in a frame that must
// deviate meaningfully from the μ-law silence code for the frame to count
// as "active" (spec.md §4.3).
const activityRatioThreshold = 0.05

// activityDeviation is how far (in raw μ-law byte units) a sample must
// sit from muLawSilence to count as active.
const activityDeviation = 3

// activeDebounce is the minimum duration of sustained activity before the
// Interruption Detector emits a VADActive event (spec.md §4.3: 100ms).
const activeDebounce = 100 * time.Millisecond

// silenceDebounce mirrors activeDebounce on the way back down, avoiding
// flutter across a single quiet frame inside continuous speech.
const silenceDebounce = 100 * time.Millisecond

// InterruptionDetector is a pure, stateful classifier over inbound μ-law
// telephony audio frames (8kHz, G.711 μ-law encoded), grounded on the
// teacher's RMSVAD but retargeted from 16-bit linear PCM RMS to μ-law
// energy gating per spec.md §4.3. It is deliberately simple: no DSP
// beyond trivial energy gating is in scope (spec.md Non-goals).
type InterruptionDetector struct {
	activeSince  time.Time
	silentSince  time.Time
	isActive     bool
	hasEmittedOn bool
}

// NewInterruptionDetector creates a detector starting in the silent state.
func NewInterruptionDetector() *InterruptionDetector {
	return &InterruptionDetector{}
}

// Process classifies one μ-law frame and returns a VADEvent only when a
// debounced state change has occurred, nil otherwise.
func (d *InterruptionDetector) Process(frame []byte) *VADEvent {
	now := time.Now()
	active := isFrameActive(frame)

	if active {
		d.silentSince = time.Time{}
		if d.activeSince.IsZero() {
			d.activeSince = now
		}
		if !d.isActive && now.Sub(d.activeSince) >= activeDebounce {
			d.isActive = true
			d.hasEmittedOn = true
			return &VADEvent{Type: VADActive, Timestamp: now.UnixMilli()}
		}
		return nil
	}

	d.activeSince = time.Time{}
	if d.silentSince.IsZero() {
		d.silentSince = now
	}
	if d.isActive && now.Sub(d.silentSince) >= silenceDebounce {
		d.isActive = false
		return &VADEvent{Type: VADSilence, Timestamp: now.UnixMilli()}
	}
	return nil
}

// IsActive reports the detector's current (debounced) activity state.
func (d *InterruptionDetector) IsActive() bool {
	return d.isActive
}

// Reset returns the detector to its initial silent state, used on
// reconnection/adapter swap so stale activity history does not leak
// across an adapter boundary.
func (d *InterruptionDetector) Reset() {
	*d = InterruptionDetector{}
}

// isFrameActive reports whether the fraction of samples deviating from
// μ-law silence exceeds activityRatioThreshold.
func isFrameActive(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	deviating := 0
	for _, b := range frame {
		v := int(b)
		if v > muLawSilence+activityDeviation || v < muLawSilence-activityDeviation {
			deviating++
		}
	}
	return float64(deviating)/float64(len(frame)) > activityRatioThreshold
}
