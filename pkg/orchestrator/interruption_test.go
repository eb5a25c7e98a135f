package orchestrator

import (
	"testing"
	"time"
)

func silentFrame(n int) []byte {
	f := make([]byte, n)
	for i := range f {
		f[i] = muLawSilence
	}
	return f
}

func activeFrame(n int) []byte {
	f := make([]byte, n)
	for i := range f {
		if i%2 == 0 {
			f[i] = 10
		} else {
			f[i] = muLawSilence
		}
	}
	return f
}

func TestInterruptionDetectorSilentFrameNoEvent(t *testing.T) {
	d := NewInterruptionDetector()
	if ev := d.Process(silentFrame(160)); ev != nil {
		t.Fatalf("expected no event for silent frame, got %v", ev)
	}
}

func TestInterruptionDetectorRequiresDebounce(t *testing.T) {
	d := NewInterruptionDetector()
	if ev := d.Process(activeFrame(160)); ev != nil {
		t.Fatalf("expected no event on first active frame (debounce not yet elapsed), got %v", ev)
	}
	if d.IsActive() {
		t.Fatalf("expected detector to not be active before debounce elapses")
	}
}

func TestInterruptionDetectorEmitsActiveAfterDebounce(t *testing.T) {
	d := NewInterruptionDetector()
	d.Process(activeFrame(160))
	time.Sleep(activeDebounce + 10*time.Millisecond)

	var ev *VADEvent
	for i := 0; i < 5; i++ {
		if ev = d.Process(activeFrame(160)); ev != nil {
			break
		}
	}
	if ev == nil || ev.Type != VADActive {
		t.Fatalf("expected VADActive event after sustained activity, got %v", ev)
	}
	if !d.IsActive() {
		t.Fatalf("expected detector to report active")
	}
}

func TestInterruptionDetectorReset(t *testing.T) {
	d := NewInterruptionDetector()
	d.Process(activeFrame(160))
	time.Sleep(activeDebounce + 10*time.Millisecond)
	d.Process(activeFrame(160))

	d.Reset()
	if d.IsActive() {
		t.Fatalf("expected reset detector to be inactive")
	}
	if ev := d.Process(activeFrame(160)); ev != nil {
		t.Fatalf("expected reset detector to require fresh debounce, got immediate event %v", ev)
	}
}
