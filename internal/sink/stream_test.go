package sink

import (
	"testing"

	"github.com/dtlaine/huedevice/internal/lightmodel"
)

func newStreamTestLight(t *testing.T, id, ledIndex int) *lightmodel.Light {
	t.Helper()
	on := true
	l, recognized, err := lightmodel.New(id, ledIndex, "LCT010", "test", lightmodel.BridgeLightState{
		On: &on, Xy: []float64{0.3, 0.3}, Bri: 100, TransitionTime: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !recognized {
		t.Fatalf("expected LCT010 to be recognized")
	}
	return l
}

func defaultStreamConfig() StreamConfig {
	return StreamConfig{BrightnessFactor: 1, BrightnessMin: 0, BrightnessMax: 1}
}

func TestStreamSinkEmptyLightsIsNotReady(t *testing.T) {
	s := NewStreamSink(nil, defaultStreamConfig())
	if err := s.Write(Frame{{0, 0, 0}}); err == nil {
		t.Fatalf("expected NotReadyError")
	}
}

func TestStreamSinkShortFrameIsMisconfigured(t *testing.T) {
	l := newStreamTestLight(t, 1, 0)
	s := NewStreamSink([]*lightmodel.Light{l}, defaultStreamConfig())
	if err := s.Write(Frame{}); err == nil {
		t.Fatalf("expected MisconfiguredError")
	}
}

// Stream Sink updates the Light Model in place and never issues a PUT —
// there is no transport to assert against, so the only observable is the
// Light's own color field.
func TestStreamSinkUpdatesLightModelColorOnly(t *testing.T) {
	l := newStreamTestLight(t, 1, 0)
	before := l.Color()

	s := NewStreamSink([]*lightmodel.Light{l}, defaultStreamConfig())
	if err := s.Write(Frame{{255, 0, 0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := l.Color()
	if after == before {
		t.Fatalf("expected color to change from red frame")
	}
	if after.Bri != 1.0 {
		t.Fatalf("expected full brightness for pure red, got %v", after.Bri)
	}
}

func TestStreamSinkRepeatedFrameIsIdempotent(t *testing.T) {
	l := newStreamTestLight(t, 1, 0)
	s := NewStreamSink([]*lightmodel.Light{l}, defaultStreamConfig())

	frame := Frame{{10, 200, 40}}
	if err := s.Write(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := l.Color()
	if err := s.Write(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Color() != first {
		t.Fatalf("expected repeated identical frame to leave color unchanged")
	}
}
