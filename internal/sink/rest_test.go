package sink

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dtlaine/huedevice/internal/colormath"
	"github.com/dtlaine/huedevice/internal/lightmodel"
)

type recordingPutter struct {
	puts []map[string]any
}

func (p *recordingPutter) SetLightState(ctx context.Context, lightID int, body map[string]any) error {
	p.puts = append(p.puts, body)
	return nil
}

func newRESTTestLight(t *testing.T, id, ledIndex int) *lightmodel.Light {
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

func defaultRESTConfig() RESTConfig {
	return RESTConfig{
		SwitchOffOnBlack: true,
		TransitionTime:   1,
		BrightnessFactor: 1,
		BrightnessMin:    0,
		BrightnessMax:    1,
	}
}

func TestRESTSinkEmptyLightsIsNotReady(t *testing.T) {
	s := NewRESTSink(nil, &recordingPutter{}, defaultRESTConfig(), zerolog.Nop())
	if err := s.Write(context.Background(), Frame{{0, 0, 0}}); err == nil {
		t.Fatalf("expected NotReadyError")
	} else if _, ok := err.(NotReadyError); !ok {
		t.Fatalf("expected NotReadyError, got %T", err)
	}
}

func TestRESTSinkShortFrameIsMisconfigured(t *testing.T) {
	l := newRESTTestLight(t, 1, 0)
	s := NewRESTSink([]*lightmodel.Light{l}, &recordingPutter{}, defaultRESTConfig(), zerolog.Nop())
	if err := s.Write(context.Background(), Frame{}); err == nil {
		t.Fatalf("expected MisconfiguredError")
	} else if _, ok := err.(MisconfiguredError); !ok {
		t.Fatalf("expected MisconfiguredError, got %T", err)
	}
}

// S2 — black handling: first black frame switches off exactly once;
// a repeated identical black frame emits nothing further.
func TestRESTSinkBlackFrameSwitchesOffOnce(t *testing.T) {
	l := newRESTTestLight(t, 1, 0)
	putter := &recordingPutter{}
	s := NewRESTSink([]*lightmodel.Light{l}, putter, defaultRESTConfig(), zerolog.Nop())

	black := Frame{{0, 0, 0}}
	if err := s.Write(context.Background(), black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(putter.puts) != 1 {
		t.Fatalf("expected exactly one PUT, got %d: %+v", len(putter.puts), putter.puts)
	}
	if on, ok := putter.puts[0]["on"].(bool); !ok || on {
		t.Fatalf("expected {on:false} PUT, got %+v", putter.puts[0])
	}

	putter.puts = nil
	if err := s.Write(context.Background(), black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(putter.puts) != 0 {
		t.Fatalf("expected zero PUTs for repeated black frame, got %d: %+v", len(putter.puts), putter.puts)
	}
}

// S3 — color change: first non-black frame PUTs on, transitiontime, and
// color; a subsequent frame with a different color PUTs only the color.
func TestRESTSinkColorChangeEmitsMinimalPUTs(t *testing.T) {
	l := newRESTTestLight(t, 1, 0)
	l.SetOn(false) // start from off so the first frame must also flip "on"
	putter := &recordingPutter{}
	s := NewRESTSink([]*lightmodel.Light{l}, putter, defaultRESTConfig(), zerolog.Nop())

	red := Frame{{255, 0, 0}}
	if err := s.Write(context.Background(), red); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(putter.puts) != 3 {
		t.Fatalf("expected 3 PUTs (on, transitiontime, color), got %d: %+v", len(putter.puts), putter.puts)
	}

	putter.puts = nil
	green := Frame{{0, 255, 0}}
	if err := s.Write(context.Background(), green); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(putter.puts) != 1 {
		t.Fatalf("expected exactly one PUT (color only), got %d: %+v", len(putter.puts), putter.puts)
	}
	if _, ok := putter.puts[0]["xy"]; !ok {
		t.Fatalf("expected color PUT to carry xy, got %+v", putter.puts[0])
	}
}

func TestRESTSinkUsesLightGamutForConversion(t *testing.T) {
	l := newRESTTestLight(t, 1, 0)
	if l.Gamut != colormath.GamutC {
		t.Fatalf("expected LCT010 to resolve gamut C")
	}
}
