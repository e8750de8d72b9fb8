package sink

import (
	"github.com/dtlaine/huedevice/internal/colormath"
	"github.com/dtlaine/huedevice/internal/lightmodel"
)

// StreamConfig holds the shaping parameters the Stream Sink applies before
// writing a light's color into the Light Model (spec 4.F).
type StreamConfig struct {
	BrightnessFactor float64
	BrightnessMin    float64
	BrightnessMax    float64
}

// StreamSink updates the Light Model's in-memory color for each configured
// light on every frame, without ever issuing a bridge PUT — the Streaming
// Engine reads the Light Model independently on its own clock.
type StreamSink struct {
	lights []*lightmodel.Light
	cfg    StreamConfig
}

// NewStreamSink constructs a Sink over lights (ordered by LED index).
func NewStreamSink(lights []*lightmodel.Light, cfg StreamConfig) *StreamSink {
	return &StreamSink{lights: lights, cfg: cfg}
}

// Write applies the same readiness and shape checks as the REST Sink, then
// writes each light's new color into the Light Model and returns without
// touching the bridge.
func (s *StreamSink) Write(frame Frame) error {
	if len(s.lights) == 0 {
		return NotReadyError{}
	}
	if len(frame) < len(s.lights) {
		return MisconfiguredError{Got: len(frame), Want: len(s.lights)}
	}

	for _, l := range s.lights {
		rgb := frame[l.LedIndex]
		c := colormath.SRGBToColor(float64(rgb.R)/255, float64(rgb.G)/255, float64(rgb.B)/255, l.Gamut)
		l.SetColor(c, s.cfg.BrightnessFactor, s.cfg.BrightnessMin, s.cfg.BrightnessMax)
	}
	return nil
}
