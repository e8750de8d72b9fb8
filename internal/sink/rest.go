package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dtlaine/huedevice/internal/colormath"
	"github.com/dtlaine/huedevice/internal/lightmodel"
)

// LightStatePutter is the subset of bridge.Session the REST Sink needs: a
// direct pass-through PUT for one light's state.
type LightStatePutter interface {
	SetLightState(ctx context.Context, lightID int, body map[string]any) error
}

// RESTConfig holds the per-frame shaping parameters for the REST Sink (the
// spec 6 configuration keys that apply to the REST variant).
type RESTConfig struct {
	SwitchOffOnBlack bool
	TransitionTime   uint
	BrightnessFactor float64
	BrightnessMin    float64
	BrightnessMax    float64
}

// RESTSink diffs incoming frames against the Light Model and emits the
// minimal set of PUTs needed to reflect the change (spec 4.E).
type RESTSink struct {
	lights []*lightmodel.Light
	putter LightStatePutter
	cfg    RESTConfig
	logger zerolog.Logger
}

// NewRESTSink constructs a Sink over lights (ordered by LED index),
// issuing PUTs through putter.
func NewRESTSink(lights []*lightmodel.Light, putter LightStatePutter, cfg RESTConfig, logger zerolog.Logger) *RESTSink {
	return &RESTSink{lights: lights, putter: putter, cfg: cfg, logger: logger}
}

// Write processes one frame: for each configured light, compute its
// gamut-constrained color from the frame and emit PUTs for whatever
// changed. It never emits a PUT for an unchanged value.
func (s *RESTSink) Write(ctx context.Context, frame Frame) error {
	if len(s.lights) == 0 {
		return NotReadyError{}
	}
	if len(frame) < len(s.lights) {
		return MisconfiguredError{Got: len(frame), Want: len(s.lights)}
	}

	for _, l := range s.lights {
		rgb := frame[l.LedIndex]
		c := colormath.SRGBToColor(float64(rgb.R)/255, float64(rgb.G)/255, float64(rgb.B)/255, l.Gamut)

		if s.cfg.SwitchOffOnBlack && c.Bri == 0 {
			if l.SetOn(false) {
				if err := s.putter.SetLightState(ctx, l.ID, map[string]any{"on": false}); err != nil {
					s.logger.Warn().Err(err).Int("light_id", l.ID).Msg("failed to PUT off state")
				}
			}
			continue
		}

		if l.SetOn(true) {
			if err := s.putter.SetLightState(ctx, l.ID, map[string]any{"on": true}); err != nil {
				s.logger.Warn().Err(err).Int("light_id", l.ID).Msg("failed to PUT on state")
			}
		}
		if l.SetTransitionTime(s.cfg.TransitionTime) {
			if err := s.putter.SetLightState(ctx, l.ID, map[string]any{"transitiontime": s.cfg.TransitionTime}); err != nil {
				s.logger.Warn().Err(err).Int("light_id", l.ID).Msg("failed to PUT transition time")
			}
		}
		if l.SetColor(c, s.cfg.BrightnessFactor, s.cfg.BrightnessMin, s.cfg.BrightnessMax) {
			if err := s.putter.SetLightState(ctx, l.ID, l.RestStatePayload()); err != nil {
				s.logger.Warn().Err(err).Int("light_id", l.ID).Msg("failed to PUT color")
			}
		}
	}
	return nil
}
