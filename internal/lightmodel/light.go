// Package lightmodel holds per-bulb state: gamut assignment, current
// color, on/off, transition time, and the original bridge state captured
// at session start so it can be replayed on teardown.
package lightmodel

import (
	"fmt"
	"math"

	"github.com/dtlaine/huedevice/internal/colormath"
)

// gamutAModels, gamutBModels and gamutCModels list the bridge "modelid"
// values that map to each canonical gamut. Anything else falls back to
// colormath.GamutFallback.
var (
	gamutAModels = map[string]bool{
		"LLC001": true, "LLC005": true, "LLC006": true, "LLC007": true,
		"LLC010": true, "LLC011": true, "LLC012": true, "LLC013": true,
		"LLC014": true, "LST001": true,
	}
	gamutBModels = map[string]bool{
		"LCT001": true, "LCT002": true, "LCT003": true, "LCT007": true,
		"LLM001": true,
	}
	gamutCModels = map[string]bool{
		"LCT010": true, "LCT011": true, "LCT012": true, "LCT014": true,
		"LCT015": true, "LCT016": true, "LCT024": true, "LTW001": true,
		"LTW004": true, "LTW010": true, "LTW011": true, "LTW012": true,
		"LTW013": true, "LTW014": true, "LTW015": true,
	}
)

// ResolveGamut matches a bridge "modelid" against the three fixed
// membership sets. It returns the matched triangle and true, or
// colormath.GamutFallback and false if the model is unrecognized (callers
// should emit an UnknownModel warning in that case).
func ResolveGamut(modelID string) (colormath.Triangle, bool) {
	switch {
	case gamutAModels[modelID]:
		return colormath.GamutA, true
	case gamutBModels[modelID]:
		return colormath.GamutB, true
	case gamutCModels[modelID]:
		return colormath.GamutC, true
	default:
		return colormath.GamutFallback, false
	}
}

// OriginalState is the subset of a light's bridge-reported "state" object
// this module needs to restore on teardown.
type OriginalState struct {
	On             bool
	Xy             []float64
	Bri            *int
	TransitionTime *int
}

// BridgeLightState is the subset of a GET /lights/{id} body this module
// parses to construct or refresh a Light. On is a pointer because a bridge
// record that omits "on" entirely must stay distinguishable from one that
// sets it to false.
type BridgeLightState struct {
	On             *bool
	Xy             []float64
	Bri            int
	TransitionTime int
}

// MissingOnStateError is returned by New and RefreshOriginalState when the
// bridge-reported state omitted "on" entirely (spec 4.B: create() fails in
// that case rather than treating the light as off).
type MissingOnStateError struct {
	LightID int
}

func (e *MissingOnStateError) Error() string {
	return fmt.Sprintf("lightmodel: light %d: bridge state is missing \"on\"", e.LightID)
}

// Light is one bulb: its identity, its gamut, and its live/last-commanded
// state. Construct with New; the zero value is not usable.
type Light struct {
	ID       int
	LedIndex int
	ModelID  string
	Name     string

	Gamut      colormath.Triangle
	ColorBlack colormath.Color

	on             bool
	transitionTime uint
	color          colormath.Color

	original OriginalState
}

// New constructs a Light bound to ledIndex, resolving its gamut from
// modelID and capturing its original state from state. It fails with
// *MissingOnStateError if the bridge payload omitted "on" entirely (spec
// 4.B). recognized reports whether modelID matched one of the three known
// gamut sets.
func New(id, ledIndex int, modelID, name string, state BridgeLightState) (l *Light, recognized bool, err error) {
	if state.On == nil {
		return nil, false, &MissingOnStateError{LightID: id}
	}

	gamut, recognized := ResolveGamut(modelID)

	l = &Light{
		ID:       id,
		LedIndex: ledIndex,
		ModelID:  modelID,
		Name:     name,
		Gamut:    gamut,
		ColorBlack: colormath.Color{
			X:   gamut.Blue.X,
			Y:   gamut.Blue.Y,
			Bri: 0,
		},
		on: *state.On,
	}
	l.original = captureOriginal(state)
	if *state.On && len(state.Xy) == 2 {
		l.color = colormath.Color{X: state.Xy[0], Y: state.Xy[1], Bri: float64(state.Bri) / 254.0}
	}
	return l, recognized, nil
}

func captureOriginal(state BridgeLightState) OriginalState {
	on := state.On != nil && *state.On
	orig := OriginalState{On: on}
	if on {
		if len(state.Xy) == 2 {
			orig.Xy = []float64{state.Xy[0], state.Xy[1]}
		}
		bri := state.Bri
		orig.Bri = &bri
		tt := state.TransitionTime
		orig.TransitionTime = &tt
	}
	return orig
}

// On reports the last-commanded on/off state.
func (l *Light) On() bool { return l.on }

// SetOn sets on/off state. It reports whether the value actually changed;
// callers only emit a PUT when true.
func (l *Light) SetOn(on bool) bool {
	if l.on == on {
		return false
	}
	l.on = on
	return true
}

// TransitionTime returns the last-commanded transition time in
// centiseconds.
func (l *Light) TransitionTime() uint { return l.transitionTime }

// SetTransitionTime sets the transition time. It reports whether the value
// changed.
func (l *Light) SetTransitionTime(cs uint) bool {
	if l.transitionTime == cs {
		return false
	}
	l.transitionTime = cs
	return true
}

// Color returns the last-commanded color.
func (l *Light) Color() colormath.Color { return l.color }

// SetColor applies brightness shaping (factor, then clamp to [min,max],
// itself clamped to [0,1]) and updates the stored color. It reports
// whether the shaped color differs from the previous one. In REST mode
// callers only emit a PUT when true; in stream mode the Streaming Engine
// reads Color() asynchronously and no PUT is ever emitted here.
func (l *Light) SetColor(c colormath.Color, factor, min, max float64) bool {
	min = clamp01(min)
	max = clamp01(max)

	shaped := c
	shaped.Bri = clamp(c.Bri*factor, min, max)

	if shaped == l.color {
		return false
	}
	l.color = shaped
	return true
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RestStatePayload serializes the current color as the bridge expects for
// a PUT: {"xy":[x,y],"bri":N} with bri in 0..254, floored to >= 1 so a
// non-black color never rounds to an "off" brightness.
func (l *Light) RestStatePayload() map[string]any {
	bri := int(math.Round(l.color.Bri * 254))
	if bri < 1 {
		bri = 1
	}
	return map[string]any{
		"xy":  []float64{l.color.X, l.color.Y},
		"bri": bri,
	}
}

// OriginalState returns the state captured at light creation (or refreshed
// by RefreshOriginalState), to be replayed verbatim on teardown.
func (l *Light) OriginalState() OriginalState { return l.original }

// RefreshOriginalState re-captures the original state from a fresh bridge
// read. Used when resuming the streaming path after a disable/enable
// cycle, per spec 4.D captureOriginals(). It fails with
// *MissingOnStateError under the same condition as New.
func (l *Light) RefreshOriginalState(state BridgeLightState) error {
	if state.On == nil {
		return &MissingOnStateError{LightID: l.ID}
	}
	l.original = captureOriginal(state)
	return nil
}

// OriginalStatePayload serializes the captured original state back into a
// PUT body for restoreOriginals().
func (l *Light) OriginalStatePayload() map[string]any {
	body := map[string]any{"on": l.original.On}
	if l.original.On {
		if len(l.original.Xy) == 2 {
			body["xy"] = l.original.Xy
		}
		if l.original.Bri != nil {
			body["bri"] = *l.original.Bri
		}
		if l.original.TransitionTime != nil {
			body["transitiontime"] = *l.original.TransitionTime
		}
	}
	return body
}

// String implements fmt.Stringer for log lines.
func (l *Light) String() string {
	return fmt.Sprintf("Light{id=%d led=%d model=%s}", l.ID, l.LedIndex, l.ModelID)
}
