// Package huedevice wires the Bridge, Light Model, Sinks, and (when
// streaming is configured) the Streaming Engine into the outward contract
// a host LED harness drives: init, write, switchOn/switchOff, and an
// enableStateChanged event (spec 6).
package huedevice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dtlaine/huedevice/internal/bridge"
	"github.com/dtlaine/huedevice/internal/config"
	"github.com/dtlaine/huedevice/internal/lightmodel"
	"github.com/dtlaine/huedevice/internal/sink"
	"github.com/dtlaine/huedevice/internal/stream"
)

// connectTimeout bounds the one-shot control-plane handshake performed
// during Init: probe, enumerate, and (for the streaming variant) claim
// the entertainment group.
const connectTimeout = 10 * time.Second

// Device is one driven Hue endpoint: either the REST variant (diff-and-PUT
// per frame) or the streaming variant (DTLS Streaming Engine fed by the
// Light Model), selected by cfg.StreamingEnabled at Init time.
type Device struct {
	cfg     config.Config
	logger  zerolog.Logger
	session *bridge.Session

	mu     sync.Mutex
	lights []*lightmodel.Light

	restSink   *sink.RESTSink
	streamSink *sink.StreamSink

	engine     *stream.Engine
	engineStop chan struct{}
	engineDone chan struct{}

	on                bool
	onStateChangedFns []func(bool)
}

// Init performs the full control-plane handshake described in spec 4.D:
// connect, enumerate, capture original state, and — for the streaming
// variant — claim the entertainment group and start the Streaming Engine.
// A non-nil error means the device is not usable and owns no resources.
func Init(cfg config.Config, logger zerolog.Logger) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Device{cfg: cfg, logger: logger}

	client := bridge.New(cfg.Output, cfg.Username, logger, d.onReconnect)
	d.session = bridge.NewSession(client, cfg.Username, cfg.GroupID, logger)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := d.session.Connect(ctx); err != nil {
		return nil, fmt.Errorf("huedevice: connect: %w", err)
	}

	lightAttrs, _, err := d.session.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("huedevice: enumerate: %w", err)
	}

	d.lights, err = buildLightModel(cfg.LightIDs, lightAttrs, logger)
	if err != nil {
		return nil, fmt.Errorf("huedevice: build light model: %w", err)
	}
	for _, l := range d.lights {
		if l.On() {
			d.on = true
			break
		}
	}
	lightsByID := make(map[int]*lightmodel.Light, len(d.lights))
	for _, l := range d.lights {
		lightsByID[l.ID] = l
	}
	if err := d.session.CaptureOriginals(ctx, lightsByID); err != nil {
		d.logger.Warn().Err(err).Msg("failed to capture original light state")
	}

	if cfg.StreamingEnabled() {
		if err := d.startStreaming(ctx); err != nil {
			return nil, err
		}
	} else {
		d.restSink = sink.NewRESTSink(d.lights, d.session, sink.RESTConfig{
			SwitchOffOnBlack: cfg.SwitchOffOnBlack,
			TransitionTime:   uint(cfg.TransitionTime),
			BrightnessFactor: cfg.BrightnessFactor,
			BrightnessMin:    cfg.BrightnessMin,
			BrightnessMax:    cfg.BrightnessMax,
		}, logger)
	}

	return d, nil
}

// buildLightModel assigns each configured light id its LED-frame index
// (position within lightIDs) and constructs its Light Model entry from
// the bridge-reported attributes gathered during Enumerate. A light whose
// bridge state omits "on" entirely fails construction (spec 4.B), which
// buildLightModel propagates as an init-time failure rather than silently
// dropping or degrading that light.
func buildLightModel(lightIDs []int, attrs map[int]bridge.LightAttrs, logger zerolog.Logger) ([]*lightmodel.Light, error) {
	lights := make([]*lightmodel.Light, 0, len(lightIDs))
	for ledIndex, id := range lightIDs {
		a, ok := attrs[id]
		if !ok {
			logger.Warn().Int("light_id", id).Msg("configured light id not present on bridge")
			continue
		}
		l, recognized, err := lightmodel.New(id, ledIndex, a.ModelID, a.Name, a.State)
		if err != nil {
			return nil, err
		}
		if !recognized {
			logger.Warn().Str("model_id", a.ModelID).Int("light_id", id).Msg("UnknownModel: falling back to degenerate gamut")
		}
		lights = append(lights, l)
	}
	return lights, nil
}

func (d *Device) startStreaming(ctx context.Context) error {
	if err := d.session.SetStreamGroupActive(ctx, true, true); err != nil {
		return fmt.Errorf("huedevice: claim stream group: %w", err)
	}

	d.streamSink = sink.NewStreamSink(d.lights, sink.StreamConfig{
		BrightnessFactor: d.cfg.BrightnessFactor,
		BrightnessMin:    d.cfg.BrightnessMin,
		BrightnessMax:    d.cfg.BrightnessMax,
	})

	d.engine = stream.New(stream.Config{
		Address:           d.cfg.Output,
		Username:          d.cfg.Username,
		ClientKeyHex:      d.cfg.ClientKey,
		StreamFrequencyHz: d.cfg.StreamFrequency,
		Logger:            d.logger,
	})
	if err := d.engine.Connect(ctx); err != nil {
		return fmt.Errorf("huedevice: streaming engine connect: %w", err)
	}

	d.engineStop = make(chan struct{})
	d.engineDone = make(chan struct{})
	go func() {
		defer close(d.engineDone)
		if err := d.engine.Run(d.engineStop, d.snapshotLights); err != nil {
			d.logger.Error().Err(err).Msg("streaming engine stopped")
		}
	}()
	return nil
}

// snapshotLights copies the current Light Model colors under the mutex
// that also guards Write, giving the Streaming Engine an atomic per-tick
// view (spec 5).
func (d *Device) snapshotLights() []stream.LightColor {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]stream.LightColor, len(d.lights))
	for i, l := range d.lights {
		out[i] = stream.LightColor{ID: l.ID, Color: l.Color()}
	}
	return out
}

// Write delivers one frame to the active Sink. It returns 0 on success and
// -1 on failure, matching the outward contract's integer
// convention (spec 6: "write(frame) -> 0 or negative error").
func (d *Device) Write(frame sink.Frame) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.streamSink != nil {
		err = d.streamSink.Write(frame)
	} else {
		err = d.restSink.Write(context.Background(), frame)
	}
	if err != nil {
		d.logger.Warn().Err(err).Msg("frame write failed")
		return -1
	}
	return 0
}

// SwitchOn turns every configured light on without changing color.
func (d *Device) SwitchOn() int { return d.setAll(true) }

// SwitchOff turns every configured light off.
func (d *Device) SwitchOff() int { return d.setAll(false) }

func (d *Device) setAll(on bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx := context.Background()
	for _, l := range d.lights {
		if !l.SetOn(on) {
			continue
		}
		if err := d.session.SetLightState(ctx, l.ID, map[string]any{"on": on}); err != nil {
			d.logger.Warn().Err(err).Int("light_id", l.ID).Msg("failed to PUT on/off state")
		}
	}

	d.setOnState(on)
	return 0
}

// OnStateChanged registers fn to be invoked whenever the device's
// aggregate on/off state changes (the enableStateChanged event, spec 6).
func (d *Device) OnStateChanged(fn func(bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStateChangedFns = append(d.onStateChangedFns, fn)
}

func (d *Device) setOnState(on bool) {
	if d.on == on {
		return
	}
	d.on = on
	for _, fn := range d.onStateChangedFns {
		fn(on)
	}
}

func (d *Device) onReconnect() {
	d.logger.Info().Msg("reconnect timer fired, re-probing bridge")
	if err := d.session.Connect(context.Background()); err != nil {
		d.logger.Warn().Err(err).Msg("reconnect probe failed")
	}
}

// Close tears down the streaming worker (if any) and restores every
// light's captured original state, mirroring the Streaming Engine
// teardown sequence in spec 4.G.
func (d *Device) Close() error {
	if d.engine != nil {
		close(d.engineStop)
		<-d.engineDone
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := d.session.SetStreamGroupActive(ctx, false, false); err != nil {
			d.logger.Warn().Err(err).Msg("failed to release stream group on close")
		}
	}

	lightsByID := make(map[int]*lightmodel.Light, len(d.lights))
	for _, l := range d.lights {
		lightsByID[l.ID] = l
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return d.session.RestoreOriginals(ctx, lightsByID)
}
