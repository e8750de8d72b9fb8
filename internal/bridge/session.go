package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dtlaine/huedevice/internal/lightmodel"
)

// State is one state of the Session's control-plane state machine (4.D).
type State int

const (
	StateConnecting State = iota
	StateAuthFailed
	StateEnumerating
	StateReady
	StateCheckingStream
	StateReleasingPriorClaim
	StateClaiming
	StateStreamReady
	StateRestoringOriginal
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateAuthFailed:
		return "AuthFailed"
	case StateEnumerating:
		return "Enumerating"
	case StateReady:
		return "Ready"
	case StateCheckingStream:
		return "CheckingStream"
	case StateReleasingPriorClaim:
		return "ReleasingPriorClaim"
	case StateClaiming:
		return "Claiming"
	case StateStreamReady:
		return "StreamReady"
	case StateRestoringOriginal:
		return "RestoringOriginal"
	default:
		return "Unknown"
	}
}

// maxClaimCycles is the retry budget for a stream-group claim before
// StreamUnavailableError is surfaced (spec 4.D edge cases: ">= 3 cycles").
const maxClaimCycles = 3

// recheckInterval is how often Session polls group state while waiting for
// another client to release it (spec 4.D edge cases).
const recheckInterval = 500 * time.Millisecond

// LightAttrs and GroupAttrs are the enumerate() result shapes.
type LightAttrs struct {
	ModelID string
	Name    string
	State   lightmodel.BridgeLightState
}

type GroupAttrs struct {
	Name   string
	Lights []int
}

type groupStreamState struct {
	Active bool
	Owner  string
}

// Session coordinates the control plane: auth check, enumeration,
// original-state capture, and the stream-group activation state machine,
// all driven through a Client.
type Session struct {
	client    *Client
	username  string
	groupID   int
	logger    zerolog.Logger

	state State
}

// NewSession wraps client in a Session bound to groupID (0 disables the
// streaming group path entirely — callers should not call
// SetStreamGroupActive in that case).
func NewSession(client *Client, username string, groupID int, logger zerolog.Logger) *Session {
	return &Session{client: client, username: username, groupID: groupID, logger: logger, state: StateConnecting}
}

// State returns the session's current control-plane state.
func (s *Session) State() State { return s.state }

// Connect probes the API root. A bridge array-error envelope transitions
// to AuthFailed (terminal for this session's credentials); anything else
// transitions to Enumerating.
func (s *Session) Connect(ctx context.Context) error {
	err := s.client.Get(ctx, "", nil)
	if _, ok := err.(*AuthFailureError); ok {
		s.state = StateAuthFailed
		return err
	}
	if err != nil {
		return err
	}
	s.state = StateEnumerating
	return nil
}

// rawLight and rawGroup mirror the bridge's /lights and /groups bodies,
// restricted to the fields streaming needs (spec 4.C non-goal: "Full Hue
// CLIP schema coverage — only the fields used by streaming are parsed").
type rawLight struct {
	ModelID string          `json:"modelid"`
	Name    string          `json:"name"`
	State   json.RawMessage `json:"state"`
}

// On is a pointer, not a bool: a bridge record that omits "on" entirely
// must stay distinguishable from one that sets it to false (spec 4.B).
type rawLightState struct {
	On             *bool     `json:"on"`
	Xy             []float64 `json:"xy"`
	Bri            int       `json:"bri"`
	TransitionTime int       `json:"transitiontime"`
}

type rawGroup struct {
	Name   string `json:"name"`
	Lights []string `json:"lights"`
	Stream *struct {
		Active bool   `json:"active"`
		Owner  string `json:"owner"`
	} `json:"stream"`
}

// Enumerate fetches all lights and entertainment groups known to the
// bridge. On success the session transitions to Ready.
func (s *Session) Enumerate(ctx context.Context) (map[int]LightAttrs, map[int]GroupAttrs, error) {
	var rawLights map[string]rawLight
	if err := s.client.Get(ctx, "lights", &rawLights); err != nil {
		return nil, nil, err
	}

	lights := make(map[int]LightAttrs, len(rawLights))
	for idStr, rl := range rawLights {
		id, err := parseIntID(idStr)
		if err != nil {
			continue
		}
		var st rawLightState
		_ = json.Unmarshal(rl.State, &st)
		lights[id] = LightAttrs{
			ModelID: rl.ModelID,
			Name:    rl.Name,
			State: lightmodel.BridgeLightState{
				On: st.On, Xy: st.Xy, Bri: st.Bri, TransitionTime: st.TransitionTime,
			},
		}
	}

	var rawGroups map[string]rawGroup
	if err := s.client.Get(ctx, "groups", &rawGroups); err != nil {
		return nil, nil, err
	}
	groups := make(map[int]GroupAttrs, len(rawGroups))
	for idStr, rg := range rawGroups {
		id, err := parseIntID(idStr)
		if err != nil {
			continue
		}
		lightIDs := make([]int, 0, len(rg.Lights))
		for _, lidStr := range rg.Lights {
			if lid, err := parseIntID(lidStr); err == nil {
				lightIDs = append(lightIDs, lid)
			}
		}
		groups[id] = GroupAttrs{Name: rg.Name, Lights: lightIDs}
	}

	s.state = StateReady
	return lights, groups, nil
}

func parseIntID(s string) (int, error) {
	var id int
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}

// CaptureOriginals re-fetches lights and refreshes each Light Model's
// captured original state.
func (s *Session) CaptureOriginals(ctx context.Context, lights map[int]*lightmodel.Light) error {
	var rawLights map[string]rawLight
	if err := s.client.Get(ctx, "lights", &rawLights); err != nil {
		return err
	}
	for idStr, rl := range rawLights {
		id, err := parseIntID(idStr)
		if err != nil {
			continue
		}
		l, ok := lights[id]
		if !ok {
			continue
		}
		var st rawLightState
		_ = json.Unmarshal(rl.State, &st)
		if err := l.RefreshOriginalState(lightmodel.BridgeLightState{
			On: st.On, Xy: st.Xy, Bri: st.Bri, TransitionTime: st.TransitionTime,
		}); err != nil {
			s.logger.Warn().Err(err).Int("light_id", id).Msg("failed to refresh original light state")
		}
	}
	return nil
}

func (s *Session) groupRoute() string {
	return fmt.Sprintf("groups/%d", s.groupID)
}

func (s *Session) checkGroupStream(ctx context.Context) (groupStreamState, error) {
	var g rawGroup
	if err := s.client.Get(ctx, s.groupRoute(), &g); err != nil {
		return groupStreamState{}, err
	}
	if g.Stream == nil {
		return groupStreamState{}, nil
	}
	return groupStreamState{Active: g.Stream.Active, Owner: g.Stream.Owner}, nil
}

// putStreamActive PUTs the target stream state and reports whether the
// bridge's success reply already confirmed it.
func (s *Session) putStreamActive(ctx context.Context, active bool) (bool, error) {
	res, err := s.client.Put(ctx, s.groupRoute(), map[string]any{
		"stream": map[string]bool{"active": active},
	})
	if err != nil {
		return false, err
	}
	return res.StreamActiveChanged != nil && *res.StreamActiveChanged == active, nil
}

// SetStreamGroupActive drives the stream-group activation state machine
// described in spec 4.D: checks current state, releases a prior claim
// owned by this session if present, then claims or restores originals per
// startStreaming. A PUT counts as confirmed when its success reply carries
// the target stream-active value; otherwise the group is re-checked every
// recheckInterval. It loops up to maxClaimCycles attempts, after which it
// surfaces StreamUnavailableError.
func (s *Session) SetStreamGroupActive(ctx context.Context, active, startStreaming bool) error {
	s.state = StateCheckingStream

	for attempt := 0; attempt < maxClaimCycles; attempt++ {
		cur, err := s.checkGroupStream(ctx)
		if err != nil {
			return err
		}

		switch {
		case cur.Active && cur.Owner == s.username:
			s.state = StateReleasingPriorClaim
			confirmed, err := s.putStreamActive(ctx, false)
			if err != nil {
				return err
			}
			if !confirmed {
				if err := s.waitForGroupState(ctx, false); err != nil {
					return err
				}
			}
			continue

		case !cur.Active && startStreaming:
			s.state = StateClaiming
			confirmed, err := s.putStreamActive(ctx, true)
			if err != nil {
				return err
			}
			if !confirmed {
				if err := s.waitForGroupState(ctx, true); err != nil {
					continue
				}
			}
			s.state = StateStreamReady
			return nil

		case cur.Active && startStreaming:
			s.state = StateStreamReady
			return nil

		case !cur.Active && !startStreaming:
			s.state = StateRestoringOriginal
			return nil

		default:
			if cur.Active == active {
				return nil
			}
		}

		time.Sleep(recheckInterval)
	}

	return &StreamUnavailableError{GroupID: s.groupID}
}

func (s *Session) waitForGroupState(ctx context.Context, active bool) error {
	for i := 0; i < maxClaimCycles; i++ {
		cur, err := s.checkGroupStream(ctx)
		if err != nil {
			return err
		}
		if cur.Active == active {
			return nil
		}
		time.Sleep(recheckInterval)
	}
	return &StreamUnavailableError{GroupID: s.groupID}
}

// RestoreOriginals PUTs each light's captured original state.
func (s *Session) RestoreOriginals(ctx context.Context, lights map[int]*lightmodel.Light) error {
	var firstErr error
	for id, l := range lights {
		_, err := s.client.Put(ctx, fmt.Sprintf("lights/%d/state", id), l.OriginalStatePayload())
		if err != nil {
			s.logger.Warn().Err(err).Int("light_id", id).Msg("failed to restore original light state")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SetLightState is a direct pass-through PUT for the REST Sink.
func (s *Session) SetLightState(ctx context.Context, lightID int, body map[string]any) error {
	_, err := s.client.Put(ctx, fmt.Sprintf("lights/%d/state", lightID), body)
	return err
}
