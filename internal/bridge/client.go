// Package bridge implements the REST control plane: a small HTTP client
// bound to one Hue bridge (component 4.C) and the session state machine
// built on top of it (component 4.D).
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// reconnectDelay is the single-shot reconnect timer armed after a failed
// GET, per spec 4.C.
const reconnectDelay = 5 * time.Second

// PutResult is the decoded outcome of a PUT, covering the two shapes the
// bridge convention allows: a bare success, or a success that also flips
// the stream-active flag for a group.
type PutResult struct {
	// StreamActiveChanged is non-nil when the success envelope touched
	// "/groups/{id}/stream/active", carrying its new boolean value.
	StreamActiveChanged *bool
}

// Client is a REST client bound to a single Hue bridge. It exposes only
// the two verbs the control plane needs: GET and PUT.
type Client struct {
	http     *http.Client
	address  string
	username string
	logger   zerolog.Logger

	onReconnect func()
}

// New constructs a Client for the bridge at address, authenticating future
// requests as username. onReconnect, if non-nil, is invoked once, from a
// background goroutine, 5 seconds after any failed GET — callers
// (typically the Session) use it to re-arm the connecting state.
func New(address, username string, logger zerolog.Logger, onReconnect func()) *Client {
	return &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		address:     address,
		username:    username,
		logger:      logger,
		onReconnect: onReconnect,
	}
}

// url assembles http://{address}/api/{username}/{route}. An empty route
// probes the API root.
func (c *Client) url(route string) string {
	if route == "" {
		return fmt.Sprintf("http://%s/api/%s", c.address, c.username)
	}
	return fmt.Sprintf("http://%s/api/%s/%s", c.address, c.username, route)
}

// Get issues a GET against route and decodes the JSON body into v. route
// "" probes the API root (the connection/auth check).
//
// A network failure surfaces as *TransportError and arms the reconnect
// timer. A body that doesn't parse as JSON surfaces as *ProtocolError. A
// top-level JSON array (the bridge's error envelope) surfaces as
// *AuthFailureError.
func (c *Client) Get(ctx context.Context, route string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(route), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.armReconnect()
		return &TransportError{Verb: "GET", Err: err}
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return &ProtocolError{Route: route, Err: err}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return &AuthFailureError{Route: route}
	}

	if v != nil {
		if err := json.Unmarshal(raw, v); err != nil {
			return &ProtocolError{Route: route, Err: err}
		}
	}
	return nil
}

// Put issues a PUT with the given JSON-able body against route and
// interprets the bridge's array-of-{success|error} response.
func (c *Client) Put(ctx context.Context, route string, body any) (PutResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return PutResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(route), bytes.NewReader(payload))
	if err != nil {
		return PutResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Per spec 4.C, only GET failures arm the reconnect timer.
		return PutResult{}, &TransportError{Verb: "PUT", Err: err}
	}
	defer resp.Body.Close()

	var entries []struct {
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
		Success map[string]any `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return PutResult{}, &ProtocolError{Route: route, Err: err}
	}

	if len(entries) == 0 {
		return PutResult{}, &ProtocolError{Route: route, Err: fmt.Errorf("empty PUT response array")}
	}

	first := entries[0]
	if first.Error != nil {
		return PutResult{}, &BridgeError{Description: first.Error.Description}
	}
	if first.Success == nil {
		return PutResult{}, &ProtocolError{Route: route, Err: fmt.Errorf("PUT response has neither success nor error")}
	}

	result := PutResult{}
	for key, val := range first.Success {
		if hasSuffix(key, "/stream/active") {
			if b, ok := val.(bool); ok {
				result.StreamActiveChanged = &b
			}
		}
	}
	return result, nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func (c *Client) armReconnect() {
	if c.onReconnect == nil {
		return
	}
	c.logger.Warn().Dur("delay", reconnectDelay).Msg("bridge GET failed, arming reconnect timer")
	time.AfterFunc(reconnectDelay, c.onReconnect)
}
