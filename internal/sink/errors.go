// Package sink implements the two frame consumers described in spec 4.E
// and 4.F: the REST Sink (diffs against Light Model, emits minimal PUTs)
// and the Stream Sink (updates Light Model only, for the Streaming Engine
// to read asynchronously).
package sink

import "fmt"

// NotReadyError is returned when write is called before any lights are
// configured.
type NotReadyError struct{}

func (NotReadyError) Error() string { return "sink not ready: no lights configured" }

// MisconfiguredError is returned when the incoming frame has fewer RGB
// triples than configured lights.
type MisconfiguredError struct {
	Got, Want int
}

func (e MisconfiguredError) Error() string {
	return fmt.Sprintf("misconfigured: frame has %d samples, need %d", e.Got, e.Want)
}
