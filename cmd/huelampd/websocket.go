package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dtlaine/huedevice/internal/huedevice"
	"github.com/dtlaine/huedevice/internal/sink"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frameMessage is the WebSocket wire shape a host ambient-light harness
// sends: one RGB triple per configured LED position, in order.
type frameMessage struct {
	Lights []struct {
		R uint8 `json:"r"`
		G uint8 `json:"g"`
		B uint8 `json:"b"`
	} `json:"lights"`
}

// ingestServer accepts WebSocket connections carrying frameMessage JSON
// payloads and writes each decoded frame straight through to device,
// standing in for the host LED harness this core is meant to be embedded
// into (spec 6's outward contract, driven from the wire instead of
// in-process for this demo).
type ingestServer struct {
	http      *http.Server
	device    *huedevice.Device
	logger    zerolog.Logger
	numLights int
}

func newIngestServer(port, numLights int, device *huedevice.Device, logger zerolog.Logger) *ingestServer {
	s := &ingestServer{device: device, logger: logger, numLights: numLights}

	mux := http.NewServeMux()
	mux.HandleFunc("/frames", s.handleFrames)
	mux.HandleFunc("/on", s.handleOn)
	mux.HandleFunc("/off", s.handleOff)

	s.http = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	return s
}

func (s *ingestServer) ListenAndServe() error { return s.http.ListenAndServe() }

func (s *ingestServer) Close() error { return s.http.Shutdown(context.Background()) }

func (s *ingestServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var msg frameMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Debug().Err(err).Msg("frame ingest connection closed")
			return
		}

		frame := make(sink.Frame, len(msg.Lights))
		for i, l := range msg.Lights {
			frame[i] = sink.RGB{R: l.R, G: l.G, B: l.B}
		}
		if rc := s.device.Write(frame); rc != 0 {
			s.logger.Warn().Int("rc", rc).Msg("device rejected frame")
		}
	}
}

func (s *ingestServer) handleOn(w http.ResponseWriter, r *http.Request) {
	s.device.SwitchOn()
	w.WriteHeader(http.StatusNoContent)
}

func (s *ingestServer) handleOff(w http.ResponseWriter, r *http.Request) {
	s.device.SwitchOff()
	w.WriteHeader(http.StatusNoContent)
}
