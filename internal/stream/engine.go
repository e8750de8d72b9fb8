package stream

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pion/dtls/v2"
	"github.com/rs/zerolog"
)

const (
	entertainmentPort = 2100

	maxHandshakeAttempts = 4
	handshakeAttemptPause = 200 * time.Millisecond
	minRetransmitBackoff  = 400 * time.Millisecond
	maxRetransmitBackoff  = 1000 * time.Millisecond

	defaultStreamFrequencyHz = 50
	writeErrorRetryBudget    = 5
)

// Config holds everything the Engine needs to open and drive a streaming
// session: bridge address, PSK credentials, and pacing.
type Config struct {
	Address          string // bridge IPv4 address, no port
	Username         string // PSK identity
	ClientKeyHex     string // PSK key, hex-encoded
	StreamFrequencyHz int   // 0 defaults to 50
	Logger           zerolog.Logger
}

// Snapshot returns the current Light Model colors, in model order, under
// whatever mutex the owning device uses to guard concurrent resizes
// (spec 5: "a mutex protects the section that reads Light Model colors
// into the frame buffer").
type Snapshot func() []LightColor

// Engine is a DTLS-PSK client worker for one streaming session. It is not
// safe for concurrent use; callers run one Engine per Run invocation.
type Engine struct {
	cfg  Config
	udp  *net.UDPConn
	conn *dtls.Conn
}

// New constructs an unconnected Engine. Call Connect before Run.
func New(cfg Config) *Engine {
	if cfg.StreamFrequencyHz <= 0 {
		cfg.StreamFrequencyHz = defaultStreamFrequencyHz
	}
	return &Engine{cfg: cfg}
}

// Connect resolves the entertainment UDP endpoint and performs the DTLS-PSK
// handshake, retrying up to maxHandshakeAttempts times with a widening
// retransmit backoff and a fixed pause between attempts (spec 4.G).
func (e *Engine) Connect(ctx context.Context) error {
	keyBytes, err := hex.DecodeString(e.cfg.ClientKeyHex)
	if err != nil {
		return fmt.Errorf("stream: invalid clientkey: %w", err)
	}

	addr := strings.TrimSuffix(e.cfg.Address, ":")
	udpAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", addr, entertainmentPort))
	if err != nil {
		return fmt.Errorf("stream: resolve %s: %w", addr, err)
	}
	udpConn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("stream: dial udp %s: %w", addr, err)
	}

	dtlsConfig := &dtls.Config{
		PSK: func([]byte) ([]byte, error) { return keyBytes, nil },
		PSKIdentityHint:      []byte(e.cfg.Username),
		CipherSuites:         []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256},
		ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
		ServerName:           "Hue",
		InsecureSkipVerify:   true,
		LoggerFactory:        NewLoggerFactory(e.cfg.Logger),
	}

	var lastErr error
	for attempt := 0; attempt < maxHandshakeAttempts; attempt++ {
		dtlsConfig.FlightInterval = retransmitBackoff(attempt)

		hctx, cancel := context.WithTimeout(ctx, maxRetransmitBackoff*time.Duration(maxHandshakeAttempts))
		conn, err := dtls.ClientWithContext(hctx, udpConn, dtlsConfig)
		cancel()
		if err == nil {
			e.udp = udpConn
			e.conn = conn
			return nil
		}
		lastErr = err
		e.cfg.Logger.Warn().Err(err).Int("attempt", attempt+1).Msg("dtls handshake attempt failed")
		time.Sleep(handshakeAttemptPause)
	}

	udpConn.Close()
	return &HandshakeFailedError{Address: addr, Attempts: maxHandshakeAttempts, Err: lastErr}
}

// retransmitBackoff widens linearly from minRetransmitBackoff to
// maxRetransmitBackoff across the handshake attempt budget.
func retransmitBackoff(attempt int) time.Duration {
	if maxHandshakeAttempts <= 1 {
		return minRetransmitBackoff
	}
	step := (maxRetransmitBackoff - minRetransmitBackoff) / time.Duration(maxHandshakeAttempts-1)
	return minRetransmitBackoff + step*time.Duration(attempt)
}

// Run streams frames until stop is closed or a fatal write error occurs.
// Each tick: snapshot the Light Model, encode a frame, write it, then
// sleep out the remainder of the tick period. Transient write timeouts
// consume a shared retry budget before the loop gives up.
func (e *Engine) Run(stop <-chan struct{}, snapshot Snapshot) error {
	period := time.Second / time.Duration(e.cfg.StreamFrequencyHz)
	retryBudget := writeErrorRetryBudget

	for {
		select {
		case <-stop:
			return e.teardown()
		default:
		}

		start := time.Now()
		frame := encodeFrame(snapshot())

		if _, err := e.conn.Write(frame); err != nil {
			if isTimeout(err) {
				retryBudget--
				e.cfg.Logger.Warn().Err(err).Int("retry_budget", retryBudget).Msg("stream write timed out")
				if retryBudget > 0 {
					continue
				}
			}
			e.teardown()
			return &WriteFailedError{Err: err}
		}

		if elapsed := time.Since(start); elapsed < period {
			time.Sleep(period - elapsed)
		}
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

// teardown sends a best-effort close-notify and releases the UDP socket.
func (e *Engine) teardown() error {
	if e.conn != nil {
		_ = e.conn.Close()
	}
	if e.udp != nil {
		_ = e.udp.Close()
	}
	return nil
}
