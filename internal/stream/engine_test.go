package stream

import (
	"errors"
	"testing"
	"time"
)

func TestRetransmitBackoffWidensAcrossAttempts(t *testing.T) {
	first := retransmitBackoff(0)
	last := retransmitBackoff(maxHandshakeAttempts - 1)

	if first != minRetransmitBackoff {
		t.Fatalf("expected first attempt at floor %v, got %v", minRetransmitBackoff, first)
	}
	if last != maxRetransmitBackoff {
		t.Fatalf("expected last attempt at ceiling %v, got %v", maxRetransmitBackoff, last)
	}
	if last < first {
		t.Fatalf("expected backoff to widen, got %v then %v", first, last)
	}
}

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string { return "i/o timeout" }
func (fakeTimeoutError) Timeout() bool { return true }

func TestIsTimeoutRecognizesTimeoutInterface(t *testing.T) {
	if !isTimeout(fakeTimeoutError{}) {
		t.Fatalf("expected fakeTimeoutError to be recognized as a timeout")
	}
	if isTimeout(errors.New("some other error")) {
		t.Fatalf("expected plain error to not be a timeout")
	}
}

func TestNewDefaultsFrequency(t *testing.T) {
	e := New(Config{Address: "10.0.0.1", Username: "u", ClientKeyHex: "00"})
	if e.cfg.StreamFrequencyHz != defaultStreamFrequencyHz {
		t.Fatalf("expected default frequency %d, got %d", defaultStreamFrequencyHz, e.cfg.StreamFrequencyHz)
	}
}

func TestRunExitsPromptlyOnStop(t *testing.T) {
	e := New(Config{StreamFrequencyHz: 1000})
	e.conn = nil // Run must check stop before touching conn

	stop := make(chan struct{})
	close(stop)

	done := make(chan error, 1)
	go func() { done <- e.Run(stop, func() []LightColor { return nil }) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not exit promptly on closed stop channel")
	}
}
