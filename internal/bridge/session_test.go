package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dtlaine/huedevice/internal/lightmodel"
)

func TestConnectAuthFailureTransitionsToAuthFailed(t *testing.T) {
	srv := serverWithResponse(200, `[{"error":{"type":1,"description":"unauthorized user"}}]`)
	defer srv.Close()
	c := newTestClient(srv, nil)
	s := NewSession(c, "user", 0, zerolog.Nop())

	if err := s.Connect(context.Background()); err == nil {
		t.Fatalf("expected auth failure")
	}
	if s.State() != StateAuthFailed {
		t.Fatalf("expected AuthFailed, got %v", s.State())
	}
}

func TestEnumerateParsesLightsAndGroups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/lights", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"1":{"modelid":"LCT010","name":"Bulb 1","state":{"on":true,"xy":[0.4,0.4],"bri":200,"transitiontime":0}}}`))
	})
	mux.HandleFunc("/api/user/groups", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"5":{"name":"Living Room","lights":["1","2"]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, nil)
	s := NewSession(c, "user", 5, zerolog.Nop())

	lights, groups, err := s.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lights[1].ModelID != "LCT010" || lights[1].Name != "Bulb 1" {
		t.Fatalf("unexpected light attrs: %+v", lights[1])
	}
	if groups[5].Name != "Living Room" || len(groups[5].Lights) != 2 {
		t.Fatalf("unexpected group attrs: %+v", groups[5])
	}
	if s.State() != StateReady {
		t.Fatalf("expected Ready, got %v", s.State())
	}
}

// S5 — stream-group contention: group starts active and owned by us, so
// Session must release it, confirm the release, then re-claim it.
func TestSetStreamGroupActiveReleasesPriorClaimThenClaims(t *testing.T) {
	var getCount, putCount int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/groups/5", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			n := atomic.AddInt32(&getCount, 1)
			if n == 1 {
				w.Write([]byte(`{"name":"g","lights":[],"stream":{"active":true,"owner":"user"}}`))
			} else {
				w.Write([]byte(`{"name":"g","lights":[],"stream":{"active":false}}`))
			}
		case http.MethodPut:
			var body struct {
				Stream struct {
					Active bool `json:"active"`
				} `json:"stream"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			atomic.AddInt32(&putCount, 1)
			w.Write([]byte(`[{"success":{"/groups/5/stream/active":` + boolStr(body.Stream.Active) + `}}]`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, nil)
	s := NewSession(c, "user", 5, zerolog.Nop())

	if err := s.SetStreamGroupActive(context.Background(), true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != StateStreamReady {
		t.Fatalf("expected StreamReady, got %v", s.State())
	}
	if atomic.LoadInt32(&putCount) < 2 {
		t.Fatalf("expected at least 2 PUTs (release then claim), got %d", putCount)
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// S6 — teardown restores originals: two lights captured with originals
// {on:true, xy:[0.4,0.5], bri:200} and {on:false}; RestoreOriginals must PUT
// each light's captured state back verbatim.
func TestRestoreOriginalsPUTsCapturedState(t *testing.T) {
	puts := make(map[int]map[string]any)
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/lights/1/state", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		puts[1] = body
		mu.Unlock()
		w.Write([]byte(`[{"success":{"/lights/1/state/on":true}}]`))
	})
	mux.HandleFunc("/api/user/lights/2/state", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		puts[2] = body
		mu.Unlock()
		w.Write([]byte(`[{"success":{"/lights/2/state/on":false}}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, nil)
	s := NewSession(c, "user", 0, zerolog.Nop())

	on := true
	lightOn, _, err := lightmodel.New(1, 0, "LCT010", "on-light", lightmodel.BridgeLightState{
		On: &on, Xy: []float64{0.4, 0.5}, Bri: 200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	off := false
	lightOff, _, err := lightmodel.New(2, 1, "LCT010", "off-light", lightmodel.BridgeLightState{On: &off})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.RestoreOriginals(context.Background(), map[int]*lightmodel.Light{1: lightOn, 2: lightOff}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if puts[1]["on"] != true || puts[1]["bri"] != float64(200) {
		t.Fatalf("unexpected PUT body for on-light: %+v", puts[1])
	}
	if xy, ok := puts[1]["xy"].([]any); !ok || xy[0] != 0.4 || xy[1] != 0.5 {
		t.Fatalf("unexpected xy in PUT body for on-light: %+v", puts[1])
	}
	if puts[2]["on"] != false {
		t.Fatalf("unexpected PUT body for off-light: %+v", puts[2])
	}
	if _, ok := puts[2]["xy"]; ok {
		t.Fatalf("did not expect xy in PUT body for off-light: %+v", puts[2])
	}
}

func TestSessionUsesConfiguredUsernameInURLs(t *testing.T) {
	srv := serverWithResponse(200, `{}`)
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")
	c := New(addr, "my-user", zerolog.Nop(), nil)
	if got := c.url("lights"); got != "http://"+addr+"/api/my-user/lights" {
		t.Fatalf("unexpected URL: %s", got)
	}
}
