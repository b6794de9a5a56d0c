package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zulandar/roundhouse/internal/config"
)

func TestTCPProbe_Running(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := TCPProbe{ServiceName: "dashboard", Addr: ln.Addr().String()}
	res := p.Probe(context.Background())
	if !res.Running {
		t.Errorf("Running = false, want true: %s", res.Detail)
	}
	if res.Port == 0 {
		t.Error("Port = 0, want listener port")
	}
}

func TestTCPProbe_Down(t *testing.T) {
	// Grab a port and close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := TCPProbe{ServiceName: "dashboard", Addr: addr}
	res := p.Probe(context.Background())
	if res.Running {
		t.Error("Running = true, want false for closed port")
	}
	if res.Detail == "" {
		t.Error("Detail is empty, want dial error")
	}
}

func TestHTTPProbe_Running(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := HTTPProbe{ServiceName: "api", URL: srv.URL}
	res := p.Probe(context.Background())
	if !res.Running {
		t.Errorf("Running = false, want true: %s", res.Detail)
	}
}

func TestHTTPProbe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := HTTPProbe{ServiceName: "api", URL: srv.URL}
	res := p.Probe(context.Background())
	if res.Running {
		t.Error("Running = true, want false for 500 response")
	}
}

func TestUnitProbe(t *testing.T) {
	p := UnitProbe{ServiceName: "agent", State: func() (bool, string) { return true, "pid 42" }}
	res := p.Probe(context.Background())
	if !res.Running {
		t.Error("Running = false, want true")
	}
	if res.Detail != "pid 42" {
		t.Errorf("Detail = %q, want pid 42", res.Detail)
	}

	nostate := UnitProbe{ServiceName: "agent"}
	if nostate.Probe(context.Background()).Running {
		t.Error("Running = true, want false with no state query")
	}
}

func TestRunAll_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	probers := []Prober{
		UnitProbe{ServiceName: "a", State: func() (bool, string) { return true, "" }},
		HTTPProbe{ServiceName: "b", URL: srv.URL},
		UnitProbe{ServiceName: "c", State: func() (bool, string) { return false, "stopped" }},
	}
	results := RunAll(context.Background(), time.Second, probers)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].Name != want {
			t.Errorf("results[%d].Name = %q, want %q", i, results[i].Name, want)
		}
	}
	if !results[0].Running || !results[1].Running || results[2].Running {
		t.Errorf("unexpected running flags: %+v", results)
	}
}

func TestRunAll_HungProbeIsBounded(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	probers := []Prober{
		HTTPProbe{ServiceName: "hung", URL: srv.URL},
		UnitProbe{ServiceName: "fast", State: func() (bool, string) { return true, "" }},
	}

	start := time.Now()
	results := RunAll(context.Background(), 100*time.Millisecond, probers)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("RunAll took %v, want bounded by probe timeout", elapsed)
	}
	if results[0].Running {
		t.Error("hung probe reported running")
	}
	if !results[1].Running {
		t.Error("fast probe not running; hung probe must not stall it")
	}
}

func TestRunAll_Empty(t *testing.T) {
	results := RunAll(context.Background(), time.Second, nil)
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestFromConfig(t *testing.T) {
	specs := []config.ServiceProbe{
		{Name: "dash", Kind: "tcp", Target: "127.0.0.1:7420"},
		{Name: "api", Kind: "http", Target: "http://127.0.0.1:7420/healthz"},
		{Name: "agent", Kind: "unit", Target: "com.zulandar.roundhouse.agent"},
	}
	var askedLabel string
	probers := FromConfig(specs, func(label string) (bool, string) {
		askedLabel = label
		return true, ""
	})
	if len(probers) != 3 {
		t.Fatalf("len(probers) = %d, want 3", len(probers))
	}
	res := probers[2].Probe(context.Background())
	if !res.Running {
		t.Error("unit probe not running")
	}
	if askedLabel != "com.zulandar.roundhouse.agent" {
		t.Errorf("unit state asked for %q, want agent label", askedLabel)
	}
}
