// Package probe runs local service liveness probes. Probes are independent
// and run in parallel with individual timeouts, so one hung service cannot
// stall the overall status query beyond the longest single timeout.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultTimeout bounds a single probe when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// maxWorkers bounds probe parallelism.
const maxWorkers = 4

// Result is the outcome of one liveness probe.
type Result struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Port    int    `json:"port,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Prober checks one local service.
type Prober interface {
	Name() string
	Probe(ctx context.Context) Result
}

// TCPProbe dials a local address and reports whether it accepts connections.
type TCPProbe struct {
	ServiceName string
	Addr        string // host:port
}

func (p TCPProbe) Name() string { return p.ServiceName }

func (p TCPProbe) Probe(ctx context.Context) Result {
	res := Result{Name: p.ServiceName, Port: portOf(p.Addr)}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	conn.Close()
	res.Running = true
	return res
}

// HTTPProbe issues a GET and reports running on any non-5xx response.
type HTTPProbe struct {
	ServiceName string
	URL         string
	Client      *http.Client // defaults to http.DefaultClient
}

func (p HTTPProbe) Name() string { return p.ServiceName }

func (p HTTPProbe) Probe(ctx context.Context) Result {
	res := Result{Name: p.ServiceName}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	resp, err := client.Do(req)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		res.Detail = fmt.Sprintf("status %d", resp.StatusCode)
		return res
	}
	res.Running = true
	return res
}

// UnitProbe reports a supervisor unit's state through an injected query, so
// this package stays independent of the lifecycle layer.
type UnitProbe struct {
	ServiceName string
	State       func() (running bool, detail string)
}

func (p UnitProbe) Name() string { return p.ServiceName }

func (p UnitProbe) Probe(ctx context.Context) Result {
	res := Result{Name: p.ServiceName}
	if p.State == nil {
		res.Detail = "no state query configured"
		return res
	}
	res.Running, res.Detail = p.State()
	return res
}

// RunAll executes all probes with a bounded worker pool, each under its own
// timeout. Results keep the input order.
func RunAll(ctx context.Context, timeout time.Duration, probers []Prober) []Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	results := make([]Result, len(probers))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := maxWorkers
	if len(probers) < workers {
		workers = len(probers)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				probeCtx, cancel := context.WithTimeout(ctx, timeout)
				results[i] = probers[i].Probe(probeCtx)
				cancel()
			}
		}()
	}

	for i := range probers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func portOf(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
