package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/roundhouse/internal/aggregator"
	"github.com/zulandar/roundhouse/internal/beacon"
	"github.com/zulandar/roundhouse/internal/identity"
)

func testRouter(t *testing.T) (*gin.Engine, *aggregator.Aggregator) {
	t.Helper()
	agg, err := aggregator.New(aggregator.Opts{
		Identity: &identity.MachineIdentity{MachineID: "m-server", Hostname: "hub"},
		Mode:     "server",
		Table:    aggregator.NewTable(),
	})
	if err != nil {
		t.Fatalf("aggregator.New: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, agg)
	return router, agg
}

func postHeartbeat(t *testing.T, router *gin.Engine, b beacon.Beacon) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal beacon: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/heartbeat", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStart_Validation(t *testing.T) {
	if err := Start(context.Background(), StartOpts{Port: 7420}); err == nil {
		t.Error("expected error for nil aggregator")
	}

	agg, err := aggregator.New(aggregator.Opts{
		Identity: &identity.MachineIdentity{MachineID: "m", Hostname: "h"},
		Mode:     "server",
	})
	if err != nil {
		t.Fatalf("aggregator.New: %v", err)
	}
	if err := Start(context.Background(), StartOpts{Aggregator: agg}); err == nil {
		t.Error("expected error for missing port")
	}
}

func TestHeartbeat_Accepted(t *testing.T) {
	router, agg := testRouter(t)

	w := postHeartbeat(t, router, beacon.Beacon{MachineID: "m-1", Hostname: "box", Sequence: 1})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", w.Code, w.Body.String())
	}

	status := agg.Status(context.Background())
	if len(status.Peers) != 1 || status.Peers[0].MachineID != "m-1" {
		t.Errorf("peers = %+v, want one record for m-1", status.Peers)
	}
}

func TestHeartbeat_StaleSequenceConflicts(t *testing.T) {
	router, _ := testRouter(t)

	if w := postHeartbeat(t, router, beacon.Beacon{MachineID: "m-1", Sequence: 5}); w.Code != http.StatusAccepted {
		t.Fatalf("first beacon status = %d, want 202", w.Code)
	}
	if w := postHeartbeat(t, router, beacon.Beacon{MachineID: "m-1", Sequence: 5}); w.Code != http.StatusConflict {
		t.Errorf("duplicate beacon status = %d, want 409", w.Code)
	}
	if w := postHeartbeat(t, router, beacon.Beacon{MachineID: "m-1", Sequence: 4}); w.Code != http.StatusConflict {
		t.Errorf("out-of-order beacon status = %d, want 409", w.Code)
	}
	if w := postHeartbeat(t, router, beacon.Beacon{MachineID: "m-1", Sequence: 6}); w.Code != http.StatusAccepted {
		t.Errorf("advancing beacon status = %d, want 202", w.Code)
	}
}

func TestHeartbeat_BadRequest(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/heartbeat", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}

	if w := postHeartbeat(t, router, beacon.Beacon{Sequence: 1}); w.Code != http.StatusBadRequest {
		t.Errorf("missing machine_id status = %d, want 400", w.Code)
	}
}

func TestStatus_ReturnsMergedView(t *testing.T) {
	router, _ := testRouter(t)
	postHeartbeat(t, router, beacon.Beacon{MachineID: "m-1", Hostname: "box", Nickname: "laptop", Sequence: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var status aggregator.AggregatedStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.MachineID != "m-server" {
		t.Errorf("MachineID = %q, want m-server", status.MachineID)
	}
	if len(status.Peers) != 1 || status.Peers[0].Nickname != "laptop" {
		t.Errorf("peers = %+v, want laptop", status.Peers)
	}
	if status.Peers[0].Liveness != aggregator.Live {
		t.Errorf("liveness = %q, want %q", status.Peers[0].Liveness, aggregator.Live)
	}
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestStart_GracefulShutdown(t *testing.T) {
	agg, err := aggregator.New(aggregator.Opts{
		Identity: &identity.MachineIdentity{MachineID: "m", Hostname: "h"},
		Mode:     "server",
		Table:    aggregator.NewTable(),
	})
	if err != nil {
		t.Fatalf("aggregator.New: %v", err)
	}

	port := 17420 + int(time.Now().UnixNano()%1000)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Start(ctx, StartOpts{Aggregator: agg, Port: port})
	}()

	// Wait for the server to come up, then cancel.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/healthz", port))
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after cancel, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Error("Start did not return after context cancel")
	}
}
