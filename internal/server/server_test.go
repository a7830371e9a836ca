package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/TAIGA/internal/config"
	"github.com/copyleftdev/TAIGA/internal/logging"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Placement.MaxIterations = 50000
	cfg.Placement.StartTemp = 100
	cfg.Placement.Cooling = 0.995
	cfg.Placement.OverlapPenalty = 10
	cfg.Placement.MaxConcurrentRuns = 4
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	logger := logging.New(logging.ErrorLevel, io.Discard)
	srv := NewServer(cfg, logger, zap.NewNop(), prometheus.NewRegistry())

	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func problemBody(iterations int, seed int64) []byte {
	body := map[string]interface{}{
		"surface": map[string]float64{"width": 20, "height": 20},
		"modules": []map[string]interface{}{
			{"name": "A", "width": 2, "height": 3},
			{"name": "B", "width": 3, "height": 2},
		},
		"nets": [][]string{{"A", "B"}},
		"annealing": map[string]interface{}{
			"max_iterations": iterations,
			"seed":           seed,
		},
	}
	data, _ := json.Marshal(body)
	return data
}

func startPlacement(t *testing.T, ts *httptest.Server, body []byte) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/placements", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted struct {
		PlacementID string `json:"placement_id"`
		Status      string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.PlacementID)
	return accepted.PlacementID
}

func getStatus(t *testing.T, ts *httptest.Server, id string) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/v1/placements/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func waitForStatus(t *testing.T, ts *httptest.Server, id, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		payload := getStatus(t, ts, id)
		if payload["status"] == want {
			return payload
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("placement %s never reached status %q", id, want)
	return nil
}

func TestPlacementLifecycle(t *testing.T) {
	_, ts := newTestServer(t, nil)

	id := startPlacement(t, ts, problemBody(500, 11))
	payload := waitForStatus(t, ts, id, "completed")

	require.Contains(t, payload, "best")
	best := payload["best"].(map[string]interface{})
	assert.Contains(t, best, "cost")
	assert.Contains(t, best, "wirelength")

	coords := best["placement"].(map[string]interface{})
	assert.Len(t, coords, 2)
	assert.Contains(t, coords, "A")
	assert.Contains(t, coords, "B")

	require.Contains(t, payload, "summary")
	summary := payload["summary"].(map[string]interface{})
	assert.LessOrEqual(t, summary["best_cost"].(float64), summary["initial_cost"].(float64))

	assert.EqualValues(t, 500, payload["iterations"])
}

func TestPlacementHistory(t *testing.T) {
	_, ts := newTestServer(t, nil)

	id := startPlacement(t, ts, problemBody(200, 13))
	waitForStatus(t, ts, id, "completed")

	resp, err := http.Get(ts.URL + "/api/v1/placements/" + id + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		PlacementID string    `json:"placement_id"`
		History     []float64 `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.History, 200)

	for i := 1; i < len(payload.History); i++ {
		assert.LessOrEqual(t, payload.History[i], payload.History[i-1])
	}
}

func TestStartRejectsInvalidProblem(t *testing.T) {
	_, ts := newTestServer(t, nil)

	body := []byte(`{
		"surface": {"width": 10, "height": 10},
		"modules": [{"name": "A", "width": 30, "height": 1}]
	}`)

	resp, err := http.Post(ts.URL+"/api/v1/placements", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "does not fit")
}

func TestStatusNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/placements/plc_missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelPlacement(t *testing.T) {
	_, ts := newTestServer(t, nil)

	// A budget far beyond test time keeps the run alive until cancelled.
	id := startPlacement(t, ts, problemBody(100_000_000, 17))

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/placements/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := getStatus(t, ts, id)
	assert.Equal(t, "cancelled", payload["status"])

	// Cancelling a terminal job is a conflict.
	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/placements/"+id, nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
}

func TestConcurrencyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Placement.MaxConcurrentRuns = 1
	_, ts := newTestServer(t, cfg)

	startPlacement(t, ts, problemBody(100_000_000, 19))

	resp, err := http.Post(ts.URL+"/api/v1/placements", "application/json", bytes.NewReader(problemBody(100, 23)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func rpcCall(t *testing.T, ts *httptest.Server, method string, params ...interface{}) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestJSONRPCLifecycle(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var spec map[string]interface{}
	require.NoError(t, json.Unmarshal(problemBody(300, 29), &spec))

	started := rpcCall(t, ts, "placement.start", spec)
	require.Contains(t, started, "result")
	result := started["result"].(map[string]interface{})
	id := result["placement_id"].(string)
	require.NotEmpty(t, id)

	deadline := time.Now().Add(10 * time.Second)
	for {
		status := rpcCall(t, ts, "placement.status", map[string]string{"placement_id": id})
		payload := status["result"].(map[string]interface{})
		if payload["status"] == "completed" {
			assert.Contains(t, payload, "best")
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("placement %s never completed", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJSONRPCErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)

	// Unknown method
	payload := rpcCall(t, ts, "placement.destroy")
	require.Contains(t, payload, "error")
	rpcErr := payload["error"].(map[string]interface{})
	assert.EqualValues(t, -32601, rpcErr["code"])

	// Unknown id
	payload = rpcCall(t, ts, "placement.status", map[string]string{"placement_id": "plc_missing"})
	require.Contains(t, payload, "error")
	rpcErr = payload["error"].(map[string]interface{})
	assert.EqualValues(t, -32000, rpcErr["code"])
	assert.Contains(t, rpcErr["message"], "not found")

	// Wrong JSON-RPC version
	body := []byte(`{"jsonrpc": "1.0", "id": 1, "method": "placement.status"}`)
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var versioned map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&versioned))
	rpcErr = versioned["error"].(map[string]interface{})
	assert.EqualValues(t, -32600, rpcErr["code"])
}

func TestRunningJobsCount(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	assert.Equal(t, 0, srv.runningJobs())

	id := startPlacement(t, ts, problemBody(100_000_000, 31))
	assert.Equal(t, 1, srv.runningJobs())

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/placements/%s", ts.URL, id), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 0, srv.runningJobs())
}
