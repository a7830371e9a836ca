package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/TAIGA/internal/config"
	"github.com/copyleftdev/TAIGA/internal/logging"
	"github.com/copyleftdev/TAIGA/internal/placement"
	"github.com/copyleftdev/TAIGA/internal/placement/annealing"
	"github.com/copyleftdev/TAIGA/internal/problem"
)

// Logger defines the logging interface used by the server.
// This allows us to be flexible with our logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// PlacementState tracks one placement job from acceptance to a terminal
// status. The state is guarded by the server's job mutex.
type PlacementState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Config      placement.PlacerConfig
	Placer      placement.Placer
	Result      *placement.Result
	Wirelength  float64
	Overlaps    int
	Error       string
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server implements the HTTP and JSON-RPC surface of the placement service.
// It manages placement jobs and provides endpoints to start, monitor, and
// cancel them.
type Server struct {
	cfg       *config.Config
	logger    Logger
	engineLog *zap.Logger
	metrics   *metrics

	// Placement job state management
	jobs   map[string]*PlacementState
	jobsMu sync.RWMutex // Protects the jobs map
}

// NewServer creates a new server instance. engineLog is handed to every
// annealer for progress logging; nil disables it. reg receives the job
// metrics; nil uses the default registerer.
func NewServer(cfg *config.Config, logger Logger, engineLog *zap.Logger, reg prometheus.Registerer) *Server {
	if engineLog == nil {
		engineLog = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		engineLog: engineLog,
		metrics:   newMetrics(reg),
		jobs:      make(map[string]*PlacementState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/placements", s.handleStart)
		r.Get("/placements/{id}", s.handleStatus)
		r.Get("/placements/{id}/history", s.handleHistory)
		r.Delete("/placements/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// startJob validates a problem spec, registers a job, and launches the
// annealing run. Shared by the REST and JSON-RPC handlers.
func (s *Server) startJob(spec problem.Spec) (*PlacementState, error) {
	// Unset request parameters fall back to the service defaults.
	if spec.Annealing.MaxIterations == 0 {
		spec.Annealing.MaxIterations = s.cfg.Placement.MaxIterations
	}
	if spec.Annealing.StartTemp == 0 {
		spec.Annealing.StartTemp = s.cfg.Placement.StartTemp
	}
	if spec.Annealing.Cooling == 0 {
		spec.Annealing.Cooling = s.cfg.Placement.Cooling
	}
	if spec.Annealing.OverlapPenalty == 0 {
		spec.Annealing.OverlapPenalty = s.cfg.Placement.OverlapPenalty
	}

	runCfg, err := spec.Config()
	if err != nil {
		return nil, err
	}

	if s.runningJobs() >= s.cfg.Placement.MaxConcurrentRuns {
		return nil, fmt.Errorf("too many concurrent placement runs (limit %d)", s.cfg.Placement.MaxConcurrentRuns)
	}

	placer, err := annealing.New(runCfg, s.engineLog)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	state := &PlacementState{
		ID:          "plc_" + uuid.NewString(),
		Status:      "pending",
		StartTime:   time.Now(),
		Config:      runCfg,
		Placer:      placer,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.jobsMu.Lock()
	s.jobs[state.ID] = state
	s.jobsMu.Unlock()

	s.metrics.runsStarted.Inc()
	s.logger.Info("Placement run accepted", map[string]interface{}{
		"placement_id": state.ID,
		"modules":      len(runCfg.Problem.Catalog),
		"nets":         len(runCfg.Problem.Nets),
		"iterations":   runCfg.MaxIterations,
	})

	go s.runPlacement(ctx, state)

	return state, nil
}

// runningJobs counts jobs in a non-terminal state.
func (s *Server) runningJobs() int {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	n := 0
	for _, job := range s.jobs {
		if job.Status == "pending" || job.Status == "running" {
			n++
		}
	}
	return n
}

// runPlacement executes the annealing run in a goroutine and records the
// terminal state.
func (s *Server) runPlacement(ctx context.Context, state *PlacementState) {
	s.jobsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	s.metrics.runsRunning.Inc()
	defer s.metrics.runsRunning.Dec()

	result, err := state.Placer.Place(ctx)

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	// A cancel request already moved the job to its terminal state.
	if state.Status == "cancelled" {
		s.metrics.runsFinished.WithLabelValues("cancelled").Inc()
		return
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	if err != nil {
		state.Status = "failed"
		state.Error = err.Error()
		s.metrics.runsFinished.WithLabelValues("failed").Inc()
		s.logger.Error("Placement run failed", map[string]interface{}{
			"placement_id": state.ID,
			"error":        err.Error(),
		})
		return
	}

	state.Status = "completed"
	state.Result = result

	eval := placement.NewEvaluator(state.Config.Problem, state.Config.OverlapPenalty)
	state.Wirelength = eval.Wirelength(result.Best.Placement)
	state.Overlaps = eval.OverlapCount(result.Best.Placement)

	s.metrics.runsFinished.WithLabelValues("completed").Inc()
	s.metrics.iterationsTotal.Add(float64(result.Iterations))
	s.metrics.lastBestCost.Set(result.Best.Cost)

	s.logger.Info("Placement run completed", map[string]interface{}{
		"placement_id": state.ID,
		"best_cost":    result.Best.Cost,
		"wirelength":   state.Wirelength,
		"overlaps":     state.Overlaps,
		"iterations":   result.Iterations,
	})
}

// handleStart handles POST /api/v1/placements.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var spec problem.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}

	state, err := s.startJob(spec)
	if err != nil {
		code := http.StatusBadRequest
		if _, ok := placement.IsPlacementError(err); !ok {
			code = http.StatusTooManyRequests
		}
		s.respondJSON(w, code, map[string]interface{}{"error": err.Error()})
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"placement_id": state.ID,
		"status":       state.Status,
	})
}

// handleStatus handles GET /api/v1/placements/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.RLock()
	state, exists := s.jobs[id]
	if !exists {
		s.jobsMu.RUnlock()
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{"error": "placement not found"})
		return
	}
	payload := s.statusPayload(state)
	s.jobsMu.RUnlock()

	s.respondJSON(w, http.StatusOK, payload)
}

// handleHistory handles GET /api/v1/placements/{id}/history. The cost curve
// can run to tens of thousands of samples, so it lives on its own endpoint
// instead of the status payload.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.RLock()
	state, exists := s.jobs[id]
	s.jobsMu.RUnlock()
	if !exists {
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{"error": "placement not found"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"placement_id": id,
		"history":      state.Placer.History(),
	})
}

// handleCancel handles DELETE /api/v1/placements/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.cancelJob(id); err != nil {
		s.respondJSON(w, http.StatusConflict, map[string]interface{}{"error": err.Error()})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"placement_id": id,
		"status":       "cancelled",
	})
}

// cancelJob moves a job to the cancelled state if it is not already terminal.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("placement not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel placement with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Placement run cancelled", map[string]interface{}{
		"placement_id": id,
	})

	return nil
}

// statusPayload builds the status response for a job. Callers hold at least
// a read lock on the jobs map.
func (s *Server) statusPayload(state *PlacementState) map[string]interface{} {
	payload := map[string]interface{}{
		"placement_id": state.ID,
		"status":       state.Status,
		"start_time":   state.StartTime.Format(time.RFC3339),
		"last_update":  state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		payload["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		payload["error"] = state.Error
	}

	if state.Config.MaxIterations > 0 {
		done := len(state.Placer.History())
		payload["progress"] = float64(done) / float64(state.Config.MaxIterations)
	}

	if state.Result != nil {
		result := state.Result
		payload["iterations"] = result.Iterations
		payload["best"] = map[string]interface{}{
			"cost":       result.Best.Cost,
			"wirelength": state.Wirelength,
			"overlaps":   state.Overlaps,
			"placement":  placementJSON(state.Config.Problem.Catalog, result.Best.Placement),
		}
		summary := result.Summarize()
		payload["summary"] = map[string]interface{}{
			"initial_cost": summary.InitialCost,
			"best_cost":    summary.BestCost,
			"tail_mean":    summary.TailMean,
			"tail_stddev":  summary.TailStdDev,
			"reduction":    summary.Reduction,
		}
	} else if best := state.Placer.Best(); best != nil {
		payload["current_best"] = map[string]interface{}{
			"cost":      best.Cost,
			"placement": placementJSON(state.Config.Problem.Catalog, best.Placement),
		}
	}

	return payload
}

// placementJSON maps module names back onto coordinates for the boundary.
func placementJSON(catalog placement.Catalog, p placement.Placement) map[string][2]float64 {
	out := make(map[string][2]float64, len(catalog))
	for id, m := range catalog {
		out[m.Name] = [2]float64{p[id].X, p[id].Y}
	}
	return out
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondRPCError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondRPCError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "placement.start":
		result, err = s.rpcStart(request.Params)
	case "placement.status":
		result, err = s.rpcStatus(request.Params)
	case "placement.cancel":
		result, err = s.rpcCancel(request.Params)
	default:
		s.respondRPCError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondRPCError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// rpcStart handles the placement.start JSON-RPC method. The single
// positional parameter carries the same problem spec as the REST body.
func (s *Server) rpcStart(params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}

	var spec problem.Spec
	if err := json.Unmarshal(params[0], &spec); err != nil {
		return nil, fmt.Errorf("invalid parameter format, expected problem object")
	}

	state, err := s.startJob(spec)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"placement_id": state.ID,
		"status":       state.Status,
	}, nil
}

// rpcStatus handles the placement.status JSON-RPC method.
// Expected parameters: {"placement_id": "plc_..."}
func (s *Server) rpcStatus(params []json.RawMessage) (interface{}, error) {
	id, err := rpcPlacementID(params)
	if err != nil {
		return nil, err
	}

	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("placement not found")
	}

	return s.statusPayload(state), nil
}

// rpcCancel handles the placement.cancel JSON-RPC method.
// Expected parameters: {"placement_id": "plc_..."}
func (s *Server) rpcCancel(params []json.RawMessage) (interface{}, error) {
	id, err := rpcPlacementID(params)
	if err != nil {
		return nil, err
	}

	if err := s.cancelJob(id); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"placement_id": id,
		"status":       "cancelled",
	}, nil
}

// rpcPlacementID extracts the placement_id parameter.
func rpcPlacementID(params []json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	var p struct {
		PlacementID string `json:"placement_id"`
	}
	if err := json.Unmarshal(params[0], &p); err != nil || p.PlacementID == "" {
		return "", fmt.Errorf("placement_id is required")
	}
	return p.PlacementID, nil
}

// respondRPCError sends a JSON-RPC 2.0 error response.
func (s *Server) respondRPCError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// respondJSON writes a JSON response with the given status code.
func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// Close cancels all running placement jobs.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}
