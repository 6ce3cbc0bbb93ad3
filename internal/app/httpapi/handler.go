package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
	svc "github.com/meridianhq/scenario-engine/internal/app/services/scenario"
	"github.com/meridianhq/scenario-engine/pkg/apierr"
)

// handler bundles the scenario engine's HTTP endpoints.
type handler struct {
	engine      *svc.Engine
	broadcaster *Broadcaster
}

// NewHandler returns a mux exposing the scenario engine's REST and
// websocket API.
func NewHandler(engine *svc.Engine, broadcaster *Broadcaster) http.Handler {
	h := &handler{engine: engine, broadcaster: broadcaster}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(engine.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /scenarios/{scenarioID}/start", h.startScenario)
	mux.HandleFunc("GET /executions/{id}", h.getExecution)
	mux.HandleFunc("GET /executions/{id}/lineage", h.lineage)
	mux.HandleFunc("POST /executions/{id}/pause", h.pause)
	mux.HandleFunc("POST /executions/{id}/resume", h.resume)
	mux.HandleFunc("POST /executions/{id}/cancel", h.cancel)
	mux.HandleFunc("POST /executions/{id}/restart", h.restart)
	if broadcaster != nil {
		mux.HandleFunc("GET /ws", broadcaster.ServeHTTP)
	}
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startRequest struct {
	Mode        string `json:"mode"`
	TriggerData any    `json:"triggerData,omitempty"`
}

func (h *handler) startScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("scenarioID")

	var body startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, apierr.InvalidInput("body", "must be valid JSON"))
			return
		}
	}
	mode := domain.Mode(body.Mode)
	if mode == "" {
		mode = domain.ModeSimulation
	}

	id, err := h.engine.StartScenario(r.Context(), scenarioID, mode, body.TriggerData)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"executionId": id})
}

func (h *handler) getExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.engine.GetExecution(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (h *handler) lineage(w http.ResponseWriter, r *http.Request) {
	chain, err := h.engine.ExecutionLineage(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

func (h *handler) pause(w http.ResponseWriter, r *http.Request) {
	writeTransitionResult(w, h.engine.PauseExecution(r.PathValue("id")))
}

func (h *handler) resume(w http.ResponseWriter, r *http.Request) {
	writeTransitionResult(w, h.engine.ResumeExecution(r.PathValue("id")))
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	writeTransitionResult(w, h.engine.CancelExecution(r.PathValue("id")))
}

func (h *handler) restart(w http.ResponseWriter, r *http.Request) {
	id, err := h.engine.RestartExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"executionId": id})
}

func writeTransitionResult(w http.ResponseWriter, ok bool) {
	if !ok {
		writeError(w, http.StatusConflict, errors.New("invalid state transition"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeEngineError(w http.ResponseWriter, err error) {
	var ee *apierr.EngineError
	if errors.As(err, &ee) {
		writeError(w, ee.HTTPStatus, ee)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}
