// Package scenario implements the scenario execution engine: the DAG
// scheduler, control plane, admission controller, execution store, event
// stream, and the Engine Façade that ties them together.
package scenario

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
	"github.com/meridianhq/scenario-engine/pkg/apierr"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

// Catalog supplies validated Scenario objects by id. Must be safe to call
// concurrently; scenario parsing, schema validation, and disk persistence
// are the Catalog's concern, not the engine's.
type Catalog interface {
	GetScenario(id string) (domain.Scenario, bool)
}

var _ interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
} = (*Engine)(nil)

// Engine is the Façade: the engine's only entry point, grounded on the
// host's internal/app/system.Service lifecycle interface
// (Name/Start/Stop) and internal/app/services/cre's constructor-injection
// style.
type Engine struct {
	catalog   Catalog
	requester Requester
	tracer    Tracer
	cfg       Config
	log       *logger.Logger

	store     *executionStore
	admission *admissionController
	events    *EventStream
	runnerMet *stepRunnerMetrics
	registry  *prometheus.Registry

	mu       sync.Mutex
	controls map[string]*controlPlane
}

// New builds an Engine. requester and tracer may be nil; tracer defaults
// to a no-op, requester defaults to an HTTPRequester built from cfg.
//
// Each Engine owns a private prometheus.Registry rather than registering
// against prometheus.DefaultRegisterer: the default registerer is a
// process-wide global, so a second Engine in the same process (as the
// test suite constructs routinely) would panic with
// AlreadyRegisteredError on its second MustRegister call. Callers that
// expose /metrics should serve Registry() via promhttp.HandlerFor.
func New(catalog Catalog, requester Requester, tracer Tracer, cfg Config, log *logger.Logger) *Engine {
	if requester == nil {
		requester = NewHTTPRequester(cfg.RequestTimeout, cfg.UserAgent)
	}
	if log == nil {
		log = logger.NewDefault("scenario-engine")
	}
	registry := prometheus.NewRegistry()
	return &Engine{
		catalog:   catalog,
		requester: requester,
		tracer:    tracer,
		cfg:       cfg,
		log:       log,
		store:     newExecutionStore(cfg.storeConfig()),
		admission: newAdmissionController(cfg.MaxConcurrency, registry),
		events:    NewEventStream(log),
		runnerMet: newStepRunnerMetrics(registry),
		registry:  registry,
		controls:  make(map[string]*controlPlane),
	}
}

// Registry returns the Engine's private prometheus registry, for wiring
// into an HTTP /metrics endpoint via promhttp.HandlerFor.
func (e *Engine) Registry() *prometheus.Registry { return e.registry }

// Name implements the Service lifecycle interface.
func (e *Engine) Name() string { return "scenario-engine" }

// Start implements the Service lifecycle interface. The sweeper and
// admission controller are already running from New; Start is a no-op
// hook for symmetry with the host's Service contract.
func (e *Engine) Start(ctx context.Context) error { return nil }

// Stop implements the Service lifecycle interface by calling Destroy.
func (e *Engine) Stop(ctx context.Context) error {
	e.Destroy()
	return nil
}

// Destroy stops the sweeper and releases its timer. It does not cancel
// in-flight executions by itself.
func (e *Engine) Destroy() {
	e.store.stop()
}

// Subscribe registers an event subscriber across every execution's
// lifecycle transitions.
func (e *Engine) Subscribe(sub Subscriber) func() {
	return e.events.Subscribe(sub)
}

// StartScenario creates and launches a new execution of the named
// scenario. Returns apierr.ScenarioNotFound if the Catalog has no such
// scenario.
func (e *Engine) StartScenario(ctx context.Context, scenarioID string, mode domain.Mode, triggerData any) (string, error) {
	sc, ok := e.catalog.GetScenario(scenarioID)
	if !ok {
		return "", apierr.ScenarioNotFound(scenarioID)
	}
	return e.launch(ctx, sc, mode, triggerData, ""), nil
}

func (e *Engine) launch(ctx context.Context, sc domain.Scenario, mode domain.Mode, triggerData any, parentExecutionID string) string {
	id := uuid.NewString()
	exec := &domain.Execution{
		ID:                id,
		ScenarioID:        sc.ID,
		Mode:              mode,
		ParentExecutionID: parentExecutionID,
		TriggerData:       triggerData,
		Status:            domain.StatusPending,
		Context:           make(map[string]any),
	}
	e.store.put(*exec)

	control := newControlPlane()
	e.mu.Lock()
	e.controls[id] = control
	e.mu.Unlock()

	go e.driveExecution(ctx, exec, sc, control)
	return id
}

func (e *Engine) driveExecution(ctx context.Context, exec *domain.Execution, sc domain.Scenario, control *controlPlane) {
	defer e.admission.release()
	defer func() {
		e.mu.Lock()
		delete(e.controls, exec.ID)
		e.mu.Unlock()
	}()

	if err := e.admission.acquire(control.context()); err != nil {
		exec.Status = domain.StatusCancelled
		e.store.put(*exec)
		e.events.Publish(Event{Topic: TopicCancelled, Execution: exec.Clone()})
		return
	}

	runner := newStepRunner(e.requester, e.tracer, e.runnerMet)
	d := newDriver(exec, sc, control, runner, e.events, e.log, e.store.put)
	d.run()
	e.store.put(*exec)
}

// GetExecution returns a snapshot of the named execution, or
// apierr.ExecutionNotFound.
func (e *Engine) GetExecution(id string) (domain.Execution, error) {
	exec, ok := e.store.get(id)
	if !ok {
		return domain.Execution{}, apierr.ExecutionNotFound(id)
	}
	return exec, nil
}

// PauseExecution requests a pause; true iff status=running at the time of
// the request. The pause itself is only observed at the next scheduler
// checkpoint.
func (e *Engine) PauseExecution(id string) bool {
	control, ok := e.control(id)
	if !ok {
		return false
	}
	exec, found := e.store.get(id)
	if !found || exec.Status != domain.StatusRunning {
		return false
	}
	return control.pause()
}

// ResumeExecution requests a resume; true iff status=paused.
func (e *Engine) ResumeExecution(id string) bool {
	control, ok := e.control(id)
	if !ok {
		return false
	}
	exec, found := e.store.get(id)
	if !found || exec.Status != domain.StatusPaused {
		return false
	}
	return control.resume()
}

// CancelExecution fires the cancellation token; true iff the execution
// was pending, running, or paused.
func (e *Engine) CancelExecution(id string) bool {
	control, ok := e.control(id)
	if !ok {
		return false
	}
	exec, found := e.store.get(id)
	if !found {
		return false
	}
	switch exec.Status {
	case domain.StatusPending, domain.StatusRunning, domain.StatusPaused:
		control.fireCancel()
		return true
	default:
		return false
	}
}

// RestartExecution cancels the named execution if active, then starts a
// fresh execution of the same scenario with parentExecutionId = id.
// Returns apierr.ExecutionNotFound if id is unknown.
func (e *Engine) RestartExecution(ctx context.Context, id string) (string, error) {
	exec, found := e.store.get(id)
	if !found {
		return "", apierr.ExecutionNotFound(id)
	}
	if !exec.Status.IsTerminal() {
		e.CancelExecution(id)
	}
	sc, ok := e.catalog.GetScenario(exec.ScenarioID)
	if !ok {
		return "", apierr.ScenarioNotFound(exec.ScenarioID)
	}
	return e.launch(ctx, sc, exec.Mode, exec.TriggerData, id), nil
}

// PauseAll, ResumeAll, CancelAll iterate over non-terminal executions and
// return the count of successful transitions.
func (e *Engine) PauseAll() int  { return e.forEachActive(e.PauseExecution) }
func (e *Engine) ResumeAll() int { return e.forEachActive(e.ResumeExecution) }
func (e *Engine) CancelAll() int { return e.forEachActive(e.CancelExecution) }

func (e *Engine) forEachActive(op func(string) bool) int {
	count := 0
	for _, exec := range e.store.list() {
		if exec.Status.IsTerminal() {
			continue
		}
		if op(exec.ID) {
			count++
		}
	}
	return count
}

func (e *Engine) control(id string) (*controlPlane, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.controls[id]
	return c, ok
}

// ExecutionLineage walks parentExecutionId links back to the root,
// returning oldest-first. Read-only and additive; it does not change
// restart semantics.
func (e *Engine) ExecutionLineage(id string) ([]domain.Execution, error) {
	var chain []domain.Execution
	cur := id
	for cur != "" {
		exec, ok := e.store.get(cur)
		if !ok {
			return nil, apierr.ExecutionNotFound(id)
		}
		chain = append(chain, exec)
		cur = exec.ParentExecutionID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ActiveCount returns the number of non-terminal executions of the named
// scenario, mirroring the host automation Scheduler's list-then-filter
// idiom.
func (e *Engine) ActiveCount(scenarioID string) int {
	count := 0
	for _, exec := range e.store.list() {
		if exec.ScenarioID == scenarioID && !exec.Status.IsTerminal() {
			count++
		}
	}
	return count
}
