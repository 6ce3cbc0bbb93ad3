package scenario

import (
	"sync"
	"time"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

// driver owns one execution end to end: admission, the DAG scheduler's
// wave loop, the pause/resume/cancel checkpoints, and the terminal
// transition. Grounded on the host's automation.Scheduler.tick(), which
// spawns one goroutine per due job behind a sync.WaitGroup each tick;
// here one wave, one set of dependency-satisfied steps.
type driver struct {
	exec     *domain.Execution
	scenario domain.Scenario
	control  *controlPlane
	runner   *stepRunner
	events   *EventStream
	log      *logger.Logger
	sync     func(domain.Execution)
}

func newDriver(exec *domain.Execution, sc domain.Scenario, control *controlPlane, runner *stepRunner, events *EventStream, log *logger.Logger, sync func(domain.Execution)) *driver {
	return &driver{exec: exec, scenario: sc, control: control, runner: runner, events: events, log: log, sync: sync}
}

// run is the DAG scheduler's main loop (§4.7). It must be called with the
// execution already registered in the store as pending; admission slot
// acquisition happens before run is invoked.
func (d *driver) run() {
	d.exec.Status = domain.StatusRunning
	d.exec.StartedAt = time.Now()
	d.logTransition()
	d.publish(TopicStarted)

	pending := make(map[string]struct{}, len(d.scenario.Steps))
	for _, s := range d.scenario.Steps {
		pending[s.ID] = struct{}{}
	}
	completed := make(map[string]struct{}, len(d.scenario.Steps))

	for {
		if d.control.isCancelled() {
			d.finishCancelled()
			return
		}

		if d.control.isPaused() {
			d.freezePause(pending, completed)
			d.logTransition()
			d.publish(TopicPaused)
			cancelled := d.control.waitResumeOrCancel()
			if cancelled {
				d.finishCancelled()
				return
			}
			d.exec.Status = domain.StatusRunning
			d.exec.PausedState = nil
			d.logTransition()
			d.publish(TopicResumed)
		}

		if len(pending) == 0 {
			break
		}

		frontier := d.computeFrontier(pending, completed)
		if len(frontier) == 0 {
			d.finishDeadlock()
			return
		}

		for _, id := range frontier {
			delete(pending, id)
		}
		d.runWave(frontier)
		for _, id := range frontier {
			completed[id] = struct{}{}
		}
	}

	if d.control.isCancelled() {
		d.finishCancelled()
		return
	}
	d.finishCompleted()
}

// computeFrontier returns pending step ids whose dependsOn are all in
// completed, in scenario order for deterministic wave composition.
func (d *driver) computeFrontier(pending, completed map[string]struct{}) []string {
	var frontier []string
	for _, s := range d.scenario.Steps {
		if _, isPending := pending[s.ID]; !isPending {
			continue
		}
		ready := true
		for _, dep := range s.DependsOn {
			if _, ok := completed[dep]; !ok {
				ready = false
				break
			}
		}
		if ready {
			frontier = append(frontier, s.ID)
		}
	}
	return frontier
}

// runWave launches one Step Runner per frontier id concurrently and
// awaits them all before returning. Per §4.7/§5, the execution's Context
// is written only by the driver: each goroutine runs against a read-only
// snapshot taken before the wave starts (safe, since the previous wave's
// writes are already complete by the time runWave is called) and hands
// its extracted variables and completed flag back to the driver, which
// merges them into exec.Context/PassedSteps under the wave mutex.
func (d *driver) runWave(frontier []string) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	contextSnapshot := d.exec.Clone().Context
	priorResults := make(map[string]domain.StepResult, len(d.exec.Steps))
	for _, r := range d.exec.Steps {
		priorResults[r.StepID] = r
	}

	for _, id := range frontier {
		step, ok := d.scenario.StepByID(id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(step domain.Step) {
			defer wg.Done()
			outcome := d.runner.run(d.control.context(), d.exec.ID, contextSnapshot, priorResults, step, func(partial domain.StepResult) {
				mu.Lock()
				d.upsertStepResultLocked(step.ID, partial)
				d.publishLocked()
				mu.Unlock()
			})
			mu.Lock()
			for name, value := range outcome.Extracted {
				d.exec.Context[name] = value
			}
			if outcome.Result.Status == domain.StepCompleted {
				d.exec.PassedSteps++
			}
			d.upsertStepResultLocked(step.ID, outcome.Result)
			mu.Unlock()
			if outcome.Result.Status.IsTerminalStep() && d.log != nil {
				d.log.LogStepOutcome(d.exec.ID, step.ID, string(outcome.Result.Status), outcome.Result.Attempts)
			}
		}(step)
	}
	wg.Wait()
}

// upsertStepResultLocked records a step's in-progress or final result.
// Must be called while holding the wave's mutex (the Step Runner only
// ever computes its own step's outcome; exec.Steps/Context are shared and
// mutated here, and only here).
func (d *driver) upsertStepResultLocked(stepID string, result domain.StepResult) {
	for i := range d.exec.Steps {
		if d.exec.Steps[i].StepID == stepID {
			d.exec.Steps[i] = result
			return
		}
	}
	d.exec.Steps = append(d.exec.Steps, result)
}

// logTransition logs the execution's current status as a lifecycle
// transition line, per SPEC_FULL.md's "one line per lifecycle transition".
func (d *driver) logTransition() {
	if d.log != nil {
		d.log.LogExecution(d.exec.ID, d.exec.ScenarioID, string(d.exec.Status))
	}
}

func (d *driver) publishLocked() {
	d.publish(TopicUpdated)
}

func (d *driver) publish(topic Topic) {
	snapshot := d.exec.Clone()
	if d.sync != nil {
		d.sync(snapshot)
	}
	if d.events == nil {
		return
	}
	d.events.Publish(Event{Topic: topic, Execution: snapshot})
}

func (d *driver) freezePause(pending, completed map[string]struct{}) {
	pendingIDs := make([]string, 0, len(pending))
	for id := range pending {
		pendingIDs = append(pendingIDs, id)
	}
	completedIDs := make([]string, 0, len(completed))
	for id := range completed {
		completedIDs = append(completedIDs, id)
	}
	results := make(map[string]domain.StepResult, len(d.exec.Steps))
	for _, r := range d.exec.Steps {
		results[r.StepID] = r
	}
	d.exec.Status = domain.StatusPaused
	d.exec.PausedState = &domain.PausedState{
		PendingStepIDs:   pendingIDs,
		CompletedStepIDs: completedIDs,
		Context:          d.exec.Context,
		PassedSteps:      d.exec.PassedSteps,
		Results:          results,
	}
}

func (d *driver) finishCancelled() {
	d.exec.Status = domain.StatusCancelled
	d.exec.CompletedAt = time.Now()
	d.exec.Duration = d.exec.CompletedAt.Sub(d.exec.StartedAt)
	d.logTransition()
	d.publish(TopicCancelled)
}

func (d *driver) finishDeadlock() {
	d.exec.Status = domain.StatusFailed
	d.exec.Error = "Deadlock detected: pending steps cannot advance"
	d.exec.CompletedAt = time.Now()
	d.exec.Duration = d.exec.CompletedAt.Sub(d.exec.StartedAt)
	d.logTransition()
	d.publish(TopicFailed)
}

func (d *driver) finishCompleted() {
	d.exec.Status = domain.StatusCompleted
	d.exec.CompletedAt = time.Now()
	d.exec.Duration = d.exec.CompletedAt.Sub(d.exec.StartedAt)

	if d.exec.Mode == domain.ModeAssessment {
		d.exec.Report = buildReport(len(d.scenario.Steps), d.exec.PassedSteps)
	}
	d.logTransition()
	d.publish(TopicCompleted)
}
