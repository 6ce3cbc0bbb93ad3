package scenario

import (
	"context"
	"errors"
	"math/rand"
	"time"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

// Tracer is an optional hook fired around each step attempt, grounded on
// the host's core/service.ObservationHooks/StartObservation pattern. A
// no-op by default; never affects scheduling or retry decisions.
type Tracer interface {
	// StepAttemptStarted is called before an attempt's request is issued.
	StepAttemptStarted(executionID, stepID string, attempt int)
	// StepAttemptFinished is called after an attempt concludes, with the
	// error (if any) the attempt produced.
	StepAttemptFinished(executionID, stepID string, attempt int, err error)
}

type noopTracer struct{}

func (noopTracer) StepAttemptStarted(string, string, int)        {}
func (noopTracer) StepAttemptFinished(string, string, int, error) {}

// stepRunner drives exactly one step through guard evaluation, the
// attempt loop (delay, template resolution, iterations, extraction,
// assertions), and retry/classification, per the step runner's §4.6
// algorithm.
type stepRunner struct {
	requester Requester
	tracer    Tracer
	metrics   *runnerMetrics
}

func newStepRunner(requester Requester, tracer Tracer, metrics *runnerMetrics) *stepRunner {
	if tracer == nil {
		tracer = noopTracer{}
	}
	return &stepRunner{requester: requester, tracer: tracer, metrics: metrics}
}

// stepOutcome is what run hands back to its caller: the final StepResult
// plus any variables the step's extract rules produced. run never touches
// the shared Execution directly, so it's safe to call concurrently for
// every step in a wave; the driver is responsible for merging Extracted
// into the execution's Context and PassedSteps under its wave mutex.
type stepOutcome struct {
	Result    domain.StepResult
	Extracted map[string]any
}

// run executes step to completion (or guard-skip, or cancellation) against
// a read-only snapshot of the execution's Context and prior step results,
// returning the final StepResult and any extracted variables. The caller
// is responsible for appending/replacing the StepResult in exec.Steps,
// merging Extracted into exec.Context, and emitting execution:updated;
// run itself only computes outcomes.
func (r *stepRunner) run(ctx context.Context, executionID string, contextSnapshot map[string]any, priorResults map[string]domain.StepResult, step domain.Step, emitUpdated func(domain.StepResult)) stepOutcome {
	if step.When != nil {
		if skip, ok := r.evaluateGuard(*step.When, priorResults); ok && skip {
			result := domain.StepResult{StepID: step.ID, Status: domain.StepSkipped, Attempts: 0}
			emitUpdated(result)
			return stepOutcome{Result: result}
		}
	}

	result := domain.StepResult{
		StepID:    step.ID,
		Status:    domain.StepRunning,
		StartedAt: time.Now(),
	}
	emitUpdated(result)

	maxAttempts := step.Retries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		r.tracer.StepAttemptStarted(executionID, step.ID, attempt)

		if cancelled := r.delayGate(ctx, step); cancelled {
			result.Status = domain.StepCancelled
			r.finish(&result)
			r.tracer.StepAttemptFinished(executionID, step.ID, attempt, ErrRequestCancelled)
			return stepOutcome{Result: result}
		}

		resolved := resolveStep(step, contextSnapshot)

		resp, err := r.runIterations(ctx, step, resolved)
		r.tracer.StepAttemptFinished(executionID, step.ID, attempt, err)

		if errors.Is(err, ErrRequestCancelled) {
			result.Status = domain.StepCancelled
			r.finish(&result)
			return stepOutcome{Result: result}
		}
		if err != nil {
			r.recordRequesterError()
			if attempt == maxAttempts {
				result.Status = domain.StepFailed
				result.Error = err.Error()
				r.finish(&result)
				emitUpdated(result)
				return stepOutcome{Result: result}
			}
			continue
		}

		extracted := computeExtractRules(step.Extract, resp)
		result.Assertions = evaluateAssertions(step.Expect, resp)

		if assertionsPassed(result.Assertions) {
			result.Status = domain.StepCompleted
			r.finish(&result)
			emitUpdated(result)
			return stepOutcome{Result: result, Extracted: extracted}
		}

		if attempt < maxAttempts {
			continue
		}

		result.Status = domain.StepFailed
		result.Error = summarizeFailedAssertions(result.Assertions)
		r.finish(&result)
		emitUpdated(result)
		return stepOutcome{Result: result, Extracted: extracted}
	}

	// Unreachable: maxAttempts >= 1 guarantees the loop above returns.
	result.Status = domain.StepFailed
	result.Error = "step runner: attempt loop exited without a result"
	r.finish(&result)
	return stepOutcome{Result: result}
}

func (r *stepRunner) finish(result *domain.StepResult) {
	result.CompletedAt = time.Now()
	if !result.StartedAt.IsZero() {
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
	}
	if r.metrics != nil {
		r.metrics.stepDuration.Observe(result.Duration.Seconds())
	}
}

func (r *stepRunner) recordRequesterError() {
	if r.metrics != nil {
		r.metrics.requesterErrors.Inc()
	}
}

// evaluateGuard resolves a when predicate against a snapshot of prior
// (already-completed, earlier-wave) step results. ok=false means "not a
// skip, proceed"; ok=true,skip=true means the step must be recorded as
// skipped.
func (r *stepRunner) evaluateGuard(when domain.WhenPredicate, priorResults map[string]domain.StepResult) (skip bool, ok bool) {
	referenced, found := priorResults[when.Step]
	if !found {
		return true, true
	}
	if when.Succeeded != nil {
		succeeded := referenced.Status == domain.StepCompleted
		if succeeded != *when.Succeeded {
			return true, true
		}
	}
	if when.Status != nil {
		actual, ok := statusAssertionActual(referenced)
		if !ok || actual != *when.Status {
			return true, true
		}
	}
	return false, true
}

// statusAssertionActual returns the actual value recorded by a step's
// "status" assertion clause, if one was evaluated. Per the design notes,
// a when.status guard against a step with no status assertion has no
// actual to compare and is treated as skip.
func statusAssertionActual(result domain.StepResult) (int, bool) {
	for _, a := range result.Assertions {
		if a.Field == "status" {
			if actual, ok := a.Actual.(int); ok {
				return actual, true
			}
		}
	}
	return 0, false
}

// delayGate sleeps delayMs + uniform([0,jitter)) if jitter>0 else
// delayMs, returning true if cancelled during the sleep.
func (r *stepRunner) delayGate(ctx context.Context, step domain.Step) (cancelled bool) {
	delay := time.Duration(step.DelayMs) * time.Millisecond
	if step.Jitter > 0 {
		delay += time.Duration(rand.Intn(step.Jitter)) * time.Millisecond
	}
	if delay <= 0 {
		return ctx.Err() != nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// runIterations calls the Requester iterations times. The last successful
// response of the final iteration is the attempt's response. A
// non-cancel error on a non-final iteration is recorded but iteration
// continues; if it's the final iteration and no response was ever
// captured, the error surfaces to the attempt loop.
func (r *stepRunner) runIterations(ctx context.Context, step domain.Step, resolved ResolvedRequest) (Response, error) {
	var (
		lastResp Response
		haveResp bool
		lastErr  error
	)
	n := step.NormalizedIterations()
	for i := 1; i <= n; i++ {
		resp, err := r.requester.Perform(ctx, resolved)
		if err != nil {
			if errors.Is(err, ErrRequestCancelled) {
				return Response{}, ErrRequestCancelled
			}
			lastErr = err
			if i == n && !haveResp {
				return Response{}, lastErr
			}
			continue
		}
		lastResp = resp
		haveResp = true
	}
	if !haveResp {
		if lastErr != nil {
			return Response{}, lastErr
		}
		return Response{}, errors.New("scenario engine: no response captured")
	}
	return lastResp, nil
}

// resolveStep resolves every template in a step's request against ctx.
func resolveStep(step domain.Step, ctx map[string]any) ResolvedRequest {
	bodyText, err := resolveBody(step.Request.Body, ctx)
	out := ResolvedRequest{
		Method:  step.Request.Method,
		URL:     resolveTemplate(step.Request.URL, ctx),
		Headers: resolveHeaders(step.Request.Headers, ctx),
		Query:   resolveQuery(step.Request.Query, ctx),
	}
	if err == nil && !step.Request.Body.IsZero() {
		out.Body = bodyText
		out.HasBody = true
	}
	return out
}

// runnerMetrics holds the Step Runner's prometheus collectors.
type runnerMetrics = stepRunnerMetrics
