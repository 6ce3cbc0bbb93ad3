package scenario

import (
	"container/list"
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// admissionMetrics holds the process-wide gauges the admission controller
// publishes, grounded on the host's metrics.Metrics prometheus.*Vec
// construction idiom.
type admissionMetrics struct {
	running *prometheus.GaugeVec
	queued  *prometheus.GaugeVec
}

func newAdmissionMetrics(registerer prometheus.Registerer) *admissionMetrics {
	m := &admissionMetrics{
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scenario_engine_running_executions",
			Help: "Number of executions currently holding an admission slot",
		}, nil),
		queued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scenario_engine_queued_executions",
			Help: "Number of executions waiting for an admission slot",
		}, nil),
	}
	if registerer != nil {
		registerer.MustRegister(m.running, m.queued)
	}
	return m
}

// admissionController is a process-wide semaphore of capacity
// maxConcurrency with a FIFO waiter queue: acquire() either succeeds
// immediately or enqueues; release() wakes the oldest waiter if any,
// otherwise returns the slot to the pool.
type admissionController struct {
	mu        sync.Mutex
	capacity  int
	available int
	waiters   *list.List // of chan struct{}
	metrics   *admissionMetrics
}

func newAdmissionController(maxConcurrency int, registerer prometheus.Registerer) *admissionController {
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}
	return &admissionController{
		capacity:  maxConcurrency,
		available: maxConcurrency,
		waiters:   list.New(),
		metrics:   newAdmissionMetrics(registerer),
	}
}

// acquire blocks until a slot is available or ctx is done. Waiters are
// admitted strictly in the order they called acquire (FIFO).
func (a *admissionController) acquire(ctx context.Context) error {
	a.mu.Lock()
	if a.available > 0 {
		a.available--
		a.publishLocked()
		a.mu.Unlock()
		return nil
	}

	wait := make(chan struct{})
	elem := a.waiters.PushBack(wait)
	a.publishLocked()
	a.mu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		a.mu.Lock()
		select {
		case <-wait:
			// release() already handed this waiter the slot between the
			// outer select firing on ctx.Done() and us acquiring the
			// lock; honor the handoff instead of dropping the slot.
			a.mu.Unlock()
			return nil
		default:
			a.waiters.Remove(elem)
			a.publishLocked()
			a.mu.Unlock()
			return ctx.Err()
		}
	}
}

// release returns a slot to the pool, waking the oldest waiter if any.
func (a *admissionController) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	front := a.waiters.Front()
	if front == nil {
		a.available++
		a.publishLocked()
		return
	}
	a.waiters.Remove(front)
	close(front.Value.(chan struct{}))
	a.publishLocked()
}

func (a *admissionController) publishLocked() {
	running := a.capacity - a.available
	if a.metrics != nil {
		a.metrics.running.WithLabelValues().Set(float64(running))
		a.metrics.queued.WithLabelValues().Set(float64(a.waiters.Len()))
	}
}
