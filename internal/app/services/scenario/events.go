package scenario

import (
	"sync"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

// Topic names one of the Event Stream's lifecycle transitions.
type Topic string

const (
	TopicStarted   Topic = "execution:started"
	TopicUpdated   Topic = "execution:updated"
	TopicPaused    Topic = "execution:paused"
	TopicResumed   Topic = "execution:resumed"
	TopicCancelled Topic = "execution:cancelled"
	TopicCompleted Topic = "execution:completed"
	TopicFailed    Topic = "execution:failed"
)

// Event is one emission from the Event Stream: a topic plus the execution
// snapshot at the moment of emission.
type Event struct {
	Topic     Topic
	Execution domain.Execution
}

// Subscriber receives events. A Subscriber must not block indefinitely;
// delivery is synchronous from the driver's point of view.
type Subscriber func(Event)

// EventStream is a simple in-process pub/sub bus. Delivery to subscribers
// of a given execution is synchronous and in order from the driver's
// perspective; a panic or error from one subscriber is isolated and never
// propagates to the driver or to other subscribers. Engine behavior never
// depends on subscriber presence or success (observation is not action).
type EventStream struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	log         *logger.Logger
}

// NewEventStream builds an empty EventStream.
func NewEventStream(log *logger.Logger) *EventStream {
	return &EventStream{log: log}
}

// Subscribe registers a Subscriber for every topic. Returns an unsubscribe
// function.
func (s *EventStream) Subscribe(sub Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.subscribers)
	s.subscribers = append(s.subscribers, sub)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.subscribers) {
			s.subscribers[idx] = nil
		}
	}
}

// Publish delivers ev to every live subscriber in registration order,
// isolating each subscriber's failure from the others and from the
// caller.
func (s *EventStream) Publish(ev Event) {
	s.mu.RLock()
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.RUnlock()

	for _, sub := range subs {
		if sub == nil {
			continue
		}
		s.deliver(sub, ev)
	}
}

func (s *EventStream) deliver(sub Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.LogSubscriberFailure(string(ev.Topic), errPanic{r})
		}
	}()
	sub(ev)
}

type errPanic struct{ v any }

func (e errPanic) Error() string { return "subscriber panic" }
