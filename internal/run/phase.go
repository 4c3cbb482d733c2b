package run

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phase names the states of one grading run. Each transition is driven by
// exactly one external event: the cache response, a scrape settling, a
// stream frame, or the stream ending.
type Phase string

// Run phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseCacheCheck Phase = "cache_check"
	PhaseScraping   Phase = "scraping"
	PhaseGrading    Phase = "grading"
	PhaseStreaming  Phase = "streaming"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Events that drive phase transitions.
const (
	EventCheckCache   = "check_cache"
	EventCacheHit     = "cache_hit"
	EventCacheMiss    = "cache_miss"
	EventScrapeOK     = "scrape_ok"
	EventScrapeFailed = "scrape_failed"
	EventFrame        = "frame"
	EventStreamEnd    = "stream_end"
	EventGradeFailed  = "grading_failed"
)

type phaseContext struct{}

// PhaseMachine enforces the legal run transitions.
type PhaseMachine struct {
	interpreter *statekit.Interpreter[phaseContext]
}

// NewPhaseMachine builds a machine starting in PhaseIdle.
func NewPhaseMachine() (*PhaseMachine, error) {
	builder := statekit.NewMachine[phaseContext]("grading-run").
		WithInitial(statekit.StateID(PhaseIdle)).
		WithContext(phaseContext{})

	builder.State(statekit.StateID(PhaseIdle)).
		On(EventCheckCache).Target(statekit.StateID(PhaseCacheCheck)).
		Done()

	builder.State(statekit.StateID(PhaseCacheCheck)).
		On(EventCacheHit).Target(statekit.StateID(PhaseDone)).
		On(EventCacheMiss).Target(statekit.StateID(PhaseScraping)).
		Done()

	builder.State(statekit.StateID(PhaseScraping)).
		On(EventScrapeOK).Target(statekit.StateID(PhaseGrading)).
		On(EventScrapeFailed).Target(statekit.StateID(PhaseFailed)).
		Done()

	builder.State(statekit.StateID(PhaseGrading)).
		On(EventFrame).Target(statekit.StateID(PhaseStreaming)).
		On(EventGradeFailed).Target(statekit.StateID(PhaseFailed)).
		On(EventStreamEnd).Target(statekit.StateID(PhaseFailed)).
		Done()

	builder.State(statekit.StateID(PhaseStreaming)).
		On(EventFrame).Target(statekit.StateID(PhaseStreaming)).
		On(EventStreamEnd).Target(statekit.StateID(PhaseDone)).
		On(EventGradeFailed).Target(statekit.StateID(PhaseFailed)).
		Done()

	builder.State(statekit.StateID(PhaseDone)).Done()
	builder.State(statekit.StateID(PhaseFailed)).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build phase machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &PhaseMachine{interpreter: interpreter}, nil
}

// Transition applies one event, or reports that the event is illegal in the
// current phase. A "frame" event in the streaming phase is a legal self
// transition.
func (m *PhaseMachine) Transition(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := m.Current()

	if before != after {
		return nil
	}
	if before == PhaseStreaming && event == EventFrame {
		return nil
	}
	return fmt.Errorf("event %q is not allowed in phase %q", event, before)
}

// Current returns the machine's phase.
func (m *PhaseMachine) Current() Phase {
	return Phase(m.interpreter.State().Value)
}
