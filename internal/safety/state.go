package safety

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragcon/safety-assistant/internal/types"
)

// EventKind describes a state change.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
	EventEdited    EventKind = "edited"
	EventSelected  EventKind = "selected"
	EventReviewed  EventKind = "reviewed"
	EventReset     EventKind = "reset"
)

// Event is delivered to observers after the orchestrator's state changed.
// Workflow is meaningless for EventSelected and EventReset.
type Event struct {
	Workflow Workflow
	Kind     EventKind
	Err      *GenerationError
}

// Observer is called after every state change. It may be called from any
// goroutine and must not block; reading Snapshot from it is allowed.
type Observer func(Event)

// OnChange registers fn to be called after every state change.
func (o *Orchestrator) OnChange(fn Observer) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

func (o *Orchestrator) notify(ev Event) {
	o.mu.Lock()
	observers := append([]Observer(nil), o.observers...)
	o.mu.Unlock()
	for _, fn := range observers {
		fn(ev)
	}
}

// WorkflowState is the lifecycle state of one workflow.
type WorkflowState struct {
	Loading bool
	Err     *GenerationError
}

// State is a copy of everything the orchestrator holds.
type State struct {
	Process           string
	Equipment         string
	Hazards           []types.HazardRecord
	Accidents         []types.AccidentCase
	Tbm               types.TbmRecord
	RisksReviewed     bool
	AccidentsReviewed bool
	Workflows         [workflowCount]WorkflowState
}

// Status returns the lifecycle state of w.
func (s State) Status(w Workflow) WorkflowState {
	if w < 0 || w >= workflowCount {
		return WorkflowState{}
	}
	return s.Workflows[w]
}

// Loading reports whether any workflow is running.
func (s State) Loading() bool {
	for _, ws := range s.Workflows {
		if ws.Loading {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := State{
		Process:           o.process,
		Equipment:         o.equipment,
		Hazards:           types.CloneHazards(o.hazards),
		Accidents:         types.CloneAccidents(o.accidents),
		Tbm:               o.tbm.Clone(),
		RisksReviewed:     o.risksReviewed,
		AccidentsReviewed: o.accidentsReviewed,
	}
	for i, f := range o.flows {
		s.Workflows[i] = WorkflowState{Loading: f.loading, Err: f.err.clone()}
	}
	return s
}

// Process returns the selected work process.
func (o *Orchestrator) Process() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.process
}

// Equipment returns the selected equipment.
func (o *Orchestrator) Equipment() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.equipment
}

// SetProcess selects the work process used by later generations. Running
// generations keep the process they started with.
func (o *Orchestrator) SetProcess(process string) {
	process = strings.TrimSpace(process)
	if process == "" {
		return
	}
	o.mu.Lock()
	o.process = process
	o.mu.Unlock()
	o.notify(Event{Kind: EventSelected})
}

// SetEquipment selects the equipment in use.
func (o *Orchestrator) SetEquipment(equipment string) {
	equipment = strings.TrimSpace(equipment)
	if equipment == "" {
		return
	}
	o.mu.Lock()
	o.equipment = equipment
	o.mu.Unlock()
	o.notify(Event{Kind: EventSelected})
}

// Reset cancels every generation and restores the initial selections and
// records in one step.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	var cancelled []Workflow
	for _, w := range Workflows {
		if o.cancelLocked(w) {
			cancelled = append(cancelled, w)
		}
	}
	o.resetLocked()
	o.mu.Unlock()

	for _, w := range cancelled {
		o.cancelled(w)
	}
	o.notify(Event{Kind: EventReset})
}

// StartAll starts all three generations for process, as the start button of
// the safety check does. It refuses while any generation is running; the
// check and the three starts happen under one lock. The returned task
// finishes when all three have.
func (o *Orchestrator) StartAll(process string) (*Task, error) {
	o.mu.Lock()
	for _, f := range o.flows {
		if f.loading {
			o.mu.Unlock()
			return nil, ErrBusy
		}
	}
	if p := strings.TrimSpace(process); p != "" {
		o.process = p
	}
	launches := make([]func() *Task, 0, len(Workflows))
	for _, w := range Workflows {
		launches = append(launches, o.startLocked(w, o.process))
	}
	o.mu.Unlock()

	tasks := make([]*Task, len(launches))
	for i, launch := range launches {
		tasks[i] = launch()
	}
	return joinTasks(tasks...), nil
}

// ReviewItem names a part of the check the user must confirm.
type ReviewItem string

const (
	ReviewRisks     ReviewItem = "risks"
	ReviewAccidents ReviewItem = "accidents"
)

// MarkReviewed records that the user confirmed item. Starting the matching
// generation again clears the mark.
func (o *Orchestrator) MarkReviewed(item ReviewItem) error {
	o.mu.Lock()
	switch item {
	case ReviewRisks:
		o.risksReviewed = true
	case ReviewAccidents:
		o.accidentsReviewed = true
	default:
		o.mu.Unlock()
		return ErrUnknownReview
	}
	o.mu.Unlock()
	o.notify(Event{Kind: EventReviewed})
	return nil
}

// Report is the completed safety check.
type Report struct {
	ID          string               `json:"id"`
	Process     string               `json:"process"`
	Equipment   string               `json:"equipment"`
	Hazards     []types.HazardRecord `json:"hazards"`
	Accidents   []types.AccidentCase `json:"accidents"`
	Tbm         types.TbmRecord      `json:"tbm"`
	CompletedAt time.Time            `json:"completed_at"`
}

// Complete closes the safety check. Both reviews must be done and no
// generation may be running.
func (o *Orchestrator) Complete() (*Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, f := range o.flows {
		if f.loading {
			return nil, ErrStillLoading
		}
	}
	if !o.risksReviewed || !o.accidentsReviewed {
		return nil, ErrNotReviewed
	}
	return &Report{
		ID:          uuid.NewString(),
		Process:     o.process,
		Equipment:   o.equipment,
		Hazards:     types.CloneHazards(o.hazards),
		Accidents:   types.CloneAccidents(o.accidents),
		Tbm:         o.tbm.Clone(),
		CompletedAt: o.now(),
	}, nil
}
