// Package safety coordinates the generation workflows of a daily safety check:
// the hazard assessment, the accident-case lookup and the TBM briefing.
package safety

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ragcon/safety-assistant/internal/parsing"
	"github.com/ragcon/safety-assistant/internal/types"
)

// Workflow identifies one of the three generation workflows.
type Workflow int

const (
	WorkflowHazard Workflow = iota
	WorkflowAccident
	WorkflowTbm
	workflowCount
)

// Workflows lists every workflow.
var Workflows = []Workflow{WorkflowHazard, WorkflowAccident, WorkflowTbm}

func (w Workflow) String() string {
	switch w {
	case WorkflowHazard:
		return "hazard"
	case WorkflowAccident:
		return "accident"
	case WorkflowTbm:
		return "tbm"
	default:
		return "unknown"
	}
}

// Generator is the remote generation service.
type Generator interface {
	RiskAssessment(ctx context.Context, process string) (*parsing.HazardPayload, error)
	AccidentCaseIDs(ctx context.Context, process string) ([]types.CaseNumber, error)
	TbmSection(ctx context.Context, key types.TbmKey, process string) (map[string]any, error)
}

// CaseLookup resolves accident case numbers against the reference dataset.
type CaseLookup interface {
	Lookup(ctx context.Context, ids []types.CaseNumber) ([]types.AccidentCase, error)
}

// Options configures an Orchestrator.
type Options struct {
	Process   string // initial process; defaults to types.DefaultProcess
	Equipment string // initial equipment; defaults to types.DefaultEquipment
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// flow is the lifecycle state of one workflow. seq increases on every start
// and every cancel; a run only applies its result while seq is unchanged.
type flow struct {
	loading bool
	err     *GenerationError
	cancel  context.CancelFunc
	seq     uint64
}

// Orchestrator owns the records of a safety check and the workflows that
// generate them. All methods are safe for concurrent use.
type Orchestrator struct {
	gen    Generator
	cases  CaseLookup
	logger zerolog.Logger
	now    func() time.Time

	defaultProcess   string
	defaultEquipment string

	mu                sync.Mutex
	flows             [workflowCount]flow
	process           string
	equipment         string
	hazards           []types.HazardRecord
	accidents         []types.AccidentCase
	tbm               types.TbmRecord
	risksReviewed     bool
	accidentsReviewed bool
	observers         []Observer
}

// New creates an orchestrator. opts may be nil.
func New(gen Generator, cases CaseLookup, opts *Options) *Orchestrator {
	if opts == nil {
		opts = &Options{}
	}
	o := &Orchestrator{
		gen:              gen,
		cases:            cases,
		logger:           log.Logger,
		now:              time.Now,
		defaultProcess:   types.DefaultProcess,
		defaultEquipment: types.DefaultEquipment,
	}
	if opts.Logger != nil {
		o.logger = *opts.Logger
	}
	if opts.Now != nil {
		o.now = opts.Now
	}
	if p := strings.TrimSpace(opts.Process); p != "" {
		o.defaultProcess = p
	}
	if e := strings.TrimSpace(opts.Equipment); e != "" {
		o.defaultEquipment = e
	}
	o.resetLocked()
	return o
}

// resetLocked restores the initial records and selections.
func (o *Orchestrator) resetLocked() {
	o.process = o.defaultProcess
	o.equipment = o.defaultEquipment
	o.hazards = []types.HazardRecord{types.PlaceholderHazard()}
	o.accidents = []types.AccidentCase{}
	o.tbm = types.EmptyTbm()
	o.risksReviewed = false
	o.accidentsReviewed = false
	for i := range o.flows {
		o.flows[i].err = nil
	}
}

// StartHazardGeneration replaces the hazard list with a fresh assessment of
// process. An empty process uses the selected one.
func (o *Orchestrator) StartHazardGeneration(process string) *Task {
	return o.start(WorkflowHazard, process)
}

// StartAccidentGeneration replaces the accident-case list with the cases the
// service cites for process.
func (o *Orchestrator) StartAccidentGeneration(process string) *Task {
	return o.start(WorkflowAccident, process)
}

// StartTbmGeneration replaces the TBM briefing with one generated for process.
// The three sections are requested concurrently and merged only if all of them
// succeed.
func (o *Orchestrator) StartTbmGeneration(process string) *Task {
	return o.start(WorkflowTbm, process)
}

// applyFunc commits a successful result; it runs with o.mu held.
type applyFunc func(o *Orchestrator)

type runFunc func(ctx context.Context, process string) (applyFunc, error)

// resetOnStart clears what a new run of w replaces. The accident list stays
// until the new cases arrive.
func (o *Orchestrator) resetOnStart(w Workflow) {
	switch w {
	case WorkflowHazard:
		o.hazards = []types.HazardRecord{types.PlaceholderHazard()}
		o.risksReviewed = false
	case WorkflowAccident:
		o.accidentsReviewed = false
	case WorkflowTbm:
		o.tbm = types.EmptyTbm()
	}
}

func (o *Orchestrator) runner(w Workflow) runFunc {
	switch w {
	case WorkflowHazard:
		return o.runHazard
	case WorkflowAccident:
		return o.runAccident
	default:
		return o.runTbm
	}
}

func (o *Orchestrator) start(w Workflow, process string) *Task {
	o.mu.Lock()
	launch := o.startLocked(w, process)
	o.mu.Unlock()
	return launch()
}

// startLocked supersedes any run of w and marks it loading. It must be called
// with o.mu held; the returned launch must be called after releasing it.
func (o *Orchestrator) startLocked(w Workflow, process string) (launch func() *Task) {
	if p := strings.TrimSpace(process); p != "" {
		process = p
	} else {
		process = o.process
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &o.flows[w]
	if f.cancel != nil {
		f.cancel()
	}
	f.seq++
	seq := f.seq
	f.cancel = cancel
	f.loading = true
	f.err = nil
	o.resetOnStart(w)

	run := o.runner(w)
	return func() *Task {
		task := newTask()
		logger := o.logger.With().
			Str("workflow", w.String()).
			Str("run_id", uuid.NewString()).
			Str("process", process).
			Logger()
		logger.Debug().Msg("generation started")
		o.notify(Event{Workflow: w, Kind: EventStarted})
		ctx := logger.WithContext(ctx)

		go func() {
			defer cancel()
			started := time.Now()
			apply, err := run(ctx, process)
			outcome, event := o.finish(ctx, w, seq, apply, err)

			elapsed := time.Since(started)
			switch outcome {
			case OutcomeApplied:
				logger.Info().Dur("duration", elapsed).Msg("generation finished")
			case OutcomeFailed:
				logger.Warn().Err(err).Dur("duration", elapsed).Msg("generation failed")
			default:
				logger.Debug().Dur("duration", elapsed).Msg("generation discarded")
			}
			if event != nil {
				o.notify(*event)
			}
			task.finish(outcome)
		}()
		return task
	}
}

// finish commits the result of run number seq of workflow w unless it was
// cancelled or superseded in the meantime.
func (o *Orchestrator) finish(ctx context.Context, w Workflow, seq uint64, apply applyFunc, err error) (Outcome, *Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f := &o.flows[w]
	if f.seq != seq {
		return OutcomeDiscarded, nil
	}
	f.loading = false
	f.cancel = nil

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return OutcomeDiscarded, &Event{Workflow: w, Kind: EventCancelled}
		}
		f.err = classify(w, err)
		return OutcomeFailed, &Event{Workflow: w, Kind: EventFailed, Err: f.err.clone()}
	}
	apply(o)
	return OutcomeApplied, &Event{Workflow: w, Kind: EventSucceeded}
}

func (o *Orchestrator) runHazard(ctx context.Context, process string) (applyFunc, error) {
	payload, err := o.gen.RiskAssessment(ctx, process)
	if err != nil {
		return nil, err
	}
	records := types.CloneHazards(payload.Records)
	if records == nil {
		records = []types.HazardRecord{}
	}
	return func(o *Orchestrator) {
		o.hazards = records
	}, nil
}

func (o *Orchestrator) runAccident(ctx context.Context, process string) (applyFunc, error) {
	ids, err := o.gen.AccidentCaseIDs(ctx, process)
	if err != nil {
		return nil, err
	}
	cases := []types.AccidentCase{}
	if len(ids) > 0 {
		cases, err = o.cases.Lookup(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	return func(o *Orchestrator) {
		o.accidents = cases
	}, nil
}

func (o *Orchestrator) runTbm(ctx context.Context, process string) (applyFunc, error) {
	g, gctx := errgroup.WithContext(ctx)
	parts := make([]map[string]any, len(types.TbmKeys))
	for i, key := range types.TbmKeys {
		i, key := i, key
		g.Go(func() error {
			part, err := o.gen.TbmSection(gctx, key, process)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := parsing.MergeTbm(parts...)
	if err != nil {
		return nil, err
	}
	return func(o *Orchestrator) {
		o.tbm = merged
	}, nil
}

// CancelHazard aborts the running hazard generation, if any.
func (o *Orchestrator) CancelHazard() { o.cancel(WorkflowHazard) }

// CancelAccident aborts the running accident-case generation, if any.
func (o *Orchestrator) CancelAccident() { o.cancel(WorkflowAccident) }

// CancelTbm aborts the running TBM generation, if any.
func (o *Orchestrator) CancelTbm() { o.cancel(WorkflowTbm) }

// CancelAll aborts every running generation.
func (o *Orchestrator) CancelAll() {
	for _, w := range Workflows {
		o.cancel(w)
	}
}

// cancel stops workflow w and clears its loading flag without waiting for the
// aborted request to return. Cancelling an idle workflow does nothing.
func (o *Orchestrator) cancel(w Workflow) {
	o.mu.Lock()
	cancelled := o.cancelLocked(w)
	o.mu.Unlock()
	if cancelled {
		o.cancelled(w)
	}
}

// cancelLocked reports whether w was running. It must be called with o.mu
// held.
func (o *Orchestrator) cancelLocked(w Workflow) bool {
	f := &o.flows[w]
	if f.cancel == nil {
		return false
	}
	f.cancel()
	f.cancel = nil
	f.seq++
	f.loading = false
	return true
}

func (o *Orchestrator) cancelled(w Workflow) {
	o.logger.Debug().Str("workflow", w.String()).Msg("generation cancelled")
	o.notify(Event{Workflow: w, Kind: EventCancelled})
}

// EditHazardRecord replaces the hazard at index with record.
func (o *Orchestrator) EditHazardRecord(index int, record types.HazardRecord) error {
	if err := record.Validate(); err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}

	o.mu.Lock()
	if index < 0 || index >= len(o.hazards) {
		o.mu.Unlock()
		return ErrIndexRange
	}
	o.hazards[index] = record.Clone()
	o.mu.Unlock()

	o.notify(Event{Workflow: WorkflowHazard, Kind: EventEdited})
	return nil
}

// EditTbmSection replaces the lines of one TBM section.
func (o *Orchestrator) EditTbmSection(key types.TbmKey, lines []string) error {
	if !key.Valid() {
		return ErrUnknownSection
	}

	o.mu.Lock()
	if err := o.tbm.SetSection(key, append([]string{}, lines...)); err != nil {
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	o.notify(Event{Workflow: WorkflowTbm, Kind: EventEdited})
	return nil
}
