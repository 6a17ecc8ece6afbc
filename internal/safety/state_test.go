package safety

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcon/safety-assistant/internal/parsing"
	"github.com/ragcon/safety-assistant/internal/types"
)

func succeedingGenerator() *fakeGenerator {
	return &fakeGenerator{
		hazard: func(context.Context, string) (*parsing.HazardPayload, error) {
			return hazardsNamed("추락"), nil
		},
		ids: func(context.Context, string) ([]types.CaseNumber, error) {
			return []types.CaseNumber{}, nil
		},
		section: func(_ context.Context, key types.TbmKey, _ string) (map[string]any, error) {
			return tbmResponses()[key], nil
		},
	}
}

func TestNew_Defaults(t *testing.T) {
	s := newTestOrchestrator(&fakeGenerator{}, nil).Snapshot()

	assert.Equal(t, types.DefaultProcess, s.Process)
	assert.Equal(t, types.DefaultEquipment, s.Equipment)
	assert.Equal(t, []types.HazardRecord{types.PlaceholderHazard()}, s.Hazards)
	assert.NotNil(t, s.Accidents)
	assert.Empty(t, s.Accidents)
	assert.Equal(t, types.EmptyTbm(), s.Tbm)
	assert.False(t, s.Loading())
}

func TestNew_Options(t *testing.T) {
	logger := zerolog.Nop()
	o := New(&fakeGenerator{}, nil, &Options{Process: "철골공사", Equipment: "타워크레인", Logger: &logger})

	assert.Equal(t, "철골공사", o.Process())
	assert.Equal(t, "타워크레인", o.Equipment())
}

func TestSetProcessAndEquipment(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, nil)

	o.SetProcess("  가설공사 > 비계  ")
	o.SetEquipment("굴착기")
	assert.Equal(t, "가설공사 > 비계", o.Process())
	assert.Equal(t, "굴착기", o.Equipment())

	o.SetProcess("")
	o.SetEquipment(" ")
	assert.Equal(t, "가설공사 > 비계", o.Process())
	assert.Equal(t, "굴착기", o.Equipment())
}

func TestReset(t *testing.T) {
	o := newTestOrchestrator(succeedingGenerator(), nil)
	o.SetProcess("토공사")
	o.SetEquipment("굴착기")
	wait(t, o.StartHazardGeneration(""))
	require.NoError(t, o.MarkReviewed(ReviewRisks))

	o.Reset()
	s := o.Snapshot()
	assert.Equal(t, types.DefaultProcess, s.Process)
	assert.Equal(t, types.DefaultEquipment, s.Equipment)
	assert.Equal(t, []types.HazardRecord{types.PlaceholderHazard()}, s.Hazards)
	assert.False(t, s.RisksReviewed)
}

func TestReset_CancelsRunningGenerations(t *testing.T) {
	gen := &fakeGenerator{
		hazard: func(ctx context.Context, _ string) (*parsing.HazardPayload, error) {
			return nil, blockUntilCancelled(ctx)
		},
	}
	o := newTestOrchestrator(gen, nil)
	task := o.StartHazardGeneration("p")

	o.Reset()
	assert.False(t, o.Snapshot().Loading())
	assert.Equal(t, OutcomeDiscarded, wait(t, task))
}

func TestStartAll(t *testing.T) {
	o := newTestOrchestrator(succeedingGenerator(), nil)

	task, err := o.StartAll("전기공사")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, wait(t, task))

	s := o.Snapshot()
	assert.Equal(t, "전기공사", s.Process)
	assert.Equal(t, "추락", s.Hazards[0].Category)
	assert.Equal(t, []string{"b"}, s.Tbm.Checklist)
	assert.False(t, s.Loading())
}

func TestStartAll_RefusedWhileLoading(t *testing.T) {
	gen := succeedingGenerator()
	gen.hazard = func(ctx context.Context, _ string) (*parsing.HazardPayload, error) {
		return nil, blockUntilCancelled(ctx)
	}
	o := newTestOrchestrator(gen, nil)
	running := o.StartHazardGeneration("p")

	task, err := o.StartAll("p")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, task)

	o.CancelHazard()
	wait(t, running)
}

func TestStartAll_ConcurrentCallersStartOnce(t *testing.T) {
	gen := succeedingGenerator()
	gen.hazard = func(ctx context.Context, _ string) (*parsing.HazardPayload, error) {
		return nil, blockUntilCancelled(ctx)
	}
	o := newTestOrchestrator(gen, nil)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started []*Task
		busy    int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := o.StartAll("p")
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrBusy) {
				busy++
				return
			}
			started = append(started, task)
		}()
	}
	wg.Wait()

	require.Len(t, started, 1)
	assert.Equal(t, callers-1, busy)

	o.CancelAll()
	wait(t, started[0])
}

func TestReset_ObserversSeeResetState(t *testing.T) {
	gen := &fakeGenerator{
		hazard: func(ctx context.Context, _ string) (*parsing.HazardPayload, error) {
			return nil, blockUntilCancelled(ctx)
		},
	}
	o := newTestOrchestrator(gen, nil)
	o.SetProcess("토공사")
	task := o.StartHazardGeneration("")

	var (
		mu     sync.Mutex
		kinds  []EventKind
		states []State
	)
	o.OnChange(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, ev.Kind)
		states = append(states, o.Snapshot())
	})
	o.Reset()
	assert.Equal(t, OutcomeDiscarded, wait(t, task))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []EventKind{EventCancelled, EventReset}, kinds)
	for _, s := range states {
		assert.Equal(t, types.DefaultProcess, s.Process)
		assert.False(t, s.Loading())
	}
}

func TestComplete(t *testing.T) {
	completedAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	logger := zerolog.Nop()
	o := New(succeedingGenerator(), nil, &Options{Logger: &logger, Now: func() time.Time { return completedAt }})

	task, err := o.StartAll("")
	require.NoError(t, err)
	wait(t, task)

	_, err = o.Complete()
	assert.ErrorIs(t, err, ErrNotReviewed)

	require.NoError(t, o.MarkReviewed(ReviewRisks))
	_, err = o.Complete()
	assert.ErrorIs(t, err, ErrNotReviewed)

	require.NoError(t, o.MarkReviewed(ReviewAccidents))
	report, err := o.Complete()
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, types.DefaultProcess, report.Process)
	assert.Equal(t, completedAt, report.CompletedAt)
	assert.Equal(t, "추락", report.Hazards[0].Category)
	assert.Equal(t, []string{"c"}, report.Tbm.Management)
}

func TestComplete_RefusedWhileLoading(t *testing.T) {
	gen := succeedingGenerator()
	gen.section = func(ctx context.Context, _ types.TbmKey, _ string) (map[string]any, error) {
		return nil, blockUntilCancelled(ctx)
	}
	o := newTestOrchestrator(gen, nil)
	require.NoError(t, o.MarkReviewed(ReviewRisks))
	require.NoError(t, o.MarkReviewed(ReviewAccidents))

	task := o.StartTbmGeneration("p")
	_, err := o.Complete()
	assert.ErrorIs(t, err, ErrStillLoading)

	o.CancelTbm()
	wait(t, task)
	_, err = o.Complete()
	assert.NoError(t, err)
}

func TestMarkReviewed_Unknown(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, nil)
	assert.ErrorIs(t, o.MarkReviewed(ReviewItem("tbm")), ErrUnknownReview)
}

func TestTask_WaitHonorsContext(t *testing.T) {
	task := newTask()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomePending, outcome)

	task.finish(OutcomeFailed)
	task.finish(OutcomeApplied)
	assert.Equal(t, OutcomeFailed, task.Outcome())
}

func TestJoinTasks(t *testing.T) {
	a, b, c := newTask(), newTask(), newTask()
	joined := joinTasks(a, b, c)

	a.finish(OutcomeApplied)
	b.finish(OutcomeDiscarded)
	c.finish(OutcomeFailed)
	assert.Equal(t, OutcomeFailed, wait(t, joined))
	assert.Equal(t, "failed", joined.Outcome().String())
}
