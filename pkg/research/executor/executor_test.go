package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/researchtest"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// === Test Helpers ===

type recorded struct {
	op      stage.Operation
	outcome stage.Outcome
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (r *fakeRecorder) ObserveOperation(op stage.Operation, outcome stage.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recorded{op, outcome})
}

type runnerFunc func(ctx context.Context, op stage.Operation, s *state.WorkflowState) (stage.Result, error)

func (f runnerFunc) Run(ctx context.Context, op stage.Operation, s *state.WorkflowState) (stage.Result, error) {
	return f(ctx, op, s)
}

// loopPlanner always asks for strategy generation
type loopPlanner struct{}

func (loopPlanner) Next(*state.WorkflowState) (stage.Operation, bool) {
	return stage.OpGenerateStrategy, true
}

func newController() *stage.Controller {
	log := logger.NewNopLogger()
	return stage.NewController(researchtest.PensionCorpus(), nil, stage.NewComposer(nil, 0, log), stage.Config{SearchTimeout: time.Second}, log)
}

// === Tests ===

func TestSequentialPlanner(t *testing.T) {
	p := SequentialPlanner{}
	s := state.New("q")

	steps := []struct {
		done []state.Stage
		want stage.Operation
	}{
		{nil, stage.OpGenerateStrategy},
		{[]state.Stage{state.StageStrategyGenerated}, stage.OpExecuteMultiSearch},
		{[]state.Stage{state.StageMultiSearchExecuted}, stage.OpValidateSources},
		{[]state.Stage{state.StageSourcesValidated}, stage.OpRequestApproval},
	}
	for _, st := range steps {
		s.CompletedStages = append(s.CompletedStages, st.done...)
		op, ok := p.Next(s)
		require.True(t, ok)
		assert.Equal(t, st.want, op)
	}

	s.CompletedStages = append(s.CompletedStages, state.StageSourceApprovalRequested)
	s.PendingApproval = true
	_, ok := p.Next(s)
	assert.False(t, ok, "pending approval stops the planner")

	s.PendingApproval = false
	_, ok = p.Next(s)
	assert.False(t, ok, "declined approval stops the planner")

	s.CompletedStages = append(s.CompletedStages, state.StageSourcesApproved)
	op, ok := p.Next(s)
	require.True(t, ok)
	assert.Equal(t, stage.OpCreateAnalysis, op)

	s.CompletedStages = append(s.CompletedStages, state.StageAnalysisCreated)
	_, ok = p.Next(s)
	assert.False(t, ok)
}

func TestStep_RunsUntilSuspension(t *testing.T) {
	rec := &fakeRecorder{}
	e := New(newController(), logger.NewNopLogger(), WithRecorder(rec))
	input := state.New("minimum pension amount")

	res, err := e.Step(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, res.Suspended)
	assert.False(t, res.BudgetExhausted)
	assert.True(t, res.State.PendingApproval)
	assert.Len(t, res.Results, 4)
	assert.Len(t, res.Messages(), 4)
	assert.Equal(t, []recorded{
		{stage.OpGenerateStrategy, stage.OutcomeCompleted},
		{stage.OpExecuteMultiSearch, stage.OutcomeCompleted},
		{stage.OpValidateSources, stage.OutcomeCompleted},
		{stage.OpRequestApproval, stage.OutcomeSuspended},
	}, rec.seen)

	assert.Empty(t, input.CompletedStages, "input state is not modified")

	again, err := e.Step(context.Background(), res.State)
	require.NoError(t, err)
	assert.Empty(t, again.Results, "nothing runs while suspended")
}

func TestStep_Budget(t *testing.T) {
	e := New(newController(), logger.NewNopLogger(), WithStepBudget(2))

	res, err := e.Step(context.Background(), state.New("minimum pension amount"))
	require.NoError(t, err)
	assert.True(t, res.BudgetExhausted)
	assert.Len(t, res.Results, 2)
	assert.True(t, res.State.HasCompleted(state.StageMultiSearchExecuted))

	res, err = e.Step(context.Background(), res.State)
	require.NoError(t, err)
	assert.True(t, res.Suspended)
}

func TestStep_StopsWhenNoProgress(t *testing.T) {
	e := New(newController(), logger.NewNopLogger(), WithPlanner(loopPlanner{}))
	s := state.Apply(state.New("q"), &state.Update{Stages: []state.Stage{state.StageStrategyGenerated}})

	res, err := e.Step(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, stage.OutcomeNoop, res.Results[0].Outcome)
	assert.False(t, res.BudgetExhausted)
}

func TestStep_Faults(t *testing.T) {
	t.Run("operation error", func(t *testing.T) {
		boom := errors.New("boom")
		e := New(runnerFunc(func(context.Context, stage.Operation, *state.WorkflowState) (stage.Result, error) {
			return stage.Result{}, boom
		}), logger.NewNopLogger())

		res, err := e.Step(context.Background(), state.New("q"))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "generate_multi_search_strategy")
	})

	t.Run("operation panic", func(t *testing.T) {
		e := New(runnerFunc(func(context.Context, stage.Operation, *state.WorkflowState) (stage.Result, error) {
			panic("nil map")
		}), logger.NewNopLogger())

		res, err := e.Step(context.Background(), state.New("q"))
		assert.Nil(t, res)
		assert.ErrorContains(t, err, "panicked: nil map")
	})
}
