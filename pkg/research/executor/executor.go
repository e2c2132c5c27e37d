package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultStepBudget   = 20
	moduleName          = "RESEARCH_EXECUTOR"
	instrumentationName = "github.com/Dots-Uzbekistan/Lexora/pkg/research"
)

// Planner chooses the next autonomous operation for a workflow. It returns
// false when the workflow needs human input or has nothing left to do.
type Planner interface {
	Next(s *state.WorkflowState) (stage.Operation, bool)
}

// Runner executes one stage operation; *stage.Controller satisfies it.
type Runner interface {
	Run(ctx context.Context, op stage.Operation, s *state.WorkflowState) (stage.Result, error)
}

// Recorder receives one observation per executed operation.
type Recorder interface {
	ObserveOperation(op stage.Operation, outcome stage.Outcome, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(stage.Operation, stage.Outcome, time.Duration) {}

// SequentialPlanner walks the canonical stage order and stops at the
// approval gate until a decision has been recorded.
type SequentialPlanner struct{}

func (SequentialPlanner) Next(s *state.WorkflowState) (stage.Operation, bool) {
	if s == nil || s.PendingApproval {
		return "", false
	}
	switch {
	case !s.HasCompleted(state.StageStrategyGenerated):
		return stage.OpGenerateStrategy, true
	case !s.HasCompleted(state.StageMultiSearchExecuted):
		return stage.OpExecuteMultiSearch, true
	case !s.HasCompleted(state.StageSourcesValidated):
		return stage.OpValidateSources, true
	case !s.HasCompleted(state.StageSourceApprovalRequested) && !s.HasCompleted(state.StageNoRelevantSourcesFound):
		return stage.OpRequestApproval, true
	case !s.HasCompleted(state.StageSourcesApproved):
		return "", false
	case !s.HasCompleted(state.StageAnalysisCreated):
		return stage.OpCreateAnalysis, true
	}
	return "", false
}

// StepResult is what one workflow step produced. State is the working copy
// with every update applied; the caller decides whether to commit it.
type StepResult struct {
	State           *state.WorkflowState
	Results         []stage.Result
	Suspended       bool
	BudgetExhausted bool
}

// Messages returns the non-empty messages of the executed operations.
func (r *StepResult) Messages() []string {
	var out []string
	for _, res := range r.Results {
		if res.Message != "" {
			out = append(out, res.Message)
		}
	}
	return out
}

// Option configures an Executor.
type Option func(*Executor)

// WithPlanner replaces the sequential planner.
func WithPlanner(p Planner) Option {
	return func(e *Executor) { e.planner = p }
}

// WithStepBudget caps the operations run in one turn.
func WithStepBudget(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.budget = n
		}
	}
}

// WithRecorder reports every operation outcome to r.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Executor drives stage operations until the workflow suspends, the planner
// has nothing left, or the step budget runs out.
type Executor struct {
	runner   Runner
	planner  Planner
	budget   int
	recorder Recorder
	tracer   trace.Tracer
	logger   logger.ILogger
}

// New creates an executor over runner with the default budget.
func New(runner Runner, log logger.ILogger, opts ...Option) *Executor {
	e := &Executor{
		runner:   runner,
		planner:  SequentialPlanner{},
		budget:   DefaultStepBudget,
		recorder: nopRecorder{},
		tracer:   otel.Tracer(instrumentationName),
		logger:   log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step runs one workflow step on a clone of s. A returned error means the
// step faulted and its result must be discarded; a panic inside an operation
// is reported the same way.
func (e *Executor) Step(ctx context.Context, s *state.WorkflowState) (result *StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(moduleName, "Workflow step panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			result, err = nil, fmt.Errorf("workflow step panicked: %v", r)
		}
	}()

	result = &StepResult{State: s.Clone()}
	for i := 0; ; i++ {
		op, ok := e.planner.Next(result.State)
		if !ok {
			break
		}
		if i == e.budget {
			result.BudgetExhausted = true
			e.logger.Warn(moduleName, "Step budget exhausted", map[string]interface{}{
				"budget":    e.budget,
				"next":      string(op),
				"completed": result.State.CompletedStages,
			})
			break
		}

		res, err := e.run(ctx, op, result.State)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.Results = append(result.Results, res)
		result.State = state.Apply(result.State, res.Update)

		if res.Outcome == stage.OutcomeSuspended {
			result.Suspended = true
			break
		}
		if res.Update == nil {
			// noop, guidance or rejection: rerunning would not progress
			break
		}
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, op stage.Operation, s *state.WorkflowState) (stage.Result, error) {
	ctx, span := e.tracer.Start(ctx, "research."+string(op),
		trace.WithAttributes(
			attribute.String("research.operation", string(op)),
			attribute.Int("research.cycle", s.Cycle),
		))
	defer span.End()

	start := time.Now()
	res, err := e.runner.Run(ctx, op, s)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.recorder.ObserveOperation(op, "error", elapsed)
		return res, err
	}
	span.SetAttributes(attribute.String("research.outcome", string(res.Outcome)))
	e.recorder.ObserveOperation(op, res.Outcome, elapsed)

	e.logger.Debug(moduleName, "Operation finished", map[string]interface{}{
		"operation":  string(op),
		"outcome":    string(res.Outcome),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return res, nil
}
