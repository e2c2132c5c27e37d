// Package session drives research conversations: it reconciles the
// conversation log with the workflow state on every inbound turn.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/approval"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/events"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/executor"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/interrupt"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/google/uuid"
)

const (
	moduleName = "RESEARCH_SESSION"

	apologyMessage  = "Sorry, an error occurred while processing your request. Nothing was changed, please try again."
	budgetMessage   = "The research needs more steps than one turn allows. Send any message to continue."
	sourcesReminder = "I'm still waiting for your decision on the sources above. Reply 'all' to approve all relevant sources, " +
		"list the document IDs you want to use, or reply 'none' to stop."
	noSourcesReminder = "I'm still waiting for your choice. Reply 1 to try a different search approach, " +
		"2 to broaden the search criteria, or 3 to proceed with the best available sources."
)

// Outcome is the reply of one turn. Messages holds the latest assistant
// message produced by the turn, if any.
type Outcome struct {
	SessionID string
	Messages  []store.Message
	Interrupt *interrupt.Descriptor
}

// Orchestrator serializes turns per session and commits each turn as a whole:
// a faulted turn leaves the workflow exactly as it was before the turn.
type Orchestrator struct {
	repo       contract.SessionRepository
	controller *stage.Controller
	executor   *executor.Executor
	events     events.Publisher
	logger     logger.ILogger
	locks      store.Locker
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker replaces the in-process session lock, for replicas that share
// a session store.
func WithLocker(l store.Locker) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.locks = l
		}
	}
}

// NewOrchestrator wires the research workflow to a session store. A nil
// publisher drops workflow events.
func NewOrchestrator(
	repo contract.SessionRepository,
	controller *stage.Controller,
	exec *executor.Executor,
	publisher events.Publisher,
	log logger.ILogger,
	opts ...Option,
) *Orchestrator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	o := &Orchestrator{
		repo:       repo,
		controller: controller,
		executor:   exec,
		events:     publisher,
		logger:     log,
		locks:      store.NewKeyedMutex(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turn collects what a successful turn produced, committed only at the end.
type turn struct {
	workflow *state.WorkflowState
	replies  []string
	results  []stage.Result
	decision *approval.Decision
}

func (t *turn) record(res stage.Result) {
	t.results = append(t.results, res)
	if res.Message != "" {
		t.replies = append(t.replies, res.Message)
	}
	t.workflow = state.Apply(t.workflow, res.Update)
}

// Advance appends the inbound messages to the session and moves the research
// workflow as far as it can go without human input.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string, inbound []store.Message) (*Outcome, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	unlock, err := o.locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := o.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	working := sess.Clone()
	added, latest := working.Receive(inbound...)
	if latest == nil {
		if len(added) > 0 {
			if err := o.save(ctx, working); err != nil {
				return nil, err
			}
		}
		return &Outcome{SessionID: sessionID, Interrupt: interrupt.ForState(working.Workflow)}, nil
	}

	t, err := o.safeTurn(ctx, working.Workflow, latest.Content)
	if err != nil {
		return o.fail(ctx, sess, inbound, err)
	}

	working.Workflow = t.workflow
	for _, r := range t.replies {
		working.Reply(r)
	}
	if err := o.save(ctx, working); err != nil {
		return nil, err
	}
	o.publish(ctx, sessionID, t)

	out := &Outcome{SessionID: sessionID, Interrupt: interrupt.ForState(t.workflow)}
	if n := len(t.replies); n > 0 {
		out.Messages = []store.Message{{Role: store.RoleAssistant, Content: t.replies[n-1]}}
	}
	return out, nil
}

// safeTurn turns a panic anywhere in the turn into an error.
func (o *Orchestrator) safeTurn(ctx context.Context, wf *state.WorkflowState, text string) (t *turn, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("turn panicked: %v", r)
		}
	}()
	return o.runTurn(ctx, wf, text)
}

func (o *Orchestrator) runTurn(ctx context.Context, wf *state.WorkflowState, text string) (*turn, error) {
	t := &turn{workflow: wf}

	switch {
	case wf == nil:
		t.workflow = state.New(text)

	case cycleFinished(wf):
		t.workflow = state.Apply(wf, &state.Update{
			ResetCycle:    true,
			Question:      &text,
			SearchMode:    state.Ptr(state.SearchModeStandard),
			ApprovedIDs:   &[]string{},
			RejectedIDs:   &[]string{},
			LastDecision:  state.Ptr(""),
			HumanFeedback: state.Ptr(""),
		})

	case wf.PendingApproval:
		d := approval.ClassifyFor(wf.ApprovalKind, text)
		if !d.IsApproval() {
			t.replies = append(t.replies, reminder(wf))
			return t, nil
		}
		res, err := o.controller.RecordDecision(ctx, wf, d, text)
		if err != nil {
			return nil, fmt.Errorf("record decision: %w", err)
		}
		t.record(res)
		if res.Update == nil || t.workflow.PendingApproval {
			return t, nil
		}
		t.decision = &d
		if d.Kind == approval.KindDecline {
			return t, nil
		}

	case reviewing(wf):
		res, err := o.controller.ReviseArtifact(ctx, wf, text)
		if err != nil {
			return nil, fmt.Errorf("revise artifact: %w", err)
		}
		t.record(res)
		return t, nil
	}

	step, err := o.executor.Step(ctx, t.workflow)
	if err != nil {
		return nil, err
	}
	t.results = append(t.results, step.Results...)
	t.replies = append(t.replies, step.Messages()...)
	t.workflow = step.State
	if step.BudgetExhausted {
		t.replies = append(t.replies, budgetMessage)
	}
	return t, nil
}

// fail keeps the pre-turn workflow and logs only the inbound messages plus
// an apology.
func (o *Orchestrator) fail(ctx context.Context, sess *store.Session, inbound []store.Message, cause error) (*Outcome, error) {
	o.logger.Error(moduleName, "Research turn failed, changes discarded", map[string]interface{}{
		"session_id": sess.ID,
		"error":      cause.Error(),
	})

	saveCtx := context.WithoutCancel(ctx)
	failed := sess.Clone()
	failed.Receive(inbound...)
	failed.Apologize(apologyMessage)
	if err := o.save(saveCtx, failed); err != nil {
		return nil, err
	}
	o.events.PublishTurnFailed(saveCtx, sess.ID, cause.Error())

	return &Outcome{
		SessionID: sess.ID,
		Messages:  []store.Message{{Role: store.RoleAssistant, Content: apologyMessage}},
		Interrupt: interrupt.ForState(failed.Workflow),
	}, nil
}

func (o *Orchestrator) publish(ctx context.Context, sessionID string, t *turn) {
	if t.decision != nil {
		o.events.PublishDecisionRecorded(ctx, sessionID, string(t.decision.Kind), t.workflow.ApprovedIDs)
	}
	for _, res := range t.results {
		if res.Update == nil {
			continue
		}
		if n := len(res.Update.Stages); n > 0 {
			o.events.PublishStageCompleted(ctx, sessionID, string(res.Operation), string(res.Update.Stages[n-1]), string(res.Outcome), t.workflow.Cycle)
		}
		if res.Outcome == stage.OutcomeSuspended {
			o.events.PublishApprovalRequested(ctx, sessionID, string(t.workflow.ApprovalKind), len(t.workflow.ValidationResults))
		}
		for id, a := range res.Update.Artifacts {
			if v, ok := a.Current(); ok {
				o.events.PublishArtifactUpdated(ctx, sessionID, id, v.Version, string(v.Stage))
			}
		}
	}
}

// cycleFinished reports whether the current research cycle has ended: the
// human declined the sources or the analysis was finalized.
func cycleFinished(wf *state.WorkflowState) bool {
	if wf.PendingApproval {
		return false
	}
	if wf.LastDecision == string(approval.KindDecline) && !wf.HasCompleted(state.StageSourcesApproved) {
		return true
	}
	if !wf.HasCompleted(state.StageAnalysisCreated) {
		return false
	}
	return !reviewing(wf)
}

// reviewing reports whether the analysis artifact awaits review.
func reviewing(wf *state.WorkflowState) bool {
	if !wf.HasCompleted(state.StageAnalysisCreated) {
		return false
	}
	a, ok := wf.Artifacts[wf.CurrentArtifactID]
	if !ok {
		return false
	}
	v, ok := a.Current()
	return ok && v.Stage != state.ArtifactFinal
}

func reminder(wf *state.WorkflowState) string {
	if wf.ApprovalKind == state.ApprovalNoSources {
		return noSourcesReminder
	}
	return sourcesReminder
}

func (o *Orchestrator) load(ctx context.Context, id string) (*store.Session, error) {
	sess, err := o.repo.Get(ctx, id)
	if errors.Is(err, contract.ErrSessionNotFound) {
		return store.NewSession(id, store.ServiceResearch, o.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

func (o *Orchestrator) save(ctx context.Context, sess *store.Session) error {
	sess.UpdatedAt = o.now()
	if err := o.repo.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// NewSession creates an empty research session and returns its id.
func (o *Orchestrator) NewSession(ctx context.Context) (string, error) {
	id := uuid.New().String()
	if err := o.save(ctx, store.NewSession(id, store.ServiceResearch, o.now())); err != nil {
		return "", err
	}
	return id, nil
}

// History returns the conversation log of a session.
func (o *Orchestrator) History(ctx context.Context, id string) ([]store.Message, error) {
	sess, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// Workflow returns a copy of the session's workflow state, nil before the
// first research turn.
func (o *Orchestrator) Workflow(ctx context.Context, id string) (*state.WorkflowState, error) {
	sess, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Workflow.Clone(), nil
}

// Clear removes a session; contract.ErrSessionNotFound if it does not exist.
func (o *Orchestrator) Clear(ctx context.Context, id string) error {
	unlock, err := o.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return o.repo.Delete(ctx, id)
}
