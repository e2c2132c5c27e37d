package events

import (
	"context"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	pkgEvents "github.com/Dots-Uzbekistan/Lexora/pkg/events"
)

const (
	TypeStageCompleted    = "RESEARCH_STAGE_COMPLETED"
	TypeApprovalRequested = "RESEARCH_APPROVAL_REQUESTED"
	TypeDecisionRecorded  = "RESEARCH_DECISION_RECORDED"
	TypeArtifactUpdated   = "RESEARCH_ARTIFACT_UPDATED"
	TypeTurnFailed        = "RESEARCH_TURN_FAILED"
)

// Sink is anything that can carry an event: the in-process bus or NATS.
type Sink interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// Publisher abstracts event publishing for research workflow changes.
type Publisher interface {
	PublishStageCompleted(ctx context.Context, sessionID, operation, stage, outcome string, cycle int)
	PublishApprovalRequested(ctx context.Context, sessionID, kind string, candidates int)
	PublishDecisionRecorded(ctx context.Context, sessionID, decision string, approved []string)
	PublishArtifactUpdated(ctx context.Context, sessionID, artifactID string, version int, stage string)
	PublishTurnFailed(ctx context.Context, sessionID, reason string)
}

// BusPublisher implements Publisher on top of a Sink. Publishing failures
// are logged and never reach the workflow.
type BusPublisher struct {
	sink   Sink
	logger logger.ILogger
	now    func() time.Time
}

func NewBusPublisher(sink Sink, log logger.ILogger) *BusPublisher {
	return &BusPublisher{sink: sink, logger: log, now: time.Now}
}

func (p *BusPublisher) publish(ctx context.Context, eventType, sessionID string, data map[string]interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	now := p.now()
	data["session_id"] = sessionID
	data["occurred_at"] = now

	evt := pkgEvents.BaseEvent{Type: eventType, Data: data, OccurredAt: now}
	if err := p.sink.Publish(ctx, evt); err != nil {
		p.logger.Error("RESEARCH_EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func (p *BusPublisher) PublishStageCompleted(ctx context.Context, sessionID, operation, stage, outcome string, cycle int) {
	p.publish(ctx, TypeStageCompleted, sessionID, map[string]interface{}{
		"operation": operation,
		"stage":     stage,
		"outcome":   outcome,
		"cycle":     cycle,
	})
}

func (p *BusPublisher) PublishApprovalRequested(ctx context.Context, sessionID, kind string, candidates int) {
	p.publish(ctx, TypeApprovalRequested, sessionID, map[string]interface{}{
		"approval_kind": kind,
		"candidates":    candidates,
	})
}

func (p *BusPublisher) PublishDecisionRecorded(ctx context.Context, sessionID, decision string, approved []string) {
	p.publish(ctx, TypeDecisionRecorded, sessionID, map[string]interface{}{
		"decision":     decision,
		"approved_ids": approved,
	})
}

func (p *BusPublisher) PublishArtifactUpdated(ctx context.Context, sessionID, artifactID string, version int, stage string) {
	p.publish(ctx, TypeArtifactUpdated, sessionID, map[string]interface{}{
		"artifact_id": artifactID,
		"version":     version,
		"stage":       stage,
	})
}

func (p *BusPublisher) PublishTurnFailed(ctx context.Context, sessionID, reason string) {
	p.publish(ctx, TypeTurnFailed, sessionID, map[string]interface{}{
		"reason": reason,
	})
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishStageCompleted(context.Context, string, string, string, string, int) {}
func (Nop) PublishApprovalRequested(context.Context, string, string, int)             {}
func (Nop) PublishDecisionRecorded(context.Context, string, string, []string)         {}
func (Nop) PublishArtifactUpdated(context.Context, string, string, int, string)       {}
func (Nop) PublishTurnFailed(context.Context, string, string)                         {}
