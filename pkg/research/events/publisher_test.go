package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	pkgEvents "github.com/Dots-Uzbekistan/Lexora/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSink struct {
	events []pkgEvents.Event
	err    error
}

func (s *sliceSink) Publish(_ context.Context, e pkgEvents.Event) error {
	s.events = append(s.events, e)
	return s.err
}

func TestBusPublisher(t *testing.T) {
	sink := &sliceSink{}
	p := NewBusPublisher(sink, logger.NewNopLogger())
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }
	ctx := context.Background()

	p.PublishStageCompleted(ctx, "s1", "execute_multi_search", "multi_search_executed", "completed", 1)
	p.PublishApprovalRequested(ctx, "s1", "sources", 4)
	p.PublishDecisionRecorded(ctx, "s1", "approve_ids", []string{"100007"})
	p.PublishArtifactUpdated(ctx, "s1", "legal-analysis-1", 2, "final")
	p.PublishTurnFailed(ctx, "s1", "boom")

	require.Len(t, sink.events, 5)
	types := make([]string, len(sink.events))
	for i, e := range sink.events {
		types[i] = e.EventType()
		assert.Equal(t, "s1", e.Payload()["session_id"])
		assert.Equal(t, at, e.Timestamp())
	}
	assert.Equal(t, []string{TypeStageCompleted, TypeApprovalRequested, TypeDecisionRecorded, TypeArtifactUpdated, TypeTurnFailed}, types)
	assert.Equal(t, 4, sink.events[1].Payload()["candidates"])
	assert.Equal(t, []string{"100007"}, sink.events[2].Payload()["approved_ids"])
}

func TestBusPublisher_FailuresAreSwallowed(t *testing.T) {
	sink := &sliceSink{err: errors.New("nats down")}
	p := NewBusPublisher(sink, logger.NewNopLogger())

	assert.NotPanics(t, func() {
		p.PublishTurnFailed(context.Background(), "s1", "boom")
	})
	assert.Len(t, sink.events, 1)

	var nilPublisher *BusPublisher
	assert.NotPanics(t, func() {
		nilPublisher.PublishTurnFailed(context.Background(), "s1", "boom")
	})
}
