package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/dto"
	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/memory"
	"github.com/Dots-Uzbekistan/Lexora/pkg/consultation"
	pkgEvents "github.com/Dots-Uzbekistan/Lexora/pkg/events"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/events"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/executor"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/researchtest"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/session"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "research.events.test"

type recordingObserver struct {
	mu         sync.Mutex
	turns      map[string]int
	failures   int
	interrupts []string
}

func (o *recordingObserver) ObserveTurn(service string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.turns == nil {
		o.turns = map[string]int{}
	}
	o.turns[service]++
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) ObserveInterrupt(interruptType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interrupts = append(o.interrupts, interruptType)
}

// notifier collects websocket payloads per session
type notifier struct {
	mu   sync.Mutex
	sent map[string][]wsMessage
}

func (n *notifier) SendToSession(sessionID string, data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]wsMessage{}
	}
	n.sent[sessionID] = append(n.sent[sessionID], msg)
}

func (n *notifier) events(sessionID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent[sessionID] {
		out = append(out, m.Event)
	}
	return out
}

type forwarder struct {
	mu    sync.Mutex
	count int
	err   error
}

func (f *forwarder) Publish(context.Context, pkgEvents.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.err
}

func (f *forwarder) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type researchFixture struct {
	service   IResearchService
	observer  *recordingObserver
	notifier  *notifier
	forwarder *forwarder
}

func newResearchFixture(t *testing.T) *researchFixture {
	t.Helper()
	log := logger.NewNopLogger()
	ctx, cancel := context.WithCancel(context.Background())

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() {
		cancel()
		_ = pubSub.Close()
	})

	n := &notifier{}
	fw := &forwarder{err: errors.New("nats down")}
	require.NoError(t, NewConsumerService(pubSub, testTopic, n, fw, log).Consume(ctx))

	controller := stage.NewController(researchtest.PensionCorpus(), &researchtest.Parser{}, stage.NewComposer(nil, 0, log),
		stage.Config{SearchTimeout: time.Second, ParseTimeout: time.Second}, log)
	orch := session.NewOrchestrator(
		memory.NewSessionRepository(0),
		controller,
		executor.New(controller, log),
		events.NewBusPublisher(NewPublisherService(testTopic, pubSub), log),
		log,
	)

	obs := &recordingObserver{}
	return &researchFixture{
		service:   NewResearchService(orch, obs),
		observer:  obs,
		notifier:  n,
		forwarder: fw,
	}
}

func newRawMessage(payload string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}

func chatRequest(sessionID string, contents ...string) *dto.ChatRequest {
	req := &dto.ChatRequest{SessionID: sessionID}
	for _, c := range contents {
		req.Messages = append(req.Messages, dto.MessageDto{Role: store.RoleUser, Content: c})
	}
	return req
}

func TestResearchService_Chat(t *testing.T) {
	f := newResearchFixture(t)
	ctx := context.Background()

	res, err := f.service.Chat(ctx, chatRequest("s1", "minimum pension amount"))
	require.NoError(t, err)

	assert.Equal(t, "s1", res.SessionID)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, store.RoleAssistant, res.Messages[0].Role)
	assert.Equal(t, "source_approval", res.InterruptType)
	assert.NotEmpty(t, res.InterruptID)
	assert.Equal(t, 4, res.InterruptData["total_sources"])

	assert.Equal(t, 1, f.observer.turns[store.ServiceResearch])
	assert.Equal(t, []string{"source_approval"}, f.observer.interrupts)

	// events reach the session's websocket clients; forwarding failures are ignored
	require.Eventually(t, func() bool {
		return len(f.notifier.events("s1")) == 5
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, f.notifier.events("s1"), events.TypeApprovalRequested)
	assert.Equal(t, 5, f.forwarder.published())

	wf, err := f.service.Workflow(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, wf.PendingApproval)
	assert.Equal(t, "sources", wf.ApprovalKind)
	assert.Equal(t, "minimum pension amount", wf.Question)
	assert.Equal(t, []string{}, wf.ApprovedIDs)
}

func TestResearchService_Sessions(t *testing.T) {
	f := newResearchFixture(t)
	ctx := context.Background()

	created, err := f.service.NewSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)

	history, err := f.service.History(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, history.Messages)
	assert.Empty(t, history.Messages)

	cleared, err := f.service.Clear(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Research session "+created.SessionID+" cleared successfully", cleared.Message)

	cleared, err = f.service.Clear(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Research session "+created.SessionID+" not found", cleared.Message)
}

func TestConsultationService_Chat(t *testing.T) {
	log := logger.NewNopLogger()
	engine := consultation.NewEngine(memory.NewSessionRepository(0), researchtest.PensionCorpus(), nil, nil,
		consultation.Config{SearchTimeout: time.Second}, log)
	obs := &recordingObserver{}
	svc := NewConsultationService(engine, obs)
	ctx := context.Background()

	res, err := svc.Chat(ctx, chatRequest("q1", "minimum pension amount"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "Here is what I found")
	assert.Empty(t, res.InterruptType)
	assert.Equal(t, 1, obs.turns[store.ServiceConsultation])

	history, err := svc.History(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)

	cleared, err := svc.Clear(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "Session q1 cleared successfully", cleared.Message)
}

func TestConsumer_DropsUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	n := &notifier{}
	fw := &forwarder{}
	require.NoError(t, NewConsumerService(pubSub, testTopic, n, fw, logger.NewNopLogger()).Consume(ctx))

	pub := NewPublisherService(testTopic, pubSub)
	require.NoError(t, pubSub.Publish(testTopic, newRawMessage(`{"data":{}}`)))
	require.NoError(t, pub.Publish(ctx, pkgEvents.BaseEvent{
		Type:       events.TypeTurnFailed,
		Data:       map[string]interface{}{"session_id": "s9", "reason": "boom"},
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool { return fw.published() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{events.TypeTurnFailed}, n.events("s9"))
}
