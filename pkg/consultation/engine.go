// Package consultation answers simple legal questions in a single pass:
// one search, an answer grounded on the snippets, and at most one parsed
// document when the snippets are not enough.
package consultation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
	"github.com/Dots-Uzbekistan/Lexora/pkg/parser"
	"github.com/Dots-Uzbekistan/Lexora/pkg/search"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/google/uuid"
)

const (
	moduleName = "CONSULTATION"

	DefaultMaxResults = 10
	digestSize        = 5
	historyWindow     = 10
	documentRunes     = 12000

	insufficientMarker = "could not find sufficient information"

	apologyMessage   = "Sorry, an error occurred while processing your request. Please try again."
	noResultsMessage = "I could not find any legal documents on lex.uz for your question. Please try rephrasing it or use more specific legal terms."
)

// Config bounds a consultation turn.
type Config struct {
	MaxResults    int
	SearchTimeout time.Duration
	ParseTimeout  time.Duration
	LLMTimeout    time.Duration
}

// Reply is the outcome of one consultation turn.
type Reply struct {
	SessionID string
	Messages  []store.Message
}

// Engine runs consultation turns. The model and the parser are optional.
type Engine struct {
	repo     contract.SessionRepository
	searcher search.Provider
	parser   parser.Parser
	model    llm.LLMProvider
	cfg      Config
	logger   logger.ILogger
	locks    store.Locker
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the in-process session lock.
func WithLocker(l store.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locks = l
		}
	}
}

// NewEngine creates a consultation engine. cfg.MaxResults defaults to
// DefaultMaxResults.
func NewEngine(
	repo contract.SessionRepository,
	searcher search.Provider,
	docParser parser.Parser,
	model llm.LLMProvider,
	cfg Config,
	log logger.ILogger,
	opts ...Option,
) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	e := &Engine{
		repo:     repo,
		searcher: searcher,
		parser:   docParser,
		model:    model,
		cfg:      cfg,
		logger:   log,
		locks:    store.NewKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Respond appends the inbound messages to the session and answers the latest
// new user message. A failed turn logs the inbound messages and an apology.
func (e *Engine) Respond(ctx context.Context, sessionID string, inbound []store.Message) (*Reply, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	unlock, err := e.locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := append([]store.Message(nil), sess.Messages...)

	added, latest := sess.Receive(inbound...)
	if latest == nil {
		if len(added) > 0 {
			if err := e.save(ctx, sess); err != nil {
				return nil, err
			}
		}
		return &Reply{SessionID: sessionID}, nil
	}

	var msg store.Message
	answer, err := e.Answer(ctx, latest.Content, history)
	if err != nil {
		e.logger.Error(moduleName, "Consultation turn failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		ctx = context.WithoutCancel(ctx)
		msg = sess.Apologize(apologyMessage)
	} else {
		msg = sess.Reply(answer)
	}

	if err := e.save(ctx, sess); err != nil {
		return nil, err
	}
	return &Reply{SessionID: sessionID, Messages: []store.Message{{Role: msg.Role, Content: msg.Content}}}, nil
}

// Answer runs one search for the question and composes an answer. Only a
// search failure is an error; model and parser failures degrade the answer.
func (e *Engine) Answer(ctx context.Context, question string, history []store.Message) (string, error) {
	docs, err := e.search(ctx, question)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(docs) == 0 {
		return noResultsMessage, nil
	}
	if e.model == nil {
		return Digest(docs), nil
	}

	answer, err := e.ask(ctx, history, snippetPrompt(question, docs))
	if err != nil {
		e.logger.Warn(moduleName, "Model answer failed, using snippet digest", map[string]interface{}{
			"error": err.Error(),
		})
		return Digest(docs), nil
	}

	if !insufficient(answer) || e.parser == nil {
		return answer, nil
	}

	top := docs[0]
	doc, err := e.parse(ctx, top.URL)
	if err != nil {
		e.logger.Warn(moduleName, "Document parse failed, keeping snippet answer", map[string]interface{}{
			"document_id": top.ID,
			"error":       err.Error(),
		})
		return answer, nil
	}

	e.logger.Info(moduleName, "Snippets insufficient, answering from parsed document", map[string]interface{}{
		"document_id": top.ID,
	})
	second, err := e.ask(ctx, history, documentPrompt(question, top, doc.Markdown, docs))
	if err != nil {
		e.logger.Warn(moduleName, "Model answer on parsed document failed", map[string]interface{}{
			"error": err.Error(),
		})
		return answer, nil
	}
	return second, nil
}

// search returns the best documents for the query, highest score first.
func (e *Engine) search(ctx context.Context, query string) ([]search.Document, error) {
	if e.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SearchTimeout)
		defer cancel()
	}
	docs, err := e.searcher.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > e.cfg.MaxResults {
		docs = docs[:e.cfg.MaxResults]
	}
	return docs, nil
}

func (e *Engine) parse(ctx context.Context, url string) (*parser.Document, error) {
	if url == "" {
		return nil, parser.ErrNoContent
	}
	if e.cfg.ParseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ParseTimeout)
		defer cancel()
	}
	return e.parser.Parse(ctx, url)
}

func (e *Engine) ask(ctx context.Context, history []store.Message, prompt string) (string, error) {
	if e.cfg.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.LLMTimeout)
		defer cancel()
	}

	msgs := []llm.Message{{Role: store.RoleSystem, Content: systemPrompt(e.now())}}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: store.RoleUser, Content: prompt})

	answer, err := e.model.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("empty model answer")
	}
	return answer, nil
}

func insufficient(answer string) bool {
	return strings.Contains(strings.ToLower(answer), insufficientMarker)
}

func (e *Engine) load(ctx context.Context, id string) (*store.Session, error) {
	sess, err := e.repo.Get(ctx, id)
	if errors.Is(err, contract.ErrSessionNotFound) {
		return store.NewSession(id, store.ServiceConsultation, e.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

func (e *Engine) save(ctx context.Context, sess *store.Session) error {
	sess.UpdatedAt = e.now()
	if err := e.repo.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// NewSession creates an empty consultation session and returns its id.
func (e *Engine) NewSession(ctx context.Context) (string, error) {
	id := uuid.New().String()
	if err := e.save(ctx, store.NewSession(id, store.ServiceConsultation, e.now())); err != nil {
		return "", err
	}
	return id, nil
}

// History returns the conversation log of a session.
func (e *Engine) History(ctx context.Context, id string) ([]store.Message, error) {
	sess, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// Clear removes a session; contract.ErrSessionNotFound if it does not exist.
func (e *Engine) Clear(ctx context.Context, id string) error {
	unlock, err := e.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return e.repo.Delete(ctx, id)
}
