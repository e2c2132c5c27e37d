// Package researchtest provides in-memory collaborators for research tests.
package researchtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
	"github.com/Dots-Uzbekistan/Lexora/pkg/parser"
	"github.com/Dots-Uzbekistan/Lexora/pkg/search"
)

// Search answers queries from a fixed table. Unknown queries return the
// Default documents.
type Search struct {
	Results map[string][]search.Document
	Errors  map[string]error
	Default []search.Document
	Delay   time.Duration

	mu      sync.Mutex
	queries []string
}

var _ search.Provider = &Search{}

func (s *Search) Search(ctx context.Context, query string) ([]search.Document, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := s.Errors[query]; ok {
		return nil, err
	}
	if docs, ok := s.Results[query]; ok {
		return docs, nil
	}
	return s.Default, nil
}

// Queries returns every query received so far.
func (s *Search) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Parser returns a fixed markdown body per url, or Err for unknown urls.
type Parser struct {
	Pages map[string]string
	Err   error
	calls atomic.Int32
}

var _ parser.Parser = &Parser{}

func (p *Parser) Parse(ctx context.Context, url string) (*parser.Document, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := p.Pages[url]
	if !ok {
		if p.Err != nil {
			return nil, p.Err
		}
		return nil, parser.ErrNoContent
	}
	return &parser.Document{
		Markdown: body,
		Metadata: parser.Metadata{SourceURL: url, DocumentID: parser.DocumentID(url), ParsedAt: time.Now()},
	}, nil
}

func (p *Parser) Calls() int {
	return int(p.calls.Load())
}

// LLM returns Reply for every request, or Err when set.
type LLM struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
}

var _ llm.LLMProvider = &LLM{}

func (l *LLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	l.mu.Lock()
	if len(history) > 0 {
		l.prompts = append(l.prompts, history[len(history)-1].Content)
	}
	l.mu.Unlock()

	if l.Err != nil {
		return "", l.Err
	}
	return l.Reply, nil
}

func (l *LLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return l.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// Prompts returns the last user message of every request.
func (l *LLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}

var ErrUnavailable = errors.New("collaborator unavailable")

// PensionCorpus is the search table of the pension scenario: three planned
// queries return 12 hits with 2 duplicate ids, 4 of the 10 unique documents
// mention the question terms in their title.
func PensionCorpus() *Search {
	doc := func(n int, title string) search.Document {
		id := fmt.Sprintf("%d", 100000+n)
		return search.Document{
			ID:      id,
			Title:   title,
			Snippet: "Положение " + id,
			URL:     "https://lex.uz/docs/" + id,
			Score:   0.5,
		}
	}
	first := []search.Document{
		doc(1, "minimum pension rules"),
		doc(2, "minimum pension indexation"),
		doc(3, "Налоговый кодекс"),
		doc(4, "Трудовой кодекс"),
		doc(5, "Земельный кодекс"),
	}
	second := []search.Document{
		doc(6, "pension amount table"),
		doc(7, "minimum pension amount decree"),
		doc(8, "Семейный кодекс"),
		doc(9, "Уголовный кодекс"),
		doc(10, "Таможенный кодекс"),
	}
	return &Search{
		Results: map[string][]search.Document{
			"правовое регулирование": first,
			"законодательство":       second,
			"minimum pension amount": {first[0], second[0]},
		},
	}
}
