package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
)

const (
	excerptRunes       = 600
	promptSourceRunes  = 4000
	analysisModuleName = "RESEARCH_ANALYSIS"
)

// Source is an approved document prepared for analysis.
type Source struct {
	ID     string
	Title  string
	URL    string
	Date   string
	Text   string
	Parsed bool
}

// Composer writes the analysis artifact. With a model it asks for a narrative
// grounded on the sources; without one, or when the model fails, it falls
// back to a deterministic digest. The cited source list is always appended
// by the composer itself so citations never depend on the model.
type Composer struct {
	llm     llm.LLMProvider
	timeout time.Duration
	logger  logger.ILogger
}

// NewComposer creates a composer. A nil provider falls back to the template
// analysis and makes revisions unavailable.
func NewComposer(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *Composer {
	return &Composer{llm: provider, timeout: timeout, logger: log}
}

// Compose returns the artifact body for the question and sources.
func (c *Composer) Compose(ctx context.Context, question string, sources []Source) string {
	body := ""
	if c.llm != nil {
		narrative, err := c.generate(ctx, analysisPrompt(question, sources))
		if err != nil {
			c.logger.Warn(analysisModuleName, "Model analysis failed, using template", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			body = strings.TrimSpace(narrative)
		}
	}
	if body == "" {
		body = templateAnalysis(question, sources)
	}
	return body + "\n\n" + sourceList(sources)
}

// Revise asks the model to rewrite an artifact following human feedback.
func (c *Composer) Revise(ctx context.Context, content, feedback string) (string, error) {
	if c.llm == nil {
		return "", llm.ErrNoProvider
	}
	prompt := fmt.Sprintf(`You are revising a legal analysis of Uzbek law.
Apply the reviewer's feedback and return the complete revised document only.
Keep every source citation in the form [doc:ID].

Reviewer feedback:
%s

Current document:
%s`, feedback, content)

	out, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("model returned an empty revision")
	}
	return out, nil
}

func (c *Composer) generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: analysisSystemPrompt(time.Now())},
		{Role: "user", Content: prompt},
	})
}

func analysisSystemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are a Legal Research Agent for Uzbek law.
Current Date: %s
Answer ONLY from the provided sources. Never guess.
Cite sources inline as [doc:ID]. Prefer current editions of legal acts.`, now.Format("2006-01-02"))
}

func analysisPrompt(question string, sources []Source) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research question: %s\n\nApproved sources:\n", question)
	for _, s := range sources {
		fmt.Fprintf(&sb, "\n[doc:%s] %s", s.ID, s.Title)
		if s.Date != "" {
			fmt.Fprintf(&sb, " - %s", s.Date)
		}
		fmt.Fprintf(&sb, "\n%s\n", cutRunes(s.Text, promptSourceRunes))
	}
	sb.WriteString("\nWrite a structured legal analysis answering the question.")
	return sb.String()
}

func templateAnalysis(question string, sources []Source) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Legal analysis: %s\n\n", question)
	fmt.Fprintf(&sb, "## Findings\n\nThe analysis is based on %d approved sources.\n", len(sources))
	for i, s := range sources {
		fmt.Fprintf(&sb, "\n### %d. %s [doc:%s]\n\n", i+1, s.Title, s.ID)
		text := strings.TrimSpace(s.Text)
		if text == "" {
			sb.WriteString("No text could be retrieved for this document.\n")
			continue
		}
		sb.WriteString(truncateRunes(text, excerptRunes))
		sb.WriteString("\n")
		if !s.Parsed {
			sb.WriteString("\n_Only the search snippet was available for this document._\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sourceList(sources []Source) string {
	var sb strings.Builder
	sb.WriteString("## Sources\n")
	for i, s := range sources {
		fmt.Fprintf(&sb, "\n%d. [%s](%s) (ID: %s)", i+1, s.Title, s.URL, s.ID)
		if s.Date != "" {
			fmt.Fprintf(&sb, " - %s", s.Date)
		}
	}
	return sb.String()
}
