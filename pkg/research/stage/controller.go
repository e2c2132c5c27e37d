package stage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
	"github.com/Dots-Uzbekistan/Lexora/pkg/parser"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/approval"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/artifact"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
	"github.com/Dots-Uzbekistan/Lexora/pkg/search"

	"golang.org/x/sync/errgroup"
)

// Operation names a stage operation.
type Operation string

const (
	OpGenerateStrategy   Operation = "generate_multi_search_strategy"
	OpExecuteMultiSearch Operation = "execute_multi_search"
	OpValidateSources    Operation = "validate_and_rank_sources"
	OpRequestApproval    Operation = "request_source_approval"
	OpRecordDecision     Operation = "record_decision"
	OpCreateAnalysis     Operation = "create_analysis"
	OpReviseArtifact     Operation = "revise_artifact"
)

// Outcome classifies what an operation did.
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeNoop               Outcome = "noop"
	OutcomePrerequisiteNotMet Outcome = "prerequisite_not_met"
	OutcomeSuspended          Outcome = "suspended"
	OutcomeRejected           Outcome = "rejected"
)

// Result is the outcome of one operation. Update is nil unless the operation
// changed the workflow; the caller applies it with state.Apply.
type Result struct {
	Operation    Operation
	Outcome      Outcome
	Message      string
	Update       *state.Update
	Prerequisite *PrerequisiteNotMet
}

const (
	moduleName         = "RESEARCH_STAGE"
	maxFailedQueryList = 5
	snippetPreviewLen  = 150
	fallbackSources    = 3
	artifactType       = "legal_analysis"
)

// Config bounds the collaborator calls. SearchConcurrency defaults to 3.
type Config struct {
	SearchTimeout     time.Duration
	ParseTimeout      time.Duration
	SearchConcurrency int
}

// Controller runs the stage operations. Every operation takes an immutable
// snapshot and returns a declarative update; none of them mutates its input.
type Controller struct {
	searcher search.Provider
	parser   parser.Parser
	composer *Composer
	cfg      Config
	logger   logger.ILogger
	now      func() time.Time
}

// NewController creates a stage controller. The parser may be nil, in which
// case approved documents are analyzed from their search snippets.
func NewController(searcher search.Provider, docParser parser.Parser, composer *Composer, cfg Config, log logger.ILogger) *Controller {
	if cfg.SearchConcurrency <= 0 {
		cfg.SearchConcurrency = 3
	}
	return &Controller{
		searcher: searcher,
		parser:   docParser,
		composer: composer,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// Run dispatches the operations that need no human input.
func (c *Controller) Run(ctx context.Context, op Operation, s *state.WorkflowState) (Result, error) {
	switch op {
	case OpGenerateStrategy:
		return c.GenerateStrategy(ctx, s)
	case OpExecuteMultiSearch:
		return c.ExecuteMultiSearch(ctx, s)
	case OpValidateSources:
		return c.ValidateSources(ctx, s)
	case OpRequestApproval:
		return c.RequestApproval(ctx, s)
	case OpCreateAnalysis:
		return c.CreateAnalysis(ctx, s)
	}
	return Result{}, fmt.Errorf("operation %s requires human input", op)
}

func noop(op Operation, message string) Result {
	return Result{Operation: op, Outcome: OutcomeNoop, Message: message}
}

func prerequisite(op Operation, missing state.Stage, reason string) Result {
	p := &PrerequisiteNotMet{Operation: op, Missing: missing, Reason: reason}
	return Result{Operation: op, Outcome: OutcomePrerequisiteNotMet, Message: p.Error(), Prerequisite: p}
}

func rejected(op Operation, message string) Result {
	return Result{Operation: op, Outcome: OutcomeRejected, Message: message}
}

func approvalRequested(s *state.WorkflowState) bool {
	return s.HasCompleted(state.StageSourceApprovalRequested) || s.HasCompleted(state.StageNoRelevantSourcesFound)
}

// GenerateStrategy plans the search queries for the current question.
func (c *Controller) GenerateStrategy(_ context.Context, s *state.WorkflowState) (Result, error) {
	const op = OpGenerateStrategy
	if s.HasCompleted(state.StageStrategyGenerated) {
		return noop(op, "Search strategy already planned"), nil
	}
	if strings.TrimSpace(s.Question) == "" {
		return rejected(op, "There is no research question yet. Please describe what you want me to research."), nil
	}

	strategy := PlanQueries(s.Question, s.SearchMode)
	return Result{
		Operation: op,
		Outcome:   OutcomeCompleted,
		Message:   "Search strategy generated: " + strategy.Summary,
		Update: &state.Update{
			Stages:            []state.Stage{state.StageStrategyGenerated},
			PlannedQueries:    &strategy.Queries,
			LegalConcepts:     &strategy.Concepts,
			StrategyRationale: &strategy.Summary,
		},
	}, nil
}

type queryOutcome struct {
	query string
	docs  []search.Document
	err   error
}

// ExecuteMultiSearch runs the planned queries with bounded concurrency and
// merges the hits by document id.
func (c *Controller) ExecuteMultiSearch(ctx context.Context, s *state.WorkflowState) (Result, error) {
	const op = OpExecuteMultiSearch
	if s.HasCompleted(state.StageMultiSearchExecuted) {
		return noop(op, "Planned searches already executed"), nil
	}
	if !s.HasCompleted(state.StageStrategyGenerated) {
		return prerequisite(op, state.StageStrategyGenerated, ""), nil
	}

	executed := make(map[string]bool, len(s.ExecutedQueries))
	for _, q := range s.ExecutedQueries {
		executed[q] = true
	}
	var pending []string
	for _, q := range s.PlannedQueries {
		if !executed[q.Query] {
			pending = append(pending, q.Query)
		}
	}

	outcomes := make([]queryOutcome, len(pending))
	var g errgroup.Group
	g.SetLimit(c.cfg.SearchConcurrency)
	for i, q := range pending {
		g.Go(func() error {
			docs, err := c.search(ctx, q)
			outcomes[i] = queryOutcome{query: q, docs: docs, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("multi search interrupted: %w", err)
	}

	seen := make(map[string]bool, len(s.RawResults))
	results := append([]state.SearchHit(nil), s.RawResults...)
	for _, r := range results {
		seen[r.DocumentID] = true
	}

	var succeeded []string
	var failed []queryOutcome
	found := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o)
			c.logger.Warn(moduleName, "Search query failed", map[string]interface{}{
				"query": o.query,
				"error": o.err.Error(),
			})
			continue
		}
		succeeded = append(succeeded, o.query)
		found += len(o.docs)
		for _, d := range o.docs {
			if d.ID == "" || seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			results = append(results, state.SearchHit{
				DocumentID: d.ID,
				Title:      d.Title,
				Snippet:    d.Snippet,
				URL:        d.URL,
				Date:       d.Date,
				Score:      d.Score,
			})
		}
	}
	if results == nil {
		results = []state.SearchHit{}
	}

	return Result{
		Operation: op,
		Outcome:   OutcomeCompleted,
		Message:   searchSummary(len(succeeded), found, results, failed),
		Update: &state.Update{
			Stages:          []state.Stage{state.StageMultiSearchExecuted},
			RawResults:      &results,
			ExecutedQueries: succeeded,
		},
	}, nil
}

func (c *Controller) search(ctx context.Context, query string) ([]search.Document, error) {
	if c.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SearchTimeout)
		defer cancel()
	}
	return c.searcher.Search(ctx, query)
}

func searchSummary(executed, found int, results []state.SearchHit, failed []queryOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Executed %d searches, found %d new documents, total unique: %d", executed, found, len(results))

	if len(failed) > 0 {
		fmt.Fprintf(&sb, "\n\n%d searches failed:\n", len(failed))
		for i, f := range failed {
			if i == maxFailedQueryList {
				break
			}
			fmt.Fprintf(&sb, "- %s (%v)\n", f.query, f.err)
		}
	}

	if len(results) > 0 {
		sb.WriteString("\n\nFound documents:\n")
		for i, r := range results {
			date := ""
			if r.Date != "" {
				date = " - " + r.Date
			}
			fmt.Fprintf(&sb, "%d. **%s**%s\n", i+1, r.Title, date)
			fmt.Fprintf(&sb, "   ID: %s\n", r.DocumentID)
			fmt.Fprintf(&sb, "   Score: %.2f\n", r.Score)
			fmt.Fprintf(&sb, "   Snippet: %s\n\n", truncateRunes(r.Snippet, snippetPreviewLen))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ValidateSources scores every raw hit against the question.
func (c *Controller) ValidateSources(_ context.Context, s *state.WorkflowState) (Result, error) {
	const op = OpValidateSources
	if s.HasCompleted(state.StageSourcesValidated) {
		return noop(op, "Sources already validated"), nil
	}
	if !s.HasCompleted(state.StageMultiSearchExecuted) {
		return prerequisite(op, state.StageMultiSearchExecuted, ""), nil
	}

	results := ScoreSources(s.Question, s.RawResults)
	return Result{
		Operation: op,
		Outcome:   OutcomeCompleted,
		Message:   validationSummary(results),
		Update: &state.Update{
			Stages:            []state.Stage{state.StageSourcesValidated},
			ValidationResults: &results,
		},
	}, nil
}

// RequestApproval suspends the workflow until the human picks sources.
func (c *Controller) RequestApproval(_ context.Context, s *state.WorkflowState) (Result, error) {
	const op = OpRequestApproval
	if approvalRequested(s) {
		return noop(op, "Source approval already requested, waiting for response"), nil
	}
	if !s.HasCompleted(state.StageSourcesValidated) {
		return prerequisite(op, state.StageSourcesValidated, ""), nil
	}

	relevant := s.Relevant()
	if len(relevant) == 0 {
		text := NoSourcesMessage(s.Question, len(s.ValidationResults))
		return Result{
			Operation: op,
			Outcome:   OutcomeSuspended,
			Message:   text,
			Update: &state.Update{
				Stages:              []state.Stage{state.StageNoRelevantSourcesFound},
				PendingApproval:     state.Ptr(true),
				ApprovalKind:        state.Ptr(state.ApprovalNoSources),
				LastApprovalRequest: &text,
			},
		}, nil
	}

	text := ApprovalMessage(s.Question, relevant)
	return Result{
		Operation: op,
		Outcome:   OutcomeSuspended,
		Message:   text,
		Update: &state.Update{
			Stages:              []state.Stage{state.StageSourceApprovalRequested},
			PendingApproval:     state.Ptr(true),
			ApprovalKind:        state.Ptr(state.ApprovalSources),
			LastApprovalRequest: &text,
		},
	}, nil
}

// ApprovalMessage enumerates the candidate sources for the human.
func ApprovalMessage(question string, relevant []state.Validation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d relevant sources for: %s\n\n", len(relevant), question)
	sb.WriteString("Please review and approve sources:\n")
	for i, v := range relevant {
		fmt.Fprintf(&sb, "%d. **%s** (Score: %.2f)\n", i+1, v.Title, v.Score)
		fmt.Fprintf(&sb, "   Reasoning: %s\n", v.Reasoning)
		fmt.Fprintf(&sb, "   Document ID: %s\n\n", v.DocumentID)
	}
	sb.WriteString("Reply with document IDs to approve (e.g., '123456 789012') or 'all' to approve all relevant sources.")
	return sb.String()
}

// NoSourcesMessage is the recovery menu shown when nothing relevant was found.
func NoSourcesMessage(question string, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I searched for sources related to: %s\n\n", question)
	fmt.Fprintf(&sb, "Unfortunately, I found %d sources but none were sufficiently relevant to your question.\n\n", total)
	sb.WriteString("Would you like me to:\n")
	for _, o := range approval.RecoveryMenu {
		fmt.Fprintf(&sb, "%s. %s\n", o.ID, o.Label)
	}
	sb.WriteString("\n")
	sb.WriteString("Please let me know how you'd like to proceed.")
	return sb.String()
}

// candidates are the ids a human may approve for the current suspension.
func candidates(s *state.WorkflowState) []state.Validation {
	if s.ApprovalKind == state.ApprovalNoSources {
		return s.ValidationResults
	}
	return s.Relevant()
}

func ids(list []state.Validation) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.DocumentID
	}
	return out
}

// RecordDecision records a classified human reply to the pending request.
func (c *Controller) RecordDecision(_ context.Context, s *state.WorkflowState, d approval.Decision, feedback string) (Result, error) {
	const op = OpRecordDecision
	if !s.PendingApproval {
		if s.HasCompleted(state.StageSourcesApproved) {
			return noop(op, "Sources already approved"), nil
		}
		if !approvalRequested(s) {
			return prerequisite(op, state.StageSourceApprovalRequested, ""), nil
		}
		return noop(op, "No approval is pending"), nil
	}
	if !d.IsApproval() {
		return rejected(op, "That reply is not an approval decision."), nil
	}

	if d.Kind == approval.KindApproveAll && s.ApprovalKind == state.ApprovalNoSources {
		d.Kind = approval.KindProceed
	}

	decided := func(approved, rejectedIDs []string, stages []state.Stage) *state.Update {
		return &state.Update{
			Stages:          stages,
			ApprovedIDs:     &approved,
			RejectedIDs:     &rejectedIDs,
			PendingApproval: state.Ptr(false),
			ApprovalKind:    state.Ptr(state.ApprovalNone),
			LastDecision:    state.Ptr(string(d.Kind)),
			HumanFeedback:   &feedback,
		}
	}
	approvedStage := []state.Stage{state.StageSourcesApproved}
	pool := candidates(s)

	switch d.Kind {
	case approval.KindApproveAll:
		return Result{
			Operation: op,
			Outcome:   OutcomeCompleted,
			Message:   fmt.Sprintf("Approved all %d relevant sources. Starting the analysis.", len(pool)),
			Update:    decided([]string{state.SentinelAll}, []string{}, approvedStage),
		}, nil

	case approval.KindProceed:
		if len(s.ValidationResults) == 0 {
			return rejected(op, "There are no sources to proceed with. Reply 'retry' to try a different search approach or 'broaden' to widen the search."), nil
		}
		return Result{
			Operation: op,
			Outcome:   OutcomeCompleted,
			Message:   "Proceeding with the best available sources.",
			Update:    decided([]string{state.SentinelProceed}, []string{}, approvedStage),
		}, nil

	case approval.KindApproveIDs:
		known := make(map[string]bool, len(pool))
		for _, v := range pool {
			known[v.DocumentID] = true
		}
		var matched, unknown []string
		for _, id := range d.IDs {
			if known[id] {
				matched = append(matched, id)
			} else {
				unknown = append(unknown, id)
			}
		}
		if len(matched) == 0 {
			return rejected(op, fmt.Sprintf(
				"None of the ids you sent (%s) match the candidate sources. Reply with ids from this list: %s, or 'all' to approve all relevant sources.",
				strings.Join(unknown, ", "), strings.Join(ids(pool), ", "))), nil
		}
		var rest []string
		approvedSet := make(map[string]bool, len(matched))
		for _, id := range matched {
			approvedSet[id] = true
		}
		for _, v := range pool {
			if !approvedSet[v.DocumentID] {
				rest = append(rest, v.DocumentID)
			}
		}
		if rest == nil {
			rest = []string{}
		}
		msg := fmt.Sprintf("Approved %d sources: %s.", len(matched), strings.Join(matched, ", "))
		if len(unknown) > 0 {
			msg += fmt.Sprintf(" Ignored ids that are not candidates: %s.", strings.Join(unknown, ", "))
		}
		return Result{
			Operation: op,
			Outcome:   OutcomeCompleted,
			Message:   msg + " Starting the analysis.",
			Update:    decided(matched, rest, approvedStage),
		}, nil

	case approval.KindRetry, approval.KindBroaden:
		mode := state.SearchModeRetry
		msg := "Starting a new search cycle with a different approach."
		if d.Kind == approval.KindBroaden {
			mode = state.SearchModeBroaden
			msg = "Starting a new search cycle with broader criteria."
		}
		u := decided([]string{d.Sentinel()}, []string{}, nil)
		u.ResetCycle = true
		u.SearchMode = &mode
		return Result{Operation: op, Outcome: OutcomeCompleted, Message: msg, Update: u}, nil

	case approval.KindDecline:
		return Result{
			Operation: op,
			Outcome:   OutcomeCompleted,
			Message:   "Understood, no sources were approved and the research is stopped. Send a new question whenever you are ready.",
			Update:    decided([]string{}, ids(pool), nil),
		}, nil
	}
	return rejected(op, fmt.Sprintf("Unsupported decision %s.", d.Kind)), nil
}

// ExpandApproved resolves bulk sentinels into document ids against the
// current validation results.
func ExpandApproved(s *state.WorkflowState) []string {
	if len(s.ApprovedIDs) == 1 {
		switch s.ApprovedIDs[0] {
		case state.SentinelAll:
			return ids(s.Relevant())
		case state.SentinelProceed:
			if rel := s.Relevant(); len(rel) > 0 {
				return ids(rel)
			}
			best := append([]state.Validation(nil), s.ValidationResults...)
			sort.SliceStable(best, func(i, j int) bool { return best[i].Score > best[j].Score })
			if len(best) > fallbackSources {
				best = best[:fallbackSources]
			}
			return ids(best)
		case state.SentinelRetry, state.SentinelBroaden:
			return nil
		}
	}
	var out []string
	for _, id := range s.ApprovedIDs {
		if _, ok := s.Validation(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// CreateAnalysis composes the analysis artifact from the approved sources.
func (c *Controller) CreateAnalysis(ctx context.Context, s *state.WorkflowState) (Result, error) {
	const op = OpCreateAnalysis
	if s.HasCompleted(state.StageAnalysisCreated) {
		return noop(op, "Analysis already created"), nil
	}
	if s.PendingApproval {
		return prerequisite(op, state.StageSourcesApproved, "awaiting human approval"), nil
	}
	if !s.HasCompleted(state.StageSourcesApproved) {
		return prerequisite(op, state.StageSourcesApproved, ""), nil
	}

	docIDs := ExpandApproved(s)
	if len(docIDs) == 0 {
		return rejected(op, "There are no approved sources to analyze."), nil
	}

	sources, parsed, err := c.prepareSources(ctx, s, docIDs)
	if err != nil {
		return Result{}, err
	}

	content := c.composer.Compose(ctx, s.Question, sources)
	id := fmt.Sprintf("legal-analysis-%d", s.Cycle)
	a, err := artifact.Create(id, "Legal analysis: "+truncateRunes(s.Question, 80), artifactType, content, state.ArtifactReview, c.now())
	if err != nil {
		return Result{}, fmt.Errorf("create analysis artifact: %w", err)
	}

	msg := artifact.Render(artifact.CommandCreate, a) +
		"\n\nReply 'approve' to finalize the analysis, use replace \"old text\" with \"new text\" for exact edits, or describe the changes you need."

	return Result{
		Operation: op,
		Outcome:   OutcomeCompleted,
		Message:   msg,
		Update: &state.Update{
			Stages:            []state.Stage{state.StageAnalysisCreated},
			ParsedDocuments:   parsed,
			Artifacts:         map[string]state.Artifact{id: a},
			CurrentArtifactID: &id,
		},
	}, nil
}

// prepareSources parses the approved documents concurrently. A document that
// cannot be parsed is analyzed from its search snippet.
func (c *Controller) prepareSources(ctx context.Context, s *state.WorkflowState, docIDs []string) ([]Source, map[string]state.ParsedDocument, error) {
	sources := make([]Source, len(docIDs))
	parsed := map[string]state.ParsedDocument{}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.cfg.SearchConcurrency)
	for i, id := range docIDs {
		hit, _ := s.Hit(id)
		v, _ := s.Validation(id)
		src := Source{ID: id, Title: firstNonEmpty(hit.Title, v.Title), URL: firstNonEmpty(hit.URL, v.URL), Date: hit.Date, Text: hit.Snippet}

		if doc, ok := s.ParsedDocuments[id]; ok {
			src.Text, src.Parsed = doc.Content, true
			sources[i] = src
			continue
		}
		if c.parser == nil || src.URL == "" {
			sources[i] = src
			continue
		}

		g.Go(func() error {
			doc, err := c.parse(ctx, src.URL)
			if err != nil {
				c.logger.Warn(moduleName, "Document parse failed, using snippet", map[string]interface{}{
					"document_id": id,
					"error":       err.Error(),
				})
				sources[i] = src
				return nil
			}
			src.Text, src.Parsed = doc.Markdown, true
			if doc.Metadata.Title != "" {
				src.Title = doc.Metadata.Title
			}
			sources[i] = src

			mu.Lock()
			parsed[id] = state.ParsedDocument{
				DocumentID: id,
				Title:      src.Title,
				Content:    doc.Markdown,
				Metadata: map[string]string{
					"source_url":      doc.Metadata.SourceURL,
					"document_number": doc.Metadata.DocumentNumber,
				},
				ParsedAt: doc.Metadata.ParsedAt,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("document parsing interrupted: %w", err)
	}
	return sources, parsed, nil
}

func (c *Controller) parse(ctx context.Context, url string) (*parser.Document, error) {
	if c.cfg.ParseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ParseTimeout)
		defer cancel()
	}
	return c.parser.Parse(ctx, url)
}

var replacePattern = regexp.MustCompile(`(?is)replace\s+["«“](.+?)["»”]\s+with\s+["«“](.*?)["»”]`)

// ReviseArtifact applies review feedback to the current analysis artifact.
func (c *Controller) ReviseArtifact(ctx context.Context, s *state.WorkflowState, feedback string) (Result, error) {
	const op = OpReviseArtifact
	if !s.HasCompleted(state.StageAnalysisCreated) {
		return prerequisite(op, state.StageAnalysisCreated, ""), nil
	}
	a, ok := s.Artifacts[s.CurrentArtifactID]
	if !ok {
		return rejected(op, fmt.Sprintf("Artifact %s not found", s.CurrentArtifactID)), nil
	}
	current, ok := a.Current()
	if !ok {
		return rejected(op, fmt.Sprintf("Artifact %s has no content", a.ID)), nil
	}
	if current.Stage == state.ArtifactFinal {
		return noop(op, "The analysis is already final."), nil
	}

	now := c.now()
	commit := func(next state.Artifact, msg string) Result {
		return Result{
			Operation: op,
			Outcome:   OutcomeCompleted,
			Message:   msg,
			Update: &state.Update{
				Artifacts:     map[string]state.Artifact{next.ID: next},
				HumanFeedback: &feedback,
			},
		}
	}

	if m := replacePattern.FindStringSubmatch(feedback); m != nil {
		next, err := artifact.Update(a, m[1], m[2], "", feedback, now)
		if errors.Is(err, artifact.ErrStringNotFound) {
			return rejected(op, fmt.Sprintf("String '%s' not found in artifact", m[1])), nil
		}
		if err != nil {
			return rejected(op, err.Error()), nil
		}
		return commit(next, artifact.Render(artifact.CommandUpdate, next, "old_str", m[1], "new_str", m[2])), nil
	}

	if approval.Classify(feedback).Kind == approval.KindApproveAll {
		next, err := artifact.Rewrite(a, current.Content, state.ArtifactFinal, feedback, now)
		if err != nil {
			return rejected(op, err.Error()), nil
		}
		return commit(next, fmt.Sprintf("The analysis is finalized as version %d.", next.CurrentVersion)), nil
	}

	revised, err := c.composer.Revise(ctx, current.Content, feedback)
	if errors.Is(err, llm.ErrNoProvider) {
		return rejected(op, "I can apply exact edits: reply with replace \"old text\" with \"new text\", or 'approve' to finalize the analysis."), nil
	}
	if err != nil {
		c.logger.Warn(moduleName, "Artifact revision failed", map[string]interface{}{"error": err.Error()})
		return rejected(op, "I could not revise the analysis right now. Please try again or use replace \"old text\" with \"new text\"."), nil
	}
	next, err := artifact.Rewrite(a, revised, "", feedback, now)
	if err != nil {
		return rejected(op, err.Error()), nil
	}
	return commit(next, artifact.Render(artifact.CommandRewrite, next)), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
