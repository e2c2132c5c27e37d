package state

import (
	"time"
)

// Stage is a named point in the canonical research sequence.
type Stage string

const (
	StageStrategyGenerated       Stage = "strategy_generated"
	StageMultiSearchExecuted     Stage = "multi_search_executed"
	StageSourcesValidated        Stage = "sources_validated"
	StageSourceApprovalRequested Stage = "source_approval_requested"
	StageNoRelevantSourcesFound  Stage = "no_relevant_sources_found"
	StageSourcesApproved         Stage = "sources_approved"
	StageAnalysisCreated         Stage = "analysis_created"
)

// Order is the required stage sequence. StageNoRelevantSourcesFound is a
// side branch that takes the place of StageSourceApprovalRequested.
var Order = []Stage{
	StageStrategyGenerated,
	StageMultiSearchExecuted,
	StageSourcesValidated,
	StageSourceApprovalRequested,
	StageSourcesApproved,
	StageAnalysisCreated,
}

// ApprovalKind is the reason the workflow is suspended.
type ApprovalKind string

const (
	ApprovalNone      ApprovalKind = ""
	ApprovalSources   ApprovalKind = "sources"
	ApprovalNoSources ApprovalKind = "no_sources"
)

// SearchMode selects how the query planner builds a cycle's queries.
type SearchMode string

const (
	SearchModeStandard SearchMode = "standard"
	SearchModeRetry    SearchMode = "retry"
	SearchModeBroaden  SearchMode = "broaden"
)

// Bulk sentinels stored in ApprovedIDs instead of explicit document ids.
const (
	SentinelAll     = "all"
	SentinelRetry   = "retry"
	SentinelBroaden = "broaden"
	SentinelProceed = "proceed"
)

// QueryTier is the specificity of a planned query.
type QueryTier string

const (
	TierGeneral      QueryTier = "general"
	TierMedium       QueryTier = "medium"
	TierSpecific     QueryTier = "specific"
	TierAlternative  QueryTier = "alternative"
	TierVerySpecific QueryTier = "very_specific"
	TierFallback     QueryTier = "fallback"
)

// QueryPlan is one planned search query.
type QueryPlan struct {
	Query     string    `json:"query"`
	Tier      QueryTier `json:"tier"`
	Concepts  []string  `json:"concepts"`
	Rationale string    `json:"rationale"`
}

// SearchHit is a raw search result, unique per DocumentID inside RawResults.
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	URL        string  `json:"url"`
	Date       string  `json:"document_date"`
	Score      float64 `json:"relevance_score"`
}

// Validation is the relevance verdict for one search hit.
type Validation struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Relevant   bool    `json:"is_relevant"`
	Score      float64 `json:"relevance_score"`
	Reasoning  string  `json:"reasoning"`
}

// ParsedDocument is the full text of an approved source.
type ParsedDocument struct {
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	ParsedAt   time.Time         `json:"parsed_at"`
}

// ArtifactStage is the lifecycle stage of an artifact version.
type ArtifactStage string

const (
	ArtifactDraft  ArtifactStage = "draft"
	ArtifactReview ArtifactStage = "review"
	ArtifactFinal  ArtifactStage = "final"
)

// ArtifactVersion is one immutable revision of an artifact.
type ArtifactVersion struct {
	Version   int           `json:"version"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Stage     ArtifactStage `json:"stage"`
	Feedback  string        `json:"feedback,omitempty"`
}

// Artifact is a versioned document; Versions is ordered and append-only.
type Artifact struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Type           string            `json:"type"`
	CurrentVersion int               `json:"current_version"`
	Versions       []ArtifactVersion `json:"versions"`
}

// Current returns the current version, or false when the artifact is empty.
func (a Artifact) Current() (ArtifactVersion, bool) {
	for i := len(a.Versions) - 1; i >= 0; i-- {
		if a.Versions[i].Version == a.CurrentVersion {
			return a.Versions[i], true
		}
	}
	return ArtifactVersion{}, false
}

// WorkflowState is the research progress record of one session.
// It is only mutated through Apply.
type WorkflowState struct {
	Question   string     `json:"current_user_question"`
	Stage      Stage      `json:"workflow_stage"`
	Cycle      int        `json:"cycle"`
	SearchMode SearchMode `json:"search_mode"`

	PlannedQueries    []QueryPlan `json:"search_queries_planned"`
	ExecutedQueries   []string    `json:"search_queries_executed"`
	LegalConcepts     []string    `json:"legal_concepts_identified"`
	StrategyRationale string      `json:"search_strategy_rationale"`

	RawResults        []SearchHit  `json:"raw_search_results"`
	ValidationResults []Validation `json:"validation_results"`

	ApprovedIDs []string `json:"approved_document_ids"`
	RejectedIDs []string `json:"rejected_document_ids"`

	PendingApproval     bool         `json:"pending_approval"`
	ApprovalKind        ApprovalKind `json:"approval_required_for"`
	LastApprovalRequest string       `json:"last_approval_request"`
	LastDecision        string       `json:"last_decision"`
	HumanFeedback       string       `json:"human_feedback"`

	CompletedStages []Stage `json:"completed_stages"`

	ParsedDocuments   map[string]ParsedDocument `json:"parsed_documents"`
	Artifacts         map[string]Artifact       `json:"artifacts"`
	CurrentArtifactID string                    `json:"current_artifact_id"`
}

// New creates an empty workflow state for a research question.
func New(question string) *WorkflowState {
	return &WorkflowState{
		Question:        question,
		Cycle:           1,
		SearchMode:      SearchModeStandard,
		ParsedDocuments: map[string]ParsedDocument{},
		Artifacts:       map[string]Artifact{},
	}
}

// HasCompleted reports whether the stage's completion marker is present.
func (s *WorkflowState) HasCompleted(stage Stage) bool {
	for _, st := range s.CompletedStages {
		if st == stage {
			return true
		}
	}
	return false
}

// Relevant returns the validation results flagged relevant, in score order.
func (s *WorkflowState) Relevant() []Validation {
	var out []Validation
	for _, v := range s.ValidationResults {
		if v.Relevant {
			out = append(out, v)
		}
	}
	return out
}

// Validation looks up a validation result by document id.
func (s *WorkflowState) Validation(documentID string) (Validation, bool) {
	for _, v := range s.ValidationResults {
		if v.DocumentID == documentID {
			return v, true
		}
	}
	return Validation{}, false
}

// Hit looks up a raw search hit by document id.
func (s *WorkflowState) Hit(documentID string) (SearchHit, bool) {
	for _, h := range s.RawResults {
		if h.DocumentID == documentID {
			return h, true
		}
	}
	return SearchHit{}, false
}

// Clone returns a deep copy, used as the immutable snapshot handed to stage
// operations and as the working copy of a step.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	c := *s
	if s.PlannedQueries != nil {
		c.PlannedQueries = make([]QueryPlan, len(s.PlannedQueries))
		for i, q := range s.PlannedQueries {
			q.Concepts = cloneStrings(q.Concepts)
			c.PlannedQueries[i] = q
		}
	}
	c.ExecutedQueries = cloneStrings(s.ExecutedQueries)
	c.LegalConcepts = cloneStrings(s.LegalConcepts)
	c.RawResults = append([]SearchHit(nil), s.RawResults...)
	c.ValidationResults = append([]Validation(nil), s.ValidationResults...)
	c.ApprovedIDs = cloneStrings(s.ApprovedIDs)
	c.RejectedIDs = cloneStrings(s.RejectedIDs)
	c.CompletedStages = append([]Stage(nil), s.CompletedStages...)

	if s.ParsedDocuments != nil {
		c.ParsedDocuments = make(map[string]ParsedDocument, len(s.ParsedDocuments))
		for id, d := range s.ParsedDocuments {
			if d.Metadata != nil {
				meta := make(map[string]string, len(d.Metadata))
				for k, v := range d.Metadata {
					meta[k] = v
				}
				d.Metadata = meta
			}
			c.ParsedDocuments[id] = d
		}
	}

	if s.Artifacts != nil {
		c.Artifacts = make(map[string]Artifact, len(s.Artifacts))
		for id, a := range s.Artifacts {
			a.Versions = append([]ArtifactVersion(nil), a.Versions...)
			c.Artifacts[id] = a
		}
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
