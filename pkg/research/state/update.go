package state

// Update is the declarative result of a stage operation. Nil fields are left
// untouched. Maps are upserted and ExecutedQueries is appended without
// duplicates; everything else replaces the current value.
type Update struct {
	// ResetCycle starts a new research cycle before the other fields apply
	ResetCycle bool `json:"reset_cycle,omitempty"`

	// Stages are completion markers to record, in order
	Stages []Stage `json:"stages,omitempty"`

	Question            *string       `json:"question,omitempty"`
	SearchMode          *SearchMode   `json:"search_mode,omitempty"`
	PlannedQueries      *[]QueryPlan  `json:"planned_queries,omitempty"`
	ExecutedQueries     []string      `json:"executed_queries,omitempty"`
	LegalConcepts       *[]string     `json:"legal_concepts,omitempty"`
	StrategyRationale   *string       `json:"strategy_rationale,omitempty"`
	RawResults          *[]SearchHit  `json:"raw_results,omitempty"`
	ValidationResults   *[]Validation `json:"validation_results,omitempty"`
	ApprovedIDs         *[]string     `json:"approved_ids,omitempty"`
	RejectedIDs         *[]string     `json:"rejected_ids,omitempty"`
	PendingApproval     *bool         `json:"pending_approval,omitempty"`
	ApprovalKind        *ApprovalKind `json:"approval_kind,omitempty"`
	LastApprovalRequest *string       `json:"last_approval_request,omitempty"`
	LastDecision        *string       `json:"last_decision,omitempty"`
	HumanFeedback       *string       `json:"human_feedback,omitempty"`

	ParsedDocuments   map[string]ParsedDocument `json:"parsed_documents,omitempty"`
	Artifacts         map[string]Artifact       `json:"artifacts,omitempty"`
	CurrentArtifactID *string                   `json:"current_artifact_id,omitempty"`
}

// Ptr is a helper for building updates.
func Ptr[T any](v T) *T {
	return &v
}

// Apply returns a new state with the update committed. The input state is not
// modified, so a caller can drop the result to discard the whole update.
func Apply(s *WorkflowState, u *Update) *WorkflowState {
	out := s.Clone()
	if out == nil {
		out = New("")
	}
	if u == nil {
		return out
	}

	if u.ResetCycle {
		out.Cycle++
		out.Stage = ""
		out.CompletedStages = nil
		out.PlannedQueries = nil
		out.ExecutedQueries = nil
		out.LegalConcepts = nil
		out.StrategyRationale = ""
		out.RawResults = nil
		out.ValidationResults = nil
		out.PendingApproval = false
		out.ApprovalKind = ApprovalNone
		out.LastApprovalRequest = ""
	}

	assign(&out.Question, u.Question)
	assign(&out.SearchMode, u.SearchMode)
	assign(&out.PlannedQueries, u.PlannedQueries)
	assign(&out.LegalConcepts, u.LegalConcepts)
	assign(&out.StrategyRationale, u.StrategyRationale)
	assign(&out.RawResults, u.RawResults)
	assign(&out.ValidationResults, u.ValidationResults)
	assign(&out.ApprovedIDs, u.ApprovedIDs)
	assign(&out.RejectedIDs, u.RejectedIDs)
	assign(&out.PendingApproval, u.PendingApproval)
	assign(&out.ApprovalKind, u.ApprovalKind)
	assign(&out.LastApprovalRequest, u.LastApprovalRequest)
	assign(&out.LastDecision, u.LastDecision)
	assign(&out.HumanFeedback, u.HumanFeedback)
	assign(&out.CurrentArtifactID, u.CurrentArtifactID)

	for _, q := range u.ExecutedQueries {
		if !contains(out.ExecutedQueries, q) {
			out.ExecutedQueries = append(out.ExecutedQueries, q)
		}
	}

	if len(u.ParsedDocuments) > 0 && out.ParsedDocuments == nil {
		out.ParsedDocuments = map[string]ParsedDocument{}
	}
	for id, d := range u.ParsedDocuments {
		out.ParsedDocuments[id] = d
	}
	if len(u.Artifacts) > 0 && out.Artifacts == nil {
		out.Artifacts = map[string]Artifact{}
	}
	for id, a := range u.Artifacts {
		a.Versions = append([]ArtifactVersion(nil), a.Versions...)
		out.Artifacts[id] = a
	}

	for _, st := range u.Stages {
		if !out.HasCompleted(st) {
			out.CompletedStages = append(out.CompletedStages, st)
		}
		out.Stage = st
	}
	return out
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
