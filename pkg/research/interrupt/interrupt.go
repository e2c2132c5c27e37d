// Package interrupt builds the descriptors returned to the transport when the
// research workflow waits for a human.
package interrupt

import (
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/approval"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"

	"github.com/google/uuid"
)

// Type names what the workflow is waiting for.
type Type string

const (
	TypeSourceApproval Type = "source_approval"
	TypeArtifactReview Type = "artifact_review"
)

// Source is one candidate listed in a source approval descriptor.
type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Score      float64 `json:"relevance_score"`
	Reasoning  string  `json:"reasoning"`
}

// Descriptor tells the caller what the workflow is waiting for. Blocking is
// true for source approval, the only kind that suspends the workflow.
type Descriptor struct {
	ID       string                 `json:"interrupt_id"`
	Type     Type                   `json:"interrupt_type"`
	Blocking bool                   `json:"blocking"`
	Data     map[string]interface{} `json:"interrupt_data"`
}

// ForState returns the descriptor matching the workflow, or nil when the
// workflow is not waiting for anything.
func ForState(s *state.WorkflowState) *Descriptor {
	if s == nil {
		return nil
	}
	if s.PendingApproval {
		return SourceApproval(s)
	}
	if s.HasCompleted(state.StageAnalysisCreated) {
		return ArtifactReview(s)
	}
	return nil
}

// SourceApproval describes a pending source approval. On the no-sources
// branch the best available sources are listed so the human can still pick,
// along with the numbered recovery options.
func SourceApproval(s *state.WorkflowState) *Descriptor {
	list := s.Relevant()
	data := map[string]interface{}{
		"question": s.Question,
	}
	if s.ApprovalKind == state.ApprovalNoSources {
		list = s.ValidationResults
		data["no_relevant_sources"] = true
		data["total_found"] = len(s.ValidationResults)
		data["options"] = append([]approval.MenuOption(nil), approval.RecoveryMenu...)
	}

	sources := make([]Source, 0, len(list))
	for _, v := range list {
		sources = append(sources, Source{
			DocumentID: v.DocumentID,
			Title:      v.Title,
			URL:        v.URL,
			Score:      v.Score,
			Reasoning:  v.Reasoning,
		})
	}
	data["sources"] = sources
	data["total_sources"] = len(sources)

	return &Descriptor{
		ID:       newID(),
		Type:     TypeSourceApproval,
		Blocking: true,
		Data:     data,
	}
}

// ArtifactReview describes the current analysis artifact. Final artifacts
// need no review and yield nil.
func ArtifactReview(s *state.WorkflowState) *Descriptor {
	a, ok := s.Artifacts[s.CurrentArtifactID]
	if !ok {
		return nil
	}
	current, ok := a.Current()
	if !ok || current.Stage == state.ArtifactFinal {
		return nil
	}
	return &Descriptor{
		ID:   newID(),
		Type: TypeArtifactReview,
		Data: map[string]interface{}{
			"artifact_id": a.ID,
			"title":       a.Title,
			"version":     a.CurrentVersion,
			"stage":       string(current.Stage),
		},
	}
}

func newID() string {
	return uuid.New().String()
}
