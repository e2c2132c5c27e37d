package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *WorkflowState {
	s := New("минимальная пенсия")
	s.PlannedQueries = []QueryPlan{{Query: "пенсия", Tier: TierGeneral, Concepts: []string{"пенсия"}}}
	s.ExecutedQueries = []string{"пенсия"}
	s.RawResults = []SearchHit{{DocumentID: "1", Title: "Закон о пенсиях", Score: 0.7}}
	s.ValidationResults = []Validation{
		{DocumentID: "1", Relevant: true, Score: 0.6},
		{DocumentID: "2", Relevant: false, Score: 0.1},
	}
	s.CompletedStages = []Stage{StageStrategyGenerated, StageMultiSearchExecuted, StageSourcesValidated}
	s.Stage = StageSourcesValidated
	s.ParsedDocuments["1"] = ParsedDocument{DocumentID: "1", Metadata: map[string]string{"title": "Закон"}}
	s.Artifacts["a"] = Artifact{ID: "a", CurrentVersion: 1, Versions: []ArtifactVersion{{Version: 1, Content: "v1"}}}
	return s
}

func TestClone_IsDeep(t *testing.T) {
	s := sampleState()
	c := s.Clone()

	c.PlannedQueries[0].Concepts[0] = "changed"
	c.ExecutedQueries[0] = "changed"
	c.ValidationResults[0].Relevant = false
	c.CompletedStages = append(c.CompletedStages, StageSourceApprovalRequested)
	c.ParsedDocuments["1"].Metadata["title"] = "changed"
	art := c.Artifacts["a"]
	art.Versions[0].Content = "changed"

	assert.Equal(t, "пенсия", s.PlannedQueries[0].Concepts[0])
	assert.Equal(t, "пенсия", s.ExecutedQueries[0])
	assert.True(t, s.ValidationResults[0].Relevant)
	assert.Len(t, s.CompletedStages, 3)
	assert.Equal(t, "Закон", s.ParsedDocuments["1"].Metadata["title"])
	assert.Equal(t, "v1", s.Artifacts["a"].Versions[0].Content)
}

func TestClone_Nil(t *testing.T) {
	var s *WorkflowState
	assert.Nil(t, s.Clone())
}

func TestRelevantAndLookups(t *testing.T) {
	s := sampleState()

	rel := s.Relevant()
	require.Len(t, rel, 1)
	assert.Equal(t, "1", rel[0].DocumentID)

	_, ok := s.Validation("2")
	assert.True(t, ok)
	_, ok = s.Validation("3")
	assert.False(t, ok)

	hit, ok := s.Hit("1")
	assert.True(t, ok)
	assert.Equal(t, "Закон о пенсиях", hit.Title)
}

func TestArtifactCurrent(t *testing.T) {
	a := Artifact{CurrentVersion: 2, Versions: []ArtifactVersion{{Version: 1, Content: "a"}, {Version: 2, Content: "b"}}}
	v, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, "b", v.Content)

	_, ok = Artifact{}.Current()
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	t.Run("does not mutate input", func(t *testing.T) {
		s := sampleState()
		out := Apply(s, &Update{
			Stages:          []Stage{StageSourceApprovalRequested},
			PendingApproval: Ptr(true),
			ApprovalKind:    Ptr(ApprovalSources),
		})

		assert.False(t, s.PendingApproval)
		assert.False(t, s.HasCompleted(StageSourceApprovalRequested))
		assert.True(t, out.PendingApproval)
		assert.Equal(t, ApprovalSources, out.ApprovalKind)
		assert.Equal(t, StageSourceApprovalRequested, out.Stage)
	})

	t.Run("nil update returns copy", func(t *testing.T) {
		s := sampleState()
		out := Apply(s, nil)
		assert.Equal(t, s, out)
		assert.NotSame(t, s, out)
	})

	t.Run("nil state starts fresh", func(t *testing.T) {
		out := Apply(nil, &Update{Question: Ptr("вопрос")})
		assert.Equal(t, "вопрос", out.Question)
		assert.Equal(t, 1, out.Cycle)
	})

	t.Run("executed queries are appended uniquely", func(t *testing.T) {
		out := Apply(sampleState(), &Update{ExecutedQueries: []string{"пенсия", "налог", "налог"}})
		assert.Equal(t, []string{"пенсия", "налог"}, out.ExecutedQueries)
	})

	t.Run("stage markers are recorded once", func(t *testing.T) {
		out := Apply(sampleState(), &Update{Stages: []Stage{StageSourcesValidated}})
		assert.Len(t, out.CompletedStages, 3)
	})

	t.Run("maps are upserted", func(t *testing.T) {
		out := Apply(sampleState(), &Update{
			ParsedDocuments: map[string]ParsedDocument{"2": {DocumentID: "2"}},
		})
		assert.Len(t, out.ParsedDocuments, 2)
	})

	t.Run("reset cycle clears cycle fields", func(t *testing.T) {
		s := sampleState()
		s.PendingApproval = true
		s.ApprovalKind = ApprovalNoSources
		s.ApprovedIDs = []string{SentinelRetry}

		out := Apply(s, &Update{ResetCycle: true, SearchMode: Ptr(SearchModeRetry)})

		assert.Equal(t, 2, out.Cycle)
		assert.Equal(t, SearchModeRetry, out.SearchMode)
		assert.Empty(t, out.CompletedStages)
		assert.Empty(t, out.PlannedQueries)
		assert.Empty(t, out.ExecutedQueries)
		assert.Empty(t, out.ValidationResults)
		assert.False(t, out.PendingApproval)
		assert.Equal(t, ApprovalNone, out.ApprovalKind)
		assert.Equal(t, Stage(""), out.Stage)
		assert.Equal(t, "минимальная пенсия", out.Question)
		// decisions and artifacts survive the reset
		assert.Equal(t, []string{SentinelRetry}, out.ApprovedIDs)
		assert.Len(t, out.Artifacts, 1)
	})
}
