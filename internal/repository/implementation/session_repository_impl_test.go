package implementation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/model"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ChatSession{}))
	return db
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t), store.ServiceResearch)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := store.NewSession("s1", store.ServiceResearch, now)
	s.Append(store.Message{Role: store.RoleUser, Content: "минимальная пенсия"})
	s.Workflow = state.Apply(state.New("минимальная пенсия"), &state.Update{
		Stages:         []state.Stage{state.StageStrategyGenerated},
		PlannedQueries: &[]state.QueryPlan{{Query: "пенсионное обеспечение", Tier: state.TierGeneral}},
	})
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, store.ServiceResearch, got.Service)
	assert.Equal(t, s.Messages, got.Messages)
	require.NotNil(t, got.Workflow)
	assert.Equal(t, "пенсионное обеспечение", got.Workflow.PlannedQueries[0].Query)
	assert.True(t, got.Workflow.HasCompleted(state.StageStrategyGenerated))
}

func TestSessionRepository_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t), store.ServiceConsultation)

	s := store.NewSession("s1", store.ServiceConsultation, time.Now())
	require.NoError(t, repo.Save(ctx, s))

	s.Append(store.Message{Role: store.RoleUser, Content: "q"}, store.Message{Role: store.RoleAssistant, Content: "a"})
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Nil(t, got.Workflow)
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(setupTestDB(t), store.ServiceConsultation)

	require.NoError(t, repo.Save(ctx, store.NewSession("s1", store.ServiceConsultation, time.Now())))
	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.ErrorIs(t, repo.Delete(ctx, "s1"), contract.ErrSessionNotFound)
}

func TestSessionRepository_ServicesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	qna := NewSessionRepository(db, store.ServiceConsultation)
	research := NewSessionRepository(db, store.ServiceResearch)

	q := store.NewSession("shared", store.ServiceConsultation, time.Now())
	q.Append(store.Message{Role: store.RoleUser, Content: "q"})
	require.NoError(t, qna.Save(ctx, q))

	_, err := research.Get(ctx, "shared")
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)

	r := store.NewSession("shared", store.ServiceResearch, time.Now())
	require.NoError(t, research.Save(ctx, r))
	require.NoError(t, research.Delete(ctx, "shared"))

	got, err := qna.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}
