package implementation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dots-Uzbekistan/Lexora/internal/mapper"
	"github.com/Dots-Uzbekistan/Lexora/internal/model"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepositoryImpl keeps the sessions of one service in the
// chat_sessions table. Rows are keyed by (id, service).
type SessionRepositoryImpl struct {
	db      *gorm.DB
	service string
	mapper  *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB, service string) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:      db,
		service: service,
		mapper:  mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *store.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return fmt.Errorf("failed to map session %s: %w", session.ID, err)
	}
	m.Service = r.service
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "service"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "workflow", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, id string) (*store.Session, error) {
	var m model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ? AND service = ?", id, r.service).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND service = ?", id, r.service).Delete(&model.ChatSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contract.ErrSessionNotFound
	}
	return nil
}
