package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/Dots-Uzbekistan/Lexora/internal/model"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToModel(s *store.Session) (*model.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	messages := s.Messages
	if messages == nil {
		messages = []store.Message{}
	}
	rawMessages, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	var rawWorkflow datatypes.JSON
	if s.Workflow != nil {
		rawWorkflow, err = json.Marshal(s.Workflow)
		if err != nil {
			return nil, fmt.Errorf("marshal workflow: %w", err)
		}
	}

	return &model.ChatSession{
		Id:        s.ID,
		Service:   s.Service,
		Messages:  datatypes.JSON(rawMessages),
		Workflow:  rawWorkflow,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

func (m *SessionMapper) ToEntity(row *model.ChatSession) (*store.Session, error) {
	if row == nil {
		return nil, nil
	}

	s := &store.Session{
		ID:        row.Id,
		Service:   row.Service,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &s.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	if len(row.Workflow) > 0 && string(row.Workflow) != "null" {
		var wf state.WorkflowState
		if err := json.Unmarshal(row.Workflow, &wf); err != nil {
			return nil, fmt.Errorf("unmarshal workflow: %w", err)
		}
		s.Workflow = &wf
	}
	return s, nil
}
