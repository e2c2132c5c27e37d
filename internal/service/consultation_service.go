package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/dto"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/consultation"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"
)

type IConsultationService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	NewSession(ctx context.Context) (*dto.NewSessionResponse, error)
	History(ctx context.Context, sessionID string) (*dto.HistoryResponse, error)
	Clear(ctx context.Context, sessionID string) (*dto.ClearSessionResponse, error)
}

type consultationService struct {
	engine   *consultation.Engine
	observer TurnObserver
}

func NewConsultationService(engine *consultation.Engine, observer TurnObserver) IConsultationService {
	return &consultationService{engine: engine, observer: observer}
}

func (s *consultationService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	start := time.Now()
	reply, err := s.engine.Respond(ctx, req.SessionID, toStoreMessages(req.Messages))
	if s.observer != nil {
		s.observer.ObserveTurn(store.ServiceConsultation, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("consultation turn: %w", err)
	}
	return &dto.ChatResponse{
		Messages:  toMessageDtos(reply.Messages),
		SessionID: reply.SessionID,
	}, nil
}

func (s *consultationService) NewSession(ctx context.Context) (*dto.NewSessionResponse, error) {
	id, err := s.engine.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.NewSessionResponse{SessionID: id}, nil
}

func (s *consultationService) History(ctx context.Context, sessionID string) (*dto.HistoryResponse, error) {
	msgs, err := s.engine.History(ctx, sessionID)
	if err != nil && !errors.Is(err, contract.ErrSessionNotFound) {
		return nil, err
	}
	return &dto.HistoryResponse{SessionID: sessionID, Messages: toMessageDtos(msgs)}, nil
}

func (s *consultationService) Clear(ctx context.Context, sessionID string) (*dto.ClearSessionResponse, error) {
	err := s.engine.Clear(ctx, sessionID)
	if errors.Is(err, contract.ErrSessionNotFound) {
		return &dto.ClearSessionResponse{Message: fmt.Sprintf("Session %s not found", sessionID)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.ClearSessionResponse{Message: fmt.Sprintf("Session %s cleared successfully", sessionID)}, nil
}
