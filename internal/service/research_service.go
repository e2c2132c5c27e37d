package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/dto"
	"github.com/Dots-Uzbekistan/Lexora/internal/repository/contract"
	"github.com/Dots-Uzbekistan/Lexora/pkg/research/session"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"
)

// TurnObserver records turn level metrics.
type TurnObserver interface {
	ObserveTurn(service string, elapsed time.Duration, err error)
	ObserveInterrupt(interruptType string)
}

type IResearchService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	NewSession(ctx context.Context) (*dto.NewSessionResponse, error)
	History(ctx context.Context, sessionID string) (*dto.HistoryResponse, error)
	Clear(ctx context.Context, sessionID string) (*dto.ClearSessionResponse, error)
	Workflow(ctx context.Context, sessionID string) (*dto.WorkflowResponse, error)
}

type researchService struct {
	orchestrator *session.Orchestrator
	observer     TurnObserver
}

func NewResearchService(orchestrator *session.Orchestrator, observer TurnObserver) IResearchService {
	return &researchService{orchestrator: orchestrator, observer: observer}
}

func (s *researchService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	start := time.Now()
	out, err := s.orchestrator.Advance(ctx, req.SessionID, toStoreMessages(req.Messages))
	if s.observer != nil {
		s.observer.ObserveTurn(store.ServiceResearch, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("research turn: %w", err)
	}

	res := &dto.ChatResponse{
		Messages:  toMessageDtos(out.Messages),
		SessionID: out.SessionID,
	}
	if out.Interrupt != nil {
		res.InterruptType = string(out.Interrupt.Type)
		res.InterruptData = out.Interrupt.Data
		res.InterruptID = out.Interrupt.ID
		if s.observer != nil {
			s.observer.ObserveInterrupt(string(out.Interrupt.Type))
		}
	}
	return res, nil
}

func (s *researchService) NewSession(ctx context.Context) (*dto.NewSessionResponse, error) {
	id, err := s.orchestrator.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.NewSessionResponse{SessionID: id}, nil
}

// History of an unknown session is empty.
func (s *researchService) History(ctx context.Context, sessionID string) (*dto.HistoryResponse, error) {
	msgs, err := s.orchestrator.History(ctx, sessionID)
	if err != nil && !errors.Is(err, contract.ErrSessionNotFound) {
		return nil, err
	}
	return &dto.HistoryResponse{SessionID: sessionID, Messages: toMessageDtos(msgs)}, nil
}

func (s *researchService) Clear(ctx context.Context, sessionID string) (*dto.ClearSessionResponse, error) {
	err := s.orchestrator.Clear(ctx, sessionID)
	if errors.Is(err, contract.ErrSessionNotFound) {
		return &dto.ClearSessionResponse{Message: fmt.Sprintf("Research session %s not found", sessionID)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.ClearSessionResponse{Message: fmt.Sprintf("Research session %s cleared successfully", sessionID)}, nil
}

func (s *researchService) Workflow(ctx context.Context, sessionID string) (*dto.WorkflowResponse, error) {
	wf, err := s.orchestrator.Workflow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	res := &dto.WorkflowResponse{SessionID: sessionID, CompletedStages: []string{}, ApprovedIDs: []string{}}
	if wf == nil {
		return res, nil
	}

	res.Question = wf.Question
	res.Cycle = wf.Cycle
	res.PendingApproval = wf.PendingApproval
	res.ApprovalKind = string(wf.ApprovalKind)
	res.ArtifactID = wf.CurrentArtifactID
	res.ApprovedIDs = append(res.ApprovedIDs, wf.ApprovedIDs...)
	for _, st := range wf.CompletedStages {
		res.CompletedStages = append(res.CompletedStages, string(st))
	}
	return res, nil
}
