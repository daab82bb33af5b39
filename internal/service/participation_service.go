package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixniemeyer/ai-mediator/internal/dto"
	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
)

type IParticipationService interface {
	// GetParticipation returns the polling view for one participant.
	// Missing perspective/answer records are absent fields, not errors.
	GetParticipation(ctx context.Context, sessionId, secretKey string) (*dto.ParticipationResponse, error)

	// ValidateKey checks that the secret key belongs to the session.
	ValidateKey(ctx context.Context, sessionId, secretKey string) error
}

type participationService struct {
	repo contract.MediationRepository
}

func NewParticipationService(repo contract.MediationRepository) IParticipationService {
	return &participationService{repo: repo}
}

func (s *participationService) lookup(ctx context.Context, sessionId, secretKey string) (*entity.Session, *entity.Participant, error) {
	session, err := s.repo.GetSession(ctx, sessionId)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	participant, _ := session.ParticipantByKey(secretKey)
	if participant == nil {
		return nil, nil, ErrInvalidSecretKey
	}
	return session, participant, nil
}

func (s *participationService) ValidateKey(ctx context.Context, sessionId, secretKey string) error {
	_, _, err := s.lookup(ctx, sessionId, secretKey)
	return err
}

func (s *participationService) GetParticipation(ctx context.Context, sessionId, secretKey string) (*dto.ParticipationResponse, error) {
	session, participant, err := s.lookup(ctx, sessionId, secretKey)
	if err != nil {
		return nil, err
	}

	res := &dto.ParticipationResponse{
		ParticipantName: participant.Name,
		SessionName:     session.Name,
		MediationStatus: "collecting",
	}

	perspective, err := s.repo.GetPerspective(ctx, sessionId, secretKey)
	if err != nil && !errors.Is(err, contract.ErrNotFound) {
		return nil, fmt.Errorf("load perspective: %w", err)
	}
	if err == nil {
		res.Perspective = &perspective.Text
	}

	answer, err := s.repo.GetAnswer(ctx, sessionId, secretKey)
	if err != nil && !errors.Is(err, contract.ErrNotFound) {
		return nil, fmt.Errorf("load answer: %w", err)
	}
	if err == nil {
		res.Answer = &answer.Text
	}

	report, err := s.repo.GetCompletionReport(ctx, sessionId)
	if err != nil && !errors.Is(err, contract.ErrNotFound) {
		return nil, fmt.Errorf("load completion report: %w", err)
	}
	if err == nil {
		res.MediationStatus = string(report.Status)
	}

	return res, nil
}
