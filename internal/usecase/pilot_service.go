package usecase

import (
	"context"
	"fmt"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
)

type PilotService struct {
	repo pilot.Repository
}

func NewPilotService(repo pilot.Repository) *PilotService {
	return &PilotService{repo: repo}
}

func (s *PilotService) List(ctx context.Context) ([]pilot.Pilot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PilotService.List")
	defer span.End()

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pilots: %w", err)
	}
	return items, nil
}
