package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/lapply/lapply/internal/database/postgres"
	"github.com/lapply/lapply/internal/entity"
)

type applicationQueryService struct {
	applicationRepo repository.ApplicationRepository
	eventRepo       repository.EventRepository
}

func NewApplicationQueryService(
	applicationRepo repository.ApplicationRepository,
	eventRepo repository.EventRepository,
) ApplicationQueryService {
	return &applicationQueryService{
		applicationRepo: applicationRepo,
		eventRepo:       eventRepo,
	}
}

// FindCancelable returns the bookings a user may still cancel: applied
// status, slot time in the future, scoped to one tenant, soonest first.
func (s *applicationQueryService) FindCancelable(ctx context.Context, userID, organizationID string, now time.Time) ([]*entity.CancelableApplication, error) {
	if userID == "" || organizationID == "" {
		return nil, entity.ErrInvalidInput
	}

	apps, err := s.applicationRepo.FindCancelable(ctx, userID, organizationID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find cancelable applications: %w", err)
	}

	cancelable := make([]*entity.CancelableApplication, 0, len(apps))
	for _, app := range apps {
		if app.SlotAt == nil {
			// applied records without a slot time are not presented for
			// cancellation by date; they can still be canceled by id.
			continue
		}
		cancelable = append(cancelable, &entity.CancelableApplication{
			ID:        app.ID,
			SlotAt:    *app.SlotAt,
			Plan:      app.Plan,
			CreatedAt: app.CreatedAt,
		})
	}

	return cancelable, nil
}

func (s *applicationQueryService) GetByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Application, error) {
	if organizationID == "" {
		return nil, entity.ErrInvalidInput
	}

	apps, err := s.applicationRepo.GetByOrganization(ctx, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

func (s *applicationQueryService) GetEventAvailability(ctx context.Context, eventID string) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event, nil
}
