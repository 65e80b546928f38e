package service

import (
	"context"
	"fmt"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

type RoomService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewRoomService(repo domain.Repository, logger *zerolog.Logger) *RoomService {
	return &RoomService{
		repo:   repo,
		logger: logger,
	}
}

// ListRooms returns active rooms narrowed by type and capacity band.
func (s *RoomService) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	v := &domain.ValidationError{}
	if filter.Type != "" && !models.IsValidRoomType(filter.Type) {
		v.Add("type", fmt.Sprintf("unknown room type %q", filter.Type))
	}
	switch filter.CapacityBand {
	case "", models.CapacityBandSmall, models.CapacityBandMedium, models.CapacityBandLarge:
	default:
		v.Add("capacity", fmt.Sprintf("unknown capacity band %q", filter.CapacityBand))
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.ListRooms(ctx, filter)
}

// GetRoom hides inactive rooms behind the same NotFound as unknown ones.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	return room, nil
}
